package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "blaze/internal/log"
	"blaze/internal/services"
	"blaze/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
	Cookies
}

func authMode(s string) string {
	if s == "signup" {
		return "signup"
	}
	return "login"
}

// Page shows the combined login / signup page.
func (h *AuthHandler) Page(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect("/")
	}
	return render(c, "auth", fiber.Map{"Mode": authMode(c.Query("mode")), "Form": validate.SignupInput{}})
}

// adopt makes sid the browser's session and unbinds whatever session id the
// browser arrived with, so an id planted before login never gains a user.
func (h *AuthHandler) adopt(c *fiber.Ctx, sid string) {
	if old := c.Cookies(sidCookie); old != "" && old != sid {
		if err := h.Auth.Logout(c.UserContext(), old); err != nil {
			applog.Warn(c, "auth.session.unbind", err, nil)
		}
	}
	h.set(c, sidCookie, sid, time.Time{})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := uuid.NewString()
	identifier := c.FormValue("identifier")
	_, err := h.Auth.Login(c.UserContext(), sid, identifier, c.FormValue("password"))
	if errors.Is(err, services.ErrBadCreds) {
		applog.Security(c, "auth.login.fail", map[string]any{"identifier": identifier})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "auth", fiber.Map{
			"Mode":       "login",
			"Form":       validate.SignupInput{},
			"Identifier": identifier,
			"Err":        "Invalid credentials.",
		})
	}
	if err != nil {
		return err
	}
	h.adopt(c, sid)
	applog.Audit(c, "auth.login.success", map[string]any{"identifier": identifier})
	return c.Redirect("/")
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	sid := uuid.NewString()
	in := validate.SignupInput{
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
		Confirm:   c.FormValue("confirm"),
	}
	avatar, err := upload(c, "avatar")
	if err != nil {
		return err
	}
	u, err := h.Auth.Signup(c.UserContext(), sid, in, avatar)
	var fe *services.FieldErrors
	if errors.As(err, &fe) {
		applog.Info(c, "auth.signup.invalid", map[string]any{"fields": len(fe.Fields)})
		in.Password, in.Confirm = "", ""
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "auth", fiber.Map{"Mode": "signup", "Form": in, "Errors": fe.Fields})
	}
	if err != nil {
		return err
	}
	h.adopt(c, sid)
	applog.Audit(c, "auth.signup", map[string]any{"user": u.ID})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := h.ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	h.set(c, sidCookie, "", time.Now().Add(-1*time.Hour))
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}
