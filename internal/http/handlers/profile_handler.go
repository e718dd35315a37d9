package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "blaze/internal/log"
	"blaze/internal/services"
	"blaze/internal/validate"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
}

func (h *ProfileHandler) Show(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect("/auth")
	}
	p, err := h.Profiles.Get(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, err)
	}
	in := validate.ProfileInput{Username: p.Username, FirstName: p.FirstName, LastName: p.LastName, Bio: p.Bio, Theme: p.Theme}
	return render(c, "profile", fiber.Map{"Form": in, "Saved": c.Query("saved") == "1"})
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect("/auth")
	}
	in := validate.ProfileInput{
		Username:  c.FormValue("username"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Bio:       c.FormValue("bio"),
		Theme:     c.FormValue("theme"),
	}
	avatar, err := upload(c, "avatar")
	if err != nil {
		return err
	}
	change := services.AvatarChange{Upload: avatar, Remove: c.FormValue("remove_avatar") == "on"}
	_, err = h.Profiles.Update(c.UserContext(), u.ID, in, change)
	var fe *services.FieldErrors
	if errors.As(err, &fe) {
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "profile", fiber.Map{"Form": in, "Errors": fe.Fields})
	}
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "profile.update", nil)
	return c.Redirect("/profile?saved=1")
}

func (h *ProfileHandler) Theme(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect("/auth")
	}
	err := h.Profiles.SetTheme(c.UserContext(), u.ID, c.FormValue("theme"))
	var fe *services.FieldErrors
	if errors.As(err, &fe) {
		return c.Status(fiber.StatusUnprocessableEntity).Render("notfound", fiber.Map{"Message": fe.Fields.First("theme")})
	}
	if err != nil {
		return err
	}
	applog.Info(c, "profile.theme", map[string]any{"theme": c.FormValue("theme")})
	return c.Redirect("/profile")
}
