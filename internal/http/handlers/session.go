package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blaze/internal/authz"
	"blaze/internal/domain"
	applog "blaze/internal/log"
	"blaze/internal/services"
)

const (
	sidCookie     = "sid"
	userLocal     = "user"
	profileLocal  = "profile"
	cartCookieTTL = 30 * 24 * time.Hour
)

// Cookies carries the cookie flags shared by every handler that sets one.
type Cookies struct {
	Secure bool
}

func (k Cookies) set(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   k.Secure,
		Expires:  expires,
	})
}

func (k Cookies) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if sid == "" {
		sid = uuid.NewString()
		k.set(c, sidCookie, sid, time.Time{})
	}
	return sid
}

// LoadUser attaches the session's user and profile to the request, if any.
func LoadUser(auth *services.AuthService, profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sidCookie)
		if sid == "" {
			return c.Next()
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil {
			return c.Next()
		}
		c.Locals(userLocal, u)
		c.Locals(applog.UserIDLocal, u.ID)
		if p, err := profiles.Get(c.UserContext(), u.ID); err == nil {
			c.Locals(profileLocal, p)
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to /auth.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			applog.Security(c, "access.denied.anonymous", nil)
			return c.Redirect("/auth")
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userLocal).(*domain.User)
	return u
}

func currentProfile(c *fiber.Ctx) (domain.Profile, bool) {
	p, ok := c.Locals(profileLocal).(domain.Profile)
	return p, ok
}

func subject(c *fiber.Ctx) authz.Subject {
	if u := currentUser(c); u != nil {
		return authz.Subject{UserID: u.ID}
	}
	return authz.Subject{}
}
