package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"blaze/internal/authz"
	"blaze/internal/cart"
	"blaze/internal/domain"
	applog "blaze/internal/log"
	"blaze/internal/services"
	"blaze/internal/validate"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	theme := string(domain.ThemeSystem)
	if p, ok := currentProfile(c); ok {
		data["Me"] = p
		theme = p.Theme
	}
	data["Theme"] = theme
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	if _, ok := data["CartCount"]; !ok {
		data["CartCount"] = 0
		if raw := c.Cookies(cart.StorageKey); raw != "" {
			if items, err := cart.Decode(raw); err == nil {
				data["CartCount"] = len(items)
			}
		}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = validate.Errors{}
	}
	data["Categories"] = domain.Categories
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// fail maps service errors shared by several handlers to pages; anything
// unknown goes to the app ErrorHandler.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return c.Redirect("/auth")
	case errors.Is(err, services.ErrNotFound):
		return notFound(c, "This item is no longer available")
	case errors.Is(err, authz.ErrForbidden):
		applog.Security(c, "access.denied.owner", nil)
		return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
	case errors.Is(err, authz.ErrSold):
		return c.Status(fiber.StatusConflict).Render("notfound", fiber.Map{"Message": "This item has already been sold."})
	case errors.Is(err, authz.ErrOwnListing):
		return c.Status(fiber.StatusConflict).Render("notfound", fiber.Map{"Message": "You can't buy your own listing."})
	case errors.Is(err, services.ErrHasOrders):
		return c.Status(fiber.StatusConflict).Render("notfound", fiber.Map{"Message": "This listing has orders and can't be deleted."})
	}
	return err
}

// upload reads an optional multipart file, capped just past the image limit
// so oversize files are still detected.
func upload(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, validate.MaxImageBytes+1))
}
