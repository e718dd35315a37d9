package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"blaze/internal/cart"
	applog "blaze/internal/log"
	"blaze/internal/services"
	"blaze/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
	Cookies
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	store := h.loadCart(c)
	return render(c, "cart", fiber.Map{
		"Items":     store.Items(),
		"Total":     store.Total(),
		"CartCount": store.Count(),
		"Notice":    c.Query("notice"),
	})
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	id, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Missing product."})
	}
	store := h.loadCart(c)
	changed, err := h.Cart.Add(c.UserContext(), store, subject(c), id)
	switch {
	case errors.Is(err, cart.ErrTooLarge):
		applog.Warn(c, "cart.full", err, map[string]any{"product": id})
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "cart", fiber.Map{
			"Items":     store.Items(),
			"Total":     store.Total(),
			"CartCount": store.Count(),
			"Notice":    "Your cart is full. Check out before adding more items.",
		})
	case err != nil:
		return fail(c, err)
	}
	if changed {
		applog.Info(c, "cart.add", map[string]any{"product": id})
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	store := h.loadCart(c)
	if err := store.Remove(c.FormValue("productId")); err != nil {
		return err
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.loadCart(c).Clear(); err != nil {
		return err
	}
	return c.Redirect("/cart")
}
