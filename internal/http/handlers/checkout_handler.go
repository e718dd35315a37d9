package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"blaze/internal/authz"
	applog "blaze/internal/log"
	"blaze/internal/payments"
	"blaze/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Cookies
}

func (h *CheckoutHandler) buyer(c *fiber.Ctx) services.Buyer {
	b := services.Buyer{Subject: subject(c)}
	if u := currentUser(c); u != nil {
		b.Email = u.Email
	}
	return b
}

// redirect sends the browser to the hosted payment page, or maps the error.
func (h *CheckoutHandler) redirect(c *fiber.Ctx, sess payments.Session, err error, fields map[string]any) error {
	switch {
	case err == nil:
		applog.Audit(c, "checkout.start", fields)
		return c.Redirect(sess.URL, fiber.StatusSeeOther)
	case errors.Is(err, services.ErrEmptyCart):
		return c.Redirect("/cart")
	case errors.Is(err, services.ErrCartTooLarge):
		applog.Warn(c, "checkout.too_large", err, fields)
		return c.Redirect("/cart?notice=Too+many+items+for+one+checkout.")
	case errors.Is(err, authz.ErrUnauthenticated), errors.Is(err, authz.ErrForbidden),
		errors.Is(err, authz.ErrSold), errors.Is(err, authz.ErrOwnListing), errors.Is(err, services.ErrNotFound):
		return fail(c, err)
	}
	applog.Error(c, "checkout.provider", err, fields)
	return c.Status(fiber.StatusBadGateway).Render("notfound", fiber.Map{
		"Message": "We couldn't start the payment. Please try again.",
	})
}

func (h *CheckoutHandler) Product(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := h.Checkout.Single(c.UserContext(), h.buyer(c), id)
	return h.redirect(c, sess, err, map[string]any{"product": id})
}

func (h *CheckoutHandler) Cart(c *fiber.Ctx) error {
	ids := h.loadCart(c).ProductIDs()
	sess, err := h.Checkout.Cart(c.UserContext(), h.buyer(c), ids)
	return h.redirect(c, sess, err, map[string]any{"items": len(ids)})
}

// Success is the provider's return page. Orders appear once the webhook
// lands, which may be after the browser gets here.
func (h *CheckoutHandler) Success(c *fiber.Ctx) error {
	sid := c.Query("session_id")
	data := fiber.Map{"SessionID": sid}
	if c.Query("clear_cart") == "true" {
		if err := h.loadCart(c).Clear(); err != nil {
			applog.Warn(c, "cart.clear", err, nil)
		}
		data["CartCount"] = 0
	}
	if u := currentUser(c); u != nil && sid != "" {
		orders, err := h.Orders.ForSession(c.UserContext(), u.ID, sid)
		if err != nil {
			return err
		}
		data["Orders"] = orders
	}
	return render(c, "payment_success", data)
}

func (h *CheckoutHandler) Canceled(c *fiber.Ctx) error {
	return render(c, "payment_canceled", nil)
}
