package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "blaze/internal/log"
	"blaze/internal/payments"
	"blaze/internal/services"
)

// WebhookHandler receives payment provider events. It sits outside CSRF and
// the session middleware; the signature is the only credential.
type WebhookHandler struct {
	Payments payments.Provider
	Fulfill  *services.FulfillmentService
}

func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	ev, err := h.Payments.ParseEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		applog.Security(c, "webhook.signature.fail", map[string]any{"err": err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}

	rep, err := h.Fulfill.Handle(c.UserContext(), ev)
	switch {
	case errors.Is(err, services.ErrMissingMetadata):
		applog.Error(c, "webhook.metadata", err, map[string]any{"session": ev.Session.ID})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing metadata"})
	case err != nil:
		applog.Error(c, "webhook.fulfill", err, map[string]any{"session": ev.Session.ID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "fulfillment failed"})
	}
	if rep.Ignored {
		applog.Info(c, "webhook.ignored", map[string]any{"type": ev.Type, "event": ev.ID})
		return c.JSON(fiber.Map{"received": true})
	}

	for _, it := range rep.Items {
		fields := map[string]any{"session": rep.SessionID, "product": it.ProductID, "kind": rep.Kind}
		switch {
		case it.Err != nil:
			applog.Error(c, "order.fulfill.failed", it.Err, fields)
		case !it.Created:
			applog.Info(c, "order.duplicate", fields)
		default:
			fields["order"] = it.Order.ID
			if it.AlreadySold {
				applog.Warn(c, "order.already_sold", nil, fields)
			}
			applog.Audit(c, "order.created", fields)
		}
	}
	return c.JSON(fiber.Map{"received": true, "failed": rep.Failed()})
}
