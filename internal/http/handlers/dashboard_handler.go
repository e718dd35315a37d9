package handlers

import (
	"github.com/gofiber/fiber/v2"

	"blaze/internal/services"
)

type DashboardHandler struct {
	Orders *services.OrderService
}

func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect("/auth")
	}
	d, err := h.Orders.Dashboard(c.UserContext(), u.ID)
	if err != nil {
		return err
	}
	return render(c, "dashboard", fiber.Map{"Sales": d.Sales, "Purchases": d.Purchases})
}
