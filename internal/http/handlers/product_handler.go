package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "blaze/internal/log"
	"blaze/internal/services"
	"blaze/internal/validate"
)

type ProductHandler struct {
	Catalog  *services.CatalogService
	Products *services.ProductService
	Cookies
}

func productForm(c *fiber.Ctx) validate.ProductInput {
	return validate.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
		Category:    c.FormValue("category"),
	}
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	v, err := h.Catalog.Detail(c.UserContext(), id, subject(c))
	if err != nil {
		return fail(c, err)
	}
	return render(c, "product", fiber.Map{
		"P":      v.Product,
		"D":      v.Decision,
		"InCart": h.loadCart(c).Has(id),
	})
}

func (h *ProductHandler) NewForm(c *fiber.Ctx) error {
	return render(c, "product_form", fiber.Map{"Form": validate.ProductInput{}, "Action": "/sell", "Title": "Sell an item"})
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	in := productForm(c)
	image, err := upload(c, "image")
	if err != nil {
		return err
	}
	p, err := h.Products.Create(c.UserContext(), subject(c), in, image)
	var fe *services.FieldErrors
	if errors.As(err, &fe) {
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "product_form", fiber.Map{"Form": in, "Errors": fe.Fields, "Action": "/sell", "Title": "Sell an item"})
	}
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "product.create", map[string]any{"product": p.ID})
	return c.Redirect("/products/" + p.ID)
}

func (h *ProductHandler) EditForm(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.Products.Editable(c.UserContext(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	in := validate.ProductInput{Name: p.Name, Description: p.Description, Price: p.Price.StringFixed(2), Category: p.Category}
	return render(c, "product_form", fiber.Map{"Form": in, "P": p, "Action": "/products/" + id + "/edit", "Title": "Edit listing"})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	in := productForm(c)
	image, err := upload(c, "image")
	if err != nil {
		return err
	}
	p, err := h.Products.Update(c.UserContext(), subject(c), id, in, image)
	var fe *services.FieldErrors
	if errors.As(err, &fe) {
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "product_form", fiber.Map{"Form": in, "P": p, "Errors": fe.Fields, "Action": "/products/" + id + "/edit", "Title": "Edit listing"})
	}
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "product.update", map[string]any{"product": id})
	return c.Redirect("/products/" + id)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Products.Delete(c.UserContext(), subject(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "product.delete", map[string]any{"product": id})
	return c.Redirect("/dashboard")
}
