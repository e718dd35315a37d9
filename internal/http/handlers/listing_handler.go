package handlers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"blaze/internal/domain"
	"blaze/internal/services"
	"blaze/internal/validate"
)

type ListingHandler struct {
	Catalog *services.CatalogService
}

func pageURL(f domain.ListingFilter, page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Sort != domain.SortNewest {
		q.Set("sort", string(f.Sort))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return "/?" + q.Encode()
}

// Home lists unsold products with category, sort, search and pagination.
func (h *ListingHandler) Home(c *fiber.Ctx) error {
	f := validate.Listing(c.Query("page"), c.Query("category"), c.Query("sort"), c.Query("search"))
	page, err := h.Catalog.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	data := fiber.Map{"Listing": page, "Filter": f}
	if f.Page > 1 {
		data["PrevURL"] = pageURL(f, f.Page-1)
	}
	if f.Page < page.TotalPages {
		data["NextURL"] = pageURL(f, f.Page+1)
	}
	return render(c, "home", data)
}
