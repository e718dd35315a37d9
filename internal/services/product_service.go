package services

import (
	"context"
	"fmt"

	"blaze/internal/authz"
	"blaze/internal/cache"
	"blaze/internal/domain"
	applog "blaze/internal/log"
	"blaze/internal/repos"
	"blaze/internal/storage"
	"blaze/internal/validate"
)

// ProductService handles seller-side authoring of listings.
type ProductService struct {
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Media    *storage.Media
	Cache    cache.Listings
}

func NewProductService(prods *repos.ProductRepo, orders *repos.OrderRepo, media *storage.Media, c cache.Listings) *ProductService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ProductService{Products: prods, Orders: orders, Media: media, Cache: c}
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		applog.Warn(nil, "cache.listings.invalidate", err, nil)
	}
}

func checkImage(errs validate.Errors, image []byte, required bool) string {
	if len(image) == 0 {
		if required {
			errs.Add("image", "Please choose an image.")
		}
		return ""
	}
	ext, msg := validate.Image(image)
	if msg != "" {
		errs.Add("image", msg)
	}
	return ext
}

// Create validates the form, stores the image and inserts the listing.
// Nothing is written when validation fails.
func (s *ProductService) Create(ctx context.Context, seller authz.Subject, in validate.ProductInput, image []byte) (domain.Product, error) {
	if seller.Anonymous() {
		return domain.Product{}, authz.ErrUnauthenticated
	}
	p, errs := validate.Product(in)
	ext := checkImage(errs, image, true)
	if err := fieldErrors(errs); err != nil {
		return domain.Product{}, err
	}

	url, err := s.Media.Put(storage.BucketProducts, seller.UserID, ext, image)
	if err != nil {
		return domain.Product{}, fmt.Errorf("store image: %w", err)
	}
	p.ImageURL = url
	p.SellerID = seller.UserID
	if err := s.Products.Create(ctx, &p); err != nil {
		_ = s.Media.Remove(url)
		return domain.Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Editable loads id for its owner, refusing anyone else and sold listings.
func (s *ProductService) Editable(ctx context.Context, viewer authz.Subject, id string) (domain.Product, error) {
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := authz.CanManage(viewer, authz.Resource{OwnerID: p.SellerID, Sold: p.Sold}); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Update rewrites the listing; image is optional and replaces the old one.
func (s *ProductService) Update(ctx context.Context, viewer authz.Subject, id string, in validate.ProductInput, image []byte) (domain.Product, error) {
	cur, err := s.Editable(ctx, viewer, id)
	if err != nil {
		return domain.Product{}, err
	}
	p, errs := validate.Product(in)
	ext := checkImage(errs, image, false)
	if err := fieldErrors(errs); err != nil {
		return cur, err
	}

	p.ID, p.SellerID, p.ImageURL = cur.ID, cur.SellerID, cur.ImageURL
	if ext != "" {
		if p.ImageURL, err = s.Media.Put(storage.BucketProducts, viewer.UserID, ext, image); err != nil {
			return cur, fmt.Errorf("store image: %w", err)
		}
	}
	if err := s.Products.Update(ctx, p); err != nil {
		if p.ImageURL != cur.ImageURL {
			_ = s.Media.Remove(p.ImageURL)
		}
		return cur, err
	}
	if p.ImageURL != cur.ImageURL {
		if err := s.Media.Remove(cur.ImageURL); err != nil {
			applog.Warn(nil, "media.remove", err, map[string]any{"url": cur.ImageURL})
		}
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete removes an unsold listing without orders and its image.
func (s *ProductService) Delete(ctx context.Context, viewer authz.Subject, id string) error {
	p, err := s.Editable(ctx, viewer, id)
	if err != nil {
		return err
	}
	n, err := s.Orders.CountByProduct(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasOrders
	}
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Media.Remove(p.ImageURL); err != nil {
		applog.Warn(nil, "media.remove", err, map[string]any{"url": p.ImageURL})
	}
	s.invalidate(ctx)
	return nil
}
