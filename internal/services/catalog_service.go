package services

import (
	"context"
	"errors"

	"blaze/internal/authz"
	"blaze/internal/cache"
	"blaze/internal/domain"
	applog "blaze/internal/log"
	"blaze/internal/repos"
)

type CatalogService struct {
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Cache    cache.Listings
}

func NewCatalogService(prods *repos.ProductRepo, orders *repos.OrderRepo, c cache.Listings) *CatalogService {
	if c == nil {
		c = cache.Nop{}
	}
	return &CatalogService{Products: prods, Orders: orders, Cache: c}
}

// List returns one page of unsold listings, served from the cache when possible.
func (s *CatalogService) List(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error) {
	page, gen, err := s.Cache.Get(ctx, f)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		applog.Warn(nil, "cache.listings.get", err, nil)
	}
	page, err = s.Products.List(ctx, f)
	if err != nil {
		return domain.ListingPage{}, err
	}
	if err := s.Cache.Set(ctx, gen, f, page); err != nil {
		applog.Warn(nil, "cache.listings.set", err, nil)
	}
	return page, nil
}

type ProductView struct {
	Product  domain.Product
	Decision authz.Decision
}

// Detail loads a product and decides which action viewer gets on it.
func (s *CatalogService) Detail(ctx context.Context, id string, viewer authz.Subject) (ProductView, error) {
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	purchased := false
	if !viewer.Anonymous() && viewer.UserID != p.SellerID {
		if purchased, err = s.Orders.HasPurchased(ctx, viewer.UserID, p.ID); err != nil {
			return ProductView{}, err
		}
	}
	d := authz.Decide(viewer, authz.Resource{OwnerID: p.SellerID, Sold: p.Sold, Purchased: purchased})
	return ProductView{Product: p, Decision: d}, nil
}
