package services

import (
	"context"

	"blaze/internal/authz"
	"blaze/internal/cart"
	"blaze/internal/repos"
)

// CartService snapshots products into a client-held cart.
type CartService struct {
	Prods *repos.ProductRepo
}

func NewCartService(prods *repos.ProductRepo) *CartService {
	return &CartService{Prods: prods}
}

// Add snapshots productID's current server-side fields into store. Adding
// your own listing or a sold one is refused; adding twice is a no-op.
func (s *CartService) Add(ctx context.Context, store *cart.Store, viewer authz.Subject, productID string) (bool, error) {
	if store.Has(productID) {
		return false, nil
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return false, err
	}
	if p.Sold {
		return false, authz.ErrSold
	}
	if !viewer.Anonymous() && viewer.UserID == p.SellerID {
		return false, authz.ErrOwnListing
	}
	return store.Add(cart.Item{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		ImageURL:   p.ImageURL,
		SellerName: p.SellerName,
		SellerID:   p.SellerID,
	})
}
