package services

import (
	"context"
	"strings"

	"blaze/internal/authz"
	"blaze/internal/domain"
	"blaze/internal/payments"
	"blaze/internal/repos"
)

// CheckoutService opens hosted checkout sessions. It never creates orders;
// that happens when the provider reports completion.
type CheckoutService struct {
	Products *repos.ProductRepo
	Payments payments.Provider
	BaseURL  string
}

// Buyer identifies who is paying.
type Buyer struct {
	Subject authz.Subject
	Email   string
}

func (s *CheckoutService) successURL(cart bool) string {
	u := strings.TrimRight(s.BaseURL, "/") + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
	if cart {
		u += "&clear_cart=true"
	}
	return u
}

func (s *CheckoutService) cancelURL() string {
	return strings.TrimRight(s.BaseURL, "/") + "/payment/canceled"
}

func lineItem(p domain.Product) payments.LineItem {
	return payments.LineItem{Name: p.Name, AmountCents: payments.Cents(p.Price), ImageURL: p.ImageURL}
}

func buyable(b Buyer, p domain.Product) error {
	return authz.CanBuy(b.Subject, authz.Resource{OwnerID: p.SellerID, Sold: p.Sold})
}

// Single starts a checkout for one product at its stored price.
func (s *CheckoutService) Single(ctx context.Context, b Buyer, productID string) (payments.Session, error) {
	if b.Subject.Anonymous() {
		return payments.Session{}, authz.ErrUnauthenticated
	}
	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		return payments.Session{}, err
	}
	if err := buyable(b, p); err != nil {
		return payments.Session{}, err
	}
	return s.Payments.CreateCheckoutSession(ctx, payments.SessionRequest{
		Items: []payments.LineItem{lineItem(p)},
		Metadata: map[string]string{
			payments.MetaCheckoutType: payments.CheckoutSingle,
			payments.MetaProductID:    p.ID,
			payments.MetaBuyerID:      b.Subject.UserID,
			payments.MetaSellerID:     p.SellerID,
		},
		SuccessURL: s.successURL(false),
		CancelURL:  s.cancelURL(),
		BuyerEmail: b.Email,
	})
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Cart starts one checkout for every product in ids. Names, prices and
// sellers are read from the store; cart snapshots are ignored.
func (s *CheckoutService) Cart(ctx context.Context, b Buyer, ids []string) (payments.Session, error) {
	if b.Subject.Anonymous() {
		return payments.Session{}, authz.ErrUnauthenticated
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return payments.Session{}, ErrEmptyCart
	}
	joined := strings.Join(ids, ",")
	if len(joined) > payments.MaxMetadataValue {
		return payments.Session{}, ErrCartTooLarge
	}

	found, err := s.Products.ByIDs(ctx, ids)
	if err != nil {
		return payments.Session{}, err
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	items := make([]payments.LineItem, 0, len(ids))
	sellers := make([]string, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return payments.Session{}, repos.ErrNotFound
		}
		if err := buyable(b, p); err != nil {
			return payments.Session{}, err
		}
		items = append(items, lineItem(p))
		sellers = append(sellers, p.SellerID)
	}
	sellerIDs := strings.Join(dedupe(sellers), ",")
	if len(sellerIDs) > payments.MaxMetadataValue {
		return payments.Session{}, ErrCartTooLarge
	}

	return s.Payments.CreateCheckoutSession(ctx, payments.SessionRequest{
		Items: items,
		Metadata: map[string]string{
			payments.MetaCheckoutType: payments.CheckoutCart,
			payments.MetaProductIDs:   joined,
			payments.MetaBuyerID:      b.Subject.UserID,
			payments.MetaSellerIDs:    sellerIDs,
		},
		SuccessURL: s.successURL(true),
		CancelURL:  s.cancelURL(),
		BuyerEmail: b.Email,
	})
}
