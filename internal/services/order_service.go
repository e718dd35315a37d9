package services

import (
	"context"

	"blaze/internal/domain"
	"blaze/internal/repos"
)

type OrderService struct {
	Orders *repos.OrderRepo
}

func NewOrderService(orders *repos.OrderRepo) *OrderService {
	return &OrderService{Orders: orders}
}

type Dashboard struct {
	Sales     []domain.OrderView
	Purchases []domain.OrderView
}

// Dashboard lists userID's sales and purchases, newest first.
func (s *OrderService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	sales, err := s.Orders.Sales(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	purchases, err := s.Orders.Purchases(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Sales: sales, Purchases: purchases}, nil
}

// ForSession returns the buyer's orders recorded for a payment session. The
// webhook may not have arrived yet, so an empty result is normal.
func (s *OrderService) ForSession(ctx context.Context, buyerID, sessionID string) ([]domain.Order, error) {
	all, err := s.Orders.BySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, o := range all {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}
