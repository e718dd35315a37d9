package services

import (
	"context"
	"fmt"
	"strings"

	"blaze/internal/cache"
	"blaze/internal/domain"
	"blaze/internal/events"
	applog "blaze/internal/log"
	"blaze/internal/payments"
	"blaze/internal/repos"
)

// FulfillmentService turns completed checkout sessions into orders.
type FulfillmentService struct {
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Events   events.Publisher
	Cache    cache.Listings
}

func NewFulfillmentService(prods *repos.ProductRepo, orders *repos.OrderRepo, pub events.Publisher, c cache.Listings) *FulfillmentService {
	if pub == nil {
		pub = events.LogPublisher{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &FulfillmentService{Products: prods, Orders: orders, Events: pub, Cache: c}
}

// ItemOutcome is the result of one fulfillment unit.
type ItemOutcome struct {
	ProductID   string
	Order       domain.Order
	Created     bool
	AlreadySold bool
	Err         error
}

type Report struct {
	SessionID string
	Kind      string
	// Ignored is set for event types that need no fulfillment.
	Ignored bool
	Items   []ItemOutcome
}

func (r Report) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Handle fulfills a verified provider event. Each product is its own unit:
// one failing does not stop the rest, and failures only show in the Report.
// The returned error is ErrMissingMetadata or ErrPriceLookup (wrapped) when
// nothing could be attempted.
func (s *FulfillmentService) Handle(ctx context.Context, ev payments.Event) (Report, error) {
	rep := Report{SessionID: ev.Session.ID}
	if ev.Type != payments.EventCheckoutCompleted {
		rep.Ignored = true
		return rep, nil
	}
	md := ev.Session.Metadata
	var err error
	if md[payments.MetaCheckoutType] == payments.CheckoutCart || md[payments.MetaProductIDs] != "" {
		rep.Kind = payments.CheckoutCart
		rep.Items, err = s.fulfillCart(ctx, ev.Session)
	} else {
		rep.Kind = payments.CheckoutSingle
		rep.Items, err = s.fulfillSingle(ctx, ev.Session)
	}
	if err != nil {
		return rep, err
	}
	s.after(ctx, rep)
	return rep, nil
}

func splitIDs(s string) []string {
	return dedupe(strings.Split(s, ","))
}

func (s *FulfillmentService) fulfillCart(ctx context.Context, cs payments.CompletedSession) ([]ItemOutcome, error) {
	buyer := cs.Metadata[payments.MetaBuyerID]
	ids := splitIDs(cs.Metadata[payments.MetaProductIDs])
	if buyer == "" || len(ids) == 0 || cs.ID == "" {
		return nil, fmt.Errorf("%w: cart checkout needs %s and %s", ErrMissingMetadata, payments.MetaBuyerID, payments.MetaProductIDs)
	}
	refs, err := s.Products.PriceRefs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceLookup, err)
	}
	byID := make(map[string]int, len(refs))
	for i, r := range refs {
		byID[r.ProductID] = i
	}

	out := make([]ItemOutcome, 0, len(ids))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			out = append(out, ItemOutcome{ProductID: id, Err: repos.ErrNotFound})
			continue
		}
		ref := refs[i]
		out = append(out, s.unit(ctx, repos.FulfillLine{
			SessionID: cs.ID,
			ProductID: id,
			BuyerID:   buyer,
			SellerID:  ref.SellerID,
			Price:     ref.Price,
		}))
	}
	return out, nil
}

func (s *FulfillmentService) fulfillSingle(ctx context.Context, cs payments.CompletedSession) ([]ItemOutcome, error) {
	md := cs.Metadata
	productID, buyer, seller := md[payments.MetaProductID], md[payments.MetaBuyerID], md[payments.MetaSellerID]
	if productID == "" || buyer == "" || seller == "" || cs.ID == "" {
		return nil, fmt.Errorf("%w: single checkout needs %s, %s and %s", ErrMissingMetadata,
			payments.MetaProductID, payments.MetaBuyerID, payments.MetaSellerID)
	}
	return []ItemOutcome{s.unit(ctx, repos.FulfillLine{
		SessionID: cs.ID,
		ProductID: productID,
		BuyerID:   buyer,
		SellerID:  seller,
		Price:     payments.FromCents(cs.AmountTotal),
	})}, nil
}

func (s *FulfillmentService) unit(ctx context.Context, l repos.FulfillLine) ItemOutcome {
	res, err := s.Orders.Fulfill(ctx, l)
	if err != nil {
		return ItemOutcome{ProductID: l.ProductID, Err: err}
	}
	return ItemOutcome{ProductID: l.ProductID, Order: res.Order, Created: res.Created, AlreadySold: res.AlreadySold}
}

// after publishes created orders and drops cached listings once anything sold.
func (s *FulfillmentService) after(ctx context.Context, rep Report) {
	sold := false
	for _, it := range rep.Items {
		if it.Err != nil || !it.Created {
			continue
		}
		if !it.AlreadySold {
			sold = true
		}
		o := it.Order
		ev := events.OrderCreated{
			Type:             events.TypeOrderCreated,
			OrderID:          o.ID,
			ProductID:        o.ProductID,
			BuyerID:          o.BuyerID,
			SellerID:         o.SellerID,
			PurchasePrice:    o.PurchasePrice,
			PaymentSessionID: o.PaymentSessionID,
			CreatedAt:        o.CreatedAt,
		}
		if err := s.Events.Publish(ctx, o.ProductID, ev); err != nil {
			applog.Warn(nil, "event.publish.failed", err, map[string]any{"order_id": o.ID})
		}
	}
	if sold {
		if err := s.Cache.Invalidate(ctx); err != nil {
			applog.Warn(nil, "cache.listings.invalidate", err, nil)
		}
	}
}
