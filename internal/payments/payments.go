// Package payments talks to the hosted checkout provider.
package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// Metadata keys attached to checkout sessions and read back by the webhook.
const (
	MetaCheckoutType = "checkoutType"
	MetaProductID    = "productId"
	MetaProductIDs   = "productIds"
	MetaBuyerID      = "buyerId"
	MetaSellerID     = "sellerId"
	MetaSellerIDs    = "sellerIds"

	CheckoutSingle = "single"
	CheckoutCart   = "cart"

	// MaxMetadataValue is the provider's limit on one metadata value.
	MaxMetadataValue = 500
)

const EventCheckoutCompleted = "checkout.session.completed"

type LineItem struct {
	Name string
	// AmountCents is the unit price in minor units.
	AmountCents int64
	ImageURL    string
}

type SessionRequest struct {
	Items      []LineItem
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
	// BuyerEmail prefills the hosted page when set.
	BuyerEmail string
}

type Session struct {
	ID  string
	URL string
}

// CompletedSession is the part of a completed checkout the webhook needs.
type CompletedSession struct {
	ID          string
	AmountTotal int64
	Metadata    map[string]string
}

type Event struct {
	ID      string
	Type    string
	Session CompletedSession
}

// Provider creates checkout sessions and authenticates webhook deliveries.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	ParseEvent(payload []byte, signature string) (Event, error)
}

// Cents converts a two-decimal price to minor units.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts minor units back to a price.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
