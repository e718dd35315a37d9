package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Stripe is the Provider backed by Stripe Checkout.
type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
}

func NewStripe(secretKey, webhookSecret, currency string) *Stripe {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Stripe{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	params.Context = ctx
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}
	for _, it := range req.Items {
		pd := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(it.Name)}
		if it.ImageURL != "" {
			pd.Images = []*string{stripe.String(it.ImageURL)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				ProductData: pd,
				UnitAmount:  stripe.Int64(it.AmountCents),
			},
			Quantity: stripe.Int64(1),
		})
	}
	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return Session{ID: cs.ID, URL: cs.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header before decoding anything.
func (s *Stripe) ParseEvent(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted || ev.Data == nil {
		return out, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.Session = CompletedSession{ID: cs.ID, AmountTotal: cs.AmountTotal, Metadata: cs.Metadata}
	return out, nil
}
