package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"blaze/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// FulfillLine is one purchased product of a completed payment session.
type FulfillLine struct {
	SessionID string
	ProductID string
	BuyerID   string
	SellerID  string
	Price     decimal.Decimal
}

type FulfillResult struct {
	Order domain.Order
	// Created is false when the session already had an order for this product.
	Created bool
	// AlreadySold is set when the product was sold before this order claimed it.
	AlreadySold bool
}

const orderColumns = `id, product_id, buyer_id, seller_id, purchase_price, payment_session_id, status, created_at`

// Fulfill records the order for l and marks the product sold, both in one
// transaction. Re-running it for the same session and product is a no-op.
func (r *OrderRepo) Fulfill(ctx context.Context, l FulfillLine) (FulfillResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return FulfillResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	o := domain.Order{
		ID:               uuid.NewString(),
		ProductID:        l.ProductID,
		BuyerID:          l.BuyerID,
		SellerID:         l.SellerID,
		PurchasePrice:    l.Price,
		PaymentSessionID: l.SessionID,
		Status:           domain.OrderCompleted,
		CreatedAt:        now(),
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`
	  INSERT INTO orders(`+orderColumns+`)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	  ON CONFLICT(payment_session_id, product_id) DO NOTHING
	`), o.ID, o.ProductID, o.BuyerID, o.SellerID, o.PurchasePrice, o.PaymentSessionID, o.Status, o.CreatedAt)
	if err != nil {
		return FulfillResult{}, err
	}
	out := FulfillResult{Order: o}
	if n, _ := res.RowsAffected(); n == 1 {
		out.Created = true
	} else if err := tx.GetContext(ctx, &out.Order, tx.Rebind(`
	  SELECT `+orderColumns+` FROM orders WHERE payment_session_id = ? AND product_id = ?
	`), l.SessionID, l.ProductID); err != nil {
		return FulfillResult{}, err
	}

	upd, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE products SET sold = TRUE, updated_at = ? WHERE id = ? AND sold = FALSE`),
		now(), l.ProductID)
	if err != nil {
		return FulfillResult{}, err
	}
	if n, _ := upd.RowsAffected(); n == 0 {
		out.AlreadySold = true
	}

	if err := tx.Commit(); err != nil {
		return FulfillResult{}, err
	}
	return out, nil
}

// HasPurchased reports whether buyerID has an order for productID.
func (r *OrderRepo) HasPurchased(ctx context.Context, buyerID, productID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM orders WHERE buyer_id = ? AND product_id = ?`), buyerID, productID)
	return n > 0, err
}

func (r *OrderRepo) CountByProduct(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM orders WHERE product_id = ?`), productID)
	return n, err
}

func (r *OrderRepo) BySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
	  SELECT `+orderColumns+` FROM orders WHERE payment_session_id = ? ORDER BY created_at, id
	`), sessionID)
	return out, err
}

// Sales lists orders where userID is the seller, newest first, with buyer usernames.
func (r *OrderRepo) Sales(ctx context.Context, userID string) ([]domain.OrderView, error) {
	return r.views(ctx, `o.seller_id = ?`, `o.buyer_id`, userID)
}

// Purchases lists orders where userID is the buyer, newest first, with seller usernames.
func (r *OrderRepo) Purchases(ctx context.Context, userID string) ([]domain.OrderView, error) {
	return r.views(ctx, `o.buyer_id = ?`, `o.seller_id`, userID)
}

func (r *OrderRepo) views(ctx context.Context, cond, counterparty, userID string) ([]domain.OrderView, error) {
	out := []domain.OrderView{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
	  SELECT o.id, o.product_id, o.buyer_id, o.seller_id, o.purchase_price, o.payment_session_id, o.status, o.created_at,
	         COALESCE(p.name, '')       AS product_name,
	         COALESCE(p.image_url, '')  AS product_image,
	         COALESCE(pr.username, '')  AS counterparty_name
	  FROM orders o
	  LEFT JOIN products p  ON p.id = o.product_id
	  LEFT JOIN profiles pr ON pr.id = `+counterparty+`
	  WHERE `+cond+`
	  ORDER BY o.created_at DESC, o.id DESC
	`), userID)
	return out, err
}
