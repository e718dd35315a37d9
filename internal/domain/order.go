package domain

import "github.com/shopspring/decimal"

const OrderCompleted = "completed"

type Order struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	BuyerID          string          `db:"buyer_id" json:"buyer_id"`
	SellerID         string          `db:"seller_id" json:"seller_id"`
	PurchasePrice    decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	PaymentSessionID string          `db:"payment_session_id" json:"payment_session_id"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        string          `db:"created_at" json:"created_at"`
}

// OrderView is an order joined with product and counterparty display fields
// for the dashboard.
type OrderView struct {
	Order
	ProductName      string `db:"product_name"`
	ProductImage     string `db:"product_image"`
	CounterpartyName string `db:"counterparty_name"`
}
