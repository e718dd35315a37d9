package repos

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"blaze/internal/domain"
)

// SeedDemo ensures two demo sellers and a handful of listings exist
// (idempotent; safe to run every start).
func SeedDemo(ctx context.Context, db *sqlx.DB) error {
	type u struct {
		ID, Email, Username, First, Last string
	}
	users := []u{
		{"u-alice", "alice@blaze.test", "alice", "Alice", "Walker"},
		{"u-bob", "bob@blaze.test", "bob", "Bob", "Stone"},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users(id, email, password_hash, created_at)
			VALUES(?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`), x.ID, x.Email, string(hash), now()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO profiles(id, username, first_name, last_name, theme, updated_at)
			VALUES(?, ?, ?, ?, 'system', ?)
			ON CONFLICT(id) DO NOTHING
		`), x.ID, x.Username, x.First, x.Last, now()); err != nil {
			return err
		}
	}

	products := []domain.Product{
		{ID: "p-keyboard", Name: "Mechanical Keyboard", Description: "Tenkeyless board with brown switches, barely used.", Price: decimal.RequireFromString("79.00"), Category: "Technology", SellerID: "u-alice"},
		{ID: "p-jacket", Name: "Denim Jacket", Description: "Classic blue denim jacket, size M, washed once.", Price: decimal.RequireFromString("45.50"), Category: "Clothing", SellerID: "u-alice"},
		{ID: "p-racket", Name: "Tennis Racket", Description: "Graphite racket with a fresh grip and new strings.", Price: decimal.RequireFromString("60.00"), Category: "Sports", SellerID: "u-bob"},
		{ID: "p-novel", Name: "Dune (Hardcover)", Description: "First printing reissue, dust jacket in good shape.", Price: decimal.RequireFromString("25.00"), Category: "Books", SellerID: "u-bob"},
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO products(id, name, name_lower, description, price, category, image_url, seller_id, sold, created_at)
			VALUES(?, ?, ?, ?, ?, ?, '', ?, FALSE, ?)
			ON CONFLICT(id) DO NOTHING
		`), p.ID, p.Name, foldName(p.Name), p.Description, p.Price, p.Category, p.SellerID, now()); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Println("[seed] demo users/products ensured")
	return nil
}
