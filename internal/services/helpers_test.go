package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"blaze/internal/domain"
	"blaze/internal/payments"
	"blaze/internal/repos"
)

var pngImage = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}, make([]byte, 64)...)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mkUser(t *testing.T, db *sqlx.DB, id, username string) {
	t.Helper()
	err := repos.NewUserRepo(db).CreateAccount(context.Background(),
		domain.User{ID: id, Email: username + "@blaze.test", Hash: "x"},
		domain.Profile{Username: username})
	require.NoError(t, err)
}

func mkProduct(t *testing.T, db *sqlx.DB, sellerID, name, price string) domain.Product {
	t.Helper()
	p := domain.Product{
		Name:        name,
		Description: "A product used in tests.",
		Price:       decimal.RequireFromString(price),
		Category:    "Technology",
		SellerID:    sellerID,
	}
	require.NoError(t, repos.NewProductRepo(db).Create(context.Background(), &p))
	return p
}

type fakeProvider struct {
	mu   sync.Mutex
	reqs []payments.SessionRequest
	err  error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req payments.SessionRequest) (payments.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return payments.Session{}, f.err
	}
	f.reqs = append(f.reqs, req)
	n := len(f.reqs)
	return payments.Session{ID: fmt.Sprintf("cs_test_%d", n), URL: fmt.Sprintf("https://checkout.test/%d", n)}, nil
}

func (f *fakeProvider) ParseEvent([]byte, string) (payments.Event, error) {
	return payments.Event{}, errors.New("not used")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, ev any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func countOrders(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM orders`))
	return n
}
