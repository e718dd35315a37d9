// Package cart holds the client-side shopping cart: a set of product
// snapshots keyed by product id, persisted through a pluggable Backend.
package cart

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// StorageKey is the single key the serialized cart lives under.
const StorageKey = "blaze-cart"

// MaxEncodedSize bounds the encoded cart so it fits in a browser cookie.
const MaxEncodedSize = 3800

var (
	ErrCorrupt  = errors.New("cart: stored data is corrupt")
	ErrTooLarge = errors.New("cart: too many items")
)

// Item is a snapshot of a product taken when it was added.
type Item struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"image_url"`
	SellerName string          `json:"seller_name"`
	SellerID   string          `json:"seller_id"`
}

// Backend reads and writes the raw encoded cart.
type Backend interface {
	Load() (string, bool)
	Save(encoded string) error
}

// Store is an in-memory view of one cart, rehydrated from a Backend.
type Store struct {
	b     Backend
	items []Item
}

// Load rehydrates the cart from b. Corrupt data yields an empty cart along
// with ErrCorrupt so callers can log it; the returned Store is always usable.
func Load(b Backend) (*Store, error) {
	s := &Store{b: b}
	raw, ok := b.Load()
	if !ok || raw == "" {
		return s, nil
	}
	items, err := Decode(raw)
	if err != nil {
		return s, err
	}
	s.items = items
	return s, nil
}

func Encode(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func Decode(raw string) ([]Item, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	// drop duplicates and blank ids a tampered cookie may carry
	seen := map[string]bool{}
	out := items[:0]
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out, nil
}

// Save writes the current items to the backend.
func (s *Store) Save() error {
	enc, err := Encode(s.items)
	if err != nil {
		return err
	}
	if len(enc) > MaxEncodedSize {
		return ErrTooLarge
	}
	return s.b.Save(enc)
}

// Add appends it unless an item with the same id is already present, then
// saves. It reports whether the cart changed.
func (s *Store) Add(it Item) (bool, error) {
	if s.Has(it.ID) {
		return false, nil
	}
	s.items = append(s.items, it)
	if err := s.Save(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return false, err
	}
	return true, nil
}

func (s *Store) Remove(id string) error {
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return s.Save()
		}
	}
	return nil
}

func (s *Store) Clear() error {
	s.items = nil
	return s.Save()
}

func (s *Store) Has(id string) bool {
	for _, it := range s.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) Count() int { return len(s.items) }

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) ProductIDs() []string {
	ids := make([]string, 0, len(s.items))
	for _, it := range s.items {
		ids = append(ids, it.ID)
	}
	return ids
}

// Total sums the snapshot prices. Checkout never uses it for charging.
func (s *Store) Total() decimal.Decimal {
	t := decimal.Zero
	for _, it := range s.items {
		t = t.Add(it.Price)
	}
	return t
}

// MemoryBackend keeps the encoded cart in memory.
type MemoryBackend struct {
	mu  sync.Mutex
	raw string
	set bool
}

func (m *MemoryBackend) Load() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw, m.set
}

func (m *MemoryBackend) Save(encoded string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw, m.set = encoded, true
	return nil
}
