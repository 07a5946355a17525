// Package cart holds per-customer shopping carts in process memory.
// Carts are session state: the service layer re-validates every line against
// the live catalog, so nothing here needs to survive a restart.
package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one cart line. UnitPrice is the effective price snapshotted at the
// time the item was added; it is reconciled against the catalog on read.
type Item struct {
	ProductID uuid.UUID
	Title     string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// Store is an in-memory cart store keyed by customer ID.
type Store struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]Item
}

func NewStore() *Store {
	return &Store{carts: make(map[uuid.UUID][]Item)}
}

// Get returns a copy of the customer's cart.
func (s *Store) Get(userID uuid.UUID) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Replace swaps the customer's cart for the given items. An empty slice
// clears the cart.
func (s *Store) Replace(userID uuid.UUID, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.carts, userID)
		return
	}
	stored := make([]Item, len(items))
	copy(stored, items)
	s.carts[userID] = stored
}

// Clear drops the customer's cart.
func (s *Store) Clear(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
