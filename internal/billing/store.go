package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAlreadyPaid reports that CommitPaid found the order already in the paid
// state. Callers treat it as a successful no-op for duplicate deliveries.
var ErrAlreadyPaid = errors.New("order already paid")

// OrderStore persists payment orders and their grants.
//
// CommitPaid must be atomic: the created→paid transition and the grant write
// succeed together or not at all, and a second commit for the same order
// returns ErrAlreadyPaid without writing anything.
type OrderStore interface {
	// GetOrder returns the order, or (nil, nil) when no order exists.
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	// PutOrder records a new order in the created state.
	PutOrder(ctx context.Context, order *Order) error
	// CommitPaid transitions the order to paid and records the grant.
	CommitPaid(ctx context.Context, orderID, receiptID string, grant Grant) error
}

// MemoryStore is an in-process OrderStore for local runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]*Order
	grants []Grant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*Order)}
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) PutOrder(_ context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	cp := *order
	if cp.Status == "" {
		cp.Status = StatusCreated
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.orders[order.ID] = &cp
	return nil
}

func (s *MemoryStore) CommitPaid(_ context.Context, orderID, receiptID string, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if o.Status == StatusPaid {
		return ErrAlreadyPaid
	}
	o.Status = StatusPaid
	o.ReceiptID = receiptID
	o.PaidAt = time.Now().UTC()
	s.grants = append(s.grants, grant)
	return nil
}

// Grants returns a snapshot of every grant committed so far, for tests.
func (s *MemoryStore) Grants() []Grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Grant, len(s.grants))
	copy(out, s.grants)
	return out
}
