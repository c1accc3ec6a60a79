package orders

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// MemoryStore keeps orders in process memory. Stored orders are copied in and
// out so callers never share slices with the store.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	// keys indexes orders by customer id and idempotency key.
	keys map[[2]string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*domain.Order),
		keys:   make(map[[2]string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	if order.IdempotencyKey != "" {
		key := [2]string{order.CustomerID, order.IdempotencyKey}
		if _, ok := s.keys[key]; ok {
			return ErrDuplicateOrder
		}
		s.keys[key] = order.ID
	}

	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (s *MemoryStore) GetByIdempotencyKey(_ context.Context, customerID, key string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.keys[[2]string{customerID, key}]
	if !ok {
		return nil, nil
	}
	return cloneOrder(s.orders[id]), nil
}

func (s *MemoryStore) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := []domain.Order{}
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			orders = append(orders, *cloneOrder(order))
		}
	}

	slices.SortFunc(orders, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return orders, nil
}

func (s *MemoryStore) BeginPayment(_ context.Context, p *domain.Payment, from domain.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[p.OrderID]
	if !ok || order.Status != domain.OrderStatusCreated || order.PaymentStatus != from {
		return false, nil
	}

	order.PaymentStatus = domain.PaymentStatusPending
	order.PaymentMethod = p.Method
	order.UpdatedAt = p.CreatedAt
	order.Payments = append(order.Payments, *p)
	return true, nil
}

func (s *MemoryStore) SettlePayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[p.OrderID]
	if !ok || order.PaymentStatus != domain.PaymentStatusPending {
		return fmt.Errorf("order %s is not pending: %w", p.OrderID, domain.ErrConflict)
	}

	idx := slices.IndexFunc(order.Payments, func(existing domain.Payment) bool { return existing.ID == p.ID })
	if idx < 0 || order.Payments[idx].State != domain.PaymentStatePending {
		return fmt.Errorf("payment %s is not pending: %w", p.ID, domain.ErrConflict)
	}

	settled := order.Payments[idx]
	settled.State = p.State
	settled.ProviderReference = p.ProviderReference
	settled.FailureReason = p.FailureReason
	settled.UpdatedAt = p.UpdatedAt
	order.Payments[idx] = settled

	order.PaymentStatus, order.Status = orderStatusAfter(p.State)
	order.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *MemoryStore) Cancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.Status != domain.OrderStatusCreated || order.PaymentStatus != domain.PaymentStatusFailed {
		return false, nil
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	c := *order
	c.Items = slices.Clone(order.Items)
	if c.Items == nil {
		c.Items = []domain.OrderItem{}
	}
	c.Payments = slices.Clone(order.Payments)
	return &c
}
