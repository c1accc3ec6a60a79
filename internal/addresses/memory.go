package addresses

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

var errFlagConflict = errors.New("more than one address flagged")

// MemoryStore keeps addresses in process memory. A transaction works on a
// copy of the customer's addresses and replaces them on success, so a failed
// transaction leaves nothing behind. Commits are rejected when they would
// leave more than one default or current address, mirroring the partial
// unique indexes of the Postgres schema.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[string][]domain.Address
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{customers: make(map[string][]domain.Address)}
}

func (s *MemoryStore) List(_ context.Context, customerID string) ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.customers[customerID]), nil
}

func (s *MemoryStore) Get(_ context.Context, customerID, id string) (*domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := findAddress(s.customers[customerID], id)
	if addr == nil {
		return nil, nil
	}
	found := *addr
	return &found, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, customerID string, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{customerID: customerID, rows: slices.Clone(s.customers[customerID])}
	if err := fn(tx); err != nil {
		return err
	}

	if err := checkFlags(tx.rows); err != nil {
		return err
	}

	if len(tx.rows) == 0 {
		delete(s.customers, customerID)
		return nil
	}
	s.customers[customerID] = tx.rows
	return nil
}

func checkFlags(rows []domain.Address) error {
	var defaults, currents int
	for _, addr := range rows {
		if addr.IsDefault {
			defaults++
		}
		if addr.IsCurrent {
			currents++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: %d default", errFlagConflict, defaults)
	}
	if currents > 1 {
		return fmt.Errorf("%w: %d current", errFlagConflict, currents)
	}
	return nil
}

type memoryTx struct {
	customerID string
	rows       []domain.Address
}

func (t *memoryTx) List(context.Context) ([]domain.Address, error) {
	return slices.Clone(t.rows), nil
}

func (t *memoryTx) Insert(_ context.Context, addr *domain.Address) error {
	if findAddress(t.rows, addr.ID) != nil {
		return fmt.Errorf("address %s already exists", addr.ID)
	}
	row := *addr
	row.CustomerID = t.customerID
	t.rows = append(t.rows, row)
	return nil
}

func (t *memoryTx) Update(_ context.Context, addr *domain.Address) error {
	row := findAddress(t.rows, addr.ID)
	if row == nil {
		return fmt.Errorf("address %s: %w", addr.ID, domain.ErrNotFound)
	}
	createdAt := row.CreatedAt
	*row = *addr
	row.CustomerID = t.customerID
	row.CreatedAt = createdAt
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id string) error {
	idx := slices.IndexFunc(t.rows, func(a domain.Address) bool { return a.ID == id })
	if idx < 0 {
		return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
	}
	t.rows = slices.Delete(t.rows, idx, idx+1)
	return nil
}

func (t *memoryTx) DemoteDefault(_ context.Context, exceptID string) error {
	for i := range t.rows {
		if t.rows[i].ID != exceptID {
			t.rows[i].IsDefault = false
		}
	}
	return nil
}

func (t *memoryTx) DemoteCurrent(_ context.Context, exceptID string) error {
	for i := range t.rows {
		if t.rows[i].ID != exceptID {
			t.rows[i].IsCurrent = false
		}
	}
	return nil
}
