package addresses

import (
	"context"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// Store persists addresses. Every mutation runs inside WithinTx, which
// serialises writers for one customer and commits all changes made through
// the Tx atomically.
type Store interface {
	List(ctx context.Context, customerID string) ([]domain.Address, error)
	// Get returns nil, nil when the customer has no address with that id.
	Get(ctx context.Context, customerID, id string) (*domain.Address, error)
	WithinTx(ctx context.Context, customerID string, fn func(tx Tx) error) error
}

// Tx is scoped to the customer passed to WithinTx.
type Tx interface {
	List(ctx context.Context) ([]domain.Address, error)
	Insert(ctx context.Context, addr *domain.Address) error
	Update(ctx context.Context, addr *domain.Address) error
	Delete(ctx context.Context, id string) error
	// DemoteDefault clears is_default on every address except exceptID.
	DemoteDefault(ctx context.Context, exceptID string) error
	// DemoteCurrent clears is_current on every address except exceptID.
	DemoteCurrent(ctx context.Context, exceptID string) error
}

func findAddress(rows []domain.Address, id string) *domain.Address {
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i]
		}
	}
	return nil
}
