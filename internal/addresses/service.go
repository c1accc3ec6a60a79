package addresses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// PostalLookup resolves a postal code to city, state and country.
type PostalLookup interface {
	Lookup(ctx context.Context, postalCode string) (domain.Place, error)
}

type Service struct {
	store  Store
	postal PostalLookup
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the address service. postal may be nil, in which case
// city, state and country must always be supplied by the caller.
func NewService(store Store, postal PostalLookup, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		postal: postal,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	addrs, err := s.store.List(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	return addrs, nil
}

func (s *Service) Get(ctx context.Context, customerID, id string) (*domain.Address, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	addr, err := s.store.Get(ctx, customerID, id)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
	}
	return addr, nil
}

// Create stores a new address. The customer's first address is always made
// default and current; later ones honour the requested flags, demoting the
// previous holder in the same transaction.
func (s *Service) Create(ctx context.Context, customerID string, in AddressInput) (*domain.Address, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	in = s.fillPlace(ctx, in.normalize())
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	addr := &domain.Address{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.applyTo(addr)

	err := s.store.WithinTx(ctx, customerID, func(tx Tx) error {
		existing, err := tx.List(ctx)
		if err != nil {
			return err
		}

		if len(existing) == 0 {
			addr.IsDefault = true
			addr.IsCurrent = true
			return tx.Insert(ctx, addr)
		}

		addr.IsDefault = in.IsDefault != nil && *in.IsDefault
		addr.IsCurrent = in.IsCurrent != nil && *in.IsCurrent

		if addr.IsDefault {
			if err := tx.DemoteDefault(ctx, addr.ID); err != nil {
				return err
			}
		}
		if addr.IsCurrent {
			if err := tx.DemoteCurrent(ctx, addr.ID); err != nil {
				return err
			}
		}

		return tx.Insert(ctx, addr)
	})
	if err != nil {
		return nil, err
	}

	return addr, nil
}

// Update replaces the address fields. A nil IsDefault keeps the flag; false
// clears it without promoting another address. IsCurrent is ignored here;
// use SetCurrent.
func (s *Service) Update(ctx context.Context, customerID, id string, in AddressInput) (*domain.Address, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	in = s.fillPlace(ctx, in.normalize())
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated domain.Address
	err := s.store.WithinTx(ctx, customerID, func(tx Tx) error {
		rows, err := tx.List(ctx)
		if err != nil {
			return err
		}

		current := findAddress(rows, id)
		if current == nil {
			return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
		}

		updated = *current
		in.applyTo(&updated)
		updated.UpdatedAt = s.now()

		if in.IsDefault != nil {
			if *in.IsDefault {
				if err := tx.DemoteDefault(ctx, id); err != nil {
					return err
				}
			}
			updated.IsDefault = *in.IsDefault
		}

		return tx.Update(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *Service) SetDefault(ctx context.Context, customerID, id string) error {
	if customerID == "" {
		return domain.ErrUnauthenticated
	}

	return s.store.WithinTx(ctx, customerID, func(tx Tx) error {
		rows, err := tx.List(ctx)
		if err != nil {
			return err
		}

		target := findAddress(rows, id)
		if target == nil {
			return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
		}

		if err := tx.DemoteDefault(ctx, id); err != nil {
			return err
		}

		target.IsDefault = true
		target.UpdatedAt = s.now()
		return tx.Update(ctx, target)
	})
}

// SetCurrent binds the address to checkout. The checkout orchestrator calls
// it on every address selection.
func (s *Service) SetCurrent(ctx context.Context, customerID, id string) error {
	if customerID == "" {
		return domain.ErrUnauthenticated
	}

	return s.store.WithinTx(ctx, customerID, func(tx Tx) error {
		rows, err := tx.List(ctx)
		if err != nil {
			return err
		}

		target := findAddress(rows, id)
		if target == nil {
			return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
		}

		if err := tx.DemoteCurrent(ctx, id); err != nil {
			return err
		}

		target.IsCurrent = true
		target.UpdatedAt = s.now()
		return tx.Update(ctx, target)
	})
}

// Delete removes the address permanently. When it was the current address,
// the remaining default (or else the oldest remaining address) becomes
// current. A deleted default is not replaced.
func (s *Service) Delete(ctx context.Context, customerID, id string) error {
	if customerID == "" {
		return domain.ErrUnauthenticated
	}

	return s.store.WithinTx(ctx, customerID, func(tx Tx) error {
		rows, err := tx.List(ctx)
		if err != nil {
			return err
		}

		target := findAddress(rows, id)
		if target == nil {
			return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
		}
		wasCurrent := target.IsCurrent

		if err := tx.Delete(ctx, id); err != nil {
			return err
		}

		if !wasCurrent {
			return nil
		}

		next := pickCurrent(rows, id)
		if next == nil {
			return nil
		}

		next.IsCurrent = true
		next.UpdatedAt = s.now()
		s.logger.Debug("current address reassigned", "customer_id", customerID, "deleted_id", id, "address_id", next.ID)
		return tx.Update(ctx, next)
	})
}

func pickCurrent(rows []domain.Address, deletedID string) *domain.Address {
	var first *domain.Address
	for i := range rows {
		if rows[i].ID == deletedID {
			continue
		}
		if rows[i].IsDefault {
			return &rows[i]
		}
		if first == nil {
			first = &rows[i]
		}
	}
	return first
}

// fillPlace completes blank city, state or country from the postal code.
// Lookup failures leave the input as it was.
func (s *Service) fillPlace(ctx context.Context, in AddressInput) AddressInput {
	if s.postal == nil || !in.needsPlace() || !IsPostalCode(in.PostalCode) {
		return in
	}

	place, err := s.postal.Lookup(ctx, in.PostalCode)
	if err != nil {
		s.logger.Warn("postal lookup failed", "error", err, "postal_code", in.PostalCode)
		return in
	}

	return in.withPlace(place)
}
