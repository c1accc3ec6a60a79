package orders

import (
	"context"
	"errors"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// ErrDuplicateOrder is returned by Store.Create when the customer already has
// an order under the same idempotency key.
var ErrDuplicateOrder = errors.New("order already exists for idempotency key")

// Store persists orders and their payment attempts. Lookups return nil, nil
// when nothing matches.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, customerID, key string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)

	// BeginPayment records a pending attempt and moves the order's payment
	// status from `from` to pending. It reports false, without writing, when
	// the order is not in status created with payment status `from`.
	BeginPayment(ctx context.Context, p *domain.Payment, from domain.PaymentStatus) (bool, error)

	// SettlePayment stores the outcome of a pending attempt and applies it to
	// the order: succeeded makes it paid and confirmed, failed makes it failed.
	SettlePayment(ctx context.Context, p *domain.Payment) error

	// Cancel moves an order with status created and payment status failed to
	// cancelled. It reports false when the order is in any other state.
	Cancel(ctx context.Context, id string) (bool, error)
}

func orderStatusAfter(state domain.PaymentState) (domain.PaymentStatus, domain.OrderStatus) {
	if state == domain.PaymentStateSucceeded {
		return domain.PaymentStatusPaid, domain.OrderStatusConfirmed
	}
	return domain.PaymentStatusFailed, domain.OrderStatusCreated
}
