package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/orders"
)

var tracer = otel.Tracer("checkout/orchestrator")

// Cart is the cart subsystem as seen by checkout. cart.Client satisfies it.
type Cart interface {
	CheckoutItems(ctx context.Context, customerID string) (domain.CartSnapshot, error)
	Clear(ctx context.Context, customerID string, itemIDs []string) error
}

// Addresses is satisfied by addresses.Service.
type Addresses interface {
	List(ctx context.Context, customerID string) ([]domain.Address, error)
	Get(ctx context.Context, customerID, id string) (*domain.Address, error)
	SetCurrent(ctx context.Context, customerID, id string) error
}

// Orders is satisfied by orders.Coordinator.
type Orders interface {
	ComputeTotals(items []domain.OrderItem, discount decimal.Decimal) (orders.Totals, error)
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*domain.Order, error)
	RetryPayment(ctx context.Context, customerID, orderID string, method domain.PaymentMethod, detail string) (*domain.Order, error)
	Cancel(ctx context.Context, customerID, orderID string) (*domain.Order, error)
}

type Orchestrator struct {
	sessions  *SessionStore
	cart      Cart
	addresses Addresses
	orders    Orders
	logger    *slog.Logger
	now       func() time.Time

	confirmations metric.Int64Counter
}

func NewOrchestrator(sessions *SessionStore, cart Cart, addresses Addresses, coordinator Orders, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		sessions:  sessions,
		cart:      cart,
		addresses: addresses,
		orders:    coordinator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}

	var err error
	o.confirmations, err = otel.Meter("checkout/orchestrator").Int64Counter("checkout.confirmations",
		metric.WithDescription("Checkout confirmations, by outcome"))
	if err != nil {
		logger.Error("failed to create checkout.confirmations counter", "error", err)
		o.confirmations = noop.Int64Counter{}
	}

	return o
}

// Begin starts a session at address selection. The cart and the address book
// are loaded concurrently. An empty cart fails with domain.ErrEmptyCart and no
// session is created.
func (o *Orchestrator) Begin(ctx context.Context, customerID string) (*View, error) {
	ctx, span := tracer.Start(ctx, "checkout.Begin", trace.WithAttributes(
		attribute.String("customer.id", customerID),
	))
	defer span.End()

	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	var snapshot domain.CartSnapshot
	var addrs []domain.Address

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = o.cart.CheckoutItems(gctx, customerID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		addrs, err = o.addresses.List(gctx, customerID)
		if err != nil {
			return fmt.Errorf("load addresses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(snapshot.Items) == 0 {
		o.logger.Info("checkout refused for empty cart", "customer_id", customerID)
		return nil, domain.ErrEmptyCart
	}

	now := o.now()
	s := &Session{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Step:       StepAddressSelection,
		Cart:       snapshot,
		Addresses:  addrs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := o.preselect(ctx, s); err != nil {
		return nil, err
	}

	o.sessions.Add(s)
	span.SetAttributes(attribute.String("checkout.session_id", s.ID))
	o.logger.Info("checkout started", "session_id", s.ID, "customer_id", customerID,
		"items", len(snapshot.Items), "addresses", len(addrs), "selected_address_id", s.SelectedAddressID)

	return o.view(s), nil
}

// SelectAddress writes the choice through to the address book as the current
// address before recording it on the session.
func (o *Orchestrator) SelectAddress(ctx context.Context, customerID, sessionID, addressID string) (*View, error) {
	return o.update(customerID, sessionID, func(s *Session) error {
		if s.Step != StepAddressSelection {
			return stepError(s.Step, "select an address")
		}
		if addressID == "" {
			return domain.NewValidationError("address_id", "is required")
		}

		if err := o.addresses.SetCurrent(ctx, customerID, addressID); err != nil {
			return err
		}

		addrs, err := o.addresses.List(ctx, customerID)
		if err != nil {
			return fmt.Errorf("reload addresses: %w", err)
		}
		s.Addresses = addrs
		s.SelectedAddressID = addressID

		o.logger.Info("checkout address selected", "session_id", s.ID, "address_id", addressID)
		return nil
	})
}

// RefreshAddresses reloads the address book, e.g. after the customer added an
// address mid-checkout. A selection that no longer exists is replaced.
func (o *Orchestrator) RefreshAddresses(ctx context.Context, customerID, sessionID string) (*View, error) {
	return o.update(customerID, sessionID, func(s *Session) error {
		if s.Step == StepCompleted {
			return stepError(s.Step, "refresh addresses")
		}

		addrs, err := o.addresses.List(ctx, customerID)
		if err != nil {
			return fmt.Errorf("reload addresses: %w", err)
		}
		s.Addresses = addrs

		if s.selectedAddress() == nil {
			s.SelectedAddressID = ""
			return o.preselect(ctx, s)
		}
		return nil
	})
}

func (o *Orchestrator) Proceed(_ context.Context, customerID, sessionID string) (*View, error) {
	return o.update(customerID, sessionID, func(s *Session) error {
		if s.Step != StepAddressSelection {
			return stepError(s.Step, "proceed to payment")
		}
		if s.selectedAddress() == nil {
			return domain.NewValidationError("address_id", "select a delivery address first")
		}

		s.Step = StepPayment
		return nil
	})
}

// Back returns from payment to address selection keeping the selection.
func (o *Orchestrator) Back(_ context.Context, customerID, sessionID string) (*View, error) {
	return o.update(customerID, sessionID, func(s *Session) error {
		if s.Step != StepPayment {
			return stepError(s.Step, "go back")
		}

		s.Step = StepAddressSelection
		return nil
	})
}

func (o *Orchestrator) SelectPayment(_ context.Context, customerID, sessionID string, method domain.PaymentMethod, detail string) (*View, error) {
	return o.update(customerID, sessionID, func(s *Session) error {
		if s.Step != StepPayment {
			return stepError(s.Step, "select a payment method")
		}
		if !method.Valid() {
			return domain.NewValidationError("payment_method", "unsupported method "+string(method))
		}

		s.PaymentMethod = method
		s.PaymentDetail = detail
		return nil
	})
}

// Confirm places the order, or retries payment on the order placed by an
// earlier failed confirm. On payment failure the session stays at payment and
// the order is returned with a *domain.PaymentError. On success the checked
// out cart items are cleared and the session completes.
func (o *Orchestrator) Confirm(ctx context.Context, customerID, sessionID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.Confirm", trace.WithAttributes(
		attribute.String("checkout.session_id", sessionID),
	))
	defer span.End()

	s, release, err := o.sessions.Acquire(customerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := o.confirm(ctx, s)
	s.UpdatedAt = o.now()

	outcome := "paid"
	var paymentErr *domain.PaymentError
	switch {
	case errors.As(err, &paymentErr):
		outcome = "payment_failed"
		s.LastError = paymentErr.Reason
	case err != nil:
		outcome = "error"
		s.LastError = err.Error()
	default:
		s.LastError = ""
	}
	o.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return order, err
}

func (o *Orchestrator) confirm(ctx context.Context, s *Session) (*domain.Order, error) {
	if s.Step != StepPayment {
		return nil, stepError(s.Step, "confirm")
	}
	if s.PaymentMethod == "" {
		return nil, domain.NewValidationError("payment_method", "select a payment method first")
	}
	if err := orders.ValidatePayment(s.PaymentMethod, s.PaymentDetail); err != nil {
		return nil, err
	}

	addr, err := o.addresses.Get(ctx, s.CustomerID, s.SelectedAddressID)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	switch {
	case s.OrderID != "" && s.OrderAddressID == addr.ID:
		o.logger.Info("retrying checkout payment", "session_id", s.ID, "order_id", s.OrderID)
		order, err = o.orders.RetryPayment(ctx, s.CustomerID, s.OrderID, s.PaymentMethod, s.PaymentDetail)
	default:
		if s.OrderID != "" {
			// The selection moved after a failed payment.
			if _, cancelErr := o.orders.Cancel(ctx, s.CustomerID, s.OrderID); cancelErr != nil {
				return nil, fmt.Errorf("cancel order %s: %w", s.OrderID, cancelErr)
			}
			o.logger.Info("cancelled order after address change", "session_id", s.ID, "order_id", s.OrderID)
			s.OrderID = ""
			s.OrderAddressID = ""
			s.Attempt++
		}

		order, err = o.orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
			CustomerID:     s.CustomerID,
			IdempotencyKey: s.idempotencyKey(),
			Items:          s.Cart.OrderItems(),
			Shipping:       addr.Shipping(),
			Discount:       s.Cart.Discount,
			Method:         s.PaymentMethod,
			Detail:         s.PaymentDetail,
		})
		if order != nil {
			s.OrderID = order.ID
			s.OrderAddressID = addr.ID
		}
	}

	if err != nil {
		return order, err
	}

	if clearErr := o.cart.Clear(ctx, s.CustomerID, s.Cart.ItemIDs()); clearErr != nil {
		o.logger.Error("failed to clear cart after checkout", "error", clearErr, "session_id", s.ID,
			"order_id", order.ID)
	}

	s.Step = StepCompleted
	o.logger.Info("checkout completed", "session_id", s.ID, "order_id", order.ID,
		"order_number", order.OrderNumber, "customer_id", s.CustomerID)
	return order, nil
}

// Cancel discards the session. Orders already placed are not touched.
func (o *Orchestrator) Cancel(_ context.Context, customerID, sessionID string) error {
	_, release, err := o.sessions.Acquire(customerID, sessionID)
	if err != nil {
		return err
	}
	defer release()

	o.sessions.Delete(sessionID)
	o.logger.Info("checkout cancelled", "session_id", sessionID, "customer_id", customerID)
	return nil
}

func (o *Orchestrator) Get(_ context.Context, customerID, sessionID string) (*View, error) {
	s, release, err := o.sessions.Acquire(customerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.view(s), nil
}

func (o *Orchestrator) update(customerID, sessionID string, fn func(s *Session) error) (*View, error) {
	s, release, err := o.sessions.Acquire(customerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := fn(s); err != nil {
		s.LastError = err.Error()
		return nil, err
	}

	s.LastError = ""
	s.UpdatedAt = o.now()
	return o.view(s), nil
}

// preselect picks the current address, falling back to the first one. The
// fall-back is written through as the current address.
func (o *Orchestrator) preselect(ctx context.Context, s *Session) error {
	for _, addr := range s.Addresses {
		if addr.IsCurrent {
			s.SelectedAddressID = addr.ID
			return nil
		}
	}

	if len(s.Addresses) == 0 {
		return nil
	}

	first := s.Addresses[0].ID
	if err := o.addresses.SetCurrent(ctx, s.CustomerID, first); err != nil {
		return fmt.Errorf("set current address: %w", err)
	}
	s.SelectedAddressID = first

	addrs, err := o.addresses.List(ctx, s.CustomerID)
	if err != nil {
		return fmt.Errorf("reload addresses: %w", err)
	}
	s.Addresses = addrs

	o.logger.Info("current address repaired", "session_id", s.ID, "address_id", first)
	return nil
}

func (o *Orchestrator) view(s *Session) *View {
	v := &View{
		ID:                s.ID,
		Step:              s.Step,
		Items:             s.Cart.Items,
		Addresses:         s.Addresses,
		SelectedAddressID: s.SelectedAddressID,
		PaymentMethod:     s.PaymentMethod,
		OrderID:           s.OrderID,
		LastError:         s.LastError,
		UpdatedAt:         s.UpdatedAt,
	}
	if v.Addresses == nil {
		v.Addresses = []domain.Address{}
	}

	if totals, err := o.orders.ComputeTotals(s.Cart.OrderItems(), s.Cart.Discount); err == nil {
		v.Totals = &totals
	}

	if s.Step == StepCompleted {
		v.Redirect = "/orders/" + s.OrderID
	}
	return v
}

func stepError(step Step, action string) error {
	return fmt.Errorf("cannot %s at step %s: %w", action, step, domain.ErrInvalidStep)
}
