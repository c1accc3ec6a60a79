// Package orders places orders and runs their payment. Order creation and
// payment are two separately committed steps: an order survives a failed
// payment and payment can be retried against it.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/payment"
)

var tracer = otel.Tracer("orders/coordinator")

// EventPublisher is satisfied by messaging.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type PlaceOrderRequest struct {
	CustomerID string
	// IdempotencyKey is optional. A repeated request with the same key
	// returns the order created by the first one.
	IdempotencyKey string
	Items          []domain.OrderItem
	Shipping       domain.ShippingAddress
	Discount       decimal.Decimal
	Method         domain.PaymentMethod
	Detail         string
}

type Coordinator struct {
	store    Store
	provider payment.Provider
	pricing  config.Pricing
	placed   EventPublisher
	settled  EventPublisher
	logger   *slog.Logger
	now      func() time.Time

	ordersPlaced    metric.Int64Counter
	paymentsSettled metric.Int64Counter
}

type Option func(*Coordinator)

// WithPublishers sets the producers for order placed and payment settled
// events. Either may be nil.
func WithPublishers(placed, settled EventPublisher) Option {
	return func(c *Coordinator) {
		c.placed = placed
		c.settled = settled
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(store Store, provider payment.Provider, pricing config.Pricing, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		provider: provider,
		pricing:  pricing,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(c)
	}

	meter := otel.Meter("orders/coordinator")
	var err error
	c.ordersPlaced, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders created, by final payment status"))
	if err != nil {
		logger.Error("failed to create orders.placed counter", "error", err)
		c.ordersPlaced = noop.Int64Counter{}
	}
	c.paymentsSettled, err = meter.Int64Counter("orders.payments.settled",
		metric.WithDescription("Payment attempts settled, by method and state"))
	if err != nil {
		logger.Error("failed to create orders.payments.settled counter", "error", err)
		c.paymentsSettled = noop.Int64Counter{}
	}

	return c
}

func (c *Coordinator) ComputeTotals(items []domain.OrderItem, discount decimal.Decimal) (Totals, error) {
	return ComputeTotals(items, discount, c.pricing)
}

// PlaceOrder creates the order and then attempts payment once. When payment
// fails the order is returned together with a *domain.PaymentError.
func (c *Coordinator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.String("payment.method", string(req.Method)),
	))
	defer span.End()

	if req.CustomerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := ValidatePayment(req.Method, req.Detail); err != nil {
		return nil, err
	}
	if req.Shipping.AddressID == "" && req.Shipping.Street == "" {
		return nil, domain.NewValidationError("shipping_address", "is required")
	}

	totals, err := c.ComputeTotals(req.Items, req.Discount)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := c.store.GetByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
		if existing != nil {
			return c.replay(span, existing)
		}
	}

	now := c.now()
	order := &domain.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(now),
		CustomerID:      req.CustomerID,
		IdempotencyKey:  req.IdempotencyKey,
		Items:           append([]domain.OrderItem(nil), req.Items...),
		ShippingAddress: req.Shipping,
		PaymentMethod:   req.Method,
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.Tax,
		ShippingCharge:  totals.Shipping,
		DiscountAmount:  totals.Discount,
		TotalAmount:     totals.Total,
		Currency:        totals.Currency,
		PaymentStatus:   domain.PaymentStatusPending,
		Status:          domain.OrderStatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.store.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			existing, getErr := c.store.GetByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
			if getErr != nil || existing == nil {
				return nil, fmt.Errorf("load order for idempotency key: %w", errors.Join(err, getErr))
			}
			return c.replay(span, existing)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create order: %w", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	c.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber,
		"customer_id", order.CustomerID, "total", order.TotalAmount)
	c.publish(ctx, c.placed, order.ID, domain.OrderPlacedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Items:       order.Items,
		Total:       order.TotalAmount,
		Currency:    order.Currency,
		Timestamp:   order.CreatedAt,
	})

	payErr := c.pay(ctx, order, req.Method, req.Detail, domain.PaymentStatusPending)
	c.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_status", string(order.PaymentStatus))))

	if payErr != nil {
		span.RecordError(payErr)
		span.SetStatus(codes.Error, payErr.Error())
	}
	return order, payErr
}

// RetryPayment attempts payment again on an order whose last attempt failed.
func (c *Coordinator) RetryPayment(ctx context.Context, customerID, orderID string, method domain.PaymentMethod, detail string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.RetryPayment", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("payment.method", string(method)),
	))
	defer span.End()

	if err := ValidatePayment(method, detail); err != nil {
		return nil, err
	}

	order, err := c.Get(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusCreated || order.PaymentStatus != domain.PaymentStatusFailed {
		return nil, fmt.Errorf("order %s has status %s and payment status %s: %w",
			order.ID, order.Status, order.PaymentStatus, domain.ErrConflict)
	}

	c.logger.Info("retrying payment", "order_id", order.ID, "method", method)
	if err := c.pay(ctx, order, method, detail, domain.PaymentStatusFailed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return order, err
	}
	return order, nil
}

// Cancel abandons an order whose payment failed. Paid orders cannot be
// cancelled here.
func (c *Coordinator) Cancel(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	order, err := c.Get(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	ok, err := c.store.Cancel(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("order %s has status %s and payment status %s: %w",
			order.ID, order.Status, order.PaymentStatus, domain.ErrConflict)
	}

	c.logger.Info("order cancelled", "order_id", order.ID, "customer_id", customerID)
	return c.Get(ctx, customerID, orderID)
}

func (c *Coordinator) Get(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	order, err := c.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.CustomerID != customerID {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return order, nil
}

func (c *Coordinator) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	orders, err := c.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// pay records a pending attempt, charges the provider and settles the
// outcome. Provider errors count as a failed payment and are not retried.
func (c *Coordinator) pay(ctx context.Context, order *domain.Order, method domain.PaymentMethod, detail string, from domain.PaymentStatus) error {
	now := c.now()
	p := domain.Payment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Method:    method,
		Amount:    order.TotalAmount,
		State:     domain.PaymentStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ok, err := c.store.BeginPayment(ctx, &p, from)
	if err != nil {
		return fmt.Errorf("begin payment: %w", err)
	}
	if !ok {
		return fmt.Errorf("order %s is not awaiting payment: %w", order.ID, domain.ErrConflict)
	}
	order.PaymentStatus = domain.PaymentStatusPending
	order.PaymentMethod = method

	result, chargeErr := c.provider.Charge(ctx, payment.ChargeRequest{
		PaymentID: p.ID,
		OrderID:   order.ID,
		Method:    method,
		Detail:    detail,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
	})

	switch {
	case chargeErr != nil:
		p.State = domain.PaymentStateFailed
		p.FailureReason = "payment provider unavailable"
	case !result.Success:
		p.State = domain.PaymentStateFailed
		p.FailureReason = result.Reason
		if p.FailureReason == "" {
			p.FailureReason = "payment declined"
		}
	default:
		p.State = domain.PaymentStateSucceeded
		p.ProviderReference = result.Reference
	}
	p.UpdatedAt = c.now()

	// The charge already happened; record it even if the caller went away.
	if err := c.store.SettlePayment(context.WithoutCancel(ctx), &p); err != nil {
		c.logger.Error("failed to settle payment", "error", err, "order_id", order.ID, "payment_id", p.ID,
			"state", p.State)
		return fmt.Errorf("settle payment: %w", err)
	}

	order.PaymentStatus, order.Status = orderStatusAfter(p.State)
	order.UpdatedAt = p.UpdatedAt
	order.Payments = append(order.Payments, p)
	c.paymentsSettled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("state", string(p.State)),
	))

	c.publish(ctx, c.settled, order.ID, domain.PaymentSettledEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		PaymentID:   p.ID,
		Method:      method,
		Amount:      p.Amount,
		Currency:    order.Currency,
		State:       p.State,
		Reference:   p.ProviderReference,
		Reason:      p.FailureReason,
		Timestamp:   p.UpdatedAt,
	})

	if p.State == domain.PaymentStateFailed {
		c.logger.Warn("payment failed", "order_id", order.ID, "payment_id", p.ID, "method", method,
			"reason", p.FailureReason, "error", chargeErr)
		return &domain.PaymentError{OrderID: order.ID, Reason: p.FailureReason, Err: chargeErr}
	}

	c.logger.Info("payment succeeded", "order_id", order.ID, "payment_id", p.ID, "method", method,
		"reference", p.ProviderReference)
	return nil
}

// replay answers a repeated placement with the stored order, signalling a
// failed payment the same way the first call did.
func (c *Coordinator) replay(span trace.Span, order *domain.Order) (*domain.Order, error) {
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Bool("order.replayed", true))
	c.logger.Info("order replayed for idempotency key", "order_id", order.ID, "customer_id", order.CustomerID)

	switch order.PaymentStatus {
	case domain.PaymentStatusFailed:
		reason := "payment failed"
		if n := len(order.Payments); n > 0 && order.Payments[n-1].FailureReason != "" {
			reason = order.Payments[n-1].FailureReason
		}
		return order, &domain.PaymentError{OrderID: order.ID, Reason: reason}
	case domain.PaymentStatusPending:
		// The first request for this key is still charging.
		return order, fmt.Errorf("order %s payment in progress: %w", order.ID, domain.ErrConflict)
	}
	return order, nil
}

func (c *Coordinator) publish(ctx context.Context, publisher EventPublisher, key string, event any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, key, event); err != nil {
		c.logger.Error("failed to publish event", "error", err, "order_id", key)
	}
}

// ValidatePayment checks that a method is supported and that UPI methods carry
// a UPI id.
func ValidatePayment(method domain.PaymentMethod, detail string) error {
	if method == "" {
		return domain.NewValidationError("payment_method", "is required")
	}
	if !method.Valid() {
		return domain.NewValidationError("payment_method", "unsupported method "+string(method))
	}
	if method.IsUPI() && strings.TrimSpace(detail) == "" {
		return domain.NewValidationError("payment_detail", "upi id is required")
	}
	return nil
}

// newOrderNumber formats ORD-YYYYMMDD-XXXXXXXX.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "ORD-" + now.Format("20060102") + "-" + suffix
}
