package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

const idempotencyConstraint = "orders_customer_idempotency_key"

const orderColumns = `id, order_number, customer_id, COALESCE(idempotency_key, ''), payment_method,
	subtotal, tax_amount, shipping_charge, discount_amount, total_amount, currency,
	payment_status, status,
	ship_address_id, ship_full_name, ship_mobile, ship_street, ship_city, ship_state,
	ship_postal_code, ship_country, ship_type,
	created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ship := order.ShippingAddress
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, idempotency_key, payment_method,
			subtotal, tax_amount, shipping_charge, discount_amount, total_amount, currency,
			payment_status, status,
			ship_address_id, ship_full_name, ship_mobile, ship_street, ship_city, ship_state,
			ship_postal_code, ship_country, ship_type,
			created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`, order.ID, order.OrderNumber, order.CustomerID, order.IdempotencyKey, order.PaymentMethod,
		order.Subtotal, order.TaxAmount, order.ShippingCharge, order.DiscountAmount, order.TotalAmount, order.Currency,
		order.PaymentStatus, order.Status,
		ship.AddressID, ship.FullName, ship.Mobile, ship.Street, ship.City, ship.State,
		ship.PostalCode, ship.Country, ship.Type,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == idempotencyConstraint {
			return ErrDuplicateOrder
		}
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, i, item.ProductID, item.Name, item.UnitPrice, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)
	return r.loadOne(ctx, row)
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, customerID, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1 AND idempotency_key = $2
	`, customerID, key)
	return r.loadOne(ctx, row)
}

func (r *OrderRepository) loadOne(ctx context.Context, row *sql.Row) (*domain.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	byID := map[string]*domain.Order{order.ID: order}
	if err := r.loadChildren(ctx, byID, []string{order.ID}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByCustomer loads orders newest first, with items and payments fetched
// in one query each for the whole page.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadChildren(ctx, orderMap, orderIDs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (r *OrderRepository) loadChildren(ctx context.Context, orderMap map[string]*domain.Order, orderIDs []string) error {
	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return err
	}

	paymentRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, method, amount, COALESCE(provider_reference, ''), state,
			COALESCE(failure_reason, ''), created_at, updated_at
		FROM payments
		WHERE order_id = ANY($1)
		ORDER BY order_id, created_at, id
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = paymentRows.Close() }()

	for paymentRows.Next() {
		var p domain.Payment
		if err := paymentRows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.ProviderReference, &p.State,
			&p.FailureReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		order := orderMap[p.OrderID]
		order.Payments = append(order.Payments, p)
	}

	return paymentRows.Err()
}

func (r *OrderRepository) BeginPayment(ctx context.Context, p *domain.Payment, from domain.PaymentStatus) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, payment_method = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND payment_status = $6
	`, domain.PaymentStatusPending, p.Method, p.CreatedAt, p.OrderID, domain.OrderStatusCreated, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method, amount, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.OrderID, p.Method, p.Amount, p.State, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (r *OrderRepository) SettlePayment(ctx context.Context, p *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET state = $1, provider_reference = NULLIF($2, ''), failure_reason = NULLIF($3, ''), updated_at = $4
		WHERE id = $5 AND state = $6
	`, p.State, p.ProviderReference, p.FailureReason, p.UpdatedAt, p.ID, domain.PaymentStatePending)
	if err != nil {
		return err
	}
	if err := expectOneRow(result, "payment", p.ID); err != nil {
		return err
	}

	paymentStatus, status := orderStatusAfter(p.State)
	result, err = tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, status = $2, updated_at = $3
		WHERE id = $4 AND payment_status = $5
	`, paymentStatus, status, p.UpdatedAt, p.OrderID, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	if err := expectOneRow(result, "order", p.OrderID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) Cancel(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND payment_status = $5
	`, domain.OrderStatusCancelled, time.Now().UTC(), id, domain.OrderStatusCreated, domain.PaymentStatusFailed)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	ship := &order.ShippingAddress
	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.IdempotencyKey, &order.PaymentMethod,
		&order.Subtotal, &order.TaxAmount, &order.ShippingCharge, &order.DiscountAmount, &order.TotalAmount, &order.Currency,
		&order.PaymentStatus, &order.Status,
		&ship.AddressID, &ship.FullName, &ship.Mobile, &ship.Street, &ship.City, &ship.State,
		&ship.PostalCode, &ship.Country, &ship.Type,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s %s is not pending: %w", kind, id, domain.ErrConflict)
	}
	return nil
}
