package addresses

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

const addressColumns = `id, customer_id, full_name, mobile, street, city, state, postal_code, country,
	address_type, is_default, is_current, created_at, updated_at`

type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	return listAddresses(ctx, r.db, customerID)
}

func (r *AddressRepository) Get(ctx context.Context, customerID, id string) (*domain.Address, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE id = $1 AND customer_id = $2
	`, id, customerID)

	addr, err := scanAddress(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return addr, nil
}

// WithinTx takes a transaction-scoped advisory lock on the customer so that
// concurrent calls for the same customer apply one after the other. The
// partial unique indexes on is_default and is_current back this up.
func (r *AddressRepository) WithinTx(ctx context.Context, customerID string, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, customerID); err != nil {
		return fmt.Errorf("lock customer addresses: %w", err)
	}

	if err := fn(&sqlTx{tx: tx, customerID: customerID}); err != nil {
		return err
	}

	return tx.Commit()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func listAddresses(ctx context.Context, q queryer, customerID string) ([]domain.Address, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE customer_id = $1
		ORDER BY created_at, id
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	addrs := []domain.Address{}
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, *addr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return addrs, nil
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	var addr domain.Address
	err := row.Scan(
		&addr.ID, &addr.CustomerID, &addr.FullName, &addr.Mobile, &addr.Street,
		&addr.City, &addr.State, &addr.PostalCode, &addr.Country, &addr.Type,
		&addr.IsDefault, &addr.IsCurrent, &addr.CreatedAt, &addr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

type sqlTx struct {
	tx         *sql.Tx
	customerID string
}

func (t *sqlTx) List(ctx context.Context) ([]domain.Address, error) {
	return listAddresses(ctx, t.tx, t.customerID)
}

func (t *sqlTx) Insert(ctx context.Context, addr *domain.Address) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO addresses (`+addressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, addr.ID, t.customerID, addr.FullName, addr.Mobile, addr.Street, addr.City, addr.State,
		addr.PostalCode, addr.Country, addr.Type, addr.IsDefault, addr.IsCurrent, addr.CreatedAt, addr.UpdatedAt)
	return err
}

func (t *sqlTx) Update(ctx context.Context, addr *domain.Address) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE addresses
		SET full_name = $3, mobile = $4, street = $5, city = $6, state = $7, postal_code = $8,
			country = $9, address_type = $10, is_default = $11, is_current = $12, updated_at = $13
		WHERE id = $1 AND customer_id = $2
	`, addr.ID, t.customerID, addr.FullName, addr.Mobile, addr.Street, addr.City, addr.State,
		addr.PostalCode, addr.Country, addr.Type, addr.IsDefault, addr.IsCurrent, addr.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOneRow(result, addr.ID)
}

func (t *sqlTx) Delete(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `
		DELETE FROM addresses
		WHERE id = $1 AND customer_id = $2
	`, id, t.customerID)
	if err != nil {
		return err
	}
	return expectOneRow(result, id)
}

func (t *sqlTx) DemoteDefault(ctx context.Context, exceptID string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE addresses SET is_default = FALSE, updated_at = NOW()
		WHERE customer_id = $1 AND is_default AND id <> $2
	`, t.customerID, exceptID)
	return err
}

func (t *sqlTx) DemoteCurrent(ctx context.Context, exceptID string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE addresses SET is_current = FALSE, updated_at = NOW()
		WHERE customer_id = $1 AND is_current AND id <> $2
	`, t.customerID, exceptID)
	return err
}

func expectOneRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("address %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
