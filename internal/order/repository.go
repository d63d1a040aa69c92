package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-eats-be/internal/payment"

	"github.com/lib/pq"
)

// UpdateFunc mutates o in place and reports whether anything changed. It runs
// while the store holds the lock for o's id.
type UpdateFunc func(o *Order) (changed bool, err error)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error)
}

const defaultListLimit = 100

const uniqueViolation = "23505"

const orderColumns = `
	id, total, customer_name, room, phone, instructions, customer_email,
	payment_method, status, payment_status, provider_payment_id,
	COALESCE(idempotency_key, ''), created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var key sql.NullString
	if o.IdempotencyKey != "" {
		key = sql.NullString{String: o.IdempotencyKey, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, total, customer_name, room, phone, instructions, customer_email,
			payment_method, status, payment_status, provider_payment_id,
			idempotency_key, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		o.ID,
		o.Total,
		o.DeliveryDetails.Name,
		o.DeliveryDetails.Room,
		o.DeliveryDetails.Phone,
		o.DeliveryDetails.Instructions,
		o.CustomerEmail,
		o.PaymentMethod,
		o.Status,
		o.PaymentStatus,
		o.ProviderPaymentID,
		key,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && key.Valid {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, item_id, name, unit_price, quantity
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			o.ID,
			i,
			item.ItemID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.getOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.getOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *repository) getOne(ctx context.Context, q queryer, query string, arg any) (*Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.fetchItems(ctx, q, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *repository) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != nil {
		args = append(args, *filter.PaymentStatus)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		orders []*Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []*Order{}, nil
	}

	items, err := r.fetchItems(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, nil
}

// Update locks the order row for the duration of fn, so concurrent updates
// of the same order serialize while other orders are unaffected.
func (r *repository) Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := r.getOne(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	changed, err := fn(o)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
			payment_status = $3,
			provider_payment_id = $4,
			updated_at = $5
		WHERE id = $1
	`, o.ID, o.Status, o.PaymentStatus, o.ProviderPaymentID, o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) fetchItems(ctx context.Context, q queryer, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, item_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      OrderItem
		)
		if err := rows.Scan(&orderID, &it.ItemID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o             Order
		status        string
		paymentStatus string
		method        string
		createdAt     time.Time
		updatedAt     time.Time
	)
	err := row.Scan(
		&o.ID,
		&o.Total,
		&o.DeliveryDetails.Name,
		&o.DeliveryDetails.Room,
		&o.DeliveryDetails.Phone,
		&o.DeliveryDetails.Instructions,
		&o.CustomerEmail,
		&method,
		&status,
		&paymentStatus,
		&o.ProviderPaymentID,
		&o.IdempotencyKey,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = PaymentMethod(method)
	o.Status = OrderStatus(status)
	o.PaymentStatus = payment.Status(paymentStatus)
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return &o, nil
}
