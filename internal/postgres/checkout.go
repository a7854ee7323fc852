package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanedge/marketplace/internal/domain/checkout"
)

var _ checkout.Store = (*CheckoutStore)(nil)

// CheckoutStore implements checkout.Store backed by PostgreSQL. CreateOrder
// is the atomic unit of the checkout transaction: stock reservation, order
// and line inserts, and cart clearing share one database transaction.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// CreateOrder persists the order, its lines, the per-line stock decrements,
// and the cart deletion in a single transaction. Any failure rolls the
// whole unit back: no order row, no line rows, no stock change, no cart
// mutation.
func (s *CheckoutStore) CreateOrder(ctx context.Context, o *checkout.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin checkout transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Reserving: one atomic check-and-decrement per line.
	for _, line := range o.Lines {
		if err := reserveStock(ctx, tx, line.ListingID, line.Quantity); err != nil {
			return err
		}
	}

	// Persisting: order header, then line snapshots.
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			order_id, customer_id,
			shipping_name, shipping_email, shipping_phone, shipping_address,
			shipping_city, shipping_state, shipping_postal_code, shipping_country,
			subtotal, shipping_cost, tax, total_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.OrderID, o.CustomerID,
		o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address,
		o.Shipping.City, o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
		o.Subtotal, o.ShippingCost, o.Tax, o.TotalAmount, o.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return checkout.ErrDuplicateOrderID
		}
		return errors.Wrapf(err, "insert order %q", o.OrderID)
	}

	for _, line := range o.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_lines (
				order_id, listing_id, listing_name, payee_id,
				unit_price, quantity, subtotal
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.OrderID, line.ListingID, line.ListingName, line.PayeeID,
			line.UnitPrice, line.Quantity, line.Subtotal)
		if err != nil {
			return errors.Wrapf(err, "insert order line for listing %q", line.ListingID)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1`, o.CustomerID); err != nil {
		return errors.Wrap(err, "clear cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit checkout transaction")
	}
	return nil
}

const orderColumns = `
	order_id, customer_id,
	shipping_name, shipping_email, shipping_phone, shipping_address,
	shipping_city, shipping_state, shipping_postal_code, shipping_country,
	subtotal, shipping_cost, tax, total_amount, status, created_at, updated_at`

// GetByOrderID returns an order with its lines, or checkout.ErrNotFound.
func (s *CheckoutStore) GetByOrderID(ctx context.Context, orderID string) (*checkout.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE order_id = $1`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT listing_id, listing_name, payee_id, unit_price, quantity, subtotal
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list lines for order %q", orderID)
	}
	defer rows.Close()

	for rows.Next() {
		var line checkout.Line
		if err := rows.Scan(&line.ListingID, &line.ListingName, &line.PayeeID,
			&line.UnitPrice, &line.Quantity, &line.Subtotal); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order lines")
	}

	return o, nil
}

// ListByCustomer returns the customer's order headers, newest first.
func (s *CheckoutStore) ListByCustomer(ctx context.Context, customerID string) ([]checkout.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []checkout.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return out, nil
}

// UpdateStatus moves an order to a new status.
func (s *CheckoutStore) UpdateStatus(ctx context.Context, orderID string, status checkout.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE order_id = $1`,
		orderID, status)
	if err != nil {
		return errors.Wrapf(err, "update status of order %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return checkout.ErrNotFound
	}
	return nil
}

// AttachShipment records (or updates) the shipment linked to an order.
func (s *CheckoutStore) AttachShipment(ctx context.Context, sh *checkout.Shipment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shipments (order_id, tracking_number, carrier, shipped_at, estimated_delivery, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET
			tracking_number = EXCLUDED.tracking_number,
			carrier = EXCLUDED.carrier,
			shipped_at = EXCLUDED.shipped_at,
			estimated_delivery = EXCLUDED.estimated_delivery,
			delivered_at = EXCLUDED.delivered_at`,
		sh.OrderID, sh.TrackingNumber, sh.Carrier,
		sh.ShippedAt, sh.EstimatedDelivery, sh.DeliveredAt)
	if err != nil {
		return errors.Wrapf(err, "attach shipment to order %q", sh.OrderID)
	}
	return nil
}

func scanOrder(row pgx.Row) (*checkout.Order, error) {
	var o checkout.Order
	err := row.Scan(
		&o.OrderID, &o.CustomerID,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.TotalAmount, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
