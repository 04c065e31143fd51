package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool is the subset of *pgxpool.Pool the repository needs, so tests can
// substitute pgxmock.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresRepository struct {
	db DBPool
}

func NewPostgresRepository(db DBPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const pgUniqueViolation = "23505"

const orderColumns = `o.id, o.customer_id, o.customer_name, o.customer_phone, o.customer_email,
	o.special_instructions, o.street, o.city, o.state, o.pincode, o.landmark,
	o.vendor_ids, o.total_amount, o.currency, o.status,
	o.created_at, o.estimated_delivery_at, o.updated_at,
	r.gateway_payment_id, r.gateway_order_id, r.signature, r.amount, r.currency, r.status, r.paid_at`

const orderFrom = ` FROM orders o JOIN payment_receipts r ON r.order_id = o.id`

// Save writes the order, its items and its receipt in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, customer_name, customer_phone, customer_email,
			special_instructions, street, city, state, pincode, landmark,
			vendor_ids, total_amount, currency, status,
			created_at, estimated_delivery_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		o.ID, o.CustomerID, o.Customer.Name, o.Customer.Phone, o.Customer.Email,
		o.Customer.SpecialInstructions, o.DeliveryAddress.Street, o.DeliveryAddress.City,
		o.DeliveryAddress.State, o.DeliveryAddress.Pincode, o.DeliveryAddress.Landmark,
		o.VendorIDs, o.TotalAmount, o.Currency, string(o.Status),
		o.CreatedAt, o.EstimatedDeliveryAt, o.UpdatedAt,
	)
	if err != nil {
		return mapUnique(err)
	}

	for i, it := range o.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, product_name, quantity, price, vendor_id, vendor_name)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Price, it.VendorID, it.VendorName,
		); err != nil {
			return err
		}
	}

	rc := o.Receipt
	if _, err = tx.Exec(ctx, `
		INSERT INTO payment_receipts(gateway_payment_id, order_id, gateway_order_id, signature, amount, currency, status, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rc.GatewayPaymentID, o.ID, rc.GatewayOrderID, rc.Signature, rc.Amount, rc.Currency, string(rc.Status), rc.Timestamp,
	); err != nil {
		return mapUnique(err)
	}

	return tx.Commit(ctx)
}

// validID reports whether id can match the uuid primary key. Anything else
// would fail server side with a type error instead of no rows.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Order, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Order, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if f.VendorID != "" {
		args = append(args, f.VendorID)
		where = append(where, fmt.Sprintf("$%d = ANY(o.vendor_ids)", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	q := `SELECT ` + orderColumns + orderFrom
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY o.created_at DESC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// items diambil setelah rows ditutup supaya koneksi tidak dipakai dobel
	for _, o := range out {
		if o.Items, err = r.items(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresRepository) items(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, product_name, quantity, price, vendor_id, vendor_name
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.VendorID, &it.VendorName); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o             Order
		status        string
		receiptStatus string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
		&o.Customer.SpecialInstructions, &o.DeliveryAddress.Street, &o.DeliveryAddress.City,
		&o.DeliveryAddress.State, &o.DeliveryAddress.Pincode, &o.DeliveryAddress.Landmark,
		&o.VendorIDs, &o.TotalAmount, &o.Currency, &status,
		&o.CreatedAt, &o.EstimatedDeliveryAt, &o.UpdatedAt,
		&o.Receipt.GatewayPaymentID, &o.Receipt.GatewayOrderID, &o.Receipt.Signature,
		&o.Receipt.Amount, &o.Receipt.Currency, &receiptStatus, &o.Receipt.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.Receipt.Status = payment.Status(receiptStatus)
	return &o, nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "payment") {
			return ErrDuplicatePayment
		}
		return ErrAlreadyExists
	}
	return err
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
