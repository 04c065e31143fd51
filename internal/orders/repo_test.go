package orders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrderID    = "3f0c6a3e-8b1d-4a53-9d7a-2f4f1b1e0c11"
	missingOrderID = "9b2d7c41-0e6f-4c8a-b5d3-7a1e2f3c4d55"
)

var orderCols = []string{
	"id", "customer_id", "customer_name", "customer_phone", "customer_email",
	"special_instructions", "street", "city", "state", "pincode", "landmark",
	"vendor_ids", "total_amount", "currency", "status",
	"created_at", "estimated_delivery_at", "updated_at",
	"gateway_payment_id", "gateway_order_id", "signature", "amount", "currency", "status", "paid_at",
}

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleOrder(t *testing.T) *Order {
	o := newPendingOrder(t, NewMemoryRepository())
	o.ID = testOrderID
	return o
}

func TestPostgresRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	o := sampleOrder(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(append([]any{testOrderID, "cust-1"}, anyArgs(16)...)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(testOrderID, 0, "p-thali", "Veg Thali", 2, int64(60), "A", "Annapurna").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(testOrderID, 1, "p-lassi", "Lassi", 1, int64(50), "B", "Bombay Dairy").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO payment_receipts").
		WithArgs(append([]any{o.Receipt.GatewayPaymentID, testOrderID}, anyArgs(6)...)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveDuplicatePayment(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	o := sampleOrder(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WithArgs(anyArgs(18)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").WithArgs(anyArgs(8)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").WithArgs(anyArgs(8)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO payment_receipts").WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payment_receipts_pkey"})
	mock.ExpectRollback()

	err := repo.Save(context.Background(), o)
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveDuplicateOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WithArgs(anyArgs(18)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"})
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleOrder(t))
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindByID(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders o JOIN payment_receipts r ON r.order_id = o.id WHERE o.id = $1")).
		WithArgs(testOrderID).
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(
			testOrderID, "cust-1", "Asha", "9876543210", "asha@example.com",
			"", "12 MG Road", "Pune", "MH", "411001", "",
			[]string{"A", "B"}, int64(210), "INR", "confirmed",
			now, now.Add(30*time.Minute), now,
			"pay_1", "order_1", "sig", int64(210), "INR", "success", now,
		))
	mock.ExpectQuery("SELECT product_id, product_name").
		WithArgs(testOrderID).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "product_name", "quantity", "price", "vendor_id", "vendor_name"}).
			AddRow("p-thali", "Veg Thali", 2, int64(60), "A", "Annapurna").
			AddRow("p-lassi", "Lassi", 1, int64(50), "B", "Bombay Dairy"))

	o, err := repo.FindByID(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, []string{"A", "B"}, o.VendorIDs)
	assert.Equal(t, int64(210), o.TotalAmount)
	assert.Equal(t, "pay_1", o.Receipt.GatewayPaymentID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Lassi", o.Items[1].ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindByIDMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("FROM orders o").WithArgs(missingOrderID).WillReturnRows(pgxmock.NewRows(orderCols))

	_, err := repo.FindByID(context.Background(), missingOrderID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListBuildsFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE $1 = ANY(o.vendor_ids) AND o.status = $2 ORDER BY o.created_at DESC")).
		WithArgs("A", "pending").
		WillReturnRows(pgxmock.NewRows(orderCols))

	out, err := repo.List(context.Background(), Filter{VendorID: "A", Status: StatusPending})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id=$1 FOR UPDATE")).
		WithArgs(testOrderID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(testOrderID, "confirmed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), testOrderID, StatusPending, StatusConfirmed, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateStatusConflict(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(testOrderID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("cancelled"))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), testOrderID, StatusPending, StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateStatusMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(missingOrderID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), missingOrderID, StatusPending, StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MalformedIDIsNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	_, err := repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.UpdateStatus(context.Background(), "abc", StatusPending, StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	// tidak ada query yang sampai ke database
	assert.NoError(t, mock.ExpectationsWereMet())
}
