package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// UpdateStatus lock baris order (FOR UPDATE) -> cek status lama -> update.
// Kalau status sudah berubah oleh request lain, tidak ada yang di-commit.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if Status(current) != from {
		return ErrStatusConflict
	}

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(to), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrStatusConflict
	}
	return tx.Commit(ctx)
}
