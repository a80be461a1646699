package sqlstore

import (
	"context"
	"fmt"
	"time"

	"vapi/internal/domain/entities"
)

type ConfirmationRepository struct {
	db *DB
}

func NewConfirmationRepository(db *DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

func (r *ConfirmationRepository) Create(ctx context.Context, c *entities.Confirmation) error {
	query := r.db.rebind(`INSERT INTO confirmations (report_id, sk, user_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query,
		c.ReportID, c.SortKey(), c.UserID, string(c.Status), c.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert confirmation: %w", err)
	}
	return nil
}

func (r *ConfirmationRepository) ListByReport(ctx context.Context, reportID string) ([]*entities.Confirmation, error) {
	query := r.db.rebind(`SELECT user_id, status, created_at FROM confirmations
		WHERE report_id = ?
		ORDER BY created_at, sk`)

	rows, err := r.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query confirmations: %w", err)
	}
	defer rows.Close()

	var out []*entities.Confirmation
	for rows.Next() {
		var (
			c         = entities.Confirmation{ReportID: reportID}
			status    string
			createdAt int64
		)
		if err := rows.Scan(&c.UserID, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		c.Status = entities.ConfirmationStatus(status)
		c.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, &c)
	}
	return out, rows.Err()
}
