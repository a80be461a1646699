package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// SubscriptionRegistry keeps connection → area rows in a shared table so
// every server instance sees every subscription.
type SubscriptionRegistry struct {
	db  *DB
	now func() time.Time
}

func NewSubscriptionRegistry(db *DB) *SubscriptionRegistry {
	return &SubscriptionRegistry{db: db, now: time.Now}
}

func (r *SubscriptionRegistry) Subscribe(ctx context.Context, connID, area string) error {
	query := r.db.rebind(`INSERT INTO subscriptions (conn_id, area, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (conn_id) DO UPDATE SET area = excluded.area, updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, connID, area, r.now().UnixNano()); err != nil {
		return fmt.Errorf("subscribe %s: %w", connID, err)
	}
	return nil
}

func (r *SubscriptionRegistry) Unsubscribe(ctx context.Context, connID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM subscriptions WHERE conn_id = ?`), connID); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", connID, err)
	}
	return nil
}

func (r *SubscriptionRegistry) ListSubscribers(ctx context.Context, area string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.rebind(`SELECT conn_id FROM subscriptions WHERE area = ? ORDER BY conn_id`), area)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	conns := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		conns = append(conns, id)
	}
	return conns, rows.Err()
}
