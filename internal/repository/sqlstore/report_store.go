package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"

	"vapi/internal/domain/entities"
)

// ReportStore persists reports in the reports table. Timestamps are stored
// as Unix nanoseconds; the sort key column keeps the fixed-width text form
// so "ORDER BY pk, sk" is creation order within a partition.
type ReportStore struct {
	db *DB
}

func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

const reportColumns = `cell, side, lat, lng, count_bucket, user_id, confidence, expires_at, source, created_at`

func (s *ReportStore) Put(ctx context.Context, r *entities.ParkingReport) error {
	query := s.db.rebind(`INSERT INTO reports (pk, sk, ` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		r.PartitionKey(), r.SortKey(),
		r.Cell, string(r.Side), r.Lat, r.Lng, string(r.CountBucket),
		null.NewString(r.UserID, r.UserID != ""),
		r.Confidence, r.ExpiresAt.UnixNano(), string(r.Source), r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID(), err)
	}
	return nil
}

func (s *ReportStore) QueryByPrefix(ctx context.Context, prefix string) ([]*entities.ParkingReport, error) {
	query := s.db.rebind(`SELECT ` + reportColumns + ` FROM reports
		WHERE pk LIKE ? ESCAPE '\'
		ORDER BY pk, sk`)
	return s.query(ctx, query, escapeLike(prefix)+"%")
}

func (s *ReportStore) QueryByUserSince(ctx context.Context, userID string, since time.Time) ([]*entities.ParkingReport, error) {
	query := s.db.rebind(`SELECT ` + reportColumns + ` FROM reports
		WHERE user_id = ? AND created_at > ?
		ORDER BY created_at`)
	return s.query(ctx, query, userID, since.UnixNano())
}

// PurgeExpired deletes reports that expired before now.
func (s *ReportStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.rebind(`DELETE FROM reports WHERE expires_at < ?`), now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired reports: %w", err)
	}
	return res.RowsAffected()
}

func (s *ReportStore) query(ctx context.Context, query string, args ...any) ([]*entities.ParkingReport, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*entities.ParkingReport
	for rows.Next() {
		var (
			r                    entities.ParkingReport
			side, bucket, source string
			userID               null.String
			expiresAt, createdAt int64
		)
		if err := rows.Scan(&r.Cell, &side, &r.Lat, &r.Lng, &bucket, &userID,
			&r.Confidence, &expiresAt, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.Side = entities.Side(side)
		r.CountBucket = entities.CountBucket(bucket)
		r.Source = entities.ReportSource(source)
		r.UserID = userID.String
		r.ExpiresAt = time.Unix(0, expiresAt).UTC()
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
