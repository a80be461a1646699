package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/guregu/null.v4"

	"vapi/internal/domain/entities"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Put(ctx context.Context, s *entities.ParkingSession) error {
	var endTs null.Int
	if s.EndTs.Valid {
		endTs = null.IntFrom(s.EndTs.Time.UnixNano())
	}

	query := r.db.rebind(`INSERT INTO parking_sessions (user_id, start_ts, car_lat, car_lng, note, end_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, start_ts) DO UPDATE SET
			car_lat = excluded.car_lat,
			car_lng = excluded.car_lng,
			note = excluded.note,
			end_ts = excluded.end_ts`)

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, entities.FormatSortKey(s.StartTs), s.CarLat, s.CarLng, s.Note, endTs)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", s.ID(), err)
	}
	return nil
}

func (r *SessionRepository) FindOpen(ctx context.Context, userID string) (*entities.ParkingSession, error) {
	query := r.db.rebind(`SELECT start_ts, car_lat, car_lng, note FROM parking_sessions
		WHERE user_id = ? AND end_ts IS NULL
		ORDER BY start_ts DESC
		LIMIT 1`)

	var (
		startTs string
		s       = entities.ParkingSession{UserID: userID}
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&startTs, &s.CarLat, &s.CarLng, &s.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}

	s.StartTs, err = entities.ParseSortKey(startTs)
	if err != nil {
		return nil, fmt.Errorf("parse session start %q: %w", startTs, err)
	}
	return &s, nil
}
