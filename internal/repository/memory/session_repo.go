package memory

import (
	"context"
	"sync"

	"vapi/internal/domain/entities"
)

// SessionRepository stores parking sessions per user, oldest first.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*entities.ParkingSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string][]*entities.ParkingSession),
	}
}

func (r *SessionRepository) Put(ctx context.Context, session *entities.ParkingSession) error {
	stored := *session

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.sessions[stored.UserID]
	for i, s := range list {
		if s.StartTs.Equal(stored.StartTs) {
			list[i] = &stored
			return nil
		}
	}
	r.sessions[stored.UserID] = append(list, &stored)
	return nil
}

// FindOpen returns a copy of the newest open session, or (nil, nil) when
// the user has none.
func (r *SessionRepository) FindOpen(ctx context.Context, userID string) (*entities.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *entities.ParkingSession
	for _, s := range r.sessions[userID] {
		if s.IsOpen() && (latest == nil || s.StartTs.After(latest.StartTs)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}
