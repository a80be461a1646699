package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"vapi/internal/domain/entities"
	"vapi/internal/repository"
)

// Buenos Aires, Plaza de Mayo area; encodes to cell 69y7pk.
const (
	centerLat = -34.6037
	centerLng = -58.3816
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

// fixedClock is a settable clock shared between a test and a service.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier captures published updates.
type recordingNotifier struct {
	mu      sync.Mutex
	areas   []string
	updates []entities.ReportUpdate
	err     error
}

func (n *recordingNotifier) Publish(ctx context.Context, area string, update entities.ReportUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.areas = append(n.areas, area)
	n.updates = append(n.updates, update)
	return n.err
}

var errStoreDown = errors.New("store down")

// flakyStore wraps a store and fails the selected operations.
type flakyStore struct {
	repository.ReportStore
	failPut       bool
	failQuery     bool
	failUserQuery bool
}

func (s *flakyStore) Put(ctx context.Context, r *entities.ParkingReport) error {
	if s.failPut {
		return errStoreDown
	}
	return s.ReportStore.Put(ctx, r)
}

func (s *flakyStore) QueryByPrefix(ctx context.Context, prefix string) ([]*entities.ParkingReport, error) {
	if s.failQuery {
		return nil, errStoreDown
	}
	return s.ReportStore.QueryByPrefix(ctx, prefix)
}

func (s *flakyStore) QueryByUserSince(ctx context.Context, userID string, since time.Time) ([]*entities.ParkingReport, error) {
	if s.failUserQuery {
		return nil, errStoreDown
	}
	return s.ReportStore.QueryByUserSince(ctx, userID, since)
}
