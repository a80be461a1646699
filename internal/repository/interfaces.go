// Package repository declares the storage contracts the services depend on.
// Implementations live in the memory, sqlstore and dynamo subpackages.
package repository

import (
	"context"
	"time"

	"vapi/internal/domain/entities"
)

// ReportStore is the keyed store for parking reports. Reports are written
// once and never updated. Keys are "<cell>#<side>" partitions with the
// creation timestamp as sort key.
//
// Implementations may expire reports on their own (a TTL attribute, a
// sweeper), but expiry is advisory: readers still filter on ExpiresAt.
type ReportStore interface {
	// Put writes a new report.
	Put(ctx context.Context, report *entities.ParkingReport) error

	// QueryByPrefix returns every stored report whose partition key starts
	// with prefix, ordered by partition key and then by sort key. prefix is
	// a precision-6 cell, which matches the partitions of all four sides of
	// that cell, or a full "<cell>#<side>" key.
	QueryByPrefix(ctx context.Context, prefix string) ([]*entities.ParkingReport, error)

	// QueryByUserSince returns the reports written by userID with a creation
	// time strictly after since.
	QueryByUserSince(ctx context.Context, userID string, since time.Time) ([]*entities.ParkingReport, error)
}

// SessionRepository stores car-location sessions keyed by (user, start time).
type SessionRepository interface {
	// Put inserts the session, or replaces the stored session with the same
	// user and start time.
	Put(ctx context.Context, session *entities.ParkingSession) error

	// FindOpen returns the most recent session of userID that has not been
	// ended, or (nil, nil) if there is none.
	FindOpen(ctx context.Context, userID string) (*entities.ParkingSession, error)
}

// ConfirmationRepository stores follow-up verdicts on reports.
type ConfirmationRepository interface {
	Create(ctx context.Context, confirmation *entities.Confirmation) error
	ListByReport(ctx context.Context, reportID string) ([]*entities.Confirmation, error)
}

// SubscriptionRegistry maps live connections to the area they watch. It is
// shared state: with a shared backend, any server instance can resolve the
// subscribers of an area, not only the instance holding the socket.
type SubscriptionRegistry interface {
	// Subscribe points connID at area, replacing any previous area.
	Subscribe(ctx context.Context, connID, area string) error
	// Unsubscribe removes connID. Unknown IDs are not an error.
	Unsubscribe(ctx context.Context, connID string) error
	// ListSubscribers returns the connection IDs watching area, sorted.
	ListSubscribers(ctx context.Context, area string) ([]string, error)
}

// Locker grants short-lived named locks. AcquireLock does not wait: it
// reports false while someone else holds key.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
