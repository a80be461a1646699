package services

import (
	"context"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"

	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
	"vapi/internal/geo"
	"vapi/internal/repository"
)

// ErrNoActiveSession is returned when a user has no open parking session.
var ErrNoActiveSession = apperr.New(apperr.NotFound, "No active parking session found")

// ParkingService remembers where users left their cars.
type ParkingService struct {
	repo repository.SessionRepository
	now  func() time.Time
}

func NewParkingService(repo repository.SessionRepository) *ParkingService {
	return &ParkingService{repo: repo, now: time.Now}
}

// Start opens a session at the car position. Any session the user still has
// open is ended first, so there is at most one open session per user.
func (s *ParkingService) Start(ctx context.Context, userID string, lat, lng *float64, note string) (*entities.ParkingSession, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if lat == nil || lng == nil {
		return nil, apperr.New(apperr.MissingField, "Missing required fields: lat, lng")
	}
	if err := geo.ValidateCoordinate(*lat, *lng); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	open, err := s.repo.FindOpen(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to load parking session")
	}
	if open != nil {
		open.End(now)
		if err := s.repo.Put(ctx, open); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to end previous parking session")
		}
	}

	note = strings.TrimSpace(note)
	session := &entities.ParkingSession{
		UserID:  userID,
		StartTs: now,
		CarLat:  *lat,
		CarLng:  *lng,
		Note:    null.NewString(note, note != ""),
	}
	if err := s.repo.Put(ctx, session); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to start parking session")
	}
	return session, nil
}

// End closes the user's open session.
func (s *ParkingService) End(ctx context.Context, userID string) (*entities.ParkingSession, error) {
	session, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	session.End(s.now().UTC())
	if err := s.repo.Put(ctx, session); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to end parking session")
	}
	return session, nil
}

// Current returns the open session or ErrNoActiveSession.
func (s *ParkingService) Current(ctx context.Context, userID string) (*entities.ParkingSession, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	session, err := s.repo.FindOpen(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to load parking session")
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session, nil
}
