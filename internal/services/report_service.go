package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
	"vapi/internal/geo"
	"vapi/internal/repository"
)

// SubmitReportInput is a raw report as received from a client. Pointers mark
// the fields that may be absent; a nil Lat is "not sent", not 0.
type SubmitReportInput struct {
	Lat         *float64
	Lng         *float64
	CountBucket string
	Side        string
	Bearing     *float64
	// UserID is empty for anonymous reports.
	UserID string
}

// ReportService turns raw observations into stored reports.
type ReportService struct {
	store    repository.ReportStore
	notifier Notifier
	locker   repository.Locker
	logger   *zap.Logger
	now      func() time.Time
}

// submitLockTTL bounds how long a crashed submission can block its user.
const submitLockTTL = 5 * time.Second

func NewReportService(store repository.ReportStore, notifier Notifier, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithLocker makes the rate-limit check and the write atomic per user.
// Without a locker, two concurrent submissions from one user can both pass
// the check.
func (s *ReportService) WithLocker(locker repository.Locker) *ReportService {
	s.locker = locker
	return s
}

// Submit validates, rate-limits and persists a report, then announces it to
// subscribers of the report's area.
//
// Checks run in a fixed order so a client always sees the first problem:
//  1. lat/lng present and in range
//  2. count_bucket present and valid; explicit side valid
//  3. rate limit (authenticated users only)
//
// A user with a submission still in flight is rate limited as well, when a
// locker is configured.
//
// Go Learning Note — Returning the Persisted Entity:
// Submit returns the report exactly as stored (derived cell, side, expiry),
// so the handler serializes what was written rather than echoing the input.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput) (*entities.ParkingReport, error) {
	var missing []string
	if in.Lat == nil {
		missing = append(missing, "lat")
	}
	if in.Lng == nil {
		missing = append(missing, "lng")
	}
	if len(missing) > 0 {
		if in.CountBucket == "" {
			missing = append(missing, "count_bucket")
		}
		return nil, apperr.New(apperr.MissingField, "Missing required fields: %s", strings.Join(missing, ", "))
	}
	lat, lng := *in.Lat, *in.Lng
	if err := geo.ValidateCoordinate(lat, lng); err != nil {
		return nil, err
	}

	if in.CountBucket == "" {
		return nil, apperr.New(apperr.MissingField, "Missing required fields: count_bucket")
	}
	bucket := entities.CountBucket(in.CountBucket)
	if !bucket.Valid() {
		return nil, apperr.New(apperr.InvalidEnum, "Invalid count_bucket %q: must be one of 1, 2_5, 5_plus", in.CountBucket)
	}
	side := entities.Side(in.Side)
	if in.Side != "" && !side.Valid() {
		return nil, apperr.New(apperr.InvalidEnum, "Invalid side %q: must be one of N, E, S, W", in.Side)
	}

	now := s.now().UTC()
	if in.UserID != "" {
		release, err := s.lockUser(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		defer release()

		if err := s.checkRateLimit(ctx, in.UserID, now); err != nil {
			return nil, err
		}
	}

	cell, err := geo.Encode(lat, lng, geo.ReportPrecision)
	if err != nil {
		return nil, err
	}
	if in.Side == "" {
		if side, err = geo.DetermineSide(lat, lng, in.Bearing); err != nil {
			return nil, err
		}
	}

	report := &entities.ParkingReport{
		Cell:        cell,
		Side:        side,
		Lat:         lat,
		Lng:         lng,
		CountBucket: bucket,
		UserID:      in.UserID,
		Confidence:  1.0,
		ExpiresAt:   now.Add(entities.ReportTTL),
		Source:      entities.ReportSourceUser,
		CreatedAt:   now,
	}
	if err := s.store.Put(ctx, report); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to store report")
	}

	area := geo.AreaHash(cell)
	if err := s.notifier.Publish(ctx, area, entities.NewReportUpdate(report)); err != nil {
		s.logger.Warn("publish report update failed",
			zap.String("report_id", report.ID()),
			zap.String("area", area),
			zap.Error(err),
		)
	}

	return report, nil
}

// lockUser takes the per-user submit lock and returns its release func.
func (s *ReportService) lockUser(ctx context.Context, userID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := "report:" + userID
	ok, err := s.locker.AcquireLock(ctx, key, submitLockTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to check rate limit")
	}
	if !ok {
		return nil, errRateLimited
	}
	return func() {
		if err := s.locker.ReleaseLock(context.Background(), key); err != nil {
			s.logger.Warn("release submit lock failed", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}

var errRateLimited = apperr.New(apperr.RateLimited, "Rate limit exceeded. Please wait before submitting another report.")

func (s *ReportService) checkRateLimit(ctx context.Context, userID string, now time.Time) error {
	recent, err := s.store.QueryByUserSince(ctx, userID, now.Add(-entities.RateLimitWindow))
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, err, "Failed to check rate limit")
	}
	for _, r := range recent {
		if !r.IsExpired(now) {
			return errRateLimited
		}
	}
	return nil
}
