package services

import (
	"context"
	"time"

	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
	"vapi/internal/repository"
)

// ConfirmationService records follow-up verdicts on reports. Confirmations
// are kept for later scoring; cluster confidence does not read them.
type ConfirmationService struct {
	repo repository.ConfirmationRepository
	now  func() time.Time
}

func NewConfirmationService(repo repository.ConfirmationRepository) *ConfirmationService {
	return &ConfirmationService{repo: repo, now: time.Now}
}

func (s *ConfirmationService) Confirm(ctx context.Context, userID, reportID, status string) (*entities.Confirmation, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if reportID == "" || status == "" {
		return nil, apperr.New(apperr.MissingField, "Missing required fields: reportId, status")
	}
	st := entities.ConfirmationStatus(status)
	if !st.Valid() {
		return nil, apperr.New(apperr.InvalidEnum, "Invalid status %q: must be still_free or taken", status)
	}

	c := &entities.Confirmation{
		ReportID:  reportID,
		UserID:    userID,
		Status:    st,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to store confirmation")
	}
	return c, nil
}

// List returns the confirmations recorded for a report, oldest first.
func (s *ConfirmationService) List(ctx context.Context, reportID string) ([]*entities.Confirmation, error) {
	list, err := s.repo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to list confirmations")
	}
	return list, nil
}
