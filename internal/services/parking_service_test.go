package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vapi/internal/apperr"
	"vapi/internal/domain/entities"
	"vapi/internal/repository/memory"
)

func setupParkingService() (*ParkingService, *fixedClock) {
	clock := newClock(baseTime)
	service := NewParkingService(memory.NewSessionRepository())
	service.now = clock.Now
	return service, clock
}

func TestParkingService_Lifecycle(t *testing.T) {
	service, clock := setupParkingService()
	ctx := context.Background()

	_, err := service.Current(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	first, err := service.Start(ctx, "user-1", ptr(centerLat), ptr(centerLng), "  level 2  ")
	require.NoError(t, err)
	assert.Equal(t, "level 2", first.Note.String)
	assert.True(t, first.IsOpen())

	clock.Advance(time.Hour)
	second, err := service.Start(ctx, "user-1", ptr(centerLat+0.01), ptr(centerLng), "")
	require.NoError(t, err)
	assert.False(t, second.Note.Valid)

	current, err := service.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID(), current.ID(), "starting again closes the previous session")

	clock.Advance(time.Hour)
	ended, err := service.End(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ended.IsOpen())
	assert.Equal(t, baseTime.Add(2*time.Hour), ended.EndTs.Time)

	_, err = service.End(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestParkingService_Validation(t *testing.T) {
	service, _ := setupParkingService()
	ctx := context.Background()

	_, err := service.Start(ctx, "", ptr(1), ptr(1), "")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	_, err = service.Start(ctx, "user-1", nil, ptr(1), "")
	assert.Equal(t, apperr.MissingField, apperr.KindOf(err))

	_, err = service.Start(ctx, "user-1", ptr(1), ptr(500), "")
	assert.Equal(t, apperr.InvalidCoordinate, apperr.KindOf(err))

	_, err = service.Current(ctx, "")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestConfirmationService(t *testing.T) {
	service := NewConfirmationService(memory.NewConfirmationRepository())
	service.now = func() time.Time { return baseTime }
	ctx := context.Background()

	reportID := "69y7pk#N#2024-03-01T11:59:00.000000000Z"
	c, err := service.Confirm(ctx, "user-1", reportID, "taken")
	require.NoError(t, err)
	assert.Equal(t, entities.ConfirmationTaken, c.Status)
	assert.Equal(t, baseTime, c.CreatedAt)

	list, err := service.List(ctx, reportID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "user-1", list[0].UserID)

	tests := []struct {
		name                 string
		user, report, status string
		kind                 apperr.Kind
	}{
		{"anonymous", "", reportID, "taken", apperr.Unauthenticated},
		{"missing report", "user-1", "", "taken", apperr.MissingField},
		{"missing status", "user-1", reportID, "", apperr.MissingField},
		{"bad status", "user-1", reportID, "gone", apperr.InvalidEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Confirm(ctx, tt.user, tt.report, tt.status)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}
