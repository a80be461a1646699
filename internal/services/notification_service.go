package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"vapi/internal/domain/entities"
)

// Notifier delivers a report update to everyone watching an area (a
// precision-5 geohash). Delivery is best-effort: callers log errors and move
// on, a failed push never fails the write that triggered it.
type Notifier interface {
	Publish(ctx context.Context, area string, update entities.ReportUpdate) error
}

// MultiNotifier fans an update out to several notifiers. Every notifier is
// tried; their errors are joined.
type MultiNotifier []Notifier

func (m MultiNotifier) Publish(ctx context.Context, area string, update entities.ReportUpdate) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, area, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes every update to the log. It stands in for a push
// channel in development and keeps a trace of what was sent in production.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, area string, update entities.ReportUpdate) error {
	n.logger.Debug("report update",
		zap.String("area", area),
		zap.String("cell", update.Cell),
		zap.String("side", string(update.Side)),
		zap.String("count_bucket", string(update.CountBucket)),
	)
	return nil
}
