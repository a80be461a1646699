package services

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"vapi/internal/apperr"
	"vapi/internal/config"
	"vapi/internal/domain/entities"
	"vapi/internal/geo"
	"vapi/internal/repository"
	"vapi/pkg/utils"
)

// AggregationService answers "what is free near me" by folding live reports
// into one cluster per (cell, side).
type AggregationService struct {
	store repository.ReportStore
	cfg   config.AggregationConfig
	now   func() time.Time
}

func NewAggregationService(store repository.ReportStore, cfg *config.Config) *AggregationService {
	return &AggregationService{
		store: store,
		cfg:   cfg.Aggregation,
		now:   time.Now,
	}
}

// DefaultRadius is the radius used when a caller does not ask for one.
func (s *AggregationService) DefaultRadius() float64 {
	return s.cfg.DefaultRadiusMeters
}

// FindNearby returns the clusters within radiusMeters of the center, sorted
// by (cell, side).
//
// Algorithm:
//  1. Encode the center at precision 6 and take it plus its 8 neighbors.
//  2. Read the 9 cells concurrently; if any read fails the whole call fails.
//  3. Drop expired reports and reports farther than the radius.
//  4. Group by (cell, side). The most recent report supplies bucket, time
//     and position; confidence is the mean over the group.
//
// Radii above the configured maximum are clamped: the 3x3 block does not
// cover more ground than that anyway.
//
// Go Learning Note — errgroup:
// "golang.org/x/sync/errgroup" is sync.WaitGroup plus error handling. Each
// g.Go runs a function in its own goroutine; g.Wait blocks until all return
// and yields the first non-nil error. errgroup.WithContext also cancels the
// derived ctx as soon as one goroutine fails, so the other reads stop early.
// Each goroutine writes only its own slot of the results slice, so no mutex
// is needed.
func (s *AggregationService) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]entities.Cluster, error) {
	if err := geo.ValidateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return nil, apperr.New(apperr.InvalidCoordinate, "radius must be a positive number of meters")
	}
	if s.cfg.MaxRadiusMeters > 0 && radiusMeters > s.cfg.MaxRadiusMeters {
		radiusMeters = s.cfg.MaxRadiusMeters
	}

	center, err := geo.Encode(lat, lng, geo.ReportPrecision)
	if err != nil {
		return nil, err
	}
	cells, err := geo.SearchCells(center)
	if err != nil {
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	results := make([][]*entities.ParkingReport, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	for i, cell := range cells {
		i, cell := i, cell
		g.Go(func() error {
			reports, err := s.store.QueryByPrefix(gctx, cell)
			if err != nil {
				return err
			}
			results[i] = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, err, "Failed to query nearby reports")
	}

	var candidates []*entities.ParkingReport
	for _, reports := range results {
		candidates = append(candidates, reports...)
	}
	return aggregate(candidates, lat, lng, radiusMeters, s.now()), nil
}

type clusterAcc struct {
	latest        *entities.ParkingReport
	confidenceSum float64
	count         int
}

// aggregate folds reports into clusters. A report replaces the group's
// latest only when strictly newer, so among equal timestamps the first one
// in input order wins.
func aggregate(reports []*entities.ParkingReport, lat, lng, radiusMeters float64, now time.Time) []entities.Cluster {
	groups := make(map[string]*clusterAcc)
	for _, r := range reports {
		if r.IsExpired(now) {
			continue
		}
		if geo.HaversineDistance(lat, lng, r.Lat, r.Lng) > radiusMeters {
			continue
		}

		key := r.PartitionKey()
		acc, ok := groups[key]
		if !ok {
			acc = &clusterAcc{latest: r}
			groups[key] = acc
		} else if r.CreatedAt.After(acc.latest.CreatedAt) {
			acc.latest = r
		}
		acc.confidenceSum += r.Confidence
		acc.count++
	}

	clusters := make([]entities.Cluster, 0, len(groups))
	for _, acc := range groups {
		r := acc.latest
		clusters = append(clusters, entities.Cluster{
			Cell:           r.Cell,
			Side:           r.Side,
			Lat:            r.Lat,
			Lng:            r.Lng,
			CountBucket:    r.CountBucket,
			Confidence:     utils.Round2(acc.confidenceSum / float64(acc.count)),
			LastReportedAt: r.CreatedAt,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Cell != clusters[j].Cell {
			return clusters[i].Cell < clusters[j].Cell
		}
		return clusters[i].Side < clusters[j].Side
	})
	return clusters
}
