package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vapi/internal/domain/entities"
)

// ReportStore keeps reports in memory, partitioned the same way the
// persistent stores are:
//   - partitions: "<cell>#<side>" → reports ordered by CreatedAt
//   - byUser:     userID → reports (for the rate-limit lookup)
//
// Both indices are written under the same lock, so they never disagree.
//
// Expired reports are reclaimed by a background sweeper, the in-memory
// stand-in for a store-level TTL. Readers must still filter on ExpiresAt
// because the sweeper only runs every sweepInterval.
//
// Go Learning Note — Channels for Signaling:
// The `stop` field is a `chan struct{}`, an empty struct channel used purely
// for signaling. `struct{}` occupies zero bytes, making it the most efficient
// signal type. close(stop) wakes every goroutine receiving on it; `done` is
// closed by the sweeper on its way out so Stop() can wait for it.
type ReportStore struct {
	mu         sync.RWMutex
	partitions map[string][]*entities.ParkingReport
	byUser     map[string][]*entities.ParkingReport

	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReportStore creates an empty store. A positive sweepInterval starts a
// background goroutine that deletes expired reports; call Stop to end it.
//
// Go Learning Note — Background Goroutines:
// The `go s.sweepLoop(...)` starts a long-running goroutine for housekeeping.
// Always provide a way to stop background goroutines to prevent goroutine
// leaks in tests.
func NewReportStore(sweepInterval time.Duration) *ReportStore {
	return newReportStore(sweepInterval, time.Now)
}

func newReportStore(sweepInterval time.Duration, now func() time.Time) *ReportStore {
	s := &ReportStore{
		partitions: make(map[string][]*entities.ParkingReport),
		byUser:     make(map[string][]*entities.ParkingReport),
		now:        now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}
	return s
}

// Put stores a copy of report at its position inside the partition.
// Reports with equal CreatedAt keep their insertion order.
func (s *ReportStore) Put(ctx context.Context, report *entities.ParkingReport) error {
	stored := *report

	s.mu.Lock()
	defer s.mu.Unlock()

	pk := stored.PartitionKey()
	part := s.partitions[pk]
	i := sort.Search(len(part), func(i int) bool {
		return part[i].CreatedAt.After(stored.CreatedAt)
	})
	part = append(part, nil)
	copy(part[i+1:], part[i:])
	part[i] = &stored
	s.partitions[pk] = part

	if stored.UserID != "" {
		s.byUser[stored.UserID] = append(s.byUser[stored.UserID], &stored)
	}
	return nil
}

// QueryByPrefix returns copies of the reports under prefix, ordered by
// partition key then creation time. prefix is either a full partition key
// or a cell, which covers the partitions of its four sides. Keys are looked
// up directly; the partition map is never scanned.
func (s *ReportStore) QueryByPrefix(ctx context.Context, prefix string) ([]*entities.ParkingReport, error) {
	keys := []string{prefix}
	if !strings.Contains(prefix, "#") {
		keys = entities.CellPartitionKeys(prefix)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.ParkingReport
	for _, pk := range keys {
		for _, r := range s.partitions[pk] {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

// QueryByUserSince returns copies of userID's reports created after since.
func (s *ReportStore) QueryByUserSince(ctx context.Context, userID string, since time.Time) ([]*entities.ParkingReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.ParkingReport
	for _, r := range s.byUser[userID] {
		if r.CreatedAt.After(since) {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

// Sweep deletes every report that expired before now and returns how many
// were removed.
//
// Go Learning Note — Filtering In Place:
// `kept := part[:0]` reuses the backing array of part. Appending the
// survivors overwrites the slots that are no longer needed, so filtering a
// slice does not allocate. The trailing slots still point at removed
// reports; clearing them lets the garbage collector reclaim those reports.
func (s *ReportStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for pk, part := range s.partitions {
		kept := part[:0]
		for _, r := range part {
			if r.IsExpired(now) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		clear(part[len(kept):])
		if len(kept) == 0 {
			delete(s.partitions, pk) // Clean up empty partitions.
		} else {
			s.partitions[pk] = kept
		}
	}

	for user, reports := range s.byUser {
		kept := reports[:0]
		for _, r := range reports {
			if !r.IsExpired(now) {
				kept = append(kept, r)
			}
		}
		clear(reports[len(kept):])
		if len(kept) == 0 {
			delete(s.byUser, user)
		} else {
			s.byUser[user] = kept
		}
	}
	return removed
}

// Count returns the number of stored reports, expired or not.
func (s *ReportStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, part := range s.partitions {
		count += len(part)
	}
	return count
}

// sweepLoop runs Sweep every interval until Stop is called.
//
// Go Learning Note — select Statement:
// select is like switch but for channel operations. It blocks until one of the
// cases can proceed. Here it waits for either the ticker (do cleanup) or the
// stop signal (exit). This is the idiomatic pattern for a cancellable
// periodic task.
func (s *ReportStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(s.now())
		case <-s.stop:
			return
		}
	}
}

// Stop ends the sweeper and waits for it to exit. It is safe to call more
// than once.
func (s *ReportStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
