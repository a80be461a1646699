package entities

import (
	"sort"
	"time"
)

// CountBucket is an ordinal availability tier, not a count. A report says
// "about one spot", "two to five spots" or "more than five".
type CountBucket string

const (
	CountBucketOne    CountBucket = "1"
	CountBucketFew    CountBucket = "2_5"
	CountBucketPlenty CountBucket = "5_plus"
)

// Valid reports whether b is one of the enumerated buckets.
func (b CountBucket) Valid() bool {
	switch b {
	case CountBucketOne, CountBucketFew, CountBucketPlenty:
		return true
	}
	return false
}

// Side is the side of the street a reported spot lies on, expressed as a
// cardinal direction.
type Side string

const (
	SideNorth Side = "N"
	SideEast  Side = "E"
	SideSouth Side = "S"
	SideWest  Side = "W"
)

// Sides lists every side in a fixed order. Store adapters that cannot range
// scan on a key prefix expand a cell into one key per side using this order.
var Sides = []Side{SideNorth, SideEast, SideSouth, SideWest}

// Valid reports whether s is one of N, E, S, W.
func (s Side) Valid() bool {
	switch s {
	case SideNorth, SideEast, SideSouth, SideWest:
		return true
	}
	return false
}

// ReportSource records who produced a report.
type ReportSource string

const (
	ReportSourceUser   ReportSource = "user"
	ReportSourceSystem ReportSource = "system"
)

const (
	// ReportTTL is how long a report stays live after creation.
	ReportTTL = 15 * time.Minute

	// RateLimitWindow is the minimum spacing between two reports from the
	// same authenticated user.
	RateLimitWindow = 15 * time.Second

	// SortKeyLayout is a fixed-width UTC timestamp. Unlike RFC3339Nano it
	// never trims trailing zeros, so sort keys order lexicographically in
	// the same order as the instants they encode.
	SortKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// ParkingReport is a single crowd-sourced observation. Reports are immutable
// once written: the (Cell, Side) pair is derived at creation time and never
// recomputed, and aggregation only ever reads them.
//
// Go Learning Note — Value Receivers on Immutable Data:
// Methods like PartitionKey use a pointer receiver only to avoid copying the
// struct; none of them modify it. For types that must never change after
// construction, keep every method read-only and never hand out setters.
type ParkingReport struct {
	Cell        string       `json:"geoHash6"`
	Side        Side         `json:"side"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	CountBucket CountBucket  `json:"count_bucket"`
	UserID      string       `json:"user_id,omitempty"`
	Confidence  float64      `json:"confidence"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	Source      ReportSource `json:"source"`
	CreatedAt   time.Time    `json:"ts"`
}

// PartitionKey groups every report for one (cell, side) pair: "<cell>#<side>".
func (r *ParkingReport) PartitionKey() string {
	return PartitionKey(r.Cell, r.Side)
}

// SortKey orders reports inside a partition by creation time.
func (r *ParkingReport) SortKey() string {
	return FormatSortKey(r.CreatedAt)
}

// ID is the externally visible report identifier: "<cell>#<side>#<ts>".
func (r *ParkingReport) ID() string {
	return r.PartitionKey() + "#" + r.SortKey()
}

// IsExpired reports whether the report is no longer live at now.
func (r *ParkingReport) IsExpired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// PartitionKey builds the store partition key for a (cell, side) pair.
func PartitionKey(cell string, side Side) string {
	return cell + "#" + string(side)
}

// CellPartitionKeys returns the partition keys of all four sides of cell,
// in key order (E, N, S, W).
func CellPartitionKeys(cell string) []string {
	keys := make([]string, 0, len(Sides))
	for _, side := range Sides {
		keys = append(keys, PartitionKey(cell, side))
	}
	sort.Strings(keys)
	return keys
}

// FormatSortKey renders t in SortKeyLayout.
func FormatSortKey(t time.Time) string {
	return t.UTC().Format(SortKeyLayout)
}

// ParseSortKey is the inverse of FormatSortKey.
func ParseSortKey(s string) (time.Time, error) {
	return time.Parse(SortKeyLayout, s)
}
