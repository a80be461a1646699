package entities

import "time"

// Cluster is the aggregated view of every live report that shares a
// (Cell, Side) key. It is rebuilt from scratch on each nearby query and never
// persisted. CountBucket, LastReportedAt, Lat and Lng come from the most
// recent contributing report; Confidence is the mean over all of them.
//
// The JSON field names match what the mobile client renders.
type Cluster struct {
	Cell           string      `json:"geoHash6"`
	Side           Side        `json:"side"`
	Lat            float64     `json:"lat"`
	Lng            float64     `json:"lng"`
	CountBucket    CountBucket `json:"count_bucket"`
	Confidence     float64     `json:"confidence"`
	LastReportedAt time.Time   `json:"last_ts"`
}

// Key returns the grouping key of the cluster.
func (c *Cluster) Key() string {
	return PartitionKey(c.Cell, c.Side)
}

// ReportUpdate is the real-time message pushed to subscribers of an area
// when a new report lands in one of its cells.
type ReportUpdate struct {
	Type        string      `json:"type"`
	Cell        string      `json:"geoHash6"`
	Side        Side        `json:"side"`
	CountBucket CountBucket `json:"count_bucket"`
	Confidence  float64     `json:"confidence"`
	Timestamp   time.Time   `json:"ts"`
}

// ReportUpdateType is the Type value of every ReportUpdate.
const ReportUpdateType = "report_update"

// NewReportUpdate builds the update message for a freshly persisted report.
func NewReportUpdate(r *ParkingReport) ReportUpdate {
	return ReportUpdate{
		Type:        ReportUpdateType,
		Cell:        r.Cell,
		Side:        r.Side,
		CountBucket: r.CountBucket,
		Confidence:  r.Confidence,
		Timestamp:   r.CreatedAt,
	}
}
