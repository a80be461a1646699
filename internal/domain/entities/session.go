package entities

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession marks where a user left their car. A user has at most one
// open session (EndTs not set); opening a new one closes the previous one.
//
// Go Learning Note — "gopkg.in/guregu/null.v4":
// Optional columns are awkward with plain Go types: the zero value of a
// string or time.Time is indistinguishable from "not set". null.String and
// null.Time carry a Valid flag, implement sql.Scanner/driver.Valuer so they
// map straight onto NULL columns, and marshal to JSON null when unset.
type ParkingSession struct {
	UserID  string      `json:"user_id"`
	StartTs time.Time   `json:"start_ts"`
	CarLat  float64     `json:"car_lat"`
	CarLng  float64     `json:"car_lng"`
	Note    null.String `json:"note"`
	EndTs   null.Time   `json:"end_ts"`
}

// ID is "<userId>#<startTs>".
func (s *ParkingSession) ID() string {
	return s.UserID + "#" + FormatSortKey(s.StartTs)
}

// IsOpen reports whether the session has not been ended.
func (s *ParkingSession) IsOpen() bool {
	return !s.EndTs.Valid
}

// End closes the session at t. Ending an already closed session is a no-op.
func (s *ParkingSession) End(t time.Time) {
	if s.IsOpen() {
		s.EndTs = null.TimeFrom(t)
	}
}
