package entities

import "time"

// ConfirmationStatus is a follow-up verdict on an earlier report.
type ConfirmationStatus string

const (
	ConfirmationStillFree ConfirmationStatus = "still_free"
	ConfirmationTaken     ConfirmationStatus = "taken"
)

func (s ConfirmationStatus) Valid() bool {
	return s == ConfirmationStillFree || s == ConfirmationTaken
}

// Confirmation records that a user re-checked a report. Confirmations are
// stored but do not feed into cluster confidence yet.
type Confirmation struct {
	ReportID  string             `json:"reportId"`
	UserID    string             `json:"userId"`
	Status    ConfirmationStatus `json:"status"`
	CreatedAt time.Time          `json:"ts"`
}

// SortKey orders confirmations of one report: "<userId>#<ts>".
func (c *Confirmation) SortKey() string {
	return c.UserID + "#" + FormatSortKey(c.CreatedAt)
}
