// internal/donation/domain.go
package donation

import (
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
)

// cooldownDays is the mandatory rest period between donations.
const cooldownDays = 30

// Donation is one immutable donation record.
type Donation struct {
	ID        uuid.UUID   `json:"id"`
	DonorID   uuid.UUID   `json:"donor_id"`
	Units     int         `json:"units"`
	Group     blood.Group `json:"blood_group"`
	Exchange  bool        `json:"exchange"`
	RequestID *uuid.UUID  `json:"request_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// SubmitInput carries a donation submission. CallerUserID, when set,
// must own the donor profile.
type SubmitInput struct {
	DonorID      uuid.UUID
	CallerUserID uuid.UUID
	Units        int
	Exchange     bool
	RequestID    *uuid.UUID
}

// Eligibility reports whether a donor may donate now, and how many whole
// days remain when they may not.
type Eligibility struct {
	Eligible bool `json:"eligible"`
	DaysLeft int  `json:"days_left"`
}

// HistoryEntry is one append-only donor history row.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	DonatedAt time.Time `json:"donated_at"`
	Units     int       `json:"units"`
}

// RecordedEvent is journaled for every accepted donation.
type RecordedEvent struct {
	DonorID   uuid.UUID   `json:"donor_id"`
	Units     int         `json:"units"`
	Group     blood.Group `json:"blood_group"`
	Exchange  bool        `json:"exchange"`
	RequestID *uuid.UUID  `json:"request_id,omitempty"`
	Direct    bool        `json:"direct"`
}

// cooldown compares calendar dates, not clock instants, so a donation
// at 23:59 and a check at 00:01 still count as one day apart.
func cooldown(lastDonated, now time.Time) (daysSince, daysLeft int) {
	last := time.Date(lastDonated.Year(), lastDonated.Month(), lastDonated.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daysSince = int(today.Sub(last).Hours() / 24)
	if daysSince >= cooldownDays {
		return daysSince, 0
	}
	return daysSince, cooldownDays - daysSince
}
