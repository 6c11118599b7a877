// internal/donation/service.go
package donation

import (
	"context"

	"github.com/google/uuid"
)

// Service is the donation recorder contract.
type Service interface {
	// Submit records a donation. The whole pipeline, eligibility,
	// exchange pre-check, stock, history, request credit and
	// notifications, commits or rolls back as one unit.
	Submit(ctx context.Context, in SubmitInput) (*Donation, error)

	// CheckEligibility reports whether the donor is past the rest
	// period, and the remaining whole days when not.
	CheckEligibility(ctx context.Context, donorID uuid.UUID) (*Eligibility, error)

	// History returns the donor's history rows, newest first, with the
	// total count for paging.
	History(ctx context.Context, donorID uuid.UUID, page, perPage int) ([]HistoryEntry, int, error)

	// OwnerUserID resolves the user owning a donor profile, for
	// ownership checks at the gateway.
	OwnerUserID(ctx context.Context, donorID uuid.UUID) (uuid.UUID, error)
}
