package ledger

import (
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
)

// Batch is one unconsumed portion of a donation, scoped to an area and
// blood group. Batches are immutable on creation; consumption either
// reduces the unit count or deletes the row, never both.
type Batch struct {
	ID         uuid.UUID   `json:"id"`
	AreaID     uuid.UUID   `json:"area_id"`
	Group      blood.Group `json:"blood_group"`
	Units      int         `json:"units"`
	DonationID uuid.UUID   `json:"donation_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AddedEvent is the journal payload for a newly stored batch.
type AddedEvent struct {
	AreaID     uuid.UUID   `json:"area_id"`
	Group      blood.Group `json:"blood_group"`
	Units      int         `json:"units"`
	DonationID uuid.UUID   `json:"donation_id,omitempty"`
}

// ConsumedEvent is the journal payload for units taken from one batch.
// Drained marks the batch as fully used up and deleted.
type ConsumedEvent struct {
	AreaID  uuid.UUID   `json:"area_id"`
	Group   blood.Group `json:"blood_group"`
	Units   int         `json:"units"`
	Drained bool        `json:"drained"`
}

// InventoryLevel is the aggregate stock for one (area, blood group) pool.
type InventoryLevel struct {
	AreaID     uuid.UUID   `json:"area_id"`
	AreaName   string      `json:"area_name"`
	Group      blood.Group `json:"blood_group"`
	TotalUnits int         `json:"total_units"`
}

// Filter narrows inventory aggregation. Nil fields match everything;
// predicates are composed as parameterized conditions, never string
// concatenation.
type Filter struct {
	AreaID *uuid.UUID
	Group  *blood.Group
}
