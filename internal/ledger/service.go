package ledger

import (
	"context"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// Service is the stock ledger contract. AddBatch and Consume join the
// caller's transaction so a multi-step engine operation stays atomic.
type Service interface {
	// AddBatch records a new batch of units for an (area, group) pool.
	AddBatch(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int, donationID uuid.UUID) (uuid.UUID, error)

	// Consume removes units from a pool oldest-batch-first. It returns
	// false without mutating anything when the pool holds fewer units
	// than needed; the sufficiency check and the deduction share the
	// caller's transaction.
	Consume(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int) (bool, error)

	// Inventory aggregates available units per (area, group).
	Inventory(ctx context.Context, f Filter) ([]InventoryLevel, error)
}
