package ledger

import "github.com/google/uuid"

// batchState is the locked (id, units) view of a batch during a consume.
type batchState struct {
	ID    uuid.UUID
	Units int
}

// consumeStep is one mutation of the FIFO plan: delete the batch outright
// or reduce it by Take units.
type consumeStep struct {
	BatchID uuid.UUID
	Take    int
	Delete  bool
}

// consumePlan computes the FIFO consumption of needed units from batches,
// which must already be ordered oldest first (creation time, then batch
// id for batches created in the same instant, so the order is
// deterministic either way). It returns ok=false without a plan when the
// pool cannot
// cover the need; a fully drained batch is always a delete, never a zero
// row.
func consumePlan(batches []batchState, needed int) ([]consumeStep, bool) {
	if needed <= 0 {
		return nil, needed == 0
	}

	total := 0
	for _, b := range batches {
		total += b.Units
	}
	if total < needed {
		return nil, false
	}

	var steps []consumeStep
	remaining := needed
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Units <= remaining {
			steps = append(steps, consumeStep{BatchID: b.ID, Take: b.Units, Delete: true})
			remaining -= b.Units
			continue
		}
		steps = append(steps, consumeStep{BatchID: b.ID, Take: remaining})
		remaining = 0
	}
	return steps, true
}
