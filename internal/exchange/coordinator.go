// Package exchange vets donations pledged against a specific request.
// Same-group donations go straight to the request; cross-group donations
// swap an equivalent unit of the needed group out of the donor's area
// stock, modeling a same-area blood bank swap.
package exchange

import (
	"context"

	"github.com/google/uuid"

	"bloodlink/internal/request"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// Outcome classifies an exchange donation against its target request.
type Outcome int

const (
	// OutcomeMismatch means the donor and recipient are in different
	// areas; the exchange is refused.
	OutcomeMismatch Outcome = iota
	// OutcomeDirect means donor and request share a blood group; the
	// donated unit satisfies the request without touching stock.
	OutcomeDirect
	// OutcomeSwap means an equivalent unit of the requested group must
	// be consumed from the donor's area.
	OutcomeSwap
)

// Decide classifies the exchange. It is pure so the area/group rules can
// be tested without storage.
func Decide(donorAreaID, requestAreaID uuid.UUID, donorGroup, requestGroup blood.Group) Outcome {
	if donorAreaID != requestAreaID {
		return OutcomeMismatch
	}
	if donorGroup == requestGroup {
		return OutcomeDirect
	}
	return OutcomeSwap
}

// RequestSource loads the request facts the pre-check runs against.
type RequestSource interface {
	ExchangeInfo(ctx context.Context, q txn.Querier, requestID uuid.UUID) (*request.ExchangeInfo, error)
}

// StockConsumer performs the swap-side stock consumption.
type StockConsumer interface {
	Consume(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int) (bool, error)
}

// Result is a passed pre-check. Direct exchanges skip the stock pool
// entirely; swap exchanges have already consumed their outbound units by
// the time the result is returned.
type Result struct {
	Direct bool
	Info   *request.ExchangeInfo
}

// Coordinator runs the exchange pre-check inside the donation
// transaction.
type Coordinator struct {
	requests RequestSource
	stock    StockConsumer
}

// NewCoordinator creates an exchange coordinator.
func NewCoordinator(requests RequestSource, stock StockConsumer) *Coordinator {
	return &Coordinator{requests: requests, stock: stock}
}

// PreCheck validates the donation against the target request and, for
// cross-group exchanges, consumes the swapped-out stock. Any error
// aborts the enclosing donation transaction.
func (c *Coordinator) PreCheck(ctx context.Context, q txn.Querier, donorAreaID uuid.UUID, donorGroup blood.Group, requestID uuid.UUID, units int) (*Result, error) {
	info, err := c.requests.ExchangeInfo(ctx, q, requestID)
	if err != nil {
		return nil, err
	}

	if !info.Status.Active() {
		return nil, apperrors.Newf(apperrors.CodeConsistency, "request is already %s", info.Status)
	}

	switch Decide(donorAreaID, info.RecipientAreaID, donorGroup, info.Group) {
	case OutcomeMismatch:
		return nil, apperrors.New(apperrors.CodeConsistency,
			"Location Mismatch: Donor and Request must be in the same area.")
	case OutcomeDirect:
		return &Result{Direct: true, Info: info}, nil
	default:
		ok, err := c.stock.Consume(ctx, q, donorAreaID, info.Group, units)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.New(apperrors.CodeConsistency,
				"Exchange Failed: Insufficient stock of required blood type for recipient.")
		}
		return &Result{Info: info}, nil
	}
}
