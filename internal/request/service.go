package request

import (
	"context"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// Service is the request manager contract.
type Service interface {
	// Create opens a Pending request. Requests above four units are
	// rejected outright.
	Create(ctx context.Context, recipientID uuid.UUID, units int, group blood.Group) (*Request, error)

	// Approve moves a Pending request to Approved and notifies the
	// recipient. Only Pending requests can be approved.
	Approve(ctx context.Context, requestID, managerUserID uuid.UUID) error

	// Fulfill consumes the required units from the recipient's area and
	// marks the request Fulfilled. Insufficient stock leaves the request
	// untouched.
	Fulfill(ctx context.Context, requestID uuid.UUID) error

	// ListActive returns Pending and Approved requests, optionally
	// narrowed to recipients of one area.
	ListActive(ctx context.Context, areaID *uuid.UUID) ([]ActiveRequest, error)

	// RecipientIDForUser resolves the recipient profile behind a user,
	// so the gateway can open requests on the caller's own behalf.
	RecipientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// ExchangeInfo loads the request facts the exchange coordinator
	// checks, inside the caller's transaction.
	ExchangeInfo(ctx context.Context, q txn.Querier, requestID uuid.UUID) (*ExchangeInfo, error)

	// AddCollected credits exchange-donated units to the request inside
	// the caller's transaction, transitioning to Fulfilled at the
	// threshold. The collected count never decreases.
	AddCollected(ctx context.Context, q txn.Querier, requestID uuid.UUID, units int) (*CollectResult, error)
}
