package request

import (
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
)

// Status is the lifecycle state of a blood request.
//
// Transitions:
//
//	Pending → Approved → Fulfilled
//
// Exchange donations may also carry a Pending or Approved request
// straight to Fulfilled once enough units are collected. units_collected
// only ever grows.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusFulfilled Status = "Fulfilled"
)

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusFulfilled
	case StatusApproved:
		return next == StatusFulfilled
	default:
		return false
	}
}

// Active reports whether the request can still receive exchange donations.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Request is a recipient's demand for blood units.
type Request struct {
	ID             uuid.UUID   `json:"id"`
	RecipientID    uuid.UUID   `json:"recipient_id"`
	Group          blood.Group `json:"blood_group"`
	UnitsRequired  int         `json:"units_required"`
	UnitsCollected int         `json:"units_collected"`
	Status         Status      `json:"status"`
	ApprovedBy     *uuid.UUID  `json:"approved_by,omitempty"`
	RequestedAt    time.Time   `json:"requested_at"`
	ApprovedAt     *time.Time  `json:"approved_at,omitempty"`
	FulfilledAt    *time.Time  `json:"fulfilled_at,omitempty"`
}

// ActiveRequest is the exchange pick-list view of an open request.
type ActiveRequest struct {
	ID             uuid.UUID   `json:"id"`
	RecipientName  string      `json:"recipient_name"`
	Group          blood.Group `json:"blood_group"`
	UnitsRequired  int         `json:"units_required"`
	UnitsCollected int         `json:"units_collected"`
}

// ExchangeInfo is what the exchange coordinator needs to vet a donation
// against a request.
type ExchangeInfo struct {
	RequestID       uuid.UUID
	Group           blood.Group
	RecipientAreaID uuid.UUID
	RecipientUserID uuid.UUID
	Status          Status
}

// CollectResult reports the outcome of crediting collected units.
type CollectResult struct {
	Fulfilled       bool
	RecipientUserID uuid.UUID
}

// RequestCreatedEvent is journaled when a request is opened.
type RequestCreatedEvent struct {
	RequestID     uuid.UUID   `json:"request_id"`
	RecipientID   uuid.UUID   `json:"recipient_id"`
	Group         blood.Group `json:"blood_group"`
	UnitsRequired int         `json:"units_required"`
}

// RequestApprovedEvent is journaled on manager approval.
type RequestApprovedEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	ManagerID uuid.UUID `json:"manager_id"`
}

// RequestFulfilledEvent is journaled when a request reaches Fulfilled,
// whether by manual fulfillment or collected exchange units.
type RequestFulfilledEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Manual    bool      `json:"manual"`
}
