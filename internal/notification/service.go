package notification

import (
	"context"

	"github.com/google/uuid"

	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// Service is the notification sink contract. Notify joins the calling
// transaction so a rolled-back operation leaves no message behind.
type Service interface {
	// Notify records a message for one user inside the caller's
	// transaction.
	Notify(ctx context.Context, q txn.Querier, userID uuid.UUID, message, category string) error

	// List returns a user's notifications, newest first, with the total
	// count for paging.
	List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]Notification, int, error)

	// UnreadCount returns how many notifications the user has not read.
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks one notification read, verifying ownership.
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error

	// MarkAllRead marks every notification of the user read.
	MarkAllRead(ctx context.Context, userID uuid.UUID) error

	// Broadcast fans a message out to a role cohort, optionally filtered
	// by blood group, and reports how many users were reached.
	Broadcast(ctx context.Context, targetRole string, group *blood.Group, message string) (int, error)
}
