package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	runner txn.Runner
}

// NewService creates a new notification sink instance.
func NewService(db *sql.DB, runner txn.Runner) Service {
	return &service{db: db, runner: runner}
}

// Notify inserts a notification row inside the caller's transaction.
func (s *service) Notify(ctx context.Context, q txn.Querier, userID uuid.UUID, message, category string) error {
	if message == "" {
		return apperrors.New(apperrors.CodeValidation, "notification message must not be empty")
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, category, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, uuid.New(), userID, message, category, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, category, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Category, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, total, nil
}

// UnreadCount counts unread notifications for the user.
func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification to read; the ownership check is part
// of the predicate so users cannot touch each other's messages.
func (s *service) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flips every notification of the user to read.
func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Broadcast inserts one notification per user in the target cohort, all
// in one transaction.
func (s *service) Broadcast(ctx context.Context, targetRole string, group *blood.Group, message string) (int, error) {
	if message == "" {
		return 0, apperrors.New(apperrors.CodeValidation, "broadcast message must not be empty")
	}

	query, args, err := cohortQuery(targetRole, group)
	if err != nil {
		return 0, err
	}

	reached := 0
	err = s.runner.RunInTx(ctx, func(q txn.Querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("select broadcast cohort: %w", err)
		}
		defer rows.Close()

		var userIDs []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan cohort user: %w", err)
			}
			userIDs = append(userIDs, id)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate cohort users: %w", err)
		}

		now := time.Now().UTC()
		for _, id := range userIDs {
			_, err := q.ExecContext(ctx, `
				INSERT INTO notifications (id, user_id, message, category, read, created_at)
				VALUES ($1, $2, $3, $4, FALSE, $5)
			`, uuid.New(), id, message, CategoryBroadcast, now)
			if err != nil {
				return fmt.Errorf("insert broadcast notification: %w", err)
			}
		}
		reached = len(userIDs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reached, nil
}

func cohortQuery(targetRole string, group *blood.Group) (string, []any, error) {
	switch targetRole {
	case "All":
		return `SELECT id FROM users`, nil, nil
	case "Manager":
		return `SELECT user_id FROM managers`, nil, nil
	case "Donor":
		if group != nil {
			return `SELECT user_id FROM donors WHERE blood_group = $1`, []any{group.String()}, nil
		}
		return `SELECT user_id FROM donors`, nil, nil
	case "Recipient":
		if group != nil {
			return `SELECT user_id FROM recipients WHERE blood_group = $1`, []any{group.String()}, nil
		}
		return `SELECT user_id FROM recipients`, nil, nil
	default:
		return "", nil, apperrors.Newf(apperrors.CodeValidation, "unknown broadcast target: %q", targetRole)
	}
}
