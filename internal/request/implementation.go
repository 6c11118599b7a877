package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/journal"
	"bloodlink/internal/notification"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// maxUnitsPerRequest is the anti-hoarding cap.
const maxUnitsPerRequest = 4

// StockConsumer is the slice of the ledger the request manager needs.
type StockConsumer interface {
	Consume(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int) (bool, error)
}

// Notifier delivers engine messages into the notification sink.
type Notifier interface {
	Notify(ctx context.Context, q txn.Querier, userID uuid.UUID, message, category string) error
}

// Journal records domain events inside the operation's transaction.
type Journal interface {
	AppendTx(ctx context.Context, q txn.Querier, aggregateID uuid.UUID, aggregateType, eventType string, data any) error
}

// service implements the Service interface.
type service struct {
	db       *sql.DB
	runner   txn.Runner
	stock    StockConsumer
	notifier Notifier
	journal  Journal
}

// NewService creates a new request manager instance.
func NewService(db *sql.DB, runner txn.Runner, stock StockConsumer, notifier Notifier, jnl Journal) Service {
	return &service{
		db:       db,
		runner:   runner,
		stock:    stock,
		notifier: notifier,
		journal:  jnl,
	}
}

// Create opens a Pending request for the recipient.
func (s *service) Create(ctx context.Context, recipientID uuid.UUID, units int, group blood.Group) (*Request, error) {
	if units <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "units required must be positive")
	}
	if units > maxUnitsPerRequest {
		return nil, apperrors.Newf(apperrors.CodeValidation,
			"Request limit exceeded. You can request a maximum of %d units.", maxUnitsPerRequest)
	}

	req := &Request{
		ID:            uuid.New(),
		RecipientID:   recipientID,
		Group:         group,
		UnitsRequired: units,
		Status:        StatusPending,
		RequestedAt:   time.Now().UTC(),
	}

	err := s.runner.RunInTx(ctx, func(q txn.Querier) error {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM recipients WHERE id = $1)`, recipientID).Scan(&exists); err != nil {
			return fmt.Errorf("check recipient: %w", err)
		}
		if !exists {
			return apperrors.New(apperrors.CodeNotFound, "recipient not found")
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO requests (id, recipient_id, blood_group, units_required, units_collected, status, requested_at)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
		`, req.ID, req.RecipientID, req.Group.String(), req.UnitsRequired, req.Status, req.RequestedAt)
		if err != nil {
			return fmt.Errorf("insert request: %w", err)
		}

		return s.journal.AppendTx(ctx, q, req.ID, journal.AggregateRequest, journal.EventRequestCreated, RequestCreatedEvent{
			RequestID:     req.ID,
			RecipientID:   recipientID,
			Group:         group,
			UnitsRequired: units,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve transitions Pending → Approved and notifies the recipient.
func (s *service) Approve(ctx context.Context, requestID, managerUserID uuid.UUID) error {
	return s.runner.RunInTx(ctx, func(q txn.Querier) error {
		var managerID uuid.UUID
		err := q.QueryRowContext(ctx, `SELECT id FROM managers WHERE user_id = $1`, managerUserID).Scan(&managerID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.CodeNotFound, "manager not found")
		}
		if err != nil {
			return fmt.Errorf("load manager: %w", err)
		}

		var status Status
		var recipientUserID uuid.UUID
		err = q.QueryRowContext(ctx, `
			SELECT r.status, rec.user_id
			FROM requests r
			JOIN recipients rec ON rec.id = r.recipient_id
			WHERE r.id = $1
			FOR UPDATE OF r
		`, requestID).Scan(&status, &recipientUserID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.CodeNotFound, "Request not found.")
		}
		if err != nil {
			return fmt.Errorf("load request: %w", err)
		}

		if !status.CanTransitionTo(StatusApproved) {
			return apperrors.Newf(apperrors.CodeConsistency, "only pending requests can be approved, current status is %s", status)
		}

		_, err = q.ExecContext(ctx, `
			UPDATE requests
			SET status = $1, approved_by = $2, approved_at = $3
			WHERE id = $4
		`, StatusApproved, managerID, time.Now().UTC(), requestID)
		if err != nil {
			return fmt.Errorf("approve request: %w", err)
		}

		if err := s.notifier.Notify(ctx, q, recipientUserID,
			"Your request has been approved and is in process.", notification.CategoryGeneral); err != nil {
			return err
		}

		return s.journal.AppendTx(ctx, q, requestID, journal.AggregateRequest, journal.EventRequestApproved, RequestApprovedEvent{
			RequestID: requestID,
			ManagerID: managerID,
		})
	})
}

// Fulfill manually consumes stock from the recipient's area and closes
// the request. Automatic fulfillment through exchange donations never
// comes here; the donation itself is the supply.
func (s *service) Fulfill(ctx context.Context, requestID uuid.UUID) error {
	return s.runner.RunInTx(ctx, func(q txn.Querier) error {
		var (
			status          Status
			group           string
			unitsRequired   int
			areaID          uuid.UUID
			recipientUserID uuid.UUID
		)
		err := q.QueryRowContext(ctx, `
			SELECT r.status, r.blood_group, r.units_required, rec.area_id, rec.user_id
			FROM requests r
			JOIN recipients rec ON rec.id = r.recipient_id
			WHERE r.id = $1
			FOR UPDATE OF r
		`, requestID).Scan(&status, &group, &unitsRequired, &areaID, &recipientUserID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.CodeNotFound, "Request not found.")
		}
		if err != nil {
			return fmt.Errorf("load request: %w", err)
		}

		if !status.CanTransitionTo(StatusFulfilled) {
			return apperrors.Newf(apperrors.CodeConsistency, "request cannot be fulfilled from status %s", status)
		}

		ok, err := s.stock.Consume(ctx, q, areaID, blood.Group(group), unitsRequired)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.New(apperrors.CodeConsistency, "Insufficient stock in this area to fulfill request.")
		}

		_, err = q.ExecContext(ctx, `
			UPDATE requests SET status = $1, fulfilled_at = $2 WHERE id = $3
		`, StatusFulfilled, time.Now().UTC(), requestID)
		if err != nil {
			return fmt.Errorf("fulfill request: %w", err)
		}

		if err := s.notifier.Notify(ctx, q, recipientUserID,
			"Your blood request has been fulfilled. Please come to collect.", notification.CategoryCollection); err != nil {
			return err
		}

		return s.journal.AppendTx(ctx, q, requestID, journal.AggregateRequest, journal.EventRequestFulfilled, RequestFulfilledEvent{
			RequestID: requestID,
			Manual:    true,
		})
	})
}

// ListActive returns open requests for the exchange pick list.
func (s *service) ListActive(ctx context.Context, areaID *uuid.UUID) ([]ActiveRequest, error) {
	query := `
		SELECT r.id, rec.name, r.blood_group, r.units_required, r.units_collected
		FROM requests r
		JOIN recipients rec ON rec.id = r.recipient_id
		WHERE r.status IN ($1, $2)
	`
	args := []any{StatusPending, StatusApproved}
	if areaID != nil {
		args = append(args, *areaID)
		query += fmt.Sprintf(" AND rec.area_id = $%d", len(args))
	}
	query += " ORDER BY r.requested_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active requests: %w", err)
	}
	defer rows.Close()

	var reqs []ActiveRequest
	for rows.Next() {
		var ar ActiveRequest
		var group string
		if err := rows.Scan(&ar.ID, &ar.RecipientName, &group, &ar.UnitsRequired, &ar.UnitsCollected); err != nil {
			return nil, fmt.Errorf("scan active request: %w", err)
		}
		ar.Group = blood.Group(group)
		reqs = append(reqs, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active requests: %w", err)
	}
	return reqs, nil
}

// RecipientIDForUser resolves a user's recipient profile.
func (s *service) RecipientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM recipients WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, apperrors.New(apperrors.CodeNotFound, "recipient not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve recipient: %w", err)
	}
	return id, nil
}

// ExchangeInfo loads the request facts the exchange pre-check needs.
func (s *service) ExchangeInfo(ctx context.Context, q txn.Querier, requestID uuid.UUID) (*ExchangeInfo, error) {
	info := &ExchangeInfo{RequestID: requestID}
	var group string
	err := q.QueryRowContext(ctx, `
		SELECT r.blood_group, r.status, rec.area_id, rec.user_id
		FROM requests r
		JOIN recipients rec ON rec.id = r.recipient_id
		WHERE r.id = $1
	`, requestID).Scan(&group, &info.Status, &info.RecipientAreaID, &info.RecipientUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Request not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load request for exchange: %w", err)
	}
	info.Group = blood.Group(group)
	return info, nil
}

// AddCollected credits donated units against the request, transitioning
// to Fulfilled at the threshold. Runs inside the donation transaction.
func (s *service) AddCollected(ctx context.Context, q txn.Querier, requestID uuid.UUID, units int) (*CollectResult, error) {
	if units <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "collected units must be positive")
	}

	var (
		status          Status
		required        int
		collected       int
		recipientUserID uuid.UUID
	)
	err := q.QueryRowContext(ctx, `
		SELECT r.status, r.units_required, r.units_collected, rec.user_id
		FROM requests r
		JOIN recipients rec ON rec.id = r.recipient_id
		WHERE r.id = $1
		FOR UPDATE OF r
	`, requestID).Scan(&status, &required, &collected, &recipientUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Request not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load request for collection: %w", err)
	}

	if !status.Active() {
		return nil, apperrors.Newf(apperrors.CodeConsistency, "request is already %s", status)
	}

	collected += units
	res := &CollectResult{RecipientUserID: recipientUserID}

	if collected >= required {
		res.Fulfilled = true
		_, err = q.ExecContext(ctx, `
			UPDATE requests SET units_collected = $1, status = $2, fulfilled_at = $3 WHERE id = $4
		`, collected, StatusFulfilled, time.Now().UTC(), requestID)
	} else {
		_, err = q.ExecContext(ctx, `
			UPDATE requests SET units_collected = $1 WHERE id = $2
		`, collected, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("credit collected units: %w", err)
	}

	if res.Fulfilled {
		if err := s.journal.AppendTx(ctx, q, requestID, journal.AggregateRequest, journal.EventRequestFulfilled, RequestFulfilledEvent{
			RequestID: requestID,
			Manual:    false,
		}); err != nil {
			return nil, err
		}
	}
	return res, nil
}
