// Package journal is the append-only domain event log. Every engine
// operation appends its events inside the same transaction that mutates
// state, so the journal never records an operation that rolled back.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/txn"
)

// Aggregate types recorded in the journal.
const (
	AggregateDonation = "donation"
	AggregateRequest  = "request"
	AggregateStock    = "stock"
)

// Event types emitted by the engine.
const (
	EventDonationRecorded = "DonationRecorded"
	EventStockAdded       = "StockAdded"
	EventStockConsumed    = "StockConsumed"
	EventRequestCreated   = "RequestCreated"
	EventRequestApproved  = "RequestApproved"
	EventRequestFulfilled = "RequestFulfilled"
)

// Event is one immutable journal entry.
type Event struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Journal appends and reads domain events.
type Journal struct {
	db     *sql.DB
	tracer trace.Tracer
}

// New creates a journal over db. Reads use db directly; appends join the
// caller's transaction.
func New(db *sql.DB) *Journal {
	return &Journal{
		db:     db,
		tracer: otel.Tracer("bloodlink/journal"),
	}
}

// AppendTx appends one event for the aggregate at the next version,
// inside the caller's transaction. A duplicate (aggregate, version) pair
// means a concurrent writer won; the unique index turns that into a
// conflict error and the whole enclosing transaction rolls back.
func (j *Journal) AppendTx(ctx context.Context, q txn.Querier, aggregateID uuid.UUID, aggregateType, eventType string, data any) error {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.String("event.type", eventType),
		),
	)
	defer span.End()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	var version int
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM journal_events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query current version: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO journal_events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, aggregateID, aggregateType, eventType, payload, version+1, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return apperrors.Wrap(err, apperrors.CodeConflict, "operation conflicted with a concurrent update, please resubmit")
		}
		return fmt.Errorf("insert event: %w", err)
	}

	span.SetAttributes(attribute.Int("event.version", version+1))
	return nil
}

// Load retrieves every event for one aggregate in version order.
func (j *Journal) Load(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM journal_events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// Stream returns up to limit events with id greater than afterID, in
// insertion order. The audit surface pages through the journal with it.
func (j *Journal) Stream(ctx context.Context, afterID int64, limit int) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("after.id", afterID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM journal_events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&event.EventData,
			&event.Version,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
