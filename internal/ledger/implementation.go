package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"bloodlink/internal/journal"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// Journal appends stock events inside the caller's transaction.
type Journal interface {
	AppendTx(ctx context.Context, q txn.Querier, aggregateID uuid.UUID, aggregateType, eventType string, data any) error
}

// service implements the Service interface over PostgreSQL.
type service struct {
	db      *sql.DB
	journal Journal
	tracer  trace.Tracer

	unitsAdded    metric.Int64Counter
	unitsConsumed metric.Int64Counter
	insufficient  metric.Int64Counter
}

// NewService creates a new stock ledger instance.
func NewService(db *sql.DB, jnl Journal) Service {
	meter := otel.Meter("bloodlink/ledger")
	unitsAdded, _ := meter.Int64Counter("ledger.units_added")
	unitsConsumed, _ := meter.Int64Counter("ledger.units_consumed")
	insufficient, _ := meter.Int64Counter("ledger.consume_insufficient")

	return &service{
		db:            db,
		journal:       jnl,
		tracer:        otel.Tracer("bloodlink/ledger"),
		unitsAdded:    unitsAdded,
		unitsConsumed: unitsConsumed,
		insufficient:  insufficient,
	}
}

// AddBatch inserts a new batch row. The only validation is the unit
// count; everything else was checked by the caller.
func (s *service) AddBatch(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int, donationID uuid.UUID) (uuid.UUID, error) {
	if units < 0 {
		return uuid.Nil, apperrors.New(apperrors.CodeValidation, "batch units must not be negative")
	}

	id := uuid.New()
	var donation any
	if donationID != uuid.Nil {
		donation = donationID
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO stock_batches (id, area_id, blood_group, units, donation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, areaID, group.String(), units, donation, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert stock batch: %w", err)
	}

	err = s.journal.AppendTx(ctx, q, id, journal.AggregateStock, journal.EventStockAdded, AddedEvent{
		AreaID:     areaID,
		Group:      group,
		Units:      units,
		DonationID: donationID,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.unitsAdded.Add(ctx, int64(units), metric.WithAttributes(
		attribute.String("blood.group", group.String()),
	))
	return id, nil
}

// Consume locks the pool's batches oldest first, verifies sufficiency and
// applies the FIFO plan. Row locks plus the serializable transaction
// around the caller close the race between the sum check and the
// deduction.
func (s *service) Consume(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.consume",
		trace.WithAttributes(
			attribute.String("area.id", areaID.String()),
			attribute.String("blood.group", group.String()),
			attribute.Int("units.needed", units),
		),
	)
	defer span.End()

	if units <= 0 {
		return false, apperrors.New(apperrors.CodeValidation, "units to consume must be positive")
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, units
		FROM stock_batches
		WHERE area_id = $1 AND blood_group = $2
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`, areaID, group.String())
	if err != nil {
		return false, fmt.Errorf("lock stock batches: %w", err)
	}
	defer rows.Close()

	var batches []batchState
	for rows.Next() {
		var b batchState
		if err := rows.Scan(&b.ID, &b.Units); err != nil {
			return false, fmt.Errorf("scan stock batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate stock batches: %w", err)
	}

	steps, ok := consumePlan(batches, units)
	if !ok {
		span.SetAttributes(attribute.Bool("stock.insufficient", true))
		s.insufficient.Add(ctx, 1, metric.WithAttributes(
			attribute.String("blood.group", group.String()),
		))
		return false, nil
	}

	for _, step := range steps {
		if step.Delete {
			_, err = q.ExecContext(ctx, `DELETE FROM stock_batches WHERE id = $1`, step.BatchID)
		} else {
			_, err = q.ExecContext(ctx, `UPDATE stock_batches SET units = units - $1 WHERE id = $2`, step.Take, step.BatchID)
		}
		if err != nil {
			return false, fmt.Errorf("apply consume step: %w", err)
		}

		err = s.journal.AppendTx(ctx, q, step.BatchID, journal.AggregateStock, journal.EventStockConsumed, ConsumedEvent{
			AreaID:  areaID,
			Group:   group,
			Units:   step.Take,
			Drained: step.Delete,
		})
		if err != nil {
			return false, err
		}
	}

	s.unitsConsumed.Add(ctx, int64(units), metric.WithAttributes(
		attribute.String("blood.group", group.String()),
	))
	return true, nil
}

// Inventory aggregates stock per (area, group) with optional filters.
func (s *service) Inventory(ctx context.Context, f Filter) ([]InventoryLevel, error) {
	query := `
		SELECT a.id, a.name, s.blood_group, SUM(s.units) AS total_units
		FROM stock_batches s
		JOIN areas a ON a.id = s.area_id
	`
	var conds []string
	var args []any
	if f.AreaID != nil {
		args = append(args, *f.AreaID)
		conds = append(conds, fmt.Sprintf("s.area_id = $%d", len(args)))
	}
	if f.Group != nil {
		args = append(args, f.Group.String())
		conds = append(conds, fmt.Sprintf("s.blood_group = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += `
		GROUP BY a.id, a.name, s.blood_group
		ORDER BY a.name, s.blood_group
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var levels []InventoryLevel
	for rows.Next() {
		var lvl InventoryLevel
		var group string
		if err := rows.Scan(&lvl.AreaID, &lvl.AreaName, &group, &lvl.TotalUnits); err != nil {
			return nil, fmt.Errorf("scan inventory level: %w", err)
		}
		lvl.Group = blood.Group(group)
		levels = append(levels, lvl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory levels: %w", err)
	}
	return levels, nil
}
