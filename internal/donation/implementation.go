// internal/donation/implementation.go
package donation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"bloodlink/internal/exchange"
	"bloodlink/internal/journal"
	"bloodlink/internal/notification"
	"bloodlink/internal/request"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

// StockAdder records incoming batches on the ledger.
type StockAdder interface {
	AddBatch(ctx context.Context, q txn.Querier, areaID uuid.UUID, group blood.Group, units int, donationID uuid.UUID) (uuid.UUID, error)
}

// ExchangeChecker vets exchange donations and consumes swap stock.
type ExchangeChecker interface {
	PreCheck(ctx context.Context, q txn.Querier, donorAreaID uuid.UUID, donorGroup blood.Group, requestID uuid.UUID, units int) (*exchange.Result, error)
}

// RequestCollector credits donated units to the target request.
type RequestCollector interface {
	AddCollected(ctx context.Context, q txn.Querier, requestID uuid.UUID, units int) (*request.CollectResult, error)
}

// Notifier records messages inside the donation transaction.
type Notifier interface {
	Notify(ctx context.Context, q txn.Querier, userID uuid.UUID, message, category string) error
}

// Journal appends domain events inside the donation transaction.
type Journal interface {
	AppendTx(ctx context.Context, q txn.Querier, aggregateID uuid.UUID, aggregateType, eventType string, data any) error
}

// service implements the Service interface.
type service struct {
	db       *sql.DB
	runner   txn.Runner
	stock    StockAdder
	exchange ExchangeChecker
	requests RequestCollector
	notifier Notifier
	journal  Journal
	limiter  *rate.Limiter
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new donation service instance.
func NewService(db *sql.DB, runner txn.Runner, stock StockAdder, ex ExchangeChecker, requests RequestCollector, notifier Notifier, jnl Journal) Service {
	return &service{
		db:       db,
		runner:   runner,
		stock:    stock,
		exchange: ex,
		requests: requests,
		notifier: notifier,
		journal:  jnl,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 20),
		tracer:   otel.Tracer("donation"),
		now:      time.Now,
	}
}

type donorRow struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Group  blood.Group
	AreaID uuid.UUID
}

// Submit runs the full donation pipeline in one serializable
// transaction. Nothing is visible to readers until every step, stock,
// history, request credit and notifications, has succeeded.
func (s *service) Submit(ctx context.Context, in SubmitInput) (*Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.submit")
	defer span.End()

	if !s.limiter.Allow() {
		return nil, apperrors.New(apperrors.CodeConflict, "donation rate limit exceeded, try again shortly")
	}
	if in.Units != 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "Donation limit is strictly 1 unit per session.")
	}

	now := s.now().UTC()
	d := &Donation{
		ID:        uuid.New(),
		DonorID:   in.DonorID,
		Units:     in.Units,
		Exchange:  in.Exchange,
		RequestID: in.RequestID,
		CreatedAt: now,
	}

	err := s.runner.RunInTx(ctx, func(q txn.Querier) error {
		donor, err := s.lockDonor(ctx, q, in.DonorID)
		if err != nil {
			return err
		}
		if in.CallerUserID != uuid.Nil && donor.UserID != in.CallerUserID {
			return apperrors.New(apperrors.CodeUnauthorized, "you may only donate on your own behalf")
		}
		d.Group = donor.Group

		// Donation records are the sole source of truth for the
		// cooldown; donor_history is derived statistics.
		var last sql.NullTime
		err = q.QueryRowContext(ctx,
			`SELECT created_at FROM donations WHERE donor_id = $1 ORDER BY created_at DESC LIMIT 1`,
			donor.ID).Scan(&last)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if last.Valid {
			if daysSince, daysLeft := cooldown(last.Time, now); daysLeft > 0 {
				return apperrors.Newf(apperrors.CodeEligibility,
					"Donor is not eligible. Last donation was %d days ago. Must wait 30 days.", daysSince)
			}
		}

		direct := false
		var collected *request.CollectResult
		if in.Exchange && in.RequestID != nil {
			res, err := s.exchange.PreCheck(ctx, q, donor.AreaID, donor.Group, *in.RequestID, in.Units)
			if err != nil {
				return err
			}
			direct = res.Direct
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO donations (id, donor_id, units, blood_group, exchange, request_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, donor.ID, d.Units, string(d.Group), d.Exchange, nullUUID(d.RequestID), d.CreatedAt)
		if err != nil {
			return err
		}

		// Direct-exchange units are logically handed to the request on
		// the spot; they never enter the pool.
		if !direct {
			if _, err := s.stock.AddBatch(ctx, q, donor.AreaID, donor.Group, d.Units, d.ID); err != nil {
				return err
			}
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO donor_history (donor_id, donated_at, units) VALUES ($1, $2, $3)`,
			donor.ID, d.CreatedAt, d.Units)
		if err != nil {
			return err
		}

		if in.Exchange && in.RequestID != nil {
			collected, err = s.requests.AddCollected(ctx, q, *in.RequestID, d.Units)
			if err != nil {
				return err
			}
			if collected.Fulfilled {
				err = s.notifier.Notify(ctx, q, collected.RecipientUserID,
					"Your blood request has been fulfilled!", notification.CategoryCollection)
				if err != nil {
					return err
				}
			}
		}

		// Availability is a contact preference, not an eligibility
		// cache; donating always switches it off.
		_, err = q.ExecContext(ctx, `UPDATE donors SET available = FALSE WHERE id = $1`, donor.ID)
		if err != nil {
			return err
		}

		err = s.notifier.Notify(ctx, q, donor.UserID,
			fmt.Sprintf("Thank you! Your donation of %d unit(s) has been recorded.", d.Units),
			notification.CategoryGeneral)
		if err != nil {
			return err
		}

		return s.journal.AppendTx(ctx, q, d.ID, journal.AggregateDonation, journal.EventDonationRecorded, RecordedEvent{
			DonorID:   donor.ID,
			Units:     d.Units,
			Group:     d.Group,
			Exchange:  d.Exchange,
			RequestID: d.RequestID,
			Direct:    direct,
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) lockDonor(ctx context.Context, q txn.Querier, donorID uuid.UUID) (*donorRow, error) {
	donor := &donorRow{}
	var group string
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, blood_group, area_id FROM donors WHERE id = $1 FOR UPDATE`,
		donorID).Scan(&donor.ID, &donor.UserID, &group, &donor.AreaID)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.CodeNotFound, "Donor not found.")
	}
	if err != nil {
		return nil, err
	}
	donor.Group = blood.Group(group)
	return donor, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// CheckEligibility reads the latest history row; a donor with no
// history is eligible.
func (s *service) CheckEligibility(ctx context.Context, donorID uuid.UUID) (*Eligibility, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donors WHERE id = $1)`, donorID).Scan(&exists)
	if err != nil {
		return nil, txn.Translate(err)
	}
	if !exists {
		return nil, apperrors.New(apperrors.CodeNotFound, "Donor not found.")
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM donations WHERE donor_id = $1 ORDER BY created_at DESC LIMIT 1`,
		donorID).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, txn.Translate(err)
	}
	if !last.Valid {
		return &Eligibility{Eligible: true}, nil
	}

	_, daysLeft := cooldown(last.Time, s.now().UTC())
	return &Eligibility{Eligible: daysLeft == 0, DaysLeft: daysLeft}, nil
}

// History lists the donor's history rows, newest first.
func (s *service) History(ctx context.Context, donorID uuid.UUID, page, perPage int) ([]HistoryEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donor_history WHERE donor_id = $1`, donorID).Scan(&total)
	if err != nil {
		return nil, 0, txn.Translate(err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, donated_at, units FROM donor_history
		 WHERE donor_id = $1 ORDER BY donated_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		donorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, txn.Translate(err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.DonatedAt, &e.Units); err != nil {
			return nil, 0, txn.Translate(err)
		}
		out = append(out, e)
	}
	return out, total, txn.Translate(rows.Err())
}

// OwnerUserID resolves the user owning a donor profile.
func (s *service) OwnerUserID(ctx context.Context, donorID uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM donors WHERE id = $1`, donorID).Scan(&userID)
	if err == sql.ErrNoRows {
		return uuid.Nil, apperrors.New(apperrors.CodeNotFound, "Donor not found.")
	}
	if err != nil {
		return uuid.Nil, txn.Translate(err)
	}
	return userID, nil
}
