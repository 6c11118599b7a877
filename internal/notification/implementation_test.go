package notification

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/testdb"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

func newTestService(t *testing.T) (*sql.DB, txn.Runner, Service) {
	db := testdb.Connect(t)
	runner := txn.NewRunner(db)
	return db, runner, NewService(db, runner)
}

func seedUser(t *testing.T, db *sql.DB, email, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, password_hash, salt, role) VALUES ($1, $2, 'x', 'x', $3)`,
		id, email, role)
	require.NoError(t, err)
	return id
}

func TestNotifyAndList(t *testing.T) {
	db, runner, svc := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, db, "u@example.com", "donor")

	for i := 0; i < 3; i++ {
		require.NoError(t, runner.RunInTx(ctx, func(q txn.Querier) error {
			return svc.Notify(ctx, q, userID, fmt.Sprintf("message %d", i), CategoryGeneral)
		}))
	}

	items, total, err := svc.List(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "message 2", items[0].Message, "newest first")

	unread, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
}

func TestNotifyRollsBackWithTransaction(t *testing.T) {
	db, runner, svc := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, db, "u@example.com", "donor")

	sentinel := apperrors.New(apperrors.CodeConsistency, "abort")
	err := runner.RunInTx(ctx, func(q txn.Querier) error {
		if err := svc.Notify(ctx, q, userID, "never delivered", CategoryGeneral); err != nil {
			return err
		}
		return sentinel
	})
	require.Error(t, err)

	_, total, err := svc.List(ctx, userID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total, "a rolled-back operation leaves no message behind")
}

func TestMarkReadOwnership(t *testing.T) {
	db, runner, svc := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@example.com", "donor")
	stranger := seedUser(t, db, "stranger@example.com", "donor")

	require.NoError(t, runner.RunInTx(ctx, func(q txn.Querier) error {
		return svc.Notify(ctx, q, owner, "hello", CategoryGeneral)
	}))
	items, _, err := svc.List(ctx, owner, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	err = svc.MarkRead(ctx, items[0].ID, stranger)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	require.NoError(t, svc.MarkRead(ctx, items[0].ID, owner))
	unread, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMarkAllRead(t *testing.T) {
	db, runner, svc := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, db, "u@example.com", "recipient")

	for i := 0; i < 3; i++ {
		require.NoError(t, runner.RunInTx(ctx, func(q txn.Querier) error {
			return svc.Notify(ctx, q, userID, "msg", CategoryGeneral)
		}))
	}

	require.NoError(t, svc.MarkAllRead(ctx, userID))
	unread, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestBroadcastToDonorCohort(t *testing.T) {
	db, _, svc := newTestService(t)
	ctx := context.Background()

	area := uuid.New()
	_, err := db.ExecContext(ctx, `INSERT INTO areas (id, name) VALUES ($1, 'Central')`, area)
	require.NoError(t, err)

	addDonor := func(email string, group blood.Group) uuid.UUID {
		userID := seedUser(t, db, email, "donor")
		_, err := db.ExecContext(ctx,
			`INSERT INTO donors (id, user_id, name, blood_group, area_id) VALUES ($1, $2, 'D', $3, $4)`,
			uuid.New(), userID, string(group), area)
		require.NoError(t, err)
		return userID
	}
	matching := addDonor("o-neg@example.com", blood.ONegative)
	addDonor("a-pos@example.com", blood.APositive)
	recipientUser := seedUser(t, db, "r@example.com", "recipient")

	group := blood.ONegative
	count, err := svc.Broadcast(ctx, "Donor", &group, "O- urgently needed")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, total, err := svc.List(ctx, matching, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = svc.List(ctx, recipientUser, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBroadcastAll(t *testing.T) {
	db, _, svc := newTestService(t)
	ctx := context.Background()

	seedUser(t, db, "a@example.com", "donor")
	seedUser(t, db, "b@example.com", "manager")

	count, err := svc.Broadcast(ctx, "All", nil, "maintenance window tonight")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBroadcastUnknownCohort(t *testing.T) {
	_, _, svc := newTestService(t)

	_, err := svc.Broadcast(context.Background(), "Aliens", nil, "hi")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
