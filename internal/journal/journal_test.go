package journal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/testdb"
	"bloodlink/pkg/txn"
)

func TestAppendAndLoad(t *testing.T) {
	db := testdb.Connect(t)
	runner := txn.NewRunner(db)
	j := New(db)
	ctx := context.Background()

	aggregateID := uuid.New()
	payload := map[string]any{"units": 1}

	for i := 0; i < 3; i++ {
		require.NoError(t, runner.RunInTx(ctx, func(q txn.Querier) error {
			return j.AppendTx(ctx, q, aggregateID, AggregateDonation, EventDonationRecorded, payload)
		}))
	}

	events, err := j.Load(ctx, aggregateID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version, "versions are dense and ordered")
		assert.Equal(t, AggregateDonation, e.AggregateType)
		assert.Equal(t, EventDonationRecorded, e.EventType)
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(events[0].EventData, &decoded))
	assert.Equal(t, float64(1), decoded["units"])
}

func TestAppendRollsBackWithTransaction(t *testing.T) {
	db := testdb.Connect(t)
	runner := txn.NewRunner(db)
	j := New(db)
	ctx := context.Background()

	aggregateID := uuid.New()
	sentinel := assert.AnError
	err := runner.RunInTx(ctx, func(q txn.Querier) error {
		if err := j.AppendTx(ctx, q, aggregateID, AggregateStock, EventStockAdded, nil); err != nil {
			return err
		}
		return sentinel
	})
	require.Error(t, err)

	events, err := j.Load(ctx, aggregateID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStreamPagination(t *testing.T) {
	db := testdb.Connect(t)
	runner := txn.NewRunner(db)
	j := New(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, runner.RunInTx(ctx, func(q txn.Querier) error {
			return j.AppendTx(ctx, q, uuid.New(), AggregateRequest, EventRequestCreated, nil)
		}))
	}

	first, err := j.Stream(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := j.Stream(ctx, first[2].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Greater(t, rest[0].ID, first[2].ID)
}
