package exchange

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/request"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
	"bloodlink/pkg/txn"
)

func TestDecide(t *testing.T) {
	area, otherArea := uuid.New(), uuid.New()

	assert.Equal(t, OutcomeMismatch, Decide(area, otherArea, blood.APositive, blood.APositive))
	assert.Equal(t, OutcomeDirect, Decide(area, area, blood.APositive, blood.APositive))
	assert.Equal(t, OutcomeSwap, Decide(area, area, blood.APositive, blood.ONegative))
}

type fakeRequests struct {
	info *request.ExchangeInfo
	err  error
}

func (f *fakeRequests) ExchangeInfo(context.Context, txn.Querier, uuid.UUID) (*request.ExchangeInfo, error) {
	return f.info, f.err
}

type fakeStock struct {
	ok       bool
	consumed int
	area     uuid.UUID
	group    blood.Group
}

func (f *fakeStock) Consume(_ context.Context, _ txn.Querier, areaID uuid.UUID, group blood.Group, units int) (bool, error) {
	f.consumed += units
	f.area = areaID
	f.group = group
	return f.ok, nil
}

func TestPreCheckDirectExchangeSkipsStock(t *testing.T) {
	area := uuid.New()
	stock := &fakeStock{ok: true}
	c := NewCoordinator(&fakeRequests{info: &request.ExchangeInfo{
		Group:           blood.BPositive,
		RecipientAreaID: area,
		Status:          request.StatusApproved,
	}}, stock)

	res, err := c.PreCheck(context.Background(), nil, area, blood.BPositive, uuid.New(), 1)
	require.NoError(t, err)
	assert.True(t, res.Direct)
	assert.Zero(t, stock.consumed, "direct exchange must not touch the stock pool")
}

func TestPreCheckAreaMismatch(t *testing.T) {
	c := NewCoordinator(&fakeRequests{info: &request.ExchangeInfo{
		Group:           blood.BPositive,
		RecipientAreaID: uuid.New(),
		Status:          request.StatusPending,
	}}, &fakeStock{ok: true})

	_, err := c.PreCheck(context.Background(), nil, uuid.New(), blood.BPositive, uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConsistency, apperrors.CodeOf(err))
	assert.Contains(t, apperrors.MessageOf(err), "Location Mismatch")
}

func TestPreCheckSwapConsumesRequestedGroup(t *testing.T) {
	area := uuid.New()
	stock := &fakeStock{ok: true}
	c := NewCoordinator(&fakeRequests{info: &request.ExchangeInfo{
		Group:           blood.ONegative,
		RecipientAreaID: area,
		Status:          request.StatusPending,
	}}, stock)

	res, err := c.PreCheck(context.Background(), nil, area, blood.APositive, uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, res.Direct)
	assert.Equal(t, 1, stock.consumed)
	assert.Equal(t, area, stock.area)
	assert.Equal(t, blood.ONegative, stock.group, "swap must consume the requested group, not the donor's")
}

func TestPreCheckSwapInsufficientStock(t *testing.T) {
	area := uuid.New()
	c := NewCoordinator(&fakeRequests{info: &request.ExchangeInfo{
		Group:           blood.ONegative,
		RecipientAreaID: area,
		Status:          request.StatusPending,
	}}, &fakeStock{ok: false})

	_, err := c.PreCheck(context.Background(), nil, area, blood.APositive, uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConsistency, apperrors.CodeOf(err))
	assert.Contains(t, apperrors.MessageOf(err), "Insufficient stock")
}

func TestPreCheckFulfilledRequestRefused(t *testing.T) {
	area := uuid.New()
	c := NewCoordinator(&fakeRequests{info: &request.ExchangeInfo{
		Group:           blood.APositive,
		RecipientAreaID: area,
		Status:          request.StatusFulfilled,
	}}, &fakeStock{ok: true})

	_, err := c.PreCheck(context.Background(), nil, area, blood.APositive, uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConsistency, apperrors.CodeOf(err))
}

func TestPreCheckRequestNotFound(t *testing.T) {
	c := NewCoordinator(&fakeRequests{err: apperrors.New(apperrors.CodeNotFound, "Request not found.")}, &fakeStock{})

	_, err := c.PreCheck(context.Background(), nil, uuid.New(), blood.APositive, uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}
