package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusFulfilled, true},
		{StatusApproved, StatusFulfilled, true},
		{StatusApproved, StatusApproved, false},
		{StatusApproved, StatusPending, false},
		{StatusFulfilled, StatusApproved, false},
		{StatusFulfilled, StatusFulfilled, false},
		{StatusFulfilled, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusActive(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusApproved.Active())
	assert.False(t, StatusFulfilled.Active())
}
