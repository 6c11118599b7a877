package donation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldown(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		last          time.Time
		wantSince     int
		wantDaysLeft  int
	}{
		{"same day", now, 0, 30},
		{"one day ago", now.AddDate(0, 0, -1), 1, 29},
		{"twenty nine days ago", now.AddDate(0, 0, -29), 29, 1},
		{"exactly thirty days ago", now.AddDate(0, 0, -30), 30, 0},
		{"long past", now.AddDate(0, 0, -90), 90, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			since, left := cooldown(tc.last, now)
			assert.Equal(t, tc.wantSince, since)
			assert.Equal(t, tc.wantDaysLeft, left)
		})
	}
}

func TestCooldownComparesDatesNotInstants(t *testing.T) {
	last := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)

	since, left := cooldown(last, now)
	assert.Equal(t, 1, since)
	assert.Equal(t, 29, left)
}
