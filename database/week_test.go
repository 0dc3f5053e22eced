package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentWeek(t *testing.T) {
	wantStart := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.June, 16, 23, 59, 59, 999000000, time.UTC)

	tests := []struct {
		name string
		now  time.Time
	}{
		{"wednesday", time.Date(2024, time.June, 12, 15, 30, 0, 0, time.UTC)},
		{"monday", time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)},
		{"sunday counts as day seven", time.Date(2024, time.June, 16, 23, 59, 59, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := CurrentWeek(tt.now)
			assert.Equal(t, wantStart, start)
			assert.Equal(t, wantEnd, end)
		})
	}
}

func TestCurrentWeekRollsOverOnMonday(t *testing.T) {
	start, end := CurrentWeek(time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.June, 23, 23, 59, 59, 999000000, time.UTC), end)
}

func TestCurrentWeekKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Skip("tzdata not available")
	}

	start, end := CurrentWeek(time.Date(2024, time.June, 12, 8, 0, 0, 0, loc))
	assert.Equal(t, loc, start.Location())
	assert.Equal(t, loc, end.Location())
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Sunday, end.Weekday())
}
