package service

import (
	"testing"
	"time"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNextOccurrencesDaily(t *testing.T) {
	seriesStart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	from := seriesStart
	until := seriesStart.Add(3 * 24 * time.Hour)

	got := NextOccurrences(models.RecurrenceDaily, seriesStart, from, until)

	// The template start itself is not an occurrence
	assert.Equal(t, []time.Time{
		seriesStart.Add(24 * time.Hour),
		seriesStart.Add(48 * time.Hour),
		seriesStart.Add(72 * time.Hour),
	}, got)
}

func TestNextOccurrencesWeekly(t *testing.T) {
	seriesStart := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	until := seriesStart.Add(30 * 24 * time.Hour)

	got := NextOccurrences(models.RecurrenceWeekly, seriesStart, seriesStart, until)

	assert.Len(t, got, 4)
	for i, occ := range got {
		assert.Equal(t, seriesStart.Add(time.Duration(i+1)*7*24*time.Hour), occ)
	}
}

func TestNextOccurrencesSkipsPast(t *testing.T) {
	seriesStart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Expansion running 10 days in only yields the instances still ahead
	from := seriesStart.Add(10 * 24 * time.Hour)
	until := seriesStart.Add(12 * 24 * time.Hour)

	got := NextOccurrences(models.RecurrenceDaily, seriesStart, from, until)

	assert.Equal(t, []time.Time{
		seriesStart.Add(11 * 24 * time.Hour),
		seriesStart.Add(12 * 24 * time.Hour),
	}, got)
}

func TestNextOccurrencesUnknownRule(t *testing.T) {
	seriesStart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	got := NextOccurrences(models.RecurrenceNone, seriesStart, seriesStart, seriesStart.Add(7*24*time.Hour))
	assert.Nil(t, got)

	got = NextOccurrences("monthly", seriesStart, seriesStart, seriesStart.Add(7*24*time.Hour))
	assert.Nil(t, got)
}

func TestNextOccurrencesEmptyWindow(t *testing.T) {
	seriesStart := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	got := NextOccurrences(models.RecurrenceDaily, seriesStart, seriesStart, seriesStart.Add(time.Hour))
	assert.Empty(t, got)
}
