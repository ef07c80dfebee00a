package streak

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var loc = time.FixedZone("test", -5*60*60)

// now is mid-morning so that "today" and "yesterday" are unambiguous.
var now = time.Date(2025, 10, 15, 9, 30, 0, 0, loc)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func TestCalculate_Empty(t *testing.T) {
	assert.Equal(t, Result{0, 0}, Calculate(nil, now))
	assert.Equal(t, Result{0, 0}, Calculate([]time.Time{}, now))
}

func TestCalculate_SingleEntryToday(t *testing.T) {
	assert.Equal(t, Result{1, 1}, Calculate([]time.Time{now}, now))
}

func TestCalculate_SingleEntryYesterdayIsLive(t *testing.T) {
	assert.Equal(t, Result{1, 1}, Calculate([]time.Time{daysAgo(1)}, now))
}

func TestCalculate_SingleEntryTwoDaysAgoIsNotLive(t *testing.T) {
	assert.Equal(t, Result{0, 1}, Calculate([]time.Time{daysAgo(2)}, now))
}

func TestCalculate_TodayYesterdayAndFiveDaysAgo(t *testing.T) {
	got := Calculate([]time.Time{now, daysAgo(1), daysAgo(5)}, now)
	assert.Equal(t, Result{2, 2}, got)
}

func TestCalculate_SameDayDuplicatesCountOnce(t *testing.T) {
	ts := []time.Time{
		now,
		now.Add(-2 * time.Hour),
		now.Add(-9 * time.Hour),
	}
	assert.Equal(t, Result{1, 1}, Calculate(ts, now))
}

func TestCalculate_UnsortedInput(t *testing.T) {
	ts := []time.Time{daysAgo(3), now, daysAgo(2), daysAgo(1)}
	assert.Equal(t, Result{4, 4}, Calculate(ts, now))
}

func TestCalculate_LongestInThePast(t *testing.T) {
	ts := []time.Time{
		now,
		// gap
		daysAgo(10), daysAgo(11), daysAgo(12), daysAgo(13),
	}
	assert.Equal(t, Result{1, 4}, Calculate(ts, now))
}

func TestCalculate_StaleHistoryKeepsLongest(t *testing.T) {
	ts := []time.Time{daysAgo(3), daysAgo(4), daysAgo(5)}
	assert.Equal(t, Result{0, 3}, Calculate(ts, now))
}

func TestCalculate_UsesLocalCalendarDay(t *testing.T) {
	// 23:30 local yesterday and 00:30 local today are different calendar
	// days even though they are an hour apart.
	lateYesterday := time.Date(2025, 10, 14, 23, 30, 0, 0, loc)
	earlyToday := time.Date(2025, 10, 15, 0, 30, 0, 0, loc)

	assert.Equal(t, Result{2, 2}, Calculate([]time.Time{lateYesterday.UTC(), earlyToday.UTC()}, now))
}

func TestCalculate_AcrossDSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST ended on 2025-11-02 in New York; that day is 25 hours long.
	nowNY := time.Date(2025, 11, 3, 8, 0, 0, 0, ny)
	ts := []time.Time{
		time.Date(2025, 11, 1, 22, 0, 0, 0, ny),
		time.Date(2025, 11, 2, 23, 30, 0, 0, ny),
		time.Date(2025, 11, 3, 0, 15, 0, 0, ny),
	}
	assert.Equal(t, Result{3, 3}, Calculate(ts, nowNY))
}

func TestCalculate_LongestAtLeastCurrent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := 1 + r.Intn(30)
		ts := make([]time.Time, n)
		for j := range ts {
			ts[j] = daysAgo(r.Intn(40)).Add(-time.Duration(r.Intn(8)) * time.Hour)
		}
		got := Calculate(ts, now)
		assert.GreaterOrEqual(t, got.Longest, got.Current, "input %v", ts)
		assert.GreaterOrEqual(t, got.Longest, 1)
	}
}

func TestMotivation(t *testing.T) {
	tests := []struct {
		current  int
		contains string
	}{
		{0, "Start your dream journal"},
		{1, "Great start"},
		{2, "2 days in a row"},
		{5, "5 days straight"},
		{7, "One week"},
		{10, "10 days of consistent"},
		{14, "Two weeks"},
		{20, "Legendary! 20 days"},
		{30, "30 DAYS"},
		{45, "45 days!"},
	}
	for _, tc := range tests {
		assert.Contains(t, Motivation(tc.current), tc.contains, "current=%d", tc.current)
	}
}
