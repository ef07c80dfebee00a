// Package streak computes journaling streaks: runs of consecutive calendar
// days that each hold at least one entry.
package streak

import (
	"fmt"
	"sort"
	"time"
)

// Result holds the live streak ending today or yesterday and the longest
// streak anywhere in the history.
type Result struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Calculate reduces timestamps to calendar days in now's location and
// returns the current and longest streaks. The current streak is zero unless
// the most recent day is today or yesterday relative to now.
func Calculate(timestamps []time.Time, now time.Time) Result {
	if len(timestamps) == 0 {
		return Result{}
	}

	loc := now.Location()
	days := distinctDays(timestamps, loc)

	longest, run := 1, 1
	leading := 0 // length of the run that starts at the most recent day
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] == 1 {
			run++
		} else {
			if leading == 0 {
				leading = run
			}
			if run > longest {
				longest = run
			}
			run = 1
		}
	}
	if leading == 0 {
		leading = run
	}
	if run > longest {
		longest = run
	}

	current := 0
	if dayNumber(now, loc)-days[0] <= 1 {
		current = leading
	}

	return Result{Current: current, Longest: longest}
}

// distinctDays returns day numbers sorted most recent first, without
// duplicates.
func distinctDays(timestamps []time.Time, loc *time.Location) []int64 {
	seen := make(map[int64]struct{}, len(timestamps))
	days := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		d := dayNumber(ts, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })
	return days
}

// dayNumber maps t to the count of civil days since the Unix epoch for its
// calendar date in loc. Using the civil date keeps DST shifts from producing
// 23 or 25 hour "days".
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Motivation returns the encouragement line shown next to a current streak.
func Motivation(current int) string {
	switch {
	case current <= 0:
		return "Start your dream journal journey tonight!"
	case current == 1:
		return "Great start! Keep going to build your streak."
	case current == 2:
		return "You're on a roll! 2 days in a row!"
	case current <= 6:
		return fmt.Sprintf("Amazing! %d days straight. You're building a habit!", current)
	case current == 7:
		return "One week streak! You're a dream journaling champion!"
	case current <= 13:
		return fmt.Sprintf("Incredible! %d days of consistent dream recording.", current)
	case current == 14:
		return "Two weeks! You're a dream master!"
	case current <= 29:
		return fmt.Sprintf("Legendary! %d days of dedication.", current)
	case current == 30:
		return "30 DAYS! You've achieved dream journal mastery!"
	default:
		return fmt.Sprintf("%d days! You're an inspiration!", current)
	}
}
