package storage

import (
	"fmt"
	"strings"
	"time"
)

// Mood is the closed set of emotional tones an entry can carry.
type Mood string

const (
	MoodPleasant  Mood = "pleasant"
	MoodNeutral   Mood = "neutral"
	MoodNightmare Mood = "nightmare"
	MoodLucid     Mood = "lucid"
	MoodConfusing Mood = "confusing"
)

// Moods lists every valid mood in display order.
var Moods = []Mood{MoodPleasant, MoodNeutral, MoodNightmare, MoodLucid, MoodConfusing}

// ParseMood accepts a mood name case-insensitively. An empty string yields
// MoodNeutral.
func ParseMood(s string) (Mood, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MoodNeutral, nil
	}
	for _, m := range Moods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mood %q", s)
}

// Entry is one journaled dream.
type Entry struct {
	ID        string
	Timestamp time.Time
	Title     string
	Body      string
	Mood      Mood
	Symbols   []string
	AISummary *string
	IsFlagged bool
}

// Symbol is an aggregated motif. Name identity is case-insensitive.
type Symbol struct {
	ID          string
	Name        string
	Category    string
	Occurrences int
	Meanings    []string
	Context     *string
	CreatedAt   time.Time
}

// Pattern is one batch analysis snapshot.
type Pattern struct {
	ID               string
	RecurringSymbols []string
	Trends           []string
	Recommendations  []string
	ComputedAt       time.Time
}

// SortOrder selects how entry listings are ordered.
type SortOrder string

const (
	SortDateDesc  SortOrder = "date_desc"
	SortDateAsc   SortOrder = "date_asc"
	SortTitleAsc  SortOrder = "title_asc"
	SortTitleDesc SortOrder = "title_desc"
)

// EntryQuery defines filters for listing entries.
type EntryQuery struct {
	Query       string
	Mood        Mood
	Since       time.Time
	Until       time.Time
	FlaggedOnly bool
	Sort        SortOrder
	Limit       int
	Offset      int
}

// Stats holds aggregate statistics about the journal database.
type Stats struct {
	TotalEntries      int64
	TotalSymbols      int64
	TotalPatterns     int64
	FlaggedEntries    int64
	OldestEntry       time.Time
	NewestEntry       time.Time
	DatabaseSizeBytes int64
	Moods             []MoodCount
}

// MoodCount pairs a mood with its entry count.
type MoodCount struct {
	Mood  Mood
	Count int64
}

// AuditRecord is one row of the audit trail.
type AuditRecord struct {
	Action    string
	Detail    string
	EntryID   string
	Timestamp time.Time
}
