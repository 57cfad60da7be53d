package storage

import (
	"errors"
	"time"
)

var ErrIncompleteProfile = errors.New("profile needs weight and height")

// HistoryRecord is one finished session. Never mutated after Append.
type HistoryRecord struct {
	ID       int64 // creation time, ms epoch
	Date     time.Time
	Duration int // seconds, wall clock
	FullDay  bool
	Sport    string
}

// Profile is the single user profile, keyed "user".
type Profile struct {
	Gender   string
	WeightKg float64
	HeightCm float64
}

func (p Profile) Validate() error {
	if p.WeightKg <= 0 || p.HeightCm <= 0 {
		return ErrIncompleteProfile
	}
	return nil
}

// Snapshot is the durable "a session is running since StartedAt" marker.
type Snapshot struct {
	Running   bool
	StartedAt time.Time
	Sport     string
	LangPref  string
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
