package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/metrics"
	"github.com/lowaak/smart-trainer/coach-app/internal/policy"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

var (
	ErrAlreadyRunning     = errors.New("a session is already running")
	ErrNotRunning         = errors.New("no session is running")
	ErrCatalogUnavailable = errors.New("trainings not loaded")
	ErrProfileIncomplete  = errors.New("profile needs weight and height")
	ErrWeeklyLimitReached = errors.New("weekly limit reached")
	ErrShutdown           = errors.New("session manager is shut down")
)

const (
	MsgFillProfile      = "Please fill weight and height."
	MsgWeeklyLimit      = "Weekly limit reached. Rest soldier!"
	MsgFullDayLogged    = "Full day logged. Hydrate and recover."
	MsgTrainingsMissing = "Trainings not loaded."
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// Mode tells how a running session is driven.
type Mode string

const (
	ModeNone Mode = ""
	// ModeCoaching walks through exercises, reps and pauses with cues.
	ModeCoaching Mode = "coaching"
	// ModeBackground follows a resumed session: elapsed time and metrics only.
	ModeBackground Mode = "background"
)

// Milestone is an always-spoken announcement at an exact elapsed second.
type Milestone struct {
	Second int    `mapstructure:"second" yaml:"second"`
	Text   string `mapstructure:"text" yaml:"text"`
	Lang   string `mapstructure:"lang" yaml:"lang"`
}

var DefaultMilestones = []Milestone{
	{Second: 1800, Text: "Thirty minutes. Ping.", Lang: "en"},
	{Second: 5400, Text: "One hour thirty. Ping.", Lang: "en"},
	{Second: 7200, Text: "Two hours reached. Warning.", Lang: "en"},
}

const DefaultMaxResumeAge = 12 * time.Hour

// Stale reports whether a snapshot is too old to resume. A zero maxAge never
// marks a snapshot stale.
func Stale(snap storage.Snapshot, now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(snap.StartedAt) > maxAge
}

type Config struct {
	DefaultSport string
	LangPref     string
	Milestones   []Milestone
	// MaxResumeAge discards older snapshots on resume. Zero disables the bound.
	MaxResumeAge time.Duration
}

func DefaultConfig() Config {
	return Config{
		Milestones:   DefaultMilestones,
		MaxResumeAge: DefaultMaxResumeAge,
	}
}

// StartRequest selects what to train. Empty fields use the configured defaults.
type StartRequest struct {
	Sport    string
	LangPref string
}

// State is a value copy of the session, safe to hand to other goroutines.
type State struct {
	Status    Status
	Mode      Mode
	Sport     string
	LangPref  string
	StartedAt time.Time
	Elapsed   int

	Exercise     *content.Exercise
	Rep          int
	RepElapsed   int
	InPause      bool
	PauseElapsed int

	DisplayLang    string
	Explanation    string
	ExerciseStatus string

	Metrics         metrics.Snapshot
	Gate            policy.Gate
	StatusMessage   string
	LastPerformance string
	LastCue         string
}

func (s State) Running() bool { return s.Status == StatusRunning }

// Timer is the main clock text.
func (s State) Timer() string { return FormatMMSS(s.Elapsed) }

// SubTimer describes rep or pause progress.
func (s State) SubTimer() string {
	if s.Exercise == nil {
		return ""
	}
	if s.InPause {
		return fmt.Sprintf("Pause %d/%ds", s.PauseElapsed, s.Exercise.Pause)
	}
	return fmt.Sprintf("Rep %d/%d • %d/%ds", s.Rep, s.Exercise.Reps, s.RepElapsed, s.Exercise.Duration)
}

// StopResult reports a finished session.
type StopResult struct {
	Record          storage.HistoryRecord
	Logged          bool
	LastPerformance string
	State           State
}

// FormatMMSS renders seconds as mm:ss. Minutes are not capped at 59.
func FormatMMSS(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// LastPerformance compares today's duration with the previous one.
func LastPerformance(prev, today int) string {
	diff := today - prev
	sign := "+"
	if diff < 0 {
		sign = "–"
		diff = -diff
	}
	return fmt.Sprintf("Last: %s • Today: %s (%s%s)", FormatMMSS(prev), FormatMMSS(today), sign, FormatMMSS(diff))
}

// Capitalize upper-cases the first letter of a sport key for display.
func Capitalize(key string) string {
	if key == "" {
		return key
	}
	r := []rune(key)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
