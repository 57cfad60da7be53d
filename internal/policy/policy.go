package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/clock"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

const (
	DefaultFullDayThreshold   = 60 * 60
	DefaultMaxFullDaysPerWeek = 5
	Window                    = 7 * 24 * time.Hour
)

// Config holds the weekly volume rules.
type Config struct {
	FullDayThreshold   int // seconds
	MaxFullDaysPerWeek int
	Enforce            bool
}

func DefaultConfig() Config {
	return Config{
		FullDayThreshold:   DefaultFullDayThreshold,
		MaxFullDaysPerWeek: DefaultMaxFullDaysPerWeek,
		Enforce:            true,
	}
}

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	ListSince(ctx context.Context, since time.Time) ([]storage.HistoryRecord, error)
}

// Gate is what the start control needs to render itself.
type Gate struct {
	FullDays     int
	ChipText     string
	CanTrain     bool
	StartEnabled bool
}

// Policy classifies sessions and decides whether a new one may start.
type Policy struct {
	cfg     Config
	history HistoryReader
	clock   clock.Clock
	logger  logrus.FieldLogger
}

func New(cfg Config, history HistoryReader, clk clock.Clock, logger logrus.FieldLogger) *Policy {
	if history == nil {
		panic("Policy: history cannot be nil")
	}
	if clk == nil {
		panic("Policy: clock cannot be nil")
	}
	if logger == nil {
		panic("Policy: logger cannot be nil")
	}
	return &Policy{cfg: cfg, history: history, clock: clk, logger: logger}
}

func (p *Policy) Config() Config { return p.cfg }

// IsFullDay reports whether elapsed seconds reach the full-day threshold.
func (p *Policy) IsFullDay(elapsed int) bool {
	return IsFullDay(elapsed, p.cfg.FullDayThreshold)
}

func IsFullDay(elapsed, threshold int) bool {
	return elapsed >= threshold
}

// WeekHistory returns the records of the rolling 7-day window, oldest first.
// A failing store yields an empty history.
func (p *Policy) WeekHistory(ctx context.Context) []storage.HistoryRecord {
	since := p.clock.Now().Add(-Window)
	recs, err := p.history.ListSince(ctx, since)
	if err != nil {
		p.logger.Warnf("Policy: reading history failed, assuming empty: %v", err)
		return nil
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return recs
}

// FullDaysThisWeek counts full-day records in the rolling window.
func (p *Policy) FullDaysThisWeek(ctx context.Context) int {
	n := 0
	for _, r := range p.WeekHistory(ctx) {
		if r.FullDay {
			n++
		}
	}
	return n
}

// CanTrainToday is always true when enforcement is off.
func (p *Policy) CanTrainToday(ctx context.Context) bool {
	if !p.cfg.Enforce {
		return true
	}
	return p.FullDaysThisWeek(ctx) < p.cfg.MaxFullDaysPerWeek
}

func (p *Policy) ChipText(ctx context.Context) string {
	return p.chipText(p.FullDaysThisWeek(ctx))
}

func (p *Policy) chipText(fullDays int) string {
	if !p.cfg.Enforce {
		return fmt.Sprintf("%d days this week", fullDays)
	}
	return fmt.Sprintf("%d / %d days", fullDays, p.cfg.MaxFullDaysPerWeek)
}

// Gate reads history once and derives chip text and start availability.
// Starting is never enabled while a session runs.
func (p *Policy) Gate(ctx context.Context, running bool) Gate {
	fullDays := p.FullDaysThisWeek(ctx)
	canTrain := !p.cfg.Enforce || fullDays < p.cfg.MaxFullDaysPerWeek
	return Gate{
		FullDays:     fullDays,
		ChipText:     p.chipText(fullDays),
		CanTrain:     canTrain,
		StartEnabled: !running && canTrain,
	}
}
