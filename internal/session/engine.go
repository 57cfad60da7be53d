package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/clock"
	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/metrics"
	"github.com/lowaak/smart-trainer/coach-app/internal/policy"
	"github.com/lowaak/smart-trainer/coach-app/internal/queue"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

type SnapshotStore interface {
	Write(ctx context.Context, s storage.Snapshot) error
	Read(ctx context.Context) (*storage.Snapshot, error)
	Clear(ctx context.Context) error
}

type HistoryStore interface {
	policy.HistoryReader
	Append(ctx context.Context, rec storage.HistoryRecord) error
}

type ProfileStore interface {
	Get(ctx context.Context) (*storage.Profile, error)
}

type EngineArgs struct {
	Config    Config
	Clock     clock.Clock
	Catalog   *content.Catalog
	Queue     *queue.Manager
	Speech    *speech.Scheduler
	Policy    *policy.Policy
	Metrics   metrics.Calculator
	Snapshots SnapshotStore
	History   HistoryStore
	Profiles  ProfileStore
	Logger    logrus.FieldLogger
}

// Engine is the workout state machine. It is driven by Start, Tick, Skip,
// Stop and Resume and is not safe for concurrent use; Manager serializes
// every call onto one goroutine.
type Engine struct {
	cfg       Config
	clock     clock.Clock
	catalog   *content.Catalog
	queue     *queue.Manager
	speech    *speech.Scheduler
	policy    *policy.Policy
	metrics   metrics.Calculator
	snapshots SnapshotStore
	history   HistoryStore
	profiles  ProfileStore
	logger    logrus.FieldLogger

	status    Status
	mode      Mode
	sport     string
	langPref  string
	startedAt time.Time
	elapsed   int
	weightKg  float64
	visible   bool

	exercise     *content.Exercise
	rep          int
	repElapsed   int
	inPause      bool
	pauseElapsed int
	displayLang  string
	explanation  string

	fired           map[int]bool
	snapshot        metrics.Snapshot
	gate            policy.Gate
	statusMessage   string
	lastPerformance string
	lastCue         string
}

func NewEngine(args EngineArgs) *Engine {
	if args.Clock == nil {
		panic("SessionEngine: clock cannot be nil")
	}
	if args.Queue == nil {
		panic("SessionEngine: queue cannot be nil")
	}
	if args.Speech == nil {
		panic("SessionEngine: speech cannot be nil")
	}
	if args.Policy == nil {
		panic("SessionEngine: policy cannot be nil")
	}
	if args.Snapshots == nil || args.History == nil || args.Profiles == nil {
		panic("SessionEngine: stores cannot be nil")
	}
	if args.Logger == nil {
		panic("SessionEngine: logger cannot be nil")
	}

	langPref := args.Config.LangPref
	if langPref == "" {
		langPref = args.Speech.LanguagePreference()
	}
	return &Engine{
		cfg:       args.Config,
		clock:     args.Clock,
		catalog:   args.Catalog,
		queue:     args.Queue,
		speech:    args.Speech,
		policy:    args.Policy,
		metrics:   args.Metrics,
		snapshots: args.Snapshots,
		history:   args.History,
		profiles:  args.Profiles,
		logger:    args.Logger,
		status:    StatusIdle,
		langPref:  langPref,
		visible:   true,
		fired:     make(map[int]bool),
	}
}

// SetCatalog installs freshly loaded content. The running exercise is kept.
func (e *Engine) SetCatalog(catalog *content.Catalog) {
	e.catalog = catalog
	e.queue.SetCatalog(catalog)
	e.speech.SetCatalog(catalog)
}

func (e *Engine) Catalog() *content.Catalog { return e.catalog }

// RefreshGate re-reads history for the weekly chip and start control.
func (e *Engine) RefreshGate(ctx context.Context) State {
	e.gate = e.policy.Gate(ctx, e.status == StatusRunning)
	if !e.gate.CanTrain && e.status == StatusIdle {
		e.statusMessage = MsgWeeklyLimit
	}
	return e.State()
}

// SetLanguagePreference changes the cue language ("random" or a code).
func (e *Engine) SetLanguagePreference(ctx context.Context, pref string) State {
	if pref == "" {
		pref = speech.RandomPreference
	}
	e.langPref = pref
	e.speech.SetLanguagePreference(pref)
	if e.status == StatusRunning {
		e.writeSnapshot(ctx)
	}
	return e.State()
}

func (e *Engine) Start(ctx context.Context, req StartRequest) (State, error) {
	if e.status == StatusRunning {
		return e.State(), ErrAlreadyRunning
	}
	if e.catalog == nil || len(e.catalog.Sports) == 0 {
		e.statusMessage = MsgTrainingsMissing
		return e.State(), ErrCatalogUnavailable
	}

	profile, err := e.profiles.Get(ctx)
	if err != nil {
		e.logger.Warnf("SessionEngine: reading profile failed, using default weight: %v", err)
		profile = &storage.Profile{}
	} else if profile == nil || profile.Validate() != nil {
		e.speech.Say(speech.KindNotice, MsgFillProfile, content.DefaultLang)
		e.statusMessage = MsgFillProfile
		return e.State(), ErrProfileIncomplete
	}

	e.gate = e.policy.Gate(ctx, false)
	if !e.gate.CanTrain {
		e.statusMessage = MsgWeeklyLimit
		e.logger.Printf("SessionEngine: start denied, %s", e.gate.ChipText)
		return e.State(), ErrWeeklyLimitReached
	}

	sport := e.resolveSport(req.Sport)
	if !e.catalog.HasSport(sport) {
		return e.State(), fmt.Errorf("starting %q: %w", sport, queue.ErrUnknownSport)
	}
	if req.LangPref != "" {
		e.langPref = req.LangPref
	}
	e.speech.SetLanguagePreference(e.langPref)

	e.status = StatusRunning
	e.mode = ModeCoaching
	e.sport = sport
	e.startedAt = e.clock.Now()
	e.elapsed = 0
	e.weightKg = profile.WeightKg
	e.fired = make(map[int]bool)
	e.statusMessage = ""
	e.lastPerformance = ""
	e.lastCue = ""
	e.snapshot = e.metrics.Compute(e.sport, e.weightKg, 0)
	e.gate = e.policy.Gate(ctx, true)

	e.writeSnapshot(ctx)
	if err := e.nextExercise(); err != nil {
		e.logger.Warnf("SessionEngine: %v", err)
	}
	e.logger.Printf("SessionEngine: started %s (lang %s)", e.sport, e.langPref)
	return e.State(), nil
}

func (e *Engine) resolveSport(requested string) string {
	if requested != "" {
		return requested
	}
	if e.cfg.DefaultSport != "" && e.catalog.HasSport(e.cfg.DefaultSport) {
		return e.cfg.DefaultSport
	}
	if keys := e.catalog.SportKeys(); len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// Tick advances the session by one second of coaching. Elapsed time always
// comes from the clock, so missed ticks never make it drift.
func (e *Engine) Tick(ctx context.Context) State {
	if e.status != StatusRunning {
		return e.State()
	}
	e.elapsed = clock.Elapsed(e.startedAt, e.clock.Now())
	e.announceMilestones()
	e.snapshot = e.metrics.Compute(e.sport, e.weightKg, e.elapsed)

	if e.mode != ModeCoaching || e.exercise == nil {
		return e.State()
	}

	ex := e.exercise
	if e.inPause {
		e.pauseElapsed++
		if e.pauseElapsed >= ex.Pause {
			e.inPause = false
			e.repElapsed = 0
			e.cue(content.BucketStart)
		}
		return e.State()
	}

	e.repElapsed++
	if e.repElapsed == ex.Duration/2 {
		e.cue(content.BucketEncourage)
	}
	if e.repElapsed >= ex.Duration {
		e.cue(content.BucketStop)
		if e.rep < ex.Reps {
			e.rep++
			e.repElapsed = 0
			e.inPause = ex.Pause > 0
			e.pauseElapsed = 0
			return e.State()
		}
		if err := e.nextExercise(); err != nil {
			e.logger.Warnf("SessionEngine: %v", err)
		}
	}
	return e.State()
}

func (e *Engine) announceMilestones() {
	for _, m := range e.cfg.Milestones {
		if m.Second != e.elapsed || e.fired[m.Second] {
			continue
		}
		e.fired[m.Second] = true
		lang := m.Lang
		if lang == "" {
			lang = content.DefaultLang
		}
		e.speech.Say(speech.KindMilestone, m.Text, lang)
		e.lastCue = m.Text
		e.logger.Printf("SessionEngine: milestone %s", FormatMMSS(m.Second))
	}
}

func (e *Engine) cue(bucket content.Bucket) {
	if u, ok := e.speech.Cue(bucket); ok {
		e.lastCue = u.Text
	}
}

// Skip jumps to the next exercise. No stop cue is spoken and the mute
// window keeps a burst of skips quiet.
func (e *Engine) Skip(ctx context.Context) (State, error) {
	if e.status != StatusRunning {
		return e.State(), ErrNotRunning
	}
	e.speech.CancelAll()
	e.speech.ExtendMute()

	e.elapsed = clock.Elapsed(e.startedAt, e.clock.Now())
	e.snapshot = e.metrics.Compute(e.sport, e.weightKg, e.elapsed)
	e.mode = ModeCoaching
	if err := e.nextExercise(); err != nil {
		return e.State(), err
	}
	e.logger.Debugf("SessionEngine: skipped to %s", e.exercise.Name)
	return e.State(), nil
}

func (e *Engine) nextExercise() error {
	ex, err := e.queue.Next(e.sport)
	if err != nil {
		e.exercise = nil
		return fmt.Errorf("next exercise for %s: %w", e.sport, err)
	}
	e.exercise = &ex
	e.rep = 1
	e.repElapsed = 0
	e.inPause = false
	e.pauseElapsed = 0
	e.displayLang = e.speech.PickDisplayLanguage()
	e.explanation = ex.ExplanationFor(e.displayLang)
	e.speech.ScheduleIntro(speech.Intro{
		Exercise:    ex.Name,
		Explanation: e.explanation,
		Lang:        e.displayLang,
	})
	return nil
}

// Stop ends the session and logs it to history.
func (e *Engine) Stop(ctx context.Context) (StopResult, error) {
	if e.status != StatusRunning {
		return StopResult{State: e.State()}, ErrNotRunning
	}
	now := e.clock.Now()
	e.elapsed = clock.Elapsed(e.startedAt, now)
	e.snapshot = e.metrics.Compute(e.sport, e.weightKg, e.elapsed)
	e.speech.CancelAll()

	e.status = StatusIdle
	e.mode = ModeNone
	e.exercise = nil
	e.inPause = false

	if err := e.snapshots.Clear(ctx); err != nil {
		e.logger.Warnf("SessionEngine: clearing snapshot failed: %v", err)
	}

	rec := storage.HistoryRecord{
		ID:       now.UnixMilli(),
		Date:     now,
		Duration: e.elapsed,
		FullDay:  e.policy.IsFullDay(e.elapsed),
		Sport:    e.sport,
	}
	logged := true
	if err := e.history.Append(ctx, rec); err != nil {
		logged = false
		e.logger.Warnf("SessionEngine: saving session failed: %v", err)
	}

	e.lastPerformance = fmt.Sprintf("Today: %s", FormatMMSS(e.elapsed))
	if logged {
		var previous []storage.HistoryRecord
		for _, r := range e.policy.WeekHistory(ctx) {
			if r.ID != rec.ID {
				previous = append(previous, r)
			}
		}
		if len(previous) > 0 {
			e.lastPerformance = LastPerformance(previous[len(previous)-1].Duration, e.elapsed)
		}
	}

	if rec.FullDay {
		e.statusMessage = MsgFullDayLogged
	} else {
		e.statusMessage = fmt.Sprintf("Session logged (under %d min).", e.policy.Config().FullDayThreshold/60)
	}
	e.gate = e.policy.Gate(ctx, false)
	if !e.gate.CanTrain {
		e.statusMessage = MsgWeeklyLimit
	}

	e.logger.Printf("SessionEngine: stopped %s after %s (full day: %t)", e.sport, FormatMMSS(e.elapsed), rec.FullDay)
	return StopResult{
		Record:          rec,
		Logged:          logged,
		LastPerformance: e.lastPerformance,
		State:           e.State(),
	}, nil
}

// Resume restores a session from the runtime snapshot. Only the running
// flag, start time, sport and language preference come back; the session
// continues in background mode until the next skip.
func (e *Engine) Resume(ctx context.Context) (State, bool) {
	if e.status == StatusRunning {
		return e.State(), false
	}
	snap, err := e.snapshots.Read(ctx)
	if err != nil {
		e.logger.Warnf("SessionEngine: reading snapshot failed: %v", err)
		return e.State(), false
	}
	if snap == nil || !snap.Running {
		return e.State(), false
	}

	now := e.clock.Now()
	if Stale(*snap, now, e.cfg.MaxResumeAge) {
		e.logger.Warnf("SessionEngine: discarding snapshot started at %s", snap.StartedAt.Format(time.RFC3339))
		if err := e.snapshots.Clear(ctx); err != nil {
			e.logger.Warnf("SessionEngine: clearing snapshot failed: %v", err)
		}
		return e.State(), false
	}

	e.weightKg = 0
	if profile, err := e.profiles.Get(ctx); err != nil {
		e.logger.Warnf("SessionEngine: reading profile failed, using default weight: %v", err)
	} else if profile != nil {
		e.weightKg = profile.WeightKg
	}

	e.status = StatusRunning
	e.mode = ModeBackground
	e.sport = snap.Sport
	e.startedAt = snap.StartedAt
	if snap.LangPref != "" {
		e.langPref = snap.LangPref
	}
	e.speech.SetLanguagePreference(e.langPref)
	e.exercise = nil
	e.fired = make(map[int]bool)
	e.elapsed = clock.Elapsed(e.startedAt, now)
	e.snapshot = e.metrics.Compute(e.sport, e.weightKg, e.elapsed)
	e.gate = e.policy.Gate(ctx, true)
	e.statusMessage = ""

	e.logger.Printf("SessionEngine: resumed %s, %s elapsed", e.sport, FormatMMSS(e.elapsed))
	return e.State(), true
}

// SetVisible follows the foreground state of the presentation. Hidden
// silences speech in flight; visible re-arms the intro when none is pending.
func (e *Engine) SetVisible(visible bool) State {
	e.visible = visible
	if !visible {
		e.speech.Silence()
		return e.State()
	}
	if e.status == StatusRunning && e.mode == ModeCoaching && e.exercise != nil && !e.speech.HasPendingIntro() {
		e.speech.ScheduleIntro(speech.Intro{
			Exercise:    e.exercise.Name,
			Explanation: e.explanation,
			Lang:        e.displayLang,
		})
	}
	return e.State()
}

func (e *Engine) Visible() bool { return e.visible }

func (e *Engine) writeSnapshot(ctx context.Context) {
	err := e.snapshots.Write(ctx, storage.Snapshot{
		Running:   true,
		StartedAt: e.startedAt,
		Sport:     e.sport,
		LangPref:  e.langPref,
	})
	if err != nil {
		e.logger.Warnf("SessionEngine: writing snapshot failed: %v", err)
	}
}

func (e *Engine) State() State {
	s := State{
		Status:          e.status,
		Mode:            e.mode,
		Sport:           e.sport,
		LangPref:        e.langPref,
		StartedAt:       e.startedAt,
		Elapsed:         e.elapsed,
		Metrics:         e.snapshot,
		Gate:            e.gate,
		StatusMessage:   e.statusMessage,
		LastPerformance: e.lastPerformance,
		LastCue:         e.lastCue,
	}
	if e.exercise != nil {
		ex := *e.exercise
		s.Exercise = &ex
		s.Rep = e.rep
		s.RepElapsed = e.repElapsed
		s.InPause = e.inPause
		s.PauseElapsed = e.pauseElapsed
		s.DisplayLang = e.displayLang
		s.Explanation = e.explanation
		s.ExerciseStatus = ex.StatusLine()
	}
	return s
}
