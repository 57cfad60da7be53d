package speech

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/clock"
	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/events"
)

const (
	DefaultMuteWindow    = 2500 * time.Millisecond
	DefaultIntroDebounce = 600 * time.Millisecond
)

// Timers schedules delayed callbacks. AfterFunc must never run fn
// synchronously; the returned function cancels a pending call.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Kind tells what produced an utterance.
type Kind string

const (
	KindIntro     Kind = "intro"
	KindCue       Kind = "cue"
	KindMilestone Kind = "milestone"
	KindNotice    Kind = "notice"
)

// Utterance is one announcement handed to the backend.
type Utterance struct {
	Kind   Kind
	Bucket content.Bucket
	Text   string
	Lang   string
	Locale string
	At     time.Time
}

// Intro is the explanation spoken when an exercise begins.
type Intro struct {
	Exercise    string
	Explanation string
	Lang        string
}

type Config struct {
	MuteWindow          time.Duration
	IntroDebounce       time.Duration
	RescheduleWhenMuted bool
	Languages           []Language
	LangPref            string
}

func DefaultConfig() Config {
	return Config{
		MuteWindow:          DefaultMuteWindow,
		IntroDebounce:       DefaultIntroDebounce,
		RescheduleWhenMuted: true,
		Languages:           DefaultLanguages,
		LangPref:            RandomPreference,
	}
}

type SchedulerArgs struct {
	Config    Config
	Clock     clock.Clock
	Timers    Timers
	Announcer Announcer
	Catalog   *content.Catalog
	Rand      *rand.Rand
	Logger    logrus.FieldLogger
}

// Scheduler decides when and in which language to speak. It never lets an
// intro talk over a skip burst: intros wait out the mute window and a
// superseded intro drops itself when its run id is stale.
type Scheduler struct {
	cfg       Config
	clock     clock.Clock
	timers    Timers
	announcer Announcer
	logger    logrus.FieldLogger
	spoken    *events.Feed[Utterance]

	mu            sync.Mutex
	catalog       *content.Catalog
	rng           *rand.Rand
	langPref      string
	muteDeadline  time.Time
	run           uint64
	pending       *Intro
	cancelPending func()
}

func NewScheduler(args SchedulerArgs) *Scheduler {
	if args.Clock == nil {
		panic("SpeechScheduler: clock cannot be nil")
	}
	if args.Timers == nil {
		panic("SpeechScheduler: timers cannot be nil")
	}
	if args.Announcer == nil {
		panic("SpeechScheduler: announcer cannot be nil")
	}
	if args.Logger == nil {
		panic("SpeechScheduler: logger cannot be nil")
	}
	cfg := args.Config
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages
	}
	if cfg.LangPref == "" {
		cfg.LangPref = RandomPreference
	}
	rng := args.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return &Scheduler{
		cfg:       cfg,
		clock:     args.Clock,
		timers:    args.Timers,
		announcer: args.Announcer,
		logger:    args.Logger,
		spoken:    events.NewFeed[Utterance](false),
		catalog:   args.Catalog,
		rng:       rng,
		langPref:  cfg.LangPref,
	}
}

// ListenToSpoken registers a channel that receives every utterance.
func (s *Scheduler) ListenToSpoken(ch chan<- Utterance) func() {
	return s.spoken.Subscribe(ch)
}

func (s *Scheduler) SetCatalog(catalog *content.Catalog) {
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
}

func (s *Scheduler) Languages() []Language { return s.cfg.Languages }

func (s *Scheduler) SetLanguagePreference(pref string) {
	if pref == "" {
		pref = RandomPreference
	}
	s.mu.Lock()
	s.langPref = pref
	s.mu.Unlock()
	s.logger.Printf("SpeechScheduler: language preference %s", pref)
}

func (s *Scheduler) LanguagePreference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langPref
}

// PickLanguage resolves the preference for one utterance.
func (s *Scheduler) PickLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pickLanguageLocked()
}

// PickDisplayLanguage chooses the language an exercise is shown in. The
// engine calls it once per exercise; cues keep picking their own.
func (s *Scheduler) PickDisplayLanguage() string {
	return s.PickLanguage()
}

func (s *Scheduler) pickLanguageLocked() string {
	if s.langPref != RandomPreference {
		return s.langPref
	}
	return s.cfg.Languages[s.rng.IntN(len(s.cfg.Languages))].Code
}

// CanSpeak reports whether the mute window has passed.
func (s *Scheduler) CanSpeak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.clock.Now().Before(s.muteDeadline)
}

// ExtendMute sets the deadline to now + mute window. Not cumulative.
func (s *Scheduler) ExtendMute() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muteDeadline = s.clock.Now().Add(s.cfg.MuteWindow)
	return s.muteDeadline
}

func (s *Scheduler) MuteDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muteDeadline
}

// Run is the id of the most recent intro schedule.
func (s *Scheduler) Run() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

func (s *Scheduler) HasPendingIntro() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// ScheduleIntro replaces any pending intro and returns the new run id.
func (s *Scheduler) ScheduleIntro(intro Intro) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	s.run++
	s.pending = &intro
	s.armLocked(s.run, intro)
	return s.run
}

func (s *Scheduler) introDelayLocked() time.Duration {
	delay := s.cfg.IntroDebounce
	if remaining := s.muteDeadline.Sub(s.clock.Now()); remaining > delay {
		delay = remaining
	}
	return delay
}

func (s *Scheduler) armLocked(run uint64, intro Intro) {
	s.cancelPending = s.timers.AfterFunc(s.introDelayLocked(), func() {
		s.fireIntro(run, intro)
	})
}

func (s *Scheduler) cancelPendingLocked() {
	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
	s.pending = nil
}

func (s *Scheduler) fireIntro(run uint64, intro Intro) {
	s.mu.Lock()
	if run != s.run || s.pending == nil {
		s.mu.Unlock()
		s.logger.Debugf("SpeechScheduler: dropping stale intro run=%d", run)
		return
	}
	if s.clock.Now().Before(s.muteDeadline) {
		if s.cfg.RescheduleWhenMuted {
			s.armLocked(run, intro)
		} else {
			s.cancelPendingLocked()
		}
		s.mu.Unlock()
		return
	}

	s.pending = nil
	s.cancelPending = nil
	now := s.clock.Now()
	explanation := Utterance{
		Kind:   KindIntro,
		Text:   intro.Explanation,
		Lang:   intro.Lang,
		Locale: localeFor(s.cfg.Languages, intro.Lang),
		At:     now,
	}
	start, hasStart := s.cueLocked(content.BucketStart, now)
	s.mu.Unlock()

	if explanation.Text != "" {
		s.speak(explanation)
	}
	if hasStart {
		s.speak(start)
	}
}

// Cue speaks one phrase of bucket unless muted.
func (s *Scheduler) Cue(bucket content.Bucket) (Utterance, bool) {
	s.mu.Lock()
	now := s.clock.Now()
	if now.Before(s.muteDeadline) {
		s.mu.Unlock()
		return Utterance{}, false
	}
	u, ok := s.cueLocked(bucket, now)
	s.mu.Unlock()

	if ok {
		s.speak(u)
	}
	return u, ok
}

func (s *Scheduler) cueLocked(bucket content.Bucket, now time.Time) (Utterance, bool) {
	lang := s.pickLanguageLocked()
	text := s.catalog.RandomPhrase(bucket, lang, s.rng)
	if text == "" {
		return Utterance{}, false
	}
	return Utterance{
		Kind:   KindCue,
		Bucket: bucket,
		Text:   text,
		Lang:   lang,
		Locale: localeFor(s.cfg.Languages, lang),
		At:     now,
	}, true
}

// Say speaks text in lang regardless of the mute window. Used for
// milestones, limit warnings and validation prompts.
func (s *Scheduler) Say(kind Kind, text, lang string) Utterance {
	u := Utterance{
		Kind:   kind,
		Text:   text,
		Lang:   lang,
		Locale: localeFor(s.cfg.Languages, lang),
		At:     s.clock.Now(),
	}
	s.speak(u)
	return u
}

// CancelAll drops the pending intro and silences the backend.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.cancelPendingLocked()
	s.run++
	s.mu.Unlock()
	s.announcer.CancelAll()
}

// Silence cuts in-flight speech but keeps any pending intro.
func (s *Scheduler) Silence() {
	s.announcer.CancelAll()
}

func (s *Scheduler) speak(u Utterance) {
	if err := s.announcer.Announce(u.Text, Voice{Lang: u.Lang, Locale: u.Locale}); err != nil {
		s.logger.Debugf("SpeechScheduler: announce failed: %v", err)
	}
	s.spoken.Publish(u)
}
