package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/coach-app/internal/coach"
	"github.com/lowaak/smart-trainer/coach-app/internal/config"
	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/logging"
	"github.com/lowaak/smart-trainer/coach-app/internal/queue"
	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
)

var errNoTerminal = errors.New("coach needs an interactive terminal; try \"coach status\"")

func runTUI(cmd *cobra.Command, configPath string) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return errNoTerminal
	}
	return withApp(cmd, configPath, func(ctx context.Context, a *app) error {
		return runSession(ctx, a)
	})
}

func newAnnouncer(cfg *config.Config, a *app) (speech.Announcer, func()) {
	logAnnouncer := speech.NewLogAnnouncer(a.logger)
	if len(cfg.Speech.Command) == 0 {
		return logAnnouncer, func() {}
	}
	tts := speech.NewCommandAnnouncer(cfg.Speech.Command, a.logger)
	return speech.MultiAnnouncer{logAnnouncer, tts}, tts.Close
}

func runSession(ctx context.Context, a *app) error {
	logger := a.logger

	// Mirror log lines into the log pane
	uiLogChan := make(chan string, 256)
	logger.AddHook(logging.NewLineHook(uiLogChan, logger.GetLevel()))

	catalog, err := content.NewLoader(a.cfg.LoaderConfig(), logger).LoadCatalog(ctx)
	if err != nil {
		return err
	}

	announcer, closeAnnouncer := newAnnouncer(a.cfg, a)
	defer closeAnnouncer()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	timers := session.NewLoopTimers()
	scheduler := speech.NewScheduler(speech.SchedulerArgs{
		Config:    a.cfg.SpeechConfig(),
		Clock:     a.clock,
		Timers:    timers,
		Announcer: announcer,
		Catalog:   catalog,
		Rand:      rng,
		Logger:    logger,
	})
	engine := session.NewEngine(session.EngineArgs{
		Config:    a.cfg.SessionConfig(),
		Clock:     a.clock,
		Catalog:   catalog,
		Queue:     queue.NewManager(catalog, rng),
		Speech:    scheduler,
		Policy:    a.policy,
		Metrics:   a.cfg.MetricsCalculator(),
		Snapshots: a.snapshots,
		History:   a.history,
		Profiles:  a.profiles,
		Logger:    logger,
	})
	manager := session.NewManager(session.ManagerArgs{
		Engine: engine,
		Timers: timers,
		Logger: logger,
	})

	if resumed, err := manager.Resume(ctx); err != nil {
		logger.Warnf("Coach: resume failed: %v", err)
	} else if resumed {
		logger.Printf("Coach: resumed running session")
	}
	if _, err := manager.RefreshGate(ctx); err != nil {
		logger.Warnf("Coach: weekly gate: %v", err)
	}

	model := coach.NewUIModel(coach.UIModelArgs{
		Session:         manager,
		Spoken:          scheduler,
		LogChan:         uiLogChan,
		Logger:          logger,
		Sports:          catalog.SportKeys(),
		Languages:       a.cfg.Speech.Languages,
		DefaultSport:    a.cfg.Session.DefaultSport,
		DefaultLangPref: a.cfg.Speech.LangPref,
	})
	controller := coach.NewUIController(model, manager, a.history, logger)

	tviewApp := tview.NewApplication()
	view := coach.NewCursesUIView(logger, tviewApp, model)
	base := coach.NewBaseUIView(coach.NewBaseUIViewArg{
		UIViewImpl:   view,
		UIModel:      model,
		UIController: controller,
		Logger:       logger,
	})
	controller.LoadHistory()

	runErr := base.Run()

	base.Shutdown()
	model.Shutdown()
	controller.Shutdown()
	return runErr
}
