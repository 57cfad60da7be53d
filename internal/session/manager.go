package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/events"
	"github.com/lowaak/smart-trainer/coach-app/internal/go_func_utils"
)

// commandKind represents commands sent to the session goroutine
type commandKind int

const (
	cmdStart commandKind = iota
	cmdSkip
	cmdStop
	cmdResume
	cmdSetVisible
	cmdSetLanguage
	cmdSetCatalog
	cmdRefreshGate
)

type command struct {
	kind    commandKind
	ctx     context.Context
	start   StartRequest
	visible bool
	lang    string
	catalog *content.Catalog
	reply   chan commandResult
}

type commandResult struct {
	state   State
	stop    StopResult
	resumed bool
	err     error
}

const DefaultTickInterval = time.Second

type ManagerArgs struct {
	Engine *Engine
	Timers *LoopTimers
	Logger logrus.FieldLogger
	// TickInterval defaults to one second.
	TickInterval time.Duration
}

// Manager runs the Engine on its own goroutine. Commands, the tick and
// intro timer callbacks are all handled by that goroutine, one at a time,
// and every change is published to the state feed.
type Manager struct {
	engine       *Engine
	timers       *LoopTimers
	logger       logrus.FieldLogger
	tickInterval time.Duration
	state        *events.Feed[State]

	// Goroutine management
	ctx          context.Context
	cancel       context.CancelFunc
	cmdChan      chan command
	doneChan     chan struct{} // Closed to signal shutdown
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewManager(args ManagerArgs) *Manager {
	if args.Engine == nil {
		panic("SessionManager: engine cannot be nil")
	}
	if args.Timers == nil {
		panic("SessionManager: timers cannot be nil")
	}
	if args.Logger == nil {
		panic("SessionManager: logger cannot be nil")
	}
	interval := args.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		engine:       args.Engine,
		timers:       args.Timers,
		logger:       args.Logger,
		tickInterval: interval,
		state:        events.NewFeed[State](true),
		ctx:          ctx,
		cancel:       cancel,
		cmdChan:      make(chan command),
		doneChan:     make(chan struct{}),
	}
	m.state.Publish(args.Engine.State())

	m.wg.Add(1)
	go_func_utils.SafeGo(args.Logger, "session-loop", m.runLoop)

	return m
}

// ListenToState registers ch for every published State. The latest state
// is replayed immediately.
func (m *Manager) ListenToState(ch chan<- State) func() {
	return m.state.Subscribe(ch)
}

// State returns the last published state.
func (m *Manager) State() State {
	s, _ := m.state.Last()
	return s
}

func (m *Manager) Start(ctx context.Context, req StartRequest) (State, error) {
	r, err := m.do(ctx, command{kind: cmdStart, start: req})
	if err != nil {
		return m.State(), err
	}
	return r.state, r.err
}

func (m *Manager) Skip(ctx context.Context) (State, error) {
	r, err := m.do(ctx, command{kind: cmdSkip})
	if err != nil {
		return m.State(), err
	}
	return r.state, r.err
}

func (m *Manager) Stop(ctx context.Context) (StopResult, error) {
	r, err := m.do(ctx, command{kind: cmdStop})
	if err != nil {
		return StopResult{State: m.State()}, err
	}
	return r.stop, r.err
}

// Resume restores a persisted session and reports whether one was found.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	r, err := m.do(ctx, command{kind: cmdResume})
	if err != nil {
		return false, err
	}
	return r.resumed, nil
}

func (m *Manager) SetVisible(ctx context.Context, visible bool) error {
	_, err := m.do(ctx, command{kind: cmdSetVisible, visible: visible})
	return err
}

func (m *Manager) SetLanguagePreference(ctx context.Context, pref string) error {
	_, err := m.do(ctx, command{kind: cmdSetLanguage, lang: pref})
	return err
}

func (m *Manager) SetCatalog(ctx context.Context, catalog *content.Catalog) error {
	_, err := m.do(ctx, command{kind: cmdSetCatalog, catalog: catalog})
	return err
}

func (m *Manager) RefreshGate(ctx context.Context) (State, error) {
	r, err := m.do(ctx, command{kind: cmdRefreshGate})
	if err != nil {
		return m.State(), err
	}
	return r.state, nil
}

// Shutdown stops the loop and waits for it. Safe to call multiple times.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.logger.Printf("SessionManager: Shutting down")
		close(m.doneChan)
		m.cancel()
		m.timers.Close()
		m.wg.Wait()
		m.logger.Printf("SessionManager: Shutdown complete")
	})
}

func (m *Manager) do(ctx context.Context, cmd command) (commandResult, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan commandResult, 1)
	select {
	case m.cmdChan <- cmd:
	case <-m.doneChan:
		return commandResult{}, ErrShutdown
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

func (m *Manager) handle(cmd command, ticker *time.Ticker) commandResult {
	// The caller's context bounds the handoff only; accepted commands run to
	// completion.
	ctx := context.WithoutCancel(cmd.ctx)

	var r commandResult
	switch cmd.kind {
	case cmdStart:
		r.state, r.err = m.engine.Start(ctx, cmd.start)
		if r.err == nil {
			ticker.Reset(m.tickInterval)
		}
	case cmdSkip:
		r.state, r.err = m.engine.Skip(ctx)
	case cmdStop:
		r.stop, r.err = m.engine.Stop(ctx)
		r.state = r.stop.State
		if r.err == nil {
			ticker.Stop()
		}
	case cmdResume:
		r.state, r.resumed = m.engine.Resume(ctx)
		if r.resumed {
			ticker.Reset(m.tickInterval)
		}
	case cmdSetVisible:
		r.state = m.engine.SetVisible(cmd.visible)
	case cmdSetLanguage:
		r.state = m.engine.SetLanguagePreference(ctx, cmd.lang)
	case cmdSetCatalog:
		m.engine.SetCatalog(cmd.catalog)
		r.state = m.engine.State()
	case cmdRefreshGate:
		r.state = m.engine.RefreshGate(ctx)
	}
	return r
}

// runLoop is the goroutine that owns the Engine.
func (m *Manager) runLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.tickInterval)
	ticker.Stop() // Start stopped, will be started when a session starts

	for {
		select {
		case <-m.doneChan:
			ticker.Stop()
			m.logger.Printf("SessionManager: Goroutine exiting")
			return

		case cmd := <-m.cmdChan:
			r := m.handle(cmd, ticker)
			cmd.reply <- r
			m.state.Publish(r.state)

		case fn := <-m.timers.C():
			fn()
			m.state.Publish(m.engine.State())

		case <-ticker.C:
			m.state.Publish(m.engine.Tick(m.ctx))
		}
	}
}
