package coach

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/events"
	"github.com/lowaak/smart-trainer/coach-app/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

// SessionSource publishes session states, typically a *session.Manager.
type SessionSource interface {
	ListenToState(ch chan<- session.State) func()
}

// SpokenSource publishes every utterance that was handed to the voice.
type SpokenSource interface {
	ListenToSpoken(ch chan<- speech.Utterance) func()
}

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
}

// Preferences are the user's picks for the next session.
type Preferences struct {
	Sports    []string
	Sport     string
	Languages []string // speech.RandomPreference first
	LangPref  string
	Visible   bool // false while the coach runs in the background
}

// HistoryEntry is a logged session formatted for display.
type HistoryEntry struct {
	Date     string
	Sport    string
	Duration string
	FullDay  bool
}

type UIModelArgs struct {
	Session SessionSource
	Spoken  SpokenSource
	LogChan <-chan string
	Logger  logrus.FieldLogger

	Sports    []string
	Languages []speech.Language
	// Defaults used when nothing was persisted.
	DefaultSport    string
	DefaultLangPref string
	// StatePath overrides ~/.coach/ui_state.json.
	StatePath string
}

type UIModel struct {
	logEvent              *events.Feed[string]
	closeApplicationEvent *events.Feed[struct{}]
	uiStateEvent          *events.Feed[UIState]
	uiState               UIState
	sessionEvent          *events.Feed[session.State]
	sessionState          session.State
	spokenEvent           *events.Feed[speech.Utterance]
	preferencesEvent      *events.Feed[Preferences]
	preferences           Preferences
	historyEvent          *events.Feed[[]HistoryEntry]
	history               []HistoryEntry
	persistence           *uiModelPersistence
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                logrus.FieldLogger
}

func NewUIModel(args UIModelArgs) *UIModel {
	if args.Logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if args.LogChan == nil {
		panic("UIModel: log channel cannot be nil")
	}
	if args.Session == nil {
		panic("UIModel: session source cannot be nil")
	}

	languages := []string{speech.RandomPreference}
	for _, l := range args.Languages {
		languages = append(languages, l.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewFeed[string](false),
		closeApplicationEvent: events.NewFeed[struct{}](true),
		uiStateEvent:          events.NewFeed[UIState](true),
		uiState:               UIState{Mode: UIModeDashboard},
		sessionEvent:          events.NewFeed[session.State](true),
		spokenEvent:           events.NewFeed[speech.Utterance](true),
		preferencesEvent:      events.NewFeed[Preferences](true),
		historyEvent:          events.NewFeed[[]HistoryEntry](true),
		persistence:           newUIModelPersistence(args.StatePath, args.Logger),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                args.Logger,
	}

	prefs := Preferences{
		Languages: languages,
		LangPref:  model.persistence.getLangPref(),
		Visible:   true,
	}
	if !slices.Contains(languages, prefs.LangPref) {
		prefs.LangPref = args.DefaultLangPref
	}
	if !slices.Contains(languages, prefs.LangPref) {
		prefs.LangPref = speech.RandomPreference
	}
	prefs.Sport = model.persistence.getSport()
	if !slices.Contains(args.Sports, prefs.Sport) {
		prefs.Sport = args.DefaultSport
	}
	model.preferences = withSports(prefs, args.Sports)
	model.preferencesEvent.Publish(model.copyPreferences())
	model.uiStateEvent.Publish(model.uiState)

	model.wg.Add(1)
	go_func_utils.SafeGo(model.logger, "ui-model-session", func() { model.listenToSession(ctx, args.Session) })

	if args.Spoken != nil {
		model.wg.Add(1)
		go_func_utils.SafeGo(model.logger, "ui-model-spoken", func() { model.listenToSpoken(ctx, args.Spoken) })
	}

	// Read from the UI log channel and populate logLines
	model.wg.Add(1)
	go_func_utils.SafeGo(model.logger, "ui-model-log", func() { model.readFromLogChannel(ctx, args.LogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Println("UIModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("UIModel: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Subscribe(ch)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Subscribe(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Publish(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Subscribe(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Publish(state)
}

// ListenToSessionState registers a channel to receive session state changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToSessionState(ch chan<- session.State) func() {
	return m.sessionEvent.Subscribe(ch)
}

// GetSessionState returns the last session state seen
func (m *UIModel) GetSessionState() session.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionState
}

// ListenToSpoken registers a channel to receive spoken utterances
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToSpoken(ch chan<- speech.Utterance) func() {
	return m.spokenEvent.Subscribe(ch)
}

// ListenToPreferences registers a channel to receive preference changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToPreferences(ch chan<- Preferences) func() {
	return m.preferencesEvent.Subscribe(ch)
}

// GetPreferences returns a copy of the current preferences
func (m *UIModel) GetPreferences() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyPreferences()
}

// SetSports replaces the selectable sports, keeping the current pick when
// it is still offered.
func (m *UIModel) SetSports(sports []string) {
	m.mu.Lock()
	m.preferences = withSports(m.preferences, sports)
	prefs := m.copyPreferences()
	m.mu.Unlock()

	m.preferencesEvent.Publish(prefs)
}

// CycleSport selects the next sport and returns it.
func (m *UIModel) CycleSport() string {
	m.mu.Lock()
	m.preferences.Sport = nextOf(m.preferences.Sports, m.preferences.Sport)
	prefs := m.copyPreferences()
	m.mu.Unlock()

	m.persistence.setSport(prefs.Sport)
	m.preferencesEvent.Publish(prefs)
	return prefs.Sport
}

// CycleLanguage selects the next language preference and returns it.
func (m *UIModel) CycleLanguage() string {
	m.mu.Lock()
	m.preferences.LangPref = nextOf(m.preferences.Languages, m.preferences.LangPref)
	prefs := m.copyPreferences()
	m.mu.Unlock()

	m.persistence.setLangPref(prefs.LangPref)
	m.preferencesEvent.Publish(prefs)
	return prefs.LangPref
}

// SetVisibility records whether the coach is in the foreground.
func (m *UIModel) SetVisibility(on bool) {
	m.mu.Lock()
	if m.preferences.Visible == on {
		m.mu.Unlock()
		return
	}
	m.preferences.Visible = on
	prefs := m.copyPreferences()
	m.mu.Unlock()

	m.preferencesEvent.Publish(prefs)
}

// ListenToHistory registers a channel to receive the formatted history
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToHistory(ch chan<- []HistoryEntry) func() {
	return m.historyEvent.Subscribe(ch)
}

// GetHistory returns the formatted history, oldest first
func (m *UIModel) GetHistory() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}

// SetHistory formats records for display, oldest first, and notifies listeners
func (m *UIModel) SetHistory(records []storage.HistoryRecord) {
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	entries := make([]HistoryEntry, 0, len(sorted))
	for _, r := range sorted {
		entries = append(entries, HistoryEntry{
			Date:     r.Date.Local().Format("Mon 02 Jan 15:04"),
			Sport:    session.Capitalize(r.Sport),
			Duration: session.FormatMMSS(r.Duration),
			FullDay:  r.FullDay,
		})
	}

	m.mu.Lock()
	m.history = entries
	m.mu.Unlock()

	m.historyEvent.Publish(slices.Clone(entries))
}

func (m *UIModel) listenToSession(ctx context.Context, source SessionSource) {
	defer m.wg.Done()

	ch := make(chan session.State, 1)
	unregister := source.ListenToState(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			m.mu.Lock()
			m.sessionState = state
			m.mu.Unlock()

			m.sessionEvent.Publish(state)
		}
	}
}

func (m *UIModel) listenToSpoken(ctx context.Context, source SpokenSource) {
	defer m.wg.Done()

	ch := make(chan speech.Utterance, 8)
	unregister := source.ListenToSpoken(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			m.spokenEvent.Publish(u)
		}
	}
}

func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				// Channel closed
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			// Notify listeners for immediate display
			m.logEvent.Publish(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}

	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}

func (m *UIModel) copyPreferences() Preferences {
	p := m.preferences
	p.Sports = slices.Clone(p.Sports)
	p.Languages = slices.Clone(p.Languages)
	return p
}

func withSports(p Preferences, sports []string) Preferences {
	p.Sports = slices.Clone(sports)
	if !slices.Contains(p.Sports, p.Sport) {
		p.Sport = ""
		if len(p.Sports) > 0 {
			p.Sport = p.Sports[0]
		}
	}
	return p
}

// nextOf returns the item after current, wrapping around.
func nextOf(items []string, current string) string {
	if len(items) == 0 {
		return current
	}
	i := slices.Index(items, current)
	return items[(i+1)%len(items)]
}
