package coach

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

// SessionControl is the part of *session.Manager the controller drives.
type SessionControl interface {
	Start(ctx context.Context, req session.StartRequest) (session.State, error)
	Skip(ctx context.Context) (session.State, error)
	Stop(ctx context.Context) (session.StopResult, error)
	SetVisible(ctx context.Context, visible bool) error
	SetLanguagePreference(ctx context.Context, pref string) error
	RefreshGate(ctx context.Context) (session.State, error)
	Shutdown()
}

type HistoryLister interface {
	List(ctx context.Context) ([]storage.HistoryRecord, error)
}

// UIController handles UI events and coordinates with the UIModel
type UIController struct {
	model   *UIModel
	session SessionControl
	history HistoryLister
	logger  logrus.FieldLogger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewUIController creates a new UIController with the given dependencies
func NewUIController(model *UIModel, sessionControl SessionControl, history HistoryLister, logger logrus.FieldLogger) *UIController {
	if model == nil {
		panic("UIController: model cannot be nil")
	}
	if sessionControl == nil {
		panic("UIController: session cannot be nil")
	}
	if history == nil {
		panic("UIController: history cannot be nil")
	}
	if logger == nil {
		panic("UIController: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &UIController{
		model:   model,
		session: sessionControl,
		history: history,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *UIController) actionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, actionTimeout)
}

// OnEscapeKey handles when the Escape key is pressed
func (c *UIController) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// OnModeChange handles when the user requests a mode change
func (c *UIController) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Debugf("Switching to %s mode", info.DisplayName)
	}
	if mode == UIModeHistory {
		c.LoadHistory()
	}
	c.model.SetMode(mode)
}

// StartSession starts a session with the selected sport and language.
// Refusals are already explained by the status message of the state.
func (c *UIController) StartSession() {
	prefs := c.model.GetPreferences()
	ctx, cancel := c.actionContext()
	defer cancel()

	_, err := c.session.Start(ctx, session.StartRequest{Sport: prefs.Sport, LangPref: prefs.LangPref})
	switch {
	case err == nil:
	case errors.Is(err, session.ErrAlreadyRunning):
		c.logger.Printf("A session is already running")
	default:
		c.logger.Printf("Start refused: %v", err)
	}
}

// SkipExercise moves on to the next exercise
func (c *UIController) SkipExercise() {
	ctx, cancel := c.actionContext()
	defer cancel()

	if _, err := c.session.Skip(ctx); err != nil {
		c.logger.Printf("Skip failed: %v", err)
	}
}

// StopSession ends the session and logs it to the history
func (c *UIController) StopSession() {
	ctx, cancel := c.actionContext()
	defer cancel()

	result, err := c.session.Stop(ctx)
	if err != nil {
		c.logger.Printf("Stop failed: %v", err)
		return
	}
	c.logger.Printf("%s", result.LastPerformance)
	if result.Logged {
		c.LoadHistory()
	}
}

// ToggleSession starts or stops the session based on current state
func (c *UIController) ToggleSession() {
	if c.model.GetSessionState().Running() {
		c.StopSession()
	} else {
		c.StartSession()
	}
}

// CycleSport selects the next sport. The sport of a running session is fixed.
func (c *UIController) CycleSport() {
	if c.model.GetSessionState().Running() {
		c.logger.Printf("Stop the session to change sport")
		return
	}
	sport := c.model.CycleSport()
	c.logger.Printf("Sport: %s", session.Capitalize(sport))
}

// CycleLanguage selects the next cue language and applies it right away
func (c *UIController) CycleLanguage() {
	pref := c.model.CycleLanguage()
	ctx, cancel := c.actionContext()
	defer cancel()

	if err := c.session.SetLanguagePreference(ctx, pref); err != nil {
		c.logger.Printf("Language change failed: %v", err)
		return
	}
	c.logger.Printf("Language: %s", pref)
}

// ToggleVisibility sends the coach to the background and back. In the
// background speech in flight is cut; coming back re-arms the intro.
func (c *UIController) ToggleVisibility() {
	on := !c.model.GetPreferences().Visible
	ctx, cancel := c.actionContext()
	defer cancel()

	if err := c.session.SetVisible(ctx, on); err != nil {
		c.logger.Printf("Visibility change failed: %v", err)
		return
	}
	c.model.SetVisibility(on)
}

// LoadHistory reads logged sessions into the model and refreshes the
// weekly chip.
func (c *UIController) LoadHistory() {
	ctx, cancel := c.actionContext()
	defer cancel()

	records, err := c.history.List(ctx)
	if err != nil {
		c.logger.Warnf("Loading history failed: %v", err)
		return
	}
	c.model.SetHistory(records)

	if _, err := c.session.RefreshGate(ctx); err != nil {
		c.logger.Debugf("Refreshing weekly gate failed: %v", err)
	}
}

// Shutdown stops the session manager and cleans up resources
func (c *UIController) Shutdown() {
	c.cancel()
	c.session.Shutdown()
}
