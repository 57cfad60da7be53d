package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

type fakeSessionControl struct {
	mu         sync.Mutex
	starts     []session.StartRequest
	skips      int
	stops      int
	visible    []bool
	langs      []string
	refreshes  int
	shutdowns  int
	startErr   error
	visibleErr error
	stopResult session.StopResult
}

func (f *fakeSessionControl) Start(_ context.Context, req session.StartRequest) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	return session.State{}, f.startErr
}

func (f *fakeSessionControl) Skip(context.Context) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skips++
	return session.State{}, nil
}

func (f *fakeSessionControl) Stop(context.Context) (session.StopResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopResult, nil
}

func (f *fakeSessionControl) SetVisible(_ context.Context, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = append(f.visible, visible)
	return f.visibleErr
}

func (f *fakeSessionControl) SetLanguagePreference(_ context.Context, pref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.langs = append(f.langs, pref)
	return nil
}

func (f *fakeSessionControl) RefreshGate(context.Context) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return session.State{}, nil
}

func (f *fakeSessionControl) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
}

type fakeHistory struct {
	records []storage.HistoryRecord
	err     error
	calls   int
}

func (f *fakeHistory) List(context.Context) ([]storage.HistoryRecord, error) {
	f.calls++
	return f.records, f.err
}

type controllerHarness struct {
	*modelHarness
	control    *fakeSessionControl
	history    *fakeHistory
	controller *UIController
}

func newControllerHarness(t *testing.T) *controllerHarness {
	t.Helper()
	mh := newModelHarness(t, "")
	h := &controllerHarness{
		modelHarness: mh,
		control:      &fakeSessionControl{},
		history:      &fakeHistory{},
	}
	h.controller = NewUIController(mh.model, h.control, h.history, mh.logger)
	return h
}

func (h *controllerHarness) setRunning(t *testing.T, running bool) {
	t.Helper()
	status := session.StatusIdle
	if running {
		status = session.StatusRunning
	}
	h.session.feed.Publish(session.State{Status: status, Sport: "bike"})
	require.Eventually(t, func() bool {
		return h.model.GetSessionState().Running() == running
	}, time.Second, 5*time.Millisecond)
}

func (h *controllerHarness) logged(substr string) bool {
	for _, e := range h.hook.AllEntries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestStartSessionUsesPreferences(t *testing.T) {
	h := newControllerHarness(t)
	h.model.CycleSport() // bike -> run

	h.controller.StartSession()

	require.Len(t, h.control.starts, 1)
	assert.Equal(t, session.StartRequest{Sport: "run", LangPref: "en"}, h.control.starts[0])
}

func TestStartSessionRefusalIsLogged(t *testing.T) {
	h := newControllerHarness(t)
	h.control.startErr = session.ErrWeeklyLimitReached

	h.controller.StartSession()

	assert.True(t, h.logged("Start refused: weekly limit reached"))
}

func TestToggleSession(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.ToggleSession()
	assert.Len(t, h.control.starts, 1)
	assert.Zero(t, h.control.stops)

	h.setRunning(t, true)
	h.controller.ToggleSession()
	assert.Len(t, h.control.starts, 1)
	assert.Equal(t, 1, h.control.stops)
}

func TestStopSessionReloadsHistory(t *testing.T) {
	h := newControllerHarness(t)
	h.history.records = []storage.HistoryRecord{{ID: 1, Date: time.Now(), Duration: 90, Sport: "abs"}}
	h.control.stopResult = session.StopResult{Logged: true, LastPerformance: "Today: 01:30"}

	h.controller.StopSession()

	assert.Equal(t, 1, h.history.calls)
	assert.Equal(t, 1, h.control.refreshes)
	require.Len(t, h.model.GetHistory(), 1)
	assert.True(t, h.logged("Today: 01:30"))
}

func TestStopSessionNotLoggedKeepsHistory(t *testing.T) {
	h := newControllerHarness(t)
	h.control.stopResult = session.StopResult{LastPerformance: "Today: 00:10"}

	h.controller.StopSession()

	assert.Zero(t, h.history.calls)
}

func TestSkipExercise(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.SkipExercise()

	assert.Equal(t, 1, h.control.skips)
}

func TestCycleSportBlockedWhileRunning(t *testing.T) {
	h := newControllerHarness(t)
	h.setRunning(t, true)

	h.controller.CycleSport()

	assert.Equal(t, "bike", h.model.GetPreferences().Sport)
	assert.True(t, h.logged("Stop the session to change sport"))

	h.setRunning(t, false)
	h.controller.CycleSport()
	assert.Equal(t, "run", h.model.GetPreferences().Sport)
}

func TestCycleLanguageAppliesToSession(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.CycleLanguage()
	h.controller.CycleLanguage()

	assert.Equal(t, []string{"fr", "random"}, h.control.langs)
	assert.Equal(t, "random", h.model.GetPreferences().LangPref)
}

func TestToggleVisibility(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.ToggleVisibility()
	assert.False(t, h.model.GetPreferences().Visible)

	h.controller.ToggleVisibility()
	assert.True(t, h.model.GetPreferences().Visible)
	assert.Equal(t, []bool{false, true}, h.control.visible)
}

func TestToggleVisibilityFailureKeepsModel(t *testing.T) {
	h := newControllerHarness(t)
	h.control.visibleErr = errors.New("boom")

	h.controller.ToggleVisibility()

	assert.True(t, h.model.GetPreferences().Visible)
	assert.True(t, h.logged("Visibility change failed: boom"))
}

func TestOnModeChangeLoadsHistory(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.OnModeChange(UIModeHistory)

	assert.Equal(t, 1, h.history.calls)
	assert.Equal(t, UIModeHistory, h.model.GetUIState().Mode)

	h.controller.OnModeChange(UIModeDashboard)
	assert.Equal(t, 1, h.history.calls)
	assert.Equal(t, UIModeDashboard, h.model.GetUIState().Mode)
}

func TestLoadHistoryFailure(t *testing.T) {
	h := newControllerHarness(t)
	h.history.err = errors.New("disk gone")

	h.controller.LoadHistory()

	assert.Empty(t, h.model.GetHistory())
	assert.Zero(t, h.control.refreshes)
	assert.True(t, h.logged("Loading history failed: disk gone"))
}

func TestOnEscapeKeyRequestsClose(t *testing.T) {
	h := newControllerHarness(t)
	ch := make(chan struct{}, 1)
	unregister := h.model.ListenToCloseApplication(ch)
	defer unregister()

	h.controller.OnEscapeKey()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("close not requested")
	}
}

func TestControllerShutdown(t *testing.T) {
	h := newControllerHarness(t)

	h.controller.Shutdown()

	assert.Equal(t, 1, h.control.shutdowns)
}

func TestNewUIControllerPanics(t *testing.T) {
	h := newModelHarness(t, "")
	assert.Panics(t, func() { NewUIController(nil, &fakeSessionControl{}, &fakeHistory{}, h.logger) })
	assert.Panics(t, func() { NewUIController(h.model, nil, &fakeHistory{}, h.logger) })
	assert.Panics(t, func() { NewUIController(h.model, &fakeSessionControl{}, nil, h.logger) })
}
