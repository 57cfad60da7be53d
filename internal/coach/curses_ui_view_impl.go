package coach

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
)

// Page names for tview.Pages
const (
	pageDashboard = "dashboard"
	pageHistory   = "history"
)

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger      logrus.FieldLogger
	app         *tview.Application
	model       *UIModel
	currentMode UIMode

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	logView  *tview.TextView
	mainFlex *tview.Flex // Main layout: mode content on left, logs on right

	// Dashboard mode components
	dashboardFlex       *tview.Flex
	dashboardTabWidgets []*tview.Box
	headerPanel         *tview.TextView
	timerPanel          *tview.TextView
	exercisePanel       *tview.TextView
	metricsPanel        *tview.TextView
	spokenPanel         *tview.TextView

	// History mode components
	historyFlex       *tview.Flex
	historyTabWidgets []*tview.Box
	historyList       *tview.List
	historySummary    *tview.TextView

	prefs Preferences
	state session.State
}

func NewCursesUIView(logger logrus.FieldLogger, app *tview.Application, model *UIModel) *CursesUIViewImpl {
	return &CursesUIViewImpl{
		logger:      logger,
		app:         app,
		model:       model,
		currentMode: UIModeDashboard,
	}
}

func newPanel(title string) *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBorder(true).SetTitle(title)
	return tv
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// Don't use SetChangedFunc with app.Draw() - it can hang during shutdown.
	// The BaseUIView's event listeners already call Draw() after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.pages = tview.NewPages()

	ui.initDashboardMode()
	ui.initHistoryMode()

	ui.pages.AddPage(pageDashboard, ui.dashboardFlex, true, true)
	ui.pages.AddPage(pageHistory, ui.historyFlex, true, false)

	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 3, true).
		AddItem(ui.logView, 0, 2, false)

	ui.setFocusForCurrentMode()
}

func (ui *CursesUIViewImpl) initDashboardMode() {
	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]Space[white] Start/Stop  |  [yellow]N[white] Next  |  [yellow]X[white] Stop  |  [yellow]C[white] Sport  |  [yellow]L[white] Language  |  [yellow]V[white] Background\n[yellow]1[white] Dashboard  |  [yellow]2[white] History  |  [yellow]Esc[white] Quit")

	ui.headerPanel = newPanel(" Coach ")
	ui.timerPanel = newPanel(" Timer ")
	ui.timerPanel.SetTextAlign(tview.AlignCenter)
	ui.exercisePanel = newPanel(" Exercise ")
	ui.exercisePanel.SetWordWrap(true)
	ui.metricsPanel = newPanel(" Metrics ")
	ui.spokenPanel = newPanel(" Voice ")

	ui.dashboardTabWidgets = append(ui.dashboardTabWidgets, ui.exercisePanel.Box, ui.metricsPanel.Box)

	topRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.headerPanel, 0, 1, false).
		AddItem(ui.timerPanel, 0, 1, false)

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.metricsPanel, 0, 1, false).
		AddItem(ui.spokenPanel, 0, 1, false)

	ui.dashboardFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 2, 0, false).
		AddItem(topRow, 7, 0, false).
		AddItem(ui.exercisePanel, 0, 1, true).
		AddItem(bottomRow, 8, 0, false)

	ui.UpdateSessionState(session.State{Status: session.StatusIdle})
}

func (ui *CursesUIViewImpl) initHistoryMode() {
	ui.historyList = tview.NewList().
		ShowSecondaryText(true)
	ui.historyList.SetBorder(true).SetTitle(" Sessions ")

	ui.historySummary = newPanel(" Summary ")

	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]R[white] Reload  |  [yellow]1[white] Dashboard  |  [yellow]Esc[white] Quit")

	ui.historyTabWidgets = append(ui.historyTabWidgets, ui.historyList.Box, ui.historySummary.Box)

	ui.historyFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 1, 0, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(ui.historyList, 0, 2, true).
			AddItem(ui.historySummary, 0, 1, false), 0, 1, true)

	ui.SetHistory(nil)
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}

	ui.currentMode = mode

	switch mode {
	case UIModeDashboard:
		ui.pages.SwitchToPage(pageDashboard)
	case UIModeHistory:
		ui.pages.SwitchToPage(pageHistory)
	}

	ui.setFocusForCurrentMode()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	return ui.currentMode
}

func (ui *CursesUIViewImpl) getTabWidgetsForCurrentMode() []*tview.Box {
	switch ui.currentMode {
	case UIModeDashboard:
		return ui.dashboardTabWidgets
	case UIModeHistory:
		return ui.historyTabWidgets
	default:
		return nil
	}
}

func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	if widgets := ui.getTabWidgetsForCurrentMode(); len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				// Delegate to controller - it will update the model, which will notify us
				controller.OnModeChange(mode)
				return nil
			}
		}

		// Tab to switch focus between widgets in current mode
		if event.Key() == tcell.KeyTab {
			widgets := ui.getTabWidgetsForCurrentMode()
			for i, w := range widgets {
				if w.HasFocus() {
					ui.app.SetFocus(widgets[(i+1)%len(widgets)])
					break
				}
			}
			return nil
		}

		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		if event.Key() != tcell.KeyRune {
			if ui.currentMode == UIModeDashboard && event.Key() == tcell.KeyEnter {
				controller.StartSession()
				return nil
			}
			return event
		}

		switch ui.currentMode {
		case UIModeDashboard:
			switch event.Rune() {
			case KeyStart:
				controller.ToggleSession()
			case KeySkip:
				controller.SkipExercise()
			case KeyStop:
				controller.StopSession()
			case KeyCycleSport:
				controller.CycleSport()
			case KeyCycleLanguage:
				controller.CycleLanguage()
			case KeyToggleVisible:
				controller.ToggleVisibility()
			default:
				return event
			}
			return nil
		case UIModeHistory:
			if event.Rune() == KeyRefresh {
				controller.LoadHistory()
				return nil
			}
		}

		return event
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}

// UpdatePreferences updates the sport and language selection display
func (ui *CursesUIViewImpl) UpdatePreferences(prefs Preferences) {
	ui.prefs = prefs
	ui.updateHeaderDisplay()
}

// UpdateSessionState updates every dashboard panel from the session state
func (ui *CursesUIViewImpl) UpdateSessionState(state session.State) {
	ui.state = state
	ui.updateHeaderDisplay()
	ui.updateTimerDisplay()
	ui.updateExerciseDisplay()
	ui.updateMetricsDisplay()
}

// UpdateSpoken shows the last utterance
func (ui *CursesUIViewImpl) UpdateSpoken(u speech.Utterance) {
	if ui.spokenPanel == nil {
		return
	}
	ui.spokenPanel.SetText(fmt.Sprintf("\n  [gray]%s %s[white]\n  %s", u.At.Local().Format("15:04:05"), u.Locale, tview.Escape(u.Text)))
}

func (ui *CursesUIViewImpl) updateHeaderDisplay() {
	if ui.headerPanel == nil {
		return
	}
	state := ui.state

	sport := ui.prefs.Sport
	if state.Running() {
		sport = state.Sport
	}
	view := "[green]foreground[white]"
	if !ui.prefs.Visible {
		view = "[gray]background[white]"
	}

	text := fmt.Sprintf("\n  [yellow]%s[white]\n", sessionHeadline(state))
	text += fmt.Sprintf("  [gray]Sport:[white] %s   [gray]Lang:[white] %s   [gray]View:[white] %s\n", session.Capitalize(sport), ui.prefs.LangPref, view)
	text += fmt.Sprintf("  %s", chipText(state))
	ui.headerPanel.SetText(text)
}

func chipText(state session.State) string {
	if state.Gate.ChipText == "" {
		return ""
	}
	if !state.Gate.CanTrain {
		return fmt.Sprintf("[red]%s[white]", state.Gate.ChipText)
	}
	return fmt.Sprintf("[green]%s[white]", state.Gate.ChipText)
}

func (ui *CursesUIViewImpl) updateTimerDisplay() {
	if ui.timerPanel == nil {
		return
	}
	state := ui.state
	text := fmt.Sprintf("\n[::b]%s[::-]\n", state.Timer())
	if sub := state.SubTimer(); sub != "" {
		color := "cyan"
		if state.InPause {
			color = "yellow"
		}
		text += fmt.Sprintf("[%s]%s[white]", color, sub)
	}
	ui.timerPanel.SetText(text)
}

func (ui *CursesUIViewImpl) updateExerciseDisplay() {
	if ui.exercisePanel == nil {
		return
	}
	state := ui.state

	var text string
	switch {
	case !state.Running():
		text = "\n  [gray]No session running[white]\n\n"
		if state.Gate.StartEnabled || state.Gate.ChipText == "" {
			text += "  Press [yellow]Space[white] to start.\n"
		}
	case state.Mode == session.ModeBackground:
		text = "\n  [gray]Session resumed. Time and metrics are tracked; press[white] [yellow]N[white] [gray]to resume coaching.[white]\n"
	case state.Exercise == nil:
		text = "\n  [gray]Waiting for the next exercise...[white]\n"
	default:
		text = fmt.Sprintf("\n  [yellow]%s[white]  [gray]%s[white]\n\n", tview.Escape(state.Exercise.Name), state.ExerciseStatus)
		text += "  " + tview.Escape(state.Explanation) + "\n"
	}

	if state.StatusMessage != "" {
		text += fmt.Sprintf("\n  [orange]%s[white]\n", tview.Escape(state.StatusMessage))
	}
	ui.exercisePanel.SetText(text)
}

func (ui *CursesUIViewImpl) updateMetricsDisplay() {
	if ui.metricsPanel == nil {
		return
	}
	state := ui.state

	text := fmt.Sprintf("\n  [red]♥[white] Calories:  [yellow]%d[white] kcal\n", state.Metrics.Calories)
	if state.Metrics.HasDistance {
		text += fmt.Sprintf("  [green]→[white] Distance:  [yellow]%.1f[white] km\n", state.Metrics.DistanceKm)
	}
	if state.LastPerformance != "" {
		text += fmt.Sprintf("\n  [gray]%s[white]\n", state.LastPerformance)
	}
	ui.metricsPanel.SetText(text)
}

// SetHistory populates the history list
func (ui *CursesUIViewImpl) SetHistory(entries []HistoryEntry) {
	if ui.historyList == nil {
		return
	}
	current := ui.historyList.GetCurrentItem()
	ui.historyList.Clear()

	if len(entries) == 0 {
		ui.historyList.AddItem("No sessions logged yet", "", 0, nil)
	}
	for _, e := range entries {
		badge := "[gray]Partial[white]"
		if e.FullDay {
			badge = "[green]Full day[white]"
		}
		ui.historyList.AddItem(fmt.Sprintf("%s  %s", e.Date, e.Sport), fmt.Sprintf("  %s  %s", e.Duration, badge), 0, nil)
	}
	if current < ui.historyList.GetItemCount() {
		ui.historyList.SetCurrentItem(current)
	}

	ui.updateHistorySummary(entries)
}

func (ui *CursesUIViewImpl) updateHistorySummary(entries []HistoryEntry) {
	full := 0
	for _, e := range entries {
		if e.FullDay {
			full++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n  [gray]Logged:[white]   %d\n", len(entries))
	fmt.Fprintf(&b, "  [gray]Full days:[white] %d\n\n", full)
	if chip := chipText(ui.state); chip != "" {
		fmt.Fprintf(&b, "  %s\n", chip)
	}
	ui.historySummary.SetText(b.String())
}
