package coach

import "time"

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeDashboard UIMode = iota // Live session: timer, exercise, metrics
	UIModeHistory                 // Logged sessions with full day badges
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  rune // The number key to activate this mode
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModeDashboard, DisplayName: "Dashboard", KeyBinding: '1'},
	{Mode: UIModeHistory, DisplayName: "History", KeyBinding: '2'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

// Dashboard key bindings
const (
	KeyStart         = ' '
	KeySkip          = 'n'
	KeyStop          = 'x'
	KeyCycleSport    = 'c'
	KeyCycleLanguage = 'l'
	KeyToggleVisible = 'v'
	KeyRefresh       = 'r'
)

const (
	maxLogLines   = 1000
	actionTimeout = 3 * time.Second
)
