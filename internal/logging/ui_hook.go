package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LineHook mirrors log entries as short lines onto a channel, for the
// terminal log pane. Lines are dropped when the channel is full.
type LineHook struct {
	lines  chan<- string
	levels []logrus.Level
}

func NewLineHook(lines chan<- string, minLevel logrus.Level) *LineHook {
	if lines == nil {
		panic("LineHook: lines cannot be nil")
	}
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= minLevel {
			levels = append(levels, l)
		}
	}
	return &LineHook{lines: lines, levels: levels}
}

func (h *LineHook) Levels() []logrus.Level { return h.levels }

func (h *LineHook) Fire(entry *logrus.Entry) error {
	line := fmt.Sprintf("[%s] %s", entry.Time.Format("15:04:05"), entry.Message)
	if entry.Level <= logrus.WarnLevel {
		line = fmt.Sprintf("[%s] [%s]%s[white]", entry.Time.Format("15:04:05"), levelColor(entry.Level), entry.Message)
	}
	select {
	case h.lines <- line:
	default:
	}
	return nil
}

func levelColor(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "yellow"
	}
	return "red"
}
