package go_func_utils

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// SafeGo runs fn on a new goroutine. A panic is logged with its stack and
// then re-raised: the terminal UI owns stdout, so the log file is the only
// place the crash would otherwise be visible.
func SafeGo(logger logrus.FieldLogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("goroutine", name).Errorf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
