package speech

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/lowaak/smart-trainer/coach-app/internal/go_func_utils"
)

var ErrQueueFull = errors.New("announcement queue full")

// Voice selects the announcement language.
type Voice struct {
	Lang   string
	Locale string
}

// Announcer is the text-to-speech capability. Announce must not block on
// playback, and callers treat its errors as best effort.
type Announcer interface {
	Announce(text string, voice Voice) error
	CancelAll()
}

// LogAnnouncer only writes announcements to the log.
type LogAnnouncer struct {
	logger logrus.FieldLogger
}

func NewLogAnnouncer(logger logrus.FieldLogger) *LogAnnouncer {
	if logger == nil {
		panic("LogAnnouncer: logger cannot be nil")
	}
	return &LogAnnouncer{logger: logger}
}

func (a *LogAnnouncer) Announce(text string, voice Voice) error {
	a.logger.Printf("Speech[%s]: %s", voice.Locale, text)
	return nil
}

func (a *LogAnnouncer) CancelAll() {}

// MultiAnnouncer fans announcements out to several backends.
type MultiAnnouncer []Announcer

func (m MultiAnnouncer) Announce(text string, voice Voice) error {
	var err error
	for _, a := range m {
		err = multierr.Append(err, a.Announce(text, voice))
	}
	return err
}

func (m MultiAnnouncer) CancelAll() {
	for _, a := range m {
		a.CancelAll()
	}
}

type queuedUtterance struct {
	text       string
	voice      Voice
	generation uint64
}

// CommandAnnouncer speaks through an external TTS program, one utterance at
// a time. Argument templates may contain {text}, {lang} and {locale}.
type CommandAnnouncer struct {
	argv   []string
	logger logrus.FieldLogger
	queue  chan queuedUtterance

	mu         sync.Mutex
	generation uint64
	current    *exec.Cmd

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCommandAnnouncer(argv []string, logger logrus.FieldLogger) *CommandAnnouncer {
	if len(argv) == 0 {
		panic("CommandAnnouncer: argv cannot be empty")
	}
	if logger == nil {
		panic("CommandAnnouncer: logger cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &CommandAnnouncer{
		argv:   argv,
		logger: logger,
		queue:  make(chan queuedUtterance, 16),
		ctx:    ctx,
		cancel: cancel,
	}
	a.wg.Add(1)
	go_func_utils.SafeGo(logger, "command-announcer", a.run)
	return a
}

func (a *CommandAnnouncer) Announce(text string, voice Voice) error {
	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	select {
	case a.queue <- queuedUtterance{text: text, voice: voice, generation: gen}:
		return nil
	default:
		return ErrQueueFull
	}
}

// CancelAll kills the utterance being spoken and drops queued ones.
func (a *CommandAnnouncer) CancelAll() {
	a.mu.Lock()
	a.generation++
	if a.current != nil && a.current.Process != nil {
		_ = a.current.Process.Kill()
	}
	a.mu.Unlock()

	for {
		select {
		case <-a.queue:
		default:
			return
		}
	}
}

// Close stops the worker and waits for it.
func (a *CommandAnnouncer) Close() {
	a.cancel()
	a.wg.Wait()
}

func (a *CommandAnnouncer) run() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case u := <-a.queue:
			a.speak(u)
		}
	}
}

func (a *CommandAnnouncer) speak(u queuedUtterance) {
	args := expandArgs(a.argv, u.text, u.voice)
	cmd := exec.CommandContext(a.ctx, args[0], args[1:]...)

	a.mu.Lock()
	if u.generation != a.generation {
		a.mu.Unlock()
		return
	}
	if err := cmd.Start(); err != nil {
		a.mu.Unlock()
		a.logger.Debugf("CommandAnnouncer: start %s failed: %v", args[0], err)
		return
	}
	a.current = cmd
	a.mu.Unlock()

	if err := cmd.Wait(); err != nil {
		a.logger.Debugf("CommandAnnouncer: %s exited: %v", args[0], err)
	}

	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}

func expandArgs(argv []string, text string, voice Voice) []string {
	r := strings.NewReplacer("{text}", text, "{lang}", voice.Lang, "{locale}", voice.Locale)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}
