package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	FileName   string
	ToStdout   bool
	Level      string
	FormatJSON bool
	MaxSizeMB  int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the application logger. The returned closer flushes and
// closes the rotating log file.
func Setup(params Params) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	if params.FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	logger.SetLevel(GetLevel(params.Level))

	if params.FileName == "" {
		if params.ToStdout {
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(io.Discard)
		}
		return logger, nopCloser{}
	}

	if !strings.HasSuffix(params.FileName, ".log") {
		params.FileName += ".log"
	}
	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	file := &lumberjack.Logger{
		Filename:  params.FileName,
		MaxSize:   maxSize, // megabytes
		LocalTime: true,
		Compress:  true,
	}

	if params.ToStdout {
		logger.SetOutput(NewCombinedWriter(os.Stdout, file))
	} else {
		logger.SetOutput(file)
	}
	return logger, file
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
