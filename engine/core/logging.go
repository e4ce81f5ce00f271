package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Lumen 🔦 ",
			CallerOffset:    1,
		})
		l.SetLevel(log.InfoLevel)
		singleton = &logger{l}
	})
	return singleton
}

// SetLogLevel accepts debug, info, warn, error or fatal. Unknown levels are
// reported and leave the current level untouched.
func SetLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		getLogger().Warnf("unknown log level %q, keeping %s", level, getLogger().GetLevel())
		return
	}
	getLogger().SetLevel(lvl)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

// LogFatal logs and exits the process.
func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
