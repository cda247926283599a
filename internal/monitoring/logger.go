package monitoring

import (
	"log"
	"os"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs verbose diagnostics. It stays a no-op unless SATGRID_DEBUG is set
// in the environment, so per-pixel command traffic and playback ticks can log
// freely without flooding normal runs.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

func init() {
	if os.Getenv("SATGRID_DEBUG") != "" {
		Debugf = func(format string, v ...interface{}) {
			Logf("debug: "+format, v...)
		}
	}
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
