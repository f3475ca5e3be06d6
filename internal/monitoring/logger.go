package monitoring

import (
	"fmt"
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// warner receives user-visible warnings. When nil, warnings are routed
// through Logf with a "WARNING: " prefix.
var (
	warnMu   sync.Mutex
	warner   func(msg string)
	lastWarn string
)

// SetWarner replaces the sink for user-visible warnings. Passing nil
// restores the default, which writes through Logf.
func SetWarner(f func(msg string)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	warner = f
	lastWarn = ""
}

// Warnf reports a non-fatal misuse to the user. The same message repeated
// back to back is only reported once, so a sketch that calls an
// unsupported operation every frame does not flood the log.
func Warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	warnMu.Lock()
	if msg == lastWarn {
		warnMu.Unlock()
		return
	}
	lastWarn = msg
	sink := warner
	warnMu.Unlock()

	if sink != nil {
		sink(msg)
		return
	}
	Logf("WARNING: %s", msg)
}
