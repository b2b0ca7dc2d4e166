package debuglog

import (
	"io"
	"log"
	"os"
	"sync"
)

const prefix = "[Sentry] "

var (
	logger = log.New(io.Discard, prefix, log.LstdFlags)
	mu     sync.RWMutex
)

// Enable directs debug output to w, or to stderr when w is nil.
func Enable(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	SetLogger(log.New(w, prefix, log.LstdFlags))
}

// SetLogger replaces the current debug logger with a new one.
// This function is thread-safe and can be called concurrently.
func SetLogger(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// GetLogger returns the current logger instance.
// This function is thread-safe and can be called concurrently.
func GetLogger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Printf calls Printf on the underlying logger.
func Printf(format string, args ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Printf(format, args...)
	}
}

// Println calls Println on the underlying logger.
func Println(args ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Println(args...)
	}
}
