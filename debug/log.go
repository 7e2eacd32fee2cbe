// Package debug is a file logger for live-mode internals. The TUI owns
// stdout, so anything worth seeing while the interface is up goes to
// ~/.config/midiphoria/debug.log instead.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type sink struct {
	mu     sync.Mutex
	f      *os.File
	counts map[string]int
}

var log = sink{counts: make(map[string]int)}

func logPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiphoria", "debug.log"), nil
}

// Enable opens the log file, truncating any previous run. Calling it
// again while enabled is a no-op.
func Enable() error {
	log.mu.Lock()
	defer log.mu.Unlock()

	if log.f != nil {
		return nil
	}
	path, err := logPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	log.f = f
	log.write("debug", "session started")
	return nil
}

// Disable closes the log file. Log calls become no-ops again.
func Disable() {
	log.mu.Lock()
	defer log.mu.Unlock()

	if log.f != nil {
		log.f.Close()
		log.f = nil
	}
}

// Log writes one line under a category. Does nothing unless Enable ran.
func Log(category, format string, args ...any) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.write(category, format, args...)
}

// LogEvery writes only every nth call with the same category and format,
// for events too frequent to log individually. The line carries the total
// count so gaps are visible.
func LogEvery(n int, category, format string, args ...any) {
	log.mu.Lock()
	defer log.mu.Unlock()

	key := category + "\x00" + format
	log.counts[key]++
	if c := log.counts[key]; c%n == 0 {
		log.write(category, format+" (x%d)", append(args, c)...)
	}
}

// write appends one line and syncs so a crash loses nothing. Caller
// holds mu.
func (s *sink) write(category, format string, args ...any) {
	if s.f == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(s.f, "%s [%s] %s\n", ts, category, fmt.Sprintf(format, args...))
	s.f.Sync()
}
