package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Log is called from the MIDI routing goroutine, so it only formats and
// enqueues. A single writer goroutine owns the file. When the queue is full
// the entry is dropped and counted.

type entry struct {
	at       time.Time
	category string
	msg      string
}

const queueSize = 1024

var (
	mu      sync.Mutex
	qmu     sync.RWMutex // guards queue against close during send
	file    *os.File
	queue   chan entry
	done    chan struct{}
	enabled atomic.Bool
	dropped atomic.Uint64
)

// DefaultPath returns ~/.config/pitch-velocity/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "pitch-velocity", "debug.log")
}

// Enable starts debug logging to DefaultPath
func Enable() error {
	return EnableAt(DefaultPath())
}

// EnableAt starts debug logging to path, truncating it
func EnableAt(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled.Load() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		Level:     log.DebugLevel,
		Formatter: log.LogfmtFormatter,
	})

	file = f
	qmu.Lock()
	queue = make(chan entry, queueSize)
	qmu.Unlock()
	done = make(chan struct{})
	dropped.Store(0)
	go writer(logger, queue, done)

	enabled.Store(true)
	Log("debug", "=== Debug logging started ===")

	return nil
}

func writer(logger *log.Logger, q <-chan entry, done chan<- struct{}) {
	defer close(done)
	for e := range q {
		logger.Debug(e.msg, "at", e.at.Format("15:04:05.000"), "cat", e.category)
	}
}

// Disable flushes pending entries and stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled.Load() {
		return
	}
	enabled.Store(false)

	qmu.Lock()
	close(queue)
	queue = nil
	qmu.Unlock()
	<-done

	if n := dropped.Load(); n > 0 {
		fmt.Fprintf(file, "dropped %d entries\n", n)
	}
	file.Close()
	file = nil
}

// Enabled reports whether logging is on
func Enabled() bool {
	return enabled.Load()
}

// Dropped returns how many entries were discarded because the writer fell behind
func Dropped() uint64 {
	return dropped.Load()
}

// Log writes a message to the debug log. It never blocks.
func Log(category, format string, args ...any) {
	if !enabled.Load() {
		return
	}

	e := entry{at: time.Now(), category: category, msg: fmt.Sprintf(format, args...)}

	qmu.RLock()
	defer qmu.RUnlock()
	if queue == nil {
		return
	}

	select {
	case queue <- e:
	default:
		dropped.Add(1)
	}
}

var (
	cmu      sync.Mutex // counters only, never held across I/O
	counters = make(map[string]int)
)

// LogEvery logs only every N calls (use for high-frequency events)
func LogEvery(n int, category, format string, args ...any) {
	if !enabled.Load() || n <= 0 {
		return
	}

	cmu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	cmu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
