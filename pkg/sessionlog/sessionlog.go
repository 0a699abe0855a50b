// Package sessionlog writes a per-login audit log without blocking callers.
// Producers enqueue entries from any goroutine; a single background drain
// loop appends them to the session file in strict FIFO order. The file is
// the durable record of every batch a user ran that session.
package sessionlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const separator = "------------------------------------------------------------\n"

const timeLayout = "2006-01-02 15:04:05"

// Filename returns a unique per-login file name:
// SESSION_<YYYYMMDD>_<HHMMSS>_<USER>.log
func Filename(user string, now time.Time) string {
	safe := strings.ReplaceAll(strings.TrimSpace(user), " ", "_")
	if safe == "" {
		safe = "unknown"
	}
	return fmt.Sprintf("SESSION_%s_%s_%s.log", now.Format("20060102"), now.Format("150405"), safe)
}

// Logger is the asynchronous session log sink. Enqueue operations never
// perform I/O on the calling goroutine; Close drains the queue before the
// drain loop stops. A closed Logger silently drops further entries.
type Logger struct {
	path   string
	logger zerolog.Logger

	mu     sync.Mutex
	queue  []string
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New creates the session directory if needed, opens a fresh per-login log,
// starts the drain loop, and enqueues the session header.
func New(dir, user string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log directory: %w", err)
	}

	now := time.Now()
	l := &Logger{
		path:   filepath.Join(dir, Filename(user, now)),
		logger: log.With().Str("component", "session-log").Logger(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.drainLoop()

	if user == "" {
		user = "unknown"
	}
	l.enqueue(fmt.Sprintf("\n=== Session started by %s at %s ===\n%s", user, now.Format(timeLayout), separator))
	return l, nil
}

// Path returns the backing file path.
func (l *Logger) Path() string {
	return l.path
}

// Append enqueues a single timestamped line. Empty input is ignored.
func (l *Logger) Append(line string) {
	if line == "" {
		return
	}
	l.enqueue(fmt.Sprintf("[%s] %s\n", time.Now().Format(timeLayout), line))
}

// AppendBlock enqueues a titled, timestamped block followed by a separator.
// Multi-line bodies stay grouped under the one title line.
func (l *Logger) AppendBlock(title, text string) {
	l.enqueue(blockHeader(title) + text + "\n" + separator)
}

// AppendJSON enqueues a titled, timestamped JSON payload serialized to
// readable text (HTML characters left unescaped).
func (l *Logger) AppendJSON(title string, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to serialize session log payload")
		return
	}
	// Encode appends its own newline.
	l.enqueue(blockHeader(title) + buf.String() + separator)
}

func blockHeader(title string) string {
	ts := time.Now().Format(timeLayout)
	if title == "" {
		return fmt.Sprintf("\n---- (%s) ----\n", ts)
	}
	return fmt.Sprintf("\n---- %s (%s) ----\n", title, ts)
}

// enqueue appends to the unbounded FIFO queue and returns immediately.
func (l *Logger) enqueue(entry string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, entry)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting new entries, lets the drain loop flush everything
// queued at the time of the call, and waits up to timeout for it to finish.
// On timeout the loop is abandoned; queued data is still flushed by it
// whenever it gets scheduled.
func (l *Logger) Close(timeout time.Duration) {
	l.mu.Lock()
	alreadyClosed := l.closed
	l.closed = true
	l.mu.Unlock()
	if alreadyClosed {
		return
	}

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-l.done:
	case <-time.After(timeout):
		l.logger.Warn().Str("path", l.path).Msg("Session log drain loop did not stop before timeout")
	}
}

// drainLoop runs on one dedicated goroutine for the lifetime of the sink.
// Each wake flushes every queued entry in submission order; after the close
// flag is observed it performs one final drain and stops.
func (l *Logger) drainLoop() {
	defer close(l.done)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		stopped := l.closed
		l.mu.Unlock()

		if len(batch) > 0 {
			l.flush(batch)
		}

		if stopped {
			// Entries can land between the snapshot and the close flag.
			l.mu.Lock()
			batch = l.queue
			l.queue = nil
			l.mu.Unlock()
			if len(batch) > 0 {
				l.flush(batch)
			}
			return
		}

		select {
		case <-l.wake:
		case <-ticker.C:
		}
	}
}

// flush appends a batch of entries to the backing file. Append-only: the
// file is never truncated, and UTF-8 text is written as-is.
func (l *Logger) flush(batch []string) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).Msg("Failed to open session log")
		return
	}
	defer f.Close()

	for _, entry := range batch {
		if _, err := f.WriteString(entry); err != nil {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("Failed to write session log entry")
			return
		}
	}
}
