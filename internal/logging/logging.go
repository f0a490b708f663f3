// Package logging builds the single *log.Logger injected into every
// component. Lines go to a log file and stdout, and optionally to Fluent Bit.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Config describes the log sinks.
type Config struct {
	// File is appended to; its directory is created if needed. Empty disables
	// the file sink.
	File string

	// Stdout defaults to os.Stdout.
	Stdout io.Writer

	// FluentHost enables the Fluent Bit sink when non-empty.
	FluentHost string
	FluentPort int

	// TagPrefix defaults to "salesload"; records are posted under
	// <TagPrefix>.log.
	TagPrefix string

	// RunID is attached to every Fluent record.
	RunID string
}

// New returns a logger writing timestamped lines to every configured sink and
// a close function that flushes and releases them.
func New(cfg Config) (*log.Logger, func() error, error) {
	var (
		writers []io.Writer
		closers []io.Closer
	)
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("log dir: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closers = append(closers, f)
	}
	writers = append(writers, stdout)

	if cfg.FluentHost != "" {
		prefix := cfg.TagPrefix
		if prefix == "" {
			prefix = "salesload"
		}
		fl, err := fluent.New(fluent.Config{
			FluentHost: cfg.FluentHost,
			FluentPort: cfg.FluentPort,
			TagPrefix:  prefix,
			Async:      true,
		})
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("fluent logger: %w", err)
		}
		// Last in the chain: its write never fails, so it cannot cut off the
		// sinks before it.
		writers = append(writers, &FluentWriter{Poster: fl, RunID: cfg.RunID})
		closers = append(closers, fl)
	}

	logger := log.New(io.MultiWriter(writers...), "", log.LstdFlags)
	return logger, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []io.Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Poster is the subset of *fluent.Fluent used by FluentWriter.
type Poster interface {
	Post(tag string, message any) error
}

// FluentWriter posts each log line as a {"message", "run_id"} record under
// tag "log". Post failures are dropped; the file and stdout sinks remain
// authoritative.
type FluentWriter struct {
	Poster Poster
	RunID  string
}

func (w *FluentWriter) Write(p []byte) (int, error) {
	rec := map[string]string{"message": strings.TrimRight(string(p), "\n")}
	if w.RunID != "" {
		rec["run_id"] = w.RunID
	}
	_ = w.Poster.Post("log", rec)
	return len(p), nil
}
