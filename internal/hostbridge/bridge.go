package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"premiere-bridge/internal/domain"
)

// The host's automation surface only accepts file-triggered scripts, so the
// protocol is a fixed script/result file pair in a per-session temp
// directory: we write the script, the host eventually writes the result.
const (
	scriptFileName = "script.jsx"
	resultFileName = "result.txt"

	defaultTimeout = 30 * time.Second
	pollInterval   = 100 * time.Millisecond
	readRetries    = 10
	readRetryDelay = 50 * time.Millisecond
)

// Bridge hands scripts to the host application's scripting engine and
// retrieves the string result. The filenames are fixed, so calls are
// serialized; only one request/response cycle is in flight at a time.
type Bridge struct {
	mu      sync.Mutex
	dir     string
	timeout time.Duration
	log     zerolog.Logger
}

// New creates a bridge rooted at dir, creating it if needed.
func New(dir string, log zerolog.Logger) (*Bridge, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bridge dir: %w", err)
	}
	return &Bridge{
		dir:     dir,
		timeout: defaultTimeout,
		log:     log.With().Str("component", "hostbridge").Logger(),
	}, nil
}

// ScriptPath returns the fixed script file location.
func (b *Bridge) ScriptPath() string { return filepath.Join(b.dir, scriptFileName) }

// ResultPath returns the fixed result file location. Scripts must write
// their outcome here.
func (b *Bridge) ResultPath() string { return filepath.Join(b.dir, resultFileName) }

// Execute writes the script for the host to pick up and waits for the
// result file, returning its trimmed contents. Both files are removed
// best-effort before returning. ErrBridgeTimeout is returned when no result
// appears within the deadline.
func (b *Bridge) Execute(ctx context.Context, script string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	scriptPath := b.ScriptPath()
	resultPath := b.ResultPath()

	// A stale result from an earlier call would be read as this call's
	// answer; clear it before the host can see the new script.
	_ = os.Remove(resultPath)

	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("write host script: %w", err)
	}
	defer func() {
		_ = os.Remove(scriptPath)
		_ = os.Remove(resultPath)
	}()

	if err := b.waitForResult(ctx, resultPath); err != nil {
		return "", err
	}

	result, err := readWithRetry(resultPath)
	if err != nil {
		return "", err
	}

	b.log.Debug().Str("result", result).Msg("host script completed")
	return result, nil
}

// waitForResult blocks until the result file exists, the deadline passes,
// or ctx is cancelled. A directory watcher provides fast wake-up with a
// poll ticker as fallback; some hosts write through renames the watcher can
// miss.
func (b *Bridge) waitForResult(ctx context.Context, resultPath string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if watchErr := watcher.Add(b.dir); watchErr == nil {
			events = make(chan fsnotify.Event)
			go func() {
				for ev := range watcher.Events {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	} else {
		b.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if fileExists(resultPath) {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return domain.ErrBridgeTimeout
			}
			return ctx.Err()
		case ev := <-events:
			if ev.Name == resultPath && fileExists(resultPath) {
				return nil
			}
		case <-ticker.C:
		}
	}
}

// readWithRetry re-reads the result file until it is non-empty; the host
// may still be flushing when the file first appears.
func readWithRetry(path string) (string, error) {
	for attempt := 0; attempt < readRetries; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			if result := strings.TrimSpace(string(data)); result != "" {
				return result, nil
			}
		}
		time.Sleep(readRetryDelay)
	}
	return "", fmt.Errorf("host result file stayed empty: %s", path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
