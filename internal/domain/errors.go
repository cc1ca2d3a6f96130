package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classified at the request boundary. Validation errors are
// rejected before any subprocess starts.
var (
	ErrInvalidSource = errors.New("source url is not an allowed video platform")
	ErrOutOfBounds   = errors.New("clip range exceeds media duration")
	ErrBusy          = errors.New("a download is already in progress")
	ErrCancelled     = errors.New("download cancelled")
	ErrBridgeTimeout = errors.New("timed out waiting for host script result")
	ErrNoProject     = errors.New("no active Premiere Pro project found")
)

// ProcessError reports a non-zero exit from an external tool with a
// truncated stderr excerpt for diagnostics.
type ProcessError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

// TaggingError marks a failed provenance tag. The downloaded file is kept on
// disk, but the request as a whole is treated as failed.
type TaggingError struct {
	Path string
	Err  error
}

func (e *TaggingError) Error() string {
	return fmt.Sprintf("tagging %s: %v", e.Path, e.Err)
}

func (e *TaggingError) Unwrap() error { return e.Err }
