package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"premiere-bridge/internal/domain"
)

const defaultProbeTimeout = 60 * time.Second

// YtDlpProber asks yt-dlp for media metadata without downloading anything.
type YtDlpProber struct {
	binPath string
	timeout time.Duration
}

// NewYtDlpProber creates a prober using the given yt-dlp binary.
func NewYtDlpProber(binPath string) *YtDlpProber {
	return &YtDlpProber{binPath: binPath, timeout: defaultProbeTimeout}
}

// Probe runs a metadata-only extraction and returns title and duration.
func (p *YtDlpProber) Probe(ctx context.Context, sourceURL string) (domain.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binPath,
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-check-certificate",
		"--extractor-args", "youtube:player_client=ios,mweb",
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return domain.MediaInfo{}, &domain.ProcessError{
			Tool:     "yt-dlp",
			ExitCode: exitCode,
			Stderr:   lastLines(stderr.String(), 400),
		}
	}

	var info domain.MediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return domain.MediaInfo{}, fmt.Errorf("parse probe output: %w", err)
	}
	return info, nil
}

// lastLines truncates s to at most n trailing bytes, on a line boundary
// where possible.
func lastLines(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if idx := bytes.IndexByte([]byte(s), '\n'); idx >= 0 && idx+1 < len(s) {
		s = s[idx+1:]
	}
	return s
}
