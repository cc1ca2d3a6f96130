package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"premiere-bridge/internal/domain"
)

const (
	throttleInterval = 500 * time.Millisecond
	throttleStep     = 5.0
	stderrTailBytes  = 400
)

// ProgressFunc receives throttled percent-complete updates.
type ProgressFunc func(percent float64)

// Outcome is the terminal result of one download job.
type Outcome struct {
	State domain.JobState
	Path  string
	Err   error
}

// Job is the mutable run-time state of one active download.
type Job struct {
	ID   string
	spec domain.AcquisitionSpec

	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	outcome   Outcome
}

// Await blocks until the job reaches a terminal state.
func (j *Job) Await() Outcome {
	<-j.done
	return j.outcome
}

// Cancel kills the underlying process. The kill is recorded before the
// signal is sent so the exit classifier cannot mistake it for a tool
// failure, even when it races natural completion.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.cancel()
}

// Executor runs acquisition specs as cancellable yt-dlp subprocesses.
type Executor struct {
	ytdlpPath string
	ffmpegDir string
	manager   *Manager
	log       zerolog.Logger
}

// NewExecutor creates an executor using the given tool locations.
func NewExecutor(ytdlpPath, ffmpegDir string, manager *Manager, log zerolog.Logger) *Executor {
	return &Executor{
		ytdlpPath: ytdlpPath,
		ffmpegDir: ffmpegDir,
		manager:   manager,
		log:       log.With().Str("component", "download").Logger(),
	}
}

// Start spawns the downloader for spec and returns a handle. It fails with
// ErrBusy before spawning when a job is already running.
func (e *Executor) Start(ctx context.Context, spec domain.AcquisitionSpec, onProgress ProgressFunc) (*Job, error) {
	runCtx, cancel := context.WithCancel(ctx)

	job := &Job{
		ID:     uuid.NewString(),
		spec:   spec,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if err := e.manager.begin(job); err != nil {
		cancel()
		return nil, err
	}

	args := buildArgs(spec, e.ffmpegDir)
	cmd := exec.CommandContext(runCtx, e.ytdlpPath, args...)
	// A killed downloader can leave a transcoder child holding the stdout
	// pipe open; don't let that stall the progress reader forever.
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.manager.finish(job)
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.manager.finish(job)
		cancel()
		return nil, fmt.Errorf("spawn %s: %w", e.ytdlpPath, err)
	}

	e.log.Info().Str("job", job.ID).Str("url", spec.SourceURL).Msg("download started")

	go e.run(job, cmd, stdout, &stderr, onProgress)
	return job, nil
}

// Cancel terminates the active job, if any.
func (e *Executor) Cancel() error {
	job, ok := e.manager.Active()
	if !ok {
		return ErrNoActiveJob
	}
	job.Cancel()
	return nil
}

// Busy reports whether a download is currently running.
func (e *Executor) Busy() bool {
	_, ok := e.manager.Active()
	return ok
}

// run streams progress until process exit, then classifies the outcome.
func (e *Executor) run(job *Job, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, onProgress ProgressFunc) {
	throttle := NewThrottle(throttleInterval, throttleStep)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		pct, ok := ParsePercent(scanner.Text())
		if !ok {
			continue
		}
		if throttle.Forward(pct) && onProgress != nil {
			onProgress(pct)
		}
	}

	waitErr := cmd.Wait()

	switch {
	case job.cancelled.Load():
		e.removePartials(job.spec)
		job.outcome = Outcome{State: domain.JobStateCancelled, Err: domain.ErrCancelled}
		e.log.Info().Str("job", job.ID).Msg("download cancelled")

	case waitErr == nil && fileExists(job.spec.OutputPath):
		if last, ok := throttle.Last(); !ok || last < 100 {
			if throttle.Forward(100) && onProgress != nil {
				onProgress(100)
			}
		}
		job.outcome = Outcome{State: domain.JobStateSucceeded, Path: job.spec.OutputPath}
		e.log.Info().Str("job", job.ID).Str("path", job.spec.OutputPath).Msg("download finished")

	default:
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		procErr := &domain.ProcessError{
			Tool:     "yt-dlp",
			ExitCode: exitCode,
			Stderr:   stderrTail(stderr.String()),
		}
		if waitErr == nil {
			// Exit zero but no output file; treat as tool failure.
			procErr.ExitCode = 0
			procErr.Stderr = "output file missing after download"
		}
		e.removePartials(job.spec)
		job.outcome = Outcome{State: domain.JobStateFailed, Err: procErr}
		e.log.Error().Str("job", job.ID).Err(procErr).Msg("download failed")
	}

	e.manager.finish(job)
	job.cancel()
	close(job.done)
}

// removePartials deletes the output file and downloader leftovers.
func (e *Executor) removePartials(spec domain.AcquisitionSpec) {
	stem := strings.TrimSuffix(spec.OutputTemplate, ".%(ext)s")
	candidates := []string{
		spec.OutputPath,
		spec.OutputPath + ".part",
		spec.OutputPath + ".ytdl",
	}
	if stem != spec.OutputTemplate {
		if matches, err := filepath.Glob(stem + ".*"); err == nil {
			candidates = append(candidates, matches...)
		}
	}
	for _, path := range candidates {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.log.Warn().Str("path", path).Err(err).Msg("could not remove partial file")
		}
	}
}

// buildArgs derives the yt-dlp command line from the spec.
func buildArgs(spec domain.AcquisitionSpec, ffmpegDir string) []string {
	args := []string{
		"--newline",
		"--format", spec.FormatSelector,
		"--output", spec.OutputTemplate,
		"--no-check-certificate",
		"--extractor-args", "youtube:player_client=ios,mweb",
	}
	if ffmpegDir != "" {
		args = append(args, "--ffmpeg-location", ffmpegDir)
	}
	if spec.Section != nil {
		args = append(args,
			"--download-sections",
			fmt.Sprintf("*%s-%s", formatTimestamp(spec.Section.Start), formatTimestamp(spec.Section.End)),
			"--postprocessor-args", "ffmpeg:-c:v copy -c:a copy",
		)
	}
	if spec.PostStep == domain.PostStepExtractAudio {
		args = append(args, "--extract-audio", "--audio-format", "wav")
	}
	return append(args, spec.SourceURL)
}

// formatTimestamp renders seconds as HH:MM:SS for --download-sections.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func stderrTail(s string) string {
	s = strings.TrimSpace(StripANSI(s))
	if len(s) <= stderrTailBytes {
		return s
	}
	s = s[len(s)-stderrTailBytes:]
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && idx+1 < len(s) {
		s = s[idx+1:]
	}
	return s
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
