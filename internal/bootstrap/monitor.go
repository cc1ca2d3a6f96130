package bootstrap

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const monitorInterval = 5 * time.Second

// watchPremiere cancels the run context once Premiere Pro, having been seen
// running at least once, is no longer present. The bridge has no reason to
// outlive its host, but must not exit while the user is still launching it.
func watchPremiere(ctx context.Context, cancel context.CancelFunc, log zerolog.Logger) {
	watchProcess(ctx, cancel, monitorInterval, isPremiereRunning, log)
}

func watchProcess(ctx context.Context, cancel context.CancelFunc, interval time.Duration, running func() bool, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if running() {
				seen = true
				continue
			}
			if seen {
				log.Info().Msg("Premiere Pro exited, shutting down")
				cancel()
				return
			}
		}
	}
}

// isPremiereRunning probes for the host process. Probe failures count as
// running so a broken probe can never shut the bridge down.
func isPremiereRunning() bool {
	if runtime.GOOS == "windows" {
		out, err := exec.Command("tasklist", "/FI", "IMAGENAME eq Adobe Premiere Pro.exe", "/NH").Output()
		if err != nil {
			return true
		}
		return strings.Contains(string(out), "Adobe Premiere Pro")
	}

	err := exec.Command("pgrep", "-f", "Adobe Premiere Pro").Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Exit 1 from pgrep means no matching process.
		return false
	}
	return true
}
