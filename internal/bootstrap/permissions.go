package bootstrap

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

// fixToolPermissions restores the executable bit and clears the quarantine
// attribute on bundled tools. macOS re-quarantines them after some installer
// updates, which makes spawning fail.
func fixToolPermissions(log zerolog.Logger) {
	if runtime.GOOS != "darwin" {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		return
	}

	for _, name := range []string{"yt-dlp", "ffmpeg", "ffprobe"} {
		path := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Chmod(path, 0o755); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("could not restore executable bit")
		}
		_ = exec.Command("xattr", "-d", "com.apple.quarantine", path).Run()
	}
}
