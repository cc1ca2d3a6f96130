package notify

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

const defaultSoundFile = "notification_sound.mp3"

// Player plays the download-finished notification sound. Playback is
// fire-and-forget; failures are logged, never surfaced.
type Player struct {
	soundDir string
	log      zerolog.Logger
}

// NewPlayer creates a player looking up sound files in soundDir.
func NewPlayer(soundDir string, log zerolog.Logger) *Player {
	return &Player{
		soundDir: soundDir,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// Play starts playback in the background. volume is 0-100; sound selects a
// file stem, "default" maps to the bundled notification sound.
func (p *Player) Play(volume int, sound string) {
	file := defaultSoundFile
	if sound != "" && sound != "default" {
		file = sound + ".mp3"
	}
	path := filepath.Join(p.soundDir, file)
	if _, err := os.Stat(path); err != nil {
		p.log.Warn().Str("path", path).Msg("notification sound file missing")
		return
	}

	cmd := playerCommand(path, volume)
	if cmd == nil {
		p.log.Warn().Str("os", runtime.GOOS).Msg("no notification player for platform")
		return
	}

	go func() {
		if err := cmd.Run(); err != nil {
			p.log.Warn().Err(err).Msg("notification playback failed")
		}
	}()
}

func playerCommand(path string, volume int) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("afplay", "-v", fmt.Sprintf("%.2f", float64(volume)/100), path)
	case "windows":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer %q).PlaySync()", path)
		return exec.Command("powershell", "-NoProfile", "-Command", script)
	case "linux":
		return exec.Command("paplay", path)
	default:
		return nil
	}
}
