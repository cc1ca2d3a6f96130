package config

import (
	"os"
	"path/filepath"
	"runtime"

	"premiere-bridge/internal/domain"
)

// DefaultSettings returns the baseline document written on first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Resolution:         "1080",
		DownloadPath:       "",
		DownloadMP3:        false,
		SecondsBefore:      "15",
		SecondsAfter:       "15",
		NotificationVolume: 30,
		NotificationSound:  "default",
	}
}

// DefaultPath returns the platform settings file location.
func DefaultPath() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "YoutubetoPremiere", "settings.json")
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "YoutubetoPremiere", "settings.json")
}
