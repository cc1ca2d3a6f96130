package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"

	"premiere-bridge/internal/domain"
)

// Store defines persistence operations for the settings document.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single flat JSON file on disk, the same
// document the CEP panel reads and writes.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the settings file location.
func (s *JSONStore) Path() string { return s.path }

// Load reads settings from disk, writing defaults on first launch.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaults := DefaultSettings()
			if saveErr := s.Save(defaults); saveErr != nil {
				return domain.Settings{}, saveErr
			}
			return defaults, nil
		}
		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return Normalize(cfg), nil
}

// Save writes settings as indented JSON, atomically so the CEP panel never
// observes a half-written document.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return renameio.WriteFile(s.path, data, 0o644)
}

// Normalize fills empty or unparsable fields with defaults so a
// hand-edited document cannot break planning.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()
	if _, err := strconv.Atoi(cfg.Resolution); err != nil {
		cfg.Resolution = defaults.Resolution
	}
	if _, err := strconv.ParseFloat(cfg.SecondsBefore, 64); err != nil {
		cfg.SecondsBefore = defaults.SecondsBefore
	}
	if _, err := strconv.ParseFloat(cfg.SecondsAfter, 64); err != nil {
		cfg.SecondsAfter = defaults.SecondsAfter
	}
	if cfg.NotificationVolume <= 0 || cfg.NotificationVolume > 100 {
		cfg.NotificationVolume = defaults.NotificationVolume
	}
	if cfg.NotificationSound == "" {
		cfg.NotificationSound = defaults.NotificationSound
	}
	return cfg
}

// ClipOffsets returns the lead/trail seconds as numbers.
func ClipOffsets(cfg domain.Settings) (before, after float64) {
	before, _ = strconv.ParseFloat(cfg.SecondsBefore, 64)
	after, _ = strconv.ParseFloat(cfg.SecondsAfter, 64)
	return before, after
}
