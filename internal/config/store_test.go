package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premiere-bridge/internal/domain"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewJSONStore(path)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), cfg)

	// First load persists the defaults for the panel to pick up.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))

	want := domain.Settings{
		Resolution:         "720",
		DownloadPath:       "/media/downloads",
		DownloadMP3:        true,
		SecondsBefore:      "10",
		SecondsAfter:       "20",
		NotificationVolume: 55,
		NotificationSound:  "chime",
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONStore(path).Load()
	assert.Error(t, err)
}

func TestNormalizeFillsBadValues(t *testing.T) {
	cfg := Normalize(domain.Settings{
		Resolution:         "max",
		SecondsBefore:      "",
		SecondsAfter:       "ten",
		NotificationVolume: 250,
	})

	assert.Equal(t, "1080", cfg.Resolution)
	assert.Equal(t, "15", cfg.SecondsBefore)
	assert.Equal(t, "15", cfg.SecondsAfter)
	assert.Equal(t, 30, cfg.NotificationVolume)
	assert.Equal(t, "default", cfg.NotificationSound)
}

func TestClipOffsets(t *testing.T) {
	before, after := ClipOffsets(domain.Settings{SecondsBefore: "15", SecondsAfter: "30"})
	assert.Equal(t, 15.0, before)
	assert.Equal(t, 30.0, after)
}
