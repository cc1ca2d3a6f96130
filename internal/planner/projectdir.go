package planner

import (
	"os"
	"path/filepath"
	"sort"

	"premiere-bridge/internal/domain"
)

const downloadSubdir = "YoutubeToPremiere_download"

// DefaultDownloadDir resolves the fallback output directory inside the most
// recent Premiere Pro documents folder when no explicit path is configured.
func DefaultDownloadDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	projectRoot := filepath.Join(homeDir, "Documents", "Adobe", "Premiere Pro")
	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return "", domain.ErrNoProject
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) == 0 {
		return "", domain.ErrNoProject
	}
	sort.Strings(versions)

	dir := filepath.Join(projectRoot, versions[len(versions)-1], downloadSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
