package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"premiere-bridge/internal/domain"
)

// Checker validates external tools and required filesystem paths before any
// download is attempted.
type Checker struct {
	lookPath   func(string) (string, error)
	executable func() (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		executable: os.Executable,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(downloadDir string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("yt-dlp"),
		c.checkTool("ffmpeg"),
		c.checkDownloadDir(downloadDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// FindTool resolves a tool binary: PATH first, then beside the bridge
// executable where the installer drops bundled copies. The bare name is
// returned as a last resort so a later PATH change can still succeed.
func (c *Checker) FindTool(name string) (string, error) {
	if path, err := c.lookPath(name); err == nil {
		return path, nil
	}

	binName := name
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	if exe, err := c.executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), binName)
		if _, err := c.stat(bundled); err == nil {
			return bundled, nil
		}
	}

	return name, fmt.Errorf("%s not found on PATH or beside the executable", name)
}

// checkTool verifies a required CLI executable can be resolved.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.FindTool(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: err.Error(),
			Hint:    "Install it or place the binary next to the bridge executable.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkDownloadDir verifies the configured download directory is writable.
func (c *Checker) checkDownloadDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "download_dir",
		Name: "download directory",
	}
	if dir == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Resolved per request from the active project"
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create %s: %v", dir, err)
		return item
	}

	probe, err := c.createTemp(dir, ".write-probe-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Pick a different download path in the panel settings."
		return item
	}
	probeName := probe.Name()
	_ = probe.Close()
	_ = c.remove(probeName)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable: %s", dir)
	return item
}
