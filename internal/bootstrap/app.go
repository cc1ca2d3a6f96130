package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"premiere-bridge/internal/config"
	"premiere-bridge/internal/diagnostics"
	"premiere-bridge/internal/domain"
	"premiere-bridge/internal/download"
	"premiere-bridge/internal/hostbridge"
	"premiere-bridge/internal/hub"
	"premiere-bridge/internal/notify"
	"premiere-bridge/internal/planner"
	"premiere-bridge/internal/postprocess"
	"premiere-bridge/internal/server"
)

// Version is reported to clients on /get-version; the extension refuses to
// talk to a bridge older than itself.
const Version = "2.1.6"

// App owns the wired component graph and drives one download request from
// HTTP acknowledgement through import into the host.
type App struct {
	store    config.Store
	planner  *planner.Planner
	executor *download.Executor
	tagger   *postprocess.Tagger
	bridge   *hostbridge.Bridge
	hub      *hub.Hub
	player   *notify.Player
	checker  *diagnostics.Checker
	log      zerolog.Logger

	// defaultDir resolves the output directory when no explicit download
	// path is configured.
	defaultDir func() (string, error)

	mu       sync.RWMutex
	settings domain.Settings
}

// New loads settings, resolves external tools, and wires the application.
func New(log zerolog.Logger) (*App, error) {
	store := config.NewJSONStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	fixToolPermissions(log)

	ytdlpPath, err := checker.FindTool("yt-dlp")
	if err != nil {
		log.Warn().Err(err).Msg("yt-dlp not resolved, downloads will fail until installed")
	}
	ffmpegPath, err := checker.FindTool("ffmpeg")
	if err != nil {
		log.Warn().Err(err).Msg("ffmpeg not resolved, tagging will fail until installed")
	}
	ffmpegDir := ""
	if filepath.IsAbs(ffmpegPath) {
		ffmpegDir = filepath.Dir(ffmpegPath)
	}

	report := checker.Run(settings.DownloadPath)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			log.Warn().Str("check", item.ID).Str("message", item.Message).Msg("startup check failed")
		}
	}

	bridge, err := hostbridge.New(filepath.Join(os.TempDir(), "YoutubetoPremiere"), log)
	if err != nil {
		return nil, err
	}

	return &App{
		store:      store,
		planner:    planner.New(planner.NewYtDlpProber(ytdlpPath), log),
		executor:   download.NewExecutor(ytdlpPath, ffmpegDir, download.NewManager(), log),
		tagger:     postprocess.NewTagger(ffmpegPath, log),
		bridge:     bridge,
		hub:        hub.New(log),
		player:     notify.NewPlayer(soundDir(), log),
		checker:    checker,
		defaultDir: planner.DefaultDownloadDir,
		settings:   settings,
		log:        log.With().Str("component", "bootstrap").Logger(),
	}, nil
}

// Run serves HTTP until ctx is cancelled or the host application exits.
func (a *App) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchPremiere(ctx, cancel, a.log)

	srv := server.New(a, a.hub, Version, a.log)
	return srv.Run(ctx, addr)
}

// Settings returns the current settings snapshot.
func (a *App) Settings() domain.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// UpdateSettings normalizes, persists, and activates a new settings document.
func (a *App) UpdateSettings(settings domain.Settings) error {
	settings = config.Normalize(settings)
	if err := a.store.Save(settings); err != nil {
		return err
	}
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
	return nil
}

// Diagnostics re-runs the startup checks against the current configuration.
func (a *App) Diagnostics() domain.DiagnosticReport {
	return a.checker.Run(a.Settings().DownloadPath)
}

// CancelDownload aborts the active download, if any.
func (a *App) CancelDownload() error {
	return a.executor.Cancel()
}

// HandleDownload validates and plans the request, then starts the download
// and returns. Progress and the terminal outcome travel over the event
// channel, not this call.
func (a *App) HandleDownload(ctx context.Context, req domain.ClientRequest) error {
	if err := planner.ValidateSource(req.URL); err != nil {
		return err
	}

	mode, ok := domain.ParseMode(req.Type)
	if !ok {
		if req.Type != "" {
			a.log.Warn().Str("type", req.Type).Msg("unknown request type, treating as full download")
		}
		mode = domain.ModeFull
	}
	anchor := 0.0
	if req.CurrentTime != nil {
		// A playhead position always means "clip around here".
		mode = domain.ModeClip
		anchor = *req.CurrentTime
	}

	settings := a.Settings()
	if mode == domain.ModeFull && settings.DownloadMP3 {
		mode = domain.ModeAudio
	}

	if a.executor.Busy() {
		return domain.ErrBusy
	}

	outputDir, err := a.resolveOutputDir(settings)
	if err != nil {
		return err
	}

	before, after := config.ClipOffsets(settings)
	spec, err := a.planner.Plan(ctx, domain.AcquisitionRequest{
		SourceURL:    req.URL,
		Mode:         mode,
		AnchorTime:   anchor,
		LeadSeconds:  before,
		TrailSeconds: after,
		OutputDir:    outputDir,
	}, settings.Resolution)
	if err != nil {
		return err
	}

	// The job must outlive the HTTP request that started it.
	job, err := a.executor.Start(context.Background(), spec, func(pct float64) {
		a.hub.EmitToRole(hub.RoleProducer, hub.EventProgress, map[string]any{
			"progress": pct,
			"type":     string(mode),
		})
	})
	if err != nil {
		return err
	}

	a.hub.EmitToRole(hub.RoleProducer, hub.EventDownloadStarted, map[string]string{
		"url":  req.URL,
		"type": string(mode),
	})

	go a.finish(job, spec)
	return nil
}

// finish waits for the job and drives tagging, notification, and import.
// Every terminal state produces at most one of download-complete or
// download-failed; a cancelled job produces neither.
func (a *App) finish(job *download.Job, spec domain.AcquisitionSpec) {
	outcome := job.Await()
	switch outcome.State {
	case domain.JobStateCancelled:
		return
	case domain.JobStateFailed:
		a.emitFailure(outcome.Err)
		return
	}

	ctx := context.Background()
	if err := a.tagger.TagProvenance(ctx, outcome.Path, spec.SourceURL); err != nil {
		// The media file stays on disk; only the provenance stamp is missing.
		a.log.Error().Err(err).Str("path", outcome.Path).Msg("provenance tagging failed")
		a.emitFailure(err)
		return
	}

	if !a.hub.MarkImport(outcome.Path) {
		a.log.Warn().Str("path", outcome.Path).Msg("duplicate import suppressed")
		a.notifyComplete(outcome.Path)
		return
	}

	if a.hub.HasRole(hub.RoleConsumer) {
		a.notifyComplete(outcome.Path)
		a.hub.EmitToRole(hub.RoleConsumer, hub.EventImportVideo, map[string]string{"path": outcome.Path})
		return
	}

	// No panel connected; drive the import through the host script bridge
	// before declaring success.
	if err := a.bridge.ImportFile(ctx, outcome.Path); err != nil {
		a.emitFailure(fmt.Errorf("import into Premiere failed: %w", err))
		return
	}
	a.notifyComplete(outcome.Path)
}

func (a *App) notifyComplete(path string) {
	settings := a.Settings()
	a.player.Play(settings.NotificationVolume, settings.NotificationSound)
	a.hub.EmitToRole(hub.RoleProducer, hub.EventDownloadComplete, map[string]string{"path": path})
}

func (a *App) emitFailure(err error) {
	msg := "download failed"
	if err != nil {
		msg = err.Error()
	}
	a.hub.EmitToRole(hub.RoleProducer, hub.EventDownloadFailed, map[string]string{"error": msg})
}

func (a *App) resolveOutputDir(settings domain.Settings) (string, error) {
	if settings.DownloadPath != "" {
		if err := os.MkdirAll(settings.DownloadPath, 0o755); err != nil {
			return "", fmt.Errorf("create download dir: %w", err)
		}
		return settings.DownloadPath, nil
	}
	return a.defaultDir()
}

// soundDir locates notification sounds bundled beside the executable.
func soundDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "sounds"
	}
	return filepath.Join(filepath.Dir(exe), "sounds")
}
