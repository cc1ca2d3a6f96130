package planner

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"premiere-bridge/internal/domain"
)

// allowedHosts is the domain allow-list for source URLs.
var allowedHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
}

const (
	clipSuffix   = "_clip"
	maxTitleLen  = 100
	fallbackStem = "video"
)

// Prober performs a metadata-only probe of the remote source.
type Prober interface {
	Probe(ctx context.Context, sourceURL string) (domain.MediaInfo, error)
}

// Planner turns an acquisition request into a concrete download spec.
type Planner struct {
	prober Prober
	log    zerolog.Logger
}

// New creates a planner backed by the given prober.
func New(prober Prober, log zerolog.Logger) *Planner {
	return &Planner{
		prober: prober,
		log:    log.With().Str("component", "planner").Logger(),
	}
}

// Plan validates the request, probes the source for title and duration, and
// builds a collision-free output plan. The probe is the only side effect.
func (p *Planner) Plan(ctx context.Context, req domain.AcquisitionRequest, resolution string) (domain.AcquisitionSpec, error) {
	if err := ValidateSource(req.SourceURL); err != nil {
		return domain.AcquisitionSpec{}, err
	}

	info, err := p.prober.Probe(ctx, req.SourceURL)
	if err != nil {
		return domain.AcquisitionSpec{}, fmt.Errorf("probe source: %w", err)
	}

	var section *domain.TimeRange
	if req.Mode == domain.ModeClip {
		start := req.AnchorTime - req.LeadSeconds
		if start < 0 {
			start = 0
		}
		end := req.AnchorTime + req.TrailSeconds
		if info.Duration > 0 && (start >= info.Duration || end > info.Duration) {
			return domain.AcquisitionSpec{}, fmt.Errorf("%w: [%.0f, %.0f] vs duration %.0f",
				domain.ErrOutOfBounds, start, end, info.Duration)
		}
		section = &domain.TimeRange{Start: start, End: end}
	}

	stem := SanitizeTitle(info.Title)
	if stem == "" {
		stem = fallbackStem
	}

	spec := domain.AcquisitionSpec{
		SourceURL: req.SourceURL,
		Title:     info.Title,
		Section:   section,
		PostStep:  domain.PostStepNone,
	}

	switch req.Mode {
	case domain.ModeAudio:
		name := ResolveFilename(req.OutputDir, stem, "", "wav")
		spec.OutputPath = filepath.Join(req.OutputDir, name)
		spec.OutputTemplate = strings.TrimSuffix(spec.OutputPath, ".wav") + ".%(ext)s"
		spec.FormatSelector = "bestaudio[ext=m4a]/bestaudio/best"
		spec.PostStep = domain.PostStepExtractAudio
	case domain.ModeClip:
		name := ResolveFilename(req.OutputDir, stem, clipSuffix, "mp4")
		spec.OutputPath = filepath.Join(req.OutputDir, name)
		spec.OutputTemplate = spec.OutputPath
		spec.FormatSelector = videoFormatSelector(resolution)
	default:
		name := ResolveFilename(req.OutputDir, stem, "", "mp4")
		spec.OutputPath = filepath.Join(req.OutputDir, name)
		spec.OutputTemplate = spec.OutputPath
		spec.FormatSelector = videoFormatSelector(resolution)
	}

	p.log.Info().
		Str("url", req.SourceURL).
		Str("mode", string(req.Mode)).
		Str("output", spec.OutputPath).
		Msg("acquisition planned")

	return spec, nil
}

// ValidateSource checks the URL against the platform allow-list.
func ValidateSource(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSource, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSource, raw)
	}
	if _, ok := allowedHosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSource, raw)
	}
	return nil
}

// videoFormatSelector prefers H.264 in MP4 capped at the target height with a
// matching AAC audio track, falling back to the best single MP4 stream.
func videoFormatSelector(resolution string) string {
	return fmt.Sprintf(
		"bestvideo[vcodec^=avc1][ext=mp4][height<=%s]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		resolution,
	)
}

// SanitizeTitle strips filesystem-reserved and control characters and caps
// the length at maxTitleLen characters so long titles cannot exceed path
// limits. The cap counts runes, never splitting a multibyte character.
func SanitizeTitle(title string) string {
	runes := make([]rune, 0, len(title))
	for _, r := range title {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			continue
		}
		runes = append(runes, r)
	}
	out := []rune(strings.TrimSpace(string(runes)))
	if len(out) > maxTitleLen {
		out = out[:maxTitleLen]
	}
	return strings.TrimSpace(string(out))
}

// ResolveFilename probes existing names in dir and appends an incrementing
// suffix until an unused one is found, so repeated downloads of the same
// title never overwrite each other.
func ResolveFilename(dir, stem, suffix, ext string) string {
	name := fmt.Sprintf("%s%s.%s", stem, suffix, ext)
	if !fileExists(filepath.Join(dir, name)) {
		return name
	}
	for counter := 1; ; counter++ {
		name = fmt.Sprintf("%s%s_%d.%s", stem, suffix, counter, ext)
		if !fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
