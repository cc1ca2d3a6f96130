package postprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"premiere-bridge/internal/domain"
)

const tagTimeout = 2 * time.Minute

// Tagger stamps source-URL provenance into media container metadata.
type Tagger struct {
	ffmpegPath string
	log        zerolog.Logger
}

// NewTagger creates a tagger using the given ffmpeg binary.
func NewTagger(ffmpegPath string, log zerolog.Logger) *Tagger {
	return &Tagger{
		ffmpegPath: ffmpegPath,
		log:        log.With().Str("component", "postprocess").Logger(),
	}
}

// TagProvenance remuxes the file with a metadata comment carrying the source
// URL, then swaps the tagged copy over the original. Streams are copied, not
// re-encoded. On any failure the untagged original is left untouched.
func (t *Tagger) TagProvenance(ctx context.Context, path, sourceURL string) error {
	ext := filepath.Ext(path)
	tagged := strings.TrimSuffix(path, ext) + "_tagged" + ext

	ctx, cancel := context.WithTimeout(ctx, tagTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y",
		"-i", path,
		"-metadata", fmt.Sprintf("comment=%s", sourceURL),
		"-codec", "copy",
		tagged,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tagged)
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &domain.TaggingError{Path: path, Err: &domain.ProcessError{
			Tool:     "ffmpeg",
			ExitCode: exitCode,
			Stderr:   tail(stderr.String(), 400),
		}}
	}

	// Same-directory rename is atomic; a crash leaves either the old or the
	// new file at path, never a torn one.
	if err := os.Rename(tagged, path); err != nil {
		_ = os.Remove(tagged)
		return &domain.TaggingError{Path: path, Err: err}
	}

	t.log.Info().Str("path", path).Str("url", sourceURL).Msg("provenance tagged")
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
