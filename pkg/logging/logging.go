package logging

import (
	"cmp"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pagermaid/analytics/pkg/paths"
)

// DefaultFileName is the debug log written under the data directory.
const DefaultFileName = "analytics.debug.log"

// Options controls Setup.
type Options struct {
	// Debug enables debug logging. Without it every record is discarded.
	Debug bool
	// FilePath overrides <dataDir>/analytics.debug.log.
	FilePath string
	// Fallback receives logs when the file cannot be opened.
	Fallback io.Writer
}

// Setup installs the default slog logger. The returned closer releases
// the log file and is never nil.
func Setup(opts Options) (io.Closer, error) {
	if !opts.Debug {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nopCloser{}, nil
	}

	path := cmp.Or(strings.TrimSpace(opts.FilePath), filepath.Join(paths.GetDataDir(), DefaultFileName))

	file, err := NewRotatingFile(path)
	if err != nil {
		if opts.Fallback != nil {
			slog.SetDefault(slog.New(slog.NewTextHandler(opts.Fallback, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
		return nopCloser{}, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
