package scanner

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. The returned closer releases a log
// file when Output names one; it is a no-op for stdout and stderr.
func NewLogger(cfg LogConfig) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	switch strings.TrimSpace(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		out, closer = f, f
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			_ = closer.Close()
			return zerolog.Nop(), nopCloser{}, err
		}
		level = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
