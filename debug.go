package mandrill

import (
	"fmt"
	"io"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewDebugLogger creates the logger used for API tracing.
// When disabled it returns zerolog.Nop(). When enabled it writes
// human-readable lines to stderr, or JSON lines appended to logPath if set.
// Every entry carries a run_id identifying this invocation.
// The returned Closer must be closed when the logger is no longer needed.
func NewDebugLogger(enabled bool, logPath string) (zerolog.Logger, io.Closer, error) {
	if !enabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	var (
		writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
		closer io.Closer = nopCloser{}
	)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open debug log: %w", err)
		}
		writer, closer = f, f
	}

	logger := zerolog.New(writer).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("run_id", ulid.Make().String()).
		Logger()
	return logger, closer, nil
}
