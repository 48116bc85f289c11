package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"
)

var initOnce sync.Once

// Init performs the process-wide, one-time codec library setup: it lowers
// the native log level and routes the library's log lines into the given
// structured logger. It is safe to call before every job and from tests;
// only the first call has any effect.
func Init(logger *slog.Logger) {
	initOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelError)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmt, msg string) {
			logger.Debug("libav",
				slog.String("msg", strings.TrimSpace(msg)),
				slog.Int("level", int(l)),
			)
		})
	})
}
