package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu  sync.Mutex
	log *slog.Logger
)

// Init configures the global logger. Level is one of debug|info|warn|error.
// Calling it again replaces the handler, so early boot logging at the default
// level does not pin the level for the process.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get() *slog.Logger {
	mu.Lock()
	l := log
	mu.Unlock()
	if l == nil {
		Init("info")
		return get()
	}
	return l
}

// normalize tolerates a trailing bare value (usually an error) without a key.
func normalize(args []any) []any {
	if len(args)%2 == 1 {
		return append([]any{"error"}, args...)
	}
	return args
}

func Info(msg string, args ...any) {
	get().Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	get().Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	get().Error(msg, normalize(args)...)
}

func Debug(msg string, args ...any) {
	get().Debug(msg, normalize(args)...)
}
