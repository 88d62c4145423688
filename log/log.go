package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	answerFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// Metrics describes one backend round trip.
type Metrics struct {
	Op          string
	ID          string
	Status      int
	DNSTimeMs   float64
	TLSTimeMs   float64
	TTFBMs      float64
	TotalTimeMs float64
	ConnReused  bool
	BodyKB      float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: GAMEPAL_LOG_PATH environment variable
	if envPath := os.Getenv("GAMEPAL_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	answerPath := filepath.Join(dir, "answers_log.txt")
	answerFile, err = os.OpenFile(answerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if answerFile != nil {
		answerFile.Close()
		answerFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func RequestMetrics(m Metrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().Str("op", m.Op)
	if m.ID != "" {
		ev = ev.Str("id", m.ID)
	}
	ev.Int("status", m.Status).
		Str("conn", connStatus).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Float64("body_kb", m.BodyKB).
		Msg("backend_request")
}

// Operation records the outcome of one governed operation.
func Operation(op, id, outcome string, dur time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("op", op).
		Str("id", id).
		Str("outcome", outcome).
		Float64("ms", float64(dur.Milliseconds())).
		Msg("operation")
}

func Recording(sizeKB float64, mimeType string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("size_kb", sizeKB).
		Str("mime", mimeType).
		Msg("recording_captured")
}

// Answer appends a question/answer pair to answers_log.txt.
func Answer(question, answer string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if answerFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, oneLine(question), oneLine(answer))
	answerFile.WriteString(line)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func SessionStart(backendURL string, apiKey bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("backend", backendURL).
		Bool("api_key", apiKey).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
