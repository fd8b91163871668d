package middleware

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"
)

// LogConfig holds configuration for the request logging middleware.
type LogConfig struct {
	// Console prints a one-line summary per request through lgr.
	Console bool
	// LogFilePath receives one JSON object per request. Empty disables it.
	LogFilePath string
	// Paths with one of these prefixes are not logged.
	SkipPaths []string
	// Now is the clock used for timestamps; nil means time.Now.
	Now func() time.Time
}

// LogData is one request log line.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	Error         string        `json:"error,omitempty"`
	UserID        uint          `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Console:     true,
		LogFilePath: "logs/requests.log",
		SkipPaths:   []string{"/health"},
	}
}

// RequestLogger logs every request after the handler chain has run, so the
// user resolved by Verify is available.
func RequestLogger(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var sink *fileSink
	if cfg.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
			lgr.Printf("[WARN] could not create log directory: %v", err)
		}
		sink = &fileSink{path: cfg.LogFilePath}
	}

	return func(c *fiber.Ctx) error {
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(c.Path(), skip) {
				return c.Next()
			}
		}

		start := cfg.Now()
		err := c.Next()

		data := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       cfg.Now().Sub(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestID:     c.Get(fiber.HeaderXRequestID),
			ContentLength: int64(len(c.Response().Body())),
		}
		if user, ok := CurrentUser(c); ok {
			data.UserID = user.ID
			data.Username = user.Name
		}
		if err != nil {
			data.Error = err.Error()
			if fe, ok := err.(*fiber.Error); ok {
				data.Status = fe.Code
			}
		}

		if cfg.Console {
			lgr.Printf("[DEBUG] %s", formatTextLog(data))
		}
		if sink != nil {
			sink.write(data)
		}
		return err
	}
}

// fileSink appends JSON lines to a file, serialising concurrent requests.
type fileSink struct {
	mu   sync.Mutex
	path string
}

func (s *fileSink) write(data LogData) {
	line, err := json.Marshal(data)
	if err != nil {
		lgr.Printf("[WARN] could not encode request log: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		lgr.Printf("[WARN] could not open request log: %v", err)
		return
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		lgr.Printf("[WARN] could not write request log: %v", err)
	}
}

var (
	okColor      = color.New(color.FgGreen).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
	failColor    = color.New(color.FgRed).SprintFunc()
	neutralColor = color.New(color.FgCyan).SprintFunc()
)

func statusColor(status int) func(a ...interface{}) string {
	switch {
	case status >= 500:
		return failColor
	case status >= 400:
		return warnColor
	case status >= 300:
		return neutralColor
	default:
		return okColor
	}
}

func latencyColor(latency time.Duration) func(a ...interface{}) string {
	switch {
	case latency < 100*time.Millisecond:
		return okColor
	case latency < time.Second:
		return warnColor
	default:
		return failColor
	}
}

func formatTextLog(data LogData) string {
	user := ""
	if data.UserID != 0 {
		user = fmt.Sprintf(" user:%d(%s)", data.UserID, data.Username)
	}
	return fmt.Sprintf("%s %s %s %s %s%s",
		data.Method,
		data.Path,
		statusColor(data.Status)(data.Status),
		latencyColor(data.Latency)(data.Latency),
		data.IP,
		user,
	)
}
