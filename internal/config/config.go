package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"
)

// The MOSIR Łańcut page reporting the current pool occupancy.
const defaultSourceURL = "http://www.mosir-lancut.pl/asp/pl_start.asp?typ=14&menu=135&strona=1"

type AppConfig struct {
	// SourceURL is the page sampled for the occupancy reading.
	SourceURL string

	// PollingInterval controls how often a sampling cycle runs.
	PollingInterval time.Duration

	// FetchTimeout bounds one outbound request, connect included.
	FetchTimeout time.Duration

	// DBPath is the SQLite database location.
	DBPath string

	Port string

	// Window is the local-time daily window during which cycles run;
	// the pool publishes no reading outside opening hours.
	Window DayWindow
}

// Load reads configuration from environment with sensible defaults.
// An invalid polling interval falls back to the default with a warning
// rather than refusing to start.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.SourceURL = getenvDefault("SOURCE_URL", defaultSourceURL)
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("SOURCE_URL must be absolute, got %q", cfg.SourceURL)
	}

	minutes := getenvInt("POLLING_INTERVAL_MINUTES", 5)
	if minutes < 1 {
		slog.Warn("invalid polling interval, using default of 5 minutes",
			slog.Int("minutes", minutes))
		minutes = 5
	}
	cfg.PollingInterval = time.Duration(minutes) * time.Minute

	timeoutSec := getenvInt("FETCH_TIMEOUT", 10)
	if timeoutSec < 1 {
		slog.Warn("invalid fetch timeout, using default of 10 seconds",
			slog.Int("seconds", timeoutSec))
		timeoutSec = 10
	}
	cfg.FetchTimeout = time.Duration(timeoutSec) * time.Second

	cfg.DBPath = getenvDefault("DB_PATH", "data/poolwatch.db")
	cfg.Port = getenvDefault("PORT", "8080")

	window, err := ParseDayWindow(
		getenvDefault("POLLING_WINDOW_START", "06:00"),
		getenvDefault("POLLING_WINDOW_END", "22:00"),
	)
	if err != nil {
		return nil, err
	}
	cfg.Window = window

	return cfg, nil
}

// DayWindow is an inclusive daily wall-clock interval, held as minutes
// from midnight.
type DayWindow struct {
	Start int
	End   int
}

// ParseDayWindow parses "HH:MM" bounds into a DayWindow.
func ParseDayWindow(start, end string) (DayWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return DayWindow{}, fmt.Errorf("invalid window start %q: %w", start, err)
	}
	e, err := parseClock(end)
	if err != nil {
		return DayWindow{}, fmt.Errorf("invalid window end %q: %w", end, err)
	}
	if s > e {
		return DayWindow{}, fmt.Errorf("window start %q is after end %q", start, end)
	}
	return DayWindow{Start: s, End: e}, nil
}

// Contains reports whether t's wall-clock time falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.Start && m <= w.End
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		slog.Warn("ignoring non-numeric environment value",
			slog.String("key", key), slog.String("value", v))
	}
	return def
}
