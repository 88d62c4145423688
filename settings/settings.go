// Package settings persists the overlay preferences as YAML.
package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	OverlayOpacity       float64 `yaml:"overlay_opacity"`
	ScreenshotIntervalMs int     `yaml:"screenshot_interval_ms"`
	AlwaysOnTop          bool    `yaml:"always_on_top"`

	// APIKeyConfigured is derived from OPENAI_API_KEY and never stored.
	APIKeyConfigured bool `yaml:"-"`
}

func Defaults() Settings {
	return Settings{
		OverlayOpacity:       0.9,
		ScreenshotIntervalMs: 30000,
		AlwaysOnTop:          true,
	}
}

func (s Settings) Validate() error {
	if s.OverlayOpacity < 0 || s.OverlayOpacity > 1 {
		return fmt.Errorf("overlay_opacity %v out of range [0,1]", s.OverlayOpacity)
	}
	if s.ScreenshotIntervalMs <= 0 {
		return fmt.Errorf("screenshot_interval_ms must be positive, got %d", s.ScreenshotIntervalMs)
	}
	return nil
}

// Update is a partial change; nil fields are left alone.
type Update struct {
	OverlayOpacity       *float64
	ScreenshotIntervalMs *int
	AlwaysOnTop          *bool
}

func (u Update) apply(s Settings) Settings {
	if u.OverlayOpacity != nil {
		s.OverlayOpacity = *u.OverlayOpacity
	}
	if u.ScreenshotIntervalMs != nil {
		s.ScreenshotIntervalMs = *u.ScreenshotIntervalMs
	}
	if u.AlwaysOnTop != nil {
		s.AlwaysOnTop = *u.AlwaysOnTop
	}
	return s
}

// ParseUpdate reads key=value pairs using the short keys opacity, interval
// and ontop.
func ParseUpdate(args []string) (Update, error) {
	var u Update
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return Update{}, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "opacity":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Update{}, fmt.Errorf("opacity: %w", err)
			}
			u.OverlayOpacity = &f
		case "interval":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Update{}, fmt.Errorf("interval: %w", err)
			}
			u.ScreenshotIntervalMs = &n
		case "ontop":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Update{}, fmt.Errorf("ontop: %w", err)
			}
			u.AlwaysOnTop = &b
		default:
			return Update{}, fmt.Errorf("unknown setting %q (use opacity, interval, ontop)", key)
		}
	}
	return u, nil
}

// ResolvePath picks the settings file: flag, then GAMEPAL_SETTINGS, then
// the user config directory.
func ResolvePath(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	if env := os.Getenv("GAMEPAL_SETTINGS"); env != "" {
		return filepath.Abs(env)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "gamepal", "settings.yaml"), nil
}

type Store struct {
	path string

	mu  sync.RWMutex
	cur Settings
}

// Load reads path, falling back to defaults for a missing file or missing
// keys.
func Load(path string) (*Store, error) {
	s := &Store{path: path, cur: Defaults()}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&s.cur); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.cur.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get() Settings {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	cur.APIKeyConfigured = APIKeyConfigured()
	return cur
}

func APIKeyConfigured() bool {
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != ""
}

// Update validates and persists a partial change. On error the stored
// settings are unchanged.
func (s *Store) Update(u Update) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := u.apply(s.cur)
	if err := next.Validate(); err != nil {
		return s.cur, err
	}
	if err := s.save(next); err != nil {
		return s.cur, err
	}
	s.cur = next
	next.APIKeyConfigured = APIKeyConfigured()
	return next, nil
}

func (s *Store) save(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
