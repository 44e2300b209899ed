// Package config loads the bot configuration: a JSON file, then BANCHOBOT_*
// environment variables on top of it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Duration reads "5s", "1m30s" from both JSON and env.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type LobbyConf struct {
	HostTransferTimeout Duration `json:"host_transfer_timeout" env:"HOST_TRANSFER_TIMEOUT"`
	SettingsCooldown    Duration `json:"settings_cooldown" env:"SETTINGS_COOLDOWN"`
	SettingsTimeout     Duration `json:"settings_timeout" env:"SETTINGS_TIMEOUT"`
	SettingsAttempts    int      `json:"settings_attempts" env:"SETTINGS_ATTEMPTS"`
	StatusTimeout       Duration `json:"status_timeout" env:"STATUS_TIMEOUT"`
}

type Config struct {
	// Nick is the IRC account the bot logs in as.
	Nick string `json:"nick" env:"NICK"`
	// Channel ("#mp_123") to enter on start. Empty means MakeTitle is used.
	Channel   string   `json:"channel,omitempty" env:"CHANNEL"`
	MakeTitle string   `json:"make_title,omitempty" env:"MAKE_TITLE"`
	Owners    []string `json:"owners" env:"OWNERS" envSeparator:","`
	FeedAddr  string   `json:"feed_addr" env:"FEED_ADDR"`
	LogLevel  string   `json:"log_level" env:"LOG_LEVEL"`
	// ReinitDelay debounces the settings reload after a reconnect.
	ReinitDelay Duration  `json:"reinit_delay" env:"REINIT_DELAY"`
	Lobby       LobbyConf `json:"lobby" envPrefix:"LOBBY_"`
}

// Default is written to disk when no config file exists yet.
func Default() Config {
	return Config{
		Nick:        "ahrbot",
		MakeTitle:   "auto host rotation",
		Owners:      []string{},
		FeedAddr:    ":8080",
		LogLevel:    "info",
		ReinitDelay: Duration(2 * time.Second),
		Lobby: LobbyConf{
			HostTransferTimeout: Duration(5 * time.Second),
			SettingsCooldown:    Duration(15 * time.Second),
			SettingsTimeout:     Duration(10 * time.Second),
			SettingsAttempts:    3,
			StatusTimeout:       Duration(5 * time.Second),
		},
	}
}

// Store is the JSON file behind Config.
type Store struct {
	mu   sync.Mutex
	path string
	data Config
}

func NewStore(path string) *Store {
	return &Store{path: path, data: Default()}
}

// Load reads the file, creating it with defaults when it doesn't exist.
func (s *Store) Load() error {
	s.mu.Lock()
	b, err := os.ReadFile(s.path)
	if err != nil {
		s.mu.Unlock()
		if os.IsNotExist(err) {
			return s.Save() // создаём с умолчаниями
		}
		return fmt.Errorf("config: read %s: %w", s.path, err)
	}
	defer s.mu.Unlock()
	if err := json.Unmarshal(b, &s.data); err != nil {
		return fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	fn(&s.data)
	s.mu.Unlock()
}

// Load reads path and applies BANCHOBOT_* overrides.
func Load(path string) (Config, error) {
	st := NewStore(path)
	if err := st.Load(); err != nil {
		return Config{}, err
	}
	cfg := st.Config()
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overwrites fields whose BANCHOBOT_* variable is set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "BANCHOBOT_"}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}
