package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
	"github.com/DoyleJ11/bombastic-viewer/internal/transport"
)

type Mode string

const (
	ModePoll Mode = "poll"
	ModePush Mode = "push"
)

type Config struct {
	Server       string // REST base, e.g. http://localhost:21513
	Mode         Mode
	PushPort     int
	PollInterval time.Duration
	PollView     transport.View
	PlayerName   string
	AssetPrefix  string
	SessionFile  string
	Retry        transport.Retry
	LeaveOnQuit  bool
	LogFile      string
	Debug        bool
}

// Load reads an optional .env file, then BOMBASTIC_* variables.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Existing environment wins over the file.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	c := Config{
		Server:      getenv("BOMBASTIC_SERVER", "http://localhost:21513"),
		Mode:        Mode(getenv("BOMBASTIC_MODE", string(ModePush))),
		PlayerName:  getenv("BOMBASTIC_NAME", "term"),
		AssetPrefix: getenv("BOMBASTIC_ASSET_PREFIX", symbols.DefaultPrefix),
		SessionFile: getenv("BOMBASTIC_SESSION_FILE", defaultSessionFile()),
		LogFile:     getenv("BOMBASTIC_LOG_FILE", "bombastic.log"),
		Retry:       transport.DefaultRetry,
	}

	var err error
	if c.PushPort, err = intEnv("BOMBASTIC_PUSH_PORT", transport.DefaultPushPort); err != nil {
		return Config{}, err
	}
	if c.PollInterval, err = durationEnv("BOMBASTIC_POLL_INTERVAL", transport.DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if c.PollView, err = transport.ParseView(getenv("BOMBASTIC_POLL_VIEW", string(transport.ViewPlayer))); err != nil {
		return Config{}, err
	}
	if c.Retry.Attempts, err = intEnv("BOMBASTIC_RECONNECT_ATTEMPTS", c.Retry.Attempts); err != nil {
		return Config{}, err
	}
	if c.LeaveOnQuit, err = boolEnv("BOMBASTIC_LEAVE_ON_QUIT", false); err != nil {
		return Config{}, err
	}
	if c.Debug, err = boolEnv("BOMBASTIC_DEBUG", false); err != nil {
		return Config{}, err
	}

	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModePoll, ModePush:
	default:
		return fmt.Errorf("BOMBASTIC_MODE must be %q or %q, got %q", ModePoll, ModePush, c.Mode)
	}
	if c.PushPort <= 0 || c.PushPort > 65535 {
		return fmt.Errorf("BOMBASTIC_PUSH_PORT out of range: %d", c.PushPort)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("BOMBASTIC_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("BOMBASTIC_RECONNECT_ATTEMPTS must not be negative, got %d", c.Retry.Attempts)
	}
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func intEnv(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func durationEnv(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return dur, nil
}

func boolEnv(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bombastic-session"
	}
	return filepath.Join(dir, "bombastic", "session")
}
