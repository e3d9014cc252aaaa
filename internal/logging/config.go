package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "ANTKIT_LOG_LEVEL"
	EnvLogTimestamp = "ANTKIT_LOG_TIMESTAMP"
	EnvLogNoColor   = "ANTKIT_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logging setup shared by the console writer.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

var (
	configureOnce sync.Once
	mu            sync.RWMutex
	current       = defaultConfig(ProfileRuntime)
)

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		apply(cfg)
	})
}

// SetLevel overrides the level after Configure, used by --log-level.
func SetLevel(raw string) bool {
	lvl, ok := ParseLevel(raw)
	if !ok {
		return false
	}
	mu.Lock()
	cfg := current
	mu.Unlock()
	cfg.Level = lvl
	apply(cfg)
	return true
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func apply(cfg Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
	zerolog.SetGlobalLevel(cfg.Level)
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	envBool(EnvLogTimestamp, &cfg.Timestamp)
	envBool(EnvLogNoColor, &cfg.NoColor)
}

// ParseLevel accepts zerolog's level names (and numeric levels) plus "off".
// Empty or unknown input reports false.
func ParseLevel(raw string) (zerolog.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return zerolog.InfoLevel, false
	case "off":
		return zerolog.Disabled, true
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

// envBool sets *dst when name holds a strconv bool; anything else is ignored.
func envBool(name string, dst *bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	if err == nil {
		*dst = v
	}
}
