// Package config loads engine settings from flags, TINYUCI_* environment
// variables and an optional config file, and resolves difficulty presets.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigKeyDifficulty       = "difficulty"
	ConfigKeyMoveTime         = "move-time"
	ConfigKeyMaxDepth         = "max-depth"
	ConfigKeyTTSizeMB         = "tt-size-mb"
	ConfigKeyTTMemoryFraction = "tt-memory-fraction"
	ConfigKeyTTReplace        = "tt-replace"
	ConfigKeyDebug            = "debug"
	ConfigKeyLogJSON          = "log-json"
	ConfigKeyConfigFile       = "config"
)

const envPrefix = "TINYUCI"

var ErrInvalidSetting = errors.New("invalid setting")

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a configuration holding only the defaults.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.SetDefault(ConfigKeyDifficulty, "")
	c.SetDefault(ConfigKeyMoveTime, 2*time.Second)
	c.SetDefault(ConfigKeyMaxDepth, 64)
	c.SetDefault(ConfigKeyTTSizeMB, 64)
	c.SetDefault(ConfigKeyTTMemoryFraction, 0.05)
	c.SetDefault(ConfigKeyTTReplace, "always")
	c.SetDefault(ConfigKeyDebug, false)
	c.SetDefault(ConfigKeyLogJSON, false)
	return c
}

// Load parses args (without the program name) on top of the defaults, then
// environment variables and the config file named by --config.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("tinyuci", pflag.ContinueOnError)
	fs.String(ConfigKeyDifficulty, "", "difficulty preset: "+strings.Join(PresetNames(), ", "))
	fs.Duration(ConfigKeyMoveTime, 2*time.Second, "time budget per move")
	fs.Int(ConfigKeyMaxDepth, 64, "maximum search depth when no preset is chosen")
	fs.Int(ConfigKeyTTSizeMB, 64, "transposition table size in MB; 0 sizes it from physical memory")
	fs.Float64(ConfigKeyTTMemoryFraction, 0.05, "fraction of physical memory for the table when tt-size-mb is 0")
	fs.String(ConfigKeyTTReplace, "always", "transposition table replacement: always or depth")
	fs.Bool(ConfigKeyDebug, false, "debug logging")
	fs.Bool(ConfigKeyLogJSON, false, "log JSON instead of console output")
	fs.String(ConfigKeyConfigFile, "", "optional config file (yaml, toml or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigKeyConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return nil
}

// SearchSettings are the numeric knobs a search runs with.
type SearchSettings struct {
	Difficulty string
	MaxDepth   int
	MoveTime   time.Duration
	EvalFactor float64
}

// SearchSettings resolves the configured difficulty and limits. A preset, if
// named, supplies the depth and evaluation factor.
func (c *Config) SearchSettings() (SearchSettings, error) {
	s := SearchSettings{
		MaxDepth:   c.GetInt(ConfigKeyMaxDepth),
		MoveTime:   c.GetDuration(ConfigKeyMoveTime),
		EvalFactor: 1.0,
	}
	if name := c.GetString(ConfigKeyDifficulty); name != "" {
		p, err := LookupPreset(name)
		if err != nil {
			return SearchSettings{}, err
		}
		s.Difficulty = p.Name
		s.MaxDepth = p.Depth
		s.EvalFactor = p.EvalFactor
	}
	if s.MaxDepth <= 0 {
		return SearchSettings{}, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSetting, ConfigKeyMaxDepth, s.MaxDepth)
	}
	if s.MoveTime <= 0 {
		return SearchSettings{}, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidSetting, ConfigKeyMoveTime, s.MoveTime)
	}
	return s, nil
}

// TTSettings are the transposition table sizing knobs.
type TTSettings struct {
	SizeMB         int
	MemoryFraction float64
	Replace        string
}

func (c *Config) TTSettings() (TTSettings, error) {
	t := TTSettings{
		SizeMB:         c.GetInt(ConfigKeyTTSizeMB),
		MemoryFraction: c.GetFloat64(ConfigKeyTTMemoryFraction),
		Replace:        c.GetString(ConfigKeyTTReplace),
	}
	if t.SizeMB < 0 {
		return TTSettings{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidSetting, ConfigKeyTTSizeMB)
	}
	if t.SizeMB == 0 && (t.MemoryFraction <= 0 || t.MemoryFraction >= 1) {
		return TTSettings{}, fmt.Errorf("%w: %s must be in (0, 1)", ErrInvalidSetting, ConfigKeyTTMemoryFraction)
	}
	return t, nil
}
