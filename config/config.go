// Package config loads generator settings from defaults, a YAML, TOML or
// .env file and SEQID_ environment variables, and builds the zap logger.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/paraglidehq/seqid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to the variable names read by ApplyEnv.
const EnvPrefix = "SEQID_"

// Config is the file and environment form of seqid.Config.
type Config struct {
	CustomEpoch    string `yaml:"custom_epoch" toml:"custom_epoch"` // RFC 3339
	NodeIDBits     uint8  `yaml:"node_id_bits" toml:"node_id_bits"`
	NodeID         uint64 `yaml:"node_id" toml:"node_id"`
	SequenceBits   uint8  `yaml:"sequence_bits" toml:"sequence_bits"`
	UnusedBits     uint8  `yaml:"unused_bits" toml:"unused_bits"`
	MicrosTenPower uint8  `yaml:"micros_ten_power" toml:"micros_ten_power"`
	CooldownNs     uint64 `yaml:"cooldown_ns" toml:"cooldown_ns"`
	MaxBackoff     string `yaml:"max_backoff,omitempty" toml:"max_backoff,omitempty"` // e.g. "10ms", empty for uncapped

	Log LogConfig `yaml:"log" toml:"log"`
}

// LogConfig selects level, encoding and sinks of the zap logger.
type LogConfig struct {
	Level       string   `yaml:"level" toml:"level"`
	Encoding    string   `yaml:"encoding" toml:"encoding"` // json or console
	Development bool     `yaml:"development,omitempty" toml:"development,omitempty"`
	OutputPaths []string `yaml:"output_paths,omitempty" toml:"output_paths,omitempty"`
}

// Default returns the settings of seqid.DefaultConfig.
func Default() Config {
	return Config{
		CustomEpoch:    "2020-01-01T00:00:00Z",
		NodeIDBits:     9,
		NodeID:         0,
		SequenceBits:   11,
		UnusedBits:     0,
		MicrosTenPower: 2,
		CooldownNs:     1500,
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads configuration from a YAML, TOML or .env file (by extension)
// on top of Default. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".env":
		if err := cfg.ApplyDotEnv(path); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported config file extension %q", ext)
	}
	return cfg, nil
}

// ApplyDotEnv overrides settings from a dotenv file with unprefixed keys
// such as CUSTOM_EPOCH and NODE_ID_BITS. Empty values are ignored.
func (c *Config) ApplyDotEnv(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return c.apply(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

// ApplyEnv overrides settings from SEQID_ prefixed variables found by
// lookup, usually os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	return c.apply(func(key string) (string, bool) {
		return lookup(EnvPrefix + key)
	})
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}
	if v, ok := get("CUSTOM_EPOCH"); ok {
		c.CustomEpoch = v
	}
	if v, ok := get("MAX_BACKOFF"); ok {
		c.MaxBackoff = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	for _, f := range []struct {
		key string
		set func(uint64)
		max uint64
	}{
		{"NODE_ID_BITS", func(n uint64) { c.NodeIDBits = uint8(n) }, math.MaxUint8},
		{"SEQUENCE_BITS", func(n uint64) { c.SequenceBits = uint8(n) }, math.MaxUint8},
		{"UNUSED_BITS", func(n uint64) { c.UnusedBits = uint8(n) }, math.MaxUint8},
		{"MICROS_TEN_POWER", func(n uint64) { c.MicrosTenPower = uint8(n) }, math.MaxUint8},
		{"NODE_ID", func(n uint64) { c.NodeID = n }, math.MaxUint64},
		{"COOLDOWN_NS", func(n uint64) { c.CooldownNs = n }, math.MaxUint64},
	} {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n > f.max {
			return &seqid.ConfigError{
				Param:      strings.ToLower(f.key),
				Value:      v,
				Constraint: fmt.Sprintf("must be an unsigned integer up to %d", f.max),
			}
		}
		f.set(n)
	}
	return nil
}

// GeneratorConfig converts to the core configuration. It checks only what
// the conversion needs; seqid.NewGenerator validates the rest.
func (c Config) GeneratorConfig() (seqid.Config, error) {
	epoch, err := time.Parse(time.RFC3339, c.CustomEpoch)
	if err != nil {
		return seqid.Config{}, &seqid.ConfigError{
			Param:      "custom_epoch",
			Value:      c.CustomEpoch,
			Constraint: "must be an RFC 3339 timestamp",
		}
	}
	if c.CooldownNs > math.MaxInt64 {
		return seqid.Config{}, &seqid.ConfigError{Param: "cooldown_ns", Value: c.CooldownNs, Constraint: "must fit in a time.Duration"}
	}
	var maxBackoff time.Duration
	if c.MaxBackoff != "" {
		if maxBackoff, err = time.ParseDuration(c.MaxBackoff); err != nil {
			return seqid.Config{}, &seqid.ConfigError{Param: "max_backoff", Value: c.MaxBackoff, Constraint: "must be a duration"}
		}
	}
	return seqid.Config{
		Epoch:                epoch.UTC().Truncate(time.Millisecond),
		NodeIDBits:           c.NodeIDBits,
		NodeID:               c.NodeID,
		SequenceBits:         c.SequenceBits,
		UnusedBits:           c.UnusedBits,
		MicrosTenPower:       c.MicrosTenPower,
		BackoffCooldownStart: time.Duration(c.CooldownNs),
		MaxBackoff:           maxBackoff,
	}, nil
}

// Validate returns the first invalid setting as a *seqid.ConfigError.
func (c Config) Validate() error {
	gc, err := c.GeneratorConfig()
	if err != nil {
		return err
	}
	if err := gc.Validate(); err != nil {
		return err
	}
	if _, ok := strMapZapLevel[strings.ToLower(c.Log.Level)]; !ok && c.Log.Level != "" {
		return &seqid.ConfigError{Param: "log.level", Value: c.Log.Level, Constraint: "must be one of debug, info, warn, error, panic, fatal"}
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return &seqid.ConfigError{Param: "log.encoding", Value: c.Log.Encoding, Constraint: "must be json or console"}
	}
	return nil
}

// NewGenerator validates c and builds a generator logging to logger.
func (c Config) NewGenerator(logger *zap.Logger) (*seqid.Generator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	gc, _ := c.GeneratorConfig()
	return seqid.NewGenerator(gc, seqid.WithLogger(logger))
}

var strMapZapLevel = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zap.PanicLevel,
	"fatal": zap.FatalLevel,
}

// Logger builds the zap logger described by c.Log.
func (c Config) Logger() (*zap.Logger, error) {
	logLevel := zapcore.InfoLevel
	if lv, ok := strMapZapLevel[strings.ToLower(c.Log.Level)]; ok {
		logLevel = lv
	}
	encoding := c.Log.Encoding
	if encoding == "" {
		encoding = "json"
	}
	outputPaths := c.Log.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	if c.Log.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	lg, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(logLevel),
		Development:      c.Log.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: outputPaths,
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return lg, nil
}
