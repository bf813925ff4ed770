// Package config loads the ambient settings of whisperjson from the
// environment. Every key is read as WHISPERJSON_<KEY>; a .env file in the
// working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/fmueller/whisperjson/internal/whisper"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WHISPERJSON"

const (
	keyEngine         = "engine"
	keyWhisperPath    = "whisper_path"
	keyModelDir       = "model_dir"
	keySidecarURL     = "sidecar_url"
	keySidecarTimeout = "sidecar_timeout"
	keyThreads        = "threads"
	keyLogLevel       = "log_level"
	keyLogFormat      = "log_format"
	keyProgress       = "progress"
)

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

type Config struct {
	Engine         string
	WhisperPath    string
	ModelDir       string
	SidecarURL     string
	SidecarTimeout time.Duration
	Threads        int
	LogLevel       string
	LogFormat      string
	Progress       bool
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper decodes and validates a Config from v, filling unset keys with
// defaults.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		Engine:         strings.ToLower(strings.TrimSpace(v.GetString(keyEngine))),
		WhisperPath:    strings.TrimSpace(v.GetString(keyWhisperPath)),
		ModelDir:       strings.TrimSpace(v.GetString(keyModelDir)),
		SidecarURL:     strings.TrimSpace(v.GetString(keySidecarURL)),
		SidecarTimeout: v.GetDuration(keySidecarTimeout),
		Threads:        v.GetInt(keyThreads),
		LogLevel:       strings.TrimSpace(v.GetString(keyLogLevel)),
		LogFormat:      strings.ToLower(strings.TrimSpace(v.GetString(keyLogFormat))),
		Progress:       v.GetBool(keyProgress),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !slices.Contains(whisper.EngineNames(), c.Engine) {
		return fmt.Errorf("%s_ENGINE: unknown engine %q (known engines: %s)", EnvPrefix, c.Engine, strings.Join(whisper.EngineNames(), ", "))
	}
	if c.Threads <= 0 {
		return fmt.Errorf("%s_THREADS must be a positive integer", EnvPrefix)
	}
	if c.SidecarTimeout <= 0 {
		return fmt.Errorf("%s_SIDECAR_TIMEOUT must be a positive duration", EnvPrefix)
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("%s_LOG_FORMAT must be %q or %q", EnvPrefix, LogFormatConsole, LogFormatJSON)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyEngine, whisper.EngineWhisperCLI)
	v.SetDefault(keyWhisperPath, "")
	v.SetDefault(keyModelDir, "")
	v.SetDefault(keySidecarURL, whisper.DefaultSidecarURL)
	v.SetDefault(keySidecarTimeout, whisper.DefaultSidecarTimeout)
	v.SetDefault(keyThreads, runtime.NumCPU())
	v.SetDefault(keyLogLevel, "")
	v.SetDefault(keyLogFormat, LogFormatConsole)
	v.SetDefault(keyProgress, false)
}
