// Package config loads the engine's startup configuration. Precedence:
// environment variables override a .env file (via godotenv) which
// overrides the struct's envDefault tags; a subsequent overlay applies
// the line-oriented config file for values the environment didn't set.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every value the executor and its adapters consume at
// startup. Field names and defaults match the engine's external
// interfaces exactly.
type Config struct {
	Verbose     int    `env:"KV_VERBOSE" envDefault:"0"`
	Port        int    `env:"KV_PORT" envDefault:"8080"`
	TimeoutSecs int    `env:"KV_TIMEOUT_SECS" envDefault:"0"`
	DBFilename  string `env:"KV_DB_FILENAME" envDefault:"dump.rdb"`
	LogFilename string `env:"KV_LOG_FILENAME" envDefault:"log.log"`
	LogLevel    string `env:"KV_LOG_LEVEL" envDefault:"debug"`
	ConfigPath  string `env:"KV_CONFIG_PATH" envDefault:"file.conf"`

	NATSURL string `env:"NATS_URL" envDefault:""`
}

// Load reads environment variables (optionally preceded by a .env file),
// applies defaults, then overlays config_path's line-oriented file for
// any field whose environment variable is not set.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ConfigPath != "" {
		if err := cfg.overlayFile(cfg.ConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to parse config file %q: %w", cfg.ConfigPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	values, err := ParseFile(f)
	if err != nil {
		return err
	}
	envNames := map[string]string{
		"verbose":      "KV_VERBOSE",
		"port":         "KV_PORT",
		"timeout_secs": "KV_TIMEOUT_SECS",
		"db_filename":  "KV_DB_FILENAME",
		"log_filename": "KV_LOG_FILENAME",
		"log_level":    "KV_LOG_LEVEL",
	}
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if _, set := os.LookupEnv(envNames[strings.ToLower(name)]); set {
			continue
		}
		c.applyField(name, vals[0])
	}
	return nil
}

func (c *Config) applyField(name, value string) {
	switch strings.ToLower(name) {
	case "verbose":
		if n, err := strconv.Atoi(value); err == nil {
			c.Verbose = n
		}
	case "port":
		if n, err := strconv.Atoi(value); err == nil {
			c.Port = n
		}
	case "timeout_secs":
		if n, err := strconv.Atoi(value); err == nil {
			c.TimeoutSecs = n
		}
	case "db_filename":
		c.DBFilename = value
	case "log_filename":
		c.LogFilename = value
	case "log_level":
		c.LogLevel = value
	}
}

// Validate checks the loaded configuration for internally consistent
// values.
func (c *Config) Validate() error {
	if c.Verbose < 0 || c.Verbose > 255 {
		return fmt.Errorf("verbose must be 0-255, got %d", c.Verbose)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be a valid u16, got %d", c.Port)
	}
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs must be >= 0, got %d", c.TimeoutSecs)
	}
	valid := map[string]bool{"error": true, "info": true, "debug": true}
	if !valid[c.LogLevel] {
		return fmt.Errorf("log_level must be one of error, info, debug (got %q)", c.LogLevel)
	}
	return nil
}

// ParseFile parses the engine's line-oriented config-file format: `#`
// or `;` introduces a comment, tokens are separated by whitespace, an
// optional `=` sits between name and value, commas separate
// multi-values, and blank lines are ignored. Returns each directive
// name mapped to its (possibly multi-valued) argument list.
func ParseFile(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		idx := strings.IndexAny(line, " \t=")
		var name, rest string
		if idx == -1 {
			name, rest = line, ""
		} else {
			name = line[:idx]
			rest = strings.TrimSpace(line[idx:])
			rest = strings.TrimPrefix(rest, "=")
			rest = strings.TrimSpace(rest)
		}
		if rest == "" {
			continue
		}
		for _, v := range strings.Split(rest, ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				out[name] = append(out[name], v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
