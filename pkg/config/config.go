// Package config holds the inference configuration for palaver.
//
// A Config is resolved once at startup from built-in defaults, an optional
// TOML file and environment variables, and is then passed explicitly into the
// clients that need it. Nothing here is changed at runtime.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults mirror the hosted GitHub Models endpoint.
const (
	DefaultEndpoint     = "https://models.inference.ai.azure.com"
	DefaultModel        = "gpt-4o"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultTemperature  = 0.8
	DefaultMaxTokens    = 1000
	DefaultTopP         = 1.0
	DefaultTokenEnv     = "GITHUB_TOKEN"
	DefaultTimeout      = 5 * time.Minute
)

// Environment variables consulted by ApplyEnv.
const (
	EnvEndpoint = "PALAVER_ENDPOINT"
	EnvModel    = "PALAVER_MODEL"
)

// buildToken may be injected at build time:
//
//	go build -ldflags "-X github.com/papercomputeco/palaver/pkg/config.buildToken=..."
var buildToken string

// Config is the inference client configuration.
type Config struct {
	// Endpoint is the base URL of the chat completion API.
	Endpoint string `toml:"endpoint"`

	// Model identifier sent with every request.
	Model string `toml:"model"`

	// SystemPrompt is the fixed system instruction.
	SystemPrompt string `toml:"system_prompt"`

	Temperature float64  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	TopP        *float64 `toml:"top_p"`

	// Stream selects the streaming call for text-only prompts.
	Stream bool `toml:"stream"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `toml:"token_env"`

	// Timeout bounds a single request, e.g. "90s".
	Timeout Duration `toml:"timeout"`

	// Token is never read from the config file.
	Token string `toml:"-"`
}

// Duration decodes TOML strings like "90s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	topP := DefaultTopP
	return &Config{
		Endpoint:     DefaultEndpoint,
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		TopP:         &topP,
		Stream:       true,
		TokenEnv:     DefaultTokenEnv,
		Timeout:      Duration{DefaultTimeout},
		Token:        buildToken,
	}
}

// DefaultPath returns ~/.config/palaver/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve config dir: %w", err)
	}
	return filepath.Join(dir, "palaver", "config.toml"), nil
}

// Load resolves the configuration. An explicit path must exist; when path is
// empty the default location is used if present. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv applies environment overrides using the given lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := getenv(EnvModel); v != "" {
		c.Model = v
	}
	if c.TokenEnv != "" {
		if v := getenv(c.TokenEnv); v != "" {
			c.Token = v
		}
	}
}

// Validate checks the configuration. The token is required only when the
// endpoint is contacted directly, so it is checked by RequireToken.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint must be an http(s) URL, got %q", c.Endpoint))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if c.TopP != nil && (*c.TopP <= 0 || *c.TopP > 1) {
		errs = append(errs, fmt.Errorf("top_p must be within (0, 1], got %v", *c.TopP))
	}
	if c.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout.Duration))
	}

	return errors.Join(errs...)
}

// RequireToken returns an error naming the variable to set when no token is
// configured.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return fmt.Errorf("no API token: set %s", c.TokenEnv)
	}
	return nil
}
