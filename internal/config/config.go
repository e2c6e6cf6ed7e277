// Package config loads and validates the application configuration from
// YAML. Unknown fields are rejected so typos fail at startup instead of
// silently falling back to defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Config.applyDefaults].
const (
	DefaultListenAddr       = ":8080"
	DefaultSessionTTL       = 15 * time.Minute
	DefaultMaxMessageLength = 500
	DefaultMaxSlots         = 3
	DefaultFAQThreshold     = 0.80
	DefaultMaxTurnsAntiLoop = 25
	DefaultMaxContextFails  = 3
	DefaultConfirmRetryMax  = 1
	DefaultLanguage         = "fr"
)

// Config is the root configuration document.
type Config struct {
	// ListenAddr is the HTTP listen address for the gateway.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Storage Storage  `yaml:"storage"`
	Engine  Engine   `yaml:"engine"`
	Tenants []Tenant `yaml:"tenants"`
}

// Storage selects the persistence backends. Every field is optional: an
// empty postgres_dsn keeps sessions and audit in memory, an empty
// sqlite_fallback_path disables degraded-mode booking, an empty faq_dir
// starts with no FAQ entries.
type Storage struct {
	PostgresDSN        string `yaml:"postgres_dsn"`
	SQLiteFallbackPath string `yaml:"sqlite_fallback_path"`
	FAQDir             string `yaml:"faq_dir"`
}

// Engine carries the conversation tuning knobs.
type Engine struct {
	SessionTTLMinutes  int     `yaml:"session_ttl_minutes"`
	MaxMessageLength   int     `yaml:"max_message_length"`
	MaxSlotsProposed   int     `yaml:"max_slots_proposed"`
	FAQThreshold       float64 `yaml:"faq_threshold"`
	SkipContactConfirm bool    `yaml:"skip_contact_confirm"`

	// MaxTurnsAntiLoop is the hard ceiling on processed turns per
	// conversation before the intent router takes over.
	MaxTurnsAntiLoop int `yaml:"max_turns_anti_loop"`

	// MaxContextFails bounds each qualification step's recovery counter.
	MaxContextFails int `yaml:"max_context_fails"`

	// ConfirmRetryMax is how many times a yes/no confirmation question is
	// repeated verbatim on an unrecognised answer before the graduated
	// recovery takes over. Zero means the default of 1.
	ConfirmRetryMax int `yaml:"confirm_retry_max"`

	// Language is the dialogue language. Only "fr" is supported.
	Language string `yaml:"language"`
}

// Tenant is one business served by this deployment.
type Tenant struct {
	// ID is the stable tenant identifier used in URLs, storage keys and
	// FAQ files.
	ID string `yaml:"id"`

	// BusinessName is spoken in the greeting and other prompts.
	BusinessName string `yaml:"business_name"`
}

// SessionTTL returns the configured TTL as a duration.
func (e Engine) SessionTTL() time.Duration {
	return time.Duration(e.SessionTTLMinutes) * time.Minute
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document from r.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Engine.SessionTTLMinutes == 0 {
		c.Engine.SessionTTLMinutes = int(DefaultSessionTTL / time.Minute)
	}
	if c.Engine.MaxMessageLength == 0 {
		c.Engine.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.Engine.MaxSlotsProposed == 0 {
		c.Engine.MaxSlotsProposed = DefaultMaxSlots
	}
	if c.Engine.FAQThreshold == 0 {
		c.Engine.FAQThreshold = DefaultFAQThreshold
	}
	if c.Engine.MaxTurnsAntiLoop == 0 {
		c.Engine.MaxTurnsAntiLoop = DefaultMaxTurnsAntiLoop
	}
	if c.Engine.MaxContextFails == 0 {
		c.Engine.MaxContextFails = DefaultMaxContextFails
	}
	if c.Engine.ConfirmRetryMax == 0 {
		c.Engine.ConfirmRetryMax = DefaultConfirmRetryMax
	}
	if c.Engine.Language == "" {
		c.Engine.Language = DefaultLanguage
	}
}

// Validate checks the configuration for consistency. All problems are
// reported at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	if c.Engine.SessionTTLMinutes < 0 {
		errs = append(errs, errors.New("engine.session_ttl_minutes: must not be negative"))
	}
	if c.Engine.FAQThreshold < 0 || c.Engine.FAQThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.faq_threshold: %v is outside [0,1]", c.Engine.FAQThreshold))
	}
	if c.Engine.MaxSlotsProposed < 1 {
		errs = append(errs, errors.New("engine.max_slots_proposed: must be at least 1"))
	}
	if c.Engine.MaxTurnsAntiLoop < 1 {
		errs = append(errs, errors.New("engine.max_turns_anti_loop: must be at least 1"))
	}
	if c.Engine.MaxContextFails < 1 {
		errs = append(errs, errors.New("engine.max_context_fails: must be at least 1"))
	}
	if c.Engine.ConfirmRetryMax < 0 {
		errs = append(errs, errors.New("engine.confirm_retry_max: must not be negative"))
	}
	if c.Engine.Language != DefaultLanguage {
		errs = append(errs, fmt.Errorf("engine.language: %q is not supported, only %q", c.Engine.Language, DefaultLanguage))
	}
	if len(c.Tenants) == 0 {
		errs = append(errs, errors.New("tenants: at least one tenant is required"))
	}

	seen := make(map[string]bool, len(c.Tenants))
	for i, t := range c.Tenants {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("tenants[%d]: id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("tenants[%d]: duplicate id %q", i, t.ID))
		}
		seen[t.ID] = true
		if t.BusinessName == "" {
			errs = append(errs, fmt.Errorf("tenants[%d] (%s): business_name is required", i, t.ID))
		}
	}

	return errors.Join(errs...)
}

// TenantIDs returns the configured tenant identifiers in declaration order.
func (c *Config) TenantIDs() []string {
	ids := make([]string, len(c.Tenants))
	for i, t := range c.Tenants {
		ids[i] = t.ID
	}
	return ids
}
