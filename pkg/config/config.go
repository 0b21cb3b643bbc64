// Package config loads actions-smith settings from YAML, JSON or TOML files
// and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wonderfulspam/actions-smith/pkg/logging"
	"github.com/wonderfulspam/actions-smith/pkg/pricing"
)

// DefaultFile is looked up in the working directory when no config path is
// given.
const DefaultFile = ".actions-smith.yml"

// Environment variables read by ApplyEnv.
const (
	EnvProvider = "ACTIONS_SMITH_PROVIDER"
	EnvLogLevel = "ACTIONS_SMITH_LOG_LEVEL"
	EnvNoColor  = "NO_COLOR"
)

// ErrUnknownProvider is returned for provider names other than those in
// Providers.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider names a chat model backend.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
	ProviderBedrock Provider = "bedrock"
)

// Providers lists the supported providers in display order.
var Providers = []Provider{ProviderOpenAI, ProviderGemini, ProviderBedrock}

// ParseProvider validates a provider name.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q (must be one of: openai, gemini, bedrock)", ErrUnknownProvider, name)
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ModelSet is the model pair of one provider.
type ModelSet struct {
	Standard string `yaml:"standard" json:"standard" toml:"standard"`
	Quick    string `yaml:"quick" json:"quick" toml:"quick"`
}

type OpenAIConfig struct {
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url,omitempty" toml:"base_url,omitempty"`
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty" toml:"organization,omitempty"`
	APIKeyEnv    string `yaml:"api_key_env" json:"api_key_env" toml:"api_key_env"`
}

type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env" toml:"api_key_env"`
}

type BedrockConfig struct {
	Region  string `yaml:"region,omitempty" json:"region,omitempty" toml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty" toml:"profile,omitempty"`
}

type GitLabConfig struct {
	BaseURL  string `yaml:"base_url" json:"base_url" toml:"base_url"`
	TokenEnv string `yaml:"token_env" json:"token_env" toml:"token_env"`
}

type OutputConfig struct {
	Format string `yaml:"format" json:"format" toml:"format"`
	Color  string `yaml:"color" json:"color" toml:"color"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level" toml:"level"`
}

// Config holds the overall actions-smith configuration
type Config struct {
	Version  string                   `yaml:"version" json:"version" toml:"version"`
	Provider Provider                 `yaml:"provider" json:"provider" toml:"provider"`
	Models   map[string]ModelSet      `yaml:"models" json:"models" toml:"models"`
	OpenAI   OpenAIConfig             `yaml:"openai" json:"openai" toml:"openai"`
	Gemini   GeminiConfig             `yaml:"gemini" json:"gemini" toml:"gemini"`
	Bedrock  BedrockConfig            `yaml:"bedrock" json:"bedrock" toml:"bedrock"`
	GitLab   GitLabConfig             `yaml:"gitlab" json:"gitlab" toml:"gitlab"`
	Pricing  map[string]pricing.Price `yaml:"pricing,omitempty" json:"pricing,omitempty" toml:"pricing,omitempty"`
	Output   OutputConfig             `yaml:"output" json:"output" toml:"output"`
	Logging  LoggingConfig            `yaml:"logging" json:"logging" toml:"logging"`
}

// DefaultModels are the built-in standard and quick models per provider.
func DefaultModels() map[string]ModelSet {
	return map[string]ModelSet{
		string(ProviderOpenAI): {
			Standard: "gpt-4-turbo-preview",
			Quick:    "gpt-3.5-turbo-0125",
		},
		string(ProviderGemini): {
			Standard: "gemini-2.5-pro",
			Quick:    "gemini-2.5-flash",
		},
		string(ProviderBedrock): {
			Standard: "anthropic.claude-3-5-sonnet-20240620-v1:0",
			Quick:    "anthropic.claude-3-haiku-20240307-v1:0",
		},
	}
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Version:  "1.0",
		Provider: ProviderOpenAI,
		Models:   DefaultModels(),
		OpenAI:   OpenAIConfig{APIKeyEnv: "OPENAI_API_KEY"},
		Gemini:   GeminiConfig{APIKeyEnv: "GEMINI_API_KEY"},
		GitLab:   GitLabConfig{BaseURL: "https://gitlab.com", TokenEnv: "GITLAB_TOKEN"},
		Output:   OutputConfig{Format: FormatText, Color: ColorAuto},
		Logging:  LoggingConfig{Level: "warn"},
	}
}

// Load loads configuration from a file. The format follows the extension:
// .toml and .json are decoded as such, anything else is tried as YAML and
// then JSON. Settings missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as JSON: %w", err)
		}
	default:
		// Try YAML first, then JSON
		if err := yaml.Unmarshal(data, config); err != nil {
			if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
				return nil, fmt.Errorf("failed to parse config file as YAML or JSON: %w", err)
			}
		}
	}

	config.mergeDefaults(Default())
	return config, nil
}

// Resolve finds and loads the configuration to use. An explicit path must
// exist. Without one, DefaultFile in the working directory is used when
// present, otherwise the defaults. The returned string names the source.
func Resolve(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		cfg, err := Load(DefaultFile)
		if err != nil {
			return nil, "", err
		}
		return cfg, DefaultFile, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("checking %s: %w", DefaultFile, err)
	}

	return Default(), "defaults", nil
}

func (c *Config) mergeDefaults(d *Config) {
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.Models == nil {
		c.Models = make(map[string]ModelSet)
	}
	for name, def := range d.Models {
		set := c.Models[name]
		if set.Standard == "" {
			set.Standard = def.Standard
		}
		if set.Quick == "" {
			set.Quick = def.Quick
		}
		c.Models[name] = set
	}
	if c.OpenAI.APIKeyEnv == "" {
		c.OpenAI.APIKeyEnv = d.OpenAI.APIKeyEnv
	}
	if c.Gemini.APIKeyEnv == "" {
		c.Gemini.APIKeyEnv = d.Gemini.APIKeyEnv
	}
	if c.GitLab.BaseURL == "" {
		c.GitLab.BaseURL = d.GitLab.BaseURL
	}
	if c.GitLab.TokenEnv == "" {
		c.GitLab.TokenEnv = d.GitLab.TokenEnv
	}
	if c.Output.Format == "" {
		c.Output.Format = d.Output.Format
	}
	if c.Output.Color == "" {
		c.Output.Color = d.Output.Color
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvProvider); v != "" {
		c.Provider = Provider(strings.ToLower(v))
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	// https://no-color.org: any non-empty value disables color.
	if getenv(EnvNoColor) != "" {
		c.Output.Color = ColorNever
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseProvider(string(c.Provider)); err != nil {
		errs = append(errs, err)
	}

	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := ParseProvider(name); err != nil {
			errs = append(errs, fmt.Errorf("models: %w", err))
			continue
		}
		set := c.Models[name]
		if set.Standard == "" || set.Quick == "" {
			errs = append(errs, fmt.Errorf("models.%s: standard and quick models must both be set", name))
		}
	}

	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q (must be: text or json)", c.Output.Format))
	}

	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("invalid output color %q (must be: auto, always or never)", c.Output.Color))
	}

	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("invalid log level %q (must be: debug, info, warn or error)", c.Logging.Level))
	}

	for model, price := range c.Pricing {
		if price.Input < 0 || price.Output < 0 {
			errs = append(errs, fmt.Errorf("pricing.%s: prices cannot be negative", model))
		}
	}

	return errors.Join(errs...)
}

// Model returns the model of the given tier for provider.
func (c *Config) Model(provider Provider, quick bool) (string, error) {
	set, ok := c.Models[string(provider)]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}
	if quick {
		return set.Quick, nil
	}
	return set.Standard, nil
}

// PriceTable returns the built-in prices with the configured overrides
// applied.
func (c *Config) PriceTable() *pricing.Table {
	table := pricing.Default()
	for model, price := range c.Pricing {
		table.Set(model, price)
	}
	return table
}

// Save writes the configuration in the format matching the file extension.
func (c *Config) Save(filename string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(c)
		data = []byte(b.String())
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filename, data, 0o644)
}

// LoadDotEnv loads environment variables from a dotenv file. A missing file
// is not an error; variables already set in the environment win.
func LoadDotEnv(filename string) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(filename); err != nil {
		return false, fmt.Errorf("loading %s: %w", filename, err)
	}
	return true, nil
}
