package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonderfulspam/actions-smith/pkg/pricing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	model, err := cfg.Model(ProviderOpenAI, false)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo-preview", model)

	model, err = cfg.Model(ProviderOpenAI, true)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo-0125", model)
}

func TestTemplateMatchesDefaults(t *testing.T) {
	path := writeConfig(t, "template.yml", Template)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default().Models, cfg.Models)
	assert.Equal(t, Default().Output, cfg.Output)
	assert.Equal(t, Default().GitLab, cfg.GitLab)
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yml",
			content: `
provider: gemini
models:
  gemini:
    quick: gemini-2.0-flash
pricing:
  gemini-2.0-flash:
    input: 0.1
    output: 0.4
output:
  format: json
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{
  "provider": "gemini",
  "models": {"gemini": {"quick": "gemini-2.0-flash"}},
  "pricing": {"gemini-2.0-flash": {"input": 0.1, "output": 0.4}},
  "output": {"format": "json"}
}`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `
provider = "gemini"

[models.gemini]
quick = "gemini-2.0-flash"

[pricing."gemini-2.0-flash"]
input = 0.1
output = 0.4

[output]
format = "json"
`,
		},
		{
			name:    "json in yml file",
			file:    "config.yml",
			content: `{"provider": "gemini", "models": {"gemini": {"quick": "gemini-2.0-flash"}}, "pricing": {"gemini-2.0-flash": {"input": 0.1, "output": 0.4}}, "output": {"format": "json"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, ProviderGemini, cfg.Provider)

			quick, err := cfg.Model(ProviderGemini, true)
			require.NoError(t, err)
			assert.Equal(t, "gemini-2.0-flash", quick)

			// Unset values keep their defaults.
			standard, err := cfg.Model(ProviderGemini, false)
			require.NoError(t, err)
			assert.Equal(t, "gemini-2.5-pro", standard)
			assert.Equal(t, "gpt-4-turbo-preview", cfg.Models["openai"].Standard)
			assert.Equal(t, "OPENAI_API_KEY", cfg.OpenAI.APIKeyEnv)
			assert.Equal(t, ColorAuto, cfg.Output.Color)

			assert.Equal(t, FormatJSON, cfg.Output.Format)
			price, ok := cfg.PriceTable().Lookup("gemini-2.0-flash")
			require.True(t, ok)
			assert.Equal(t, pricing.Price{Input: 0.1, Output: 0.4}, price)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeConfig(t, "bad.toml", "provider = [unterminated"))
	assert.ErrorContains(t, err, "TOML")

	_, err = Load(writeConfig(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "JSON")

	_, err = Load(writeConfig(t, "bad.yml", "provider: [unterminated"))
	assert.ErrorContains(t, err, "YAML or JSON")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "azure" }, "unknown provider"},
		{"unknown model provider", func(c *Config) { c.Models["azure"] = ModelSet{Standard: "a", Quick: "b"} }, "models: unknown provider"},
		{"empty model", func(c *Config) { c.Models["openai"] = ModelSet{Standard: "gpt-4o"} }, "models.openai"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"bad color", func(c *Config) { c.Output.Color = "rainbow" }, "invalid output color"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
		{"negative price", func(c *Config) { c.Pricing = map[string]pricing.Price{"m": {Input: -1}} }, "pricing.m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("unknown provider is matchable", func(t *testing.T) {
		cfg := Default()
		cfg.Provider = "azure"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownProvider)
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvProvider: "Bedrock",
		EnvLogLevel: "DEBUG",
		EnvNoColor:  "1",
	}

	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ProviderBedrock, cfg.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ColorNever, cfg.Output.Color)

	untouched := Default()
	untouched.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, Default(), untouched)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("azure")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestModelUnknownProvider(t *testing.T) {
	_, err := Default().Model("azure", false)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yml", "out.json", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Provider = ProviderBedrock
			cfg.Bedrock.Region = "eu-west-1"

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, ProviderBedrock, loaded.Provider)
			assert.Equal(t, "eu-west-1", loaded.Bedrock.Region)
			assert.Equal(t, cfg.Models, loaded.Models)
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, source, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "defaults", source)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(DefaultFile, []byte("provider: gemini\n"), 0o644))
	cfg, source, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, source)
	assert.Equal(t, ProviderGemini, cfg.Provider)

	_, _, err = Resolve(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	loaded, err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.False(t, loaded)

	path := writeConfig(t, ".env", "ACTIONS_SMITH_DOTENV_TEST=from-file\n")
	t.Setenv("ACTIONS_SMITH_DOTENV_TEST", "")
	os.Unsetenv("ACTIONS_SMITH_DOTENV_TEST")

	loaded, err = LoadDotEnv(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "from-file", os.Getenv("ACTIONS_SMITH_DOTENV_TEST"))
}

// chdir switches the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatal(err)
		}
	})
}
