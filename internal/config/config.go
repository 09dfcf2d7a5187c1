package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Locales supported by the app. Anything else falls back to LocaleKorean.
const (
	LocaleKorean  = "ko_KR"
	LocaleEnglish = "en_US"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	App     AppConfig     `toml:"app"`
	Reddit  RedditConfig  `toml:"reddit"`
	LLM     LLMConfig     `toml:"llm"`
	Refresh RefreshConfig `toml:"refresh"`
	Data    DataConfig    `toml:"data"`
}

type AppConfig struct {
	Locale   string `toml:"locale"`
	LogLevel string `toml:"log_level"`
}

type RedditConfig struct {
	Subreddits         []string `toml:"subreddits"`
	DefaultSort        string   `toml:"default_sort"`
	PostLimit          int      `toml:"post_limit"`
	CommentLimit       int      `toml:"comment_limit"`
	RequestIntervalSec int      `toml:"request_interval_sec"`
	MaxRetries         int      `toml:"max_retries"`
	MockMode           bool     `toml:"mock_mode"`
}

type LLMConfig struct {
	Provider  string          `toml:"provider"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Models    ModelsConfig    `toml:"models"`
	MaxTokens int             `toml:"max_tokens"`
}

type OllamaConfig struct {
	Host       string `toml:"host"`
	TimeoutSec int    `toml:"timeout_sec"`
}

type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
}

// ModelConfig describes one generation role. Prompt, when set, overrides the
// built-in prompt template for that role.
type ModelConfig struct {
	Name        string  `toml:"name"`
	NumCtx      int     `toml:"num_ctx"`
	Temperature float64 `toml:"temperature"`
	Prompt      string  `toml:"prompt,omitempty"`
}

type ModelsConfig struct {
	Summary ModelConfig `toml:"summary"`
	Logic   ModelConfig `toml:"logic"`
	Persona ModelConfig `toml:"persona"`
}

type RefreshConfig struct {
	Schedule     string `toml:"schedule"`
	Timezone     string `toml:"timezone"`
	PrewarmLimit int    `toml:"prewarm_limit"`
}

type DataConfig struct {
	DBPath        string `toml:"db_path"`
	SaveExchanges bool   `toml:"save_exchanges"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		App: AppConfig{
			Locale:   LocaleKorean,
			LogLevel: "info",
		},
		Reddit: RedditConfig{
			Subreddits:         []string{"python", "programming", "learnpython"},
			DefaultSort:        "hot",
			PostLimit:          25,
			CommentLimit:       50,
			RequestIntervalSec: 6,
			MaxRetries:         3,
			MockMode:           false,
		},
		LLM: LLMConfig{
			Provider: ProviderOllama,
			Ollama: OllamaConfig{
				Host:       "http://localhost:11434",
				TimeoutSec: 120,
			},
			Models: ModelsConfig{
				Summary: ModelConfig{Name: "llama3.1:8b", NumCtx: 8192, Temperature: 0.7},
				Logic:   ModelConfig{Name: "gemma2:9b", NumCtx: 8192, Temperature: 0.3},
				Persona: ModelConfig{Name: "llama3.1:70b", NumCtx: 8192, Temperature: 0.7},
			},
			MaxTokens: 4096,
		},
		Refresh: RefreshConfig{
			Schedule:     "*/30 * * * *",
			Timezone:     "Local",
			PrewarmLimit: 5,
		},
		Data: DataConfig{
			SaveExchanges: false,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "reddiscribe"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "reddiscribe"), nil
}

// DBPath returns the database path, respecting the data.db_path override.
func (c *Config) DBPath() (string, error) {
	if c.Data.DBPath != "" {
		return c.Data.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	cfg.Normalize()
	return &cfg, nil
}

// LoadOrInit loads the config, writing the defaults first if no config
// file exists yet.
func LoadOrInit() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Load()
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Normalize clamps invalid values back into their allowed ranges so a
// hand-edited config file cannot put the app into a hostile state.
// Unknown locales fall back to ko_KR, the request interval has a 3s floor,
// temperatures outside [0, 2] reset to 0.7 and the Ollama timeout has a
// 30s floor.
func (c *Config) Normalize() {
	if c.App.Locale != LocaleKorean && c.App.Locale != LocaleEnglish {
		c.App.Locale = LocaleKorean
	}
	if c.Reddit.RequestIntervalSec < 3 {
		c.Reddit.RequestIntervalSec = 3
	}
	if c.Reddit.MaxRetries < 0 {
		c.Reddit.MaxRetries = 0
	}
	if c.Reddit.PostLimit < 1 || c.Reddit.PostLimit > 100 {
		c.Reddit.PostLimit = 25
	}
	if c.Reddit.DefaultSort == "" {
		c.Reddit.DefaultSort = "hot"
	}
	if c.LLM.Ollama.TimeoutSec < 30 {
		c.LLM.Ollama.TimeoutSec = 30
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	for _, m := range []*ModelConfig{&c.LLM.Models.Summary, &c.LLM.Models.Logic, &c.LLM.Models.Persona} {
		if m.Temperature < 0 || m.Temperature > 2 {
			m.Temperature = 0.7
		}
		if m.NumCtx <= 0 {
			m.NumCtx = 8192
		}
	}
	if c.Refresh.Schedule == "" {
		c.Refresh.Schedule = "*/30 * * * *"
	}
	if c.Refresh.Timezone == "" {
		c.Refresh.Timezone = "Local"
	}
	if c.Refresh.PrewarmLimit < 0 {
		c.Refresh.PrewarmLimit = 0
	}
}

// TargetLanguage maps a locale code to the language name used in prompts.
func TargetLanguage(locale string) string {
	if locale == LocaleKorean {
		return "Korean"
	}
	return "English"
}
