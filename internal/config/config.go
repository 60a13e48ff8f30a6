// Package config loads settings from ~/.laterread/config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/embedding"
)

// APIKeyEnv overrides the stored classifier credential
const APIKeyEnv = "OPENROUTER_API_KEY"

// EmbeddingKeyEnv holds the embeddings API key
const EmbeddingKeyEnv = "VOYAGE_API_KEY"

type Config struct {
	InboxPath      string        `yaml:"inbox_path"`
	LaterWritePath string        `yaml:"laterwrite_path"`
	ArchivePath    string        `yaml:"archive_path"`
	DigestDir      string        `yaml:"digest_dir"`
	DBPath         string        `yaml:"db_path"`
	LogPath        string        `yaml:"log_path"`
	LogLevel       string        `yaml:"log_level"`
	AutoClassify   bool          `yaml:"auto_classify"`
	BatchPause     time.Duration `yaml:"batch_pause"`

	Classifier ClassifierConfig `yaml:"classifier"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type ClassifierConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

// EmbeddingConfig enables related-item suggestions when APIKey is set
type EmbeddingConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// TelegramConfig enables notice delivery to a chat when Token is set
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Dir returns the default data directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".laterread"
	}
	return filepath.Join(home, ".laterread")
}

// DefaultPath is where the config file is looked up
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the settings used when nothing is configured, rooted at dir
func Default(dir string) *Config {
	return &Config{
		InboxPath:      filepath.Join(dir, "inbox.md"),
		LaterWritePath: filepath.Join(dir, "laterwrite.md"),
		ArchivePath:    filepath.Join(dir, "archive.md"),
		DigestDir:      filepath.Join(dir, "digests"),
		DBPath:         filepath.Join(dir, "laterread.db"),
		LogPath:        filepath.Join(dir, "logs", "laterread.log"),
		LogLevel:       "info",
		AutoClassify:   true,
		BatchPause:     500 * time.Millisecond,
		Classifier: ClassifierConfig{
			BaseURL:   classifier.DefaultBaseURL,
			Model:     classifier.DefaultModel,
			Timeout:   classifier.DefaultTimeout,
			MaxTokens: classifier.DefaultMaxTokens,
		},
		Embedding: EmbeddingConfig{
			Model: embedding.DefaultModel,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default(Dir())

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.InboxPath = getEnv("LATERREAD_INBOX", c.InboxPath)
	c.LaterWritePath = getEnv("LATERREAD_LATERWRITE", c.LaterWritePath)
	c.ArchivePath = getEnv("LATERREAD_ARCHIVE", c.ArchivePath)
	c.DigestDir = getEnv("LATERREAD_DIGEST_DIR", c.DigestDir)
	c.DBPath = getEnv("LATERREAD_DB", c.DBPath)
	c.LogPath = getEnv("LATERREAD_LOG", c.LogPath)
	c.LogLevel = getEnv("LATERREAD_LOG_LEVEL", c.LogLevel)
	c.AutoClassify = getEnvAsBool("LATERREAD_AUTO_CLASSIFY", c.AutoClassify)
	c.BatchPause = getEnvAsDuration("LATERREAD_BATCH_PAUSE", c.BatchPause)
	c.Classifier.BaseURL = getEnv("LATERREAD_BASE_URL", c.Classifier.BaseURL)
	c.Classifier.Model = getEnv("LATERREAD_MODEL", c.Classifier.Model)
	c.Classifier.Timeout = getEnvAsDuration("LATERREAD_TIMEOUT", c.Classifier.Timeout)
	c.Classifier.MaxTokens = getEnvAsInt("LATERREAD_MAX_TOKENS", c.Classifier.MaxTokens)
	c.Embedding.APIKey = getEnv(EmbeddingKeyEnv, c.Embedding.APIKey)
	c.Embedding.Model = getEnv("LATERREAD_EMBEDDING_MODEL", c.Embedding.Model)
	c.Telegram.Token = getEnv("LATERREAD_TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.ChatID = int64(getEnvAsInt("LATERREAD_TELEGRAM_CHAT", int(c.Telegram.ChatID)))
}

// Write encodes the config as YAML to w
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
