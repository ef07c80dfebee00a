package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither --config nor DREAMLOG_CONFIG is set.
const DefaultConfigPath = "~/.config/dreamlog/config.yaml"

// EnvConfigPath names the environment variable that overrides DefaultConfigPath.
const EnvConfigPath = "DREAMLOG_CONFIG"

// Config holds all dreamlog configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	AI          AIConfig          `yaml:"ai"`
	Usage       UsageConfig       `yaml:"usage"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AIConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Provider            string `yaml:"provider"`
	OllamaURL           string `yaml:"ollama_url"`
	Model               string `yaml:"model"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	MinEntries          int    `yaml:"min_entries"`
	MaxEntries          int    `yaml:"max_entries"`
	BodyExcerptChars    int    `yaml:"body_excerpt_chars"`
	InterpretationStyle string `yaml:"interpretation_style"`
}

type UsageConfig struct {
	MonthlyLimit int `yaml:"monthly_limit"`
}

type EntitlementConfig struct {
	ProductID     string `yaml:"product_id"`
	ReceiptFile   string `yaml:"receipt_file"`
	PublicKeyFile string `yaml:"public_key_file"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Load reads the YAML file at path over DefaultConfig and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range or unknown value at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", ")))
	}
	atLeast := func(field string, value, min int) {
		if value < min {
			errs = append(errs, fmt.Errorf("%s must be at least %d, got %d", field, min, value))
		}
	}

	oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	oneOf("logging.format", c.Logging.Format, "console", "json")
	oneOf("ai.interpretation_style", c.AI.InterpretationStyle, "psychological", "cultural", "mixed")
	atLeast("ai.min_entries", c.AI.MinEntries, 1)
	atLeast("ai.max_entries", c.AI.MaxEntries, 1)
	atLeast("ai.body_excerpt_chars", c.AI.BodyExcerptChars, 1)
	atLeast("ai.timeout_seconds", c.AI.TimeoutSeconds, 1)
	atLeast("usage.monthly_limit", c.Usage.MonthlyLimit, 0)
	if strings.TrimSpace(c.Entitlement.ProductID) == "" {
		errs = append(errs, errors.New("entitlement.product_id must not be empty"))
	}
	return errors.Join(errs...)
}

// DatabasePath returns the resolved SQLite file location.
func (c *Config) DatabasePath() (string, error) {
	dir, err := ResolvePath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Path picks the config file: the explicit flag value, then
// DREAMLOG_CONFIG, then DefaultConfigPath. The result is resolved.
func Path(flag string) (string, error) {
	p := flag
	if p == "" {
		p = os.Getenv(EnvConfigPath)
	}
	if p == "" {
		p = DefaultConfigPath
	}
	return ResolvePath(p)
}

// ResolvePath expands "~" and "~/..." to the user's home directory.
// Other paths are returned unchanged.
func ResolvePath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// LoadOrCreateAt loads the config at path, first writing the defaults
// there (and creating its directory) when the file does not exist.
func LoadOrCreateAt(path string) (*Config, error) {
	_, err := os.Stat(path)
	if err == nil {
		return Load(path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := writeDefaults(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	data = append([]byte("# dreamlog configuration; see `dreamlog --help` for the commands.\n"), data...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
