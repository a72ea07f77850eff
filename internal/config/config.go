package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL        = "https://api.notion.com/v1"
	DefaultNotionVersion  = "2022-06-28"
	DefaultTimeout        = 30 * time.Second
	DefaultResultMaxBytes = 50 * 1024
)

// Config holds runtime configuration values.
type Config struct {
	BaseURL        string
	NotionVersion  string
	Timeout        time.Duration
	ResultMaxBytes int
	Verbose        bool
	LogFile        string
}

type rawConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	NotionVersion  string `mapstructure:"notion_version"`
	Timeout        string `mapstructure:"timeout"`
	ResultMaxBytes int    `mapstructure:"result_max_bytes"`
	Verbose        bool   `mapstructure:"verbose"`
	LogFile        string `mapstructure:"log_file"`
}

// Load resolves configuration from defaults, config files, env, and flags.
// The API token itself is not configuration; the client reads it from the
// environment at construction time.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTION_MCP")
	v.AutomaticEnv()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("notion_version", DefaultNotionVersion)
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("result_max_bytes", DefaultResultMaxBytes)
	v.SetDefault("verbose", false)
	v.SetDefault("log_file", "")

	if cmd != nil {
		_ = v.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
		_ = v.BindPFlag("notion_version", cmd.Flags().Lookup("notion-version"))
		_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
		_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
		_ = v.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	}

	if err := loadConfigFile(v); err != nil {
		return Config{}, err
	}

	var raw rawConfig
	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &raw})
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, err
	}

	timeout := DefaultTimeout
	if raw.Timeout != "" {
		parsed, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		timeout = parsed
	}

	cfg := Config{
		BaseURL:        raw.BaseURL,
		NotionVersion:  raw.NotionVersion,
		Timeout:        timeout,
		ResultMaxBytes: raw.ResultMaxBytes,
		Verbose:        raw.Verbose,
		LogFile:        raw.LogFile,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.NotionVersion == "" {
		cfg.NotionVersion = DefaultNotionVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResultMaxBytes <= 0 {
		cfg.ResultMaxBytes = DefaultResultMaxBytes
	}

	return cfg, nil
}

func loadConfigFile(v *viper.Viper) error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	base := filepath.Join(configDir, "notion-mcp")
	candidates := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}
