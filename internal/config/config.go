package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Generation GenerationConfig `mapstructure:"generation"`
	Export     ExportConfig     `mapstructure:"export"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type GeminiConfig struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	TextModel           string `mapstructure:"text_model"`
	ImageModel          string `mapstructure:"image_model"`
	TextTimeoutSeconds  int    `mapstructure:"text_timeout_seconds"`
	ImageTimeoutSeconds int    `mapstructure:"image_timeout_seconds"`
}

// TextTimeout returns the per-call timeout for text generation.
func (c *GeminiConfig) TextTimeout() time.Duration {
	return time.Duration(c.TextTimeoutSeconds) * time.Second
}

// ImageTimeout returns the per-call timeout for image generation.
func (c *GeminiConfig) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutSeconds) * time.Second
}

type GenerationConfig struct {
	Rows       int `mapstructure:"rows"`
	Workers    int `mapstructure:"workers"`
	RetryCount int `mapstructure:"retry_count"`
}

type ExportConfig struct {
	Dir          string `mapstructure:"dir"`
	CSVFile      string `mapstructure:"csv_file"`
	WorkbookFile string `mapstructure:"workbook_file"`
}

// Load reads configuration from an optional yaml file, environment
// variables, and a .env file if present.
// Parameters:
//   - configPath: explicit config file path; empty uses the default
//     search paths (./configs, .).
//
// Returns:
//   - *Config: populated configuration.
//   - error: non-nil if the file is unreadable, unmarshaling fails, or
//     the Gemini API key is missing (startup-time fatal condition).
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.image_model", "gemini-2.5-flash-image-preview")
	v.SetDefault("gemini.text_timeout_seconds", 60)
	v.SetDefault("gemini.image_timeout_seconds", 180)
	v.SetDefault("generation.rows", 10)
	v.SetDefault("generation.workers", 1)
	v.SetDefault("generation.retry_count", 0)
	v.SetDefault("export.dir", "./output")
	v.SetDefault("export.csv_file", "generated_marketing_data.csv")
	v.SetDefault("export.workbook_file", "memes_export.xlsx")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("gemini.base_url", "GEMINI_BASE_URL")
	v.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")
	v.BindEnv("gemini.image_model", "GEMINI_IMAGE_MODEL")
	v.BindEnv("export.dir", "EXPORT_DIR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The API key is required before any stage can run; failing here
	// keeps it a startup error instead of a per-call one.
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	return &cfg, nil
}
