// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidThreshold is returned when a scoring threshold is out of range.
	ErrInvalidThreshold = errors.New("config: invalid threshold")
	// ErrInvalidPolicy is returned when BATTLE_LESSON_POLICY is unknown.
	ErrInvalidPolicy = errors.New("config: BATTLE_LESSON_POLICY must be \"first\" or \"random\"")
	// ErrInvalidUploadLimit is returned when MAX_UPLOAD_MB is not positive.
	ErrInvalidUploadLimit = errors.New("config: MAX_UPLOAD_MB must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port        int    `env:"PORT, default=8080" json:"port"`
	TempDir     string `env:"TEMP_DIR, default=/tmp/nudiguru" json:"temp_dir"`
	MaxUploadMB int    `env:"MAX_UPLOAD_MB, default=10" json:"max_upload_mb"`

	// Lesson and template banks
	LessonsFile       string `env:"LESSONS_FILE" json:"lessons_file,omitempty"`
	SequenceTemplates string `env:"SEQUENCE_TEMPLATES" json:"sequence_templates,omitempty"`
	VectorTemplates   string `env:"VECTOR_TEMPLATES" json:"vector_templates,omitempty"`
	TemplatesDSN      string `env:"TEMPLATES_DSN" json:"-"` // Masked in JSON

	// Feature extraction service
	FeatureServiceURL string `env:"FEATURE_SERVICE_URL" json:"feature_service_url,omitempty"`
	FeatureAPIKey     string `env:"FEATURE_API_KEY" json:"-"` // Masked in JSON

	// Scoring settings
	SequenceThreshold float64 `env:"SEQUENCE_THRESHOLD, default=700" json:"sequence_threshold"`
	SequenceGain      float64 `env:"SEQUENCE_GAIN, default=5" json:"sequence_gain"`
	VectorThreshold   float64 `env:"VECTOR_THRESHOLD, default=0.70" json:"vector_threshold"`

	// Pre-filter settings
	PrefilterEnabled   bool    `env:"PREFILTER_ENABLED, default=true" json:"prefilter_enabled"`
	PrefilterThreshold float64 `env:"PREFILTER_THRESHOLD, default=17500" json:"prefilter_threshold"`
	PrefilterMargin    float64 `env:"PREFILTER_MARGIN, default=3000" json:"prefilter_margin"`

	// Reference audio
	TTSURL               string `env:"TTS_URL" json:"tts_url,omitempty"`
	TTSSpeaker           string `env:"TTS_SPEAKER, default=female" json:"tts_speaker"`
	TTSLanguage          string `env:"TTS_LANGUAGE, default=kn" json:"tts_language"`
	ReferenceCacheDir    string `env:"REFERENCE_CACHE_DIR, default=/tmp/nudiguru/references" json:"reference_cache_dir"`
	ReferenceFallbackDir string `env:"REFERENCE_FALLBACK_DIR" json:"reference_fallback_dir,omitempty"`

	// Optional S3 settings for the reference cache
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=references/" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Audio normalization
	FFmpegPath     string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	NormalizeAudio bool   `env:"NORMALIZE_AUDIO, default=false" json:"normalize_audio"`

	// Battle settings
	BattleLessonPolicy string `env:"BATTLE_LESSON_POLICY, default=first" json:"battle_lesson_policy"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// FeatureServiceEnabled returns true if a feature extraction service is configured.
func (c *Config) FeatureServiceEnabled() bool {
	return c.FeatureServiceURL != ""
}

// TTSEnabled returns true if a TTS server is configured.
func (c *Config) TTSEnabled() bool {
	return c.TTSURL != ""
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are in range.
func (c *Config) Validate() error {
	if c.SequenceThreshold <= 0 {
		return fmt.Errorf("%w: SEQUENCE_THRESHOLD must be positive, got %g", ErrInvalidThreshold, c.SequenceThreshold)
	}
	if c.VectorThreshold <= 0 || c.VectorThreshold > 1 {
		return fmt.Errorf("%w: VECTOR_THRESHOLD must be in (0, 1], got %g", ErrInvalidThreshold, c.VectorThreshold)
	}
	if c.SequenceGain <= 0 {
		return fmt.Errorf("%w: SEQUENCE_GAIN must be positive, got %g", ErrInvalidThreshold, c.SequenceGain)
	}
	if c.PrefilterThreshold <= 0 || c.PrefilterMargin < 0 || c.PrefilterMargin >= c.PrefilterThreshold {
		return fmt.Errorf("%w: need 0 <= PREFILTER_MARGIN < PREFILTER_THRESHOLD, got %g and %g",
			ErrInvalidThreshold, c.PrefilterMargin, c.PrefilterThreshold)
	}
	switch strings.ToLower(c.BattleLessonPolicy) {
	case "first", "random":
	default:
		return ErrInvalidPolicy
	}
	if c.MaxUploadMB <= 0 {
		return ErrInvalidUploadLimit
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, FeatureServiceURL: %s, FeatureAPIKey: %s, TemplatesDSN: %s, SequenceTemplates: %s, VectorTemplates: %s, SequenceThreshold: %g, VectorThreshold: %g, PrefilterEnabled: %t, TTSURL: %s, S3Bucket: %s, S3Region: %s, BattleLessonPolicy: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.FeatureServiceURL,
		mask(c.FeatureAPIKey),
		mask(c.TemplatesDSN),
		c.SequenceTemplates,
		c.VectorTemplates,
		c.SequenceThreshold,
		c.VectorThreshold,
		c.PrefilterEnabled,
		c.TTSURL,
		c.S3Bucket,
		c.S3Region,
		c.BattleLessonPolicy,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
