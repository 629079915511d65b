package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents application configuration. Values come from defaults,
// then an optional YAML file named by CONFIG_FILE, then the environment.
type Config struct {
	AppEnv             string        `yaml:"app_env"`
	Port               string        `yaml:"port"`
	DataDir            string        `yaml:"data_dir"`
	EnableBackups      bool          `yaml:"enable_backups"`
	MaxBackups         int           `yaml:"max_backups"`
	GeminiModel        string        `yaml:"gemini_model"`
	GeminiBaseURL      string        `yaml:"gemini_base_url"`
	GenerationScale    float64       `yaml:"generation_step_scale"`
	JobTimeout         time.Duration `yaml:"-"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RateLimitPerMin    int           `yaml:"rate_limit_per_minute"`
	MaxUploadMB        int           `yaml:"max_upload_mb"`
	HTTPReadTimeout    time.Duration `yaml:"-"`
	HTTPWriteTimeout   time.Duration `yaml:"-"`
	HTTPIdleTimeout    time.Duration `yaml:"-"`

	// Seconds as read from the YAML file.
	JobTimeoutSeconds       int `yaml:"job_timeout_seconds"`
	HTTPReadTimeoutSeconds  int `yaml:"http_read_timeout_seconds"`
	HTTPWriteTimeoutSeconds int `yaml:"http_write_timeout_seconds"`
	HTTPIdleTimeoutSeconds  int `yaml:"http_idle_timeout_seconds"`
}

func defaultConfig() Config {
	return Config{
		AppEnv:                  "development",
		Port:                    "8080",
		DataDir:                 "data",
		EnableBackups:           true,
		MaxBackups:              5,
		GeminiModel:             "gemini-1.5-flash",
		GeminiBaseURL:           "https://generativelanguage.googleapis.com/v1beta",
		GenerationScale:         1,
		CORSAllowedOrigins:      []string{"http://localhost:5173", "http://localhost:3000"},
		RateLimitPerMin:         120,
		MaxUploadMB:             10,
		HTTPReadTimeoutSeconds:  15,
		HTTPWriteTimeoutSeconds: 30,
		HTTPIdleTimeoutSeconds:  60,
	}
}

// LoadConfig loads configuration and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.EnableBackups = getEnvBool("ENABLE_BACKUPS", cfg.EnableBackups)
	cfg.MaxBackups = getEnvInt("MAX_BACKUPS", cfg.MaxBackups)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = getEnv("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GenerationScale = getEnvFloat("GENERATION_STEP_SCALE", cfg.GenerationScale)
	cfg.JobTimeoutSeconds = getEnvInt("JOB_TIMEOUT_SECONDS", cfg.JobTimeoutSeconds)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMin)
	cfg.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.HTTPReadTimeoutSeconds = getEnvInt("HTTP_READ_TIMEOUT_SECONDS", cfg.HTTPReadTimeoutSeconds)
	cfg.HTTPWriteTimeoutSeconds = getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", cfg.HTTPWriteTimeoutSeconds)
	cfg.HTTPIdleTimeoutSeconds = getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", cfg.HTTPIdleTimeoutSeconds)

	cfg.JobTimeout = time.Second * time.Duration(cfg.JobTimeoutSeconds)
	cfg.HTTPReadTimeout = time.Second * time.Duration(cfg.HTTPReadTimeoutSeconds)
	cfg.HTTPWriteTimeout = time.Second * time.Duration(cfg.HTTPWriteTimeoutSeconds)
	cfg.HTTPIdleTimeout = time.Second * time.Duration(cfg.HTTPIdleTimeoutSeconds)

	if cfg.MaxBackups < 1 {
		return nil, fmt.Errorf("MAX_BACKUPS must be at least 1")
	}
	if cfg.GenerationScale < 0 {
		return nil, fmt.Errorf("GENERATION_STEP_SCALE must not be negative")
	}
	if cfg.JobTimeout < 0 {
		return nil, fmt.Errorf("JOB_TIMEOUT_SECONDS must not be negative")
	}

	return &cfg, nil
}

// LoadDotEnv loads each dotenv file that exists. Variables already set in
// the environment are left alone.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
