package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read once at startup and passed explicitly to whoever needs it.
// Precedence: environment > YAML file (CONFIG_FILE) > defaults.
type Config struct {
	Port string `yaml:"port"`

	GeminiAPIKey         string `yaml:"gemini_api_key"`
	GeminiModel          string `yaml:"gemini_model"`
	GeminiBaseURL        string `yaml:"gemini_base_url"`
	GeminiResponseSchema bool   `yaml:"gemini_response_schema"`
	PromptDir            string `yaml:"prompt_dir"`

	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryUnit        time.Duration `yaml:"retry_unit"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	ImageMaxSide   int   `yaml:"image_max_side"`
	JPEGQuality    int   `yaml:"jpeg_quality"`
	ImageMaxPixels int   `yaml:"image_max_pixels"`

	CORSOrigins []string `yaml:"cors_origins"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`
	BotRatePerMin    int    `yaml:"bot_rate_per_min"`
}

func Default() *Config {
	return &Config{
		Port:                 "8000",
		GeminiModel:          "gemini-2.5-flash",
		GeminiBaseURL:        "https://generativelanguage.googleapis.com/v1beta",
		GeminiResponseSchema: true,
		RetryMaxAttempts:     5,
		RetryUnit:            time.Second,
		RequestTimeout:       120 * time.Second,
		MaxUploadBytes:       10 << 20,
		ImageMaxSide:         2048,
		JPEGQuality:          90,
		ImageMaxPixels:       40_000_000,
		CORSOrigins:          []string{"*"},
		BotRatePerMin:        30,
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", k, v, err)
		return def
	}
	return n
}

func getEnvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", k, v, err)
		return def
	}
	return b
}

// LoadFile applies a YAML file on top of cfg. Keys absent from the file keep their values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Load never fails on a missing API key: requests report it instead.
func Load() *Config {
	cfg := Default()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)

	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = getEnv("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiResponseSchema = getEnvBool("GEMINI_RESPONSE_SCHEMA", cfg.GeminiResponseSchema)
	cfg.PromptDir = getEnv("PROMPT_DIR", cfg.PromptDir)

	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	if ms := getEnvInt("RETRY_UNIT_MS", -1); ms >= 0 {
		cfg.RetryUnit = time.Duration(ms) * time.Millisecond
	}
	if sec := getEnvInt("REQUEST_TIMEOUT_SEC", 0); sec > 0 {
		cfg.RequestTimeout = time.Duration(sec) * time.Second
	}

	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.ImageMaxSide = getEnvInt("IMAGE_MAX_SIDE", cfg.ImageMaxSide)
	cfg.JPEGQuality = getEnvInt("JPEG_QUALITY", cfg.JPEGQuality)
	cfg.ImageMaxPixels = getEnvInt("IMAGE_MAX_PIXELS", cfg.ImageMaxPixels)

	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.BotRatePerMin = getEnvInt("BOT_RATE_PER_MIN", cfg.BotRatePerMin)
}
