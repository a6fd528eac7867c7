package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Env  string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	DBURL string `mapstructure:"DB_URL"`

	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`

	LockRetries    int           `mapstructure:"LOCK_RETRIES"`
	LockRetryDelay time.Duration `mapstructure:"LOCK_RETRY_DELAY"`
	LockTTL        time.Duration `mapstructure:"LOCK_TTL"`
	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`

	SymmetricKey string `mapstructure:"SYMMETRIC_KEY"`

	VocabularyPath string `mapstructure:"VOCABULARY_PATH"`
	ModelPath      string `mapstructure:"MODEL_PATH"`

	GroqAPIKey string `mapstructure:"GROQ_API_KEY"`
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`

	OCRLanguage     string  `mapstructure:"OCR_LANGUAGE"`
	OCRDPI          float64 `mapstructure:"OCR_DPI"`
	OCRMaxPageWidth uint    `mapstructure:"OCR_MAX_PAGE_WIDTH"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

var defaults = map[string]interface{}{
	"ENV":                  "production",
	"PORT":                 "8930",
	"REDIS_POOL_SIZE":      10,
	"REDIS_MIN_IDLE_CONNS": 5,
	"REDIS_DIAL_TIMEOUT":   "30s",
	"REDIS_READ_TIMEOUT":   "10s",
	"REDIS_MAX_RETRIES":    3,
	"LOCK_RETRIES":         3,
	"LOCK_RETRY_DELAY":     "2s",
	"LOCK_TTL":             "10s",
	"CACHE_TTL":            "168h",
	"VOCABULARY_PATH":      "artifacts/symptom_vocabulary.json",
	"MODEL_PATH":           "artifacts/disease_model.json",
	"LLM_BASE_URL":         "https://api.groq.com/openai/v1",
	"LLM_MODEL":            "llama3-8b-8192",
	"OCR_LANGUAGE":         "eng",
	"OCR_DPI":              200,
	"OCR_MAX_PAGE_WIDTH":   2000,
	"MINIO_BUCKET":         "medical-documents",
	"SMTP_PORT":            587,
	"RATE_LIMIT_RPS":       15,
	"RATE_LIMIT_BURST":     30,
	"CORS_ORIGINS":         "http://localhost:3000",
}

// keys without a default still need binding so Unmarshal sees them.
var unboundKeys = []string{
	"DB_URL", "REDIS_URL", "SYMMETRIC_KEY", "GROQ_API_KEY",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL",
	"SMTP_HOST", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
}

// Load reads .env (when present) and the process environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range unboundKeys {
		_ = v.BindEnv(key)
	}
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	if cfg.DBURL == "" {
		return nil, errors.New("missing DB_URL environment variable")
	}

	log.WithField("env", cfg.Env).Info("config parsed")
	return cfg, nil
}

// IsDevelopment reports whether verbose logging should be enabled.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// ValidateTokenKey checks the PASETO symmetric key length.
func (c *AppConfig) ValidateTokenKey() error {
	if len(c.SymmetricKey) != 32 {
		return errors.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(c.SymmetricKey))
	}
	return nil
}

func (c *AppConfig) MinIOEnabled() bool {
	return c.MinIOEndpoint != ""
}

func (c *AppConfig) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// ConfigureLogging sets the logrus level and formatter for the environment.
func (c *AppConfig) ConfigureLogging() {
	if c.IsDevelopment() {
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return
	}
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.JSONFormatter{})
}
