package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/spf13/viper"
)

const (
	DriverOracle   = "oracle"
	DriverGodror   = "godror"
	DriverPostgres = "postgres"
)

type Config struct {
	Env         string
	DB          DBConfig
	Server      ServerConfig
	Redis       RedisConfig
	LLM         LLMConfig
	Logger      LoggerConfig
	JWT         JWTConfig
	GoogleOAuth GoogleOAuthConfig
	Quiz        QuizConfig
}

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	AllowOrigins string
}

type RedisConfig struct {
	Address        string `yaml:"address"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	TranslationTTL time.Duration
}

// LLMConfig selects and tunes the completion provider.
// Provider is one of "ollama", "openai" or "openai-compatible".
type LLMConfig struct {
	Provider          string
	ServerURL         string
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type LoggerConfig struct {
	Env   string
	Level string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type QuizConfig struct {
	DefaultFrequency      int
	DefaultNativeLanguage string
	Thresholds            StageThresholds
	Intervals             IntervalDays
	Retry                 RetryConfig
}

type StageThresholds struct {
	Basic        int
	Intermediate int
	Advanced     int
}

type IntervalDays struct {
	BasicCorrect          int
	BasicIncorrect        int
	IntermediateCorrect   int
	IntermediateIncorrect int
	AdvancedFirstCorrect  int
	AdvancedRepeatCorrect int
	AdvancedIncorrect     int
}

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("db.driver", DriverOracle)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 1521)
	v.SetDefault("db.name", "FREEPDB1")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "20s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allow_origins", "*")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.translation_ttl", "168h")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.server_url", "http://localhost:11434")
	v.SetDefault("llm.model", "qwen3:4b")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "20s")
	v.SetDefault("llm.requests_per_second", 5.0)
	v.SetDefault("llm.burst", 10)

	v.SetDefault("logger.level", "info")

	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "720h")

	v.SetDefault("quiz.default_frequency", 5)
	v.SetDefault("quiz.default_native_language", "en")
	v.SetDefault("quiz.thresholds.basic", 2)
	v.SetDefault("quiz.thresholds.intermediate", 2)
	v.SetDefault("quiz.thresholds.advanced", 3)
	v.SetDefault("quiz.intervals.basic_correct", 1)
	v.SetDefault("quiz.intervals.basic_incorrect", 0)
	v.SetDefault("quiz.intervals.intermediate_correct", 3)
	v.SetDefault("quiz.intervals.intermediate_incorrect", 1)
	v.SetDefault("quiz.intervals.advanced_first_correct", 7)
	v.SetDefault("quiz.intervals.advanced_repeat_correct", 14)
	v.SetDefault("quiz.intervals.advanced_incorrect", 3)
	v.SetDefault("quiz.retry.max_attempts", 3)
	v.SetDefault("quiz.retry.initial_delay", "1s")
	v.SetDefault("quiz.retry.max_delay", "10s")
}

// LoadConfig reads config.yaml (optional), .env (optional) and the environment.
// Environment keys use "_" in place of "." (DB_HOST overrides db.host).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	cfg := fromViper(v)

	// Conventional names used by provider SDKs and docker images.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.SecretKey = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	env := v.GetString("env")
	return &Config{
		Env: env,
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("db.driver")),
			Host:            v.GetString("db.host"),
			Port:            v.GetInt("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
			AllowOrigins: v.GetString("server.allow_origins"),
		},
		Redis: RedisConfig{
			Address:        v.GetString("redis.address"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			TranslationTTL: v.GetDuration("redis.translation_ttl"),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(v.GetString("llm.provider")),
			ServerURL:         v.GetString("llm.server_url"),
			BaseURL:           v.GetString("llm.base_url"),
			APIKey:            v.GetString("llm.api_key"),
			Model:             v.GetString("llm.model"),
			Temperature:       v.GetFloat64("llm.temperature"),
			Timeout:           v.GetDuration("llm.timeout"),
			RequestsPerSecond: v.GetFloat64("llm.requests_per_second"),
			Burst:             v.GetInt("llm.burst"),
		},
		Logger: LoggerConfig{
			Env:   env,
			Level: v.GetString("logger.level"),
		},
		JWT: JWTConfig{
			SecretKey:       v.GetString("jwt.secret_key"),
			AccessTokenTTL:  v.GetDuration("jwt.access_token_ttl"),
			RefreshTokenTTL: v.GetDuration("jwt.refresh_token_ttl"),
		},
		GoogleOAuth: GoogleOAuthConfig{
			ClientID:     v.GetString("google_oauth.client_id"),
			ClientSecret: v.GetString("google_oauth.client_secret"),
			RedirectURL:  v.GetString("google_oauth.redirect_url"),
		},
		Quiz: QuizConfig{
			DefaultFrequency:      v.GetInt("quiz.default_frequency"),
			DefaultNativeLanguage: v.GetString("quiz.default_native_language"),
			Thresholds: StageThresholds{
				Basic:        v.GetInt("quiz.thresholds.basic"),
				Intermediate: v.GetInt("quiz.thresholds.intermediate"),
				Advanced:     v.GetInt("quiz.thresholds.advanced"),
			},
			Intervals: IntervalDays{
				BasicCorrect:          v.GetInt("quiz.intervals.basic_correct"),
				BasicIncorrect:        v.GetInt("quiz.intervals.basic_incorrect"),
				IntermediateCorrect:   v.GetInt("quiz.intervals.intermediate_correct"),
				IntermediateIncorrect: v.GetInt("quiz.intervals.intermediate_incorrect"),
				AdvancedFirstCorrect:  v.GetInt("quiz.intervals.advanced_first_correct"),
				AdvancedRepeatCorrect: v.GetInt("quiz.intervals.advanced_repeat_correct"),
				AdvancedIncorrect:     v.GetInt("quiz.intervals.advanced_incorrect"),
			},
			Retry: RetryConfig{
				MaxAttempts:  v.GetInt("quiz.retry.max_attempts"),
				InitialDelay: v.GetDuration("quiz.retry.initial_delay"),
				MaxDelay:     v.GetDuration("quiz.retry.max_delay"),
			},
		},
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverOracle, DriverGodror, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	switch c.LLM.Provider {
	case "ollama", "openai", "openai-compatible":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.Quiz.Thresholds.Basic <= 0 || c.Quiz.Thresholds.Intermediate <= 0 || c.Quiz.Thresholds.Advanced <= 0 {
		return errors.New("quiz.thresholds must be positive")
	}
	if c.Quiz.Retry.MaxAttempts <= 0 {
		return errors.New("quiz.retry.max_attempts must be positive")
	}
	return nil
}

// GetDSN builds the connection string for the configured driver.
func (c *Config) GetDSN() string {
	switch c.DB.Driver {
	case DriverGodror:
		connectString := fmt.Sprintf("%s:%d/%s", c.DB.Host, c.DB.Port, c.DB.DBName)
		return fmt.Sprintf(`user="%s" password="%s" connectString="%s"`, c.DB.User, c.DB.Password, connectString)
	case DriverPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.DBName, c.DB.SSLMode)
	default:
		return go_ora.BuildUrl(c.DB.Host, c.DB.Port, c.DB.DBName, c.DB.User, c.DB.Password, nil)
	}
}

// MigrationDialect is the migrations sub-directory matching the driver.
func (c *Config) MigrationDialect() string {
	if c.DB.Driver == DriverPostgres {
		return DriverPostgres
	}
	return DriverOracle
}
