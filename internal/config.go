package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	OAuth         OAuthConfig         `mapstructure:"oauth"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// OAuthConfig holds provider credentials for refreshing stored connection
// tokens. RefreshSkew is the safety margin subtracted from a token's expiry
// when deciding staleness.
type OAuthConfig struct {
	RefreshSkew time.Duration       `mapstructure:"refresh_skew"`
	HTTPTimeout time.Duration       `mapstructure:"http_timeout"`
	Xero        OAuthProviderConfig `mapstructure:"xero"`
	QuickBooks  OAuthProviderConfig `mapstructure:"quickbooks"`
}

type OAuthProviderConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
}

// AnalysisConfig configures the analysis engine client and the background
// executor pool.
type AnalysisConfig struct {
	EngineURL      string        `mapstructure:"engine_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
	MaxJobDuration time.Duration `mapstructure:"max_job_duration"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	JobQueueSize   int           `mapstructure:"job_queue_size"`
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config from environment variables for container
// deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("SECURITY_ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("SECURITY_REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("SECURITY_ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("SECURITY_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("SECURITY_BCRYPT_COST", 12),
		},
		OAuth: OAuthConfig{
			RefreshSkew: getEnvAsDuration("OAUTH_REFRESH_SKEW", 60*time.Second),
			HTTPTimeout: getEnvAsDuration("OAUTH_HTTP_TIMEOUT", 10*time.Second),
			Xero: OAuthProviderConfig{
				ClientID:     getEnv("OAUTH_XERO_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH_XERO_CLIENT_SECRET", ""),
				TokenURL:     getEnv("OAUTH_XERO_TOKEN_URL", "https://identity.xero.com/connect/token"),
			},
			QuickBooks: OAuthProviderConfig{
				ClientID:     getEnv("OAUTH_QUICKBOOKS_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH_QUICKBOOKS_CLIENT_SECRET", ""),
				TokenURL:     getEnv("OAUTH_QUICKBOOKS_TOKEN_URL", "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"),
			},
		},
		Analysis: AnalysisConfig{
			EngineURL:      getEnv("ANALYSIS_ENGINE_URL", ""),
			APIKey:         getEnv("ANALYSIS_API_KEY", ""),
			RunTimeout:     getEnvAsDuration("ANALYSIS_RUN_TIMEOUT", 10*time.Minute),
			MaxJobDuration: getEnvAsDuration("ANALYSIS_MAX_JOB_DURATION", 30*time.Minute),
			ReapInterval:   getEnvAsDuration("ANALYSIS_REAP_INTERVAL", time.Minute),
			MaxWorkers:     getEnvAsInt("ANALYSIS_MAX_WORKERS", 4),
			JobQueueSize:   getEnvAsInt("ANALYSIS_JOB_QUEUE_SIZE", 100),
			WorkerPoolSize: getEnvAsInt("ANALYSIS_WORKER_POOL_SIZE", 4),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("OBSERVABILITY_LOGGING_LEVEL", "info"),
				Format: getEnv("OBSERVABILITY_LOGGING_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.OAuth.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("oauth config: %v", err))
	}

	if err := c.Analysis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("analysis config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	return nil
}

func (c *OAuthConfig) Validate() error {
	if c.RefreshSkew < 0 {
		return errors.New("refresh_skew cannot be negative")
	}
	for name, p := range map[string]OAuthProviderConfig{"xero": c.Xero, "quickbooks": c.QuickBooks} {
		if p.TokenURL == "" {
			continue
		}
		if _, err := url.Parse(p.TokenURL); err != nil {
			return fmt.Errorf("invalid %s token_url: %w", name, err)
		}
	}
	return nil
}

func (c *AnalysisConfig) Validate() error {
	if c.EngineURL == "" {
		return errors.New("engine_url is required")
	}
	if c.MaxJobDuration > 0 && c.RunTimeout > c.MaxJobDuration {
		return errors.New("run_timeout cannot exceed max_job_duration")
	}
	return nil
}
