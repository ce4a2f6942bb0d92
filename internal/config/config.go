package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=central_chamadas port=5432 sslmode=disable"

type Config struct {
	HTTPPort        string `mapstructure:"HTTP_PORT"`
	DatabaseDSN     string `mapstructure:"DATABASE_DSN"`
	DBMaxOpenConns  int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns  int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	JWTTTLHours     int    `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MediaPath       string `mapstructure:"MEDIA_PATH"`  // avatares
	StaticPath      string `mapstructure:"STATIC_PATH"` // imagens usadas nos PDFs
	CNESBaseURL     string `mapstructure:"CNES_BASE_URL"`
	CNESTimeoutSecs int    `mapstructure:"CNES_TIMEOUT_SECONDS"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	CNESCacheTTLMin int    `mapstructure:"CNES_CACHE_TTL_MINUTES"`
	SentryDSN       string `mapstructure:"SENTRY_DSN"`
	AppEnv          string `mapstructure:"APP_ENV"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogFormat       string `mapstructure:"LOG_FORMAT"`
	Timezone        string `mapstructure:"TIMEZONE"`
	LoginRateLimit  int    `mapstructure:"LOGIN_RATE_LIMIT"`

	// Warnings são registrados pelo chamador depois que o logger existe.
	Warnings []string `mapstructure:"-"`
}

var keys = []string{
	"HTTP_PORT", "DATABASE_DSN", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"JWT_SECRET", "JWT_TTL_HOURS", "CORS_ALLOWED_ORIGINS", "MEDIA_PATH", "STATIC_PATH",
	"CNES_BASE_URL", "CNES_TIMEOUT_SECONDS", "REDIS_URL", "CNES_CACHE_TTL_MINUTES",
	"SENTRY_DSN", "APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "LOGIN_RATE_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("MEDIA_PATH", "./media")
	v.SetDefault("STATIC_PATH", "./static")
	v.SetDefault("CNES_BASE_URL", "https://apidadosabertos.saude.gov.br")
	v.SetDefault("CNES_TIMEOUT_SECONDS", 10)
	v.SetDefault("CNES_CACHE_TTL_MINUTES", 60)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TIMEZONE", "America/Campo_Grande")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN usando valor padrão, defina a conexão Postgres de produção")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS usando valor padrão, defina o domínio de produção")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET não definido")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET deve ter pelo menos 32 caracteres")
	}
	if c.CNESTimeoutSecs <= 0 {
		return fmt.Errorf("CNES_TIMEOUT_SECONDS deve ser positivo")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE inválido %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location fuso usado para limites de dia/mês e datas dos relatórios.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CNESTimeout() time.Duration {
	return time.Duration(c.CNESTimeoutSecs) * time.Second
}

func (c *Config) CNESCacheTTL() time.Duration {
	return time.Duration(c.CNESCacheTTLMin) * time.Minute
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}
