package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int32(0), cfg.Business.CurrencyScale)
	assert.Equal(t, 2, cfg.Business.MinInstallments)
	assert.Equal(t, 60, cfg.Business.MaxInstallments)
	assert.Equal(t, 3, cfg.Business.MaxConflictRetries)
	assert.Equal(t, time.Minute, cfg.GetReportCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.GetHealthTimeout())
	assert.Equal(t, "America/Bogota", cfg.Location().String())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file:layaway.db")
	t.Setenv("BUSINESS_CURRENCY_SCALE", "2")
	t.Setenv("BUSINESS_MAX_CONFLICT_RETRIES", "5")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:layaway.db", cfg.DSN())
	assert.Equal(t, int32(2), cfg.Business.CurrencyScale)
	assert.Equal(t, 5, cfg.Business.MaxConflictRetries)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.True(t, cfg.IsProduction())
}

func TestDSN_FromParts(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		Name:     "layaway",
		User:     "pos",
		Password: "s3cret",
		SSLMode:  "disable",
	}}

	assert.Equal(t, "postgres://pos:s3cret@db:5432/layaway?sslmode=disable", cfg.DSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "DATABASE_DRIVER"},
		{name: "sqlite needs url", mutate: func(c *Config) { c.Database.Driver = "sqlite3" }, wantErr: "DATABASE_URL"},
		{name: "scale too large", mutate: func(c *Config) { c.Business.CurrencyScale = 9 }, wantErr: "BUSINESS_CURRENCY_SCALE"},
		{name: "min above max", mutate: func(c *Config) { c.Business.MinInstallments = 30; c.Business.MaxInstallments = 10 }, wantErr: "installment bounds"},
		{name: "max above 60", mutate: func(c *Config) { c.Business.MaxInstallments = 72 }, wantErr: "installment bounds"},
		{name: "no retries", mutate: func(c *Config) { c.Business.MaxConflictRetries = 0 }, wantErr: "BUSINESS_MAX_CONFLICT_RETRIES"},
		{name: "bad ttl", mutate: func(c *Config) { c.Business.ReportCacheTTL = "soon" }, wantErr: "REPORT_CACHE_TTL"},
		{name: "bad zone", mutate: func(c *Config) { c.Business.Timezone = "Mars/Olympus" }, wantErr: "BUSINESS_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.ValidateAuth())

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateAuth())
}

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Database:  DatabaseConfig{Driver: "postgres", ConnMaxLifetime: "30m"},
		Scheduler: SchedulerConfig{Timezone: "UTC"},
		Business: BusinessConfig{
			MinInstallments:    2,
			MaxInstallments:    60,
			MaxConflictRetries: 3,
			ReportCacheTTL:     "1m",
			Timezone:           "UTC",
			ListLimit:          100,
		},
		Health: HealthConfig{Timeout: "5s"},
	}
}
