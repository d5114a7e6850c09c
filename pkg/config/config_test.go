package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("fleetbill")
	require.NoError(t, err)

	assert.Equal(t, "fleetbill", cfg.ServiceName)
	assert.Equal(t, "fleetbill", cfg.DB.DBName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, 10, cfg.Sequence.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	t.Setenv("SEQUENCE_MAX_ATTEMPTS", "0")

	cfg, err := Load("fleetbill")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 7, cfg.DB.MaxOpenConns)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 1, cfg.Sequence.MaxAttempts)
	assert.Contains(t, cfg.DB.GetDSN(), "host=db.internal")
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "defaultsecretkey")

	_, err := Load("fleetbill")
	assert.Error(t, err)
}
