package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/logger"
)

func TestConnect_SQLiteWithMigrations(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:          "sqlite3",
		URL:             "file::memory:?cache=shared",
		ConnMaxLifetime: "0s",
		AutoMigrate:     true,
	}}

	db, err := Connect(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Subset(t, tables, []string{"customers", "products", "installment_plans", "installment_plan_items", "installment_payments"})
}

func TestConnect_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "oracle", URL: "oracle://nowhere"}}

	_, err := Connect(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
