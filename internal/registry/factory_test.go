package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerfactor/factorctl/pkg/config"
)

func TestNewGormDB_SQLite(t *testing.T) {
	db, err := NewGormDB(&config.DatabaseConfig{Type: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)

	// AutoMigrate should have created the registry tables.
	assert.True(t, db.Migrator().HasTable(&FactorDefinition{}))
	assert.True(t, db.Migrator().HasTable(&ReplayRun{}))
}

func TestNewGormDB_UnsupportedType(t *testing.T) {
	_, err := NewGormDB(&config.DatabaseConfig{Type: "mongodb"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestNewRegistry(t *testing.T) {
	db, err := NewGormDB(&config.DatabaseConfig{Type: "sqlite", Database: ":memory:"})
	require.NoError(t, err)

	reg := NewRegistry(db)
	require.NotNil(t, reg)
	assert.NotNil(t, reg.Factors)
	assert.NotNil(t, reg.Runs)

	assert.NoError(t, reg.HealthCheck(context.Background()))
	assert.NotNil(t, reg.DB())
	assert.Equal(t, db, reg.GormDB())
	assert.NoError(t, reg.Close())
}
