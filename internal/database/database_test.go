package database

import (
	"testing"

	"riteswipe-api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range models.All() {
		require.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	require.Equal(t, "sqlite", DriverName(db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	require.Error(t, err)
}
