package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCredentialRepository(t *testing.T) *CredentialRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewCredentialRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestCredentialRepository_Lifecycle(t *testing.T) {
	repo := setupCredentialRepository(t)

	token, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, repo.Save("first"))
	token, err = repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	require.NoError(t, repo.Save("second"))
	token, err = repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	var count int64
	require.NoError(t, repo.db.Model(&StoredCredential{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Clear())
	token, err = repo.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, repo.Clear(), "clearing an empty store")
}
