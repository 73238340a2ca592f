package repository_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.ActivityLog{})
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: "irrelevant",
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedToken(t *testing.T, repo repository.RefreshTokenRepository, userID uint, token string, ttl time.Duration) *models.RefreshToken {
	t.Helper()

	row := &models.RefreshToken{
		Token:       token,
		UserID:      userID,
		ExpiresAt:   time.Now().Add(ttl),
		CreatedByIP: "10.0.0.1",
	}
	require.NoError(t, repo.Create(t.Context(), row))
	return row
}

func TestRefreshTokenRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "find@example.com")

	seedToken(t, repo, user.ID, "token-a", time.Hour)

	found, err := repo.FindByToken(t.Context(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.False(t, found.IsRevoked)

	_, err = repo.FindByToken(t.Context(), "no-such-token")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestRefreshTokenRepository_Create_DuplicateToken(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "dup@example.com")

	seedToken(t, repo, user.ID, "token-dup", time.Hour)

	err := repo.Create(t.Context(), &models.RefreshToken{
		Token:     "token-dup",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.Error(t, err, "token column carries a unique index")
}

func TestRefreshTokenRepository_FindByToken_ReturnsDeadRows(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "dead@example.com")

	seedToken(t, repo, user.ID, "token-revoked", time.Hour)
	seedToken(t, repo, user.ID, "token-expired", -time.Hour)

	ok, err := repo.ConditionalRevoke(t.Context(), "token-revoked", "10.0.0.1", models.RevokedReasonLogout)
	require.NoError(t, err)
	require.True(t, ok)

	// Revoked and expired rows stay visible; replay detection needs them
	found, err := repo.FindByToken(t.Context(), "token-revoked")
	require.NoError(t, err)
	assert.True(t, found.IsRevoked)

	found, err = repo.FindByToken(t.Context(), "token-expired")
	require.NoError(t, err)
	assert.True(t, found.IsExpired(time.Now()))
}

func TestRefreshTokenRepository_FindByUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "list@example.com")
	other := seedUser(t, db, "other@example.com")

	seedToken(t, repo, user.ID, "token-active-1", time.Hour)
	seedToken(t, repo, user.ID, "token-active-2", time.Hour)
	seedToken(t, repo, user.ID, "token-expired", -time.Hour)
	seedToken(t, repo, user.ID, "token-revoked", time.Hour)
	seedToken(t, repo, other.ID, "token-other", time.Hour)

	ok, err := repo.ConditionalRevoke(t.Context(), "token-revoked", "10.0.0.1", models.RevokedReasonLogout)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := repo.FindByUserID(t.Context(), user.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := repo.FindByUserID(t.Context(), user.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, token := range active {
		assert.True(t, token.IsActive(time.Now()))
	}
}

func TestRefreshTokenRepository_ConditionalRevoke(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "revoke@example.com")

	seedToken(t, repo, user.ID, "token-a", time.Hour)

	ok, err := repo.ConditionalRevoke(t.Context(), "token-a", "10.0.0.2", models.RevokedReasonRotated)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindByToken(t.Context(), "token-a")
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
	require.NotNil(t, stored.RevokedAt)
	assert.Equal(t, "10.0.0.2", stored.RevokedByIP)
	assert.Equal(t, models.RevokedReasonRotated, stored.RevokedReason)

	// Already revoked: false, and the original revocation stamp survives
	ok, err = repo.ConditionalRevoke(t.Context(), "token-a", "203.0.113.7", models.RevokedReasonLogout)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err = repo.FindByToken(t.Context(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", stored.RevokedByIP)
	assert.Equal(t, models.RevokedReasonRotated, stored.RevokedReason)

	// Unknown token: false, no error
	ok, err = repo.ConditionalRevoke(t.Context(), "no-such-token", "10.0.0.1", models.RevokedReasonLogout)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshTokenRepository_ConditionalRevoke_SingleWinner(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "race@example.com")

	seedToken(t, repo, user.ID, "token-contested", time.Hour)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)

	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.ConditionalRevoke(t.Context(), "token-contested", "10.0.0.1", models.RevokedReasonRotated)
			require.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "the conditional update admits exactly one winner")
}

func TestRefreshTokenRepository_SetReplacedBy(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "chain@example.com")

	seedToken(t, repo, user.ID, "token-old", time.Hour)
	seedToken(t, repo, user.ID, "token-new", time.Hour)

	require.NoError(t, repo.SetReplacedBy(t.Context(), "token-old", "token-new"))

	stored, err := repo.FindByToken(t.Context(), "token-old")
	require.NoError(t, err)
	assert.Equal(t, "token-new", stored.ReplacedByToken)

	err = repo.SetReplacedBy(t.Context(), "no-such-token", "token-new")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestRefreshTokenRepository_RevokeAllUserTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "all@example.com")
	other := seedUser(t, db, "bystander@example.com")

	seedToken(t, repo, user.ID, "token-1", time.Hour)
	seedToken(t, repo, user.ID, "token-2", time.Hour)
	seedToken(t, repo, user.ID, "token-expired", -time.Hour)
	seedToken(t, repo, other.ID, "token-other", time.Hour)

	count, err := repo.RevokeAllUserTokens(t.Context(), user.ID, "10.0.0.1", models.RevokedReasonReplayDetected)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Expired rows are skipped so their original state is preserved
	stored, err := repo.FindByToken(t.Context(), "token-expired")
	require.NoError(t, err)
	assert.False(t, stored.IsRevoked)

	stored, err = repo.FindByToken(t.Context(), "token-other")
	require.NoError(t, err)
	assert.False(t, stored.IsRevoked)
}

func TestRefreshTokenRepository_DeleteExpiredTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	user := seedUser(t, db, "sweep@example.com")

	seedToken(t, repo, user.ID, "token-expired-1", -time.Hour)
	seedToken(t, repo, user.ID, "token-expired-2", -time.Minute)
	seedToken(t, repo, user.ID, "token-expired-3", -24*time.Hour)
	seedToken(t, repo, user.ID, "token-active-1", time.Hour)
	seedToken(t, repo, user.ID, "token-active-2", 24*time.Hour)

	count, err := repo.DeleteExpiredTokens(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = repo.FindByToken(t.Context(), "token-expired-1")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	remaining, err := repo.FindByUserID(t.Context(), user.ID, false)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	// Second sweep finds nothing
	count, err = repo.DeleteExpiredTokens(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
