package service_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/config"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/service"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/worker"
)

// setupTestDB creates a new in-memory SQLite database for testing. A single
// connection keeps concurrent test writers serialized the way a real
// Postgres pool would be.
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

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret",
		JWTIssuer:             "rising-bsm",
		JWTAudience:           "rising-bsm-api",
		AccessTokenExpiration: 900,
		RefreshTokenTTLDays:   7,
		RotationEnabled:       true,
		ResetTokenTTLHours:    24,
	}
}

// seedUser inserts a user with the given password. MinCost keeps the tests
// fast.
func seedUser(t *testing.T, db *gorm.DB, email, password, role, status string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: string(hash),
		Role:     role,
		Status:   status,
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

type testEnv struct {
	db           *gorm.DB
	userRepo     repository.UserRepository
	tokenRepo    repository.RefreshTokenRepository
	activityRepo repository.ActivityLogRepository
	tokens       service.TokenService
	rotation     service.RotationService
	auth         service.AuthService
	cfg          *config.Config
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}

	db := setupTestDB(t)
	log := newTestLogger()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	tokens := service.NewTokenService(cfg)
	rotation := service.NewRotationService(tokenRepo, userRepo, tokens, cfg.RotationEnabled, log)

	pool := worker.NewPool(log)
	t.Cleanup(func() { pool.Shutdown(2 * time.Second) })

	auth := service.NewAuthService(userRepo, tokenRepo, activityRepo, rotation, tokens, pool, cfg, log)

	return &testEnv{
		db:           db,
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		activityRepo: activityRepo,
		tokens:       tokens,
		rotation:     rotation,
		auth:         auth,
		cfg:          cfg,
	}
}

// activeTokenCount counts non-revoked, non-expired tokens for a user
func activeTokenCount(t *testing.T, env *testEnv, userID uint) int {
	t.Helper()

	tokens, err := env.tokenRepo.FindByUserID(t.Context(), userID, true)
	require.NoError(t, err)
	return len(tokens)
}
