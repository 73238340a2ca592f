package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
)

// RefreshTokenRepository is the token store. It is the sole owner of
// refresh-token rows; no token state is cached outside of it.
//
// FindByToken returns revoked and expired rows as well; the rotation engine
// needs them to tell a replay from a plain miss.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	FindByUserID(ctx context.Context, userID uint, activeOnly bool) ([]models.RefreshToken, error)
	// ConditionalRevoke marks the row revoked iff it is not revoked already.
	// Exactly one of any number of concurrent callers gets true.
	ConditionalRevoke(ctx context.Context, token, ip, reason string) (bool, error)
	SetReplacedBy(ctx context.Context, oldToken, newToken string) error
	RevokeAllUserTokens(ctx context.Context, userID uint, ip, reason string) (int64, error)
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *refreshTokenRepository) FindByUserID(ctx context.Context, userID uint, activeOnly bool) ([]models.RefreshToken, error) {
	var tokens []models.RefreshToken
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_revoked = ? AND expires_at > ?", false, time.Now())
	}
	if err := query.Order("created_at").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *refreshTokenRepository) ConditionalRevoke(ctx context.Context, token, ip, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(map[string]interface{}{
			"is_revoked":     true,
			"revoked_at":     time.Now(),
			"revoked_by_ip":  ip,
			"revoked_reason": reason,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *refreshTokenRepository) SetReplacedBy(ctx context.Context, oldToken, newToken string) error {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", oldToken).
		Update("replaced_by_token", newToken)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllUserTokens(ctx context.Context, userID uint, ip, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Updates(map[string]interface{}{
			"is_revoked":     true,
			"revoked_at":     time.Now(),
			"revoked_by_ip":  ip,
			"revoked_reason": reason,
		})

	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{})

	return result.RowsAffected, result.Error
}

// Repository errors
var (
	ErrTokenNotFound = errors.New("token not found")
)
