package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
)

// RotationResult carries the outcome of a successful rotation
type RotationResult struct {
	AccessToken  string
	RefreshToken *models.RefreshToken
	User         *models.User
}

// RotationService is the refresh-token state machine: issuance, rotation,
// revocation and replay defense. A token moves from active to exactly one of
// rotated, revoked or expired; there is no way back.
//
// Presenting an already-revoked token is treated as theft: every active token
// of that user is revoked before the caller gets the same unauthorized answer
// an expired token would get.
type RotationService interface {
	IssueRefreshToken(ctx context.Context, userID uint, ttl time.Duration, ip string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, presentedToken, ip string) (*RotationResult, error)
	Revoke(ctx context.Context, token, ip, reason string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint, ip, reason string) (int64, error)
}

type rotationService struct {
	tokenRepo       repository.RefreshTokenRepository
	userRepo        repository.UserRepository
	tokenService    TokenService
	rotationEnabled bool
	logger          *slog.Logger
}

// NewRotationService creates a new rotation service instance
func NewRotationService(
	tokenRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	tokenService TokenService,
	rotationEnabled bool,
	logger *slog.Logger,
) RotationService {
	return &rotationService{
		tokenRepo:       tokenRepo,
		userRepo:        userRepo,
		tokenService:    tokenService,
		rotationEnabled: rotationEnabled,
		logger:          logger,
	}
}

// maxIssueAttempts bounds the collision retry on token creation. With 256
// bits of entropy a single retry is already astronomically unlikely.
const maxIssueAttempts = 3

func (s *rotationService) IssueRefreshToken(ctx context.Context, userID uint, ttl time.Duration, ip string) (*models.RefreshToken, error) {
	var lastErr error

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		opaque, err := generateOpaqueToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate refresh token: %w", err)
		}

		token := &models.RefreshToken{
			Token:       opaque,
			UserID:      userID,
			ExpiresAt:   time.Now().Add(ttl),
			CreatedByIP: ip,
		}

		err = s.tokenRepo.Create(ctx, token)
		if err == nil {
			return token, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}

		s.logger.Warn("⚠️ [Rotation] Refresh token collision, regenerating",
			"user_id", userID,
			"attempt", attempt+1,
		)
		lastErr = err
	}

	return nil, fmt.Errorf("failed to issue refresh token after %d attempts: %w", maxIssueAttempts, lastErr)
}

func (s *rotationService) Rotate(ctx context.Context, presentedToken, ip string) (*RotationResult, error) {
	stored, err := s.tokenRepo.FindByToken(ctx, presentedToken)
	if err != nil {
		return nil, err
	}

	// A revoked token coming back around means the legitimate session
	// already rotated past it (or logged out). Someone is replaying it;
	// burn every active session of that user.
	if stored.IsRevoked {
		return nil, s.handleReplay(ctx, stored, ip)
	}

	if stored.IsExpired(time.Now()) {
		// Expiry is not evidence of compromise, no cascade.
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	if !s.rotationEnabled {
		accessToken, err := s.tokenService.Issue(user)
		if err != nil {
			return nil, err
		}
		return &RotationResult{
			AccessToken:  accessToken,
			RefreshToken: stored,
			User:         user,
		}, nil
	}

	// The conditional revoke is the linearization point: of any number of
	// concurrent callers presenting this token, exactly one revokes it.
	won, err := s.tokenRepo.ConditionalRevoke(ctx, presentedToken, ip, models.RevokedReasonRotated)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race. The row is revoked now, so this is
		// indistinguishable from a replay; the cascade also kills the
		// winner's fresh chain, forcing a clean re-login.
		return nil, s.handleReplay(ctx, stored, ip)
	}

	// Preserve the chain's original lifetime so remember-me sessions keep
	// their longer window across rotations.
	chainTTL := stored.ExpiresAt.Sub(stored.CreatedAt)
	if chainTTL <= 0 {
		chainTTL = time.Until(stored.ExpiresAt)
	}

	newToken, err := s.IssueRefreshToken(ctx, stored.UserID, chainTTL, ip)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.SetReplacedBy(ctx, presentedToken, newToken.Token); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("🔄 [Rotation] Refresh token rotated",
		"user_id", stored.UserID,
		"old_token_prefix", tokenPrefix(presentedToken),
		"new_token_prefix", tokenPrefix(newToken.Token),
	)

	return &RotationResult{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		User:         user,
	}, nil
}

// handleReplay revokes every active token of the owning user and reports the
// presentation as a replay. The caller surfaces the same unauthorized error
// an expired token would produce.
func (s *rotationService) handleReplay(ctx context.Context, stored *models.RefreshToken, ip string) error {
	count, err := s.tokenRepo.RevokeAllUserTokens(ctx, stored.UserID, ip, models.RevokedReasonReplayDetected)
	if err != nil {
		s.logger.Error("❌ [Rotation] Replay cascade failed",
			"user_id", stored.UserID,
			"error", err,
		)
		return err
	}

	s.logger.Warn("🚨 [Rotation] Revoked token replayed, all user sessions revoked",
		"user_id", stored.UserID,
		"token_prefix", tokenPrefix(stored.Token),
		"revoked_count", count,
	)

	return ErrTokenReplayed
}

func (s *rotationService) Revoke(ctx context.Context, token, ip, reason string) (bool, error) {
	if _, err := s.tokenRepo.FindByToken(ctx, token); err != nil {
		return false, err
	}

	// Idempotent: a second revoke finds the row already revoked and
	// reports false without touching it.
	won, err := s.tokenRepo.ConditionalRevoke(ctx, token, ip, reason)
	if err != nil {
		return false, err
	}

	return won, nil
}

func (s *rotationService) RevokeAllForUser(ctx context.Context, userID uint, ip, reason string) (int64, error) {
	count, err := s.tokenRepo.RevokeAllUserTokens(ctx, userID, ip, reason)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info("🔒 [Rotation] Revoked all active sessions",
			"user_id", userID,
			"count", count,
			"reason", reason,
		)
	}

	return count, nil
}

// generateOpaqueToken returns a 256-bit random base64url string
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// tokenPrefix returns the first 8 characters for log correlation. Full
// tokens never reach the logs.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Rotation errors
var (
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenReplayed = errors.New("refresh token reuse detected")
)
