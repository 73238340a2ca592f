package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/config"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/worker"
)

// AuthService orchestrates the session lifecycle: login, refresh, logout,
// password reset and access-token verification
type AuthService interface {
	Login(ctx context.Context, email, password string, rememberMe bool, ip string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken, ip string) (*TokenPair, error)
	Logout(ctx context.Context, userID uint, refreshToken string, allDevices bool, ip string) (int64, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.User, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// auditTimeout bounds fire-and-forget audit writes
const auditTimeout = 5 * time.Second

// dummyPasswordHash is compared against when the email does not match any
// account, so the miss costs roughly the same as a real bcrypt check
// (anti-enumeration).
const dummyPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

type authService struct {
	userRepo     repository.UserRepository
	tokenRepo    repository.RefreshTokenRepository
	activityRepo repository.ActivityLogRepository
	rotation     RotationService
	tokens       TokenService
	pool         *worker.Pool
	cfg          *config.Config
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	activityRepo repository.ActivityLogRepository,
	rotation RotationService,
	tokens TokenService,
	pool *worker.Pool,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		activityRepo: activityRepo,
		rotation:     rotation,
		tokens:       tokens,
		pool:         pool,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *authService) Login(ctx context.Context, email, password string, rememberMe bool, ip string) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "email", email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparable amount of time so "no such user" and
			// "wrong password" are indistinguishable.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
			s.logger.Warn("⚠️ [AuthService] Login failed", "email", email)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error during login", "error", err)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Login failed", "email", email)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Warn("⚠️ [AuthService] Login rejected, account not active",
			"user_id", user.ID,
			"status", user.Status,
		)
		return nil, nil, ErrAccountInactive
	}

	ttl := time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour
	if rememberMe {
		ttl *= 2
	}

	refreshToken, err := s.rotation.IssueRefreshToken(ctx, user.ID, ttl, ip)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to issue refresh token", "user_id", user.ID, "error", err)
		return nil, nil, err
	}

	accessToken, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to issue access token", "user_id", user.ID, "error", err)
		return nil, nil, err
	}

	s.auditAsync(user.ID, models.ActivityLogin, "user logged in", ip, true)

	s.logger.Info("✅ [AuthService] User logged in", "user_id", user.ID)

	return user, &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    s.cfg.AccessTokenExpiration,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken, ip string) (*TokenPair, error) {
	result, err := s.rotation.Rotate(ctx, refreshToken, ip)
	if err != nil {
		// Replay, expiry, unknown token and inactive account all collapse
		// into the same unauthorized answer; only storage failures keep
		// their identity.
		if isRotationRejection(err) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("❌ [AuthService] Token refresh failed", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken.Token,
		ExpiresIn:    s.cfg.AccessTokenExpiration,
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID uint, refreshToken string, allDevices bool, ip string) (int64, error) {
	if refreshToken != "" && !allDevices {
		stored, err := s.rotationTokenOwnedBy(ctx, userID, refreshToken)
		if err != nil {
			return 0, err
		}

		revoked, err := s.rotation.Revoke(ctx, stored.Token, ip, models.RevokedReasonLogout)
		if err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) {
				return 0, ErrInvalidToken
			}
			return 0, err
		}

		s.auditAsync(userID, models.ActivityLogout, "user logged out", ip, false)
		s.logger.Info("👋 [AuthService] User logged out", "user_id", userID)

		if revoked {
			return 1, nil
		}
		return 0, nil
	}

	// No specific token (or all devices requested): revoke everything.
	count, err := s.rotation.RevokeAllForUser(ctx, userID, ip, models.RevokedReasonLogoutAll)
	if err != nil {
		return 0, err
	}

	s.auditAsync(userID, models.ActivityLogout, "user logged out everywhere", ip, false)
	s.logger.Info("👋 [AuthService] User logged out everywhere", "user_id", userID, "revoked", count)

	return count, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Succeed silently so the response does not reveal whether
			// the address is registered.
			s.logger.Debug("🔎 [AuthService] Password reset requested for unknown email")
			return nil
		}
		return err
	}

	resetToken, err := generateOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiry := time.Now().Add(time.Duration(s.cfg.ResetTokenTTLHours) * time.Hour)
	if err := s.userRepo.SetResetToken(ctx, user.ID, resetToken, expiry); err != nil {
		s.logger.Error("❌ [AuthService] Failed to store reset token", "user_id", user.ID, "error", err)
		return err
	}

	// Delivery is handled by the notification service; here we only record
	// that a token was issued.
	s.logger.Info("📧 [AuthService] Password reset token issued",
		"user_id", user.ID,
		"token_prefix", tokenPrefix(resetToken),
		"expires_at", expiry,
	)

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if user.ResetToken == nil || *user.ResetToken != token {
		return ErrInvalidToken
	}
	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.ChangePassword(ctx, user.ID, string(hash)); err != nil {
		s.logger.Error("❌ [AuthService] Failed to change password", "user_id", user.ID, "error", err)
		return err
	}

	if err := s.userRepo.ClearResetToken(ctx, user.ID); err != nil {
		s.logger.Error("❌ [AuthService] Failed to clear reset token", "user_id", user.ID, "error", err)
		return err
	}

	// A password reset invalidates every existing session; a stolen
	// refresh token must not survive it.
	if _, err := s.rotation.RevokeAllForUser(ctx, user.ID, "", models.RevokedReasonPasswordReset); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke sessions after reset", "user_id", user.ID, "error", err)
		return err
	}

	s.auditAsync(user.ID, models.ActivityPasswordReset, "password reset completed", "", false)
	s.logger.Info("✅ [AuthService] Password reset completed", "user_id", user.ID)

	return nil
}

func (s *authService) VerifyAccessToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	// Re-check the live account status: deactivating a user takes effect
	// within one access-token TTL even though the signature still checks
	// out.
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	return user, nil
}

// rotationTokenOwnedBy loads a refresh token and confirms it belongs to the
// caller. A foreign or unknown token gets the generic unauthorized answer.
func (s *authService) rotationTokenOwnedBy(ctx context.Context, userID uint, token string) (*models.RefreshToken, error) {
	stored, err := s.tokenRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if stored.UserID != userID {
		s.logger.Warn("⚠️ [AuthService] Logout with token owned by another user",
			"caller_user_id", userID,
			"owner_user_id", stored.UserID,
			"token_prefix", tokenPrefix(token),
		)
		return nil, ErrInvalidToken
	}
	return stored, nil
}

// auditAsync writes an activity entry without blocking the request path. A
// lost audit row is logged, never surfaced.
func (s *authService) auditAsync(userID uint, action, detail, ip string, touchLastLogin bool) {
	s.pool.SubmitWithTimeout(auditTimeout, func(ctx context.Context) {
		if touchLastLogin {
			if err := s.userRepo.UpdateLastLogin(ctx, userID, time.Now()); err != nil {
				s.logger.Warn("⚠️ [AuthService] Failed to update last login", "user_id", userID, "error", err)
			}
		}

		entry := &models.ActivityLog{
			UserID:    userID,
			Action:    action,
			Detail:    detail,
			IPAddress: ip,
		}
		if err := s.activityRepo.Create(ctx, entry); err != nil {
			s.logger.Warn("⚠️ [AuthService] Failed to write activity log",
				"user_id", userID,
				"action", action,
				"error", err,
			)
		}
	})
}

// isRotationRejection reports whether the rotation engine rejected the token
// for a reason that maps to Unauthorized rather than a storage failure
func isRotationRejection(err error) bool {
	return errors.Is(err, repository.ErrTokenNotFound) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenReplayed) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrAccountInactive)
}

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
