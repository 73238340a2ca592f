package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/config"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/models"
)

// AccessTokenClaims is the signed payload of an access token
type AccessTokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id
func (c *AccessTokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TokenService mints and verifies short-lived access tokens. Verification is
// stateless: no store lookup, no side effects. The cost is that an access
// token cannot be revoked before its expiry, which is why the TTL stays
// short.
type TokenService interface {
	Issue(user *models.User) (string, error)
	Verify(tokenString string) (*AccessTokenClaims, error)
}

type tokenService struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewTokenService creates a new token service instance
func NewTokenService(cfg *config.Config) TokenService {
	return &tokenService{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.JWTIssuer,
		audience:  cfg.JWTAudience,
		accessTTL: time.Duration(cfg.AccessTokenExpiration) * time.Second,
	}
}

func (s *tokenService) Issue(user *models.User) (string, error) {
	now := time.Now()

	claims := AccessTokenClaims{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) Verify(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	// Fails closed: signature mismatch, malformed payload, wrong
	// issuer/audience and expiry all end up here.
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
