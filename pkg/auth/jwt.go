// Package auth issues and verifies the staff session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
)

type tokenKind string

const (
	accessToken  tokenKind = "access"
	refreshToken tokenKind = "refresh"
)

// Tolerated clock difference between the API replicas.
const leeway = 10 * time.Second

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

type staffClaims struct {
	jwt.RegisteredClaims
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Kind  tokenKind `json:"token_type"`
}

type JWTManager struct {
	cfg    config.JWTConfig
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(leeway),
		),
		now: time.Now,
	}
}

func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	issuedAt := m.now()

	access, err := m.sign(claims, accessToken, issuedAt, m.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := m.sign(claims, refreshToken, issuedAt, m.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    issuedAt.Add(m.cfg.AccessTokenTTL),
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.verify(token, accessToken)
}

// ValidateRefreshToken returns claims with IssuedAt set so callers can
// reject tokens that predate a password change.
func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.verify(token, refreshToken)
}

func (m *JWTManager) sign(claims *domain.Claims, kind tokenKind, issuedAt time.Time, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, staffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   claims.UserID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Email: claims.Email,
		Role:  string(claims.Role),
		Kind:  kind,
	}).SignedString(m.secret)
}

func (m *JWTManager) verify(raw string, want tokenKind) (*domain.Claims, error) {
	var sc staffClaims
	if _, err := m.parser.ParseWithClaims(raw, &sc, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if sc.Kind != want {
		return nil, ErrTokenTypeMismatch
	}

	userID, err := uuid.Parse(sc.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	role := domain.Role(sc.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}

	claims := &domain.Claims{UserID: userID, Email: sc.Email, Role: role}
	if sc.IssuedAt != nil {
		claims.IssuedAt = sc.IssuedAt.Time
	}
	return claims, nil
}
