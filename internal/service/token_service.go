package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	Kind ports.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService using HMAC-signed JWTs.
type JWTTokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(cfg config.JWTConfig) (*JWTTokenService, error) {
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
	return &JWTTokenService{
		secret:     []byte(cfg.Secret),
		method:     method,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token of the given kind for the user.
func (s *JWTTokenService) Issue(userID int64, kind ports.TokenKind) (*ports.IssuedToken, error) {
	ttl := s.accessTTL
	if kind == ports.TokenKindRefresh {
		ttl = s.refreshTTL
	}

	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	id := uuid.NewString()

	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &ports.IssuedToken{Token: token, ID: id, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// Validate parses a token and checks its signature, algorithm, expiry, issuer and kind.
func (s *JWTTokenService) Validate(tokenString string, kind ports.TokenKind) (*ports.TokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ports.ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %w", ports.ErrTokenSignature, err)
		default:
			return nil, fmt.Errorf("%w: %w", ports.ErrTokenMalformed, err)
		}
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ports.ErrTokenSignature, kind, claims.Kind)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: invalid subject %q", ports.ErrTokenMalformed, claims.Subject)
	}

	return &ports.TokenClaims{
		UserID:    userID,
		Kind:      claims.Kind,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
