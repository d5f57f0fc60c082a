package service

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

// Gate implements ports.AuthorizationGate.
type Gate struct {
	users  ports.UserRepository
	tokens ports.TokenService
}

// NewGate creates a new authorization gate.
func NewGate(users ports.UserRepository, tokens ports.TokenService) *Gate {
	return &Gate{users: users, tokens: tokens}
}

// ResolveCurrentUser maps an access token to its user.
func (g *Gate) ResolveCurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperror.ErrInvalidToken()
	}

	claims, err := g.tokens.Validate(token, ports.TokenKindAccess)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("resolve user %d: %w", claims.UserID, err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	return user, nil
}

// RequireActive rejects disabled accounts.
func (g *Gate) RequireActive(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !user.IsActive() {
		return nil, apperror.ErrUserDisabled()
	}
	return user, nil
}

// RequireRole rejects users without role.
func (g *Gate) RequireRole(user *domain.User, role domain.Role) (*domain.User, error) {
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !user.HasRole(role) {
		return nil, apperror.ErrMissingRole(string(role))
	}
	return user, nil
}
