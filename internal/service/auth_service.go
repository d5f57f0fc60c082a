package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

// dummyHash is verified against when the username is unknown so both failure paths cost one bcrypt round.
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKxGhuK3mV8pQ3sVdS4h2t0sQeZC1hZ9pWm1y"

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	users             ports.UserRepository
	hashSvc           ports.HashService
	tokenSvc          ports.TokenService
	refreshStore      ports.RefreshTokenStore
	allowRegistration bool
	log               zerolog.Logger
	now               func() time.Time
}

// NewAuthService creates a new AuthServiceImpl.
// refreshStore may be nil, in which case refresh tokens are reusable until they expire.
func NewAuthService(
	users ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	refreshStore ports.RefreshTokenStore,
	allowRegistration bool,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:             users,
		hashSvc:           hashSvc,
		tokenSvc:          tokenSvc,
		refreshStore:      refreshStore,
		allowRegistration: allowRegistration,
		log:               log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user account.
// Anonymous callers may register only while registration is open, and only admins may grant roles beyond user.
func (s *AuthServiceImpl) Register(ctx context.Context, actor *domain.User, in domain.UserCreate) (*domain.User, error) {
	if !s.allowRegistration {
		if actor == nil {
			return nil, apperror.ErrInvalidToken()
		}
		if !actor.Can(domain.CapManageUsers) {
			return nil, apperror.ErrMissingRole(string(domain.RoleAdmin))
		}
	}
	for _, r := range in.Roles {
		if r != domain.RoleUser && (actor == nil || !actor.Can(domain.CapManageUsers)) {
			return nil, apperror.ErrForbidden()
		}
	}
	if in.Username == "" || in.Password == "" {
		return nil, apperror.Validation("username and password are required")
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	hash, err := s.hashSvc.Hash(in.Password)
	if err != nil {
		return nil, hashError(err)
	}

	user := domain.NewUser(in, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login validates credentials and returns an access and refresh token pair.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		s.hashSvc.Verify(password, dummyHash)
		return nil, apperror.ErrInvalidCredentials()
	}

	if !s.hashSvc.Verify(password, user.HashedPassword) {
		return nil, apperror.ErrInvalidCredentials()
	}

	if !user.IsActive() {
		return nil, apperror.ErrUserDisabled()
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to record last login")
	}

	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is accepted once when a store is configured.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokenSvc.Validate(refreshToken, ports.TokenKindRefresh)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !user.IsActive() {
		return nil, apperror.ErrUserDisabled()
	}

	if s.refreshStore != nil {
		first, err := s.refreshStore.Consume(ctx, claims.ID, claims.ExpiresAt.Sub(s.now()))
		if err != nil {
			return nil, apperror.ErrCacheError(fmt.Errorf("consume refresh token: %w", err))
		}
		if !first {
			s.log.Warn().Int64("user_id", user.ID).Str("jti", claims.ID).Msg("refresh token replayed")
			return nil, apperror.ErrInvalidToken()
		}
	}

	return s.issuePair(user.ID)
}

// ChangePassword verifies the current password and stores a hash of the new one.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, actor *domain.User, userID int64, currentPassword, newPassword string) error {
	if actor == nil || actor.ID != userID {
		return apperror.ErrForbidden()
	}
	if newPassword == "" {
		return apperror.Validation("new password is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return apperror.ErrNotFound("user")
	}

	if !s.hashSvc.Verify(currentPassword, user.HashedPassword) {
		return apperror.ErrInvalidCredentials()
	}

	hash, err := s.hashSvc.Hash(newPassword)
	if err != nil {
		return hashError(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperror.ErrNotFound("user")
		}
		return apperror.ErrDatabaseError(fmt.Errorf("update password: %w", err))
	}
	return nil
}

func (s *AuthServiceImpl) issuePair(userID int64) (*ports.TokenPair, error) {
	access, err := s.tokenSvc.Issue(userID, ports.TokenKindAccess)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := s.tokenSvc.Issue(userID, ports.TokenKindRefresh)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issue refresh token: %w", err))
	}

	return &ports.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        "bearer",
		IssuedAt:         access.IssuedAt,
		ExpiresAt:        access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		UserID:           userID,
	}, nil
}

// hashError reports an over-long password as caller input.
func hashError(err error) error {
	if errors.Is(err, ports.ErrPasswordTooLong) {
		return apperror.Validation("password must be at most 72 bytes")
	}
	return apperror.InternalError(fmt.Errorf("hash password: %w", err))
}
