package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/internal/core/ports/mocks"
	"marketplace-backend/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc          *AuthServiceImpl
	users        *mocks.MockUserRepository
	hashSvc      *mocks.MockHashService
	tokenSvc     *mocks.MockTokenService
	refreshStore *mocks.MockRefreshTokenStore
}

func setupAuthService(t *testing.T, allowRegistration bool) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		users:        mocks.NewMockUserRepository(ctrl),
		hashSvc:      mocks.NewMockHashService(ctrl),
		tokenSvc:     mocks.NewMockTokenService(ctrl),
		refreshStore: mocks.NewMockRefreshTokenStore(ctrl),
	}
	d.svc = NewAuthService(d.users, d.hashSvc, d.tokenSvc, d.refreshStore, allowRegistration, zerolog.Nop())
	return d
}

func expectTokenPair(d *authTestDeps, userID int64) {
	now := time.Now().UTC()
	d.tokenSvc.EXPECT().Issue(userID, ports.TokenKindAccess).
		Return(&ports.IssuedToken{Token: "access", ID: "a-1", IssuedAt: now, ExpiresAt: now.Add(30 * time.Minute)}, nil)
	d.tokenSvc.EXPECT().Issue(userID, ports.TokenKindRefresh).
		Return(&ports.IssuedToken{Token: "refresh", ID: "r-1", IssuedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour)}, nil)
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()
	in := domain.UserCreate{Username: "alice", Password: "Str0ngPass!"}

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("Str0ngPass!").Return("$2a$hashed", nil)
	d.users.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		u.ID = 1
		return nil
	})

	user, err := d.svc.Register(ctx, nil, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "$2a$hashed", user.HashedPassword)
	assert.Equal(t, []domain.Role{domain.RoleUser}, user.Roles)
}

func TestAuthService_Register_PasswordTooLong(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()
	long := strings.Repeat("é", 60)

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(long).Return("", fmt.Errorf("hashing password: %w", ports.ErrPasswordTooLong))

	_, err := d.svc.Register(ctx, nil, domain.UserCreate{Username: "alice", Password: long})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, "VAL_001"))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: 1, Username: "alice"}, nil)

	_, err := d.svc.Register(ctx, nil, domain.UserCreate{Username: "alice", Password: "x"})
	assert.True(t, apperror.HasCode(err, "AUTH_002"))
}

func TestAuthService_Register_RaceOnInsert(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("pw").Return("h", nil)
	d.users.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("insert user: %w", ports.ErrDuplicate))

	_, err := d.svc.Register(ctx, nil, domain.UserCreate{Username: "alice", Password: "pw"})
	assert.True(t, apperror.HasCode(err, "AUTH_002"))
}

func TestAuthService_Register_ClosedRegistration(t *testing.T) {
	d := setupAuthService(t, false)
	ctx := context.Background()
	in := domain.UserCreate{Username: "bob", Password: "pw"}

	_, err := d.svc.Register(ctx, nil, in)
	assert.True(t, apperror.HasCode(err, "AUTH_003"))

	_, err = d.svc.Register(ctx, &domain.User{ID: 2, Roles: []domain.Role{domain.RoleUser}}, in)
	assert.True(t, apperror.HasCode(err, "AUTH_005"))

	admin := &domain.User{ID: 1, Roles: []domain.Role{domain.RoleAdmin}}
	d.users.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("pw").Return("h", nil)
	d.users.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err = d.svc.Register(ctx, admin, in)
	assert.NoError(t, err)
}

func TestAuthService_Register_AdminRoleRequiresAdmin(t *testing.T) {
	d := setupAuthService(t, true)
	in := domain.UserCreate{Username: "mallory", Password: "pw", Roles: []domain.Role{domain.RoleAdmin}}

	_, err := d.svc.Register(context.Background(), nil, in)
	assert.True(t, apperror.HasCode(err, "AUTH_006"))
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()
	user := &domain.User{ID: 7, Username: "alice", HashedPassword: "h"}

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(user, nil)
	d.hashSvc.EXPECT().Verify("pw", "h").Return(true)
	expectTokenPair(d, 7)
	d.users.EXPECT().UpdateLastLogin(ctx, int64(7), gomock.Any()).Return(nil)

	pair, err := d.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "access", pair.AccessToken)
	assert.Equal(t, "refresh", pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(7), pair.UserID)
}

func TestAuthService_Login_LastLoginFailureIgnored(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: 7, HashedPassword: "h"}, nil)
	d.hashSvc.EXPECT().Verify("pw", "h").Return(true)
	expectTokenPair(d, 7)
	d.users.EXPECT().UpdateLastLogin(ctx, int64(7), gomock.Any()).Return(errors.New("db down"))

	_, err := d.svc.Login(ctx, "alice", "pw")
	assert.NoError(t, err)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)
	d.hashSvc.EXPECT().Verify("pw", dummyHash).Return(false)

	_, err := d.svc.Login(ctx, "ghost", "pw")
	assert.True(t, apperror.HasCode(err, "AUTH_001"))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: 7, HashedPassword: "h"}, nil)
	d.hashSvc.EXPECT().Verify("bad", "h").Return(false)

	_, err := d.svc.Login(ctx, "alice", "bad")
	assert.True(t, apperror.HasCode(err, "AUTH_001"))
}

func TestAuthService_Login_Disabled(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: 7, HashedPassword: "h", Disabled: true}, nil)
	d.hashSvc.EXPECT().Verify("pw", "h").Return(true)

	_, err := d.svc.Login(ctx, "alice", "pw")
	assert.True(t, apperror.HasCode(err, "AUTH_004"))
}

func TestAuthService_Login_DatabaseError(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "alice").Return(nil, errors.New("connection refused"))

	_, err := d.svc.Login(ctx, "alice", "pw")
	assert.True(t, apperror.HasCode(err, "SYS_001"))
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	d.tokenSvc.EXPECT().Validate("old-refresh", ports.TokenKindRefresh).
		Return(&ports.TokenClaims{UserID: 7, Kind: ports.TokenKindRefresh, ID: "jti-1", ExpiresAt: exp}, nil)
	d.users.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7}, nil)
	d.refreshStore.EXPECT().Consume(ctx, "jti-1", gomock.Any()).Return(true, nil)
	expectTokenPair(d, 7)

	pair, err := d.svc.Refresh(ctx, "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "refresh", pair.RefreshToken)
}

func TestAuthService_Refresh_Replay(t *testing.T) {
	d := setupAuthService(t, true)
	ctx := context.Background()

	d.tokenSvc.EXPECT().Validate("old-refresh", ports.TokenKindRefresh).
		Return(&ports.TokenClaims{UserID: 7, ID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	d.users.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7}, nil)
	d.refreshStore.EXPECT().Consume(ctx, "jti-1", gomock.Any()).Return(false, nil)

	_, err := d.svc.Refresh(ctx, "old-refresh")
	assert.True(t, apperror.HasCode(err, "AUTH_003"))
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	d := setupAuthService(t, true)

	d.tokenSvc.EXPECT().Validate("bad", ports.TokenKindRefresh).Return(nil, ports.ErrTokenSignature)

	_, err := d.svc.Refresh(context.Background(), "bad")
	assert.True(t, apperror.HasCode(err, "AUTH_003"))
}

func TestAuthService_Refresh_WithoutStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(users, mocks.NewMockHashService(ctrl), tokens, nil, true, zerolog.Nop())
	ctx := context.Background()

	tokens.EXPECT().Validate("r", ports.TokenKindRefresh).Return(&ports.TokenClaims{UserID: 3, ID: "j"}, nil)
	users.EXPECT().GetByID(ctx, int64(3)).Return(&domain.User{ID: 3}, nil)
	tokens.EXPECT().Issue(int64(3), gomock.Any()).Return(&ports.IssuedToken{Token: "t"}, nil).Times(2)

	_, err := svc.Refresh(ctx, "r")
	assert.NoError(t, err)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	actor := &domain.User{ID: 7}

	t.Run("success", func(t *testing.T) {
		d := setupAuthService(t, true)
		d.users.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7, HashedPassword: "old-h"}, nil)
		d.hashSvc.EXPECT().Verify("old", "old-h").Return(true)
		d.hashSvc.EXPECT().Hash("new").Return("new-h", nil)
		d.users.EXPECT().UpdatePassword(ctx, int64(7), "new-h").Return(nil)

		assert.NoError(t, d.svc.ChangePassword(ctx, actor, 7, "old", "new"))
	})

	t.Run("other user", func(t *testing.T) {
		d := setupAuthService(t, true)
		err := d.svc.ChangePassword(ctx, actor, 8, "old", "new")
		assert.True(t, apperror.HasCode(err, "AUTH_006"))
	})

	t.Run("wrong current password", func(t *testing.T) {
		d := setupAuthService(t, true)
		d.users.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7, HashedPassword: "old-h"}, nil)
		d.hashSvc.EXPECT().Verify("wrong", "old-h").Return(false)

		err := d.svc.ChangePassword(ctx, actor, 7, "wrong", "new")
		assert.True(t, apperror.HasCode(err, "AUTH_001"))
	})

	t.Run("new password too long", func(t *testing.T) {
		d := setupAuthService(t, true)
		d.users.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7, HashedPassword: "old-h"}, nil)
		d.hashSvc.EXPECT().Verify("old", "old-h").Return(true)
		d.hashSvc.EXPECT().Hash("long").Return("", ports.ErrPasswordTooLong)

		err := d.svc.ChangePassword(ctx, actor, 7, "old", "long")
		assert.True(t, apperror.HasCode(err, "VAL_001"))
	})

	t.Run("empty new password", func(t *testing.T) {
		d := setupAuthService(t, true)
		err := d.svc.ChangePassword(ctx, actor, 7, "old", "")
		assert.True(t, apperror.HasCode(err, "VAL_001"))
	})
}
