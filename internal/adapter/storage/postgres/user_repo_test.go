package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func userColumnNames() []string {
	return []string{"id", "username", "email", "first_name", "last_name", "hashed_password", "disabled", "roles", "last_login_at", "created_at", "updated_at"}
}

func userRow(u *domain.User, roles []string) *pgxmock.Rows {
	return pgxmock.NewRows(userColumnNames()).AddRow(
		u.ID, u.Username, u.Email, u.FirstName, u.LastName,
		u.HashedPassword, u.Disabled, roles, u.LastLoginAt,
		u.CreatedAt, u.UpdatedAt,
	)
}

func newTestUser() *domain.User {
	return &domain.User{
		ID:             7,
		Username:       "ash",
		Email:          strPtr("ash@example.com"),
		FirstName:      strPtr("Ash"),
		LastName:       (*string)(nil),
		HashedPassword: "$2a$12$hash",
		Roles:          []domain.Role{domain.RoleUser},
		LastLoginAt:    (*time.Time)(nil),
		CreatedAt:      testTime(),
		UpdatedAt:      testTime(),
	}
}

func TestUserRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()
	u.ID = 0
	now := testTime()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Username, u.Email, u.FirstName, u.LastName, u.HashedPassword, false, []string{"user"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, int64(11), u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

	err = repo.Create(context.Background(), newTestUser())
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE username").
		WithArgs("ash").
		WillReturnRows(userRow(u, []string{"user", "admin"}))

	result, err := repo.GetByUsername(context.Background(), "ash")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, u.ID, result.ID)
	assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAdmin}, result.Roles)
	assert.Equal(t, "ash@example.com", *result.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID_UnknownRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(u.ID).
		WillReturnRows(userRow(u, []string{"root"}))

	_, err = repo.GetByID(context.Background(), u.ID)
	assert.Error(t, err)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectExec("UPDATE users SET hashed_password").
		WithArgs("newhash", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET hashed_password").
		WithArgs("newhash", int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.UpdatePassword(context.Background(), 7, "newhash"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 8, "newhash"), ports.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateLastLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	at := testTime()

	mock.ExpectExec("UPDATE users SET last_login_at").
		WithArgs(at, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateLastLogin(context.Background(), 7, at))

	mock.ExpectExec("UPDATE users SET last_login_at").
		WillReturnError(errors.New("conn closed"))
	assert.Error(t, repo.UpdateLastLogin(context.Background(), 7, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
