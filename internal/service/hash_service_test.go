package service

import (
	"strings"
	"testing"

	"marketplace-backend/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashService_HashAndVerify(t *testing.T) {
	svc := NewBcryptHashService(bcrypt.MinCost)

	hash, err := svc.Hash("MySecureP@ssw0rd!")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$"), "hash should be bcrypt encoded")
	assert.NotEqual(t, "MySecureP@ssw0rd!", hash)

	assert.True(t, svc.Verify("MySecureP@ssw0rd!", hash))
	assert.False(t, svc.Verify("WrongPassword", hash))
}

func TestBcryptHashService_UniqueSalts(t *testing.T) {
	svc := NewBcryptHashService(bcrypt.MinCost)

	hash1, err := svc.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := svc.Hash("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "same password should produce different hashes due to random salt")
	assert.True(t, svc.Verify("samepassword", hash1))
	assert.True(t, svc.Verify("samepassword", hash2))
}

func TestBcryptHashService_MalformedHash(t *testing.T) {
	svc := NewBcryptHashService(bcrypt.MinCost)

	for _, hash := range []string{"", "invalid", "$2a$04$short", "$argon2id$v=19$m=65536,t=1,p=4$abc$def"} {
		assert.False(t, svc.Verify("password", hash), "hash %q", hash)
	}
}

func TestBcryptHashService_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHashService(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHashService(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHashService(12).cost)
}

func TestBcryptHashService_TooLong(t *testing.T) {
	svc := NewBcryptHashService(bcrypt.MinCost)

	_, err := svc.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ports.ErrPasswordTooLong)

	// 36 two-byte runes fill the limit exactly; one more overflows it.
	_, err = svc.Hash(strings.Repeat("é", 36))
	assert.NoError(t, err)
	_, err = svc.Hash(strings.Repeat("é", 37))
	assert.ErrorIs(t, err, ports.ErrPasswordTooLong)
}
