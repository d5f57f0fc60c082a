package service

import (
	"errors"
	"fmt"

	"marketplace-backend/internal/core/ports"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHashService implements ports.HashService using bcrypt.
type BcryptHashService struct {
	cost int
}

// NewBcryptHashService creates a bcrypt hash service. An out-of-range cost falls back to bcrypt.DefaultCost.
func NewBcryptHashService(cost int) *BcryptHashService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHashService{cost: cost}
}

// Hash generates a salted bcrypt hash of the password.
func (s *BcryptHashService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("hashing password: %w", ports.ErrPasswordTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify checks if a password matches the given bcrypt hash.
func (s *BcryptHashService) Verify(password string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
