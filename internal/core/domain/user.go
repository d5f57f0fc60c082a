package domain

import (
	"time"
)

// User is an account that can authenticate and act on merchants it owns.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          *string    `json:"email,omitempty"`
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	HashedPassword string     `json:"-"`
	Disabled       bool       `json:"disabled"`
	Roles          []Role     `json:"roles"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserCreate is the registration view of a User. Password is plaintext until hashed.
type UserCreate struct {
	Username  string
	Password  string
	Email     *string
	FirstName *string
	LastName  *string
	Roles     []Role
}

// IsActive returns true unless the account is disabled.
func (u *User) IsActive() bool {
	return !u.Disabled
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Can reports whether any of the user's roles grants the capability.
func (u *User) Can(c Capability) bool {
	for _, r := range u.Roles {
		if r.Grants(c) {
			return true
		}
	}
	return false
}

// NewUser projects a registration payload into a User ready for storage.
func NewUser(in UserCreate, hashedPassword string) *User {
	roles := in.Roles
	if len(roles) == 0 {
		roles = []Role{RoleUser}
	}
	return &User{
		Username:       in.Username,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		HashedPassword: hashedPassword,
		Roles:          roles,
	}
}
