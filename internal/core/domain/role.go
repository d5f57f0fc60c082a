package domain

import "fmt"

// Role is one of the fixed roles a user can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a stored role name to a Role, rejecting anything outside the fixed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Capability is a privileged action guarded by role.
type Capability string

const (
	CapManageAnyMerchant Capability = "manage_any_merchant"
	CapAdjustBalance     Capability = "adjust_balance"
	CapViewAnyWallet     Capability = "view_any_wallet"
	CapManageUsers       Capability = "manage_users"
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:  nil,
	RoleAdmin: {CapManageAnyMerchant, CapAdjustBalance, CapViewAnyWallet, CapManageUsers},
}

// Grants reports whether the role carries the capability.
func (r Role) Grants(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}
