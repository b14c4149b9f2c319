package auth

import (
	"fmt"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleRetailer     Role = "retailer"
	RoleBeautyParlor Role = "beauty_parlor"
	RoleSalesman     Role = "salesman"
	RoleSubAdmin     Role = "sub_admin"
	RoleAdmin        Role = "admin"
)

var roles = map[Role]struct{}{
	RoleCustomer:     {},
	RoleRetailer:     {},
	RoleBeautyParlor: {},
	RoleSalesman:     {},
	RoleSubAdmin:     {},
	RoleAdmin:        {},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roles[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IsClient reports whether the role buys goods on its own account.
func (r Role) IsClient() bool {
	return r == RoleCustomer || r == RoleRetailer || r == RoleBeautyParlor
}

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

// Actor is the pre-authenticated caller of a core operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}
