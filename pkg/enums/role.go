package enums

import "slices"

// Role is the marketplace actor role carried in access tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
)

var validRoles = []Role{
	RoleAdmin,
	RoleUser,
	RoleVendor,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the role is recognized.
func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

// ParseRole converts a raw string into a Role.
func ParseRole(value string) (Role, error) {
	return parse("role", value, validRoles)
}
