package enums

import "fmt"

// UserRole scopes what an operator account can do in the admin API.
type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRolePhotographer UserRole = "photographer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRolePhotographer,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the role is known.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
