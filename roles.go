package auth

import (
	"strconv"
	"strings"
)

// Role is an ordered privilege rank. Lower ordinals carry more privilege.
type Role int

const (
	RoleAdmin   Role = 1
	RoleManager Role = 2
	RoleDriver  Role = 3
)

// DefaultRole is assigned to self registered users
const DefaultRole = RoleDriver

var roleNames = map[Role]string{
	RoleAdmin:   "Admin",
	RoleManager: "Manager",
	RoleDriver:  "Driver",
}

// Roles lists the defined roles from most to least privileged
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleDriver}
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// Ordinal is the value carried in the role claim
func (r Role) Ordinal() string {
	return strconv.Itoa(int(r))
}

// IsAtLeast reports whether r is as privileged as min or more.
func (r Role) IsAtLeast(min Role) bool {
	return r.IsValid() && min.IsValid() && r <= min
}

// ParseRole accepts either the ordinal ("1") or the name ("admin"),
// case-insensitive.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		r := Role(n)
		return r, r.IsValid()
	}

	for role, name := range roleNames {
		if strings.EqualFold(name, s) {
			return role, true
		}
	}

	return 0, false
}

// CheckHierarchy fails unless the acting role is at least as privileged as
// the target role. Equal roles are permitted.
func CheckHierarchy(acting, target Role, isDelete bool) error {
	if int(target) >= int(acting) {
		return nil
	}

	if isDelete {
		return ErrInsufficientPrivilegeDelete
	}

	return ErrInsufficientPrivilege
}
