package access

import "strings"

// Role is the closed set of roles a principal can hold. The zero value is
// RoleNone, used for unauthenticated callers and unrecognised role labels.
type Role uint8

const (
	RoleNone Role = iota
	RoleFieldWorker
	RoleSiteManager
	RoleSafetyOfficer
)

const (
	labelFieldWorker   = "FieldWorker"
	labelSiteManager   = "SiteManager"
	labelSafetyOfficer = "SafetyOfficer"
)

// ParseRole maps an external role label onto a Role. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, labelFieldWorker):
		return RoleFieldWorker, true
	case strings.EqualFold(s, labelSiteManager):
		return RoleSiteManager, true
	case strings.EqualFold(s, labelSafetyOfficer):
		return RoleSafetyOfficer, true
	default:
		return RoleNone, false
	}
}

// MustParseRole is ParseRole for trusted constants, such as seed data.
func MustParseRole(s string) Role {
	r, ok := ParseRole(s)
	if !ok {
		panic("access: unknown role " + s)
	}
	return r
}

func (r Role) String() string {
	switch r {
	case RoleFieldWorker:
		return labelFieldWorker
	case RoleSiteManager:
		return labelSiteManager
	case RoleSafetyOfficer:
		return labelSafetyOfficer
	default:
		return ""
	}
}

// IsKnown reports whether r is one of the three assignable roles.
func (r Role) IsKnown() bool {
	return r == RoleFieldWorker || r == RoleSiteManager || r == RoleSafetyOfficer
}

// AllRoles lists the assignable roles.
func AllRoles() []Role {
	return []Role{RoleFieldWorker, RoleSiteManager, RoleSafetyOfficer}
}
