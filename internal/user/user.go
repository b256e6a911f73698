package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
	userDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/user"
)

type User struct {
	ID        int64
	Username  string
	FullName  string
	Role      access.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanBeAssigned reports whether hazards may be assigned to u.
func (u *User) CanBeAssigned() bool {
	return u.IsActive && u.Role == access.RoleSiteManager
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role.String(),
		IsActive: u.IsActive,
	}
}

var ErrNotFound = errors.New("user not found")

// FromDataModel maps a users row. Unknown role labels become access.RoleNone.
func FromDataModel(u *userDatamodel.User) *User {
	role, _ := access.ParseRole(u.Role)
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
