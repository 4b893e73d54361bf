package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user account.
type Role string

const (
	RoleCustomer Role = "Cliente"
	RoleAdmin    Role = "Administrador"
)

var validRoles = []Role{
	RoleCustomer,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID `json:"id_usuario" db:"id"`
	Name         string    `json:"nombre_usuario" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"rol" db:"role"`
	CreatedAt    time.Time `json:"fecha_registro" db:"created_at"`
	UpdatedAt    time.Time `json:"fecha_actualizacion" db:"updated_at"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is the sanitized view attached to requests and returned to clients.
type PublicUser struct {
	ID        uuid.UUID `json:"id_usuario"`
	Name      string    `json:"nombre_usuario"`
	Email     string    `json:"email"`
	Role      Role      `json:"rol"`
	CreatedAt time.Time `json:"fecha_registro"`
}

// Public strips credentials from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
