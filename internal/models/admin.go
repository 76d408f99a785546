package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the only role that can reach the admin surface.
const RoleAdmin = "admin"

// Admin is an organizer account.
type Admin struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminPublic is Admin without the password hash.
type AdminPublic struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

// ToPublic converts Admin to AdminPublic.
func (a *Admin) ToPublic() AdminPublic {
	return AdminPublic{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role}
}
