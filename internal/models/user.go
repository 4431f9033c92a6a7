package models

import (
	"slices"
	"time"
)

// Roles recognised by the order lifecycle.
const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleCourier    = "courier"
	RoleAdmin      = "admin"
)

// User represents a registered user of the platform.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"`
	Role      string    `json:"role" gorm:"type:varchar(20)" validate:"omitempty,oneof=customer restaurant courier admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is a caller identity resolved from a bearer credential.
type Principal struct {
	UserID     string   `json:"user_id"`
	Roles      []string `json:"roles"`
	Credential string   `json:"-"`
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}
