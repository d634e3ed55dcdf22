// Package domain holds the entities persisted by the RBAC store.
package domain

import "time"

// User is an account that can be granted roles.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	Roles []Role `json:"roles,omitempty" db:"-"`
}

// Role groups permissions.
type Role struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	Permissions []Permission `json:"permissions,omitempty" db:"-"`
}

// Resource is a protectable noun such as "user" or "role".
type Resource struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Permission grants one action on one resource.
type Permission struct {
	ID          int64     `json:"id" db:"id"`
	Action      Action    `json:"action" db:"action"`
	Description string    `json:"description" db:"description"`
	ResourceID  int64     `json:"-" db:"resource_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	Resource *Resource `json:"resource,omitempty" db:"-"`
}

// Token is a signed bearer token issued at login.
type Token struct {
	Value     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
