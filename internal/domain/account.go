package domain

import "time"

// SubjectType differentiates end-user vs administrator tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// UserStatus represents lifecycle states for an end-user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is an authenticated principal that can bind itself to a staff code.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanSignIn reports whether the account may obtain or use a token.
func (u *User) CanSignIn() bool {
	return u != nil && u.Status == UserStatusActive
}

// Admin is the higher-trust principal that credits wallets and resolves payment requests.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanSignIn reports whether the admin account is enabled.
func (a *Admin) CanSignIn() bool {
	return a != nil && a.Active
}
