package model

import "time"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string     `json:"accessToken"`
	User        PublicUser `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
}

type CsrfTokenResponse struct {
	CsrfToken string `json:"csrfToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// PublicUser is the user shape returned to clients. Never carries the
// password hash or reset-token material.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthUser is the verified identity attached to a request context.
type AuthUser struct {
	ID   string
	Name string
	Role string
}

type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              string
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// RefreshToken is the server-side record proving a refresh token is still
// live. Rotation and logout delete the record; there is no update path.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
