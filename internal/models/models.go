package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID       string
	Email    string
	Name     string
	PassHash []byte
	Role     Role
}

// Identity is the caller resolved from a verified access token.
type Identity struct {
	Email string
	Name  string
	Role  Role
}

func (u User) Identity() Identity {
	return Identity{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

const (
	AuditLogin = "login"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type AuditEvent struct {
	Type    string    `json:"type"`
	Email   string    `json:"email"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}
