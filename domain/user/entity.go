package user

import (
	"time"
)

// Role is the authorization class of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an account as served by the API. It is immutable once fetched and
// replaced wholesale on re-fetch.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Claims are the identity hints embedded in a credential.
type Claims struct {
	UserID    string
	Role      Role
	ExpiresAt time.Time
}

// Credential is a bearer token together with the claims decoded from it.
type Credential struct {
	Token  string
	Claims Claims
}

// Account is the persisted form of a user on the API side.
type Account struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	Role         Role   `gorm:"not null;type:text;default:user"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the Account entity.
func (Account) TableName() string {
	return "users"
}

// ToUser strips the secret fields from an account.
func (a Account) ToUser() User {
	return User{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}
