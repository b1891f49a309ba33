package identity

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/store/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Authorities granted to users
const (
	AuthorityAdmin = "ROLE_ADMIN"
	AuthorityUser  = "ROLE_USER"
)

// Password length bounds
const (
	PasswordMinLength = 4
	PasswordMaxLength = 100
)

// User is an account allowed to call the API
type User struct {
	shared.BaseEntity
	Login        string     `json:"login" gorm:"type:varchar(50);not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"type:varchar(60);not null"`
	Email        string     `json:"email,omitempty" gorm:"type:varchar(254)"`
	Activated    bool       `json:"activated" gorm:"not null;default:false"`
	Authorities  []string   `json:"authorities" gorm:"type:text;serializer:json"`
	CreatedAt    time.Time  `json:"createdDate"`
	UpdatedAt    time.Time  `json:"lastModifiedDate"`
	PasswordAt   *time.Time `json:"-"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "app_user"
}

// NewUser creates an activated user with a hashed password
func NewUser(login, password string, authorities ...string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Login cannot be empty")
	}
	u := &User{
		Login:       login,
		Activated:   true,
		Authorities: authorities,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one
func (u *User) ChangePassword(currentPassword, newPassword string) error {
	if !u.VerifyPassword(currentPassword) {
		return shared.ErrInvalidPassword
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password without checking the old one
func (u *User) SetPassword(password string) error {
	if n := utf8.RuneCountInString(password); n < PasswordMinLength || n > PasswordMaxLength {
		return shared.NewDomainError(shared.CodeValidation, "Password must be between 4 and 100 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = string(hash)
	now := time.Now()
	u.PasswordAt = &now
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HasAuthority reports whether the user was granted the authority
func (u *User) HasAuthority(authority string) bool {
	return slices.Contains(u.Authorities, authority)
}

// CanLogin reports whether the account may authenticate
func (u *User) CanLogin() bool {
	return u.Activated
}
