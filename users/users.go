package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents the marketplace role of an account
type RoleType string

const (
	RoleAdmin    RoleType = "admin"    // Back-office access: projects, developers, posts, sidebar, settings
	RoleEmployee RoleType = "employee" // Staff access to the back-office without settings
	RoleUser     RoleType = "user"     // Regular marketplace account
)

// Valid reports whether r is one of the known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleUser:
		return true
	}
	return false
}

type StatusType string

const (
	StatusActive   StatusType = "active"
	StatusInactive StatusType = "inactive"
	StatusBanned   StatusType = "banned"
)

type User struct {
	ID           string     `json:"id"`                    // Unique identifier for the user
	Username     string     `json:"username"`              // Display name
	Email        string     `json:"email"`                 // User's email address
	PhoneNumber  string     `json:"phoneNumber,omitempty"` // Optional contact number
	Avatar       string     `json:"avatar,omitempty"`      // Avatar URL
	Role         RoleType   `json:"role"`                  // admin, employee or user
	Status       StatusType `json:"status,omitempty"`      // Account status
	CreatedAt    time.Time  `json:"createdAt"`             // Registration time
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`   // Last profile change
	PasswordHash string     `json:"-"`                     // Only populated by the development backend - never serialize
}

// ProfileUpdate holds the mutable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Username    *string `json:"username,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Empty reports whether the update carries no changes.
func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.PhoneNumber == nil && p.Avatar == nil
}

// Apply copies the non-nil fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}

// Clone returns a deep copy so that store snapshots can be handed out safely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func (u *User) HasRole(role RoleType) bool {
	return u != nil && u.Role == role
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// IsStaff returns true for admins and employees
func (u *User) IsStaff() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleEmployee)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
