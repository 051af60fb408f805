package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a staff role with an ordered permission level.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Level returns the position of the role in the hierarchy. Unknown roles
// have level 0 and never satisfy a permission check.
func (r Role) Level() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether the role is one of the defined roles
func (r Role) IsValid() bool {
	return r.Level() > 0
}

// AtLeast reports whether the role meets or exceeds the required role
func (r Role) AtLeast(required Role) bool {
	return r.IsValid() && r.Level() >= required.Level()
}

// ValidRoles returns the set of defined roles, lowest first
func ValidRoles() []Role {
	return []Role{RoleStaff, RoleManager, RoleAdmin}
}

// User represents a staff member who can sign in to the back office
type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Email               string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash        string         `gorm:"not null" json:"-"`
	FirstName           string         `gorm:"not null" json:"first_name"`
	LastName            string         `gorm:"not null" json:"last_name"`
	Role                Role           `gorm:"not null;default:'staff'" json:"role"`
	IsActive            bool           `gorm:"not null;default:true" json:"is_active"`
	TwoFactorEnabled    bool           `gorm:"not null;default:false" json:"two_factor_enabled"`
	TwoFactorSecret     *string        `json:"-"`
	FailedLoginAttempts int            `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time     `json:"-"`
	LastLogin           *time.Time     `json:"last_login"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsLocked reports whether the account is currently locked out after
// repeated failed login attempts
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Session stores an issued refresh token so it can be revoked and rotated
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
	RefreshToken string    `gorm:"not null;index" json:"-"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the Session model
func (Session) TableName() string {
	return "user_sessions"
}
