package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClinician Role = "clinician"
	RoleDataEntry Role = "data_entry"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClinician, RoleDataEntry:
		return true
	}
	return false
}

// CanDeleteVisits reports whether the role may remove visits. Data-entry
// staff can create and correct rows but not delete them.
func (r Role) CanDeleteVisits() bool {
	return r == RoleAdmin || r == RoleClinician
}

// User is a staff account. Patients never sign in.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FullName     string `gorm:"column:full_name;type:varchar(200);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

var (
	ErrAccountLocked   = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive = errors.New("account is inactive")
)

// CanSignIn returns ErrAccountInactive or ErrAccountLocked when the account
// may not open or extend a session at now.
func (u *User) CanSignIn(now time.Time) error {
	if !u.IsActive {
		return ErrAccountInactive
	}
	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		return ErrAccountLocked
	}
	return nil
}

// IssuedAfterPasswordChange reports whether a token issued at iat is still
// valid for this account. Token times have one-second resolution.
func (u *User) IssuedAfterPasswordChange(iat time.Time) bool {
	return !iat.Before(u.PasswordChangedAt.Truncate(time.Second))
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
	ActionExport AuditAction = "export"
	ActionImport AuditAction = "import"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	// IssuedAt is filled in when a token is verified.
	IssuedAt time.Time `json:"-"`
}

// ClaimsFor returns the token claims of a user.
func ClaimsFor(u *User) *Claims {
	return &Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}
