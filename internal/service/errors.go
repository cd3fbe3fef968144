package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    uuid.UUID
	Role      domain.Role
	IP        string
	RequestID string
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	StatusCode   int
	Changes      string
}

func (a Actor) entry(action domain.AuditAction, resourceType, resourceID string) AuditEntry {
	return AuditEntry{
		UserID:       a.UserID,
		UserRole:     a.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    a.IP,
		RequestID:    a.RequestID,
	}
}
