// Package events publishes visit changes so that other open sessions can
// refresh their snapshot.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

type Change struct {
	Type      ChangeType `json:"type"`
	ID        uuid.UUID  `json:"id"`
	PatientID string     `json:"patient_id,omitempty"`
	At        time.Time  `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, c Change) error
}

// Nop drops every change. Used when Redis is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }
