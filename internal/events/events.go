package events

import (
	"context"
	"time"
)

const DefaultTopic = "user_events"

const (
	UserLoggedIn    = "user_logged_in"
	UserLoggedOut   = "user_logged_out"
	SessionRotated  = "session_rotated"
	PasswordChanged = "password_changed"
	UserCreated     = "user_created"
	UserUpdated     = "user_updated"
	UserDeleted     = "user_deleted"
)

// UserEvent is the JSON payload written to the user events topic.
type UserEvent struct {
	Type   string    `json:"type"`
	UserID uint      `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Role   string    `json:"role,omitempty"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev UserEvent) error
	Close() error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, UserEvent) error { return nil }
func (Nop) Close() error                            { return nil }
