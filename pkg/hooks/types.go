// Package hooks provides the lifecycle hooks a bot host fires: once at
// startup and after every user-invoked command. Hooks never crash the
// host: errors and panics are collected and logged.
package hooks

import (
	"context"
	"time"
)

// EventType represents the type of hook event
type EventType string

const (
	// EventStartup is fired once when the host process starts.
	EventStartup EventType = "startup"

	// EventCommandPostprocess is fired after a user command completes.
	EventCommandPostprocess EventType = "command_postprocess"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 60 * time.Second

// Message describes the chat message that triggered a command.
type Message struct {
	// FromUserID is the sending user, if any.
	FromUserID *int64
	// SenderChatID is set when the message was sent on behalf of a chat.
	SenderChatID *int64
	// Outgoing is true for messages sent by the host account itself.
	Outgoing bool
}

// Invocation is passed to command post-processing hooks.
type Invocation struct {
	Command string
	Message Message
}

type (
	StartupFunc func(ctx context.Context) error
	CommandFunc func(ctx context.Context, inv Invocation) error
)

// Hook is a single registered hook.
type Hook struct {
	// Name identifies the hook in logs and errors.
	Name string
	// Event selects when the hook fires.
	Event EventType
	// Matcher is a regex on the command name (command hooks only).
	// Empty or "*" matches every command.
	Matcher string
	// Timeout bounds the run (default: 60s)
	Timeout time.Duration

	Startup StartupFunc
	Command CommandFunc
}

// GetTimeout returns the timeout duration, defaulting to 60 seconds
func (h *Hook) GetTimeout() time.Duration {
	if h.Timeout <= 0 {
		return DefaultTimeout
	}
	return h.Timeout
}

// Option customizes a hook at registration.
type Option func(*Hook)

func WithTimeout(timeout time.Duration) Option {
	return func(h *Hook) {
		h.Timeout = timeout
	}
}

func WithMatcher(pattern string) Option {
	return func(h *Hook) {
		h.Matcher = pattern
	}
}
