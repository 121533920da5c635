package audit

import (
	"context"
	"time"
)

// Actions emitted by the auth core.
const (
	ActionLoginInitiated = "login_initiated"
	ActionLoginSucceeded = "login_succeeded"
	ActionLoginFailed    = "login_failed"
	ActionAccountCreated = "account_created"
	ActionLogout         = "logout"
)

// Event captures a security-relevant action. Transport-agnostic so sinks can
// fan out; identity appears only as the opaque account ID, never as a
// personnummer or its hash.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	AccountID  string    `json:"account_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	ClientType string    `json:"client_type,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Sink is an append-only destination for audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
