// Package audit records authentication events for operational review. Events
// carry obfuscated character ids only; raw ids stay out of the audit trail.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Actions recorded by the login flow.
const (
	ActionLoginStart   = "login_start"
	ActionLoginFailed  = "login_failed"
	ActionLoginDone    = "login_complete"
	ActionAdminGranted = "admin_granted"
	ActionAdminDenied  = "admin_denied"
)

// Event is one authentication audit record.
type Event struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	App       string    `bson:"app" json:"app"`
	Action    string    `bson:"action" json:"action"`
	Character string    `bson:"character,omitempty" json:"character,omitempty"` // obfuscated id
	Domain    string    `bson:"domain,omitempty" json:"domain,omitempty"`
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	Success   bool      `bson:"success" json:"success"`
}

// Recorder sinks audit events. Implementations must never block or fail the
// login path; recording problems are logged and swallowed.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LogRecorder writes audit events to the process log. It is the fallback
// recorder when no persistent sink is configured.
type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	log.Info().
		Str("app", event.App).
		Str("action", event.Action).
		Str("character", event.Character).
		Str("domain", event.Domain).
		Str("detail", event.Detail).
		Bool("success", event.Success).
		Msg("audit event")
}
