package model

import (
	"strings"
	"time"
)

// Role is the audience the assistant is talking to. It only changes the
// system prompt; it is never persisted across sessions.
type Role string

const (
	RoleChild     Role = "child"
	RoleCaregiver Role = "caregiver"
)

// ParseRole maps the wire value sent by the UI onto a Role. The welcome screen
// sends "kid" and "parent"; anything that is not a child spelling falls back to
// the caregiver audience.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child", "kid":
		return RoleChild
	default:
		return RoleCaregiver
	}
}

// IsChild reports whether the child-safety directive applies.
func (r Role) IsChild() bool { return r == RoleChild }

// TurnStatus is the outcome recorded for one /api/chat turn.
type TurnStatus string

const (
	TurnStatusOK                 TurnStatus = "ok"
	TurnStatusContextUnavailable TurnStatus = "context_unavailable"
	TurnStatusGenerationFailed   TurnStatus = "generation_failed"
	TurnStatusRelayFailed        TurnStatus = "relay_failed"
	TurnStatusTimeout            TurnStatus = "timeout"
)

// Turn is the operational record of a single question/answer exchange.
// It carries no question or answer text.
type Turn struct {
	ID             string     `json:"id"`
	Role           Role       `json:"role"`
	Mode           string     `json:"mode"`
	DocumentCount  int        `json:"document_count"`
	ContextSkipped bool       `json:"context_skipped"`
	Status         TurnStatus `json:"status"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	BytesRelayed   int64      `json:"bytes_relayed"`
	StartedAt      time.Time  `json:"started_at"`
	DurationMs     int64      `json:"duration_ms"`
}
