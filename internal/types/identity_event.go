package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedPayload covers webhook bodies that verified but do not decode
// into the provider's envelope shape.
var ErrMalformedPayload = errors.New("malformed identity payload")

type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	// EventUnknown is the no-op variant: acknowledged, never acted on.
	EventUnknown EventType = ""
)

func ParseEventType(raw string) EventType {
	switch strings.TrimSpace(raw) {
	case string(EventUserCreated):
		return EventUserCreated
	case string(EventUserUpdated):
		return EventUserUpdated
	default:
		return EventUnknown
	}
}

type EmailCandidate struct {
	ID      string `json:"id"`
	Address string `json:"email_address"`
}

// IdentityEvent is the decoded form of one provider notification. It lives
// for a single verification+reconciliation cycle and is never persisted.
type IdentityEvent struct {
	Type            EventType
	RawType         string
	SubjectID       string
	EmailCandidates []EmailCandidate
	PrimaryEmailID  string
	GivenName       string
	FamilyName      string
	Handle          string
}

type eventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type subjectPayload struct {
	ID                    string           `json:"id"`
	EmailAddresses        []EmailCandidate `json:"email_addresses"`
	PrimaryEmailAddressID string           `json:"primary_email_address_id"`
	FirstName             string           `json:"first_name"`
	LastName              string           `json:"last_name"`
	Username              string           `json:"username"`
}

// ParseIdentityEvent decodes a verified webhook body. Unrecognized event
// types still decode successfully with Type set to EventUnknown so callers
// can acknowledge without acting.
func ParseIdentityEvent(raw []byte) (*IdentityEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedPayload
	}
	if strings.TrimSpace(env.Type) == "" {
		return nil, ErrMalformedPayload
	}
	ev := &IdentityEvent{
		Type:    ParseEventType(env.Type),
		RawType: env.Type,
	}
	if ev.Type == EventUnknown {
		return ev, nil
	}
	var data subjectPayload
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, ErrMalformedPayload
	}
	if strings.TrimSpace(data.ID) == "" {
		return nil, ErrMalformedPayload
	}
	ev.SubjectID = data.ID
	ev.EmailCandidates = data.EmailAddresses
	ev.PrimaryEmailID = data.PrimaryEmailAddressID
	ev.GivenName = strings.TrimSpace(data.FirstName)
	ev.FamilyName = strings.TrimSpace(data.LastName)
	ev.Handle = strings.TrimSpace(data.Username)
	return ev, nil
}
