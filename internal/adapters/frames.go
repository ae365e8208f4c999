package adapters

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/dkeye/courier/internal/core"
)

var validate = validator.New()

// clientFrame is the single inbound envelope. Type selects which of the
// optional fields matter; shape problems are caught here at the edge, intent
// semantics (target exclusivity etc.) stay with the router.
type clientFrame struct {
	Type string `json:"type" validate:"required,oneof=send mark_read call_invite call_accept call_end ping"`

	// send
	Group      string `json:"group,omitempty"`
	To         string `json:"to,omitempty"`
	Body       string `json:"body,omitempty"`
	Attachment string `json:"attachment,omitempty"`
	Kind       string `json:"kind,omitempty" validate:"omitempty,oneof=text system"`

	// mark_read: exactly one of Group / From
	From string `json:"from,omitempty"`

	// call_*
	Payload json.RawMessage `json:"payload,omitempty"`
}

func parseFrame(data []byte) (clientFrame, error) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, err
	}
	if err := validate.Struct(f); err != nil {
		return f, err
	}
	return f, nil
}

type ackFrame struct {
	Type  string `json:"type"` // "ack"
	Ref   string `json:"ref,omitempty"`
	Count *int   `json:"count,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// errorCode maps the coordinator's error taxonomy to wire strings.
func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidIntent):
		return "invalid_intent"
	case errors.Is(err, core.ErrUnknownRecipient):
		return "unknown_recipient"
	case errors.Is(err, core.ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, core.ErrPeerOffline):
		return "peer_offline"
	default:
		return "internal"
	}
}
