package core

import "errors"

var (
	// ErrInvalidIntent covers malformed targeting: both or neither of
	// group/recipient set, or an empty body with no attachment. Rejected
	// before any side effect.
	ErrInvalidIntent = errors.New("invalid message intent")

	// ErrUnknownRecipient means a private target did not resolve to an
	// existing user. Checked before persistence.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrPersistence wraps a message-store failure. The dispatch is aborted;
	// nothing is delivered or notified.
	ErrPersistence = errors.New("message store failure")

	// ErrPeerOffline is the informational outcome of relaying a signaling
	// payload to a user with zero live connections. Not a delivery failure.
	ErrPeerOffline = errors.New("peer offline")

	// ErrBackpressure is returned by a connection whose send buffer is full.
	// The frame is dropped for that connection only.
	ErrBackpressure = errors.New("backpressure")

	// ErrConnClosed is returned by a connection that was torn down between a
	// fan-out snapshot and the send. The caller evicts it like any other
	// failed send.
	ErrConnClosed = errors.New("connection closed")
)
