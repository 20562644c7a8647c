package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the envelope used for both requests and responses.
// Body carries the JSON encoding of a payload. Payload errors travel inside
// the body, Err is only set if the server could not process the request at all.
type Message struct {
	Method payload.Method  `json:"method"`
	Body   json.RawMessage `json:"body,omitempty"`
	Err    string          `json:"err,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest wraps a payload into a request message
func NewRequest(p payload.Payload) (*Message, error) {
	body, err := payload.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &Message{Method: p.Meta().Method, Body: body}, nil
}

// NewResponse wraps a processed payload into a response message
func NewResponse(p payload.Payload) *Message {
	body, err := payload.Marshal(p)
	if err != nil {
		return NewErrorResponse(p.Meta().Method, "failed to encode result: %v", err)
	}
	return &Message{Method: p.Meta().Method, Body: body}
}

// NewErrorResponse creates a response for a request that could not be processed
func NewErrorResponse(method payload.Method, format string, args ...any) *Message {
	return &Message{
		Method: method,
		Err:    fmt.Sprintf(format, args...),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Payload decodes the body into a payload of the message method
func (m *Message) Payload() (payload.Payload, error) {
	if !m.Method.IsValid() {
		return nil, payload.NewError(payload.KindInternalError, m.Method, "unknown method %q", m.Method)
	}
	if len(m.Body) == 0 {
		return payload.New(m.Method)
	}
	return payload.Unmarshal(m.Method, m.Body)
}

// IsError reports whether the message is an error response
func (m *Message) IsError() bool { return m.Err != "" }

// String returns a short description of the message for logging
func (m *Message) String() string {
	if m.IsError() {
		return fmt.Sprintf("%s (error: %s)", m.Method, m.Err)
	}
	return fmt.Sprintf("%s (%d bytes)", m.Method, len(m.Body))
}
