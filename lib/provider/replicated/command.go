package replicated

import (
	"encoding/json"

	"github.com/ValentinKolb/mkv/lib/payload"
)

// command is a single entry in the raft log
type command struct {
	Method payload.Method  `json:"method"`
	Body   json.RawMessage `json:"body"`
}

// EncodeCommand encodes a mutating payload for proposal
func EncodeCommand(p payload.Payload) ([]byte, error) {
	m := p.Meta().Method
	if !m.IsMutating() {
		return nil, payload.NewError(payload.KindInternalError, m, "%s is not a mutation", m)
	}
	if payload.Hooked(p) {
		return nil, payload.NewError(payload.KindInvalidValueType, m, "%s with a hook cannot be replicated", m)
	}
	body, err := payload.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(command{Method: m, Body: body})
}

// DecodeCommand decodes a proposed command into its payload
func DecodeCommand(data []byte) (payload.Payload, error) {
	if len(data) == 0 {
		return nil, payload.NewError(payload.KindInternalError, "", "empty command")
	}
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, payload.NewError(payload.KindInternalError, "", "failed to decode command: %v", err)
	}
	if !cmd.Method.IsMutating() {
		return nil, payload.NewError(payload.KindInternalError, cmd.Method, "%s is not a mutation", cmd.Method)
	}
	p, err := payload.Unmarshal(cmd.Method, cmd.Body)
	if err != nil {
		return nil, err
	}
	// the pipeline state of the proposer is meaningless on the replicas
	meta := p.Meta()
	meta.Trigger, meta.Error = payload.TriggerNone, nil
	return p, nil
}
