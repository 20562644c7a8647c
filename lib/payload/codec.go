package payload

import "encoding/json"

// Marshal encodes a payload as JSON. Payloads that depend on hooks are
// rejected with InvalidValueType, since the hook would be lost.
func Marshal(p Payload) ([]byte, error) {
	if Hooked(p) {
		return nil, NewError(KindInvalidValueType, p.Meta().Method, "payloads with hooks cannot be encoded")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, NewError(KindInvalidValueType, p.Meta().Method, "encoding failed: %v", err)
	}
	return data, nil
}

// Unmarshal decodes a payload of the given method
func Unmarshal(m Method, data []byte) (Payload, error) {
	p, err := New(m)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, NewError(KindInvalidValueType, m, "decoding failed: %v", err)
	}
	// the method of the envelope wins over the body
	p.Meta().Method = m
	return p, nil
}

// Merge copies the result fields of an encoded result into p. p and the
// encoded payload must be of the same method.
func Merge(p Payload, data []byte) error {
	if err := json.Unmarshal(data, p); err != nil {
		return NewError(KindInternalError, p.Meta().Method, "decoding result failed: %v", err)
	}
	return nil
}
