package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/mkv/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// The payload body is embedded as a JSON object, not as a base64 string.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json: failed to encode %s message: %w", msg.Method, err)
	}
	return data, nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// fields missing in b must not survive from a previous message
	*msg = common.Message{}
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json: failed to decode message: %w", err)
	}
	return nil
}
