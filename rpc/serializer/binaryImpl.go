package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasMethod byte = 1 << 0
	hasBody   byte = 1 << 1
	hasErr    byte = 1 << 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// Format:
//   - 1 byte: flags
//   - if hasMethod: 2 bytes method length (uint16, big endian) + method
//   - if hasBody: 4 bytes body length (uint32, big endian) + body
//   - if hasErr: 4 bytes error length (uint32, big endian) + error
func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if len(msg.Method) > 0xFFFF {
		return nil, fmt.Errorf("method name too long (%d bytes)", len(msg.Method))
	}

	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 1 // Start after flags

	// Handle Method
	if msg.Method != "" {
		flags |= hasMethod
		methodLen := len(msg.Method)

		// Write method length
		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(methodLen))
		pos += 2

		// Write method data
		copy(result[pos:pos+methodLen], msg.Method)
		pos += methodLen
	}

	// Handle Body
	if msg.Body != nil {
		flags |= hasBody
		bodyLen := len(msg.Body)

		// Write body length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(bodyLen))
		pos += 4

		// Write body data
		copy(result[pos:pos+bodyLen], msg.Body)
		pos += bodyLen
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errLen := len(msg.Err)

		// Write error length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		// Write error data
		copy(result[pos:pos+errLen], msg.Err)
	}

	// Set flags byte after knowing which fields are present
	result[0] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (flags)
	if len(data) < 1 {
		return fmt.Errorf("data too short for message header")
	}

	// Read flags
	flags := data[0]
	if flags&^(hasMethod|hasBody|hasErr) != 0 {
		return fmt.Errorf("unknown flags %08b", flags)
	}

	// Initialize read position
	pos := 1

	// Read Method if present
	if flags&hasMethod != 0 {
		if pos+2 > len(data) {
			return fmt.Errorf("data too short for method length")
		}

		methodLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if pos+methodLen > len(data) {
			return fmt.Errorf("data too short for method data")
		}

		msg.Method = payload.Method(data[pos : pos+methodLen])
		pos += methodLen
	} else {
		msg.Method = ""
	}

	// Read Body if present
	if flags&hasBody != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for body length")
		}

		bodyLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		if pos+bodyLen > len(data) {
			return fmt.Errorf("data too short for body data")
		}

		// the transport may reuse data, so the body is copied
		msg.Body = make([]byte, bodyLen)
		copy(msg.Body, data[pos:pos+bodyLen])
		pos += bodyLen
	} else {
		msg.Body = nil
	}

	// Read Err if present
	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}

		errLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		if pos+errLen > len(data) {
			return fmt.Errorf("data too short for error data")
		}

		msg.Err = string(data[pos : pos+errLen])
		pos += errLen
	} else {
		msg.Err = ""
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-pos)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the exact size needed for the serialized message
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 1 // flags

	if msg.Method != "" {
		size += 2 + len(msg.Method)
	}
	if msg.Body != nil {
		size += 4 + len(msg.Body)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}
