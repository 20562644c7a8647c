package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
)

const headerSize = 14

// writeFrame writes a frame to the connection with the format:
// - 2 bytes: collection name length (uint16, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - M bytes: collection name
// - N bytes: data payload
func writeFrame(conn net.Conn, collection string, requestID uint64, data []byte) error {
	if len(collection) > math.MaxUint16 {
		return fmt.Errorf("collection name too long (%d bytes)", len(collection))
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint16(header[:2], uint16(len(collection)))
	binary.BigEndian.PutUint64(header[2:10], requestID)
	binary.BigEndian.PutUint32(header[10:14], uint32(len(data)))

	b := net.Buffers{header, []byte(collection), data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(conn net.Conn, buf []byte) (string, uint64, []byte, error) {
	// Check if buffer is large enough for header
	if len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	// Read header
	if _, err := io.ReadFull(conn, buf[:headerSize]); err != nil {
		return "", 0, nil, err
	}

	// Parse header
	nameLength := int(binary.BigEndian.Uint16(buf[:2]))
	requestID := binary.BigEndian.Uint64(buf[2:10])
	contentLength := int(binary.BigEndian.Uint32(buf[10:14]))

	// Read collection name
	name := make([]byte, nameLength)
	if _, err := io.ReadFull(conn, name); err != nil {
		return "", 0, nil, err
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return string(name), requestID, []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < contentLength {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return "", 0, nil, err
	}

	return string(name), requestID, buf[:contentLength], nil
}
