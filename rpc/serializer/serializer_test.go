package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled.
// Bodies are compact JSON since the json serializer embeds them verbatim.
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a method
		{Method: payload.MethodSize},

		// Set request
		{
			Method: payload.MethodSet,
			Body:   []byte(`{"method":"set","key":"user","value":{"name":"ada"}}`),
		},

		// Get response
		{
			Method: payload.MethodGet,
			Body:   []byte(`{"method":"get","key":"user","data":"ada","loaded":true}`),
		},

		// Error response
		{
			Method: payload.MethodInc,
			Err:    "collection not found",
		},

		// Message with all fields filled
		{
			Method: payload.MethodPush,
			Body:   []byte(`{"method":"push","key":"list","values":[1,2,3]}`),
			Err:    "partial failure",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMethods tests each method with each serializer
func TestMethods(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, method := range payload.Methods {
				msg := common.Message{Method: method}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize method %s: %v", method, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize method %s: %v", method, err)
					continue
				}

				if result.Method != method {
					t.Errorf("Method doesn't match after round trip: Expected %s, got %s", method, result.Method)
				}
			}
		})
	}
}

// TestPayloadRoundTrip sends a real payload through each serializer
func TestPayloadRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			req, err := common.NewRequest(payload.NewSet("user", path.Resolve("address.city"), "Berlin"))
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			data, err := serializer.Serialize(*req)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var msg common.Message
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			p, err := msg.Payload()
			if err != nil {
				t.Fatalf("Failed to decode payload: %v", err)
			}
			set, ok := p.(*payload.SetPayload)
			if !ok {
				t.Fatalf("Expected *payload.SetPayload, got %T", p)
			}
			if set.Key != "user" || set.Path.String() != "address.city" || set.Value != "Berlin" {
				t.Errorf("Unexpected payload after round trip: %+v", set)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty body slice but not nil",
			msg: common.Message{
				Method: payload.MethodClear,
				Body:   []byte{},
			},
		},
		{
			name: "Message with non JSON body",
			msg: common.Message{
				Method: payload.MethodSet,
				Body:   []byte{0, 1, 2, 255},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if tc.msg.Method != result.Method {
				t.Errorf("Method mismatch: expected '%s', got '%s'", tc.msg.Method, result.Method)
			}
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}

			// Special handling for byte slices that may be nil or empty
			if (tc.msg.Body == nil) != (result.Body == nil) {
				t.Errorf("Body nil/non-nil mismatch: expected %v, got %v", tc.msg.Body, result.Body)
			} else if !reflect.DeepEqual([]byte(tc.msg.Body), []byte(result.Body)) {
				t.Errorf("Body mismatch: expected %v, got %v", tc.msg.Body, result.Body)
			}
		})
	}
}

// TestBinaryDoesNotAlias checks that the decoded body survives reuse of the input buffer
func TestBinaryDoesNotAlias(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(common.Message{Method: payload.MethodGet, Body: []byte(`{"key":"a"}`)})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	var msg common.Message
	if err := serializer.Deserialize(data, &msg); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	for i := range data {
		data[i] = 0
	}
	if string(msg.Body) != `{"key":"a"}` {
		t.Errorf("Expected body to be unaffected, got %q", msg.Body)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{0},
			expectError: false,
		},
		{
			name:        "Unknown flag",
			data:        []byte{1 << 7},
			expectError: true,
		},
		{
			name:        "Invalid length for method",
			data:        []byte{hasMethod, 0, 5, 'g', 'e', 't'}, // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for body",
			data:        []byte{hasBody, 0, 0, 0, 10}, // Claims length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{hasMethod, 0, 3, 'g', 'e', 't', 'x'},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
