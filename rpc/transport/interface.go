package transport

import (
	"io"

	"github.com/ValentinKolb/mkv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes the name of the addressed collection and a request as parameters and returns a response
type ServerHandleFunc func(collection string, req []byte) (resp []byte)

// MetricsFunc writes all metrics in the Prometheus text format to w
type MetricsFunc func(w io.Writer)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until Close is called
	Listen(config common.ServerConfig) error
	// Close stops listening, Listen returns nil afterward
	Close() error
}

// IMetricsTransport is implemented by server transports that can expose metrics
// (currently http on GET /metrics)
type IMetricsTransport interface {
	RegisterMetrics(fn MetricsFunc)
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request for a collection to the server and returns the response
	Send(collection string, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
