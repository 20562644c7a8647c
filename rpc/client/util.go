package client

import (
	"context"
	"errors"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/rpc/common"
	"github.com/ValentinKolb/mkv/rpc/serializer"
	"github.com/ValentinKolb/mkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

// KindRPCError is the error kind of failures between client and server
const KindRPCError payload.ErrorKind = "RPCError"

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed to send requests for one collection
type rpcClientAdapter struct {
	collection string
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is the helper used for every method to send a payload to the server.
// The result of the server is merged into p, errors are set on p.
func invokeRPCRequest[P payload.Payload](ctx context.Context, a *rpcClientAdapter, p P) P {
	m := p.Meta()
	if err := ctx.Err(); err != nil {
		m.Fail(payload.KindInternalError, "%v", err)
		return p
	}

	// Wrap the payload, fails for payloads with hooks
	req, err := common.NewRequest(p)
	if err != nil {
		m.Error = asError(err, m.Method)
		return p
	}

	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		m.Fail(KindRPCError, "%v", err)
		return p
	}

	respBytes, err := a.transport.Send(a.collection, reqBytes)
	if err != nil {
		m.Fail(KindRPCError, "%v", err)
		return p
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		m.Fail(KindRPCError, "invalid response: %v", err)
		return p
	}

	// Check if the response is an error response
	if resp.IsError() {
		m.Fail(KindRPCError, "%s", resp.Err)
		return p
	}

	// Check if the method of the response is the expected one
	if resp.Method != m.Method {
		m.Fail(KindRPCError, "unexpected response method %s, expected %s", resp.Method, m.Method)
		return p
	}

	// the pipeline stage of the server is not ours
	trigger := m.Trigger
	if err := payload.Merge(p, resp.Body); err != nil {
		m.Fail(KindRPCError, "invalid response body: %v", err)
	}
	m.Trigger = trigger
	return p
}

func asError(err error, m payload.Method) *payload.Error {
	var perr *payload.Error
	if errors.As(err, &perr) {
		return perr
	}
	return payload.NewError(KindRPCError, m, "%v", err)
}
