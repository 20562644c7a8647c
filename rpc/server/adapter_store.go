package server

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/store"
	"github.com/ValentinKolb/mkv/rpc/common"
)

// NewStoreServerAdapter creates the adapter that runs request payloads
// through the pipeline of a store
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(ctx context.Context, req *common.Message, s *store.Store) *common.Message {
	if s == nil {
		return common.NewErrorResponse(req.Method, "handler: store is nil")
	}

	p, err := req.Payload()
	if err != nil {
		return common.NewErrorResponse(req.Method, "invalid request: %v", err)
	}
	// pipeline state is owned by the server
	meta := p.Meta()
	meta.Trigger, meta.Error = payload.TriggerNone, nil

	// payload errors are part of the result and travel in the body
	return common.NewResponse(s.Execute(ctx, p))
}
