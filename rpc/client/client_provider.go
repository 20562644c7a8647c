package client

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/rpc/common"
	"github.com/ValentinKolb/mkv/rpc/serializer"
	"github.com/ValentinKolb/mkv/rpc/transport"
)

// NewRPCProvider creates a provider that forwards every payload to a collection of a server.
// The function takes the collection name, a config, a transport and a serializer as parameters.
// The transport is connected immediately.
func NewRPCProvider(
	collection string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*Provider, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &Provider{
		rpcClientAdapter{
			collection: collection,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// Provider implements provider.Provider for a remote collection.
// Payloads with hooks cannot cross the wire and fail with InvalidValueType.
type Provider struct {
	rpcClientAdapter
}

// Collection returns the name of the remote collection
func (r *Provider) Collection() string { return r.collection }

// Init checks that the server serves the collection
func (r *Provider) Init(ctx context.Context, name string) error {
	p := invokeRPCRequest(ctx, &r.rpcClientAdapter, payload.NewSize())
	if p.Error != nil {
		return p.Error
	}
	Logger.Debugf("remote collection %s ready for %s (%d entries)", r.collection, name, p.Data)
	return nil
}

// Close closes the transport
func (r *Provider) Close() error {
	return r.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see provider.Provider)
// --------------------------------------------------------------------------

func (r *Provider) AutoKey(ctx context.Context, p *payload.AutoKeyPayload) *payload.AutoKeyPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Clear(ctx context.Context, p *payload.ClearPayload) *payload.ClearPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Dec(ctx context.Context, p *payload.DecPayload) *payload.DecPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Delete(ctx context.Context, p *payload.DeletePayload) *payload.DeletePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) DeleteMany(ctx context.Context, p *payload.DeleteManyPayload) *payload.DeleteManyPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Each(ctx context.Context, p *payload.EachPayload) *payload.EachPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Ensure(ctx context.Context, p *payload.EnsurePayload) *payload.EnsurePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Every(ctx context.Context, p *payload.EveryPayload) *payload.EveryPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Filter(ctx context.Context, p *payload.FilterPayload) *payload.FilterPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Find(ctx context.Context, p *payload.FindPayload) *payload.FindPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Get(ctx context.Context, p *payload.GetPayload) *payload.GetPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) GetAll(ctx context.Context, p *payload.GetAllPayload) *payload.GetAllPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) GetMany(ctx context.Context, p *payload.GetManyPayload) *payload.GetManyPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Has(ctx context.Context, p *payload.HasPayload) *payload.HasPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Inc(ctx context.Context, p *payload.IncPayload) *payload.IncPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Keys(ctx context.Context, p *payload.KeysPayload) *payload.KeysPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Map(ctx context.Context, p *payload.MapPayload) *payload.MapPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Math(ctx context.Context, p *payload.MathPayload) *payload.MathPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Partition(ctx context.Context, p *payload.PartitionPayload) *payload.PartitionPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Push(ctx context.Context, p *payload.PushPayload) *payload.PushPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Random(ctx context.Context, p *payload.RandomPayload) *payload.RandomPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) RandomKey(ctx context.Context, p *payload.RandomKeyPayload) *payload.RandomKeyPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Remove(ctx context.Context, p *payload.RemovePayload) *payload.RemovePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Set(ctx context.Context, p *payload.SetPayload) *payload.SetPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) SetMany(ctx context.Context, p *payload.SetManyPayload) *payload.SetManyPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Size(ctx context.Context, p *payload.SizePayload) *payload.SizePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Some(ctx context.Context, p *payload.SomePayload) *payload.SomePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Update(ctx context.Context, p *payload.UpdatePayload) *payload.UpdatePayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}

func (r *Provider) Values(ctx context.Context, p *payload.ValuesPayload) *payload.ValuesPayload {
	return invokeRPCRequest(ctx, &r.rpcClientAdapter, p)
}
