package provider

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/payload"
)

// Provider is the storage backend contract. All methods are safe for concurrent use.
type Provider interface {
	// Init is called once by the store before any operation. name is the
	// store name, providers may use it to namespace their data.
	Init(ctx context.Context, name string) error
	// Close releases the resources held by the provider
	Close() error

	AutoKey(ctx context.Context, p *payload.AutoKeyPayload) *payload.AutoKeyPayload
	Clear(ctx context.Context, p *payload.ClearPayload) *payload.ClearPayload
	Dec(ctx context.Context, p *payload.DecPayload) *payload.DecPayload
	Delete(ctx context.Context, p *payload.DeletePayload) *payload.DeletePayload
	DeleteMany(ctx context.Context, p *payload.DeleteManyPayload) *payload.DeleteManyPayload
	Each(ctx context.Context, p *payload.EachPayload) *payload.EachPayload
	Ensure(ctx context.Context, p *payload.EnsurePayload) *payload.EnsurePayload
	Every(ctx context.Context, p *payload.EveryPayload) *payload.EveryPayload
	Filter(ctx context.Context, p *payload.FilterPayload) *payload.FilterPayload
	Find(ctx context.Context, p *payload.FindPayload) *payload.FindPayload
	Get(ctx context.Context, p *payload.GetPayload) *payload.GetPayload
	GetAll(ctx context.Context, p *payload.GetAllPayload) *payload.GetAllPayload
	GetMany(ctx context.Context, p *payload.GetManyPayload) *payload.GetManyPayload
	Has(ctx context.Context, p *payload.HasPayload) *payload.HasPayload
	Inc(ctx context.Context, p *payload.IncPayload) *payload.IncPayload
	Keys(ctx context.Context, p *payload.KeysPayload) *payload.KeysPayload
	Map(ctx context.Context, p *payload.MapPayload) *payload.MapPayload
	Math(ctx context.Context, p *payload.MathPayload) *payload.MathPayload
	Partition(ctx context.Context, p *payload.PartitionPayload) *payload.PartitionPayload
	Push(ctx context.Context, p *payload.PushPayload) *payload.PushPayload
	Random(ctx context.Context, p *payload.RandomPayload) *payload.RandomPayload
	RandomKey(ctx context.Context, p *payload.RandomKeyPayload) *payload.RandomKeyPayload
	Remove(ctx context.Context, p *payload.RemovePayload) *payload.RemovePayload
	Set(ctx context.Context, p *payload.SetPayload) *payload.SetPayload
	SetMany(ctx context.Context, p *payload.SetManyPayload) *payload.SetManyPayload
	Size(ctx context.Context, p *payload.SizePayload) *payload.SizePayload
	Some(ctx context.Context, p *payload.SomePayload) *payload.SomePayload
	Update(ctx context.Context, p *payload.UpdatePayload) *payload.UpdatePayload
	Values(ctx context.Context, p *payload.ValuesPayload) *payload.ValuesPayload
}

// Factory creates a new, uninitialized provider
type Factory func() Provider

// Dispatch calls the provider method matching the payload type
func Dispatch(ctx context.Context, prov Provider, p payload.Payload) payload.Payload {
	switch t := p.(type) {
	case *payload.AutoKeyPayload:
		return prov.AutoKey(ctx, t)
	case *payload.ClearPayload:
		return prov.Clear(ctx, t)
	case *payload.DecPayload:
		return prov.Dec(ctx, t)
	case *payload.DeletePayload:
		return prov.Delete(ctx, t)
	case *payload.DeleteManyPayload:
		return prov.DeleteMany(ctx, t)
	case *payload.EachPayload:
		return prov.Each(ctx, t)
	case *payload.EnsurePayload:
		return prov.Ensure(ctx, t)
	case *payload.EveryPayload:
		return prov.Every(ctx, t)
	case *payload.FilterPayload:
		return prov.Filter(ctx, t)
	case *payload.FindPayload:
		return prov.Find(ctx, t)
	case *payload.GetPayload:
		return prov.Get(ctx, t)
	case *payload.GetAllPayload:
		return prov.GetAll(ctx, t)
	case *payload.GetManyPayload:
		return prov.GetMany(ctx, t)
	case *payload.HasPayload:
		return prov.Has(ctx, t)
	case *payload.IncPayload:
		return prov.Inc(ctx, t)
	case *payload.KeysPayload:
		return prov.Keys(ctx, t)
	case *payload.MapPayload:
		return prov.Map(ctx, t)
	case *payload.MathPayload:
		return prov.Math(ctx, t)
	case *payload.PartitionPayload:
		return prov.Partition(ctx, t)
	case *payload.PushPayload:
		return prov.Push(ctx, t)
	case *payload.RandomPayload:
		return prov.Random(ctx, t)
	case *payload.RandomKeyPayload:
		return prov.RandomKey(ctx, t)
	case *payload.RemovePayload:
		return prov.Remove(ctx, t)
	case *payload.SetPayload:
		return prov.Set(ctx, t)
	case *payload.SetManyPayload:
		return prov.SetMany(ctx, t)
	case *payload.SizePayload:
		return prov.Size(ctx, t)
	case *payload.SomePayload:
		return prov.Some(ctx, t)
	case *payload.UpdatePayload:
		return prov.Update(ctx, t)
	case *payload.ValuesPayload:
		return prov.Values(ctx, t)
	}
	p.Meta().Error = payload.NewError(payload.KindInternalError, p.Meta().Method, "unsupported payload type %T", p)
	return p
}
