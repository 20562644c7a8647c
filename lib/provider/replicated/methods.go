package replicated

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see provider.Provider)
// --------------------------------------------------------------------------

func (r *Provider) AutoKey(ctx context.Context, p *payload.AutoKeyPayload) *payload.AutoKeyPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Clear(ctx context.Context, p *payload.ClearPayload) *payload.ClearPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Dec(ctx context.Context, p *payload.DecPayload) *payload.DecPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Delete(ctx context.Context, p *payload.DeletePayload) *payload.DeletePayload {
	return execute(ctx, r, p)
}

func (r *Provider) DeleteMany(ctx context.Context, p *payload.DeleteManyPayload) *payload.DeleteManyPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Each(ctx context.Context, p *payload.EachPayload) *payload.EachPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Ensure(ctx context.Context, p *payload.EnsurePayload) *payload.EnsurePayload {
	return execute(ctx, r, p)
}

func (r *Provider) Every(ctx context.Context, p *payload.EveryPayload) *payload.EveryPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Filter(ctx context.Context, p *payload.FilterPayload) *payload.FilterPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Find(ctx context.Context, p *payload.FindPayload) *payload.FindPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Get(ctx context.Context, p *payload.GetPayload) *payload.GetPayload {
	return execute(ctx, r, p)
}

func (r *Provider) GetAll(ctx context.Context, p *payload.GetAllPayload) *payload.GetAllPayload {
	return execute(ctx, r, p)
}

func (r *Provider) GetMany(ctx context.Context, p *payload.GetManyPayload) *payload.GetManyPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Has(ctx context.Context, p *payload.HasPayload) *payload.HasPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Inc(ctx context.Context, p *payload.IncPayload) *payload.IncPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Keys(ctx context.Context, p *payload.KeysPayload) *payload.KeysPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Map(ctx context.Context, p *payload.MapPayload) *payload.MapPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Math(ctx context.Context, p *payload.MathPayload) *payload.MathPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Partition(ctx context.Context, p *payload.PartitionPayload) *payload.PartitionPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Push(ctx context.Context, p *payload.PushPayload) *payload.PushPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Random(ctx context.Context, p *payload.RandomPayload) *payload.RandomPayload {
	return execute(ctx, r, p)
}

func (r *Provider) RandomKey(ctx context.Context, p *payload.RandomKeyPayload) *payload.RandomKeyPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Remove(ctx context.Context, p *payload.RemovePayload) *payload.RemovePayload {
	return execute(ctx, r, p)
}

func (r *Provider) Set(ctx context.Context, p *payload.SetPayload) *payload.SetPayload {
	return execute(ctx, r, p)
}

func (r *Provider) SetMany(ctx context.Context, p *payload.SetManyPayload) *payload.SetManyPayload {
	return execute(ctx, r, p)
}

func (r *Provider) Size(ctx context.Context, p *payload.SizePayload) *payload.SizePayload {
	return execute(ctx, r, p)
}

func (r *Provider) Some(ctx context.Context, p *payload.SomePayload) *payload.SomePayload {
	return execute(ctx, r, p)
}

func (r *Provider) Update(ctx context.Context, p *payload.UpdatePayload) *payload.UpdatePayload {
	return execute(ctx, r, p)
}

func (r *Provider) Values(ctx context.Context, p *payload.ValuesPayload) *payload.ValuesPayload {
	return execute(ctx, r, p)
}
