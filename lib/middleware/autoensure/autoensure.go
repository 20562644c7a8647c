// Package autoensure provides a middleware that makes absent entries look
// like they hold a configured default value.
//
// Before mutations that require existing data (inc, dec, math, push, remove)
// and before writes into a sub-path (set, setMany with a path) the middleware
// calls ensure on the provider, so the entry exists with the default value
// when the mutation runs. After reads (get, getMany, update) absent results
// are replaced by the default; nothing is written in that case.
//
// The middleware never fails a payload itself. Ensure failures are logged and
// the mutation runs against the unchanged provider state.
package autoensure

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/go-viper/mapstructure/v2"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("autoensure")

// Name is the default registration name
const Name = "autoEnsure"

// Config holds the options of the middleware
type Config struct {
	DefaultValue any `mapstructure:"defaultValue"`
}

// Middleware implements pipeline.Middleware
type Middleware struct {
	defaultValue any
	store        string
	backing      provider.Provider
}

// New creates the middleware with the given default value
func New(defaultValue any) (*Middleware, error) {
	v, err := jsonval.Normalize(defaultValue)
	if err != nil {
		return nil, payload.NewError(payload.KindInvalidValueType, "", "default value is not representable: %v", err)
	}
	return &Middleware{defaultValue: v}, nil
}

// FromOptions creates the middleware from an option map. The map must
// contain defaultValue and nothing else.
func FromOptions(opts map[string]any) (*Middleware, error) {
	if _, ok := opts["defaultValue"]; !ok {
		return nil, payload.NewError(payload.KindMissingValue, "", "autoEnsure: defaultValue is required")
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(opts); err != nil {
		return nil, payload.NewError(payload.KindInvalidOption, "", "autoEnsure: %v", err)
	}
	return New(cfg.DefaultValue)
}

// Default returns a copy of the default value
func (m *Middleware) Default() any { return jsonval.Clone(m.defaultValue) }

// --------------------------------------------------------------------------
// Interface Methods (docu see pipeline.Middleware)
// --------------------------------------------------------------------------

func (m *Middleware) Name() string { return Name }

func (m *Middleware) Conditions() []pipeline.Condition {
	return []pipeline.Condition{
		pipeline.On(payload.TriggerPreProvider,
			payload.MethodDec, payload.MethodInc, payload.MethodPush, payload.MethodMath,
			payload.MethodRemove, payload.MethodSet, payload.MethodSetMany),
		pipeline.On(payload.TriggerPostProvider,
			payload.MethodGet, payload.MethodGetMany, payload.MethodUpdate),
	}
}

func (m *Middleware) Init(_ context.Context, host pipeline.Host) error {
	m.store = host.Name
	m.backing = host.Provider
	return nil
}

func (m *Middleware) Close() error { return nil }

func (m *Middleware) Run(ctx context.Context, p payload.Payload) payload.Payload {
	if p.Meta().Trigger == payload.TriggerPreProvider {
		m.before(ctx, p)
	} else {
		m.after(p)
	}
	return p
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (m *Middleware) before(ctx context.Context, p payload.Payload) {
	switch t := p.(type) {
	case *payload.IncPayload:
		m.ensure(ctx, t.Key)
	case *payload.DecPayload:
		m.ensure(ctx, t.Key)
	case *payload.MathPayload:
		m.ensure(ctx, t.Key)
	case *payload.PushPayload:
		m.ensure(ctx, t.Key)
	case *payload.RemovePayload:
		m.ensure(ctx, t.Key)
	case *payload.SetPayload:
		if len(t.Path) > 0 {
			m.ensure(ctx, t.Key)
		}
	case *payload.SetManyPayload:
		// without overwrite an ensured key would be skipped by the provider
		if !t.Overwrite {
			return
		}
		for _, entry := range t.Entries {
			if len(entry.Path) > 0 {
				m.ensure(ctx, entry.Key)
			}
		}
	}
}

func (m *Middleware) after(p payload.Payload) {
	switch t := p.(type) {
	case *payload.GetPayload:
		if t.Loaded {
			return
		}
		v, ok := path.Get(m.Default(), t.Path)
		if ok {
			t.Data, t.Loaded = v, true
		}
	case *payload.GetManyPayload:
		if t.Data == nil {
			t.Data = make(map[string]any, len(t.Keys))
		}
		for _, key := range t.Keys {
			if _, ok := t.Data[key]; !ok {
				t.Data[key] = m.Default()
			}
		}
	case *payload.UpdatePayload:
		if t.Data == nil {
			t.Data = m.Default()
		}
	}
}

func (m *Middleware) ensure(ctx context.Context, key string) {
	res := m.backing.Ensure(ctx, payload.NewEnsure(key, m.Default()))
	if res.Error != nil {
		log.Warningf("%s: ensure %q failed: %v", m.store, key, res.Error)
	}
}
