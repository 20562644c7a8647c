package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
)

// recorder is a middleware that appends its name to a shared trace
type recorder struct {
	name   string
	conds  []Condition
	trace  *[]string
	run    func(p payload.Payload) payload.Payload
	inited bool
	closed bool
}

func (r *recorder) Name() string            { return r.name }
func (r *recorder) Conditions() []Condition { return r.conds }
func (r *recorder) Close() error            { r.closed = true; return nil }

func (r *recorder) Init(_ context.Context, _ Host) error {
	r.inited = true
	return nil
}

func (r *recorder) Run(_ context.Context, p payload.Payload) payload.Payload {
	*r.trace = append(*r.trace, r.name+"@"+p.Meta().Trigger.String())
	if r.run != nil {
		return r.run(p)
	}
	return p
}

func newRecorder(name string, trace *[]string, conds ...Condition) *recorder {
	return &recorder{name: name, conds: conds, trace: trace}
}

var (
	ctx     = context.Background()
	prePost = []Condition{
		On(payload.TriggerPreProvider, payload.MethodGet, payload.MethodSet),
		On(payload.TriggerPostProvider, payload.MethodGet, payload.MethodSet),
	}
)

func TestOrdering(t *testing.T) {
	var trace []string
	p, err := New(
		Use(newRecorder("c", &trace, prePost...), 10),
		Use(newRecorder("a", &trace, prePost...), 0),
		Use(newRecorder("b", &trace, prePost...), 0),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if got := p.Stage(payload.MethodGet, payload.TriggerPreProvider); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected stage order %v, got %v", want, got)
	}

	p.Execute(ctx, memory.New(), payload.NewGet("k", nil))
	wantTrace := []string{
		"a@preProvider", "b@preProvider", "c@preProvider",
		"a@postProvider", "b@postProvider", "c@postProvider",
	}
	if !reflect.DeepEqual(trace, wantTrace) {
		t.Errorf("Expected trace %v, got %v", wantTrace, trace)
	}
}

func TestConditionsSelectMethods(t *testing.T) {
	var trace []string
	p, err := New(
		Use(newRecorder("writes", &trace, On(payload.TriggerPreProvider, payload.MethodSet)), 0),
		Use(newRecorder("reads", &trace, On(payload.TriggerPostProvider, payload.MethodGet)), 0),
	)
	if err != nil {
		t.Fatal(err)
	}

	prov := memory.New()
	p.Execute(ctx, prov, payload.NewSet("k", nil, 1))
	p.Execute(ctx, prov, payload.NewGet("k", nil))
	p.Execute(ctx, prov, payload.NewKeys())

	want := []string{"writes@preProvider", "reads@postProvider"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("Expected trace %v, got %v", want, trace)
	}
}

func TestErrorHaltsPipeline(t *testing.T) {
	var trace []string
	failing := newRecorder("fail", &trace, prePost...)
	failing.run = func(p payload.Payload) payload.Payload {
		p.Meta().Fail(payload.KindInvalidValueType, "rejected")
		return p
	}

	p, err := New(
		Use(failing, 0),
		Use(newRecorder("after", &trace, prePost...), 1),
	)
	if err != nil {
		t.Fatal(err)
	}

	prov := memory.New()
	res := p.Execute(ctx, prov, payload.NewSet("k", nil, 1))
	if !errors.Is(res.Meta().Error, payload.ErrInvalidValueType) {
		t.Errorf("Expected InvalidValueType, got %v", res.Meta().Error)
	}
	if !reflect.DeepEqual(trace, []string{"fail@preProvider"}) {
		t.Errorf("Expected only the failing middleware to run, got %v", trace)
	}
	if has := prov.Has(ctx, payload.NewHas("k", nil)); has.Data {
		t.Error("Provider must not be called after a pre-provider error")
	}
}

func TestProviderErrorSkipsPostStage(t *testing.T) {
	var trace []string
	p, _ := New(Use(newRecorder("post", &trace, On(payload.TriggerPostProvider, payload.MethodInc)), 0))

	res := p.Execute(ctx, memory.New(), payload.NewInc("missing", nil))
	if !errors.Is(res.Meta().Error, payload.ErrMissingData) {
		t.Errorf("Expected MissingData, got %v", res.Meta().Error)
	}
	if len(trace) != 0 {
		t.Errorf("Expected no post-provider middleware to run, got %v", trace)
	}
}

func TestFulfilledSkipsProvider(t *testing.T) {
	var trace []string
	short := newRecorder("short", &trace, prePost...)
	short.run = func(p payload.Payload) payload.Payload {
		if g, ok := p.(*payload.GetPayload); ok && g.Trigger == payload.TriggerPreProvider {
			g.Data, g.Loaded, g.Fulfilled = "from middleware", true, true
		}
		return p
	}

	p, _ := New(Use(short, 0))
	res := p.Execute(ctx, memory.New(), payload.NewGet("k", nil)).(*payload.GetPayload)

	if res.Data != "from middleware" || !res.Loaded {
		t.Errorf("Expected middleware result, got %v", res.Data)
	}
	if res.Trigger != payload.TriggerPostProvider {
		t.Errorf("Expected post-provider stage to run, got trigger %s", res.Trigger)
	}
}

func TestPayloadThreading(t *testing.T) {
	var trace []string
	swap := newRecorder("swap", &trace, On(payload.TriggerPostProvider, payload.MethodGet))
	swap.run = func(p payload.Payload) payload.Payload {
		replaced := payload.NewGet("other", nil)
		replaced.Trigger = p.Meta().Trigger
		replaced.Data = "replaced"
		return replaced
	}
	seen := newRecorder("seen", &trace, On(payload.TriggerPostProvider, payload.MethodGet))
	var got any
	seen.run = func(p payload.Payload) payload.Payload {
		got = p.(*payload.GetPayload).Data
		return p
	}

	pl, _ := New(Use(swap, 0), Use(seen, 1))
	res := pl.Execute(ctx, memory.New(), payload.NewGet("k", nil))

	if got != "replaced" || res.(*payload.GetPayload).Data != "replaced" {
		t.Errorf("Expected each middleware to receive the previous result, got %v", got)
	}
}

func TestRegistration(t *testing.T) {
	t.Run("Replace", func(t *testing.T) {
		var trace []string
		p, err := New(
			Use(newRecorder("cache", &trace, prePost...), 0),
			Use(newRecorder("other", &trace, prePost...), 0),
			Registration{Name: "cache", Middleware: newRecorder("cache-v2", &trace, prePost...)},
		)
		if err != nil {
			t.Fatal(err)
		}
		if names := p.Names(); !reflect.DeepEqual(names, []string{"other", "cache"}) {
			t.Errorf("Expected replacement to be registered last, got %v", names)
		}
		mw, err := p.Middleware("cache")
		if err != nil || mw.Name() != "cache-v2" {
			t.Errorf("Expected replaced middleware, got %v, %v", mw, err)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		var trace []string
		mw := newRecorder("off", &trace, prePost...)
		p, _ := New(Registration{Middleware: mw, Disabled: true})

		p.Execute(ctx, memory.New(), payload.NewGet("k", nil))
		if len(trace) != 0 {
			t.Errorf("Disabled middleware must not run, got %v", trace)
		}
		if err := p.Init(ctx, Host{Name: "test"}); err != nil || mw.inited {
			t.Error("Disabled middleware must not be initialized")
		}
		if _, err := p.Middleware("off"); err != nil {
			t.Errorf("Disabled middleware should still be found, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		p, _ := New()
		if _, err := p.Middleware("missing"); !errors.Is(err, payload.ErrMiddlewareNotFound) {
			t.Errorf("Expected MiddlewareNotFound, got %v", err)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		var trace []string
		if _, err := New(Registration{}); !errors.Is(err, payload.ErrMissingValue) {
			t.Errorf("Expected MissingValue for a nil middleware, got %v", err)
		}
		if _, err := New(Use(newRecorder("", &trace), 0)); !errors.Is(err, payload.ErrMissingName) {
			t.Errorf("Expected MissingName, got %v", err)
		}
		bad := newRecorder("bad", &trace, On(payload.TriggerPreProvider, "explode"))
		if _, err := New(Use(bad, 0)); !errors.Is(err, payload.ErrInvalidOption) {
			t.Errorf("Expected InvalidOption for an unknown method, got %v", err)
		}
		none := newRecorder("none", &trace, On(payload.TriggerNone, payload.MethodGet))
		if _, err := New(Use(none, 0)); !errors.Is(err, payload.ErrInvalidOption) {
			t.Errorf("Expected InvalidOption for a missing trigger, got %v", err)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		var trace []string
		mw := newRecorder("life", &trace, prePost...)
		p, _ := New(Use(mw, 0))
		if err := p.Init(ctx, Host{Name: "test"}); err != nil || !mw.inited {
			t.Error("Expected middleware to be initialized")
		}
		if err := p.Close(); err != nil || !mw.closed {
			t.Error("Expected middleware to be closed")
		}
	})
}
