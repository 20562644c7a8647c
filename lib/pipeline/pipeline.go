package pipeline

import (
	"context"
	"errors"
	"sort"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("pipeline")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Condition selects the methods and the stage a middleware runs for
type Condition struct {
	Methods []payload.Method
	Trigger payload.Trigger
}

// On creates a condition for the given trigger and methods
func On(trigger payload.Trigger, methods ...payload.Method) Condition {
	return Condition{Methods: methods, Trigger: trigger}
}

// Host is handed to middleware on initialization
type Host struct {
	// Name of the store the middleware runs in
	Name string
	// Provider of the store. Middleware may call it directly, such calls do
	// not pass through the pipeline.
	Provider provider.Provider
}

// Middleware intercepts payloads before or after the provider call
type Middleware interface {
	// Name is the default registration name
	Name() string
	// Conditions are the default conditions of the middleware
	Conditions() []Condition
	// Init is called once before the first payload is run
	Init(ctx context.Context, host Host) error
	// Run processes a payload and returns the payload for the next stage.
	// Failures are reported by setting the payload error, never by panicking.
	Run(ctx context.Context, p payload.Payload) payload.Payload
	// Close releases the resources held by the middleware
	Close() error
}

// Registration adds a middleware to a pipeline
type Registration struct {
	// Name identifies the registration, defaults to Middleware.Name()
	Name string
	// Position orders middleware within a stage, lower runs first
	Position int
	// Conditions override Middleware.Conditions() if set
	Conditions []Condition
	// Disabled registrations are kept for lookup but never run
	Disabled bool
	// Middleware to run
	Middleware Middleware
}

// Use creates a registration with the defaults of the middleware
func Use(mw Middleware, position int) Registration {
	return Registration{Middleware: mw, Position: position}
}

type stageKey struct {
	method  payload.Method
	trigger payload.Trigger
}

// Pipeline runs the registered middleware around provider calls
type Pipeline struct {
	regs   []Registration // in registration order
	stages map[stageKey][]Registration
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New validates the registrations and precomputes the selection of every stage.
// A registration replaces an earlier one of the same name.
func New(regs ...Registration) (*Pipeline, error) {
	p := &Pipeline{stages: make(map[stageKey][]Registration)}

	for i, reg := range regs {
		if reg.Middleware == nil {
			return nil, payload.NewError(payload.KindMissingValue, "", "registration %d has no middleware", i)
		}
		if reg.Name == "" {
			reg.Name = reg.Middleware.Name()
		}
		if reg.Name == "" {
			return nil, payload.NewError(payload.KindMissingName, "", "registration %d has no name", i)
		}
		if len(reg.Conditions) == 0 {
			reg.Conditions = reg.Middleware.Conditions()
		}
		if err := validate(reg); err != nil {
			return nil, err
		}

		if idx := p.index(reg.Name); idx >= 0 {
			log.Debugf("middleware %s registered again, replacing the earlier registration", reg.Name)
			p.regs = append(p.regs[:idx], p.regs[idx+1:]...)
		}
		p.regs = append(p.regs, reg)
	}

	for _, method := range payload.Methods {
		for _, trigger := range []payload.Trigger{payload.TriggerPreProvider, payload.TriggerPostProvider} {
			var selected []Registration
			for _, reg := range p.regs {
				if !reg.Disabled && matches(reg.Conditions, method, trigger) {
					selected = append(selected, reg)
				}
			}
			sort.SliceStable(selected, func(i, j int) bool {
				return selected[i].Position < selected[j].Position
			})
			if len(selected) > 0 {
				p.stages[stageKey{method, trigger}] = selected
			}
		}
	}
	return p, nil
}

func validate(reg Registration) error {
	for _, cond := range reg.Conditions {
		if cond.Trigger != payload.TriggerPreProvider && cond.Trigger != payload.TriggerPostProvider {
			return payload.NewError(payload.KindInvalidOption, "", "middleware %s: invalid trigger %s", reg.Name, cond.Trigger)
		}
		for _, m := range cond.Methods {
			if !m.IsValid() {
				return payload.NewError(payload.KindInvalidOption, "", "middleware %s: unknown method %q", reg.Name, m)
			}
		}
	}
	return nil
}

func matches(conds []Condition, method payload.Method, trigger payload.Trigger) bool {
	for _, cond := range conds {
		if cond.Trigger != trigger {
			continue
		}
		for _, m := range cond.Methods {
			if m == method {
				return true
			}
		}
	}
	return false
}

func (p *Pipeline) index(name string) int {
	for i, reg := range p.regs {
		if reg.Name == name {
			return i
		}
	}
	return -1
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Init initializes all enabled middleware in registration order
func (p *Pipeline) Init(ctx context.Context, host Host) error {
	for _, reg := range p.regs {
		if reg.Disabled {
			continue
		}
		if err := reg.Middleware.Init(ctx, host); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all middleware
func (p *Pipeline) Close() error {
	var errs []error
	for _, reg := range p.regs {
		if err := reg.Middleware.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// Middleware returns the middleware registered under name
func (p *Pipeline) Middleware(name string) (Middleware, error) {
	if idx := p.index(name); idx >= 0 {
		return p.regs[idx].Middleware, nil
	}
	return nil, payload.NewError(payload.KindMiddlewareNotFound, "", "no middleware named %q", name)
}

// Names lists the registration names in registration order
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.regs))
	for i, reg := range p.regs {
		names[i] = reg.Name
	}
	return names
}

// Stage lists the names of the middleware that run for method at trigger, in run order
func (p *Pipeline) Stage(method payload.Method, trigger payload.Trigger) []string {
	regs := p.stages[stageKey{method, trigger}]
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.Name
	}
	return names
}

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

// Execute runs the pre-provider stage, the provider and the post-provider stage
func (p *Pipeline) Execute(ctx context.Context, prov provider.Provider, pl payload.Payload) payload.Payload {
	if pl.Meta().Error != nil {
		return pl
	}

	pl.Meta().Trigger = payload.TriggerPreProvider
	pl, ok := p.run(ctx, pl, payload.TriggerPreProvider)
	if !ok {
		return pl
	}

	if !pl.Meta().Fulfilled {
		pl = provider.Dispatch(ctx, prov, pl)
		if pl.Meta().Error != nil {
			return pl
		}
	}

	pl.Meta().Trigger = payload.TriggerPostProvider
	pl, _ = p.run(ctx, pl, payload.TriggerPostProvider)
	return pl
}

// run reduces the payload over the middleware of one stage
func (p *Pipeline) run(ctx context.Context, pl payload.Payload, trigger payload.Trigger) (payload.Payload, bool) {
	for _, reg := range p.stages[stageKey{pl.Meta().Method, trigger}] {
		next := reg.Middleware.Run(ctx, pl)
		if next == nil {
			pl.Meta().Fail(payload.KindInternalError, "middleware %s returned no payload", reg.Name)
			return pl, false
		}
		pl = next
		if err := pl.Meta().Error; err != nil {
			log.Debugf("middleware %s stopped %s at %s: %v", reg.Name, pl.Meta().Method, trigger, err)
			return pl, false
		}
	}
	return pl, true
}
