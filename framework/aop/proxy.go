package aop

import (
	"fmt"
	"reflect"
	"sync"
)

// ── Weaver ───────────────────────────────────────────────────────────────────

// Weaver collects advice definitions and computes interception plans for
// component surfaces. Registration happens during the container's discovery
// phase; Plan is called when definitions are finalized, before any
// instantiation.
type Weaver struct {
	mu      sync.Mutex
	advices []*Advice
}

// NewWeaver creates an empty weaver.
func NewWeaver() *Weaver { return &Weaver{} }

// Register adds an advice. Discovery order is preserved and breaks ties
// between advice without an explicit order.
func (w *Weaver) Register(a *Advice) error {
	if err := a.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	a.seq = len(w.advices)
	w.advices = append(w.advices, a)
	return nil
}

// AdviceCount returns the number of registered advice definitions.
func (w *Weaver) AdviceCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.advices)
}

// Surface describes the capability surface of one component: its exported
// methods (enumerated from the concrete type) plus the declarative markers
// carried by its definition.
type Surface struct {
	Component     string
	Type          reflect.Type // concrete type, pointer receivers included
	TypeMarkers   []string
	MethodMarkers map[string][]string
}

// Plan computes the advice chains for every method of the surface. It
// returns nil when no advice matches any method — such components are
// registered as plain instances and pay no interception cost.
func (w *Weaver) Plan(s Surface) *Plan {
	w.mu.Lock()
	defer w.mu.Unlock()

	typeName := shortTypeName(s.Type)
	methods := make(map[string]*methodChain)
	for i := 0; i < s.Type.NumMethod(); i++ {
		m := s.Type.Method(i)
		jp := JoinPoint{
			Component:     s.Component,
			Type:          typeName,
			Method:        m.Name,
			TypeMarkers:   s.TypeMarkers,
			MethodMarkers: s.MethodMarkers[m.Name],
		}
		var matched []*Advice
		for _, a := range w.advices {
			if a.pointcut.Matches(jp) {
				matched = append(matched, a)
			}
		}
		if len(matched) == 0 {
			continue
		}
		methods[m.Name] = newMethodChain(jp, matched)
	}
	if len(methods) == 0 {
		return nil
	}
	return &Plan{component: s.Component, methods: methods}
}

// Plan is the cached weave result for one component: matching was computed
// once per (component, method) pair and is never re-evaluated per call.
type Plan struct {
	component string
	methods   map[string]*methodChain
}

// Methods returns the names of the advised methods.
func (p *Plan) Methods() []string {
	out := make([]string, 0, len(p.methods))
	for name := range p.methods {
		out = append(out, name)
	}
	return out
}

// shortTypeName strips the pointer and package qualifier so pointcut
// patterns match on the bare type name ("UserService").
func shortTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// ── Proxy ────────────────────────────────────────────────────────────────────

// Invoker is the call surface of a woven component. Typed wrapper types
// generated per intercepted capability delegate through it.
type Invoker interface {
	Call(method string, args ...any) ([]any, error)
}

// Proxy is the interception wrapper produced by weaving: it holds the real
// instance and the per-method advice chains, and redirects every matched
// call through its chain. Unmatched methods dispatch straight to the
// target.
type Proxy struct {
	target any
	value  reflect.Value
	plan   *Plan
}

// NewProxy wraps target with the given plan.
func NewProxy(target any, plan *Plan) *Proxy {
	return &Proxy{target: target, value: reflect.ValueOf(target), plan: plan}
}

// Target returns the raw, unadvised instance.
func (p *Proxy) Target() any { return p.target }

// Advised reports whether the named method has a non-empty advice chain.
func (p *Proxy) Advised(method string) bool {
	mc, ok := p.plan.methods[method]
	return ok && !mc.empty()
}

// Call invokes the named method through its advice chain. The last return
// value is split off as the error when the method declares one; all other
// return values are delivered positionally.
func (p *Proxy) Call(method string, args ...any) ([]any, error) {
	m := p.value.MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("aop: %s has no method %q", p.value.Type(), method)
	}
	target := func(args []any) ([]any, error) {
		return callMethod(m, args)
	}
	mc, ok := p.plan.methods[method]
	if !ok {
		return target(args)
	}
	return mc.invoke(target, args)
}

// callMethod performs the reflective dispatch and splits a trailing error
// return value off the result slice.
func callMethod(m reflect.Value, args []any) ([]any, error) {
	mt := m.Type()
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, fmt.Errorf("aop: %s wants at least %d args, got %d", mt, mt.NumIn()-1, len(args))
		}
	} else if len(args) != mt.NumIn() {
		return nil, fmt.Errorf("aop: %s wants %d args, got %d", mt, mt.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a != nil {
			in[i] = reflect.ValueOf(a)
			continue
		}
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			in[i] = reflect.Zero(mt.In(mt.NumIn() - 1).Elem())
			continue
		}
		in[i] = reflect.Zero(mt.In(i))
	}

	out := m.Call(in)

	results := make([]any, 0, len(out))
	var err error
	for i, v := range out {
		if i == len(out)-1 && mt.Out(i) == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		results = append(results, v.Interface())
	}
	return results, err
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Return extracts the first result of a Call as T. It is the idiomatic
// bridge inside hand-written capability wrappers:
//
//	func (w *userServiceProxy) Find(id string) (*User, error) {
//	    return aop.Return[*User](w.inv.Call("Find", id))
//	}
func Return[T any](results []any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(results) == 0 || results[0] == nil {
		return zero, nil
	}
	typed, ok := results[0].(T)
	if !ok {
		return zero, fmt.Errorf("aop: result is %T, not %T", results[0], zero)
	}
	return typed, nil
}
