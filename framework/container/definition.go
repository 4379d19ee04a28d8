package container

import (
	"reflect"

	"github.com/km-arc/go-spring/framework/aop"
	"github.com/km-arc/go-spring/framework/config"
)

// ── Scopes ───────────────────────────────────────────────────────────────────

// Scope is the caching / lifetime policy of a component.
type Scope string

const (
	// ScopeSingleton caches one instance for the container's lifetime.
	ScopeSingleton Scope = "singleton"
	// ScopePrototype creates a fresh instance per retrieval; ownership
	// transfers to the caller and the container never destroys it.
	ScopePrototype Scope = "prototype"
)

// ── Dependency metadata ──────────────────────────────────────────────────────

// InjectionSite says where a dependency is delivered.
type InjectionSite int

const (
	SiteConstructor InjectionSite = iota
	SiteSetter
	SiteField
)

// DependencyDescriptor is a single injection requirement.
type DependencyDescriptor struct {
	// Capability is the required type (an interface the candidate
	// provides, or its concrete type).
	Capability reflect.Type
	// Qualifier disambiguates by component name when several candidates
	// provide the capability.
	Qualifier string
	// Required makes resolution fail when no candidate exists. Optional
	// unresolved dependencies are skipped (left unset).
	Required bool
	// Collection injects every candidate, in registration order, as []any.
	Collection bool
	// Site records the injection site.
	Site InjectionSite
}

// InjectionPoint is one setter/field injection: a descriptor plus the
// explicit apply step. The container never pokes struct fields itself —
// definitions say how a value lands.
type InjectionPoint struct {
	Name       string
	Dependency DependencyDescriptor
	Apply      func(target, value any) error
}

// Factory constructs the raw instance from the resolved constructor
// arguments, in declaration order.
type Factory func(args []any) (any, error)

// Hook is a lifecycle callback bound to a definition.
type Hook func(instance any) error

// Condition gates registration. Definitions whose condition evaluates
// false at discovery time are never stored — invisible to every lookup.
type Condition func(env *config.Environment) bool

// ── Lifecycle interfaces ─────────────────────────────────────────────────────

// PostConstructor lets a component participate in its own initialization.
// It runs after population, before any hook declared on the definition.
type PostConstructor interface {
	PostConstruct() error
}

// PreDestroyer lets a component release resources at container shutdown.
// It runs before any pre-destroy hook declared on the definition.
type PreDestroyer interface {
	PreDestroy() error
}

// ── Definition ───────────────────────────────────────────────────────────────

// Definition holds everything the container needs to build and manage one
// component: identity, capability set, construction strategy, injection
// points, lifecycle hooks and weaving metadata. Definitions are assembled
// by discovery collaborators (scanners, configuration processors) and are
// immutable once registered.
type Definition struct {
	name            string
	typ             reflect.Type
	provides        []reflect.Type
	scope           Scope
	factory         Factory
	constructorDeps []DependencyDescriptor
	injections      []InjectionPoint
	postConstruct   []Hook
	preDestroy      []Hook
	lazy            bool
	primary         bool
	condition       Condition
	typeMarkers     []string
	methodMarkers   map[string][]string
	proxyBinder     func(p *aop.Proxy) any
}

// TypeOf returns the reflect.Type of T, the way definitions and dependency
// descriptors name capabilities:
//
//	container.TypeOf[UserRepository]()   // interface capability
//	container.TypeOf[*UserService]()     // concrete type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// NewDefinition starts a definition for a component of the given concrete
// type. The zero-configuration result is an eager singleton with no
// dependencies.
func NewDefinition(name string, typ reflect.Type, factory Factory) *Definition {
	return &Definition{
		name:          name,
		typ:           typ,
		scope:         ScopeSingleton,
		factory:       factory,
		methodMarkers: make(map[string][]string),
	}
}

// ── Builder ──────────────────────────────────────────────────────────────────

// Provides declares the capability set: interface types callers may ask
// for. The concrete type itself is always a capability.
func (d *Definition) Provides(capabilities ...reflect.Type) *Definition {
	d.provides = append(d.provides, capabilities...)
	return d
}

// WithScope sets the lifetime policy. Any name other than the built-ins
// must belong to a ScopeStrategy registered on the context.
func (d *Definition) WithScope(scope Scope) *Definition {
	d.scope = scope
	return d
}

// DependsOn appends constructor dependencies, in declaration order.
func (d *Definition) DependsOn(deps ...DependencyDescriptor) *Definition {
	for i := range deps {
		deps[i].Site = SiteConstructor
	}
	d.constructorDeps = append(d.constructorDeps, deps...)
	return d
}

// WithInjection appends a setter/field injection point. Points apply in
// declaration order, after construction and before initialization.
func (d *Definition) WithInjection(points ...InjectionPoint) *Definition {
	d.injections = append(d.injections, points...)
	return d
}

// WithPostConstruct appends initialization hooks, run in declared order.
func (d *Definition) WithPostConstruct(hooks ...Hook) *Definition {
	d.postConstruct = append(d.postConstruct, hooks...)
	return d
}

// WithPreDestroy appends destruction hooks, run in declared order during
// container shutdown.
func (d *Definition) WithPreDestroy(hooks ...Hook) *Definition {
	d.preDestroy = append(d.preDestroy, hooks...)
	return d
}

// Lazy defers instantiation until first retrieval instead of Refresh.
func (d *Definition) Lazy() *Definition {
	d.lazy = true
	return d
}

// Primary marks this definition as the winner when several unqualified
// candidates provide the same capability.
func (d *Definition) Primary() *Definition {
	d.primary = true
	return d
}

// When gates registration on a profile/property condition.
func (d *Definition) When(cond Condition) *Definition {
	d.condition = cond
	return d
}

// WithMarkers attaches type-level markers, the declarative surrogate for
// class annotations. Pointcuts match on them via @type(name).
func (d *Definition) WithMarkers(markers ...string) *Definition {
	d.typeMarkers = append(d.typeMarkers, markers...)
	return d
}

// WithMethodMarkers attaches markers to one method, matched by @method(name).
func (d *Definition) WithMethodMarkers(method string, markers ...string) *Definition {
	d.methodMarkers[method] = append(d.methodMarkers[method], markers...)
	return d
}

// WithProxyBinder installs the typed wrapper constructor used when the
// component is woven: it receives the interception proxy and returns a
// value implementing the component's capability surface. Without a binder
// the *aop.Proxy itself is registered as the bean.
func (d *Definition) WithProxyBinder(binder func(p *aop.Proxy) any) *Definition {
	d.proxyBinder = binder
	return d
}

// ── Accessors ────────────────────────────────────────────────────────────────

func (d *Definition) Name() string                          { return d.name }
func (d *Definition) Type() reflect.Type                    { return d.typ }
func (d *Definition) Scope() Scope                          { return d.scope }
func (d *Definition) IsSingleton() bool                     { return d.scope == ScopeSingleton }
func (d *Definition) IsPrototype() bool                     { return d.scope == ScopePrototype }
func (d *Definition) IsLazy() bool                          { return d.lazy }
func (d *Definition) IsPrimary() bool                       { return d.primary }
func (d *Definition) Capabilities() []reflect.Type          { return d.provides }
func (d *Definition) ConstructorDeps() []DependencyDescriptor { return d.constructorDeps }
func (d *Definition) Injections() []InjectionPoint          { return d.injections }

// providesCapability reports whether this definition satisfies the asked
// capability: its concrete type, or a member of its declared capability
// set. The set is explicit — declared at discovery time and validated at
// registration, never derived per call.
func (d *Definition) providesCapability(t reflect.Type) bool {
	if d.typ == t {
		return true
	}
	for _, c := range d.provides {
		if c == t {
			return true
		}
	}
	return false
}

// surface builds the weaving view of this definition.
func (d *Definition) surface() aop.Surface {
	return aop.Surface{
		Component:     d.name,
		Type:          d.typ,
		TypeMarkers:   d.typeMarkers,
		MethodMarkers: d.methodMarkers,
	}
}

// ── Conditions ───────────────────────────────────────────────────────────────

// ProfileCondition gates a definition on any of the given profiles being
// active.
func ProfileCondition(profiles ...string) Condition {
	return func(env *config.Environment) bool {
		return env != nil && env.Accepts(profiles...)
	}
}

// PropertyCondition gates a definition on a property having the given
// value. An empty want only requires the property to be set.
func PropertyCondition(key, want string) Condition {
	return func(env *config.Environment) bool {
		if env == nil {
			return false
		}
		if want == "" {
			return env.HasProperty(key)
		}
		return env.Property(key, "") == want
	}
}
