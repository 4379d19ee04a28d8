package container

import (
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-spring/framework/aop"
	"github.com/km-arc/go-spring/framework/config"
	"github.com/km-arc/go-spring/framework/event"
)

// ApplicationContext is the container facade. It runs in two phases:
// discovery (Register / RegisterAdvice feed the registry and the weaver)
// and refresh (resolve, weave and eagerly instantiate everything that is
// not lazy). After Refresh the registry and singleton cache are effectively
// read-only; retrieval of ready singletons is safe for any number of
// concurrent callers.
//
//	ctx := container.New(container.WithLogger(logger))
//	_ = ctx.Register(repoDef)
//	_ = ctx.Register(serviceDef)
//	_ = ctx.RegisterAdvice(loggingAdvice)
//	if err := ctx.Refresh(); err != nil { ... }
//	svc, err := ctx.GetBean("userService")
//	defer ctx.Close()
type ApplicationContext struct {
	env    *config.Environment
	logger *zap.Logger
	events *event.Publisher

	registry *Registry
	weaver   *aop.Weaver
	scopes   map[Scope]ScopeStrategy
	plans    map[string]*aop.Plan

	// mu guards the flags and the instance bookkeeping; creationMu
	// serializes creation passes so lazy first access builds each
	// singleton at most once.
	mu         sync.RWMutex
	creationMu sync.Mutex
	singletons map[string]any
	records    []*instanceRecord
	refreshed  bool
	closed     bool
}

// New creates an empty context. Defaults: a fresh Environment (reads .env
// when present), a no-op logger and a private event publisher — override
// any of them with options.
func New(opts ...Option) *ApplicationContext {
	c := &ApplicationContext{
		scopes:     make(map[Scope]ScopeStrategy),
		singletons: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.env == nil {
		c.env = config.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.events == nil {
		c.events = event.NewPublisher()
	}
	c.registry = NewRegistry(c.env)
	c.weaver = aop.NewWeaver()
	return c
}

// ── Discovery phase ──────────────────────────────────────────────────────────

// Register stores one definition produced by a discovery collaborator.
// Allowed only before Refresh.
func (c *ApplicationContext) Register(def *Definition) error {
	if err := c.discoveryAllowed("Register"); err != nil {
		return err
	}
	if def != nil && !def.IsSingleton() && !def.IsPrototype() {
		if _, ok := c.scopes[def.scope]; !ok {
			return &InvalidDefinitionError{Name: def.name, Reason: "unknown scope " + string(def.scope)}
		}
	}
	return c.registry.Register(def)
}

// RegisterAll stores definitions in order, stopping at the first failure.
func (c *ApplicationContext) RegisterAll(defs ...*Definition) error {
	for _, def := range defs {
		if err := c.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAdvice feeds the weaver. Must run before Refresh — weaving
// decisions are frozen there.
func (c *ApplicationContext) RegisterAdvice(advices ...*aop.Advice) error {
	if err := c.discoveryAllowed("RegisterAdvice"); err != nil {
		return err
	}
	for _, a := range advices {
		if err := c.weaver.Register(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *ApplicationContext) discoveryAllowed(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return &ContainerClosedError{}
	}
	if c.refreshed {
		return &ContainerStateError{Op: op, State: "refreshed"}
	}
	return nil
}

// ── Refresh ──────────────────────────────────────────────────────────────────

// Refresh freezes weaving decisions and eagerly instantiates every non-lazy
// singleton in registration order. It fails fast on the first resolution or
// creation error and leaves the container non-usable; treat a failed
// refresh as fatal to this context.
func (c *ApplicationContext) Refresh() error {
	if err := c.discoveryAllowed("Refresh"); err != nil {
		return err
	}

	names := c.registry.Names()

	plans := make(map[string]*aop.Plan)
	for _, name := range names {
		def, err := c.registry.Lookup(name)
		if err != nil {
			return err
		}
		if plan := c.weaver.Plan(def.surface()); plan != nil {
			plans[name] = plan
			c.logger.Debug("bean woven",
				zap.String("bean", name),
				zap.Strings("methods", plan.Methods()))
		}
	}
	c.plans = plans

	for _, name := range names {
		def, err := c.registry.Lookup(name)
		if err != nil {
			return err
		}
		if def.lazy || !def.IsSingleton() {
			continue
		}
		r := &resolution{c: c}
		_, err = r.instance(def)
		r.release()
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.refreshed = true
	ready := len(c.records)
	c.mu.Unlock()

	c.logger.Info("context refreshed",
		zap.Int("definitions", len(names)),
		zap.Int("eager", ready))
	c.events.Publish(event.NewContextRefreshed(len(names)))
	return nil
}

// ── Retrieval ────────────────────────────────────────────────────────────────

// GetBean retrieves a ready instance by name, creating it when the
// definition is lazy or prototype-scoped.
func (c *ApplicationContext) GetBean(name string) (any, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	def, err := c.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.resolve(def)
}

// GetBeanByType retrieves the unique instance providing the capability,
// optionally narrowed by a qualifier name.
func (c *ApplicationContext) GetBeanByType(capability reflect.Type, qualifier ...string) (any, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	q := ""
	if len(qualifier) > 0 {
		q = qualifier[0]
	}
	def, err := c.registry.ResolveCapability(capability, q)
	if err != nil {
		return nil, err
	}
	return c.resolve(def)
}

// Bean is the generic retrieval helper:
//
//	svc, err := container.Bean[UserService](ctx)
func Bean[T any](c *ApplicationContext, qualifier ...string) (T, error) {
	var zero T
	v, err := c.GetBeanByType(TypeOf[T](), qualifier...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &NoSuchDefinitionError{Capability: TypeOf[T]().String()}
	}
	return typed, nil
}

func (c *ApplicationContext) resolve(def *Definition) (any, error) {
	if def.IsSingleton() {
		if bean, ok := c.cachedSingleton(def.name); ok {
			return bean, nil
		}
	}
	r := &resolution{c: c}
	defer r.release()
	return r.instance(def)
}

// ContainsBean reports whether a definition exists for name.
func (c *ApplicationContext) ContainsBean(name string) bool {
	return c.registry.Contains(name)
}

// BeanNames returns all definition names in registration order.
func (c *ApplicationContext) BeanNames() []string {
	return c.registry.Names()
}

// Definition exposes a registered definition for inspection.
func (c *ApplicationContext) Definition(name string) (*Definition, error) {
	return c.registry.Lookup(name)
}

// usable rejects retrieval on a closed or never-refreshed container.
func (c *ApplicationContext) usable() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return &ContainerClosedError{}
	}
	if !c.refreshed {
		return &ContainerStateError{Op: "GetBean", State: "not refreshed"}
	}
	return nil
}

// ── Shutdown ─────────────────────────────────────────────────────────────────

// Close runs the destruction pass: pre-destroy hooks of every cached
// instance, in exactly the reverse of initialization order, so each
// component is destroyed before anything it depends on. Hook failures are
// collected into one aggregate error after every instance was attempted;
// no single bad hook blocks cleanup of the rest. Close is idempotent.
func (c *ApplicationContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	records := c.records
	c.records = nil
	c.singletons = make(map[string]any)
	c.mu.Unlock()

	var errs error
	for i := len(records) - 1; i >= 0; i-- {
		if err := c.destroyRecord(records[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for _, strategy := range c.scopes {
		strategy.Drain()
	}

	c.logger.Info("context closed",
		zap.Int("destroyed", len(records)),
		zap.Int("failures", len(multierr.Errors(errs))))
	c.events.Publish(event.NewContextClosed(len(records)))
	return errs
}

// ── Accessors & bookkeeping ──────────────────────────────────────────────────

// Environment returns the environment conditions were evaluated against.
func (c *ApplicationContext) Environment() *config.Environment { return c.env }

// Events returns the context's publisher; subscribe before Refresh to see
// the refresh event.
func (c *ApplicationContext) Events() *event.Publisher { return c.events }

// Refreshed reports whether Refresh completed.
func (c *ApplicationContext) Refreshed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

// Closed reports whether Close ran.
func (c *ApplicationContext) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *ApplicationContext) cachedSingleton(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bean, ok := c.singletons[name]
	return bean, ok
}

func (c *ApplicationContext) storeSingleton(rec *instanceRecord) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.releaseOrphan(rec)
	}
	c.singletons[rec.def.name] = rec.bean
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

func (c *ApplicationContext) storeScoped(rec *instanceRecord) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.releaseOrphan(rec)
	}
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

// releaseOrphan destroys an instance whose creation straddled Close: the
// destruction pass already ran, so it is released here instead, and the
// in-flight retrieval fails.
func (c *ApplicationContext) releaseOrphan(rec *instanceRecord) error {
	_ = c.destroyRecord(rec)
	return &ContainerClosedError{}
}

func (c *ApplicationContext) scopeStrategy(scope Scope) ScopeStrategy {
	return c.scopes[scope]
}
