package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-spring/framework/aop"
)

// Phase names the lifecycle state an instance is in, or was in when a
// failure occurred.
type Phase string

const (
	PhaseInstantiated Phase = "instantiation"
	PhasePopulated    Phase = "population"
	PhaseInitialized  Phase = "initialization"
	PhaseReady        Phase = "ready"
	PhaseDestroyed    Phase = "destruction"
)

// instanceRecord is the container's hold on one cached instance: the woven
// bean handed to callers, and the raw instance lifecycle hooks run against.
type instanceRecord struct {
	def  *Definition
	bean any
	raw  any
}

// create drives a definition through Instantiated → Populated →
// Initialized → Ready. Constructor dependencies resolve before the factory
// runs, injection points apply in declaration order before any hook, and
// weaving replaces the raw instance before the component is cached or
// handed out — dependents only ever observe the advised bean.
func (r *resolution) create(def *Definition) (any, error) {
	r.path = append(r.path, def.name)
	defer func() { r.path = r.path[:len(r.path)-1] }()

	// Instantiate
	args := make([]any, 0, len(def.constructorDeps))
	for _, dep := range def.constructorDeps {
		value, err := r.dependency(dep)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	instance, err := def.factory(args)
	if err != nil {
		return nil, &BeanCreationError{Name: def.name, Phase: PhaseInstantiated, Err: err}
	}
	if instance == nil {
		return nil, &BeanCreationError{Name: def.name, Phase: PhaseInstantiated, Err: fmt.Errorf("factory returned nil")}
	}

	// Populate
	for _, point := range def.injections {
		value, err := r.dependency(point.Dependency)
		if err != nil {
			return nil, err
		}
		if value == nil && !point.Dependency.Required {
			continue
		}
		if err := point.Apply(instance, value); err != nil {
			return nil, &BeanCreationError{Name: def.name, Phase: PhasePopulated, Err: err}
		}
	}

	// Initialize
	if pc, ok := instance.(PostConstructor); ok {
		if err := pc.PostConstruct(); err != nil {
			return nil, &BeanCreationError{Name: def.name, Phase: PhaseInitialized, Err: err}
		}
	}
	for _, hook := range def.postConstruct {
		if err := hook(instance); err != nil {
			return nil, &BeanCreationError{Name: def.name, Phase: PhaseInitialized, Err: err}
		}
	}

	// Weave
	bean := any(instance)
	if plan := r.c.plans[def.name]; plan != nil {
		proxy := aop.NewProxy(instance, plan)
		if def.proxyBinder != nil {
			bean = def.proxyBinder(proxy)
		} else {
			bean = proxy
		}
	}

	// Ready. Storing re-checks the closed flag: a creation that straddled
	// Close must not outlive the destruction pass.
	rec := &instanceRecord{def: def, bean: bean, raw: instance}
	switch {
	case def.IsSingleton():
		if err := r.c.storeSingleton(rec); err != nil {
			return nil, err
		}
	case !def.IsPrototype():
		// Custom-scope instances are cached by their strategy but destroyed
		// by the container, so they join the shutdown bookkeeping too.
		if err := r.c.storeScoped(rec); err != nil {
			return nil, err
		}
	}
	r.c.logger.Debug("bean ready",
		zap.String("bean", def.name),
		zap.String("scope", string(def.scope)))
	return bean, nil
}

// destroyRecord runs the pre-destroy hooks of one instance: the
// PreDestroyer interface first, then the definition's hooks in declared
// order. Failures are returned, never panicked, so the shutdown pass can
// collect them and keep going.
func (c *ApplicationContext) destroyRecord(rec *instanceRecord) error {
	var errs []error
	if pd, ok := rec.raw.(PreDestroyer); ok {
		if err := pd.PreDestroy(); err != nil {
			errs = append(errs, fmt.Errorf("bean %q pre-destroy: %w", rec.def.name, err))
		}
	}
	for _, hook := range rec.def.preDestroy {
		if err := hook(rec.raw); err != nil {
			errs = append(errs, fmt.Errorf("bean %q pre-destroy hook: %w", rec.def.name, err))
		}
	}
	for _, err := range errs {
		c.logger.Error("destruction hook failed", zap.String("bean", rec.def.name), zap.Error(err))
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("bean %q: %d destruction hooks failed: %v", rec.def.name, len(errs), errs)
	}
}
