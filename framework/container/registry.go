package container

import (
	"reflect"
	"sync"

	"github.com/km-arc/go-spring/framework/config"
)

// Registry maps component names to definitions. It is append-only during
// the discovery phase and read-heavy afterwards; the context stops feeding
// it once Refresh runs.
type Registry struct {
	mu          sync.RWMutex
	env         *config.Environment
	definitions map[string]*Definition
	order       []string
}

// NewRegistry creates a registry that evaluates conditional registrations
// against env.
func NewRegistry(env *config.Environment) *Registry {
	return &Registry{
		env:         env,
		definitions: make(map[string]*Definition),
	}
}

// Register validates and stores a definition. A definition whose condition
// evaluates false is dropped entirely: it never becomes visible to any
// lookup. Re-using a name fails with DuplicateDefinitionError.
func (r *Registry) Register(def *Definition) error {
	if err := r.validate(def); err != nil {
		return err
	}
	if def.condition != nil && !def.condition(r.env) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.name]; exists {
		return &DuplicateDefinitionError{Name: def.name}
	}
	r.definitions[def.name] = def
	r.order = append(r.order, def.name)
	return nil
}

func (r *Registry) validate(def *Definition) error {
	switch {
	case def == nil:
		return &InvalidDefinitionError{Reason: "nil definition"}
	case def.name == "":
		return &InvalidDefinitionError{Reason: "empty name"}
	case def.typ == nil:
		return &InvalidDefinitionError{Name: def.name, Reason: "no concrete type"}
	case def.factory == nil:
		return &InvalidDefinitionError{Name: def.name, Reason: "no factory"}
	}
	// The capability set is explicit and checked here, once — not at
	// call time.
	for _, cap := range def.provides {
		if cap.Kind() == reflect.Interface {
			if !def.typ.Implements(cap) {
				return &InvalidDefinitionError{
					Name:   def.name,
					Reason: def.typ.String() + " does not implement " + cap.String(),
				}
			}
			continue
		}
		if cap != def.typ {
			return &InvalidDefinitionError{
				Name:   def.name,
				Reason: "capability " + cap.String() + " is neither an interface nor the concrete type",
			}
		}
	}
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	if !ok {
		return nil, &NoSuchDefinitionError{Name: name}
	}
	return def, nil
}

// Contains reports whether a definition exists for name.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[name]
	return ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Candidates returns every definition providing the capability, in
// registration order. A non-empty qualifier narrows to that name.
func (r *Registry) Candidates(capability reflect.Type, qualifier string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for _, name := range r.order {
		def := r.definitions[name]
		if !def.providesCapability(capability) {
			continue
		}
		if qualifier != "" && def.name != qualifier {
			continue
		}
		out = append(out, def)
	}
	return out
}

// ResolveCapability narrows the candidates for a capability to exactly one:
// a sole match wins directly, a single primary breaks ties, anything else
// fails with AmbiguousDependencyError naming all candidates.
func (r *Registry) ResolveCapability(capability reflect.Type, qualifier string) (*Definition, error) {
	candidates := r.Candidates(capability, qualifier)
	switch len(candidates) {
	case 0:
		return nil, &NoSuchDefinitionError{Capability: capability.String()}
	case 1:
		return candidates[0], nil
	}

	var primary *Definition
	for _, def := range candidates {
		if !def.primary {
			continue
		}
		if primary != nil {
			primary = nil
			break
		}
		primary = def
	}
	if primary != nil {
		return primary, nil
	}

	names := make([]string, len(candidates))
	for i, def := range candidates {
		names[i] = def.name
	}
	return nil, &AmbiguousDependencyError{Capability: capability.String(), Candidates: names}
}
