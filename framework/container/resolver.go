package container

// resolution is one depth-first resolve pass, rooted at a single GetBean or
// Refresh target. The path slice is the tri-state marker the resolver needs:
// a name on the path is in-progress (descending into it again is a true
// cycle), a name in the singleton cache is done, everything else is
// unvisited. Because the path lives on this struct and never in shared
// state, concurrent passes cannot confuse each other's markers.
type resolution struct {
	c      *ApplicationContext
	path   []string
	locked bool
}

// lockCreation acquires the container-wide creation lock once per pass.
// Singleton creation is a mutating event: the lock guarantees at-most-one
// creation per name under concurrent first access, while losers wait and
// then read the winner's instance from the cache.
func (r *resolution) lockCreation() {
	if !r.locked {
		r.c.creationMu.Lock()
		r.locked = true
	}
}

// release gives the creation lock back at the end of the pass.
func (r *resolution) release() {
	if r.locked {
		r.c.creationMu.Unlock()
		r.locked = false
	}
}

// instance resolves a definition to a live bean according to its scope.
func (r *resolution) instance(def *Definition) (any, error) {
	for i, name := range r.path {
		if name == def.name {
			cycle := make([]string, 0, len(r.path)-i+1)
			cycle = append(cycle, r.path[i:]...)
			cycle = append(cycle, def.name)
			return nil, &CircularDependencyError{Path: cycle}
		}
	}

	switch {
	case def.IsPrototype():
		// No caching, no shared lock: the caller owns the result.
		return r.create(def)

	case def.IsSingleton():
		if bean, ok := r.c.cachedSingleton(def.name); ok {
			return bean, nil
		}
		r.lockCreation()
		if bean, ok := r.c.cachedSingleton(def.name); ok {
			return bean, nil
		}
		return r.create(def)

	default:
		strategy := r.c.scopeStrategy(def.scope)
		if strategy == nil {
			return nil, &InvalidDefinitionError{Name: def.name, Reason: "unknown scope " + string(def.scope)}
		}
		r.lockCreation()
		return strategy.Get(def.name, func() (any, error) {
			return r.create(def)
		})
	}
}

// dependency resolves one DependencyDescriptor to a value: a []any of all
// candidates for collection injection, nil for an unresolved optional, or
// the single resolved bean.
func (r *resolution) dependency(desc DependencyDescriptor) (any, error) {
	if desc.Collection {
		candidates := r.c.registry.Candidates(desc.Capability, desc.Qualifier)
		if len(candidates) == 0 && desc.Required {
			return nil, &NoSuchDefinitionError{Capability: desc.Capability.String()}
		}
		out := make([]any, 0, len(candidates))
		for _, def := range candidates {
			bean, err := r.instance(def)
			if err != nil {
				return nil, err
			}
			out = append(out, bean)
		}
		return out, nil
	}

	var (
		def *Definition
		err error
	)
	if desc.Qualifier != "" {
		def, err = r.c.registry.Lookup(desc.Qualifier)
		if err == nil && desc.Capability != nil && !def.providesCapability(desc.Capability) {
			err = &NoSuchDefinitionError{Capability: desc.Capability.String()}
		}
	} else {
		def, err = r.c.registry.ResolveCapability(desc.Capability, "")
	}
	if err != nil {
		if !desc.Required {
			if _, missing := err.(*NoSuchDefinitionError); missing {
				return nil, nil
			}
		}
		return nil, err
	}
	return r.instance(def)
}
