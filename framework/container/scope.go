package container

import "sync"

// ScopeStrategy implements a custom lifetime policy. Singleton and
// prototype are built in; anything else a definition names must be backed
// by a strategy registered via WithScopeStrategy.
//
// Get returns the cached instance for name or builds one with factory.
// Drain discards every cached instance; the container calls it once during
// Close, after it has run the pre-destroy hooks of all cached instances.
type ScopeStrategy interface {
	Get(name string, factory func() (any, error)) (any, error)
	Drain()
}

// CachingScope is a ready-made ScopeStrategy: one cached instance per name,
// held until the container closes. It backs custom scopes that want
// singleton-like caching over an independently chosen window — a batch
// run, a test case, a tenant.
type CachingScope struct {
	mu        sync.Mutex
	instances map[string]any
}

// NewCachingScope creates an empty caching scope.
func NewCachingScope() *CachingScope {
	return &CachingScope{instances: make(map[string]any)}
}

// Get returns the cached instance, building it on first request.
func (s *CachingScope) Get(name string, factory func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instance, ok := s.instances[name]; ok {
		return instance, nil
	}
	instance, err := factory()
	if err != nil {
		return nil, err
	}
	s.instances[name] = instance
	return instance, nil
}

// Drain discards all cached instances.
func (s *CachingScope) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = make(map[string]any)
}
