package container

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-spring/framework/config"
	"github.com/km-arc/go-spring/framework/event"
)

// Option configures an ApplicationContext at construction time.
type Option func(*ApplicationContext)

// WithLogger installs the structured logger the container reports
// lifecycle events and destruction failures through.
func WithLogger(logger *zap.Logger) Option {
	return func(c *ApplicationContext) { c.logger = logger }
}

// WithEnvironment supplies the environment conditional registrations are
// evaluated against.
func WithEnvironment(env *config.Environment) Option {
	return func(c *ApplicationContext) { c.env = env }
}

// WithPublisher shares an external event publisher instead of the
// context-private one.
func WithPublisher(p *event.Publisher) Option {
	return func(c *ApplicationContext) { c.events = p }
}

// WithScopeStrategy registers a custom scope under the given name.
func WithScopeStrategy(name Scope, strategy ScopeStrategy) Option {
	return func(c *ApplicationContext) { c.scopes[name] = strategy }
}
