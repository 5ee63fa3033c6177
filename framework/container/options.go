package container

import (
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// Option configures a Container.
type Option func(*Container)

// WithName sets the identity used in diagnostics.
func WithName(name string) Option {
	return func(c *Container) { c.name = name }
}

// WithRegistry attaches the registry consulted for cross-container hints.
func WithRegistry(r *Registry) Option {
	return func(c *Container) { c.registry = r }
}

// WithLogger replaces the default logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Container) { c.log = log }
}

// WithMetrics records resolution counters into r instead of a private registry.
func WithMetrics(r metrics.Registry) Option {
	return func(c *Container) { c.metrics = r }
}
