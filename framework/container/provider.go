package container

import "sync"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registration of related services.
//
// Register binds services and must not resolve anything. Boot is called once
// every provider is registered, so it may resolve freely.
//
//	type LogServiceProvider struct{ container.BaseProvider }
//
//	func (p *LogServiceProvider) Register(app *container.Container) {
//	    app.Set("logger", func(c *container.Container) any {
//	        return logrus.New()
//	    })
//	}
//
//	func (p *LogServiceProvider) Boot(app *container.Container) {
//	    container.MustResolve[*logrus.Logger](app, "logger").Info("booted")
//	}
type ServiceProvider interface {
	Register(app *Container)
	Boot(app *Container)

	// Provides lists the services a deferred provider registers.
	Provides() []string

	// IsDeferred makes the provider load on the first miss of one of
	// its Provides() names instead of eagerly.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op for Boot, Provides and IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container)  {}
func (p *BaseProvider) Provides() []string { return nil }
func (p *BaseProvider) IsDeferred() bool   { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one container.
// Register and Boot belong to setup; deferred loads may happen from any
// goroutine.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	registered map[ServiceProvider]bool
	loaded     map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		loaded:     make(map[ServiceProvider]bool),
	}
}

// Register adds a provider. Eager providers register immediately, and boot
// immediately when the registry is already booted. Deferred providers load on
// the first miss of any name they provide.
func (r *ProviderRegistry) Register(provider ServiceProvider) {
	if r.registered[provider] {
		return
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		once := &sync.Once{}
		for _, name := range provider.Provides() {
			r.app.Defer(name, func(*Container) { once.Do(func() { r.load(provider) }) })
		}
		return
	}

	provider.Register(r.app)
	r.mu.Lock()
	r.loaded[provider] = true
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()
	if booted {
		provider.Boot(r.app)
	}
}

func (r *ProviderRegistry) load(provider ServiceProvider) {
	provider.Register(r.app)
	r.mu.Lock()
	r.loaded[provider] = true
	booted := r.booted
	r.mu.Unlock()
	if booted {
		provider.Boot(r.app)
	}
}

// Boot calls Boot on every eager provider. Later calls are no-ops.
func (r *ProviderRegistry) Boot() {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return
	}
	r.booted = true
	r.mu.Unlock()
	for _, provider := range r.eager {
		provider.Boot(r.app)
	}
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }

// Loaded reports whether provider's Register has run.
func (r *ProviderRegistry) Loaded(provider ServiceProvider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[provider]
}
