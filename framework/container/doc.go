// Package container provides the service container, the registry of named
// containers and the service provider system.
//
// # Overview
//
// A Container maps service names to producers. Producers run lazily on the
// first Get and their result is cached (Singleton, the default) or rebuilt on
// every Get (Transient).
//
// # Container Lifecycle
//
//  1. Obtain: c, err := container.Default().Container(container.DefaultName)
//  2. Register services: c.Set(...) or registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()
//  4. Resolve for the rest of the process
//
// # Bindings
//
//	// Constant
//	c.Set("config", cfg)
//
//	// Producer, cached after the first Get
//	c.Set("db", func(c *container.Container) (any, error) {
//	    return openDB(container.MustResolve[*config.Config](c, "config"))
//	})
//
//	// Rebuilt on every Get
//	c.Set("request-id", func() any { return uuid() })
//	c.Transient("request-id")
//
// # Resolving
//
//	raw, err := c.Get("db")
//	db, err := container.Resolve[*sql.DB](c, "db")
//	db := container.MustResolve[*sql.DB](c, "db")
//
// A producer that resolves its own name, directly or through other producers,
// fails with a CIRCULAR_RESOLUTION error instead of recursing.
//
// # Scopes
//
// The stack used to catch cycles belongs to a scope. One scope serves one
// goroutine; concurrent work resolves through its own:
//
//	func handle(app *container.Container) {
//	    scope := app.Scope()
//	    clock := container.MustResolve[time.Time](scope, "clock")
//	}
//
// # Aliases and contextual bindings
//
//	c.Alias("logger", "log")
//	c.When("mailer").Needs("transport").GiveValue(smtp)
//
// # Registry
//
// The Registry memoizes instances by a stable key built from an identity, a
// factory name and the argument list, and keeps a table of published
// containers. A miss on one container names every other published container
// that holds the same service:
//
//	container: the service "db" does not exist in "default", however, a service
//	with the same name exists in "secondary"
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Set("mailer", func(c *container.Container) any { return mail.New() })
//	}
//
//	providers := container.NewProviderRegistry(c)
//	providers.Register(&AppServiceProvider{})
//	providers.Boot()
//
// Deferred providers return true from IsDeferred and list their services in
// Provides; they register on the first miss of one of those names.
package container
