package providers

import (
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-europa/framework/config"
	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/dispatch"
	"github.com/km-arc/go-europa/framework/reflector"
	"github.com/km-arc/go-europa/framework/routing"
	"github.com/km-arc/go-europa/framework/service"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration into the
// container and applies its container section.
//
// Bound abstracts:
//   - "config"  → *config.Config
//
// When Config is nil the configuration is loaded from EnvFiles (default .env).
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	app.Configure(cfg)
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider registers the application logger.
//
// Bound abstracts:
//   - "logger"  → logrus.FieldLogger
//   - "log"     → alias of "logger"
//
// Without an explicit Logger one is built from "config" on first use.
type LogServiceProvider struct {
	container.BaseProvider
	Logger logrus.FieldLogger
}

func (p *LogServiceProvider) Register(app *container.Container) {
	if p.Logger != nil {
		app.Instance("logger", p.Logger)
	} else {
		app.Singleton("logger", func(c *container.Container) any {
			return container.MustResolve[*config.Config](c, "config").Logger()
		})
	}
	app.Alias("logger", "log")
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound abstracts:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Set("router", func(c *container.Container) (*routing.Router, error) {
		log, err := container.Resolve[logrus.FieldLogger](c, "logger")
		if err != nil {
			return nil, err
		}
		return routing.New(log), nil
	})
}

// ── DispatchServiceProvider ───────────────────────────────────────────────────

// DispatchServiceProvider registers the controller locator and the
// dispatcher. It is deferred: nothing is built until one of its services is
// first resolved.
//
// Bound abstracts:
//   - "controllers" → *service.Locator over Controllers
//   - "dispatcher"  → *dispatch.Dispatcher
type DispatchServiceProvider struct {
	container.BaseProvider
	Controllers *reflector.Catalog
}

func (p *DispatchServiceProvider) IsDeferred() bool { return true }

func (p *DispatchServiceProvider) Provides() []string {
	return []string{"controllers", "dispatcher"}
}

func (p *DispatchServiceProvider) Register(app *container.Container) {
	cat := p.Controllers
	app.Singleton("controllers", func(*container.Container) any {
		return service.NewLocator(cat)
	})
	app.Set("dispatcher", func(c *container.Container) (*dispatch.Dispatcher, error) {
		loc, err := container.Resolve[*service.Locator](c, "controllers")
		if err != nil {
			return nil, err
		}
		log, err := container.Resolve[logrus.FieldLogger](c, "logger")
		if err != nil {
			return nil, err
		}
		return dispatch.New(loc, log, c.Metrics()), nil
	})
}
