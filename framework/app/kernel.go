package app

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-europa/framework/bootstrap"
	"github.com/km-arc/go-europa/framework/config"
	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/dispatch"
	gohttp "github.com/km-arc/go-europa/framework/http"
	"github.com/km-arc/go-europa/framework/providers"
	"github.com/km-arc/go-europa/framework/reflector"
	"github.com/km-arc/go-europa/framework/routing"
)

// ErrorController handles every request whose dispatch failed.
const ErrorController = "error"

// Application is the top-level application container.
// It embeds the registry's named Container and a ProviderRegistry so user
// code can call app.Set(), app.Register() directly.
type Application struct {
	*container.Container
	Providers   *container.ProviderRegistry
	Registry    *container.Registry
	Controllers *reflector.Catalog

	envFiles []string
	bootOnce sync.Once
}

// Option configures New.
type Option func(*Application)

// WithRegistry uses r instead of container.Default().
func WithRegistry(r *container.Registry) Option {
	return func(a *Application) { a.Registry = r }
}

// WithEnvFiles loads configuration from files instead of .env.
func WithEnvFiles(files ...string) Option {
	return func(a *Application) { a.envFiles = files }
}

// New loads the configuration, takes the container named by CONTAINER_NAME
// from the registry and registers the framework providers.
func New(opts ...Option) (*Application, error) {
	a := &Application{Controllers: reflector.NewCatalog()}
	for _, opt := range opts {
		opt(a)
	}
	if a.Registry == nil {
		a.Registry = container.Default()
	}

	cfg := config.Load(a.envFiles...)
	log := cfg.Logger()
	a.Registry.SetLogger(log)

	c, err := a.Registry.Container(cfg.Container.Name)
	if err != nil {
		return nil, errors.Wrap(err, "app: container")
	}
	a.Container = c
	a.Providers = container.NewProviderRegistry(c)
	c.Instance("app", a)

	a.Register(&providers.ConfigServiceProvider{Config: cfg})
	a.Register(&providers.LogServiceProvider{Logger: log})
	a.Register(&providers.RoutingServiceProvider{})
	a.Register(&providers.DispatchServiceProvider{Controllers: a.Controllers})

	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Controller registers ctor as the controller for name. ctor receives the
// request and the response.
//
//	app.Controller("index", func(req *gohttp.Request, res *gohttp.Response) *IndexController { ... })
func (a *Application) Controller(name string, ctor any) error {
	return a.Controllers.Put(dispatch.Resolver.Resolve(name), ctor)
}

// Bootstrap runs the bootstrapper's steps. Without args every step receives
// the application container.
func (a *Application) Bootstrap(b any, args ...any) error {
	if len(args) == 0 {
		args = []any{a.Container}
	}
	_, err := bootstrap.NewInvoker(a.Logger()).Invoke(b, args...)
	return err
}

// Boot runs the Boot() phase on all providers and connects the router to
// the dispatcher, including any router registered later. Calling it again is
// a no-op.
func (a *Application) Boot() {
	a.bootOnce.Do(func() {
		a.Providers.Boot()
		a.Config()
		a.Logger()
		a.Router().Handle(a.handle)
		a.Rebinding("router", func(v any) {
			if r, ok := v.(*routing.Router); ok {
				r.Handle(a.handle)
			}
		})
	})
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container, "config")
}

// Logger resolves the application logger from the container.
func (a *Application) Logger() logrus.FieldLogger {
	return container.MustResolve[logrus.FieldLogger](a.Container, "logger")
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Dispatcher resolves *dispatch.Dispatcher from the container.
func (a *Application) Dispatcher() *dispatch.Dispatcher {
	return container.MustResolve[*dispatch.Dispatcher](a.Container, "dispatcher")
}

// ── Dispatching ───────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler, booting on first use.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Boot()
	a.Router().ServeHTTP(w, r)
}

func (a *Application) handle(controller string, w http.ResponseWriter, r *http.Request) {
	req := gohttp.NewRequest(r)
	if controller != "" {
		req.SetController(controller)
	}
	_ = a.Dispatch(req, gohttp.NewResponse(w))
}

// Call dispatches a command line request, writing the response to out.
//
//	app.Call([]string{"index", "--name", "world"}, os.Stdout)
func (a *Application) Call(args []string, out io.Writer) error {
	a.Boot()
	return a.Dispatch(gohttp.NewCLIRequest(args), gohttp.NewCLIResponse(out))
}

// Dispatch runs req through the dispatcher in a fresh container scope,
// reachable from controllers through req.Services(). Any error or panic is
// logged and the request is re-dispatched to the error controller with the
// "status" and "error" parameters set. The original error is returned.
func (a *Application) Dispatch(req *gohttp.Request, res *gohttp.Response) error {
	if req.Services() == nil {
		req.SetServices(a.Scope())
	}
	err := a.dispatch(req, res)
	if err == nil {
		return nil
	}

	status := dispatch.Status(err)
	a.Logger().WithFields(logrus.Fields{
		"controller": req.Controller(),
		"status":     status,
	}).WithError(err).Error("Dispatch failed")

	req.SetController(ErrorController).
		SetParam("status", strconv.Itoa(status)).
		SetParam("error", err.Error())
	res.SetStatus(status)

	if ferr := a.dispatch(req, res); ferr != nil {
		a.Logger().WithError(ferr).Error("Error controller failed")
		res.Error(status, http.StatusText(status))
	}
	return err
}

func (a *Application) dispatch(req *gohttp.Request, res *gohttp.Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.WithMessage(e, "panic")
				return
			}
			err = errors.Errorf("panic: %v", r)
		}
	}()
	d, err := container.Resolve[*dispatch.Dispatcher](req.Services(), "dispatcher")
	if err != nil {
		return err
	}
	return d.Dispatch(req, res)
}

// ── Serving ───────────────────────────────────────────────────────────────────

// Serve boots the application and listens on APP_PORT until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	a.Boot()
	cfg := a.Config()
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.Logger().WithFields(logrus.Fields{
		"app":  cfg.App.Name,
		"addr": srv.Addr,
		"env":  cfg.App.Env,
	}).Info("Listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
