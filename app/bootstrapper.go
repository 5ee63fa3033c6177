// Package app is the example Europa application: a handful of controllers,
// the services they use and the bootstrapper that wires them.
package app

import (
	"time"

	europa "github.com/km-arc/go-europa/framework/app"
	"github.com/km-arc/go-europa/framework/bootstrap"
	"github.com/km-arc/go-europa/framework/container"
	gohttp "github.com/km-arc/go-europa/framework/http"
)

// Setup bootstraps a for the console.
func Setup(a *europa.Application) error {
	return a.Bootstrap(&Bootstrapper{App: a})
}

// Bootstrapper configures the application in three steps.
type Bootstrapper struct {
	App *europa.Application
}

func (b *Bootstrapper) Steps() []bootstrap.Step {
	return []bootstrap.Step{
		{Name: "services", Fn: b.configureServices},
		{Name: "controllers", Fn: b.configureControllers},
		{Name: "routes", Fn: b.configureRoutes},
	}
}

func (b *Bootstrapper) configureServices(c *container.Container) {
	c.Set("visits", func() *Visits { return &Visits{} })
	c.Set("clock", func() time.Time { return time.Now().UTC() })
	c.Transient("clock")

	// the command line greets more casually
	c.Set("greeting", "Hello")
	c.Set("cli.greeting", func(c *container.Container) (any, error) { return c.Get("greeting") })
	c.When("cli.greeting").Needs("greeting").GiveValue("Hi")

	c.Make("visits")
}

func (b *Bootstrapper) configureControllers(*container.Container) error {
	controllers := map[string]any{
		"index": func(req *gohttp.Request, _ *gohttp.Response) (*IndexController, error) {
			return NewIndexController(req)
		},
		"echo": func(req *gohttp.Request, _ *gohttp.Response) *EchoController {
			return &EchoController{req: req}
		},
		"home": func(_ *gohttp.Request, res *gohttp.Response) *HomeController {
			return &HomeController{res: res}
		},
		europa.ErrorController: func(req *gohttp.Request, _ *gohttp.Response) *ErrorController {
			return &ErrorController{req: req}
		},
	}
	for name, ctor := range controllers {
		if err := b.App.Controller(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bootstrapper) configureRoutes(*container.Container) {
	r := b.App.Router()
	r.Controller("/", "index")
	r.Controller("/hello/{name}", "index")
	r.Controller("/echo", "echo")
	r.Controller("/home", "home")
}
