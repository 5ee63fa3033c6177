package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/km-arc/go-europa/framework/container"
	gohttp "github.com/km-arc/go-europa/framework/http"
)

// Visits counts requests served by IndexController.
type Visits struct{ n atomic.Int64 }

func (v *Visits) Add() int64   { return v.n.Add(1) }
func (v *Visits) Count() int64 { return v.n.Load() }

// IndexController greets whoever is named by the "name" parameter.
type IndexController struct {
	req      *gohttp.Request
	visits   *Visits
	now      time.Time
	greeting string
}

// NewIndexController resolves the controller's services from the request
// scope.
func NewIndexController(req *gohttp.Request) (*IndexController, error) {
	c := req.Services()
	visits, err := container.Resolve[*Visits](c, "visits")
	if err != nil {
		return nil, err
	}
	now, err := container.Resolve[time.Time](c, "clock")
	if err != nil {
		return nil, err
	}
	greeting := "greeting"
	if req.IsCLI() {
		greeting = "cli.greeting"
	}
	g, err := container.Resolve[string](c, greeting)
	if err != nil {
		return nil, err
	}
	return &IndexController{req: req, visits: visits, now: now, greeting: g}, nil
}

func (c *IndexController) Get() map[string]any {
	return map[string]any{
		"message": c.greeting + ", " + c.req.Param("name", "Europa") + "!",
		"visit":   c.visits.Add(),
		"time":    c.now.Format(time.RFC3339),
		"path":    c.req.Path(),
	}
}

func (c *IndexController) Cli() string {
	return fmt.Sprintf("%s, %s! (visit %d)", c.greeting, c.req.Param("name", "Europa"), c.visits.Add())
}

// EchoController answers with every parameter and input it received.
type EchoController struct {
	req *gohttp.Request
}

func (c *EchoController) Action() map[string]string { return c.req.All() }

// Cli prints the arguments after the controller name, then the parameters
// as sorted key=value pairs.
func (c *EchoController) Cli() string {
	all := c.req.All()
	delete(all, gohttp.ControllerParam)
	pairs := make([]string, 0, len(all))
	for k, v := range all {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	args := c.req.Commands()
	if len(args) > 0 {
		args = args[1:]
	}
	return strings.TrimSpace(strings.Join(args, " ") + " " + strings.Join(pairs, " "))
}

// HomeController sends browsers to the index.
type HomeController struct {
	res *gohttp.Response
}

func (c *HomeController) Get() any {
	c.res.RedirectTo("/")
	return nil
}

// ErrorController renders the failure recorded by the kernel.
type ErrorController struct {
	req *gohttp.Request
}

func (c *ErrorController) Action() any {
	status, _ := strconv.Atoi(c.req.Param("status", "500"))
	if c.req.IsCLI() || strings.HasPrefix(c.req.Header("Accept"), "text/plain") {
		return fmt.Sprintf("error %d: %s", status, c.req.Param("error"))
	}
	return map[string]any{
		"status": status,
		"error":  c.req.Param("error"),
	}
}
