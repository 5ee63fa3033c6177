// Package dispatch turns a routed request into a controller action.
//
// Controllers are classes in a reflector.Catalog, built per request through
// a service.Locator whose resolver maps "user_profile" to
// "UserProfileController". The constructor receives the request and the
// response; the action is the exported method named after the request
// method ("Get", "Post", "Cli", ...), with "Action" as a catch-all. A
// non-nil return value is rendered into the response.
package dispatch

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	gohttp "github.com/km-arc/go-europa/framework/http"
	"github.com/km-arc/go-europa/framework/reflector"
	"github.com/km-arc/go-europa/framework/service"
)

// ClassSuffix is appended to the resolved controller name.
const ClassSuffix = "Controller"

// CatchAll is the action used when no method-named action exists.
const CatchAll = "Action"

var (
	// ErrNotFound is returned when no controller class exists for a name.
	ErrNotFound = errors.New("dispatch: controller not found")

	// ErrMethodNotAllowed is returned when a controller has no action for
	// the request method.
	ErrMethodNotAllowed = errors.New("dispatch: no action for request method")
)

// Resolver maps controller names to class identifiers: UpperCamelCase plus
// ClassSuffix.
var Resolver service.NameResolver = service.NameResolverFunc(func(name string) string {
	return service.UpperCamelCase.Resolve(name) + ClassSuffix
})

// Dispatcher builds controllers and runs their actions.
type Dispatcher struct {
	locator *service.Locator
	log     logrus.FieldLogger
	metrics metrics.Registry
}

// New creates a Dispatcher over loc and switches loc to the controller
// resolver.
func New(loc *service.Locator, log logrus.FieldLogger, reg metrics.Registry) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	loc.SetResolver(Resolver)
	return &Dispatcher{locator: loc, log: log, metrics: reg}
}

// Locator returns the locator controllers are built through.
func (d *Dispatcher) Locator() *service.Locator { return d.locator }

// Has reports whether a controller class exists for name.
func (d *Dispatcher) Has(name string) bool {
	return name != "" && d.locator.Catalog().Has(d.locator.ClassFor(name))
}

// Dispatch runs the action of req.Controller() and renders its result.
func (d *Dispatcher) Dispatch(req *gohttp.Request, res *gohttp.Response) error {
	name := req.Controller()
	log := d.log.WithFields(logrus.Fields{"controller": name, "method": req.Method()})
	metrics.GetOrRegisterCounter("dispatch.request", d.metrics).Inc(1)

	if !d.Has(name) {
		return errors.Wrapf(ErrNotFound, "%q", name)
	}

	ctrl, err := d.locator.Build(name, req, res)
	if err != nil {
		return err
	}

	action := service.UpperCamelCase.Resolve(strings.ToLower(req.Method()))
	if !reflector.HasMethod(ctrl, action) {
		if !reflector.HasMethod(ctrl, CatchAll) {
			return errors.Wrapf(ErrMethodNotAllowed, "%T has no %s or %s", ctrl, action, CatchAll)
		}
		action = CatchAll
	}

	start := time.Now()
	out, err := reflector.Invoke(ctrl, action)
	metrics.GetOrRegisterTimer("dispatch.latency", d.metrics).UpdateSince(start)
	if err != nil {
		metrics.GetOrRegisterCounter("dispatch.error", d.metrics).Inc(1)
		return errors.WithMessagef(err, "%s.%s", name, action)
	}

	log.WithField("action", action).Debug("Dispatched")
	res.Render(out)
	return nil
}

// Status maps a dispatch error to an HTTP status.
func Status(err error) int {
	var withStatus interface{ HTTPStatus() int }
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case stderrors.As(err, &withStatus):
		return withStatus.HTTPStatus()
	}
	return http.StatusInternalServerError
}
