package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-europa/framework/container"
)

// MethodCLI is the method of requests built from command line arguments.
const MethodCLI = "cli"

// ControllerParam is the parameter naming the controller to dispatch to.
const ControllerParam = "controller"

// Request is what a controller sees: either a wrapped *http.Request or a
// command line invocation, plus parameters set by routing.
type Request struct {
	raw      *http.Request
	method   string
	params   map[string]string
	commands []string
	services *container.Container
}

// NewRequest wraps a standard *http.Request. Route parameters matched by chi
// are copied into the request parameters.
func NewRequest(r *http.Request) *Request {
	req := &Request{raw: r, method: r.Method, params: make(map[string]string)}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, k := range rctx.URLParams.Keys {
			if k != "*" && i < len(rctx.URLParams.Values) {
				req.params[k] = rctx.URLParams.Values[i]
			}
		}
	}
	return req
}

// NewCLIRequest parses unix-style arguments. "--key value" and "-k value" set
// parameters, a flag with no value is "true", and everything else is a
// command. The first command names the controller unless --controller is
// given.
//
//	NewCLIRequest([]string{"index", "--name", "world", "-v"})
//	// commands [index], params {controller: index, name: world, v: true}
func NewCLIRequest(args []string) *Request {
	req := &Request{method: MethodCLI, params: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			req.commands = append(req.commands, arg)
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		if k, v, ok := strings.Cut(key, "="); ok {
			req.params[k] = v
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			req.params[key] = args[i+1]
			i++
			continue
		}
		req.params[key] = "true"
	}
	if _, ok := req.params[ControllerParam]; !ok && len(req.commands) > 0 {
		req.params[ControllerParam] = req.commands[0]
	}
	return req
}

// Raw returns the underlying *http.Request, nil for CLI requests.
func (req *Request) Raw() *http.Request { return req.raw }

// IsCLI reports whether the request came from the command line.
func (req *Request) IsCLI() bool { return req.raw == nil }

// String renders the request as its method and path, or its commands.
func (req *Request) String() string {
	if req.IsCLI() {
		return strings.Join(req.commands, " ")
	}
	return req.method + " " + req.raw.URL.Path
}

// ── Parameters ───────────────────────────────────────────────────────────────

// Param returns a request parameter, falling back to input for HTTP requests.
func (req *Request) Param(key string, fallback ...string) string {
	if v, ok := req.params[key]; ok && v != "" {
		return v
	}
	if !req.IsCLI() {
		return req.Input(key, fallback...)
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

// SetParam sets a request parameter.
func (req *Request) SetParam(key, value string) *Request {
	req.params[key] = value
	return req
}

// SetParams merges params into the request parameters.
func (req *Request) SetParams(params map[string]string) *Request {
	for k, v := range params {
		req.params[k] = v
	}
	return req
}

// Params returns a copy of the request parameters.
func (req *Request) Params() map[string]string {
	out := make(map[string]string, len(req.params))
	for k, v := range req.params {
		out[k] = v
	}
	return out
}

// ParamKeys returns the parameter names, sorted.
func (req *Request) ParamKeys() []string {
	keys := make([]string, 0, len(req.params))
	for k := range req.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Controller returns the name of the controller to dispatch to.
func (req *Request) Controller() string { return req.params[ControllerParam] }

// SetController changes the controller to dispatch to.
func (req *Request) SetController(name string) *Request {
	return req.SetParam(ControllerParam, name)
}

// Commands returns the positional arguments of a CLI request.
func (req *Request) Commands() []string { return append([]string(nil), req.commands...) }

// Services returns the container scope the request is dispatched in, nil
// until the application sets one.
func (req *Request) Services() *container.Container { return req.services }

// SetServices attaches the container scope controllers resolve through.
func (req *Request) SetServices(c *container.Container) *Request {
	req.services = c
	return req
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Input returns a single input value (query string OR post body).
func (req *Request) Input(key string, fallback ...string) string {
	if req.IsCLI() {
		return req.Param(key, fallback...)
	}
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// All returns the parameters merged with all input (query + post). Input
// wins on conflicts.
func (req *Request) All() map[string]string {
	out := req.Params()
	if req.IsCLI() {
		return out
	}
	_ = req.raw.ParseForm()
	for k, v := range req.raw.Form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	if req.IsCLI() {
		return ""
	}
	return req.raw.Header.Get(key)
}

// Method returns the HTTP method, or MethodCLI.
func (req *Request) Method() string { return req.method }

// Path returns the URL path, or the commands joined by "/" for CLI requests.
func (req *Request) Path() string {
	if req.IsCLI() {
		return "/" + strings.Join(req.commands, "/")
	}
	return req.raw.URL.Path
}
