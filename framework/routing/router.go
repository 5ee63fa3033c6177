package routing

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Handler serves a request routed to a controller. The controller name is
// empty when no route matched.
type Handler func(controller string, w http.ResponseWriter, r *http.Request)

// Route describes one registered endpoint.
type Route struct {
	Method     string
	Pattern    string
	Controller string // empty for plain handlers
}

// Router wraps chi.Router with convenience helpers and maps patterns to
// controller names.
type Router struct {
	mux    chi.Router
	shared *shared
}

// shared is common to a router and every group or prefix derived from it.
type shared struct {
	mu      sync.RWMutex
	handler Handler
}

// New creates a Router with sane defaults (RequestID, RealIP, request
// logging through log, Recoverer). Unmatched requests go to the controller
// handler with an empty controller name once one is set.
func New(log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log, NoColor: true}))
	mux.Use(middleware.Recoverer)

	r := &Router{mux: mux, shared: &shared{}}
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		r.dispatch("", w, req)
	})
	return r
}

// Handle sets the handler for controller routes.
func (r *Router) Handle(h Handler) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	r.shared.handler = h
}

func (r *Router) dispatch(controller string, w http.ResponseWriter, req *http.Request) {
	r.shared.mu.RLock()
	h := r.shared.handler
	r.shared.mu.RUnlock()

	if h == nil {
		http.NotFound(w, req)
		return
	}
	h(controller, w, req)
}

// controllerRoute is the endpoint registered for a controller pattern.
type controllerRoute struct {
	name   string
	router *Router
}

func (c controllerRoute) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	c.router.dispatch(c.name, w, req)
}

// ── Controller routes ────────────────────────────────────────────────────────

// Controller routes pattern to the named controller. With no methods the
// route answers every common method; the dispatcher then picks the action
// named after the method.
//
//	r.Controller("/", "index")
//	r.Controller("/users/{id}", "user", http.MethodGet, http.MethodDelete)
func (r *Router) Controller(pattern, controller string, methods ...string) {
	if len(methods) == 0 {
		methods = anyMethods
	}
	h := controllerRoute{name: controller, router: r}
	for _, m := range methods {
		r.mux.Method(strings.ToUpper(m), pattern, h)
	}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

var anyMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range anyMethods {
		r.mux.Method(m, pattern, h)
	}
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the router's middleware.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx, shared: r.shared})
	})
}

// Prefix creates a sub-router mounted under a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx, shared: r.shared})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Introspection ────────────────────────────────────────────────────────────

// Routes lists every endpoint, sorted by pattern then method.
func (r *Router) Routes() []Route {
	var out []Route
	_ = chi.Walk(r.mux, func(method, pattern string, h http.Handler, _ ...func(http.Handler) http.Handler) error {
		if ch, ok := h.(*chi.ChainHandler); ok {
			h = ch.Endpoint
		}
		route := Route{Method: method, Pattern: pattern}
		if c, ok := h.(controllerRoute); ok {
			route.Controller = c.name
		}
		out = append(out, route)
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param from r.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
