package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// Extender decorates every value produced for a service.
type Extender func(instance any, c *Container) any

// Configuration registers a group of services on a container.
type Configuration interface {
	Configure(c *Container)
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container maps service names to producers and resolves them lazily.
//
// It supports:
//   - Set / Get / Has / Unset
//   - Transient marking (Singleton is the default lifecycle)
//   - Bind / Singleton / Instance / Alias shorthands
//   - Extend (decorate produced values)
//   - Contextual binding (while A is produced, B resolves to C)
//   - Tags
//   - Deferred loaders (register a service on its first miss)
//   - Rebinding and AfterResolving callbacks
//
// Names being produced are tracked on a stack per scope, so a producer that
// reaches its own name again, through the container it received or one it
// captured, fails with CircularResolution. A scope is meant for one
// goroutine at a time; concurrent flows such as HTTP requests each resolve
// through their own Scope. A cold singleton raced by several scopes may run
// its producer more than once, and the last result is cached.
type Container struct {
	*state
	flight *flight
}

// state is shared by a container and all of its scopes.
type state struct {
	mu sync.RWMutex

	name     string
	registry *Registry
	log      logrus.FieldLogger
	metrics  metrics.Registry

	// name → binding
	bindings map[string]*binding

	// alias → canonical name
	aliases map[string]string

	// names marked transient, before or after registration
	transient map[string]bool

	// name → extender funcs
	extenders map[string][]Extender

	// concrete → needed name → producer
	contextual map[string]map[string]Producer

	// tag → []name
	tags map[string][]string

	// name → loader run on the first miss
	deferred map[string]*deferral

	// name → callbacks fired when an existing binding is replaced
	rebound map[string][]func(instance any)

	afterResolving []func(name string, instance any)
}

type deferral struct {
	once sync.Once
	load func(*Container)
}

// flight is the stack of names being produced in one scope.
type flight struct {
	mu    sync.Mutex
	stack []string
}

func (f *flight) enter(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.stack {
		if n == name {
			return errCircularResolution(append(append([]string(nil), f.stack...), name))
		}
	}
	f.stack = append(f.stack, name)
	return nil
}

func (f *flight) exit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.stack) - 1; i >= 0; i-- {
		if f.stack[i] == name {
			f.stack = append(f.stack[:i], f.stack[i+1:]...)
			return
		}
	}
}

func (f *flight) top() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stack) == 0 {
		return ""
	}
	return f.stack[len(f.stack)-1]
}

// New creates an empty container. The container is bound to itself under
// "container". Without WithRegistry, not-found errors look for hints in
// Default().
func New(opts ...Option) *Container {
	c := &Container{state: &state{log: logrus.StandardLogger()}, flight: &flight{}}
	c.reset()
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewRegistry()
	}
	c.Instance("container", c)
	return c
}

func (c *Container) reset() {
	c.bindings = make(map[string]*binding)
	c.aliases = make(map[string]string)
	c.transient = make(map[string]bool)
	c.extenders = make(map[string][]Extender)
	c.contextual = make(map[string]map[string]Producer)
	c.tags = make(map[string][]string)
	c.deferred = make(map[string]*deferral)
	c.rebound = make(map[string][]func(any))
	c.afterResolving = nil
}

// Scope returns a handle on the same bindings with its own resolution stack.
func (c *Container) Scope() *Container {
	return &Container{state: c.state, flight: &flight{}}
}

// Same reports whether c and other share their bindings.
func (c *Container) Same(other *Container) bool {
	return other != nil && c.state == other.state
}

// ── Registration ──────────────────────────────────────────────────────────────

// Set registers value under name, replacing any previous binding and its
// cached value. Funcs of shape func([*Container]) T or (T, error) become
// producers; anything else is registered as a constant. Replacing a binding
// fires the Rebinding callbacks for name.
//
//	c.Set("config", cfg)
//	c.Set("db", func(c *container.Container) (any, error) {
//	    return sql.Open("mysql", container.MustResolve[*config.Config](c, "config").DB.DSN())
//	})
func (c *Container) Set(name string, value any) *Container {
	return c.bind(name, producerFor(value))
}

// Bind registers a transient factory.
func (c *Container) Bind(name string, factory Factory) *Container {
	c.Set(name, factory)
	return c.Transient(name)
}

// Singleton registers a factory whose result is cached after first resolution.
// It clears any transient mark on name.
func (c *Container) Singleton(name string, factory Factory) *Container {
	c.mu.Lock()
	delete(c.transient, name)
	c.mu.Unlock()
	return c.Set(name, factory)
}

// Instance registers a pre-built value.
func (c *Container) Instance(name string, instance any) *Container {
	return c.bind(name, constant(instance))
}

func (c *Container) bind(name string, p Producer) *Container {
	c.mu.Lock()
	lc := Singleton
	if c.transient[name] {
		lc = Transient
	}
	_, rebinding := c.bindings[name]
	c.bindings[name] = &binding{name: name, producer: p, lifecycle: lc}
	delete(c.aliases, name)
	delete(c.deferred, name)
	cbs := c.rebound[name]
	c.mu.Unlock()

	if rebinding && len(cbs) > 0 {
		v, err := c.Get(name)
		if err != nil {
			c.log.WithField("service", name).WithError(err).Warn("Rebinding skipped")
			return c
		}
		for _, cb := range cbs {
			cb(v)
		}
	}
	return c
}

// Alias makes alias resolve to the binding of target.
//
//	c.Alias("logger", "log")
func (c *Container) Alias(target, alias string) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	target = c.canonical(target)
	if target == alias {
		panic(fmt.Sprintf("container: %q is aliased to itself", alias))
	}
	c.aliases[alias] = target
	return c
}

// canonical resolves an alias. The caller holds c.mu.
func (c *Container) canonical(name string) string {
	if target, ok := c.aliases[name]; ok {
		return target
	}
	return name
}

// Transient marks names as transient. Existing bindings drop their cached
// value; bindings registered later inherit the mark.
func (c *Container) Transient(names ...string) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		name = c.canonical(name)
		c.transient[name] = true
		if b, ok := c.bindings[name]; ok {
			b.lifecycle = Transient
			b.forget()
		}
	}
	return c
}

// Unset removes the binding and cached value for name. Unsetting an alias
// removes only the alias. Unknown names are ignored.
func (c *Container) Unset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.aliases[name]; ok {
		delete(c.aliases, name)
		return
	}
	delete(c.bindings, name)
}

// Has reports whether a binding is registered for name or its alias target.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[c.canonical(name)]
	return ok
}

// Defer arranges for loader to run the first time name is missed. The loader
// is expected to register name and must not resolve it before doing so.
// Concurrent misses wait for a single run.
func (c *Container) Defer(name string, loader func(*Container)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, bound := c.bindings[name]; bound {
		return
	}
	c.deferred[name] = &deferral{load: loader}
}

// Configure applies each configuration to the container.
func (c *Container) Configure(cfgs ...Configuration) *Container {
	for _, cfg := range cfgs {
		cfg.Configure(c)
	}
	return c
}

// ── Extend / Tags / Callbacks ─────────────────────────────────────────────────

// Extend decorates values produced for name. An already cached value is
// decorated immediately.
//
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return instance.(*logrus.Logger).WithField("app", "europa")
//	})
func (c *Container) Extend(name string, fn Extender) {
	c.mu.Lock()
	name = c.canonical(name)
	c.extenders[name] = append(c.extenders[name], fn)
	b, ok := c.bindings[name]
	cached := ok && b.resolved
	var current any
	if cached {
		current = b.cached
	}
	c.mu.Unlock()

	if cached {
		v := fn(current, c)
		c.mu.Lock()
		b.cached = v
		c.mu.Unlock()
	}
}

// Tag groups names under tag.
func (c *Container) Tag(tag string, names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], names...)
}

// Tagged resolves every service grouped under tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	names := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	out := make([]any, 0, len(names))
	for _, name := range names {
		v, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Rebinding registers cb to receive the new value whenever name is
// registered again after its first binding.
//
//	c.Rebinding("router", func(v any) { v.(*routing.Router).Handle(h) })
func (c *Container) Rebinding(name string, cb func(instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name = c.canonical(name)
	c.rebound[name] = append(c.rebound[name], cb)
}

// AfterResolving registers a callback fired after a producer ran.
func (c *Container) AfterResolving(cb func(name string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves name. A cached singleton is returned as is; otherwise the
// producer runs with this container, and its result is cached unless the
// binding is transient.
func (c *Container) Get(name string) (any, error) {
	metrics.GetOrRegisterCounter("container.resolve", c.metrics).Inc(1)

	c.mu.RLock()
	key := c.canonical(name)
	b, ok := c.bindings[key]
	if p := c.contextualFor(name, key); p != nil {
		b, ok = &binding{name: key, producer: p, lifecycle: Transient}, true
	}
	if ok && b.resolved {
		v := b.cached
		c.mu.RUnlock()
		metrics.GetOrRegisterCounter("container.resolve.hit", c.metrics).Inc(1)
		return v, nil
	}
	d, deferred := c.deferred[key]
	c.mu.RUnlock()

	if !ok && deferred {
		d.once.Do(func() { d.load(c) })
		c.mu.Lock()
		if c.deferred[key] == d {
			delete(c.deferred, key)
		}
		c.mu.Unlock()
		return c.Get(name)
	}
	if !ok {
		metrics.GetOrRegisterCounter("container.resolve.miss", c.metrics).Inc(1)
		return nil, c.notFound(name)
	}

	if err := c.flight.enter(key); err != nil {
		return nil, err
	}
	value, err := c.produce(b)
	c.flight.exit(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cur, ok := c.bindings[key]; ok && cur == b && b.lifecycle == Singleton {
		b.cached = value
		b.resolved = true
	}
	cbs := c.afterResolving
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(key, value)
	}
	return value, nil
}

// contextualFor returns the producer given for name while the service on top
// of this scope's stack is produced. The caller holds c.mu.
func (c *Container) contextualFor(name, key string) Producer {
	if len(c.contextual) == 0 {
		return nil
	}
	needs, ok := c.contextual[c.flight.top()]
	if !ok {
		return nil
	}
	if p, ok := needs[name]; ok {
		return p
	}
	return needs[key]
}

// Make resolves name and panics on failure.
func (c *Container) Make(name string) any {
	v, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Container) produce(b *binding) (value any, err error) {
	metrics.GetOrRegisterCounter("container.produce", c.metrics).Inc(1)
	defer metrics.GetOrRegisterTimer("container.produce.latency", c.metrics).UpdateSince(time.Now())

	func() {
		defer func() {
			if r := recover(); r != nil {
				rerr, ok := r.(error)
				if !ok {
					rerr = fmt.Errorf("%v", r)
				}
				err = rerr
			}
		}()
		value, err = b.producer(c)
	}()
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, ServiceConstructionFailed(b.name, err)
	}

	c.mu.RLock()
	exts := c.extenders[b.name]
	c.mu.RUnlock()
	for _, ext := range exts {
		value = ext(value, c)
	}

	c.log.WithFields(logrus.Fields{
		"container": c.identity(),
		"service":   b.name,
		"lifecycle": b.lifecycle,
	}).Debugf("Constructed: %T", value)
	return value, nil
}

// notFound builds the miss error, naming every other published container that
// does hold name.
func (c *Container) notFound(name string) error {
	reg := c.registry
	if reg == nil {
		reg = Default()
	}
	var hints []string
	for _, other := range reg.Published() {
		oc, ok := reg.Lookup(other)
		if ok && !oc.Same(c) && oc.Has(name) {
			hints = append(hints, other)
		}
	}
	return errServiceNotFound(name, c.identity(), hints)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Name returns the identity this container was given or published under.
func (c *Container) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Container) identity() string {
	if n := c.Name(); n != "" {
		return n
	}
	return ContainerIdentity + "::[unknown]"
}

// adopt names an unnamed container and attaches r when none is set.
func (c *Container) adopt(name string, r *Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == "" {
		c.name = name
	}
	if c.registry == nil {
		c.registry = r
	}
}

// Resolved reports whether name holds a cached value.
func (c *Container) Resolved(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(name)]
	return ok && b.resolved
}

// Lifecycle returns the lifecycle of the binding for name.
func (c *Container) Lifecycle(name string) (Lifecycle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(name)]
	if !ok {
		return Singleton, false
	}
	return b.lifecycle, true
}

// Names returns the registered service names, sorted.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Metrics returns the registry resolution counters are recorded into.
func (c *Container) Metrics() metrics.Registry { return c.metrics }

// Flush resets the container to its freshly created state.
func (c *Container) Flush() {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	c.Instance("container", c)
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// registry identity.
//
//	key := container.TypeKey((*service.Locator)(nil))
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve is Get with a type assertion.
//
//	cfg, err := container.Resolve[*config.Config](c, "config")
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	instance, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: %q resolved to %T", zero, name, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](c *Container, name string) T {
	typed, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return typed
}
