package container

import (
	"sort"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-europa/framework/reflector"
)

// ContainerIdentity is the catalog class under which the Registry builds
// containers.
const ContainerIdentity = "container.Container"

// DefaultName is the name of the process's default container.
const DefaultName = "default"

// signature renders argument lists deterministically for stable keys.
var signature = spew.ConfigState{
	Indent:                  "",
	SortKeys:                true,
	DisableCapacities:       true,
	DisableMethods:          true,
	DisablePointerMethods:   true,
	DisablePointerAddresses: false,
}

// slot holds the instance an empty-args call returns for one
// (identity, factory) pair. once guarantees a single construction when
// several goroutines race on a fresh pair.
type slot struct {
	once  sync.Once
	value any
	err   error
}

// Registry is a stable-key instance cache plus a table of named containers.
//
// GetOrCreate memoizes instances by (identity, factory, args): calls without
// args return the latest instance built for (identity, factory), building
// one on first use; calls with args always build a fresh instance, which then
// becomes the latest.
//
// Construction goes through the registry's reflector.Catalog; the catalog
// comes preloaded with a constructor for ContainerIdentity.
type Registry struct {
	mu sync.Mutex

	catalog *reflector.Catalog
	log     logrus.FieldLogger
	metrics metrics.Registry

	// fully qualified key → instance
	entries map[string]any

	// identity::factory → latest slot
	latest map[string]*slot

	// name → published container, in publish order
	published map[string]*Container
	order     []string
}

// NewRegistry creates a registry constructing through cat. A nil cat gets a
// fresh catalog.
func NewRegistry(cat *reflector.Catalog) *Registry {
	if cat == nil {
		cat = reflector.NewCatalog()
	}
	r := &Registry{
		catalog: cat,
		log:     logrus.StandardLogger(),
		metrics: metrics.NewRegistry(),
	}
	r.reset()
	cat.MustPut(ContainerIdentity, func(opts ...Option) *Container {
		return New(append([]Option{WithRegistry(r), WithLogger(r.logger())}, opts...)...)
	})
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
	})
	return defaultRegistry
}

// SetLogger replaces the logger used for registry events and for containers
// the registry builds afterwards.
func (r *Registry) SetLogger(log logrus.FieldLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
}

// Catalog returns the catalog the registry constructs through.
func (r *Registry) Catalog() *reflector.Catalog { return r.catalog }

// Metrics returns the registry's construction counters.
func (r *Registry) Metrics() metrics.Registry { return r.metrics }

// ── Stable-key cache ──────────────────────────────────────────────────────────

// GetOrCreate returns the instance memoized for (identity, factory, args),
// constructing identity through the catalog when needed.
func (r *Registry) GetOrCreate(identity, factory string, args ...any) (any, error) {
	base := identity + "::" + factory

	if len(args) > 0 {
		v, err := r.construct(identity, factory, args)
		if err != nil {
			return nil, err
		}
		s := &slot{value: v}
		s.once.Do(func() {})

		r.mu.Lock()
		r.entries[Key(identity, factory, args...)] = v
		r.latest[base] = s
		r.mu.Unlock()
		return v, nil
	}

	r.mu.Lock()
	s, ok := r.latest[base]
	if !ok {
		s = &slot{}
		r.latest[base] = s
	}
	r.mu.Unlock()

	s.once.Do(func() {
		s.value, s.err = r.construct(identity, factory, nil)

		r.mu.Lock()
		defer r.mu.Unlock()
		if s.err != nil {
			// let a later call retry
			if r.latest[base] == s {
				delete(r.latest, base)
			}
			return
		}
		r.entries[Key(identity, factory)] = s.value
	})
	return s.value, s.err
}

func (r *Registry) construct(identity, factory string, args []any) (any, error) {
	v, err := r.catalog.New(identity, args...)
	if err != nil {
		r.logger().WithFields(logrus.Fields{
			"identity": identity,
			"factory":  factory,
		}).WithError(err).Error("registry construction failed")
		return nil, ContainerCreationFailed(identity, factory, err)
	}
	metrics.GetOrRegisterCounter("registry.construct", r.metrics).Inc(1)
	return v, nil
}

func (r *Registry) logger() logrus.FieldLogger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log
}

// Key renders the fully qualified stable key for (identity, factory, args).
func Key(identity, factory string, args ...any) string {
	var b strings.Builder
	b.WriteString(identity)
	b.WriteString("::")
	b.WriteString(factory)
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(signature.Sprintf("%#v", a))
	}
	b.WriteString(")")
	return b.String()
}

// Keys returns every fully qualified key ever populated, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ── Named containers ──────────────────────────────────────────────────────────

// Container returns the container named name, building and publishing it on
// first use. Passing options always builds a new container, which replaces
// the published one.
//
//	app, err := registry.Container(container.DefaultName)
func (r *Registry) Container(name string, opts ...Option) (*Container, error) {
	if len(opts) == 0 {
		if c, ok := r.Lookup(name); ok {
			return c, nil
		}
	}

	args := make([]any, len(opts))
	for i, o := range opts {
		args[i] = o
	}
	v, err := r.GetOrCreate(ContainerIdentity, name, args...)
	if err != nil {
		return nil, err
	}
	c := v.(*Container)
	c.adopt(name, r)
	if len(opts) > 0 {
		r.Replace(name, c)
	} else {
		r.Publish(name, c)
	}
	return c, nil
}

// Publish makes c visible under name. The first writer wins: it returns false
// when another container already holds name.
func (r *Registry) Publish(name string, c *Container) bool {
	r.mu.Lock()
	if cur, ok := r.published[name]; ok {
		r.mu.Unlock()
		return cur == c
	}
	r.published[name] = c
	r.order = append(r.order, name)
	r.mu.Unlock()

	c.adopt(name, r)
	return true
}

// Replace publishes c under name, overwriting any previous container.
func (r *Registry) Replace(name string, c *Container) {
	r.mu.Lock()
	if _, ok := r.published[name]; !ok {
		r.order = append(r.order, name)
	}
	r.published[name] = c
	r.mu.Unlock()

	c.adopt(name, r)
}

// Lookup returns the container published under name.
func (r *Registry) Lookup(name string) (*Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.published[name]
	return c, ok
}

// Published lists published names in publish order.
func (r *Registry) Published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Reset forgets every entry and published container. The catalog is kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Registry) reset() {
	r.entries = make(map[string]any)
	r.latest = make(map[string]*slot)
	r.published = make(map[string]*Container)
	r.order = nil
}
