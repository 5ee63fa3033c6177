// Package service implements convention-based resolution: a service name is
// turned into a class identifier by a NameResolver and the class is built
// through a reflector.Catalog, so no producer has to be written.
//
//	cat := reflector.NewCatalog().MustPut("UserRepository", NewUserRepository)
//	loc := service.NewLocator(cat)
//	repo, err := loc.GetService("user_repository", db)
package service

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/reflector"
)

// LocatorIdentity is the registry identity of named locators.
var LocatorIdentity = container.TypeKey((*Locator)(nil))

// Locator owns one Service per name, creating them on first reference.
type Locator struct {
	mu       sync.RWMutex
	services map[string]*Service
	resolver NameResolver
	catalog  *reflector.Catalog
}

// NewLocator creates a locator resolving names with UpperCamelCase.
func NewLocator(cat *reflector.Catalog) *Locator {
	if cat == nil {
		cat = reflector.NewCatalog()
	}
	return &Locator{
		services: make(map[string]*Service),
		resolver: UpperCamelCase,
		catalog:  cat,
	}
}

// Named returns the locator published in reg under name, creating it on
// first use.
func Named(reg *container.Registry, name string) (*Locator, error) {
	cat := reg.Catalog()
	if !cat.Has(LocatorIdentity) {
		if err := cat.Put(LocatorIdentity, func() *Locator { return NewLocator(cat) }); err != nil {
			return nil, err
		}
	}
	v, err := reg.GetOrCreate(LocatorIdentity, name)
	if err != nil {
		return nil, err
	}
	return v.(*Locator), nil
}

// Default returns the locator named container.DefaultName.
func Default(reg *container.Registry) (*Locator, error) {
	return Named(reg, container.DefaultName)
}

// Catalog returns the catalog services are built through.
func (l *Locator) Catalog() *reflector.Catalog { return l.catalog }

// SetResolver replaces the name resolver. Services already created keep
// their class.
func (l *Locator) SetResolver(r NameResolver) *Locator {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolver = r
	return l
}

// ClassFor returns the class identifier name resolves to.
func (l *Locator) ClassFor(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolver.Resolve(name)
}

// Service returns the service for name, creating an unbuilt one if needed.
func (l *Locator) Service(name string) *Service {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.services[name]
	if !ok {
		s = NewService(l.resolver.Resolve(name), l.catalog)
		l.services[name] = s
	}
	return s
}

// Register stores s under name, replacing any previous service.
func (l *Locator) Register(name string, s *Service) *Locator {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services[name] = s
	return l
}

// IsRegistered reports whether a service exists for name.
func (l *Locator) IsRegistered(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.services[name]
	return ok
}

// Unregister removes the service for name, if any.
func (l *Locator) Unregister(name string) *Locator {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.services, name)
	return l
}

// Names returns the names of every service, sorted.
func (l *Locator) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.services))
	for k := range l.services {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CreateService builds a new instance of name. Non-empty args replace the
// configured arguments first.
func (l *Locator) CreateService(name string, args ...any) (any, error) {
	s := l.Service(name)
	if len(args) > 0 {
		s.Configure(args...)
	}
	return s.Create()
}

// Build constructs a one-off instance of name from args, leaving the
// service's configuration and memoized instance alone.
func (l *Locator) Build(name string, args ...any) (any, error) {
	return l.Service(name).Build(args...)
}

// GetService returns the memoized instance of name. Non-empty args replace
// the configured arguments first; they only apply if nothing is built yet.
func (l *Locator) GetService(name string, args ...any) (any, error) {
	s := l.Service(name)
	if len(args) > 0 {
		s.Configure(args...)
	}
	return s.Get()
}

// Expose binds each name in c to this locator's memoized instance, so code
// that only knows the container can reach convention-built services.
func (l *Locator) Expose(c *container.Container, names ...string) {
	for _, name := range names {
		c.Set(name, func(*container.Container) (any, error) {
			v, err := l.GetService(name)
			return v, errors.WithMessagef(err, "locator service %q", name)
		})
	}
}
