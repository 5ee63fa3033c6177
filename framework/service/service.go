package service

import (
	"sync"

	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/reflector"
)

// Service is a class that has not been constructed yet, together with the
// arguments its constructor will receive.
//
// Get memoizes the instance; Create always builds a new one, which Get then
// returns until the next Create. Concurrent first Gets construct once.
type Service struct {
	mu       sync.Mutex
	building sync.Mutex
	class    string
	catalog  *reflector.Catalog
	args     []any
	instance any
	built    bool
}

// NewService defers construction of class through cat.
func NewService(class string, cat *reflector.Catalog, args ...any) *Service {
	return &Service{class: class, catalog: cat, args: args}
}

// Class returns the class identifier the service constructs.
func (s *Service) Class() string { return s.class }

// Args returns a copy of the configured constructor arguments.
func (s *Service) Args() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.args...)
}

// Configure replaces the constructor arguments. An instance that was already
// built is kept; only the next Create (or first Get) sees the new arguments.
func (s *Service) Configure(args ...any) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = append([]any(nil), args...)
	return s
}

// Create constructs a new instance and makes it the one Get returns.
func (s *Service) Create() (any, error) {
	v, err := s.Build(s.Args()...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.instance = v
	s.built = true
	s.mu.Unlock()
	return v, nil
}

// Build constructs an instance from args alone. The configured arguments and
// the memoized instance are left untouched, so concurrent callers can each
// pass their own arguments.
func (s *Service) Build(args ...any) (any, error) {
	v, err := s.catalog.New(s.class, args...)
	if err != nil {
		return nil, container.ServiceConstructionFailed(s.class, err)
	}
	return v, nil
}

// Get returns the memoized instance, constructing it on first use.
func (s *Service) Get() (any, error) {
	if v, ok := s.memoized(); ok {
		return v, nil
	}

	s.building.Lock()
	defer s.building.Unlock()
	if v, ok := s.memoized(); ok {
		return v, nil
	}
	return s.Create()
}

func (s *Service) memoized() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance, s.built
}

// Built reports whether an instance exists.
func (s *Service) Built() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}
