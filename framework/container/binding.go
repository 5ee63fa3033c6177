package container

import (
	"reflect"

	"github.com/km-arc/go-europa/framework/reflector"
)

// Lifecycle controls whether a resolved value is cached.
type Lifecycle uint8

const (
	// Singleton caches the first resolved value. This is the default.
	Singleton Lifecycle = iota
	// Transient runs the producer on every resolution.
	Transient
)

func (l Lifecycle) String() string {
	if l == Transient {
		return "transient"
	}
	return "singleton"
}

// Producer builds a service value. It receives the owning container so it can
// resolve other services.
type Producer func(c *Container) (any, error)

// Factory is the infallible producer shape.
type Factory func(c *Container) any

// binding holds a registered producer, its lifecycle and the cached value.
type binding struct {
	name      string
	producer  Producer
	lifecycle Lifecycle
	cached    any
	resolved  bool
}

func (b *binding) forget() {
	b.cached = nil
	b.resolved = false
}

var containerPtrType = reflect.TypeOf((*Container)(nil))

// producerFor turns a registered value into a Producer. Funcs taking nothing
// or a *Container and returning T or (T, error) are producers; every other
// value, including funcs of any other shape, is registered as a constant.
func producerFor(value any) Producer {
	switch v := value.(type) {
	case Producer:
		return v
	case Factory:
		return func(c *Container) (any, error) { return v(c), nil }
	case func(*Container) (any, error):
		return v
	case func(*Container) any:
		return func(c *Container) (any, error) { return v(c), nil }
	case func() (any, error):
		return func(*Container) (any, error) { return v() }
	case func() any:
		return func(*Container) (any, error) { return v(), nil }
	}

	if isProducerFunc(value) {
		takesContainer := reflect.TypeOf(value).NumIn() == 1
		return func(c *Container) (any, error) {
			if takesContainer {
				return reflector.Call(value, c)
			}
			return reflector.Call(value)
		}
	}
	return constant(value)
}

func constant(value any) Producer {
	return func(*Container) (any, error) { return value, nil }
}

func isProducerFunc(value any) bool {
	t := reflect.TypeOf(value)
	if t == nil || t.Kind() != reflect.Func || t.IsVariadic() {
		return false
	}
	if t.NumIn() > 1 || (t.NumIn() == 1 && t.In(0) != containerPtrType) {
		return false
	}
	switch t.NumOut() {
	case 1:
		return true
	case 2:
		return t.Out(1) == reflect.TypeOf((*error)(nil)).Elem()
	}
	return false
}
