// Package reflector is the construction and invocation facility used by the
// container. Go cannot instantiate a type from its name, so classes are
// registered in a Catalog as constructor funcs and built on demand.
package reflector

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownClass is returned when no constructor is registered for a class.
	ErrUnknownClass = errors.New("reflector: unknown class")

	// ErrNotCallable is returned when a value is not a func.
	ErrNotCallable = errors.New("reflector: value is not callable")

	// ErrArguments is returned when an argument list does not fit a signature.
	ErrArguments = errors.New("reflector: arguments do not match signature")

	// ErrNoMethod is returned by Invoke when the method does not exist.
	ErrNoMethod = errors.New("reflector: no such method")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ── Catalog ───────────────────────────────────────────────────────────────────

// Catalog maps class identifiers to constructor funcs.
//
//	cat := reflector.NewCatalog()
//	cat.MustPut("Request", gohttp.NewRequest)
//	v, err := cat.New("Request", raw)
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]reflect.Value
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ctors: make(map[string]reflect.Value)}
}

// Put registers ctor under class. ctor must be a func returning T or (T, error).
func (c *Catalog) Put(class string, ctor any) error {
	v := reflect.ValueOf(ctor)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return errors.Wrapf(ErrNotCallable, "constructor for %q is %T", class, ctor)
	}
	if err := checkResults(v.Type()); err != nil {
		return errors.Wrapf(err, "constructor for %q", class)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[class] = v
	return nil
}

// MustPut is Put that panics on an invalid constructor.
func (c *Catalog) MustPut(class string, ctor any) *Catalog {
	if err := c.Put(class, ctor); err != nil {
		panic(err)
	}
	return c
}

// Has reports whether class is registered.
func (c *Catalog) Has(class string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ctors[class]
	return ok
}

// Classes returns the registered class identifiers, sorted.
func (c *Catalog) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ctors))
	for k := range c.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New constructs a new instance of class, passing args to its constructor.
func (c *Catalog) New(class string, args ...any) (any, error) {
	c.mu.RLock()
	ctor, ok := c.ctors[class]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownClass, "%q", class)
	}
	return unpack(call(ctor, class, args))
}

// ── Invocation ────────────────────────────────────────────────────────────────

// Call invokes fn with args. The results are folded into (value, error): a
// trailing error result becomes the returned error and the first non-error
// result becomes the value.
func Call(fn any, args ...any) (any, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrNotCallable, "%T", fn)
	}
	return unpack(call(v, FuncName(fn), args))
}

// Invoke calls the exported method named method on obj.
func Invoke(obj any, method string, args ...any) (any, error) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return nil, errors.Wrapf(ErrNoMethod, "%s on nil", method)
	}
	m := v.MethodByName(method)
	if !m.IsValid() {
		return nil, errors.Wrapf(ErrNoMethod, "%T.%s", obj, method)
	}
	return unpack(call(m, fmt.Sprintf("%T.%s", obj, method), args))
}

// HasMethod reports whether obj has an exported method named method.
func HasMethod(obj any, method string) bool {
	v := reflect.ValueOf(obj)
	return v.IsValid() && v.MethodByName(method).IsValid()
}

// Methods lists the exported methods of obj in method-set order.
func Methods(obj any) []string {
	t := reflect.TypeOf(obj)
	if t == nil {
		return nil
	}
	out := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		out = append(out, t.Method(i).Name)
	}
	return out
}

// FuncName returns the runtime name of a func value.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%T", fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}

// ── internals ─────────────────────────────────────────────────────────────────

func checkResults(t reflect.Type) error {
	switch t.NumOut() {
	case 1:
		return nil
	case 2:
		if !t.Out(1).Implements(errorType) {
			return errors.Errorf("second result must implement error; was %v", t.Out(1))
		}
		return nil
	}
	return errors.Errorf("must return T or (T, error); was %v", t)
}

func call(fn reflect.Value, name string, args []any) (results []reflect.Value, err error) {
	in, err := arguments(fn.Type(), name, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.WithMessagef(e, "%s panicked", name)
				return
			}
			err = errors.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn.Call(in), nil
}

func arguments(t reflect.Type, name string, args []any) ([]reflect.Value, error) {
	n := t.NumIn()
	if t.IsVariadic() {
		if len(args) < n-1 {
			return nil, errors.Wrapf(ErrArguments, "%s wants at least %d arguments, got %d", name, n-1, len(args))
		}
	} else if len(args) != n {
		return nil, errors.Wrapf(ErrArguments, "%s wants %d arguments, got %d", name, n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if t.IsVariadic() && i >= n-1 {
			want = t.In(n - 1).Elem()
		} else {
			want = t.In(i)
		}
		v, err := argument(want, arg)
		if err != nil {
			return nil, errors.Wrapf(err, "%s argument %d", name, i)
		}
		in[i] = v
	}
	return in, nil
}

func argument(want reflect.Type, arg any) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, errors.Wrapf(ErrArguments, "nil is not assignable to %v", want)
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, errors.Wrapf(ErrArguments, "%v is not assignable to %v", v.Type(), want)
	}
	return v, nil
}

func unpack(results []reflect.Value, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	last := results[len(results)-1]
	if last.Type().Implements(errorType) && last.Type().Kind() == reflect.Interface {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		results = results[:len(results)-1]
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}
