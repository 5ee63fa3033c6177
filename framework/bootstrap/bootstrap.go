// Package bootstrap runs an application's setup steps in order.
//
// A bootstrapper either lists its steps explicitly by implementing Stepper,
// or exposes them as exported methods which are discovered by reflection:
//
//	type Bootstrapper struct{}
//
//	func (Bootstrapper) Steps() []bootstrap.Step {
//		return []bootstrap.Step{
//			{Name: "logging", Fn: configureLogging},
//			{Name: "db", Fn: configureDb},
//		}
//	}
//
//	_, err := bootstrap.Invoke(Bootstrapper{}, c)
//
// Every step receives the same arguments. The first failing step stops the
// run and its error is returned.
package bootstrap

import (
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/reflector"
)

// Step is one named setup function. Fn may take any parameters matching the
// invocation arguments and may return an error as its last result.
type Step struct {
	Name string
	Fn   any
}

// Stepper is implemented by bootstrappers that list their steps explicitly.
type Stepper interface {
	Steps() []Step
}

// hooks are exported methods that are never bootstrap steps.
var hooks = map[string]bool{
	"String":        true,
	"GoString":      true,
	"Error":         true,
	"Format":        true,
	"MarshalJSON":   true,
	"UnmarshalJSON": true,
	"ServeHTTP":     true,
	"Steps":         true,
	"Close":         true,
}

// Invoker runs bootstrappers, logging each step.
type Invoker struct {
	log logrus.FieldLogger
}

// NewInvoker creates an Invoker. A nil logger means logrus.StandardLogger().
func NewInvoker(log logrus.FieldLogger) *Invoker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Invoker{log: log}
}

var std = NewInvoker(nil)

// Invoke runs target's steps with the standard logger.
func Invoke(target any, args ...any) (any, error) {
	return std.Invoke(target, args...)
}

// Steps returns the steps Invoke would run for target, in order.
func Steps(target any) []Step {
	if s, ok := target.(Stepper); ok {
		return s.Steps()
	}

	var steps []Step
	for _, name := range reflector.Methods(target) {
		if hooks[name] {
			continue
		}
		steps = append(steps, Step{Name: name, Fn: methodStep{target: target, name: name}})
	}
	return steps
}

// methodStep defers to reflector.Invoke so discovered methods and listed
// funcs share one calling path.
type methodStep struct {
	target any
	name   string
}

// Invoke runs every step of target with args and returns target.
func (i *Invoker) Invoke(target any, args ...any) (any, error) {
	for _, step := range Steps(target) {
		if err := i.run(step, args); err != nil {
			return target, err
		}
	}
	return target, nil
}

func (i *Invoker) run(step Step, args []any) error {
	log := i.log.WithField("step", step.Name)
	start := time.Now()

	var err error
	switch fn := step.Fn.(type) {
	case methodStep:
		_, err = reflector.Invoke(fn.target, fn.name, args...)
	case nil:
		err = errors.Wrap(reflector.ErrNotCallable, "nil step")
	default:
		_, err = reflector.Call(fn, args...)
	}

	if err != nil {
		if stderrors.Is(err, reflector.ErrArguments) || stderrors.Is(err, reflector.ErrNotCallable) {
			err = container.InvalidBootstrapStep(step.Name, err)
		} else {
			err = errors.WithMessagef(err, "bootstrap step %q", step.Name)
		}
		log.WithError(err).Error("Bootstrap step failed")
		return err
	}

	log.WithField("elapsed", time.Since(start)).Debug("Bootstrap step done")
	return nil
}
