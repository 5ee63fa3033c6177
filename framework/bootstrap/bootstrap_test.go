package bootstrap_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-europa/framework/bootstrap"
	"github.com/km-arc/go-europa/framework/container"
)

// recorder lists its steps explicitly; its String method is not one of them.
type recorder struct {
	calls      []string
	failLogger error
}

func (r *recorder) Steps() []bootstrap.Step {
	return []bootstrap.Step{
		{Name: "configureLogging", Fn: r.configureLogging},
		{Name: "configureDb", Fn: r.configureDb},
	}
}

func (r *recorder) configureLogging(arg string) error {
	r.calls = append(r.calls, "configureLogging("+arg+")")
	return r.failLogger
}

func (r *recorder) configureDb(arg string) {
	r.calls = append(r.calls, "configureDb("+arg+")")
}

func (r *recorder) String() string {
	r.calls = append(r.calls, "String")
	return "recorder"
}

func TestInvoke_StepperOrder(t *testing.T) {
	r := &recorder{}

	got, err := bootstrap.Invoke(r, "arg")
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, []string{"configureLogging(arg)", "configureDb(arg)"}, r.calls)
}

func TestInvoke_FailFastKeepsCause(t *testing.T) {
	cause := errors.New("no log sink")
	r := &recorder{failLogger: cause}

	_, err := bootstrap.Invoke(r, "arg")
	require.Error(t, err)
	assert.Equal(t, []string{"configureLogging(arg)"}, r.calls)
	assert.Same(t, cause, errors.Cause(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), `"configureLogging"`)
}

// reflective discovers its steps from exported methods.
type reflective struct {
	calls []string
}

func (r *reflective) ConfigureLogging(c *container.Container) {
	c.Set("logger", "logrus")
	r.calls = append(r.calls, "ConfigureLogging")
}

func (r *reflective) ConfigureDb(c *container.Container) error {
	r.calls = append(r.calls, "ConfigureDb")
	return nil
}

func (r *reflective) String() string   { return "reflective" }
func (r *reflective) GoString() string { return "reflective{}" }

func (r *reflective) Close() error {
	r.calls = append(r.calls, "Close")
	return nil
}

func (r *reflective) helper() {}

func TestInvoke_ReflectiveDiscovery(t *testing.T) {
	r := &reflective{}
	c := container.New()

	_, err := bootstrap.Invoke(r, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"ConfigureDb", "ConfigureLogging"}, r.calls)
	assert.Equal(t, "logrus", c.Make("logger"))
}

func TestSteps_ReflectiveNames(t *testing.T) {
	var names []string
	for _, s := range bootstrap.Steps(&reflective{}) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"ConfigureDb", "ConfigureLogging"}, names)
}

func TestInvoke_ArgumentMismatchIsInvalidStep(t *testing.T) {
	_, err := bootstrap.Invoke(&reflective{}, "not-a-container")
	require.Error(t, err)
	assert.True(t, container.IsInvalidBootstrapStep(err))
	assert.Contains(t, err.Error(), `"ConfigureDb"`)
}

// ordered discovers two steps: the first wants an extra argument, or fails
// when told to.
type ordered struct {
	calls []string
	fail  error
}

func (o *ordered) AConnect(c *container.Container) error {
	o.calls = append(o.calls, "AConnect")
	return o.fail
}

func (o *ordered) BMigrate(c *container.Container) {
	o.calls = append(o.calls, "BMigrate")
}

func (o *ordered) String() string {
	o.calls = append(o.calls, "String")
	return "ordered"
}

func (o *ordered) MarshalJSON() ([]byte, error) {
	o.calls = append(o.calls, "MarshalJSON")
	return []byte("{}"), nil
}

type mismatched struct{ calls []string }

func (m *mismatched) AConnect(c *container.Container, retries int) {
	m.calls = append(m.calls, "AConnect")
}

func (m *mismatched) BMigrate(c *container.Container) {
	m.calls = append(m.calls, "BMigrate")
}

func TestInvoke_ReflectiveSkipsHooks(t *testing.T) {
	o := &ordered{}
	_, err := bootstrap.Invoke(o, container.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"AConnect", "BMigrate"}, o.calls)
}

func TestInvoke_ReflectiveFailureStopsLaterSteps(t *testing.T) {
	cause := errors.New("connection refused")
	o := &ordered{fail: cause}

	_, err := bootstrap.Invoke(o, container.New())
	require.Error(t, err)
	assert.Equal(t, []string{"AConnect"}, o.calls)
	assert.True(t, errors.Is(err, cause))
	assert.False(t, container.IsInvalidBootstrapStep(err))
}

func TestInvoke_ReflectiveMismatchStopsLaterSteps(t *testing.T) {
	m := &mismatched{}

	_, err := bootstrap.Invoke(m, container.New())
	require.Error(t, err)
	assert.True(t, container.IsInvalidBootstrapStep(err))
	assert.Contains(t, err.Error(), `"AConnect"`)
	assert.Empty(t, m.calls)
}

type listed []bootstrap.Step

func (l listed) Steps() []bootstrap.Step { return l }

func TestInvoke_NilAndNonFuncSteps(t *testing.T) {
	_, err := bootstrap.Invoke(listed{{Name: "nil"}})
	assert.True(t, container.IsInvalidBootstrapStep(err))

	_, err = bootstrap.Invoke(listed{{Name: "number", Fn: 7}})
	assert.True(t, container.IsInvalidBootstrapStep(err))
}

func TestInvoke_PanicAborts(t *testing.T) {
	ran := false
	_, err := bootstrap.Invoke(listed{
		{Name: "explode", Fn: func() { panic("bad config") }},
		{Name: "after", Fn: func() { ran = true }},
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.Contains(t, err.Error(), "bad config")
	assert.False(t, container.IsInvalidBootstrapStep(err))
}

func TestInvoker_LogsSteps(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	inv := bootstrap.NewInvoker(log)

	_, err := inv.Invoke(listed{
		{Name: "one", Fn: func() {}},
		{Name: "two", Fn: func() error { return errors.New("nope") }},
	})
	require.Error(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Data["step"])
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, "two", entries[1].Data["step"])
	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
}
