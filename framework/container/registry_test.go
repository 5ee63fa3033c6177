package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-europa/framework/container"
	"github.com/km-arc/go-europa/framework/reflector"
)

type pool struct{ size int }

func newPool(size ...int) *pool {
	if len(size) == 0 {
		return &pool{size: 1}
	}
	return &pool{size: size[0]}
}

func newRegistry(t *testing.T) *container.Registry {
	t.Helper()
	cat := reflector.NewCatalog().MustPut("Pool", newPool)
	return container.NewRegistry(cat)
}

// ── GetOrCreate ───────────────────────────────────────────────────────────────

func TestRegistry_StableKeyMemoization(t *testing.T) {
	r := newRegistry(t)

	first, err := r.GetOrCreate("Pool", "shared")
	require.NoError(t, err)
	second, err := r.GetOrCreate("Pool", "shared")
	require.NoError(t, err)
	assert.Same(t, first, second)

	third, err := r.GetOrCreate("Pool", "shared", 8)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 8, third.(*pool).size)

	fourth, err := r.GetOrCreate("Pool", "shared")
	require.NoError(t, err)
	assert.Same(t, third, fourth)
}

func TestRegistry_ArgsAlwaysConstruct(t *testing.T) {
	r := newRegistry(t)

	a, err := r.GetOrCreate("Pool", "p", 2)
	require.NoError(t, err)
	b, err := r.GetOrCreate("Pool", "p", 2)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegistry_FactoriesAreIndependent(t *testing.T) {
	r := newRegistry(t)

	a, _ := r.GetOrCreate("Pool", "reads")
	b, _ := r.GetOrCreate("Pool", "writes")
	assert.NotSame(t, a, b)
}

func TestRegistry_Keys(t *testing.T) {
	r := newRegistry(t)
	_, _ = r.GetOrCreate("Pool", "p")
	_, _ = r.GetOrCreate("Pool", "p", 4)

	assert.Equal(t, []string{"Pool::p()", "Pool::p((int)4)"}, r.Keys())
	assert.Equal(t, "Pool::p((int)4)", container.Key("Pool", "p", 4))
}

func TestRegistry_ConstructionFailure(t *testing.T) {
	r := newRegistry(t)

	_, err := r.GetOrCreate("Missing", "x")
	require.Error(t, err)
	assert.True(t, container.IsCreationFailed(err))
	assert.True(t, errors.Is(err, reflector.ErrUnknownClass))
	assert.Contains(t, err.Error(), `could not get "x" from "Missing"`)

	_, err = r.GetOrCreate("Pool", "p", "not-an-int")
	assert.True(t, container.IsCreationFailed(err))
	assert.True(t, errors.Is(err, reflector.ErrArguments))
}

func TestRegistry_FailedSlotRetries(t *testing.T) {
	cat := reflector.NewCatalog()
	r := container.NewRegistry(cat)

	_, err := r.GetOrCreate("Late", "x")
	require.Error(t, err)

	cat.MustPut("Late", newPool)
	v, err := r.GetOrCreate("Late", "x")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestRegistry_ConcurrentFirstAccessConstructsOnce(t *testing.T) {
	var built int32
	cat := reflector.NewCatalog().MustPut("Counted", func() *pool {
		atomic.AddInt32(&built, 1)
		return &pool{}
	})
	r := container.NewRegistry(cat)

	const n = 32
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := r.GetOrCreate("Counted", "once")
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&built))
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

// ── Named containers ──────────────────────────────────────────────────────────

func TestRegistry_ContainerMemoizedByName(t *testing.T) {
	r := newRegistry(t)

	a, err := r.Container(container.DefaultName)
	require.NoError(t, err)
	b, err := r.Container(container.DefaultName)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, container.DefaultName, a.Name())

	got, ok := r.Lookup(container.DefaultName)
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestRegistry_ContainerWithOptionsReplaces(t *testing.T) {
	r := newRegistry(t)

	a, err := r.Container("app")
	require.NoError(t, err)
	b, err := r.Container("app", container.WithName("app"))
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	c, err := r.Container("app")
	require.NoError(t, err)
	assert.Same(t, b, c)
}

func TestRegistry_PublishFirstWriterWins(t *testing.T) {
	r := newRegistry(t)
	a, b := container.New(), container.New()

	assert.True(t, r.Publish("x", a))
	assert.False(t, r.Publish("x", b))
	assert.True(t, r.Publish("x", a))

	got, _ := r.Lookup("x")
	assert.Same(t, a, got)
	assert.Equal(t, "x", a.Name())

	r.Replace("x", b)
	got, _ = r.Lookup("x")
	assert.Same(t, b, got)
	assert.Equal(t, []string{"x"}, r.Published())
}

func TestRegistry_CrossContainerDiagnostic(t *testing.T) {
	r := newRegistry(t)
	primary, err := r.Container("primary")
	require.NoError(t, err)
	secondary, err := r.Container("secondary")
	require.NoError(t, err)
	secondary.Set("db", "mysql")

	_, err = primary.Get("db")
	require.Error(t, err)
	assert.True(t, container.IsNotFound(err))
	assert.Contains(t, err.Error(), `"secondary"`)
	assert.Contains(t, err.Error(), `does not exist in "primary"`)

	var cerr *container.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"secondary"}, cerr.Hints)

	// the hint never resolves through the other container
	assert.False(t, primary.Has("db"))
}

func TestRegistry_Reset(t *testing.T) {
	r := newRegistry(t)
	_, _ = r.Container("gone")
	r.Reset()

	_, ok := r.Lookup("gone")
	assert.False(t, ok)
	assert.Empty(t, r.Keys())
	assert.True(t, r.Catalog().Has(container.ContainerIdentity))
}

func TestDefault_IsProcessWide(t *testing.T) {
	assert.Same(t, container.Default(), container.Default())
}
