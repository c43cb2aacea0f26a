package reactive

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputed_Value(t *testing.T) {
	user := Reactive(map[string]any{"age": 1})
	age := NewComputed(func() int {
		return user.Get("age").(int)
	})
	assert.Equal(t, 1, age.Value())
}

func TestComputed_Lazy(t *testing.T) {
	value := Reactive(map[string]any{"foo": 1})
	calls := 0
	cValue := NewComputed(func() any {
		calls++
		return value.Get("foo")
	})

	assert.Equal(t, 0, calls, "getter does not run before the first read")
	assert.True(t, cValue.Dirty())

	assert.Equal(t, 1, cValue.Value())
	assert.Equal(t, 1, calls)

	cValue.Value()
	assert.Equal(t, 1, calls, "cached")

	require.NoError(t, value.Set("foo", 2))
	assert.Equal(t, 1, calls, "invalidation does not recompute")
	assert.True(t, cValue.Dirty())

	assert.Equal(t, 2, cValue.Value())
	assert.Equal(t, 2, calls)

	cValue.Value()
	assert.Equal(t, 2, calls)
}

func TestComputed_DependenciesChangeBetweenRuns(t *testing.T) {
	obj := Reactive(map[string]any{"useA": true, "a": 1, "b": 10})
	calls := 0
	c := NewComputed(func() int {
		calls++
		if obj.Get("useA").(bool) {
			return obj.Get("a").(int)
		}
		return obj.Get("b").(int)
	})
	assert.Equal(t, 1, c.Value())

	require.NoError(t, obj.Set("useA", false))
	assert.Equal(t, 10, c.Value())

	require.NoError(t, obj.Set("a", 2))
	assert.False(t, c.Dirty(), "a is no longer a source")
	assert.Equal(t, 2, calls)
}

func TestComputed_EffectOverComputed(t *testing.T) {
	count := NewRef(1)
	double := NewComputed(func() int { return count.Value().(int) * 2 })
	var seen int
	Effect(func() {
		seen = double.Value()
	})
	assert.Equal(t, 2, seen)

	count.SetValue(4)
	assert.Equal(t, 8, seen)
}

func TestComputed_Chain(t *testing.T) {
	n := NewRef(1)
	plusOne := NewComputed(func() int { return n.Value().(int) + 1 })
	timesTen := NewComputed(func() int { return plusOne.Value() * 10 })

	assert.Equal(t, 20, timesTen.Value())
	n.SetValue(2)
	assert.True(t, timesTen.Dirty())
	assert.Equal(t, 30, timesTen.Value())
}

func TestComputed_GetterOnlyRejectsWrite(t *testing.T) {
	logs := captureLogs(t)
	c := NewComputed(func() int { return 1 })

	err := c.SetValue(5)
	assert.ErrorIs(t, err, ErrComputedReadonly)
	assert.Equal(t, 1, c.Value())
	assert.Contains(t, logs.String(), "E102")
}

func TestComputed_Setter(t *testing.T) {
	first := NewRef("ada")
	last := NewRef("lovelace")
	full := NewWritableComputed(
		func() string { return first.Value().(string) + " " + last.Value().(string) },
		func(v string) {
			var f, l string
			for i := 0; i < len(v); i++ {
				if v[i] == ' ' {
					f, l = v[:i], v[i+1:]
					break
				}
			}
			first.SetValue(f)
			last.SetValue(l)
		},
	)
	assert.Equal(t, "ada lovelace", full.Value())

	require.NoError(t, full.SetValue("grace hopper"))
	assert.Equal(t, "hopper", last.Value())
	assert.Equal(t, "grace hopper", full.Value())
}

func TestComputed_ProxyRefsUnwraps(t *testing.T) {
	n := NewRef(2)
	sq := NewComputed(func() int { v := n.Value().(int); return v * v })
	p := ProxyRefs(map[string]any{"sq": sq})

	assert.Equal(t, 4, p.Get("sq"))
	assert.ErrorIs(t, p.Set("sq", 9), ErrComputedReadonly)
}

func TestComputed_Stop(t *testing.T) {
	n := NewRef(1)
	calls := 0
	c := NewComputed(func() int { calls++; return n.Value().(int) })
	assert.Equal(t, 1, c.Value())

	c.Stop()
	n.SetValue(2)
	assert.False(t, c.Dirty())
	assert.Equal(t, 1, c.Value())
	assert.Equal(t, 1, calls)
}

func TestComputed_NestedReadWhileEvaluating(t *testing.T) {
	st := Reactive(map[string]any{"a": 1, "b": 0})
	c := NewComputed(func() int {
		a := st.Get("a").(int)
		_ = st.Set("b", a*10)
		return a * 10
	})

	var seen []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		Effect(func() {
			_ = st.Get("b")
			seen = append(seen, c.Value())
		})
		_ = st.Set("a", 2)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reading a computed from an effect its getter triggered did not return")
	}

	require.NotEmpty(t, seen)
	assert.Equal(t, 20, seen[len(seen)-1])
	assert.Equal(t, 20, c.Value())
}

func TestComputed_SelfReadReturnsPrevious(t *testing.T) {
	n := NewRef(1)
	var c *Computed[int]
	c = NewComputed(func() int { return c.Value() + n.Value().(int) })

	assert.Equal(t, 1, c.Value())
	n.SetValue(2)
	assert.Equal(t, 3, c.Value())
}

func TestComputed_ConcurrentReadersShareOneRun(t *testing.T) {
	n := NewRef(3)
	var calls atomic.Int32
	c := NewComputed(func() int {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return n.Value().(int) * 2
	})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Value()
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 6, r)
	}
	assert.Equal(t, int32(1), calls.Load())
}
