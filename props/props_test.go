package props_test

import (
	"testing"

	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type diagnostics struct {
	got []props.Diagnostic
}

func (d *diagnostics) handle(diag props.Diagnostic) {
	d.got = append(d.got, diag)
}

func (d *diagnostics) kinds() []props.Kind {
	kinds := make([]props.Kind, len(d.got))
	for i, diag := range d.got {
		kinds[i] = diag.Kind
	}
	return kinds
}

func newSystem(t *testing.T) (*props.System, props.Scope, *diagnostics) {
	t.Helper()
	diags := &diagnostics{}
	rs := props.NewSystem(props.WithErrorHandler(diags.handle))
	return rs, rs.NewScope(props.Scope{}), diags
}

func num(rs *props.System, c props.Cell) float64 {
	n, _ := rs.Get(c).Number()
	return n
}

func boolean(rs *props.System, c props.Cell) bool {
	b, _ := rs.Get(c).Bool()
	return b
}

func TestCore(t *testing.T) {
	/*
	   a  b
	   | /
	   c
	*/
	t.Run("two cells", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(7))
		b := rs.NewCell(sc, "b", value.TypeNumber, value.Number(1))
		callCount := 0
		c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
			callCount++
			return value.Number(num(rs, a) * num(rs, b))
		})

		assert.Equal(t, 7.0, num(rs, c))

		rs.Set(a, value.Number(2))
		assert.Equal(t, 2.0, num(rs, c))

		rs.Set(b, value.Number(3))
		assert.Equal(t, 6.0, num(rs, c))

		assert.Equal(t, 3, callCount)
		num(rs, c)
		assert.Equal(t, 3, callCount)
	})

	/*
	   a  b
	   | /
	   c
	   |
	   d
	*/
	t.Run("dependent computed", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(7))
		b := rs.NewCell(sc, "b", value.TypeNumber, value.Number(1))

		callCount1 := 0
		c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
			callCount1++
			return value.Number(num(rs, a) * num(rs, b))
		})
		callCount2 := 0
		d := rs.NewBoundCell(sc, "d", value.TypeNumber, func() value.Value {
			callCount2++
			return value.Number(num(rs, c) + 1)
		})

		assert.Equal(t, 8.0, num(rs, d))
		assert.Equal(t, 1, callCount1)
		assert.Equal(t, 1, callCount2)
		rs.Set(a, value.Number(3))
		assert.Equal(t, 4.0, num(rs, d))
		assert.Equal(t, 2, callCount1)
		assert.Equal(t, 2, callCount2)
	})

	/*
	   a
	   |
	   c
	*/
	t.Run("equality check", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		callCount := 0
		a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(7))
		c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
			callCount++
			return value.Number(num(rs, a) + 10)
		})

		num(rs, c)
		num(rs, c)
		assert.Equal(t, 1, callCount)
		rs.Set(a, value.Number(7))
		num(rs, c)
		assert.Equal(t, 1, callCount) // unchanged, equality check
	})

	/*
	   a     b
	   |     |
	   cA   cB
	   |   / (dynamically depends on cB)
	   cAB
	*/
	t.Run("dynamic computed", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(1))
		b := rs.NewCell(sc, "b", value.TypeNumber, value.Number(2))
		var callCountA, callCountB, callCountAB int

		cA := rs.NewBoundCell(sc, "cA", value.TypeNumber, func() value.Value {
			callCountA++
			return rs.Get(a)
		})
		cB := rs.NewBoundCell(sc, "cB", value.TypeNumber, func() value.Value {
			callCountB++
			return rs.Get(b)
		})
		cAB := rs.NewBoundCell(sc, "cAB", value.TypeNumber, func() value.Value {
			callCountAB++
			if av := num(rs, cA); av != 0 {
				return value.Number(av)
			}
			return rs.Get(cB)
		})

		assert.Equal(t, 1.0, num(rs, cAB))
		rs.Set(a, value.Number(2))
		rs.Set(b, value.Number(3))
		assert.Equal(t, 2.0, num(rs, cAB))

		assert.Equal(t, 2, callCountA)
		assert.Equal(t, 2, callCountAB)
		assert.Equal(t, 0, callCountB)
		rs.Set(a, value.Number(0))
		assert.Equal(t, 3.0, num(rs, cAB))
		assert.Equal(t, 3, callCountA)
		assert.Equal(t, 3, callCountAB)
		assert.Equal(t, 1, callCountB)
		rs.Set(b, value.Number(4))
		assert.Equal(t, 4.0, num(rs, cAB))
		assert.Equal(t, 3, callCountA)
		assert.Equal(t, 4, callCountAB)
		assert.Equal(t, 2, callCountB)
	})

	/*
	   a
	   |
	   b (=)
	   |
	   c
	*/
	t.Run("boolean equality check", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(0))
		b := rs.NewBoundCell(sc, "b", value.TypeBool, func() value.Value {
			return value.Bool(num(rs, a) > 0)
		})
		callCount := 0
		c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
			callCount++
			if boolean(rs, b) {
				return value.Number(1)
			}
			return value.Number(0)
		})

		assert.Equal(t, 0.0, num(rs, c))
		assert.Equal(t, 1, callCount)

		rs.Set(a, value.Number(1))
		assert.Equal(t, 1.0, num(rs, c))
		assert.Equal(t, 2, callCount)

		rs.Set(a, value.Number(2))
		assert.Equal(t, 1.0, num(rs, c))
		assert.Equal(t, 2, callCount) // unchanged, oughtn't run because bool didn't change
	})

	/*
	   s
	   |
	   a
	   | \
	   b  c
	    \ |
	      d
	*/
	t.Run("diamond computeds", func(t *testing.T) {
		rs, sc, _ := newSystem(t)
		s := rs.NewCell(sc, "s", value.TypeNumber, value.Number(1))
		a := rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
			return rs.Get(s)
		})
		b := rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
			return value.Number(num(rs, a) * 2)
		})
		c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
			return value.Number(num(rs, a) * 3)
		})
		callCount := 0
		d := rs.NewBoundCell(sc, "d", value.TypeNumber, func() value.Value {
			callCount++
			return value.Number(num(rs, b) + num(rs, c))
		})

		assert.Equal(t, 5.0, num(rs, d))
		assert.Equal(t, 1, callCount)
		rs.Set(s, value.Number(2))
		assert.Equal(t, 10.0, num(rs, d))
		assert.Equal(t, 2, callCount)
		rs.Set(s, value.Number(3))
		assert.Equal(t, 15.0, num(rs, d))
		assert.Equal(t, 3, callCount)
	})

	/*
	   s
	   |
	   l  a (sets s)
	*/
	t.Run("set inside binding", func(t *testing.T) {
		rs, sc, diags := newSystem(t)
		s := rs.NewCell(sc, "s", value.TypeNumber, value.Number(1))
		a := rs.NewBoundCell(sc, "a", value.TypeBool, func() value.Value {
			rs.Set(s, value.Number(2))
			return value.Bool(true)
		})
		l := rs.NewBoundCell(sc, "l", value.TypeNumber, func() value.Value {
			return value.Number(num(rs, s) + 100)
		})

		rs.Get(a)
		assert.Equal(t, 102.0, num(rs, l))
		assert.Empty(t, diags.got)
	})
}

func TestIdempotentReads(t *testing.T) {
	rs, sc, _ := newSystem(t)
	a := rs.NewCell(sc, "a", value.TypeString, value.String("x"))
	b := rs.NewBoundCell(sc, "b", value.TypeString, func() value.Value {
		s, _ := rs.Get(a).Str()
		return value.String(s + s)
	})
	first := rs.Get(b)
	for range 5 {
		assert.Equal(t, first, rs.Get(b))
	}
	assert.Equal(t, uint64(1), rs.Stats().Evaluations)
}

func TestPropagationCompleteness(t *testing.T) {
	rs, sc, _ := newSystem(t)
	src := rs.NewCell(sc, "src", value.TypeNumber, value.Number(1))
	chain := []props.Cell{src}
	for range 10 {
		prev := chain[len(chain)-1]
		chain = append(chain, rs.NewBoundCell(sc, "", value.TypeNumber, func() value.Value {
			return value.Number(num(rs, prev) + 1)
		}))
	}
	last := chain[len(chain)-1]
	assert.Equal(t, 11.0, num(rs, last))

	rs.Set(src, value.Number(100))
	for _, c := range chain[1:] {
		assert.True(t, rs.IsDirty(c), "every transitive dependent is dirty before any read")
	}
	assert.Equal(t, 110.0, num(rs, last))
	for i, c := range chain {
		assert.Equal(t, float64(100+i), num(rs, c))
	}
}

func TestSetDetachesBinding(t *testing.T) {
	rs, sc, _ := newSystem(t)
	a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(1))
	b := rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, a) * 10)
	})
	assert.Equal(t, 10.0, num(rs, b))
	require.True(t, rs.HasBinding(b))

	rs.Set(b, value.Number(3))
	assert.False(t, rs.HasBinding(b))
	assert.Empty(t, rs.Dependents(a))

	rs.Set(a, value.Number(5))
	assert.Equal(t, 3.0, num(rs, b), "a write permanently detaches the binding")
}

func TestBooleanAlgebraVectors(t *testing.T) {
	rs, sc, _ := newSystem(t)
	hello := rs.NewCell(sc, "hello", value.TypeNumber, value.Number(44))
	t1 := rs.NewBoundCell(sc, "t1", value.TypeBool, func() value.Value {
		return value.Bool(num(rs, hello) == 44 || num(rs, hello) == 45)
	})
	t2 := rs.NewBoundCell(sc, "t2", value.TypeBool, func() value.Value {
		return value.Bool(num(rs, hello) > 44 && num(rs, hello) < 46)
	})

	assert.True(t, boolean(rs, t1))
	assert.False(t, boolean(rs, t2))
	for _, h := range []float64{45, 46, 47, 41} {
		rs.Set(hello, value.Number(h))
		assert.Equal(t, h == 44 || h == 45, boolean(rs, t1), "t1 at hello=%v", h)
		assert.Equal(t, h > 44 && h < 46, boolean(rs, t2), "t2 at hello=%v", h)
	}
}

func TestBranchExactDependencies(t *testing.T) {
	rs, sc, _ := newSystem(t)
	cond := rs.NewCell(sc, "cond", value.TypeBool, value.Bool(true))
	cond2 := rs.NewCell(sc, "cond2", value.TypeBool, value.Bool(false))
	evals := 0
	v2 := rs.NewBoundCell(sc, "v2", value.TypeNumber, func() value.Value {
		evals++
		if boolean(rs, cond) {
			if boolean(rs, cond2) {
				return value.Number(1)
			}
			return value.Number(2)
		}
		if boolean(rs, cond2) {
			return value.Number(3)
		}
		return value.Number(4)
	})
	assert.Equal(t, 2.0, num(rs, v2))

	rs.Set(cond, value.Bool(false))
	rs.Set(cond2, value.Bool(true))
	assert.Equal(t, 3.0, num(rs, v2))
	assert.Equal(t, 2, evals)

	a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(10))
	b := rs.NewCell(sc, "b", value.TypeNumber, value.Number(20))
	pickEvals := 0
	pick := rs.NewBoundCell(sc, "pick", value.TypeNumber, func() value.Value {
		pickEvals++
		if boolean(rs, cond) {
			return rs.Get(a)
		}
		return rs.Get(b)
	})
	assert.Equal(t, 20.0, num(rs, pick))
	assert.Equal(t, []props.Cell{cond, b}, rs.Sources(pick))

	// a is not read while cond is false, so writing it triggers nothing.
	rs.Set(a, value.Number(11))
	assert.False(t, rs.IsDirty(pick))
	assert.Equal(t, 20.0, num(rs, pick))
	assert.Equal(t, 1, pickEvals)

	rs.Set(b, value.Number(21))
	assert.True(t, rs.IsDirty(pick))
	assert.Equal(t, 21.0, num(rs, pick))
	assert.Equal(t, 2, pickEvals)

	rs.Set(cond, value.Bool(true))
	assert.Equal(t, 11.0, num(rs, pick))
	assert.Equal(t, []props.Cell{cond, a}, rs.Sources(pick))
	rs.Set(b, value.Number(22))
	assert.False(t, rs.IsDirty(pick))
}

func TestBindingCycle(t *testing.T) {
	rs, sc, diags := newSystem(t)
	var a, b props.Cell
	a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, b) + 1)
	})
	b = rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, a) + 1)
	})

	assert.Equal(t, 0.0, num(rs, a))
	require.Len(t, diags.got, 1)
	assert.Equal(t, props.KindBindingCycle, diags.got[0].Kind)
	var cycle *props.BindingCycleError
	require.ErrorAs(t, diags.got[0], &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)

	assert.Equal(t, 0.0, num(rs, b))
	assert.True(t, rs.Errored(a))
	assert.True(t, rs.Errored(b))
	assert.True(t, rs.IsDirty(a), "a frozen cell keeps retrying")

	// every read retries and re-reports
	num(rs, a)
	assert.Len(t, diags.got, 3)

	// an external write breaks the cycle
	rs.Set(b, value.Number(5))
	assert.Equal(t, 6.0, num(rs, a))
	assert.False(t, rs.Errored(a))
	assert.False(t, rs.IsDirty(a))
	assert.Len(t, diags.got, 3)
}

func TestCycleKeepsLastGoodValue(t *testing.T) {
	rs, sc, diags := newSystem(t)
	useLoop := rs.NewCell(sc, "useLoop", value.TypeBool, value.Bool(false))
	var a props.Cell
	a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
		if boolean(rs, useLoop) {
			return value.Number(num(rs, a) + 1)
		}
		return value.Number(41)
	})
	reader := rs.NewBoundCell(sc, "reader", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, a) + 1)
	})
	assert.Equal(t, 42.0, num(rs, reader))

	rs.Set(useLoop, value.Bool(true))
	assert.Equal(t, 41.0, num(rs, a))
	assert.Equal(t, []props.Kind{props.KindBindingCycle}, diags.kinds())
	assert.Equal(t, 42.0, num(rs, reader))
	assert.True(t, rs.IsDirty(reader), "readers of a frozen cell retry too")

	rs.Set(useLoop, value.Bool(false))
	assert.Equal(t, 42.0, num(rs, reader))
	assert.False(t, rs.IsDirty(reader))
	assert.False(t, rs.Errored(a))
}

func TestCycleLeavesBystandersAlone(t *testing.T) {
	type graph struct {
		entry      props.Cell
		bystanders []props.Cell
		want       []float64
	}
	for name, build := range map[string]func(rs *props.System, sc props.Scope) graph{
		/*
		   a <-> b
		   |
		   d <- c
		*/
		"read after the cycle": func(rs *props.System, sc props.Scope) graph {
			c := rs.NewCell(sc, "c", value.TypeNumber, value.Number(5))
			d := rs.NewBoundCell(sc, "d", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, c) * 2)
			})
			var a, b props.Cell
			a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, b) + num(rs, d))
			})
			b = rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, a))
			})
			return graph{entry: a, bystanders: []props.Cell{d}, want: []float64{10}}
		},
		/*
		   a <-> b
		         |
		         d <- c
		*/
		"read by a member after re-entry": func(rs *props.System, sc props.Scope) graph {
			c := rs.NewCell(sc, "c", value.TypeNumber, value.Number(5))
			d := rs.NewBoundCell(sc, "d", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, c) * 2)
			})
			var a, b props.Cell
			a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, b))
			})
			b = rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, a) + num(rs, d))
			})
			return graph{entry: a, bystanders: []props.Cell{d}, want: []float64{10}}
		},
		/*
		   a <-> b
		   |
		   e <- d <- c
		*/
		"chain after the cycle": func(rs *props.System, sc props.Scope) graph {
			c := rs.NewCell(sc, "c", value.TypeNumber, value.Number(5))
			d := rs.NewBoundCell(sc, "d", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, c) * 2)
			})
			e := rs.NewBoundCell(sc, "e", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, d) + 1)
			})
			var a, b props.Cell
			a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, b) + num(rs, e))
			})
			b = rs.NewBoundCell(sc, "b", value.TypeNumber, func() value.Value {
				return value.Number(num(rs, a))
			})
			return graph{entry: a, bystanders: []props.Cell{d, e}, want: []float64{10, 11}}
		},
	} {
		t.Run(name, func(t *testing.T) {
			rs, sc, diags := newSystem(t)
			g := build(rs, sc)

			num(rs, g.entry)
			assert.Equal(t, []props.Kind{props.KindBindingCycle}, diags.kinds())
			assert.True(t, rs.Errored(g.entry))
			for i, c := range g.bystanders {
				assert.False(t, rs.Errored(c), rs.Name(c))
				assert.False(t, rs.IsDirty(c), rs.Name(c))
				got, _ := rs.Peek(c).Number()
				assert.Equal(t, g.want[i], got, rs.Name(c))
			}
		})
	}
}

func TestWriteToSelfDuringEvaluation(t *testing.T) {
	rs, sc, diags := newSystem(t)
	var a props.Cell
	a = rs.NewBoundCell(sc, "a", value.TypeNumber, func() value.Value {
		rs.Set(a, value.Number(99))
		return value.Number(1)
	})
	assert.Equal(t, 1.0, num(rs, a))
	assert.Equal(t, []props.Kind{props.KindBindingCycle}, diags.kinds())
	assert.True(t, rs.HasBinding(a))
}

func TestTypeMismatch(t *testing.T) {
	rs, sc, diags := newSystem(t)
	a := rs.NewCell(sc, "a", value.TypeNumber, value.Number(1))
	rs.Set(a, value.String("nope"))
	assert.Equal(t, 1.0, num(rs, a))
	assert.Equal(t, []props.Kind{props.KindTypeMismatch}, diags.kinds())

	s := rs.NewCell(sc, "s", value.TypeString, value.String(""))
	rs.Set(s, value.Number(3))
	assert.Equal(t, value.String("3"), rs.Get(s))
}

func TestPauseTracking(t *testing.T) {
	rs, sc, _ := newSystem(t)
	src := rs.NewCell(sc, "src", value.TypeNumber, value.Number(0))
	c := rs.NewBoundCell(sc, "c", value.TypeNumber, func() value.Value {
		rs.PauseTracking()
		v := rs.Get(src)
		rs.ResumeTracking()
		return v
	})
	assert.Equal(t, 0.0, num(rs, c))

	rs.Set(src, value.Number(1))
	assert.Equal(t, 0.0, num(rs, c))

	rs.MarkDirty(c)
	assert.Equal(t, 1.0, num(rs, c))
}

func TestDestroyScope(t *testing.T) {
	rs, root, diags := newSystem(t)
	model := rs.NewCell(root, "model", value.TypeNumber, value.Number(1))
	child := rs.NewScope(root)
	grandchild := rs.NewScope(child)
	x := rs.NewBoundCell(child, "x", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, model) * 2)
	})
	y := rs.NewBoundCell(grandchild, "y", value.TypeNumber, func() value.Value {
		return value.Number(num(rs, x) + 1)
	})
	total := rs.NewBoundCell(root, "total", value.TypeNumber, func() value.Value {
		if rs.Live(y) {
			return rs.Get(y)
		}
		return value.Number(-1)
	})
	assert.Equal(t, 3.0, num(rs, total))
	before := rs.Stats()

	rs.DestroyScope(child)
	assert.False(t, rs.Live(x))
	assert.False(t, rs.Live(y))
	assert.False(t, rs.ScopeLive(grandchild))
	assert.Empty(t, rs.Dependents(model))
	assert.True(t, rs.IsDirty(total))
	assert.Equal(t, -1.0, num(rs, total))
	assert.Equal(t, before.LiveCells-2, rs.Stats().LiveCells)
	assert.Equal(t, 2, rs.Stats().FreeSlots)
	assert.Empty(t, diags.got)

	// recycled slots get a new generation
	z := rs.NewCell(root, "z", value.TypeNumber, value.Number(7))
	assert.NotEqual(t, x, z)
	assert.NotEqual(t, y, z)
	assert.Equal(t, value.Void, rs.Get(y))
	require.Len(t, diags.got, 1)
	assert.Equal(t, props.KindStaleIndex, diags.got[0].Kind)
	assert.Equal(t, props.SeverityFatal, diags.got[0].Severity)
	var stale *props.StaleIndexError
	assert.ErrorAs(t, diags.got[0], &stale)
}

func TestAliases(t *testing.T) {
	a := props.NewAliases[string]()
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		a.Add(k, value.TypeNumber)
	}
	a.Add("s", value.TypeString)
	a.Union("a", "b")
	a.Union("d", "c")
	a.Union("b", "c")
	assert.True(t, a.Same("a", "d"))
	assert.False(t, a.Same("a", "e"))
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}}, a.Groups())
	assert.NoError(t, a.CheckTypes(func(k string) string { return k }))

	a.Union("e", "s")
	err := a.CheckTypes(func(k string) string { return "root." + k })
	var conflict *props.AliasTypeConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"root.e", "root.s"}, conflict.Members)
	assert.Equal(t, []value.Type{value.TypeNumber, value.TypeString}, conflict.Types)
}
