package runtime_test

import (
	"testing"

	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/runtime"
	"github.com/delaneyj/proptree/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const picker = `
root: Main
components:
  - name: Main
    initial-focus: search
    items:
      - {element: root, kind: rectangle, children: {start: 1, count: 3}}
      - {element: list, kind: empty, template: 0}
      - {element: search, kind: touch-area}
      - {element: other, kind: touch-area}
    properties:
      - {element: root, name: names, type: model, value: '["a", "b"]'}
      - {element: root, name: picked, type: string, value: '""'}
      - {element: root, name: picks, type: int, value: "0"}
      - {element: root, name: depth, type: int, value: "0"}
      - {element: list, name: y, type: length, value: "100"}
      - {element: search, name: width, type: length, value: "50"}
      - {element: search, name: height, type: length, value: "50"}
      - {element: search, name: query, type: string, value: '""'}
      - {element: search, name: focused, type: bool}
      - {element: other, name: x, type: length, value: "60"}
      - {element: other, name: width, type: length, value: "50"}
      - {element: other, name: height, type: length, value: "50"}
      - {element: other, name: focused, type: bool}
      - {element: other, name: keys, type: string, value: '""'}
    signals:
      - {element: root, name: chosen, args: [name, at]}
      - {element: root, name: again}
    templates:
      - {kind: repeater, expr: names, component: Row}
    handlers:
      - {element: root, signal: chosen, expr: "let label = name + at; picked = label; picks += 1"}
      - {element: root, signal: again, expr: "depth += 1; again()"}
      - {element: search, signal: key-pressed, expr: search.query += text}
      - {element: other, signal: key-pressed, expr: other.keys += text}
      - {element: other, signal: clicked, expr: again()}
  - name: Row
    items:
      - {element: root, kind: touch-area}
    properties:
      - {element: root, name: x, type: length, binding: index * 20}
      - {element: root, name: width, type: length, value: "20"}
      - {element: root, name: height, type: length, value: "20"}
    handlers:
      - {element: root, signal: clicked, expr: "chosen(model, index)"}
`

func click(rt *runtime.Runtime, x, y float64) bool {
	return rt.DispatchInput(runtime.Event{Kind: runtime.Click, X: x, Y: y})
}

func key(rt *runtime.Runtime, text string) bool {
	return rt.DispatchInput(runtime.Event{Kind: runtime.KeyPress, Text: text})
}

func TestInitialFocusReceivesKeys(t *testing.T) {
	rt, diags := newRuntime(t, picker)

	ref, ok := rt.Focus()
	require.True(t, ok)
	it, err := rt.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "search", it.Element)
	assert.True(t, boolean(t, rt, "search.focused"))
	assert.False(t, boolean(t, rt, "other.focused"))

	assert.True(t, key(rt, "a"))
	assert.True(t, key(rt, "b"))
	assert.Equal(t, value.String("ab"), get(t, rt, "search.query"))
	assert.Equal(t, value.String(""), get(t, rt, "other.keys"))
	assert.Empty(t, diags.got)
}

func TestPointerDownMovesFocus(t *testing.T) {
	rt, _ := newRuntime(t, picker)

	assert.True(t, rt.DispatchInput(runtime.Event{Kind: runtime.PointerDown, X: 70, Y: 10}))
	assert.False(t, boolean(t, rt, "search.focused"))
	assert.True(t, boolean(t, rt, "other.focused"))

	key(rt, "x")
	assert.Equal(t, value.String("x"), get(t, rt, "other.keys"))
	assert.Equal(t, value.String(""), get(t, rt, "search.query"))

	// Rows declare no focused property, so pressing one keeps the focus.
	rt.DispatchInput(runtime.Event{Kind: runtime.PointerDown, X: 5, Y: 105})
	ref, _ := rt.Focus()
	it, err := rt.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "other", it.Element)

	rt.ClearFocus()
	assert.False(t, boolean(t, rt, "other.focused"))
	assert.False(t, key(rt, "y"), "no item has the focus")
}

func TestFocusLostWithInstance(t *testing.T) {
	rt, _ := newRuntime(t, picker)

	rows := items(rt, "Row")
	require.Len(t, rows, 2)
	require.NoError(t, rt.SetFocus(rows[1].Ref))

	require.NoError(t, rt.Set("names", value.Array(value.String("a"))))
	require.Len(t, items(rt, "Row"), 1)
	_, ok := rt.Focus()
	assert.False(t, ok)
	assert.False(t, key(rt, "z"))

	var stale *props.StaleIndexError
	assert.ErrorAs(t, rt.SetFocus(rows[1].Ref), &stale)
	assert.ErrorAs(t, rt.SetFocus(runtime.ItemRef{Instance: rt.Root(), Index: 9}), &stale)
}

func TestEmitDeclaredSignal(t *testing.T) {
	rt, diags := newRuntime(t, picker)

	click(rt, 25, 105)
	assert.Equal(t, value.String("b1"), get(t, rt, "picked"))
	assert.Equal(t, 1.0, num(t, rt, "picks"))

	click(rt, 5, 105)
	assert.Equal(t, value.String("a0"), get(t, rt, "picked"))
	assert.Equal(t, 2.0, num(t, rt, "picks"))
	assert.Empty(t, diags.got)
}

func TestEmitDepthIsBounded(t *testing.T) {
	rt, diags := newRuntime(t, picker)

	click(rt, 70, 10)
	assert.Equal(t, float64(runtime.MaxEmitDepth), num(t, rt, "depth"))
	require.Len(t, diags.got, 1)
	assert.Equal(t, props.KindEvaluation, diags.got[0].Kind)
	var deep *runtime.EmitDepthError
	assert.ErrorAs(t, diags.got[0].Err, &deep)
	assert.Equal(t, "again", deep.Signal)
}
