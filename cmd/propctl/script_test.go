package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/runtime"
	"github.com/delaneyj/proptree/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gallery = `
root: Main
components:
  - name: Main
    items:
      - {element: root, kind: rectangle, children: {start: 1, count: 3}}
      - {element: list, kind: empty, template: 0}
      - {element: popup, kind: empty, template: 1}
      - {element: toggle, kind: touch-area}
    properties:
      - {element: root, name: width, type: length, value: "400"}
      - {element: root, name: height, type: length, value: "300"}
      - {element: root, name: colors, type: model, value: '[#f00, #00f, #0a0]'}
      - {element: root, name: selected, type: int, value: "0"}
      - {element: root, name: open, type: bool, value: "false"}
      - {element: root, name: clicks, type: int, value: "0"}
      - {element: list, name: y, type: length, value: "100"}
      - {element: popup, name: y, type: length, value: "200"}
      - {element: toggle, name: width, type: length, value: "50"}
      - {element: toggle, name: height, type: length, value: "50"}
    templates:
      - {kind: repeater, expr: colors, component: Swatch}
      - {kind: conditional, expr: open, component: Popup}
    handlers:
      - {element: toggle, signal: clicked, expr: "open = !open"}
  - name: Swatch
    items:
      - {element: root, kind: touch-area}
    properties:
      - {element: root, name: color, type: color, binding: model}
      - {element: root, name: x, type: length, binding: index * 20}
      - {element: root, name: width, type: length, value: "20"}
      - {element: root, name: height, type: length, value: "20"}
      - {element: root, name: current, type: int}
    aliases:
      - members: [root.current, root.selected]
    handlers:
      - {element: root, signal: clicked, expr: current = index}
  - name: Popup
    items:
      - {element: root, kind: rectangle, children: {start: 1, count: 1}}
      - {element: ok, kind: touch-area}
    properties:
      - {element: root, name: title, type: string, value: '"hello"'}
      - {element: ok, name: width, type: length, value: "100"}
      - {element: ok, name: height, type: length, value: "40"}
    handlers:
      - {element: ok, signal: clicked, expr: "clicks += 1; open = false"}
`

const session = `
[[step]]
click = [10, 10]

[[step]]
get = "open"
expect = "true"

[[step]]
get = "popup.title"
expect = '"hello"'

[[step]]
click = [10, 210]

[[step]]
get = "clicks"
expect = "1"

[[step]]
get = "open"
expect = "false"

[[step]]
click = [25, 105]

[[step]]
get = "selected"
expect = "1"

[[step]]
set = "colors"
value = "[#f00]"

[[step]]
get = "list[0].color"
expect = "#f00"

[[step]]
ticks = 2

[[step]]
dump = true
`

func newRuntime(t *testing.T) (*runtime.Runtime, *[]props.Diagnostic) {
	t.Helper()
	desc, err := layout.Load(strings.NewReader(gallery))
	require.NoError(t, err)
	var diags []props.Diagnostic
	rt, err := runtime.New(desc, runtime.WithErrorHandler(func(d props.Diagnostic) {
		diags = append(diags, d)
	}))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt, &diags
}

func TestRunSession(t *testing.T) {
	rt, diags := newRuntime(t)
	script, err := ReadScript(strings.NewReader(session))
	require.NoError(t, err)
	require.Len(t, script.Steps, 12)

	var out bytes.Buffer
	require.NoError(t, NewRunner(rt, DefaultConfig(), &out).Run(script))
	assert.Empty(t, *diags)
	assert.Equal(t, 32*time.Millisecond, rt.Now())

	got := out.String()
	assert.Contains(t, got, "popup.title = \"hello\"\n")
	assert.Contains(t, got, "list[0].color = #ff0000\n")
	// outline after the model shrank to one swatch
	assert.Contains(t, got, "Main.root <rectangle> 0,0 400x300\n")
	assert.Contains(t, got, "    Swatch.root <touch-area> 0,100 20x20\n")
	assert.Contains(t, got, "      color: #ff0000\n")
	assert.Contains(t, got, "  Main.toggle <touch-area> 0,0 50x50\n")
	assert.NotContains(t, got, "Popup.root")
}

func TestFailedExpectation(t *testing.T) {
	rt, _ := newRuntime(t)
	r := NewRunner(rt, DefaultConfig(), &bytes.Buffer{})

	err := r.Run(&Script{Steps: []Step{
		{Set: "selected", Value: "2"},
		{Get: "list[2].current", Expect: "3"},
	}})
	var exp *ExpectationError
	require.ErrorAs(t, err, &exp)
	assert.Equal(t, "list[2].current", exp.Path)
	assert.Equal(t, value.Number(3), exp.Want)
	assert.Equal(t, value.Number(2), exp.Got)
	assert.ErrorContains(t, err, "step 2:")
}

func TestStepErrors(t *testing.T) {
	rt, _ := newRuntime(t)
	r := NewRunner(rt, DefaultConfig(), &bytes.Buffer{})

	var pathErr *runtime.PathError
	assert.ErrorAs(t, r.Step(Step{Get: "nope"}), &pathErr)
	assert.ErrorAs(t, r.Step(Step{Set: "list[7].color", Value: "#000"}), &pathErr)
	assert.ErrorContains(t, r.Step(Step{Set: "open", Value: "open"}), "references are not allowed")
	assert.ErrorContains(t, r.Step(Step{Click: []float64{1}}), "point needs [x, y]")
	assert.ErrorContains(t, r.Step(Step{}), "empty step")
}

func TestReadScriptRejects(t *testing.T) {
	for name, src := range map[string]string{
		"mixed step":    "[[step]]\nget = \"open\"\ndump = true\n",
		"empty step":    "[[step]]\n",
		"unknown field": "[[step]]\nwait = 3\n",
		"bad duration":  "[[step]]\nadvance = \"soon\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadScript(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestPressAndRelease(t *testing.T) {
	rt, _ := newRuntime(t)
	r := NewRunner(rt, DefaultConfig(), &bytes.Buffer{})

	// A press alone never fires clicked.
	require.NoError(t, r.Step(Step{Press: []float64{10, 10}}))
	require.NoError(t, r.Step(Step{Release: []float64{10, 10}}))
	v, err := rt.Get("open")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), v)
}

const editor = `
root: Main
components:
  - name: Main
    initial-focus: field
    items:
      - {element: root, kind: rectangle, children: {start: 1, count: 1}}
      - {element: field, kind: touch-area}
    properties:
      - {element: field, name: text, type: string, value: '""'}
    handlers:
      - {element: field, signal: key-pressed, expr: field.text += text}
`

func TestKeyStep(t *testing.T) {
	desc, err := layout.Load(strings.NewReader(editor))
	require.NoError(t, err)
	rt, err := runtime.New(desc)
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	script, err := ReadScript(strings.NewReader("[[step]]\nkey = \"h\"\n\n[[step]]\nkey = \"i\"\n"))
	require.NoError(t, err)
	r := NewRunner(rt, DefaultConfig(), &bytes.Buffer{})
	require.NoError(t, r.Run(script))
	require.NoError(t, r.Step(Step{Get: "field.text", Expect: `"hi"`}))
}
