// Package layout holds the compiled layout description a runtime is
// instantiated from: per component, its property declarations, a flattened
// item tree, repeater and conditional templates, alias groups and signal
// handlers.
package layout

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/delaneyj/proptree/animation"
	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/value"
	"gopkg.in/yaml.v3"
)

// Description is a whole compiled layout.
type Description struct {
	Root       string      `yaml:"root"`
	Components []Component `yaml:"components"`

	byName map[string]int
}

type Component struct {
	Name       string         `yaml:"name"`
	Properties []PropertyDecl `yaml:"properties,omitempty"`
	Items      []ItemNode     `yaml:"items"`
	Templates  []Template     `yaml:"templates,omitempty"`
	Aliases    []AliasDecl    `yaml:"aliases,omitempty"`
	Signals    []SignalDecl   `yaml:"signals,omitempty"`
	Handlers   []Handler      `yaml:"handlers,omitempty"`

	// InitialFocus names the element that holds keyboard focus when the
	// component is the root of a runtime.
	InitialFocus string `yaml:"initial-focus,omitempty"`

	elements  map[string]int
	parents   []int
	props     map[propKey]int
	byElement map[string][]int
	signals   map[propKey]int
}

type propKey struct {
	element, name string
}

// PropertyDecl declares one property of an element. Binding and Value are
// expression text; Value must be constant.
type PropertyDecl struct {
	Element   string         `yaml:"element"`
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Binding   string         `yaml:"binding,omitempty"`
	Value     string         `yaml:"value,omitempty"`
	Animation *AnimationDecl `yaml:"animation,omitempty"`

	typ     value.Type
	binding expr.Node
	initial expr.Node
	anim    *animation.Animation
}

type AnimationDecl struct {
	Duration time.Duration `yaml:"duration"`
	Delay    time.Duration `yaml:"delay,omitempty"`
	Easing   string        `yaml:"easing,omitempty"`
}

type ItemKind string

const (
	KindRectangle ItemKind = "rectangle"
	KindText      ItemKind = "text"
	KindTouchArea ItemKind = "touch-area"
	KindImage     ItemKind = "image"
	KindEmpty     ItemKind = "empty"
)

func (k ItemKind) valid() bool {
	switch k {
	case KindRectangle, KindText, KindTouchArea, KindImage, KindEmpty:
		return true
	}
	return false
}

// Range addresses consecutive items of the same component.
type Range struct {
	Start int `yaml:"start"`
	Count int `yaml:"count"`
}

// ItemNode is one entry of a component's flattened item tree. Item 0 is the
// component root. An item with a Template is the anchor of a dynamic
// region.
type ItemNode struct {
	Element  string   `yaml:"element"`
	Kind     ItemKind `yaml:"kind"`
	Children *Range   `yaml:"children,omitempty"`
	Template *int     `yaml:"template,omitempty"`
}

// TemplateIndex returns the template the item anchors, or -1 for a static
// item.
func (n ItemNode) TemplateIndex() int {
	if n.Template == nil {
		return -1
	}
	return *n.Template
}

type TemplateKind string

const (
	Repeater    TemplateKind = "repeater"
	Conditional TemplateKind = "conditional"
)

// Template instantiates Component once per model element (repeater) or
// while Expr is true (conditional).
type Template struct {
	Kind      TemplateKind `yaml:"kind"`
	Expr      string       `yaml:"expr"`
	Component string       `yaml:"component"`

	node expr.Node
}

// AliasDecl unifies properties named "elem.prop". Members that are not
// declared in the component resolve through the enclosing instances.
type AliasDecl struct {
	Members []string `yaml:"members"`
}

type Signal string

const (
	Clicked    Signal = "clicked"
	Pressed    Signal = "pressed"
	Released   Signal = "released"
	KeyPressed Signal = "key-pressed"
)

// builtinSignals maps the signals the runtime raises to the locals their
// handlers receive.
var builtinSignals = map[Signal][]string{
	Clicked:    nil,
	Pressed:    nil,
	Released:   nil,
	KeyPressed: {"text"},
}

// SignalDecl declares a signal an element can raise from a handler with
// name(args...). Args name the locals its handlers receive.
type SignalDecl struct {
	Element string   `yaml:"element"`
	Name    string   `yaml:"name"`
	Args    []string `yaml:"args,omitempty"`
}

// Key is "elem.signal".
func (s *SignalDecl) Key() string { return s.Element + "." + s.Name }

type Handler struct {
	Element string `yaml:"element"`
	Signal  Signal `yaml:"signal"`
	Expr    string `yaml:"expr"`

	node expr.Node
}

// Load decodes a YAML description and validates it. Unknown fields are
// rejected.
func Load(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Description
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile reads and validates the description at path.
func LoadFile(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	d, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Lookup returns the named component.
func (d *Description) Lookup(name string) (*Component, bool) {
	if d.byName == nil {
		d.index()
	}
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.Components[i], true
}

func (d *Description) index() {
	d.byName = make(map[string]int, len(d.Components))
	for i, c := range d.Components {
		if _, dup := d.byName[c.Name]; !dup {
			d.byName[c.Name] = i
		}
	}
}

// RootElement is the element name of item 0.
func (c *Component) RootElement() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].Element
}

// Item returns the index of the item named element.
func (c *Component) Item(element string) (int, bool) {
	i, ok := c.elements[element]
	return i, ok
}

// Parent returns the index of the item containing item i, -1 for the root.
func (c *Component) Parent(i int) int {
	return c.parents[i]
}

// Property returns the index of the declaration of element.name.
func (c *Component) Property(element, name string) (int, bool) {
	i, ok := c.props[propKey{element, name}]
	return i, ok
}

// ElementProperties lists the declarations of element in order.
func (c *Component) ElementProperties(element string) []int {
	return c.byElement[element]
}

// Resolve finds the property path names inside c: "elem.prop", or a bare
// "prop" of the root element. The remaining segments are field accesses.
func (c *Component) Resolve(path []string) (prop int, fields []string, ok bool) {
	if len(path) >= 2 {
		if i, ok := c.Property(path[0], path[1]); ok {
			return i, path[2:], true
		}
	}
	if len(path) >= 1 {
		if i, ok := c.Property(c.RootElement(), path[0]); ok {
			return i, path[1:], true
		}
	}
	return 0, nil, false
}

// Signal returns the index of the declaration of element.name.
func (c *Component) Signal(element, name string) (int, bool) {
	i, ok := c.signals[propKey{element, name}]
	return i, ok
}

// ResolveSignal finds the signal path names inside c: "elem.signal", or a
// bare "signal" of the root element.
func (c *Component) ResolveSignal(path []string) (int, bool) {
	switch len(path) {
	case 1:
		return c.Signal(c.RootElement(), path[0])
	case 2:
		return c.Signal(path[0], path[1])
	}
	return 0, false
}

// SignalParams lists the locals a handler of element.signal receives.
func (c *Component) SignalParams(element string, signal Signal) ([]string, bool) {
	if params, ok := builtinSignals[signal]; ok {
		return params, true
	}
	i, ok := c.Signal(element, string(signal))
	if !ok {
		return nil, false
	}
	return c.Signals[i].Args, true
}

// ValueType is the declared type.
func (p *PropertyDecl) ValueType() value.Type { return p.typ }

// BindingExpr is the parsed binding, nil for a plain property.
func (p *PropertyDecl) BindingExpr() expr.Node { return p.binding }

// InitialExpr is the parsed initial value, nil when absent.
func (p *PropertyDecl) InitialExpr() expr.Node { return p.initial }

// Anim is the parsed animation, nil when the property is not animated.
func (p *PropertyDecl) Anim() *animation.Animation { return p.anim }

// Key is "elem.prop".
func (p *PropertyDecl) Key() string { return p.Element + "." + p.Name }

func (t *Template) Node() expr.Node { return t.node }

func (h *Handler) Node() expr.Node { return h.node }
