package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/delaneyj/proptree/animation"
	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// ValidationError locates a problem in a description.
type ValidationError struct {
	Component string
	Where     string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("component %s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("component %s: %s: %v", e.Component, e.Where, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnresolvedError is a reference that names no declared property in the
// component or any component enclosing it.
type UnresolvedError struct {
	Ref string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference %q", e.Ref)
}

// Validate checks the description and prepares it for instantiation:
// expressions are parsed, types and curves resolved and lookup tables
// built. Alias groups whose members were declared with different types are
// reported as *props.AliasTypeConflictError.
func (d *Description) Validate() error {
	d.index()
	if len(d.byName) != len(d.Components) {
		seen := map[string]bool{}
		for _, c := range d.Components {
			if seen[c.Name] {
				return &ValidationError{Component: c.Name, Err: errors.New("declared twice")}
			}
			seen[c.Name] = true
		}
	}
	if _, ok := d.byName[d.Root]; !ok {
		return fmt.Errorf("root component %q not declared", d.Root)
	}

	for i := range d.Components {
		if err := d.Components[i].compile(d); err != nil {
			return err
		}
	}
	if err := d.checkRecursion(); err != nil {
		return err
	}

	root, _ := d.Lookup(d.Root)
	aliases := props.NewAliases[declRef]()
	if err := d.checkScopes([]*Component{root}, aliases); err != nil {
		return err
	}
	name := func(r declRef) string {
		return r.comp.Name + ":" + r.comp.Properties[r.prop].Key()
	}
	if err := aliases.CheckTypes(name); err != nil {
		return fmt.Errorf("invalid aliases: %w", err)
	}
	return nil
}

func (c *Component) fail(where string, err error) error {
	return &ValidationError{Component: c.Name, Where: where, Err: err}
}

func (c *Component) compile(d *Description) error {
	if c.Name == "" {
		return &ValidationError{Err: errors.New("component without a name")}
	}
	if len(c.Items) == 0 {
		return c.fail("", errors.New("no items"))
	}

	c.elements = make(map[string]int, len(c.Items))
	c.parents = make([]int, len(c.Items))
	for i := range c.parents {
		c.parents[i] = -1
	}
	for i, it := range c.Items {
		where := fmt.Sprintf("item %d", i)
		if it.Element == "" {
			return c.fail(where, errors.New("missing element name"))
		}
		if _, dup := c.elements[it.Element]; dup {
			return c.fail(where, fmt.Errorf("element %q declared twice", it.Element))
		}
		c.elements[it.Element] = i
		if !it.Kind.valid() {
			return c.fail(where, fmt.Errorf("unknown kind %q", it.Kind))
		}
		if t := it.TemplateIndex(); it.Template != nil {
			if t < 0 || t >= len(c.Templates) {
				return c.fail(where, fmt.Errorf("template %d out of range", t))
			}
			if it.Children != nil && it.Children.Count > 0 {
				return c.fail(where, errors.New("a template anchor cannot have static children"))
			}
		}
		if r := it.Children; r != nil {
			if r.Count < 0 || r.Start <= i || r.Start+r.Count > len(c.Items) {
				return c.fail(where, fmt.Errorf("children [%d,+%d) out of range", r.Start, r.Count))
			}
			for j := r.Start; j < r.Start+r.Count; j++ {
				if c.parents[j] >= 0 {
					return c.fail(where, fmt.Errorf("item %d has two parents", j))
				}
				c.parents[j] = i
			}
		}
	}
	for i := 1; i < len(c.Items); i++ {
		if c.parents[i] < 0 {
			return c.fail(fmt.Sprintf("item %d", i), errors.New("not reachable from the root item"))
		}
	}

	c.props = make(map[propKey]int, len(c.Properties))
	c.byElement = map[string][]int{}
	for i := range c.Properties {
		p := &c.Properties[i]
		where := "property " + p.Key()
		if _, ok := c.elements[p.Element]; !ok {
			return c.fail(where, fmt.Errorf("unknown element %q", p.Element))
		}
		if p.Name == "" {
			return c.fail(where, errors.New("missing name"))
		}
		k := propKey{p.Element, p.Name}
		if _, dup := c.props[k]; dup {
			return c.fail(where, errors.New("declared twice"))
		}
		c.props[k] = i
		c.byElement[p.Element] = append(c.byElement[p.Element], i)

		t, err := value.ParseType(p.Type)
		if err != nil {
			return c.fail(where, err)
		}
		p.typ = t
		if p.Binding != "" {
			if p.binding, err = expr.Parse(p.Binding); err != nil {
				return c.fail(where, err)
			}
			if expr.HasEffects(p.binding) {
				return c.fail(where, errors.New("a binding cannot assign or emit"))
			}
		}
		if p.Value != "" {
			if p.initial, err = expr.Parse(p.Value); err != nil {
				return c.fail(where, err)
			}
			if !constant(p.initial) {
				return c.fail(where, fmt.Errorf("initial value %q is not constant", p.Value))
			}
		}
		if a := p.Animation; a != nil {
			curve, err := animation.ParseCurve(a.Easing)
			if err != nil {
				return c.fail(where, err)
			}
			if a.Duration < 0 || a.Delay < 0 {
				return c.fail(where, errors.New("negative animation timing"))
			}
			p.anim = &animation.Animation{Duration: a.Duration, Delay: a.Delay, Easing: curve}
		}
	}

	for i := range c.Templates {
		t := &c.Templates[i]
		where := fmt.Sprintf("template %d", i)
		if t.Kind != Repeater && t.Kind != Conditional {
			return c.fail(where, fmt.Errorf("unknown kind %q", t.Kind))
		}
		if _, ok := d.byName[t.Component]; !ok {
			return c.fail(where, fmt.Errorf("unknown component %q", t.Component))
		}
		var err error
		if t.node, err = expr.Parse(t.Expr); err != nil {
			return c.fail(where, err)
		}
		if expr.HasEffects(t.node) {
			return c.fail(where, errors.New("a template expression cannot assign or emit"))
		}
	}

	c.signals = make(map[propKey]int, len(c.Signals))
	for i, sd := range c.Signals {
		where := "signal " + sd.Key()
		if _, ok := c.elements[sd.Element]; !ok {
			return c.fail(where, fmt.Errorf("unknown element %q", sd.Element))
		}
		if _, ok := builtinSignals[Signal(sd.Name)]; ok {
			return c.fail(where, errors.New("shadows a builtin signal"))
		}
		if !expr.LocalName(sd.Name) {
			return c.fail(where, fmt.Errorf("%q is not a valid signal name", sd.Name))
		}
		k := propKey{sd.Element, sd.Name}
		if _, dup := c.signals[k]; dup {
			return c.fail(where, errors.New("declared twice"))
		}
		c.signals[k] = i
		seen := map[string]bool{}
		for _, a := range sd.Args {
			if !expr.LocalName(a) || seen[a] {
				return c.fail(where, fmt.Errorf("invalid argument %q", a))
			}
			seen[a] = true
		}
	}

	for i := range c.Handlers {
		h := &c.Handlers[i]
		where := fmt.Sprintf("handler %s.%s", h.Element, h.Signal)
		if _, ok := c.elements[h.Element]; !ok {
			return c.fail(where, fmt.Errorf("unknown element %q", h.Element))
		}
		params, ok := c.SignalParams(h.Element, h.Signal)
		if !ok {
			return c.fail(where, fmt.Errorf("unknown signal %q", h.Signal))
		}
		var err error
		if h.node, err = expr.ParseWithLocals(h.Expr, params...); err != nil {
			return c.fail(where, err)
		}
	}

	if c.InitialFocus != "" {
		if _, ok := c.elements[c.InitialFocus]; !ok {
			return c.fail("initial-focus", fmt.Errorf("unknown element %q", c.InitialFocus))
		}
	}

	for i, a := range c.Aliases {
		if len(a.Members) < 2 {
			return c.fail(fmt.Sprintf("alias %d", i), errors.New("needs at least two members"))
		}
		for _, m := range a.Members {
			if _, _, ok := strings.Cut(m, "."); !ok {
				return c.fail(fmt.Sprintf("alias %d", i), fmt.Errorf("member %q is not elem.prop", m))
			}
		}
	}
	return nil
}

func constant(n expr.Node) bool {
	ok := true
	expr.Walk(n, func(n expr.Node) bool {
		switch n.(type) {
		case *expr.Ref, *expr.Index, *expr.Model, *expr.Assign, *expr.Emit, *expr.Local, *expr.Let:
			ok = false
		}
		return ok
	})
	return ok
}

// checkRecursion rejects components that instantiate themselves through
// their templates.
func (d *Description) checkRecursion() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(d.Components))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visiting:
			return &ValidationError{Component: d.Components[i].Name, Err: errors.New("instantiates itself")}
		case done:
			return nil
		}
		state[i] = visiting
		for _, t := range d.Components[i].Templates {
			if err := visit(d.byName[t.Component]); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}
	for i := range d.Components {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

type declRef struct {
	comp *Component
	prop int
}

// ResolveIn looks path up in the innermost component of chain first, then
// in each enclosing one. depth is the position in chain of the owner.
func ResolveIn(chain []*Component, path []string) (depth, prop int, fields []string, ok bool) {
	for depth = len(chain) - 1; depth >= 0; depth-- {
		if prop, fields, ok = chain[depth].Resolve(path); ok {
			return depth, prop, fields, true
		}
	}
	return 0, 0, nil, false
}

// ResolveSignalIn looks a signal path up like ResolveIn.
func ResolveSignalIn(chain []*Component, path []string) (depth, signal int, ok bool) {
	for depth = len(chain) - 1; depth >= 0; depth-- {
		if signal, ok = chain[depth].ResolveSignal(path); ok {
			return depth, signal, true
		}
	}
	return 0, 0, false
}

// checkScopes resolves every reference of the component at the end of
// chain, then recurses into the components it instantiates.
func (d *Description) checkScopes(chain []*Component, aliases *props.Aliases[declRef]) error {
	c := chain[len(chain)-1]

	check := func(where string, n expr.Node) error {
		for _, r := range expr.Refs(n) {
			if _, _, _, ok := ResolveIn(chain, r.Path); !ok {
				return c.fail(where, &UnresolvedError{Ref: strings.Join(r.Path, ".")})
			}
		}
		return nil
	}
	for _, p := range c.Properties {
		if p.binding != nil {
			if err := check("property "+p.Key(), p.binding); err != nil {
				return err
			}
		}
	}
	for i, t := range c.Templates {
		if err := check(fmt.Sprintf("template %d", i), t.node); err != nil {
			return err
		}
	}
	for _, h := range c.Handlers {
		if err := check(fmt.Sprintf("handler %s.%s", h.Element, h.Signal), h.node); err != nil {
			return err
		}
		for _, r := range expr.Refs(h.node) {
			if _, _, fields, _ := ResolveIn(chain, r.Path); len(fields) > 0 && assigns(h.node, r) {
				return c.fail("handler", fmt.Errorf("cannot assign to field of %s", strings.Join(r.Path, ".")))
			}
		}
		for _, e := range expr.Emits(h.node) {
			name := strings.Join(e.Signal.Path, ".")
			depth, i, ok := ResolveSignalIn(chain, e.Signal.Path)
			if !ok {
				return c.fail(fmt.Sprintf("handler %s.%s", h.Element, h.Signal), &UnresolvedError{Ref: name})
			}
			if want := len(chain[depth].Signals[i].Args); len(e.Args) != want {
				return c.fail(fmt.Sprintf("handler %s.%s", h.Element, h.Signal),
					fmt.Errorf("%s takes %d arguments, got %d", name, want, len(e.Args)))
			}
		}
	}

	// Each group may reach at most one property outside this component: an
	// instance can share an ancestor's cell but never merge two of them.
	local := props.NewAliases[declRef]()
	for i, a := range c.Aliases {
		var first declRef
		for j, m := range a.Members {
			depth, prop, fields, ok := ResolveIn(chain, strings.Split(m, "."))
			if !ok || len(fields) > 0 {
				return c.fail(fmt.Sprintf("alias %d", i), &UnresolvedError{Ref: m})
			}
			ref := declRef{comp: chain[depth], prop: prop}
			t := ref.comp.Properties[prop].typ
			aliases.Add(ref, t)
			local.Add(ref, t)
			if j == 0 {
				first = ref
				continue
			}
			aliases.Union(first, ref)
			local.Union(first, ref)
		}
	}
	for _, g := range local.Groups() {
		outside := 0
		for _, r := range g {
			if r.comp != c {
				outside++
			}
		}
		if outside > 1 {
			return c.fail("aliases", errors.New("a group aliases more than one enclosing property"))
		}
	}

	for _, t := range c.Templates {
		child, _ := d.Lookup(t.Component)
		if err := d.checkScopes(append(chain[:len(chain):len(chain)], child), aliases); err != nil {
			return err
		}
	}
	return nil
}

func assigns(n expr.Node, target *expr.Ref) bool {
	found := false
	expr.Walk(n, func(n expr.Node) bool {
		if a, ok := n.(*expr.Assign); ok && a.Target == target {
			found = true
		}
		return !found
	})
	return found
}
