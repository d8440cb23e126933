// Package props implements lazily evaluated property cells with automatic
// dependency tracking, dirty propagation, binding cycle detection and
// animation overlays.
//
// Cells live in an arena owned by a System and are addressed by Cell handles
// (slot index plus generation), so bindings, dependency edges and alias
// groups hold indices rather than pointers. A System is single threaded.
package props

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/proptree/animation"
	"github.com/delaneyj/proptree/value"
)

// CacheState is how far a cell's cached value can be trusted. Check and
// Dirty both count as dirty for IsDirty.
type CacheState uint8

const (
	CacheClean CacheState = iota // value is valid, no need to recompute
	CacheCheck                   // a transitive source changed, check sources to decide whether to recompute
	CacheDirty                   // a direct source changed, value needs to be recomputed
)

func (c CacheState) String() string {
	switch c {
	case CacheCheck:
		return "check"
	case CacheDirty:
		return "dirty"
	default:
		return "clean"
	}
}

// Cell is a handle to a property cell. The zero Cell is invalid.
type Cell struct {
	index uint32
	gen   uint32
}

// Valid reports whether c was ever allocated. Use System.Live to check that
// it has not been freed since.
func (c Cell) Valid() bool { return c.gen != 0 }

func (c Cell) String() string { return fmt.Sprintf("cell(%d@%d)", c.index, c.gen) }

// Binding recomputes a cell. Every Get it performs on the same System is
// recorded as a dependency of the cell.
type Binding func() value.Value

// Scope groups the cells of one component instance so they can be torn down
// together. The zero Scope is "no parent".
type Scope struct {
	index uint32
	gen   uint32
}

func (s Scope) Valid() bool { return s.gen != 0 }

type slot struct {
	gen  uint32
	live bool
	name string
	typ  value.Type

	value     value.Value
	binding   Binding
	state     CacheState
	evaluated bool

	sources    []Cell
	dependents mapset.Set[Cell]

	evaluating bool
	cycle      bool

	scope   Scope
	anim    *animation.Animation
	overlay *animation.Overlay
}

type scopeEntry struct {
	gen      uint32
	live     bool
	parent   Scope
	cells    []Cell
	children []Scope
}

type frame struct {
	cell   Cell
	reads  []Cell
	seen   mapset.Set[Cell]
	paused int
	// frozen is set when the evaluation consumed a value that is itself
	// still waiting on a broken cycle.
	frozen bool
	// member marks the frames between a re-entered cell and the read that
	// re-entered it.
	member bool
}

type System struct {
	slots      []slot
	free       []uint32
	scopes     []scopeEntry
	freeScopes []uint32

	stack      []*frame
	pauseStack []*frame
	rootPaused int

	now       time.Duration
	animating mapset.Set[Cell]

	onError     OnErrorFunc
	evaluations uint64
}

type Option func(*System)

// WithErrorHandler routes diagnostics to fn instead of the standard logger.
func WithErrorHandler(fn OnErrorFunc) Option {
	return func(s *System) {
		s.onError = fn
	}
}

// WithClock sets the initial tick time.
func WithClock(now time.Duration) Option {
	return func(s *System) {
		s.now = now
	}
}

func NewSystem(opts ...Option) *System {
	s := &System{
		animating: mapset.NewThreadUnsafeSet[Cell](),
		onError:   LogErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the current tick time.
func (s *System) Now() time.Duration {
	return s.now
}

// Report delivers d through the system's diagnostic channel, stamping it
// with the current tick time.
func (s *System) Report(d Diagnostic) {
	s.report(d)
}

func (s *System) report(d Diagnostic) {
	d.At = s.now
	if d.Name == "" && d.Cell.Valid() && s.live(d.Cell) {
		d.Name = s.slots[d.Cell.index].name
	}
	if s.onError != nil {
		s.onError(d)
	}
}

// NewScope creates a scope nested in parent (which may be the zero Scope).
func (s *System) NewScope(parent Scope) Scope {
	var idx uint32
	if n := len(s.freeScopes); n > 0 {
		idx = s.freeScopes[n-1]
		s.freeScopes = s.freeScopes[:n-1]
	} else {
		idx = uint32(len(s.scopes))
		s.scopes = append(s.scopes, scopeEntry{})
	}
	e := &s.scopes[idx]
	e.gen++
	e.live = true
	e.parent = parent
	sc := Scope{index: idx, gen: e.gen}
	if p, ok := s.scopeEntry(parent); ok {
		p.children = append(p.children, sc)
	}
	return sc
}

func (s *System) scopeEntry(sc Scope) (*scopeEntry, bool) {
	if !sc.Valid() || int(sc.index) >= len(s.scopes) {
		return nil, false
	}
	e := &s.scopes[sc.index]
	if !e.live || e.gen != sc.gen {
		return nil, false
	}
	return e, true
}

// ScopeLive reports whether sc has not been destroyed.
func (s *System) ScopeLive(sc Scope) bool {
	_, ok := s.scopeEntry(sc)
	return ok
}

func (s *System) alloc(sc Scope, name string, t value.Type) Cell {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[idx]
	gen := sl.gen + 1
	*sl = slot{
		gen:        gen,
		live:       true,
		name:       name,
		typ:        t,
		value:      value.Zero(t),
		dependents: mapset.NewThreadUnsafeSet[Cell](),
		scope:      sc,
	}
	c := Cell{index: idx, gen: gen}
	if e, ok := s.scopeEntry(sc); ok {
		e.cells = append(e.cells, c)
	}
	return c
}

// NewCell creates a plain cell holding initial.
func (s *System) NewCell(sc Scope, name string, t value.Type, initial value.Value) Cell {
	c := s.alloc(sc, name, t)
	if v, ok := value.Convert(initial, t); ok {
		s.slots[c.index].value = v
	} else {
		s.report(Diagnostic{
			Kind: KindTypeMismatch,
			Cell: c,
			Err:  &TypeMismatchError{Want: t, Got: initial.Type()},
		})
	}
	return c
}

// NewBoundCell creates a cell driven by fn. Nothing is evaluated until the
// first Get.
func (s *System) NewBoundCell(sc Scope, name string, t value.Type, fn Binding) Cell {
	c := s.alloc(sc, name, t)
	sl := &s.slots[c.index]
	sl.binding = fn
	sl.state = CacheDirty
	return c
}

// SetBinding installs fn on c, replacing any previous binding or value.
func (s *System) SetBinding(c Cell, fn Binding) {
	sl, ok := s.slot(c, "set-binding")
	if !ok {
		return
	}
	s.unlinkSources(c)
	sl = &s.slots[c.index]
	sl.binding = fn
	sl.cycle = false
	s.stale(c, CacheDirty)
}

// SetAnimation declares that value changes of c are animated.
func (s *System) SetAnimation(c Cell, anim animation.Animation) {
	sl, ok := s.slot(c, "set-animation")
	if !ok {
		return
	}
	a := anim
	sl.anim = &a
}

func (s *System) live(c Cell) bool {
	if !c.Valid() || int(c.index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[c.index]
	return sl.live && sl.gen == c.gen
}

// slot resolves c, reporting a fatal stale index diagnostic on failure.
func (s *System) slot(c Cell, op string) (*slot, bool) {
	if s.live(c) {
		return &s.slots[c.index], true
	}
	err := &StaleIndexError{Op: op, Index: c.index, Gen: c.gen}
	if int(c.index) < len(s.slots) && s.slots[c.index].live {
		err.Want = s.slots[c.index].gen
	}
	s.report(Diagnostic{Kind: KindStaleIndex, Severity: SeverityFatal, Cell: c, Err: err})
	return nil, false
}

// Live reports whether c still refers to an allocated cell.
func (s *System) Live(c Cell) bool { return s.live(c) }

// Name is the debug name c was created with.
func (s *System) Name(c Cell) string {
	if !s.live(c) {
		return ""
	}
	return s.slots[c.index].name
}

// Type is the declared type of c.
func (s *System) Type(c Cell) value.Type {
	if !s.live(c) {
		return value.TypeVoid
	}
	return s.slots[c.index].typ
}

// State is the cache state of c without refreshing it.
func (s *System) State(c Cell) CacheState {
	if !s.live(c) {
		return CacheClean
	}
	return s.slots[c.index].state
}

// IsDirty reports whether the next Get of c may recompute.
func (s *System) IsDirty(c Cell) bool {
	return s.State(c) != CacheClean
}

// HasBinding reports whether c is still computed by a binding. Set removes
// the binding.
func (s *System) HasBinding(c Cell) bool {
	return s.live(c) && s.slots[c.index].binding != nil
}

// Errored reports whether c is frozen on a binding cycle.
func (s *System) Errored(c Cell) bool {
	return s.live(c) && s.slots[c.index].cycle
}

// Animating reports whether c has an active overlay at the current tick.
func (s *System) Animating(c Cell) bool {
	return s.live(c) && s.slots[c.index].overlay != nil && !s.slots[c.index].overlay.Done(s.now)
}

// Sources lists the cells read by the last evaluation of c, in read order.
func (s *System) Sources(c Cell) []Cell {
	if !s.live(c) {
		return nil
	}
	return append([]Cell(nil), s.slots[c.index].sources...)
}

// Dependents lists the cells whose last evaluation read c.
func (s *System) Dependents(c Cell) []Cell {
	if !s.live(c) {
		return nil
	}
	return s.slots[c.index].dependents.ToSlice()
}

// Stats counts the arena and the work done so far. Animating is the number
// of running overlays and Evaluations the number of binding runs.
type Stats struct {
	LiveCells   int
	FreeSlots   int
	LiveScopes  int
	Animating   int
	Evaluations uint64
}

func (s *System) Stats() Stats {
	st := Stats{
		FreeSlots:   len(s.free),
		Animating:   s.animating.Cardinality(),
		Evaluations: s.evaluations,
	}
	for i := range s.slots {
		if s.slots[i].live {
			st.LiveCells++
		}
	}
	for i := range s.scopes {
		if s.scopes[i].live {
			st.LiveScopes++
		}
	}
	return st
}

// DestroyScope frees every cell of sc and of its nested scopes. Overlays
// are canceled and pending dirty marks discarded in the same call; surviving
// cells that depended on a destroyed cell are marked dirty.
func (s *System) DestroyScope(sc Scope) {
	if _, ok := s.scopeEntry(sc); !ok {
		return
	}

	doomedScopes := []Scope{sc}
	for i := 0; i < len(doomedScopes); i++ {
		e, _ := s.scopeEntry(doomedScopes[i])
		doomedScopes = append(doomedScopes, e.children...)
	}
	doomed := mapset.NewThreadUnsafeSet[Cell]()
	for _, d := range doomedScopes {
		e, _ := s.scopeEntry(d)
		for _, c := range e.cells {
			if s.live(c) {
				doomed.Add(c)
			}
		}
	}

	cells := doomed.ToSlice()
	for _, c := range cells {
		sl := &s.slots[c.index]
		for _, src := range sl.sources {
			if s.live(src) && !doomed.Contains(src) {
				s.slots[src.index].dependents.Remove(c)
			}
		}
		for _, dep := range sl.dependents.ToSlice() {
			if s.live(dep) && !doomed.Contains(dep) {
				s.stale(dep, CacheDirty)
			}
		}
	}
	for _, c := range cells {
		sl := &s.slots[c.index]
		gen := sl.gen
		*sl = slot{gen: gen}
		s.animating.Remove(c)
		s.free = append(s.free, c.index)
	}

	if e, _ := s.scopeEntry(sc); e.parent.Valid() {
		if p, ok := s.scopeEntry(e.parent); ok {
			for i, child := range p.children {
				if child == sc {
					p.children = append(p.children[:i], p.children[i+1:]...)
					break
				}
			}
		}
	}
	for _, d := range doomedScopes {
		e := &s.scopes[d.index]
		*e = scopeEntry{gen: e.gen}
		s.freeScopes = append(s.freeScopes, d.index)
	}
}
