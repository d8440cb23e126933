package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/runtime"
	"github.com/delaneyj/proptree/value"
	"github.com/pelletier/go-toml/v2"
)

// Script is a recorded host session, one action per step:
//
//	[[step]]
//	set = "list[1].color"
//	value = "#0a0"
//
//	[[step]]
//	click = [10, 10]
//
//	[[step]]
//	get = "selected"
//	expect = "1"
type Script struct {
	Steps []Step `toml:"step"`
}

type Step struct {
	Set   string `toml:"set"`
	Value string `toml:"value"`

	Advance Duration `toml:"advance"`
	// Ticks advances the clock by that many configured ticks.
	Ticks int `toml:"ticks"`

	Click   []float64 `toml:"click"`
	Press   []float64 `toml:"press"`
	Release []float64 `toml:"release"`
	// Key types text into the focused item.
	Key string `toml:"key"`

	Get    string `toml:"get"`
	Expect string `toml:"expect"`

	Dump bool `toml:"dump"`
}

func (s Step) action() (string, error) {
	var set []string
	if s.Set != "" {
		set = append(set, "set")
	}
	if s.Advance != 0 || s.Ticks != 0 {
		set = append(set, "advance")
	}
	if s.Click != nil {
		set = append(set, "click")
	}
	if s.Press != nil {
		set = append(set, "press")
	}
	if s.Release != nil {
		set = append(set, "release")
	}
	if s.Key != "" {
		set = append(set, "key")
	}
	if s.Get != "" {
		set = append(set, "get")
	}
	if s.Dump {
		set = append(set, "dump")
	}
	switch len(set) {
	case 0:
		return "", errors.New("empty step")
	case 1:
		return set[0], nil
	}
	return "", fmt.Errorf("step mixes %s", strings.Join(set, " and "))
}

func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadScript(f)
}

func ReadScript(r io.Reader) (*Script, error) {
	s := &Script{}
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(s); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	for i, st := range s.Steps {
		if _, err := st.action(); err != nil {
			return nil, fmt.Errorf("script step %d: %w", i+1, err)
		}
	}
	return s, nil
}

// ExpectationError is a get step whose value differs from its expect.
type ExpectationError struct {
	Path      string
	Want, Got value.Value
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.Path, e.Want, e.Got)
}

// Runner plays a script against a runtime, owning its clock.
type Runner struct {
	rt  *runtime.Runtime
	cfg Config
	out io.Writer
	now time.Duration
}

func NewRunner(rt *runtime.Runtime, cfg Config, out io.Writer) *Runner {
	return &Runner{rt: rt, cfg: cfg, out: out, now: rt.Now()}
}

func (r *Runner) Run(s *Script) error {
	for i, st := range s.Steps {
		if err := r.Step(st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *Runner) Step(st Step) error {
	action, err := st.action()
	if err != nil {
		return err
	}
	switch action {
	case "set":
		v, err := literal(st.Value)
		if err != nil {
			return err
		}
		if r.cfg.Verbose {
			log.Printf("set %s = %s", st.Set, v)
		}
		return r.rt.Set(st.Set, v)

	case "advance":
		r.now += time.Duration(st.Advance) + time.Duration(st.Ticks)*time.Duration(r.cfg.Tick)
		running := r.rt.Advance(r.now)
		if r.cfg.Verbose {
			log.Printf("advance to %s, %d animating", r.now, running)
		}

	case "click":
		x, y, err := point(st.Click)
		if err != nil {
			return err
		}
		for _, kind := range []runtime.EventKind{runtime.PointerDown, runtime.PointerUp, runtime.Click} {
			r.dispatch(kind, x, y)
		}

	case "press", "release":
		pt, kind := st.Press, runtime.PointerDown
		if action == "release" {
			pt, kind = st.Release, runtime.PointerUp
		}
		x, y, err := point(pt)
		if err != nil {
			return err
		}
		r.dispatch(kind, x, y)

	case "key":
		hit := r.rt.DispatchInput(runtime.Event{Kind: runtime.KeyPress, Text: st.Key})
		if r.cfg.Verbose || !hit {
			log.Printf("key %q focused=%v", st.Key, hit)
		}

	case "get":
		v, err := r.rt.Get(st.Get)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s = %s\n", st.Get, v)
		if st.Expect == "" {
			return nil
		}
		want, err := literal(st.Expect)
		if err != nil {
			return err
		}
		if !value.Equal(want, v) {
			return &ExpectationError{Path: st.Get, Want: want, Got: v}
		}

	case "dump":
		return dump(r.out, r.rt, r.cfg.Style)
	}
	return nil
}

func (r *Runner) dispatch(kind runtime.EventKind, x, y float64) {
	hit := r.rt.DispatchInput(runtime.Event{Kind: kind, X: x, Y: y})
	if r.cfg.Verbose || !hit {
		log.Printf("%s at %g,%g hit=%v", kind, x, y, hit)
	}
}

func point(p []float64) (float64, float64, error) {
	if len(p) != 2 {
		return 0, 0, fmt.Errorf("point needs [x, y], got %d numbers", len(p))
	}
	return p[0], p[1], nil
}

// literal evaluates a constant expression such as `"text"`, `#0a0` or
// `[1, 2, 3]`.
func literal(src string) (value.Value, error) {
	n, err := expr.Parse(src)
	if err != nil {
		return value.Void, err
	}
	return expr.Eval(n, noEnv{})
}

type noEnv struct{}

func (noEnv) Load(ref *expr.Ref) (value.Value, error) {
	return value.Void, fmt.Errorf("%s: references are not allowed here", strings.Join(ref.Path, "."))
}

func (noEnv) Store(ref *expr.Ref, _ value.Value) error {
	return fmt.Errorf("%s: assignments are not allowed here", strings.Join(ref.Path, "."))
}

func (noEnv) Index() (int, bool) { return 0, false }

func (noEnv) Model() (value.Value, bool) { return value.Void, false }

func (noEnv) Emit(ref *expr.Ref, _ []value.Value) error {
	return fmt.Errorf("%s: signals are not allowed here", strings.Join(ref.Path, "."))
}
