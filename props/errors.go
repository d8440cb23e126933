package props

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/delaneyj/proptree/value"
)

// Kind identifies the category of a diagnostic.
type Kind int

const (
	KindUnknown Kind = iota
	// KindBindingCycle: a binding transitively read itself.
	KindBindingCycle
	// KindAliasTypeConflict: an alias group mixes declared types.
	KindAliasTypeConflict
	// KindStaleIndex: a cell handle outlived its slot.
	KindStaleIndex
	// KindTypeMismatch: a value of the wrong type was written or computed.
	KindTypeMismatch
	// KindEvaluation: a binding failed to evaluate.
	KindEvaluation
)

func (k Kind) String() string {
	switch k {
	case KindBindingCycle:
		return "binding-cycle"
	case KindAliasTypeConflict:
		return "alias-type-conflict"
	case KindStaleIndex:
		return "stale-index"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindEvaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "warning"
}

// Diagnostic is delivered out of band; Get and Set never fail.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Cell     Cell
	Name     string
	Err      error
	// At is the tick time at which the condition was observed.
	At time.Duration
}

func (d Diagnostic) Error() string {
	if d.Name != "" {
		return fmt.Sprintf("%s [%s] %s: %v", d.Kind, d.Severity, d.Name, d.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", d.Kind, d.Severity, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

type OnErrorFunc func(d Diagnostic)

// LogErrors is the default diagnostic handler.
func LogErrors(d Diagnostic) {
	log.Printf("props: %v", d)
}

type BindingCycleError struct {
	Path []string
}

func (e *BindingCycleError) Error() string {
	return "binding cycle: " + strings.Join(e.Path, " -> ")
}

type AliasTypeConflictError struct {
	Members []string
	Types   []value.Type
}

func (e *AliasTypeConflictError) Error() string {
	parts := make([]string, len(e.Members))
	for i, m := range e.Members {
		parts[i] = fmt.Sprintf("%s: %s", m, e.Types[i])
	}
	return "alias type conflict: " + strings.Join(parts, ", ")
}

type StaleIndexError struct {
	Op    string
	Index uint32
	Gen   uint32
	// Want is the live generation of the slot, zero when the slot is free.
	Want uint32
}

func (e *StaleIndexError) Error() string {
	return fmt.Sprintf("%s: stale cell %d@%d (slot generation %d)", e.Op, e.Index, e.Gen, e.Want)
}

type TypeMismatchError struct {
	Want, Got value.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}
