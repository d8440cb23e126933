package templates

import (
	"sort"
	"strings"

	"github.com/delaneyj/proptree/value"
)

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func propLines(props map[string]value.Value) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + ": " + props[name].String()
	}
	return lines
}

// Props formats an item's properties on one line, sorted by name.
func Props(props map[string]value.Value) string {
	return strings.Join(propLines(props), ", ")
}
