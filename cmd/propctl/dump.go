package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/delaneyj/proptree/cmd/propctl/templates"
	"github.com/delaneyj/proptree/runtime"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// dump writes the live tree as a table followed by an indented outline.
func dump(w io.Writer, rt *runtime.Runtime, style string) error {
	s, ok := tableStyles[style]
	if !ok {
		return fmt.Errorf("unknown table style %q", style)
	}
	items := rt.Items()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(s)
	tbl.SetTitle(fmt.Sprintf("t=%s", rt.Now()))
	tbl.AppendHeader(table.Row{"item", "kind", "x", "y", "width", "height", "properties"})
	for _, it := range items {
		tbl.AppendRow(table.Row{
			strings.Repeat("  ", it.Depth) + it.Component + "." + it.Element,
			it.Kind,
			it.X,
			it.Y,
			it.Width,
			it.Height,
			templates.Props(it.Props),
		})
	}
	tbl.Render()

	templates.WriteOutline(w, items)
	return nil
}

func logStats(rt *runtime.Runtime) {
	st := rt.Stats()
	log.Printf("%s instances, %s cells (%s free), %s scopes, %s evaluations",
		humanize.Comma(int64(st.Instances)),
		humanize.Comma(int64(st.LiveCells)),
		humanize.Comma(int64(st.FreeSlots)),
		humanize.Comma(int64(st.LiveScopes)),
		humanize.Comma(int64(st.Evaluations)),
	)
}
