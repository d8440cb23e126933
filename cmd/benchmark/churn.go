package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/runtime"
	"github.com/delaneyj/proptree/value"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

const churnLayout = `
root: Main
components:
  - name: Main
    items:
      - {element: root, kind: rectangle, children: {start: 1, count: 1}}
      - {element: rows, kind: empty, template: 0}
    properties:
      - {element: root, name: count, type: int, value: "0"}
      - {element: root, name: span, type: length, value: "800"}
    templates:
      - {kind: repeater, expr: count, component: Row}
  - name: Row
    items:
      - {element: root, kind: rectangle}
    properties:
      - {element: root, name: y, type: length, binding: index * 20}
      - {element: root, name: width, type: length, binding: span - index}
      - {element: root, name: height, type: length, value: "20"}
      - {element: root, name: label, type: string, binding: '"row " + (index + 1) + " of " + count'}
`

type churnConfig struct {
	name       string
	maxRows    int
	step       int
	iterations int64
}

// benchmarkChurn resizes a repeater and walks the live tree after every
// resize, so each iteration pays for instance creation, destruction and
// re-evaluation of the surviving rows.
func benchmarkChurn() {
	log.Print("Starting model churn benchmark, please wait...")
	defer log.Print("Finished model churn benchmark")

	cfgs := []churnConfig{
		{name: "small list", maxRows: 10, step: 3, iterations: 20_000},
		{name: "medium list", maxRows: 100, step: 7, iterations: 2_000},
		{name: "large list", maxRows: 1_000, step: 37, iterations: 200},
	}

	desc, err := layout.Load(strings.NewReader(churnLayout))
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"test", "rows", "nTimes", "time", "items", "evaluations", "updateRate",
	})

	for _, cfg := range cfgs {
		log.Printf("Running '%s' config", cfg.name)
		rt, err := runtime.New(desc)
		if err != nil {
			log.Fatal(err)
		}

		var items int64
		start := time.Now()
		for i := int64(0); i < cfg.iterations; i++ {
			n := int(i) * cfg.step % (cfg.maxRows + 1)
			if err := rt.Set("count", value.Number(float64(n))); err != nil {
				log.Fatal(err)
			}
			rt.Walk(func(runtime.Item) bool {
				items++
				return true
			})
		}
		duration := time.Since(start)
		stats := rt.Stats()
		rt.Close()

		updateRate := float64(cfg.iterations) / (float64(duration) / float64(time.Millisecond))
		table.Append([]string{
			cfg.name,
			fmt.Sprint(cfg.maxRows),
			humanize.Comma(cfg.iterations),
			fmt.Sprint(duration),
			humanize.Comma(items),
			humanize.Comma(int64(stats.Evaluations)),
			humanize.Comma(int64(updateRate)),
		})
	}
	table.Render()
}
