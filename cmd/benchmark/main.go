package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	churn := flag.Bool("churn", true, "also run the repeater model churn benchmark")
	flag.Parse()

	f, err := os.Create("default.pgo")
	if err != nil {
		log.Fatal(err)
	}
	pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	log.Printf("warming up")
	benchmarkPropagate(false)

	benchmarkPropagate(true)
	if *churn {
		benchmarkChurn()
	}
}

var (
	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100, 1_000}
	iters = 100
)

func addOne(prev props.Cell, sys *props.System) props.Binding {
	return func() value.Value {
		n, _ := sys.Get(prev).Number()
		return value.Number(n + 1)
	}
}

// benchmarkPropagate builds w chains of h bound cells hanging off one source,
// then times a write to the source followed by a read of every chain tail.
func benchmarkPropagate(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("Property propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max", "evaluations"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			sys := props.NewSystem(props.WithErrorHandler(func(d props.Diagnostic) {
				log.Panic(d)
			}))
			scope := sys.NewScope(props.Scope{})
			src := sys.NewCell(scope, "src", value.TypeNumber, value.Number(1))
			tails := make([]props.Cell, 0, w)
			for i := 0; i < w; i++ {
				last := src
				for j := 0; j < h; j++ {
					last = sys.NewBoundCell(scope, fmt.Sprintf("c%d_%d", i, j), value.TypeNumber, addOne(last, sys))
				}
				sys.Get(last)
				tails = append(tails, last)
			}

			before := sys.Stats().Evaluations
			for i := 0; i < iters; i++ {
				start := time.Now()
				n, _ := sys.Get(src).Number()
				sys.Set(src, value.Number(n+1))
				for _, tail := range tails {
					sys.Get(tail)
				}
				tach.AddTime(time.Since(start))
			}
			evals := sys.Stats().Evaluations - before
			sys.DestroyScope(scope)

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
					evals,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}
