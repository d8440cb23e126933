package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/runtime"
	"github.com/urfave/cli/v3"
)

const (
	configKey  = "config"
	layoutKey  = "layout"
	scriptKey  = "script"
	watchKey   = "watch"
	verboseKey = "verbose"
	styleKey   = "style"
)

func main() {
	cmd := &cli.Command{
		Name:  "propctl",
		Usage: "Drive a compiled layout from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "Configuration file",
				Value: "propctl.toml",
			},
			&cli.StringFlag{
				Name:  layoutKey,
				Usage: "Compiled layout description (YAML)",
			},
			&cli.BoolFlag{
				Name:  verboseKey,
				Usage: "Log every step and the engine statistics",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Play a session script against the layout",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     scriptKey,
						Usage:    "Session script (TOML)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  watchKey,
						Usage: "Replay the script whenever the layout changes",
					},
				},
				Action: run,
			},
			{
				Name:  "dump",
				Usage: "Print the live item tree",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  styleKey,
						Usage: "Table style: default, light, rounded, bold or double",
					},
				},
				Action: dumpAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func config(cmd *cli.Command) (Config, error) {
	cfg, err := LoadConfig(cmd.String(configKey))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet(layoutKey) {
		cfg.Layout = cmd.String(layoutKey)
	}
	if cmd.Bool(verboseKey) {
		cfg.Verbose = true
	}
	return cfg, nil
}

func openRuntime(cfg Config) (*runtime.Runtime, error) {
	desc, err := layout.LoadFile(cfg.Layout)
	if err != nil {
		return nil, err
	}
	return runtime.New(desc, runtime.WithErrorHandler(func(d props.Diagnostic) {
		log.Printf("diagnostic at %s: %v", d.At, d)
	}))
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config(cmd)
	if err != nil {
		return err
	}
	scriptPath := cmd.String(scriptKey)

	once := func() error {
		start := time.Now()
		script, err := LoadScript(scriptPath)
		if err != nil {
			return err
		}
		rt, err := openRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := NewRunner(rt, cfg, os.Stdout).Run(script); err != nil {
			return fmt.Errorf("%s: %w", scriptPath, err)
		}
		log.Printf("%d steps in %v", len(script.Steps), time.Since(start))
		if cfg.Verbose {
			logStats(rt)
		}
		return nil
	}

	if !cmd.Bool(watchKey) {
		return once()
	}
	if err := once(); err != nil {
		log.Print(err)
	}
	return watch(ctx, cfg.Layout, once)
}

func dumpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet(styleKey) {
		cfg.Style = cmd.String(styleKey)
	}
	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := dump(os.Stdout, rt, cfg.Style); err != nil {
		return err
	}
	if cfg.Verbose {
		logStats(rt)
	}
	return nil
}
