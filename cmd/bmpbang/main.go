package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
	"github.com/mklimuk/bitbang/config"
)

// cfg is resolved once in app.Before from the config file and the global flags.
var cfg = config.Default()

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "bmpbang"
	app.EnableBashCompletion = true
	app.Version = config.Version
	app.Usage = "read a BMP180 over a bit-banged two-wire bus"
	app.Writer = console.Writer()
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"BMPBANG_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "line backend: sim, periph, gobot, mcp2221 or mcp23017",
		},
		&cli.StringFlag{Name: "scl", Usage: "clock line"},
		&cli.StringFlag{Name: "sda", Usage: "data line"},
		&cli.StringFlag{Name: "frequency", Aliases: []string{"f"}, Usage: "bus frequency, e.g. 100kHz"},
		&cli.StringFlag{Name: "ack-policy", Usage: "what to do on a missing acknowledgment: ignore or retry"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "report format: text or yaml"},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return resolveConfig(ctx)
	}
	app.Commands = cli.Commands{
		&measureCmd,
		&watchCmd,
		&probeCmd,
		&verifyCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		console.Errorf("%s", err)
		return console.ExitFailure
	}
	return 0
}

func resolveConfig(ctx *cli.Context) error {
	c, err := config.Load(ctx.String("config"))
	if err != nil {
		return console.Exit(console.ExitFailure, "configuration error: %s", console.Red(err))
	}
	overrides := map[string]*string{
		"backend":    &c.Backend,
		"scl":        &c.SCL,
		"sda":        &c.SDA,
		"frequency":  &c.Frequency,
		"ack-policy": &c.AckPolicy,
		"output":     &c.Output,
	}
	for name, field := range overrides {
		if ctx.IsSet(name) {
			*field = ctx.String(name)
		}
	}
	if err = c.Validate(); err != nil {
		return console.Exit(console.ExitFailure, "configuration error: %s", console.Red(err))
	}
	cfg = c
	slog.Debug("configuration resolved", "backend", cfg.Backend, "scl", cfg.SCL, "sda", cfg.SDA, "frequency", cfg.Frequency, "ack_policy", cfg.AckPolicy)
	return nil
}
