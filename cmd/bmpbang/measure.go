package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang/bmp180"
	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
	"github.com/mklimuk/bitbang/snsctx"
)

var measureCmd = cli.Command{
	Name:    "measure",
	Aliases: []string{"m"},
	Usage:   "run one read cycle and print the measurement",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		r, err := openRig(ctx, cfg)
		if err != nil {
			return console.Exit(console.ExitFailure, "bus initialization error: %s", console.Red(err))
		}
		defer r.Close()
		m, err := newSequencer(ctx, r).Run(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "read cycle failed: %s", console.Red(err))
		}
		warnIfSuspect(m)
		return report(console.Writer(), cfg.Output, m)
	},
}

var watchCmd = cli.Command{
	Name:    "watch",
	Aliases: []string{"w"},
	Usage:   "run read cycles periodically until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Usage: "pause between cycles"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "stop after n cycles, 0 runs forever"},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt, syscall.SIGTERM)
		defer stop()
		interval := cfg.Interval
		if c.IsSet("interval") {
			interval = c.Duration("interval")
		}
		if interval <= 0 {
			return console.Exit(console.ExitFailure, "interval must be positive, got %s", interval)
		}
		r, err := openRig(ctx, cfg)
		if err != nil {
			return console.Exit(console.ExitFailure, "bus initialization error: %s", console.Red(err))
		}
		defer r.Close()
		seq := newSequencer(ctx, r)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			m, err := seq.Run(ctx)
			switch {
			case errors.Is(err, context.Canceled):
				console.PInfof(console.PictoStop, "stopped after %d cycles", n-1)
				return nil
			case err != nil:
				console.Errorf("cycle %d failed: %s", n, err)
			default:
				warnIfSuspect(m)
				console.PInfof(console.PictoCycle, "cycle %d", n)
				if err = report(console.Writer(), cfg.Output, m); err != nil {
					return err
				}
			}
			if count := c.Int("count"); count > 0 && n >= count {
				return nil
			}
			select {
			case <-ctx.Done():
				console.PInfof(console.PictoStop, "stopped after %d cycles", n)
				return nil
			case <-ticker.C:
			}
		}
	},
}

func commandContext(c *cli.Context) context.Context {
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	return snsctx.WithLogger(ctx, slog.Default().With("backend", cfg.Backend))
}

func newSequencer(ctx context.Context, r *rig) *bmp180.Sequencer {
	opts := cfg.SequencerOpts()
	if snsctx.IsVerbose(ctx) {
		logger := snsctx.Logger(ctx)
		opts = append(opts, bmp180.WithStateHook(func(st bmp180.State) {
			logger.Debug("entering state", "state", st)
		}))
	}
	return bmp180.NewSequencer(r.engine, opts...)
}

func warnIfSuspect(m bmp180.Measurement) {
	if err := m.CheckChip(); err != nil {
		console.Warnf("%s", err)
	}
	if m.Nacks > 0 {
		console.Warnf("%d bytes were not acknowledged, values may be bogus", m.Nacks)
	}
}
