package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/bmp180"
	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
	"github.com/mklimuk/bitbang/softi2c"
)

var verifyCmd = cli.Command{
	Name:  "verify",
	Usage: "compare a bit-banged cycle against a transaction-level driver",
	Description: "Reads the device once with the state machine sequencer and once with a plain\n" +
		"register driver. The driver runs over the controller named by the bus setting or,\n" +
		"when it is empty, over the same bit-banged lines.",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		r, err := openRig(ctx, cfg)
		if err != nil {
			return console.Exit(console.ExitFailure, "bus initialization error: %s", console.Red(err))
		}
		defer r.Close()

		var bus bitbang.I2CBus = softi2c.NewBus(r.engine)
		if cfg.Bus != "" {
			if bus, err = hardwareBus(cfg, r); err != nil {
				return console.Exit(console.ExitFailure, "bus initialization error: %s", console.Red(err))
			}
		}
		direct, err := bmp180.NewDirect(bus,
			bmp180.WithDirectSettleDelay(cfg.SettleDelay),
			bmp180.WithDirectClock(r.engine.Clock())).Measure(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "reference read failed: %s", console.Red(err))
		}
		banged, err := newSequencer(ctx, r).Run(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "read cycle failed: %s", console.Red(err))
		}
		diff := direct.Diff(banged)
		if len(diff) > 0 {
			for _, d := range diff {
				console.Errorf("%s", d)
			}
			return console.Exit(console.ExitMismatch, "%d fields differ", len(diff))
		}
		console.Infof("%s calibration and chip id match, temperature %s / %s",
			console.Green("OK"), formatTemperature(direct), formatTemperature(banged))
		return nil
	},
}

func formatTemperature(m bmp180.Measurement) string {
	if m.Fault {
		return console.Red("FAULT")
	}
	return console.White(fmt.Sprintf("%.1f°C", m.Celsius()))
}
