package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
)

var probeCmd = cli.Command{
	Name:  "probe",
	Usage: "check the chip id and dump the calibration table",
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
		if err = m.CheckChip(); err != nil {
			console.Warnf("%s", err)
			answer, err := console.YesOrNo("Dump the calibration table anyway?")
			if err != nil {
				return console.Exit(console.ExitFailure, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				return console.Exit(console.ExitMismatch, "no BMP180 found on %s/%s", cfg.SCL, cfg.SDA)
			}
		} else {
			console.Infof("BMP180 found on %s/%s", console.White(cfg.SCL), console.White(cfg.SDA))
		}
		return reportCalibration(console.Writer(), m.Calibration)
	},
}
