package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/bitbang/adapter"
	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
	"github.com/mklimuk/bitbang/snsctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "talk to the MCP2221 bridge directly",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := bridge().Status(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		return encode(console.Writer(), status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := bridge().ReleaseBus(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		return encode(console.Writer(), status)
	},
}

type gpioReport struct {
	Designation [adapter.GPCount]string `yaml:"designation"`
	Mode        [adapter.GPCount]string `yaml:"mode"`
	Value       [adapter.GPCount]string `yaml:"value"`
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "show the GP pin designations and levels",
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		a := bridge()
		params, err := a.GetGPIOParameters(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		values, err := a.ReadGPIO(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		var r gpioReport
		for i := range r.Value {
			r.Designation[i] = "gpio"
			if d := params.Designation[i]; d != adapter.GPIOOperation {
				r.Designation[i] = fmt.Sprintf("function %d", d)
			}
			r.Mode[i] = values.Mode[i].String()
			r.Value[i] = "low"
			if values.Value[i] != 0 {
				r.Value[i] = "high"
			}
		}
		return encode(console.Writer(), r)
	},
}

func bridge() *adapter.MCP2221 {
	return adapter.NewMCP2221(adapter.WithDeviceIndex(cfg.Bridge))
}

func encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}
