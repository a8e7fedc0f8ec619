package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/adapter"
	"github.com/mklimuk/bitbang/config"
	"github.com/mklimuk/bitbang/gpio"
	"github.com/mklimuk/bitbang/i2c"
	"github.com/mklimuk/bitbang/line"
	"github.com/mklimuk/bitbang/sim"
	"github.com/mklimuk/bitbang/softi2c"
)

// rig is an opened bus with everything needed to tear it down.
type rig struct {
	engine *softi2c.Engine
	// device is only set for the simulated backend
	device  *sim.BMP180
	closers []func() error
}

func (r *rig) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			slog.Warn("could not close backend resource", "error", err)
		}
	}
}

func openRig(ctx context.Context, c config.Config) (*rig, error) {
	freq, err := c.BusFrequency()
	if err != nil {
		return nil, err
	}
	opts := []softi2c.EngineOpt{softi2c.WithFrequency(freq)}
	r := &rig{}
	var scl, sda bitbang.Line
	switch c.Backend {
	case config.BackendSim:
		w := sim.NewWire()
		r.device = sim.NewBMP180(w)
		scl, sda = w.Master()
		opts = append(opts, softi2c.WithClock(&sim.Clock{}))
	case config.BackendPeriph:
		if scl, err = line.ByName(c.SCL); err != nil {
			return nil, err
		}
		if sda, err = line.ByName(c.SDA); err != nil {
			return nil, err
		}
	case config.BackendGobot:
		a := nanopi.NewNeoAdaptor()
		if err = a.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		r.closers = append(r.closers, a.Finalize)
		scl = line.NewDigital(a, c.SCL)
		sda = line.NewDigital(a, c.SDA)
	case config.BackendMCP2221:
		scl, sda, err = bridgeLines(ctx, c)
		if err != nil {
			return nil, err
		}
	case config.BackendMCP23017:
		scl, sda, err = expanderLines(ctx, c, r)
		if err != nil {
			r.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
	r.engine = softi2c.NewEngine(scl, sda, opts...)
	slog.Debug("bus ready", "backend", c.Backend, "bit_period", r.engine.BitPeriod())
	return r, nil
}

func bridgeLines(ctx context.Context, c config.Config) (bitbang.Line, bitbang.Line, error) {
	bridge := adapter.NewMCP2221(adapter.WithDeviceIndex(c.Bridge))
	sclPin, err := gpPin(c.SCL)
	if err != nil {
		return nil, nil, err
	}
	sdaPin, err := gpPin(c.SDA)
	if err != nil {
		return nil, nil, err
	}
	params, err := bridge.GetGPIOParameters(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read GP designations: %w", err)
	}
	for _, p := range []int{sclPin, sdaPin} {
		params.Designation[p] = adapter.GPIOOperation
		params.Mode[p] = adapter.GPIOModeIn
	}
	if err = bridge.SetGPIOParameters(ctx, params); err != nil {
		return nil, nil, fmt.Errorf("could not switch GP pins to GPIO operation: %w", err)
	}
	scl, err := line.NewMCP2221Pin(ctx, bridge, sclPin)
	if err != nil {
		return nil, nil, err
	}
	sda, err := line.NewMCP2221Pin(ctx, bridge, sdaPin)
	if err != nil {
		return nil, nil, err
	}
	return scl, sda, nil
}

// gpPin accepts "2" or "GP2".
func gpPin(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "GP"))
	if err != nil {
		return 0, fmt.Errorf("invalid GP pin %q", name)
	}
	return n, nil
}

func expanderLines(ctx context.Context, c config.Config, r *rig) (bitbang.Line, bitbang.Line, error) {
	bus, err := hardwareBus(c, r)
	if err != nil {
		return nil, nil, err
	}
	exp := gpio.NewMCP23017(bus, c.Expander.Address, gpio.WithBank(c.Expander.Bank), gpio.WithRetryLimit(c.Expander.Retries))
	sclPort, sclPin, err := expanderPin(c.SCL)
	if err != nil {
		return nil, nil, err
	}
	sdaPort, sdaPin, err := expanderPin(c.SDA)
	if err != nil {
		return nil, nil, err
	}
	scl, err := line.NewExpanderPin(ctx, exp, sclPort, sclPin)
	if err != nil {
		return nil, nil, err
	}
	sda, err := line.NewExpanderPin(ctx, exp, sdaPort, sdaPin)
	if err != nil {
		return nil, nil, err
	}
	return scl, sda, nil
}

// expanderPin accepts "A0".."B7".
func expanderPin(name string) (gpio.Port, int, error) {
	if len(name) != 2 || name[1] < '0' || name[1] > '7' {
		return 0, 0, fmt.Errorf("invalid expander pin %q", name)
	}
	pin := int(name[1] - '0')
	switch name[0] {
	case 'A', 'a':
		return gpio.PortA, pin, nil
	case 'B', 'b':
		return gpio.PortB, pin, nil
	}
	return 0, 0, fmt.Errorf("invalid expander pin %q", name)
}

// hardwareBus opens the controller named by the bus setting: "mcp2221" selects the USB
// bridge, anything else is a periph bus name.
func hardwareBus(c config.Config, r *rig) (bitbang.I2CBus, error) {
	if c.Bus == config.BackendMCP2221 {
		return adapter.NewMCP2221(adapter.WithDeviceIndex(c.Bridge)), nil
	}
	bus, err := i2c.NewGenericBus(c.Bus)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, bus.Close)
	return bus, nil
}
