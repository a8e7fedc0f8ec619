// Package line provides bitbang.Line implementations over the GPIO sources the tools can
// drive: host pins through periph, gobot digital pins, MCP2221 GP pins and MCP23017
// expander pins. Every backend emulates an open-drain output: asserting drives the pin
// low, releasing turns it into an input so the external pull-up raises the line.
package line

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/bitbang"
)

var _ bitbang.Line = &Pin{}

// Pin is a host GPIO pin handled by periph.
type Pin struct {
	pin gpio.PinIO
}

func NewPin(p gpio.PinIO) *Pin {
	return &Pin{pin: p}
}

// ByName initializes the host drivers and looks the pin up in the periph registry.
func ByName(name string) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewPin(p), nil
}

func (p *Pin) Assert() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("could not drive %s low: %w", p.pin, err)
	}
	return nil
}

func (p *Pin) Release() error {
	if err := p.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("could not release %s: %w", p.pin, err)
	}
	return nil
}

func (p *Pin) Sense() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

func (p *Pin) String() string {
	return p.pin.String()
}
