package line

import (
	"context"
	"fmt"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/gpio"
)

// Expander is the pin level access of an MCP23017.
type Expander interface {
	OpenDrain(ctx context.Context, p gpio.Port, pin int) error
	SetDirection(ctx context.Context, p gpio.Port, pin int, input bool) error
	ReadPort(ctx context.Context, p gpio.Port) (byte, error)
}

var _ bitbang.Line = &ExpanderPin{}

// ExpanderPin is one MCP23017 pin. The output latch is kept low and the line is driven by
// flipping the direction bit.
type ExpanderPin struct {
	ctx  context.Context
	exp  Expander
	port gpio.Port
	pin  int
}

// NewExpanderPin configures the pin for open-drain use and leaves it released.
func NewExpanderPin(ctx context.Context, exp Expander, port gpio.Port, pin int) (*ExpanderPin, error) {
	if err := exp.OpenDrain(ctx, port, pin); err != nil {
		return nil, fmt.Errorf("could not prepare %s%d: %w", port, pin, err)
	}
	return &ExpanderPin{ctx: ctx, exp: exp, port: port, pin: pin}, nil
}

func (p *ExpanderPin) Assert() error {
	return p.exp.SetDirection(p.ctx, p.port, p.pin, false)
}

func (p *ExpanderPin) Release() error {
	return p.exp.SetDirection(p.ctx, p.port, p.pin, true)
}

func (p *ExpanderPin) Sense() (bool, error) {
	v, err := p.exp.ReadPort(p.ctx, p.port)
	if err != nil {
		return false, err
	}
	return v&(1<<p.pin) != 0, nil
}
