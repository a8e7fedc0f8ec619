package line

import (
	"context"
	"fmt"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/adapter"
)

// GPIOBridge is the GPIO part of the MCP2221 bridge.
type GPIOBridge interface {
	SetGPIO(ctx context.Context, changes ...adapter.GPIOChange) error
	ReadGPIO(ctx context.Context) (adapter.GPIOValues, error)
}

var _ bitbang.Line = &MCP2221Pin{}

// MCP2221Pin is one GP pin of an MCP2221 bridge. Each access is a USB round trip so the
// bus runs far below its nominal frequency.
type MCP2221Pin struct {
	ctx    context.Context
	bridge GPIOBridge
	pin    int
}

// NewMCP2221Pin binds a GP pin; ctx is passed to every bridge command.
func NewMCP2221Pin(ctx context.Context, bridge GPIOBridge, pin int) (*MCP2221Pin, error) {
	if pin < 0 || pin >= adapter.GPCount {
		return nil, fmt.Errorf("invalid GP pin %d", pin)
	}
	return &MCP2221Pin{ctx: ctx, bridge: bridge, pin: pin}, nil
}

func (p *MCP2221Pin) Assert() error {
	low, input := false, false
	err := p.bridge.SetGPIO(p.ctx, adapter.GPIOChange{Pin: p.pin, Value: &low, Input: &input})
	if err != nil {
		return fmt.Errorf("could not drive GP%d low: %w", p.pin, err)
	}
	return nil
}

func (p *MCP2221Pin) Release() error {
	input := true
	err := p.bridge.SetGPIO(p.ctx, adapter.GPIOChange{Pin: p.pin, Input: &input})
	if err != nil {
		return fmt.Errorf("could not release GP%d: %w", p.pin, err)
	}
	return nil
}

func (p *MCP2221Pin) Sense() (bool, error) {
	v, err := p.bridge.ReadGPIO(p.ctx)
	if err != nil {
		return false, fmt.Errorf("could not read GP%d: %w", p.pin, err)
	}
	if v.Mode[p.pin] == adapter.GPIOModeNoOperation {
		return false, fmt.Errorf("GP%d is not configured for GPIO operation", p.pin)
	}
	return v.Value[p.pin] != 0, nil
}
