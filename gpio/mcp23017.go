package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/bitbang"
)

const DefaultMCP23017Address = 0x21

type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

type register byte

// register indexes in bank 1 order
const (
	regIODIR register = iota
	regIPOL
	regGPINTEN
	regDEFVAL
	regINTCON
	regIOCON
	regGPPU
	regINTF
	regINTCAP
	regGPIO
	regOLAT
)

/*
	Open-drain use of a pin:

1. Clear the output latch bit (OLAT) so that an output pin always drives low
2. Enable the pull-up (GPPU) for the released state
3. Toggle the direction bit (IODIR): 0 drives the line low, 1 releases it
4. Read the port register (GPIO) to sense the line
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  bitbang.I2CBus
	bank       int
	address    byte
	retryLimit int

	// shadow copies of the registers changed bit by bit
	iodir [2]byte
	gppu  [2]byte
	olat  [2]byte
}

type MCP23017Option func(*MCP23017)

func WithRetryLimit(limit int) MCP23017Option {
	return func(m *MCP23017) {
		if limit > 0 {
			m.retryLimit = limit
		}
	}
}

// WithBank selects the register layout configured through IOCON.BANK.
func WithBank(bank int) MCP23017Option {
	return func(m *MCP23017) {
		m.bank = bank
	}
}

func NewMCP23017(bus bitbang.I2CBus, address byte, opts ...MCP23017Option) *MCP23017 {
	m := &MCP23017{
		retryLimit: 1,
		transport:  bus,
		address:    address,
		// power-on state: all pins are inputs
		iodir: [2]byte{0xFF, 0xFF},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MCP23017) registerAddr(p Port, r register) byte {
	// bank 0 interleaves the ports, bank 1 groups them
	if m.bank == 0 {
		return byte(r)<<1 | byte(p)
	}
	return byte(p)<<4 | byte(r)
}

// Init sets the direction register of a port (1 = input).
func (m *MCP23017) Init(ctx context.Context, p Port, inout byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.writeRegister(ctx, m.registerAddr(p, regIODIR), inout)
	if err != nil {
		return fmt.Errorf("could not initialize gpio %s set: %w", p, err)
	}
	m.iodir[p] = inout
	return nil
}

// PullUp sets up pull up resistors on a port.
func (m *MCP23017) PullUp(ctx context.Context, p Port, settings byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.writeRegister(ctx, m.registerAddr(p, regGPPU), settings)
	if err != nil {
		return fmt.Errorf("could not set pull-up on gpio %s set: %w", p, err)
	}
	m.gppu[p] = settings
	return nil
}

// OpenDrain prepares a single pin for open-drain use and leaves it released.
func (m *MCP23017) OpenDrain(ctx context.Context, p Port, pin int) error {
	if pin < 0 || pin > 7 {
		return fmt.Errorf("invalid pin %d", pin)
	}
	mask := byte(1) << pin
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.writeRegister(ctx, m.registerAddr(p, regOLAT), m.olat[p]&^mask)
	if err != nil {
		return fmt.Errorf("could not clear output latch of %s%d: %w", p, pin, err)
	}
	m.olat[p] &^= mask
	err = m.writeRegister(ctx, m.registerAddr(p, regGPPU), m.gppu[p]|mask)
	if err != nil {
		return fmt.Errorf("could not set pull-up on %s%d: %w", p, pin, err)
	}
	m.gppu[p] |= mask
	return m.setDirection(ctx, p, pin, true)
}

// SetDirection switches one pin between output (false) and input (true).
func (m *MCP23017) SetDirection(ctx context.Context, p Port, pin int, input bool) error {
	if pin < 0 || pin > 7 {
		return fmt.Errorf("invalid pin %d", pin)
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.setDirection(ctx, p, pin, input)
}

func (m *MCP23017) setDirection(ctx context.Context, p Port, pin int, input bool) error {
	dir := m.iodir[p] &^ (1 << pin)
	if input {
		dir |= 1 << pin
	}
	if dir == m.iodir[p] {
		return nil
	}
	err := m.writeRegister(ctx, m.registerAddr(p, regIODIR), dir)
	if err != nil {
		return fmt.Errorf("could not set direction of %s%d: %w", p, pin, err)
	}
	m.iodir[p] = dir
	return nil
}

func (m *MCP23017) Read(ctx context.Context) ([]byte, error) {
	res := make([]byte, 2)
	var err error
	res[0], err = m.ReadPort(ctx, PortA)
	if err != nil {
		return nil, err
	}
	res[1], err = m.ReadPort(ctx, PortB)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReadPort reads the GPIO register of a port.
func (m *MCP23017) ReadPort(ctx context.Context, p Port) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	res, err := m.readRegister(ctx, m.registerAddr(p, regGPIO))
	if err != nil {
		return res, fmt.Errorf("could not read gpio %s set: %w", p, err)
	}
	return res, nil
}

// ReadSettings reads contents of the IOCON register.
func (m *MCP23017) ReadSettings(ctx context.Context) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	res, err := m.readRegister(ctx, m.registerAddr(PortA, regIOCON))
	if err != nil {
		return res, fmt.Errorf("could not read settings: %w", err)
	}
	return res, nil
}

func (m *MCP23017) WriteSettings(ctx context.Context, settings byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.writeRegister(ctx, m.registerAddr(PortA, regIOCON), settings)
	if err != nil {
		return fmt.Errorf("could not write settings: %w", err)
	}
	return nil
}

func (m *MCP23017) writeRegister(ctx context.Context, addr, value byte) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{addr, value})
		if err == nil {
			return nil
		}
		if !errors.Is(err, bitbang.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

func (m *MCP23017) readRegister(ctx context.Context, addr byte) (byte, error) {
	var err error
	buf := make([]byte, 1)
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{addr})
		if err == nil {
			err = m.transport.ReadFromAddr(ctx, m.address, buf)
		}
		if err == nil {
			return buf[0], nil
		}
		if !errors.Is(err, bitbang.ErrBusBusy) {
			return 0x00, err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return 0x00, fmt.Errorf("retry limit reached: %w", err)
}
