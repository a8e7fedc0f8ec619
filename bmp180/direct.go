package bmp180

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/bitbang"
)

// Direct reads the sensor through a hardware bus controller. It is used to cross-check the
// bit-banged cycle against the same device.
type Direct struct {
	transport bitbang.I2CBus
	address   byte
	settle    time.Duration
	clock     bitbang.Clock
}

type DirectConfig struct {
	Address     byte
	SettleDelay time.Duration
	Clock       bitbang.Clock
}

type DirectConfigOption func(*DirectConfig)

func WithAddress(address byte) DirectConfigOption {
	return func(c *DirectConfig) {
		c.Address = address
	}
}

func WithDirectSettleDelay(d time.Duration) DirectConfigOption {
	return func(c *DirectConfig) {
		c.SettleDelay = d
	}
}

// WithDirectClock sets the clock used for conversion settle delays.
func WithDirectClock(clock bitbang.Clock) DirectConfigOption {
	return func(c *DirectConfig) {
		c.Clock = clock
	}
}

func NewDirect(trans bitbang.I2CBus, opts ...DirectConfigOption) *Direct {
	config := &DirectConfig{
		Address:     Address,
		SettleDelay: DefaultSettleDelay,
		Clock:       bitbang.BusyClock{},
	}
	for _, opt := range opts {
		opt(config)
	}
	return &Direct{transport: trans, address: config.Address, settle: config.SettleDelay, clock: config.Clock}
}

// Measure reads the chip id, calibration, UT and UP and compensates the temperature. It
// does not write the result byte back.
func (d *Direct) Measure(ctx context.Context) (Measurement, error) {
	var m Measurement
	id := make([]byte, 1)
	if err := d.readRegister(ctx, regChipID, id); err != nil {
		return m, fmt.Errorf("bmp180: could not read chip id: %w", err)
	}
	m.ChipID = id[0]
	word := make([]byte, 2)
	for _, entry := range calibrationTable {
		if err := d.readRegister(ctx, entry.reg, word); err != nil {
			return m, fmt.Errorf("bmp180: could not read %s: %w", entry.name, err)
		}
		entry.set(&m.Calibration, Assemble(word[0], word[1]))
	}
	ut, err := d.convert(ctx, cmdTemperature)
	if err != nil {
		return m, fmt.Errorf("bmp180: temperature conversion failed: %w", err)
	}
	m.UT = ut
	m.Temperature, err = CompensateTemperature(ut, m.Calibration)
	if err != nil {
		m.Fault = true
	}
	up, err := d.convert(ctx, cmdPressure)
	if err != nil {
		return m, fmt.Errorf("bmp180: pressure conversion failed: %w", err)
	}
	m.UP = up
	return m, nil
}

func (d *Direct) convert(ctx context.Context, cmd byte) (uint16, error) {
	err := d.transport.WriteToAddr(ctx, d.address, []byte{regControl, cmd})
	if err != nil {
		return 0, fmt.Errorf("could not write control register: %w", err)
	}
	d.clock.Delay(d.settle)
	resp := make([]byte, 2)
	if err = d.readRegister(ctx, regDataMSB, resp); err != nil {
		return 0, err
	}
	return Assemble(resp[0], resp[1]), nil
}

func (d *Direct) readRegister(ctx context.Context, reg byte, buf []byte) error {
	err := d.transport.WriteToAddr(ctx, d.address, []byte{reg})
	if err != nil {
		return fmt.Errorf("could not select register %#02x: %w", reg, err)
	}
	err = d.transport.ReadFromAddr(ctx, d.address, buf)
	if err != nil {
		return fmt.Errorf("could not read register %#02x: %w", reg, err)
	}
	return nil
}
