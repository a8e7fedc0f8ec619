package line

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/gpio"

	"github.com/mklimuk/bitbang"
)

// DigitalPins is a gobot adaptor with digital pin access, e.g. the nanopi NeoAdaptor.
type DigitalPins interface {
	gpio.DigitalReader
	gpio.DigitalWriter
}

var _ bitbang.Line = &Digital{}

// Digital is a gobot digital pin. Gobot adaptors switch the pin direction on access, so a
// read doubles as release.
type Digital struct {
	pins DigitalPins
	id   string
}

func NewDigital(pins DigitalPins, id string) *Digital {
	return &Digital{pins: pins, id: id}
}

func (d *Digital) Assert() error {
	if err := d.pins.DigitalWrite(d.id, 0); err != nil {
		return fmt.Errorf("could not drive pin %s low: %w", d.id, err)
	}
	return nil
}

func (d *Digital) Release() error {
	if _, err := d.pins.DigitalRead(d.id); err != nil {
		return fmt.Errorf("could not release pin %s: %w", d.id, err)
	}
	return nil
}

func (d *Digital) Sense() (bool, error) {
	v, err := d.pins.DigitalRead(d.id)
	if err != nil {
		return false, fmt.Errorf("could not read pin %s: %w", d.id, err)
	}
	return v != 0, nil
}
