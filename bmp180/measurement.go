package bmp180

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// ErrUnexpectedChip is returned when the id register does not hold the BMP180 chip id.
var ErrUnexpectedChip = fmt.Errorf("bmp180: unexpected chip id")

// Measurement is the record produced by one full read cycle.
type Measurement struct {
	ChipID      byte        `yaml:"chip_id"`
	Calibration Calibration `yaml:"calibration"`
	UT          uint16      `yaml:"ut"`
	UP          uint16      `yaml:"up"`
	// Temperature is expressed in 0.1 °C.
	Temperature int32 `yaml:"temperature"`
	// Fault is set when the temperature could not be compensated.
	Fault bool `yaml:"fault"`
	// Nacks counts the acknowledgment failures seen during the cycle, masked or retried.
	Nacks int `yaml:"nacks"`
}

func (m Measurement) CheckChip() error {
	if m.ChipID != ChipID {
		return fmt.Errorf("%w: got %#02x, expected %#02x", ErrUnexpectedChip, m.ChipID, ChipID)
	}
	return nil
}

func (m Measurement) Celsius() float64 {
	return float64(m.Temperature) / 10
}

// ResultByte is the temperature truncated to 8 bits, as written back at the end of a cycle.
func (m Measurement) ResultByte() byte {
	if m.Fault {
		return 0
	}
	return byte(m.Temperature)
}

// Env converts the record to periph units. Pressure is not compensated.
func (m Measurement) Env() physic.Env {
	var e physic.Env
	if !m.Fault {
		e.Temperature = physic.ZeroCelsius + physic.Temperature(m.Temperature)*100*physic.MilliKelvin
	}
	return e
}

func (m Measurement) String() string {
	if m.Fault {
		return fmt.Sprintf("chip %#02x UT %d UP %d temperature FAULT", m.ChipID, m.UT, m.UP)
	}
	return fmt.Sprintf("chip %#02x UT %d UP %d temperature %s", m.ChipID, m.UT, m.UP, m.Env().Temperature)
}

// Diff lists the fields that differ between two records taken from the same device. Raw
// conversions are not compared since they change between readings.
func (m Measurement) Diff(other Measurement) []string {
	var diff []string
	if m.ChipID != other.ChipID {
		diff = append(diff, fmt.Sprintf("chip id: %#02x != %#02x", m.ChipID, other.ChipID))
	}
	a := m.Calibration.Words()
	b := other.Calibration.Words()
	for i := range a {
		if a[i] != b[i] {
			diff = append(diff, fmt.Sprintf("%s: %#04x != %#04x", CoefficientName(i), a[i], b[i]))
		}
	}
	return diff
}
