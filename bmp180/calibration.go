package bmp180

import (
	"errors"
	"math"
)

// Calibration holds the factory coefficients of one device. AC4..AC6 are unsigned, all
// other coefficients are signed.
type Calibration struct {
	AC1 int16  `yaml:"ac1"`
	AC2 int16  `yaml:"ac2"`
	AC3 int16  `yaml:"ac3"`
	AC4 uint16 `yaml:"ac4"`
	AC5 uint16 `yaml:"ac5"`
	AC6 uint16 `yaml:"ac6"`
	B1  int16  `yaml:"b1"`
	B2  int16  `yaml:"b2"`
	MB  int16  `yaml:"mb"`
	MC  int16  `yaml:"mc"`
	MD  int16  `yaml:"md"`
}

// Assemble joins a big-endian register pair.
func Assemble(msb, lsb byte) uint16 {
	return uint16(msb)<<8 | uint16(lsb)
}

// CoefficientName returns the datasheet name of the i-th coefficient.
func CoefficientName(i int) string {
	if i < 0 || i >= CalibrationSize {
		return "?"
	}
	return calibrationTable[i].name
}

// ErrZeroDivisor is returned when X1 + MD is zero and no temperature can be derived.
var ErrZeroDivisor = errors.New("bmp180: compensation divisor is zero")

// FaultTemperature marks a temperature that could not be compensated.
const FaultTemperature int32 = math.MinInt32

// CompensateTemperature converts the raw temperature into 0.1 °C steps with the integer
// algorithm of the datasheet.
func CompensateTemperature(ut uint16, c Calibration) (int32, error) {
	// the product needs more than 32 bits before the shift for out-of-range inputs
	x1 := int32(((int64(ut) - int64(c.AC6)) * int64(c.AC5)) >> 15)
	divisor := x1 + int32(c.MD)
	if divisor == 0 {
		return FaultTemperature, ErrZeroDivisor
	}
	x2 := (int32(c.MC) << 11) / divisor
	b5 := x1 + x2
	return (b5 + 8) >> 4, nil
}

// Words returns the coefficients as raw register words in EEPROM order.
func (c Calibration) Words() [CalibrationSize]uint16 {
	return [CalibrationSize]uint16{
		uint16(c.AC1), uint16(c.AC2), uint16(c.AC3),
		c.AC4, c.AC5, c.AC6,
		uint16(c.B1), uint16(c.B2),
		uint16(c.MB), uint16(c.MC), uint16(c.MD),
	}
}
