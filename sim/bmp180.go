package sim

const (
	BMP180Address = 0x77
	BMP180ChipID  = 0x55
)

// DatasheetCalibration is the AC1..MD example table from the BMP180 datasheet.
var DatasheetCalibration = [11]uint16{
	408,    // AC1
	0xFFB8, // AC2 = -72
	0xC7D1, // AC3 = -14383
	32741,  // AC4
	32757,  // AC5
	23153,  // AC6
	6190,   // B1
	4,      // B2
	0x8000, // MB = -32768
	0xDDF9, // MC = -8711
	2868,   // MD
}

const (
	DatasheetUT = 27898
	DatasheetUP = 23843
)

// BMP180 emulates the register behaviour of a Bosch BMP180: chip id, calibration
// EEPROM and temperature/pressure conversions triggered through the control register.
type BMP180 struct {
	*Target
	UT uint16
	UP uint16

	conversions []byte
}

func NewBMP180(w *Wire) *BMP180 {
	d := &BMP180{
		Target: NewTarget(w, BMP180Address),
		UT:     DatasheetUT,
		UP:     DatasheetUP,
	}
	d.Registers[0xD0] = BMP180ChipID
	d.Calibrate(DatasheetCalibration)
	d.OnWrite = d.control
	return d
}

// Calibrate programs the calibration EEPROM image, MSB first from 0xAA.
func (d *BMP180) Calibrate(words [11]uint16) {
	for i, w := range words {
		d.Registers[0xAA+2*i] = byte(w >> 8)
		d.Registers[0xAB+2*i] = byte(w)
	}
}

// Conversions returns the conversion commands received so far.
func (d *BMP180) Conversions() []byte {
	return d.conversions
}

func (d *BMP180) control(reg, value byte) {
	if reg != 0xF4 {
		return
	}
	d.conversions = append(d.conversions, value)
	switch value {
	case 0x2E:
		d.Registers[0xF6] = byte(d.UT >> 8)
		d.Registers[0xF7] = byte(d.UT)
	case 0x34:
		d.Registers[0xF6] = byte(d.UP >> 8)
		d.Registers[0xF7] = byte(d.UP)
	}
}
