package bmp180

// Address is the 7-bit bus address of the BMP180.
const Address = 0x77

// Bus address bytes with the direction bit.
const (
	writeAddress byte = Address << 1
	readAddress  byte = Address<<1 | 1
)

const ChipID = 0x55

const (
	regChipID  byte = 0xD0
	regControl byte = 0xF4
	regDataMSB byte = 0xF6
)

// Conversion opcodes written to the control register.
const (
	cmdTemperature byte = 0x2E
	cmdPressure    byte = 0x34
)

// CalibrationSize is the number of coefficients in the calibration EEPROM.
const CalibrationSize = 11

type calibrationEntry struct {
	reg  byte
	name string
	set  func(c *Calibration, v uint16)
}

// calibrationTable lists the EEPROM words in register order; each word is read MSB first
// from reg and reg+1.
var calibrationTable = [CalibrationSize]calibrationEntry{
	{0xAA, "AC1", func(c *Calibration, v uint16) { c.AC1 = int16(v) }},
	{0xAC, "AC2", func(c *Calibration, v uint16) { c.AC2 = int16(v) }},
	{0xAE, "AC3", func(c *Calibration, v uint16) { c.AC3 = int16(v) }},
	{0xB0, "AC4", func(c *Calibration, v uint16) { c.AC4 = v }},
	{0xB2, "AC5", func(c *Calibration, v uint16) { c.AC5 = v }},
	{0xB4, "AC6", func(c *Calibration, v uint16) { c.AC6 = v }},
	{0xB6, "B1", func(c *Calibration, v uint16) { c.B1 = int16(v) }},
	{0xB8, "B2", func(c *Calibration, v uint16) { c.B2 = int16(v) }},
	{0xBA, "MB", func(c *Calibration, v uint16) { c.MB = int16(v) }},
	{0xBC, "MC", func(c *Calibration, v uint16) { c.MC = int16(v) }},
	{0xBE, "MD", func(c *Calibration, v uint16) { c.MD = int16(v) }},
}
