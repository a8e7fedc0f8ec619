package bmp180

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/bitbang/sim"
	"github.com/mklimuk/bitbang/softi2c"
)

// MockI2CBus is a mock implementation of bitbang.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockI2CBus) expectRegister(reg byte, data ...byte) {
	m.On("WriteToAddr", mock.Anything, byte(Address), []byte{reg}).Return(nil).Once()
	m.On("ReadFromAddr", mock.Anything, byte(Address), mock.Anything).Return(data, nil).Once()
}

func (m *MockI2CBus) expectDatasheetDevice() {
	m.expectRegister(regChipID, ChipID)
	for i, w := range datasheetCalibration().Words() {
		m.expectRegister(calibrationTable[i].reg, byte(w>>8), byte(w))
	}
	m.On("WriteToAddr", mock.Anything, byte(Address), []byte{regControl, cmdTemperature}).Return(nil).Once()
	m.expectRegister(regDataMSB, 0x6C, 0xFA) // 27898
	m.On("WriteToAddr", mock.Anything, byte(Address), []byte{regControl, cmdPressure}).Return(nil).Once()
	m.expectRegister(regDataMSB, 0x5D, 0x23) // 23843
}

func TestDirect_Measure(t *testing.T) {
	bus := new(MockI2CBus)
	bus.expectDatasheetDevice()
	sensor := NewDirect(bus, WithDirectSettleDelay(0))

	m, err := sensor.Measure(context.Background())
	require.NoError(t, err)
	assert.NoError(t, m.CheckChip())
	assert.Equal(t, datasheetCalibration(), m.Calibration)
	assert.Equal(t, uint16(27898), m.UT)
	assert.Equal(t, uint16(23843), m.UP)
	assert.Equal(t, int32(150), m.Temperature)
	assert.False(t, m.Fault)
	bus.AssertExpectations(t)
}

func TestDirect_CustomAddress(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x76), []byte{regChipID}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x76), mock.Anything).Return(nil, errors.New("timeout")).Once()
	sensor := NewDirect(bus, WithAddress(0x76))

	_, err := sensor.Measure(context.Background())
	assert.ErrorContains(t, err, "could not read chip id")
	assert.ErrorContains(t, err, "timeout")
	bus.AssertExpectations(t)
}

func TestDirect_CalibrationError(t *testing.T) {
	bus := new(MockI2CBus)
	bus.expectRegister(regChipID, ChipID)
	bus.expectRegister(0xAA, 0x01, 0x98)
	bus.On("WriteToAddr", mock.Anything, byte(Address), []byte{byte(0xAC)}).Return(errors.New("nack")).Once()
	sensor := NewDirect(bus)

	m, err := sensor.Measure(context.Background())
	assert.ErrorContains(t, err, "could not read AC2")
	assert.Equal(t, int16(408), m.Calibration.AC1)
	bus.AssertExpectations(t)
}

func TestDirect_AgreesWithSequencer(t *testing.T) {
	bus := new(MockI2CBus)
	bus.expectDatasheetDevice()
	direct, err := NewDirect(bus, WithDirectSettleDelay(0)).Measure(context.Background())
	require.NoError(t, err)

	b := newBench()
	banged, err := b.seq.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, direct.Diff(banged))
	assert.Equal(t, direct.Temperature, banged.Temperature)
}

func TestDirect_OverBitBangedBus(t *testing.T) {
	b := newBench()
	bus := softi2c.NewBus(softi2c.NewEngine(b.wire.Master()))
	direct, err := NewDirect(bus, WithDirectSettleDelay(0)).Measure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(150), direct.Temperature)
	assert.Equal(t, []byte{0x2E, 0x34}, b.device.Conversions())

	banged, err := b.seq.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, direct.Diff(banged))
}

func TestDirect_SettleThroughClock(t *testing.T) {
	bus := new(MockI2CBus)
	bus.expectDatasheetDevice()
	clock := &sim.Clock{}
	sensor := NewDirect(bus, WithDirectClock(clock))

	_, err := sensor.Measure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultSettleDelay, DefaultSettleDelay}, clock.Settles)
	bus.AssertExpectations(t)
}
