package gpio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/bitbang"
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

func TestMCP23017_RegisterLayout(t *testing.T) {
	tests := []struct {
		bank     int
		port     Port
		reg      register
		expected byte
	}{
		{0, PortA, regIODIR, 0x00},
		{0, PortB, regIODIR, 0x01},
		{0, PortA, regGPPU, 0x0C},
		{0, PortB, regGPIO, 0x13},
		{0, PortB, regOLAT, 0x15},
		{1, PortA, regGPIO, 0x09},
		{1, PortB, regIODIR, 0x10},
		{1, PortB, regOLAT, 0x1A},
		{1, PortA, regIOCON, 0x05},
	}
	for _, test := range tests {
		m := NewMCP23017(nil, DefaultMCP23017Address, WithBank(test.bank))
		assert.Equal(t, test.expected, m.registerAddr(test.port, test.reg), "bank %d port %s reg %d", test.bank, test.port, test.reg)
	}
}

func TestMCP23017_OpenDrain(t *testing.T) {
	bus := new(MockI2CBus)
	m := NewMCP23017(bus, DefaultMCP23017Address)
	ctx := context.Background()

	// OLATB bit 3 cleared, GPPUB bit 3 set, already an input
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x15, 0x00}).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x0D, 0x08}).Return(nil).Once()
	require.NoError(t, m.OpenDrain(ctx, PortB, 3))

	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x01, 0xF7}).Return(nil).Once()
	require.NoError(t, m.SetDirection(ctx, PortB, 3, false))
	// no change, no traffic
	require.NoError(t, m.SetDirection(ctx, PortB, 3, false))
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x01, 0xFF}).Return(nil).Once()
	require.NoError(t, m.SetDirection(ctx, PortB, 3, true))

	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x13}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x21), mock.Anything).Return([]byte{0x08}, nil).Once()
	v, err := m.ReadPort(ctx, PortB)
	require.NoError(t, err)
	assert.Equal(t, byte(0x08), v)
	bus.AssertExpectations(t)
}

func TestMCP23017_RetryOnBusy(t *testing.T) {
	bus := new(MockI2CBus)
	m := NewMCP23017(bus, DefaultMCP23017Address, WithRetryLimit(2))
	ctx := context.Background()

	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x00, 0x0F}).Return(bitbang.ErrBusBusy).Once()
	bus.On("Release", mock.Anything).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x00, 0x0F}).Return(nil).Once()
	require.NoError(t, m.Init(ctx, PortA, 0x0F))

	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x0C, 0xFF}).Return(bitbang.ErrBusBusy).Twice()
	bus.On("Release", mock.Anything).Return(nil).Twice()
	err := m.PullUp(ctx, PortA, 0xFF)
	assert.ErrorIs(t, err, bitbang.ErrBusBusy)
	assert.ErrorContains(t, err, "retry limit reached")
	bus.AssertExpectations(t)
}

func TestMCP23017_ErrorNotRetried(t *testing.T) {
	bus := new(MockI2CBus)
	m := NewMCP23017(bus, DefaultMCP23017Address, WithRetryLimit(3))
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{0x12}).Return(errors.New("nack")).Once()
	_, err := m.ReadPort(context.Background(), PortA)
	assert.ErrorContains(t, err, "could not read gpio A set: nack")
	assert.ErrorContains(t, m.SetDirection(context.Background(), PortA, 8, true), "invalid pin")
	bus.AssertExpectations(t)
}
