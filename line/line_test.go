package line

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/mklimuk/bitbang/adapter"
	expander "github.com/mklimuk/bitbang/gpio"
)

func TestPin(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO17", Num: 17, L: gpio.High}
	l := NewPin(p)

	require.NoError(t, l.Assert())
	high, err := l.Sense()
	require.NoError(t, err)
	assert.False(t, high)

	require.NoError(t, l.Release())
	assert.Equal(t, gpio.PullUp, p.P)
	high, err = l.Sense()
	require.NoError(t, err)
	assert.True(t, high)
	assert.Equal(t, "GPIO17(17)", l.String())
}

type mockPins struct {
	mock.Mock
}

func (m *mockPins) DigitalRead(id string) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

func (m *mockPins) DigitalWrite(id string, val byte) error {
	args := m.Called(id, val)
	return args.Error(0)
}

func TestDigital(t *testing.T) {
	pins := new(mockPins)
	l := NewDigital(pins, "7")

	pins.On("DigitalWrite", "7", byte(0)).Return(nil).Once()
	require.NoError(t, l.Assert())

	pins.On("DigitalRead", "7").Return(1, nil).Twice()
	require.NoError(t, l.Release())
	high, err := l.Sense()
	require.NoError(t, err)
	assert.True(t, high)

	pins.On("DigitalRead", "7").Return(0, errors.New("sysfs")).Once()
	_, err = l.Sense()
	assert.ErrorContains(t, err, "could not read pin 7: sysfs")
	pins.AssertExpectations(t)
}

type fakeBridge struct {
	changes []adapter.GPIOChange
	values  adapter.GPIOValues
}

func (b *fakeBridge) SetGPIO(_ context.Context, changes ...adapter.GPIOChange) error {
	b.changes = append(b.changes, changes...)
	return nil
}

func (b *fakeBridge) ReadGPIO(context.Context) (adapter.GPIOValues, error) {
	return b.values, nil
}

func TestMCP2221Pin(t *testing.T) {
	_, err := NewMCP2221Pin(context.Background(), &fakeBridge{}, 4)
	assert.Error(t, err)

	b := &fakeBridge{}
	l, err := NewMCP2221Pin(context.Background(), b, 2)
	require.NoError(t, err)

	require.NoError(t, l.Assert())
	require.NoError(t, l.Release())
	require.Len(t, b.changes, 2)
	assert.Equal(t, 2, b.changes[0].Pin)
	assert.False(t, *b.changes[0].Value)
	assert.False(t, *b.changes[0].Input)
	assert.Nil(t, b.changes[1].Value)
	assert.True(t, *b.changes[1].Input)

	b.values.Mode[2] = adapter.GPIOModeIn
	b.values.Value[2] = 1
	high, err := l.Sense()
	require.NoError(t, err)
	assert.True(t, high)

	b.values.Mode[2] = adapter.GPIOModeNoOperation
	_, err = l.Sense()
	assert.ErrorContains(t, err, "not configured for GPIO")
}

type mockExpander struct {
	mock.Mock
}

func (m *mockExpander) OpenDrain(ctx context.Context, p expander.Port, pin int) error {
	return m.Called(p, pin).Error(0)
}

func (m *mockExpander) SetDirection(ctx context.Context, p expander.Port, pin int, input bool) error {
	return m.Called(p, pin, input).Error(0)
}

func (m *mockExpander) ReadPort(ctx context.Context, p expander.Port) (byte, error) {
	args := m.Called(p)
	return args.Get(0).(byte), args.Error(1)
}

func TestExpanderPin(t *testing.T) {
	exp := new(mockExpander)
	exp.On("OpenDrain", expander.PortA, 5).Return(nil).Once()
	l, err := NewExpanderPin(context.Background(), exp, expander.PortA, 5)
	require.NoError(t, err)

	exp.On("SetDirection", expander.PortA, 5, false).Return(nil).Once()
	exp.On("SetDirection", expander.PortA, 5, true).Return(nil).Once()
	require.NoError(t, l.Assert())
	require.NoError(t, l.Release())

	exp.On("ReadPort", expander.PortA).Return(byte(0x20), nil).Once()
	high, err := l.Sense()
	require.NoError(t, err)
	assert.True(t, high)

	exp.On("ReadPort", expander.PortA).Return(byte(0xDF), nil).Once()
	high, err = l.Sense()
	require.NoError(t, err)
	assert.False(t, high)
	exp.AssertExpectations(t)
}
