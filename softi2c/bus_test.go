package softi2c

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/sim"
)

func TestBus_WriteThenRead(t *testing.T) {
	r := newRig()
	target := sim.NewTarget(r.wire, 0x50)
	bus := NewBus(r.engine)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x50, []byte{0x20, 0xCA, 0xFE}))
	assert.Equal(t, byte(0xCA), target.Registers[0x20])
	assert.Equal(t, byte(0xFE), target.Registers[0x21])

	require.NoError(t, bus.WriteToAddr(ctx, 0x50, []byte{0x20}))
	buf := make([]byte, 2)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x50, buf))
	assert.Equal(t, []byte{0xCA, 0xFE}, buf)

	events := r.sniffer.Events()
	assert.Equal(t, []sim.Event{
		{Kind: sim.EventStart},
		{Kind: sim.EventByte, Byte: 0xA1, Acked: true},
		{Kind: sim.EventByte, Byte: 0xCA, Acked: true},
		{Kind: sim.EventByte, Byte: 0xFE, Acked: false},
		{Kind: sim.EventStop},
	}, events[len(events)-5:])
	assert.Equal(t, sim.Levels{SCL: true, SDA: true}, r.wire.Levels())
}

func TestBus_Nack(t *testing.T) {
	r := newRig()
	sim.NewTarget(r.wire, 0x50)
	bus := NewBus(r.engine)

	err := bus.WriteToAddr(context.Background(), 0x51, []byte{0x00})
	assert.ErrorIs(t, err, bitbang.ErrNack)
	assert.ErrorContains(t, err, "write to 51 failed")
	assert.Equal(t, sim.Levels{SCL: true, SDA: true}, r.wire.Levels())
	assert.Equal(t, sim.EventStop, r.sniffer.Events()[len(r.sniffer.Events())-1].Kind)
}

func TestBus_Cancelled(t *testing.T) {
	r := newRig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewBus(r.engine).ReadFromAddr(ctx, 0x50, make([]byte, 1)), context.Canceled)
	assert.Empty(t, r.sniffer.Events())
}
