package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	edges []Levels
}

func (r *recorder) Edge(_, cur Levels) {
	r.edges = append(r.edges, cur)
}

func TestWire_WiredAnd(t *testing.T) {
	w := NewWire()
	a := w.Pin(SDA)
	b := w.Pin(SDA)
	assert.Equal(t, Levels{SCL: true, SDA: true}, w.Levels())

	require.NoError(t, a.Assert())
	require.NoError(t, b.Assert())
	require.NoError(t, a.Release())
	high, err := a.Sense()
	require.NoError(t, err)
	assert.False(t, high, "one driver keeps the net low")

	require.NoError(t, b.Release())
	high, err = a.Sense()
	require.NoError(t, err)
	assert.True(t, high)
}

func TestWire_EdgesOnlyOnChange(t *testing.T) {
	w := NewWire()
	r := &recorder{}
	w.Attach(r)
	scl, sda := w.Master()
	_ = scl.Release()
	_ = sda.Assert()
	_ = sda.Assert()
	_ = scl.Assert()
	assert.Equal(t, []Levels{{SCL: true, SDA: false}, {SCL: false, SDA: false}}, r.edges)
}

// follower pulls SDA low whenever SCL falls.
type follower struct {
	pin *Pin
}

func (f *follower) Edge(prev, cur Levels) {
	if prev.SCL && !cur.SCL {
		_ = f.pin.Assert()
	}
}

func TestWire_NestedEdgesInOrder(t *testing.T) {
	w := NewWire()
	w.Attach(&follower{pin: w.Pin(SDA)})
	r := &recorder{}
	w.Attach(r)
	scl, _ := w.Master()
	_ = scl.Assert()
	// the recorder sees the clock edge before the reaction it caused
	assert.Equal(t, []Levels{{SCL: false, SDA: true}, {SCL: false, SDA: false}}, r.edges)
}

type controller struct {
	scl, sda *Pin
}

func (c controller) start() {
	_ = c.scl.Assert()
	_ = c.sda.Release()
	_ = c.scl.Release()
	_ = c.sda.Assert()
}

func (c controller) stop() {
	_ = c.scl.Assert()
	_ = c.sda.Assert()
	_ = c.scl.Release()
	_ = c.sda.Release()
}

func (c controller) bit(v bool) bool {
	_ = c.scl.Assert()
	if v {
		_ = c.sda.Release()
	} else {
		_ = c.sda.Assert()
	}
	_ = c.scl.Release()
	high, _ := c.sda.Sense()
	return high
}

func (c controller) write(b byte) bool {
	for i := 7; i >= 0; i-- {
		c.bit(b&(1<<i) != 0)
	}
	return !c.bit(true)
}

func (c controller) read(ack bool) byte {
	var b byte
	for i := 0; i < 8; i++ {
		b <<= 1
		if c.bit(true) {
			b |= 1
		}
	}
	c.bit(!ack)
	return b
}

func newController(w *Wire) controller {
	scl, sda := w.Master()
	return controller{scl: scl, sda: sda}
}

func TestTarget_RegisterWriteAndRead(t *testing.T) {
	w := NewWire()
	target := NewTarget(w, 0x20)
	var stored [][2]byte
	target.OnWrite = func(reg, value byte) {
		stored = append(stored, [2]byte{reg, value})
	}
	sniffer := NewSniffer(w)
	c := newController(w)

	c.start()
	assert.True(t, c.write(0x40))
	assert.True(t, c.write(0x10))
	assert.True(t, c.write(0xAB))
	assert.True(t, c.write(0xCD))
	c.stop()
	assert.Equal(t, [][2]byte{{0x10, 0xAB}, {0x11, 0xCD}}, stored)
	assert.Equal(t, []byte{0x10, 0xAB, 0xCD}, target.Received())

	c.start()
	assert.True(t, c.write(0x40))
	assert.True(t, c.write(0x10))
	c.start()
	assert.True(t, c.write(0x41))
	assert.Equal(t, byte(0xAB), c.read(true))
	assert.Equal(t, byte(0xCD), c.read(false))
	c.stop()

	assert.Equal(t, []byte{0x40, 0x10, 0xAB, 0xCD, 0x40, 0x10, 0x41, 0xAB, 0xCD}, sniffer.Bytes())
	assert.Equal(t, Levels{SCL: true, SDA: true}, w.Levels())
}

func TestTarget_Nacks(t *testing.T) {
	w := NewWire()
	target := NewTarget(w, 0x20)
	c := newController(w)

	c.start()
	assert.False(t, c.write(0x42), "other address")
	c.stop()

	target.NackAddress(1)
	c.start()
	assert.False(t, c.write(0x40))
	c.stop()
	c.start()
	assert.True(t, c.write(0x40))
	c.stop()

	target.NackAll = true
	c.start()
	assert.False(t, c.write(0x41))
	assert.Equal(t, byte(0xFF), c.read(false), "nobody drives the data line")
	c.stop()
}

func TestSniffer_Events(t *testing.T) {
	w := NewWire()
	NewTarget(w, 0x20)
	s := NewSniffer(w)
	c := newController(w)
	c.start()
	c.write(0x40)
	c.stop()
	c.start()
	c.write(0x30)
	c.stop()
	assert.Equal(t, []Event{
		{Kind: EventStart},
		{Kind: EventByte, Byte: 0x40, Acked: true},
		{Kind: EventStop},
		{Kind: EventStart},
		{Kind: EventByte, Byte: 0x30, Acked: false},
		{Kind: EventStop},
	}, s.Events())
	assert.Equal(t, "0x40 ACK", s.Events()[1].String())
	assert.Equal(t, "STOP", s.Events()[2].String())
	s.Reset()
	assert.Empty(t, s.Events())
}

func TestBMP180_Conversions(t *testing.T) {
	w := NewWire()
	d := NewBMP180(w)
	d.UT = 0x1234
	c := newController(w)
	c.start()
	c.write(0xEE)
	c.write(0xF4)
	c.write(0x2E)
	c.start()
	c.write(0xEE)
	c.write(0xF6)
	c.start()
	c.write(0xEF)
	assert.Equal(t, byte(0x12), c.read(true))
	assert.Equal(t, byte(0x34), c.read(false))
	c.stop()
	assert.Equal(t, []byte{0x2E}, d.Conversions())
}
