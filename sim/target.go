package sim

type targetState uint8

const (
	tIdle targetState = iota
	tAddress
	tAddressAck
	tReceive
	tReceiveAck
	tSend
	tIgnore
)

// Target is an addressable register-file device. The first byte written after the address
// sets the register pointer; following bytes are stored at the pointer, which
// auto-increments on every access.
type Target struct {
	addr  byte
	sda   *Pin
	state targetState

	bits     int
	shift    byte
	read     bool
	pointed  bool
	sent     int
	out      byte
	hostAck  bool
	nackNext int

	// NackAll makes the target ignore its address, as if it was not on the bus.
	NackAll bool

	Registers [256]byte
	Pointer   byte
	// OnWrite is called for every register stored by the controller.
	OnWrite func(reg, value byte)

	received []byte
}

// NewTarget attaches a target with the 7-bit address addr to the wire.
func NewTarget(w *Wire, addr byte) *Target {
	t := &Target{addr: addr, sda: w.Pin(SDA)}
	w.Attach(t)
	return t
}

// NackAddress makes the target refuse the next n address phases.
func (t *Target) NackAddress(n int) {
	t.nackNext = n
}

// Received returns every data byte written by the controller, pointer bytes included.
func (t *Target) Received() []byte {
	return t.received
}

func (t *Target) Edge(prev, cur Levels) {
	if prev.SCL && cur.SCL {
		switch {
		case prev.SDA && !cur.SDA:
			t.start()
		case !prev.SDA && cur.SDA:
			t.stop()
		}
		return
	}
	if !prev.SCL && cur.SCL {
		t.rise(cur.SDA)
		return
	}
	if prev.SCL && !cur.SCL {
		t.fall()
	}
}

func (t *Target) start() {
	_ = t.sda.Release()
	t.state = tAddress
	t.bits = 0
	t.shift = 0
	t.pointed = false
}

func (t *Target) stop() {
	_ = t.sda.Release()
	t.state = tIdle
}

func (t *Target) rise(sda bool) {
	switch t.state {
	case tAddress, tReceive:
		if t.bits < 8 {
			t.shift <<= 1
			if sda {
				t.shift |= 1
			}
			t.bits++
		}
	case tSend:
		if t.sent == 9 {
			t.hostAck = !sda
			t.sent = 10
		}
	}
}

func (t *Target) fall() {
	switch t.state {
	case tAddress:
		if t.bits < 8 {
			return
		}
		if t.shift>>1 != t.addr || t.NackAll || t.nackNext > 0 {
			if t.shift>>1 == t.addr && t.nackNext > 0 {
				t.nackNext--
			}
			t.state = tIgnore
			return
		}
		t.read = t.shift&1 == 1
		_ = t.sda.Assert()
		t.state = tAddressAck
	case tAddressAck:
		_ = t.sda.Release()
		if t.read {
			t.state = tSend
			t.load()
			return
		}
		t.state = tReceive
		t.bits = 0
		t.shift = 0
	case tReceive:
		if t.bits < 8 {
			return
		}
		t.store(t.shift)
		_ = t.sda.Assert()
		t.state = tReceiveAck
	case tReceiveAck:
		_ = t.sda.Release()
		t.state = tReceive
		t.bits = 0
		t.shift = 0
	case tSend:
		switch {
		case t.sent < 8:
			t.drive()
		case t.sent == 8:
			_ = t.sda.Release()
			t.sent = 9
		case t.sent == 10:
			if t.hostAck {
				t.load()
				return
			}
			t.state = tIgnore
		}
	}
}

func (t *Target) store(b byte) {
	t.received = append(t.received, b)
	if !t.pointed {
		t.Pointer = b
		t.pointed = true
		return
	}
	t.Registers[t.Pointer] = b
	if t.OnWrite != nil {
		t.OnWrite(t.Pointer, b)
	}
	t.Pointer++
}

// load fetches the register at the pointer and drives its most significant bit.
func (t *Target) load() {
	t.out = t.Registers[t.Pointer]
	t.Pointer++
	t.sent = 0
	t.drive()
}

func (t *Target) drive() {
	if t.out&(0x80>>t.sent) != 0 {
		_ = t.sda.Release()
	} else {
		_ = t.sda.Assert()
	}
	t.sent++
}
