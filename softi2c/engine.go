// Package softi2c drives a two-wire serial bus by toggling two open-drain lines.
//
// The Engine produces exactly one bit-time of line activity per call. WriteOp and ReadOp
// build byte transfers on top of it, one bit per Step, and hand control to a caller
// supplied continuation once the acknowledgment bit has been clocked.
package softi2c

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/bitbang"
)

// DefaultFrequency is the standard-mode bus clock.
const DefaultFrequency = 100 * physic.KiloHertz

// Engine owns the clock and data lines of one bus. Apart from the line levels it keeps no
// state and never retries.
type Engine struct {
	mx    sync.Mutex
	scl   bitbang.Line
	sda   bitbang.Line
	clock bitbang.Clock
	half  time.Duration
}

type EngineOpts struct {
	Frequency physic.Frequency
	Clock     bitbang.Clock
}

type EngineOpt func(*EngineOpts)

func WithFrequency(f physic.Frequency) EngineOpt {
	return func(o *EngineOpts) {
		o.Frequency = f
	}
}

func WithClock(c bitbang.Clock) EngineOpt {
	return func(o *EngineOpts) {
		o.Clock = c
	}
}

func NewEngine(scl, sda bitbang.Line, opts ...EngineOpt) *Engine {
	o := &EngineOpts{
		Frequency: DefaultFrequency,
		Clock:     bitbang.BusyClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Frequency <= 0 {
		o.Frequency = DefaultFrequency
	}
	return &Engine{
		scl:   scl,
		sda:   sda,
		clock: o.Clock,
		half:  o.Frequency.Period() / 2,
	}
}

// Lock takes the bus token. At most one transaction may be in flight on the lines.
func (e *Engine) Lock() {
	e.mx.Lock()
}

func (e *Engine) Unlock() {
	e.mx.Unlock()
}

// Clock returns the clock used for bit spacing.
func (e *Engine) Clock() bitbang.Clock {
	return e.clock
}

// BitPeriod is the time spent in a single bit operation.
func (e *Engine) BitPeriod() time.Duration {
	return 2 * e.half
}

func (e *Engine) hold() {
	e.clock.Delay(e.half)
}

// Begin releases both lines so the bus rests idle-high before the first START.
func (e *Engine) Begin() error {
	if err := e.sda.Release(); err != nil {
		return fmt.Errorf("could not release data line: %w", err)
	}
	if err := e.scl.Release(); err != nil {
		return fmt.Errorf("could not release clock line: %w", err)
	}
	e.hold()
	return nil
}

// Start generates a START condition, or a repeated START when the bus is already owned:
// data falls while clock is high. Clock is left high and data low.
func (e *Engine) Start() error {
	if err := e.scl.Assert(); err != nil {
		return fmt.Errorf("start: could not assert clock: %w", err)
	}
	if err := e.sda.Release(); err != nil {
		return fmt.Errorf("start: could not release data: %w", err)
	}
	e.hold()
	if err := e.scl.Release(); err != nil {
		return fmt.Errorf("start: could not release clock: %w", err)
	}
	e.hold()
	if err := e.sda.Assert(); err != nil {
		return fmt.Errorf("start: could not assert data: %w", err)
	}
	return nil
}

// Stop generates a STOP condition: data rises while clock is high. Both lines are left
// released.
func (e *Engine) Stop() error {
	if err := e.scl.Assert(); err != nil {
		return fmt.Errorf("stop: could not assert clock: %w", err)
	}
	if err := e.sda.Assert(); err != nil {
		return fmt.Errorf("stop: could not assert data: %w", err)
	}
	e.hold()
	if err := e.scl.Release(); err != nil {
		return fmt.Errorf("stop: could not release clock: %w", err)
	}
	e.hold()
	if err := e.sda.Release(); err != nil {
		return fmt.Errorf("stop: could not release data: %w", err)
	}
	return nil
}

// WriteBit clocks out one data bit. Data is only changed while clock is low and the target
// samples it on the rising edge.
func (e *Engine) WriteBit(bit bool) error {
	if err := e.scl.Assert(); err != nil {
		return fmt.Errorf("write bit: could not assert clock: %w", err)
	}
	var err error
	if bit {
		err = e.sda.Release()
	} else {
		err = e.sda.Assert()
	}
	if err != nil {
		return fmt.Errorf("write bit: could not set data: %w", err)
	}
	e.hold()
	if err = e.scl.Release(); err != nil {
		return fmt.Errorf("write bit: could not release clock: %w", err)
	}
	e.hold()
	return nil
}

// ReadBit releases data for the target to drive and samples it while clock is high.
func (e *Engine) ReadBit() (bool, error) {
	if err := e.scl.Assert(); err != nil {
		return false, fmt.Errorf("read bit: could not assert clock: %w", err)
	}
	if err := e.sda.Release(); err != nil {
		return false, fmt.Errorf("read bit: could not release data: %w", err)
	}
	e.hold()
	if err := e.scl.Release(); err != nil {
		return false, fmt.Errorf("read bit: could not release clock: %w", err)
	}
	e.hold()
	bit, err := e.sda.Sense()
	if err != nil {
		return false, fmt.Errorf("read bit: could not sample data: %w", err)
	}
	return bit, nil
}

// SendAck holds data low for one clock pulse after a received byte.
func (e *Engine) SendAck() error {
	return e.WriteBit(false)
}

// SendNack leaves data high for one clock pulse, telling the target to stop transmitting.
func (e *Engine) SendNack() error {
	return e.WriteBit(true)
}

// SampleAck clocks the acknowledgment bit of a transmitted byte. It returns true when the
// target pulled data low.
func (e *Engine) SampleAck() (bool, error) {
	bit, err := e.ReadBit()
	if err != nil {
		return false, err
	}
	return !bit, nil
}
