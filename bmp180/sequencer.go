// Package bmp180 reads a Bosch BMP180 pressure/temperature sensor.
//
// Sequencer runs the full read cycle over a bit-banged bus: chip id, the 11 calibration
// coefficients, a temperature and a pressure conversion, the compensated temperature and
// a final result write. Every Tick performs at most one bit-level or byte-level step, so
// the cycle can be driven from a polling loop. Direct reads the same values through a
// hardware bus controller.
package bmp180

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mklimuk/bitbang"
	"github.com/mklimuk/bitbang/softi2c"
)

// DefaultSettleDelay is the conversion time of a temperature or ultra-low-power pressure
// measurement.
const DefaultSettleDelay = 5 * time.Millisecond

const DefaultRetryLimit = 5

// AckPolicy decides what happens when the device does not acknowledge a byte.
type AckPolicy uint8

const (
	// AckIgnore proceeds as if every byte was acknowledged; failures are only counted.
	AckIgnore AckPolicy = iota
	// AckRetry stops the bus and issues the transaction again, up to the retry limit.
	AckRetry
)

func (p AckPolicy) String() string {
	switch p {
	case AckIgnore:
		return "ignore"
	case AckRetry:
		return "retry"
	default:
		return "unknown"
	}
}

func ParseAckPolicy(s string) (AckPolicy, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return AckIgnore, nil
	case "retry":
		return AckRetry, nil
	default:
		return AckIgnore, fmt.Errorf("unknown acknowledgment policy %q", s)
	}
}

type SequencerOpts struct {
	AckPolicy   AckPolicy
	RetryLimit  int
	SettleDelay time.Duration
	StateHook   func(State)
}

type SequencerOpt func(*SequencerOpts)

func WithAckPolicy(p AckPolicy) SequencerOpt {
	return func(o *SequencerOpts) {
		o.AckPolicy = p
	}
}

func WithRetryLimit(limit int) SequencerOpt {
	return func(o *SequencerOpts) {
		o.RetryLimit = limit
	}
}

func WithSettleDelay(d time.Duration) SequencerOpt {
	return func(o *SequencerOpts) {
		o.SettleDelay = d
	}
}

// WithStateHook registers a function called on every outer state entry.
func WithStateHook(hook func(State)) SequencerOpt {
	return func(o *SequencerOpts) {
		o.StateHook = hook
	}
}

const allCoefficients = 1<<CalibrationSize - 1

// Sequencer walks the BMP180 read cycle one bus step at a time.
type Sequencer struct {
	engine *softi2c.Engine
	opts   SequencerOpts

	state    State
	bus      BusPhase
	tx       transaction
	write    softi2c.WriteOp[BusPhase]
	read     softi2c.ReadOp[BusPhase]
	buf      [2]byte
	n        int
	attempts int
	loaded   uint16
	done     bool

	m Measurement
}

func NewSequencer(engine *softi2c.Engine, opts ...SequencerOpt) *Sequencer {
	o := SequencerOpts{
		AckPolicy:   AckIgnore,
		RetryLimit:  DefaultRetryLimit,
		SettleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RetryLimit <= 0 {
		o.RetryLimit = DefaultRetryLimit
	}
	return &Sequencer{engine: engine, opts: o}
}

// Reset returns the sequencer to bus-idle / PhaseNone with an empty record.
func (s *Sequencer) Reset() {
	s.state = State{}
	s.bus = BusIdle
	s.tx = transaction{}
	s.write = softi2c.WriteOp[BusPhase]{}
	s.read = softi2c.ReadOp[BusPhase]{}
	s.n = 0
	s.attempts = 0
	s.loaded = 0
	s.done = false
	s.m = Measurement{}
}

func (s *Sequencer) State() State {
	return s.state
}

func (s *Sequencer) BusPhase() BusPhase {
	return s.bus
}

// Measurement returns the record being built. It is complete once Tick reported the end
// of the cycle.
func (s *Sequencer) Measurement() Measurement {
	return s.m
}

// Run performs one complete cycle and returns its record. The context is only checked
// before the cycle starts; a started cycle always runs to its end.
func (s *Sequencer) Run(ctx context.Context) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	s.engine.Lock()
	defer s.engine.Unlock()
	s.Reset()
	for {
		done, err := s.Tick()
		if err != nil {
			return s.m, err
		}
		if done {
			return s.m, nil
		}
	}
}

// Tick performs one sub-step of the cycle and reports whether the terminal state was
// reached. The caller must hold the engine lock when several goroutines share the bus.
func (s *Sequencer) Tick() (bool, error) {
	if s.done {
		return true, nil
	}
	err := s.step()
	if err != nil {
		failed := s.state
		phase := s.bus
		// leave the lines released and start over on the next tick
		_ = s.engine.Stop()
		m := s.m
		s.Reset()
		s.m = m
		return false, fmt.Errorf("bmp180: cycle aborted in %s (%s): %w", failed, phase, err)
	}
	return s.done, nil
}

func (s *Sequencer) step() error {
	switch s.bus {
	case BusIdle:
		s.m = Measurement{}
		if err := s.engine.Begin(); err != nil {
			return err
		}
		s.enter(Transition(s.state, EventDone))
		s.bus = BusStart
	case BusStart:
		s.tx = plan(s.state, s.m.ResultByte())
		if s.tx.settle {
			s.engine.Clock().Delay(s.opts.SettleDelay)
		}
		if err := s.engine.Start(); err != nil {
			return err
		}
		s.bus = BusAddressWrite
	case BusAddressWrite:
		if s.write.Idle() {
			s.write.Load(writeAddress, BusRegister, s.onNack(BusRegister))
		}
		return s.stepWrite()
	case BusRegister:
		if s.write.Idle() {
			next := BusRestart
			switch {
			case s.tx.hasCommand:
				next = BusCommand
			case s.tx.read == 0:
				next = BusDone
			}
			s.write.Load(s.tx.register, next, s.onNack(next))
		}
		return s.stepWrite()
	case BusCommand:
		if s.write.Idle() {
			s.write.Load(s.tx.command, BusDone, s.onNack(BusDone))
		}
		return s.stepWrite()
	case BusRestart:
		if err := s.engine.Start(); err != nil {
			return err
		}
		s.bus = BusAddressRead
	case BusAddressRead:
		if s.write.Idle() {
			s.write.Load(readAddress, BusDataRead, s.onNack(BusDataRead))
		}
		return s.stepWrite()
	case BusDataRead:
		if s.read.Idle() {
			last := s.n+1 == s.tx.read
			next := BusDataRead
			if last {
				next = BusDone
			}
			s.read.Load(last, next)
		}
		if err := s.read.Step(s.engine, &s.bus); err != nil {
			return err
		}
		if s.read.Idle() {
			s.buf[s.n] = s.read.Byte
			s.n++
		}
	case BusDone:
		if err := s.commit(); err != nil {
			return err
		}
		s.attempts = 0
		s.n = 0
		if s.state.Phase == PhaseResult {
			s.bus = BusStop
			return nil
		}
		s.enter(Transition(s.state, EventDone))
		s.bus = BusStart
	case BusAbort:
		if err := s.engine.Stop(); err != nil {
			return err
		}
		s.attempts++
		if s.attempts >= s.opts.RetryLimit {
			return fmt.Errorf("giving up after %d attempts: %w", s.attempts, bitbang.ErrNack)
		}
		slog.Debug("bmp180 transaction not acknowledged, retrying", "state", s.state, "attempt", s.attempts)
		s.n = 0
		s.enter(Transition(s.state, EventFailed))
		s.bus = BusStart
	case BusStop:
		if err := s.engine.Stop(); err != nil {
			return err
		}
		s.enter(Transition(s.state, EventDone))
		s.done = true
	}
	return nil
}

// onNack is the failure continuation handed to the byte layer.
func (s *Sequencer) onNack(next BusPhase) BusPhase {
	if s.opts.AckPolicy == AckRetry {
		return BusAbort
	}
	return next
}

func (s *Sequencer) stepWrite() error {
	if err := s.write.Step(s.engine, &s.bus); err != nil {
		return err
	}
	if s.write.Idle() && !s.write.Acked {
		s.m.Nacks++
		if s.opts.AckPolicy == AckIgnore {
			slog.Warn("bmp180 byte not acknowledged, continuing", "state", s.state, "phase", s.bus)
		}
	}
	return nil
}

// commit stores the bytes of a finished transaction into the record.
func (s *Sequencer) commit() error {
	switch s.state.Phase {
	case PhaseReadID:
		s.m.ChipID = s.buf[0]
	case PhaseCalibration:
		calibrationTable[s.state.Coefficient].set(&s.m.Calibration, Assemble(s.buf[0], s.buf[1]))
		s.loaded |= 1 << s.state.Coefficient
	case PhaseReadTemperature:
		s.m.UT = Assemble(s.buf[0], s.buf[1])
		if s.loaded != allCoefficients {
			return fmt.Errorf("calibration incomplete (%#03x)", s.loaded)
		}
		t, err := CompensateTemperature(s.m.UT, s.m.Calibration)
		if err != nil {
			slog.Warn("bmp180 temperature compensation failed", "ut", s.m.UT, "error", err)
			s.m.Fault = true
		}
		s.m.Temperature = t
	case PhaseReadPressure:
		s.m.UP = Assemble(s.buf[0], s.buf[1])
	}
	return nil
}

func (s *Sequencer) enter(st State) {
	s.state = st
	slog.Debug("bmp180 sequencer", "state", st)
	if s.opts.StateHook != nil {
		s.opts.StateHook(st)
	}
}
