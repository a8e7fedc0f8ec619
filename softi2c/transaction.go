package softi2c

import (
	"errors"
	"fmt"
)

// ErrIdle is returned when an operation is stepped without a loaded byte.
var ErrIdle = errors.New("byte operation is idle")

// OpState tracks where a byte operation is in its lifecycle.
type OpState uint8

const (
	OpIdle OpState = iota
	OpShift
	OpAck
)

func (s OpState) String() string {
	switch s {
	case OpIdle:
		return "IDLE"
	case OpShift:
		return "SHIFT"
	case OpAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// WriteOp transmits one byte MSB first and samples the target's acknowledgment. S is the
// caller's phase type; the matching continuation is written to the caller's phase once the
// acknowledgment bit has been clocked.
type WriteOp[S any] struct {
	Byte      byte
	Remaining uint8
	State     OpState
	OnSuccess S
	OnFailure S
	// Acked holds the last sampled acknowledgment.
	Acked bool
}

// Load queues b for transmission. The operation must be idle.
func (op *WriteOp[S]) Load(b byte, onSuccess, onFailure S) {
	op.Byte = b
	op.Remaining = 8
	op.OnSuccess = onSuccess
	op.OnFailure = onFailure
	op.Acked = false
	op.State = OpShift
}

// Idle reports whether a new byte may be loaded.
func (op *WriteOp[S]) Idle() bool {
	return op.State == OpIdle
}

// Step advances the operation by exactly one bit. After the acknowledgment bit the
// operation turns idle and the continuation is stored in phase.
func (op *WriteOp[S]) Step(e *Engine, phase *S) error {
	switch op.State {
	case OpShift:
		if err := e.WriteBit(op.Byte&0x80 != 0); err != nil {
			return fmt.Errorf("could not write bit %d of %#02x: %w", op.Remaining-1, op.Byte, err)
		}
		op.Byte <<= 1
		op.Remaining--
		if op.Remaining == 0 {
			op.State = OpAck
		}
		return nil
	case OpAck:
		acked, err := e.SampleAck()
		if err != nil {
			return fmt.Errorf("could not sample acknowledgment: %w", err)
		}
		op.Acked = acked
		op.State = OpIdle
		if acked {
			*phase = op.OnSuccess
		} else {
			*phase = op.OnFailure
		}
		return nil
	default:
		return ErrIdle
	}
}

// ReadOp receives one byte MSB first and answers with an acknowledgment, or with a
// negative acknowledgment when Nack is set for the final byte of a read.
type ReadOp[S any] struct {
	Byte      byte
	Count     uint8
	Nack      bool
	State     OpState
	OnSuccess S
}

// Load prepares the operation for a new byte.
func (op *ReadOp[S]) Load(nack bool, onSuccess S) {
	op.Byte = 0
	op.Count = 0
	op.Nack = nack
	op.OnSuccess = onSuccess
	op.State = OpShift
}

func (op *ReadOp[S]) Idle() bool {
	return op.State == OpIdle
}

// Step advances the operation by exactly one bit.
func (op *ReadOp[S]) Step(e *Engine, phase *S) error {
	switch op.State {
	case OpShift:
		bit, err := e.ReadBit()
		if err != nil {
			return fmt.Errorf("could not read bit %d: %w", 7-op.Count, err)
		}
		op.Byte <<= 1
		if bit {
			op.Byte |= 1
		}
		op.Count++
		if op.Count == 8 {
			op.State = OpAck
		}
		return nil
	case OpAck:
		var err error
		if op.Nack {
			err = e.SendNack()
		} else {
			err = e.SendAck()
		}
		if err != nil {
			return fmt.Errorf("could not send acknowledgment: %w", err)
		}
		op.State = OpIdle
		*phase = op.OnSuccess
		return nil
	default:
		return ErrIdle
	}
}
