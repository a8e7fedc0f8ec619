package softi2c

import (
	"context"
	"fmt"

	"github.com/mklimuk/bitbang"
)

var _ bitbang.I2CBus = &Bus{}

// Bus runs whole transactions on an engine so that drivers written against
// bitbang.I2CBus can use bit-banged lines. Each call is one framed transaction.
type Bus struct {
	engine *Engine
}

func NewBus(e *Engine) *Bus {
	return &Bus{engine: e}
}

func (b *Bus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.engine.Lock()
	defer b.engine.Unlock()
	err := b.open(address << 1)
	if err != nil {
		return b.abort(fmt.Errorf("write to %x failed: %w", address, err))
	}
	for i, v := range buffer {
		if err = b.write(v); err != nil {
			return b.abort(fmt.Errorf("write to %x failed at byte %d: %w", address, i, err))
		}
	}
	return b.engine.Stop()
}

func (b *Bus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.engine.Lock()
	defer b.engine.Unlock()
	err := b.open(address<<1 | 1)
	if err != nil {
		return b.abort(fmt.Errorf("read from %x failed: %w", address, err))
	}
	for i := range buffer {
		var op ReadOp[bool]
		done := false
		op.Load(i == len(buffer)-1, true)
		for !op.Idle() {
			if err = op.Step(b.engine, &done); err != nil {
				return b.abort(fmt.Errorf("read from %x failed at byte %d: %w", address, i, err))
			}
		}
		buffer[i] = op.Byte
	}
	return b.engine.Stop()
}

// Release puts a STOP on the bus, freeing targets stuck in a transaction.
func (b *Bus) Release(ctx context.Context) error {
	b.engine.Lock()
	defer b.engine.Unlock()
	return b.engine.Stop()
}

func (b *Bus) open(address byte) error {
	if err := b.engine.Begin(); err != nil {
		return err
	}
	if err := b.engine.Start(); err != nil {
		return err
	}
	return b.write(address)
}

func (b *Bus) write(v byte) error {
	var op WriteOp[bool]
	acked := false
	op.Load(v, true, false)
	for !op.Idle() {
		if err := op.Step(b.engine, &acked); err != nil {
			return err
		}
	}
	if !acked {
		return fmt.Errorf("byte %#02x: %w", v, bitbang.ErrNack)
	}
	return nil
}

func (b *Bus) abort(err error) error {
	_ = b.engine.Stop()
	return err
}
