package bitbang

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrNack signals that the target did not pull the data line low during an acknowledgment bit.
var ErrNack = errors.New("NACK received")

// Line is a single open-drain digital line. A line is never driven high: Release lets the
// pull-up float it high and Assert drives it low.
type Line interface {
	Assert() error
	Release() error
	// Sense samples the current level of the line; true means high.
	Sense() (bool, error)
}

// Clock provides the blocking waits used for bit spacing and conversion settle times.
type Clock interface {
	Delay(d time.Duration)
}

// BusyClock spins for short delays and sleeps for anything of a millisecond or more.
type BusyClock struct{}

func (BusyClock) Delay(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	for start := time.Now(); time.Since(start) < d; {
	}
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a hardware (or bridge) bus controller addressing 7-bit targets.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
