// Package sim simulates an open-drain two-wire bus with attached targets.
//
// A Wire is a pair of wired-AND nets. Every participant gets its own Pin per net and a net
// reads high only while no pin pulls it low. Listeners observe every level change, which
// is how targets and the sniffer follow the bus. The simulation is single-threaded.
package sim

import (
	"github.com/mklimuk/bitbang"
)

type Net int

const (
	SCL Net = iota
	SDA
)

// Levels is a snapshot of both nets; true means high.
type Levels struct {
	SCL bool
	SDA bool
}

// Listener is notified after each change of the bus levels, in order of occurrence.
type Listener interface {
	Edge(prev, cur Levels)
}

type edge struct {
	prev, cur Levels
}

type Wire struct {
	pins      []*Pin
	levels    Levels
	listeners []Listener
	queue     []edge
	notifying bool
}

func NewWire() *Wire {
	return &Wire{levels: Levels{SCL: true, SDA: true}}
}

// Pin adds a new open-drain driver on the given net.
func (w *Wire) Pin(n Net) *Pin {
	p := &Pin{wire: w, net: n}
	w.pins = append(w.pins, p)
	return p
}

// Master returns the controller's clock and data lines.
func (w *Wire) Master() (scl, sda *Pin) {
	return w.Pin(SCL), w.Pin(SDA)
}

func (w *Wire) Attach(l Listener) {
	w.listeners = append(w.listeners, l)
}

func (w *Wire) Levels() Levels {
	return w.levels
}

func (w *Wire) update() {
	cur := Levels{SCL: true, SDA: true}
	for _, p := range w.pins {
		if !p.low {
			continue
		}
		switch p.net {
		case SCL:
			cur.SCL = false
		case SDA:
			cur.SDA = false
		}
	}
	if cur == w.levels {
		return
	}
	w.queue = append(w.queue, edge{prev: w.levels, cur: cur})
	w.levels = cur
	// reactions of listeners are queued and delivered after the current edge
	if w.notifying {
		return
	}
	w.notifying = true
	for len(w.queue) > 0 {
		e := w.queue[0]
		w.queue = w.queue[1:]
		for _, l := range w.listeners {
			l.Edge(e.prev, e.cur)
		}
	}
	w.notifying = false
}

var _ bitbang.Line = &Pin{}

// Pin is one participant's driver on a net.
type Pin struct {
	wire *Wire
	net  Net
	low  bool
}

func (p *Pin) Assert() error {
	p.set(true)
	return nil
}

func (p *Pin) Release() error {
	p.set(false)
	return nil
}

func (p *Pin) Sense() (bool, error) {
	if p.net == SCL {
		return p.wire.levels.SCL, nil
	}
	return p.wire.levels.SDA, nil
}

func (p *Pin) set(low bool) {
	if p.low == low {
		return
	}
	p.low = low
	p.wire.update()
}
