package sim

import "fmt"

type EventKind uint8

const (
	EventStart EventKind = iota
	EventStop
	EventByte
)

// Event is one decoded bus occurrence.
type Event struct {
	Kind  EventKind
	Byte  byte
	Acked bool
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		return "START"
	case EventStop:
		return "STOP"
	default:
		ack := "NACK"
		if e.Acked {
			ack = "ACK"
		}
		return fmt.Sprintf("%#02x %s", e.Byte, ack)
	}
}

// Sniffer passively decodes everything that crosses the bus, regardless of direction or
// address.
type Sniffer struct {
	events      []Event
	active      bool
	awaitingAck bool
	bits        int
	shift       byte
}

func NewSniffer(w *Wire) *Sniffer {
	s := &Sniffer{}
	w.Attach(s)
	return s
}

func (s *Sniffer) Edge(prev, cur Levels) {
	if prev.SCL && cur.SCL {
		switch {
		case prev.SDA && !cur.SDA:
			s.events = append(s.events, Event{Kind: EventStart})
			s.active = true
			s.awaitingAck = false
			s.bits = 0
			s.shift = 0
		case !prev.SDA && cur.SDA:
			s.events = append(s.events, Event{Kind: EventStop})
			s.active = false
		}
		return
	}
	if prev.SCL || !cur.SCL || !s.active {
		return
	}
	// rising clock edge: data is valid
	if s.awaitingAck {
		s.events = append(s.events, Event{Kind: EventByte, Byte: s.shift, Acked: !cur.SDA})
		s.awaitingAck = false
		s.bits = 0
		s.shift = 0
		return
	}
	s.shift <<= 1
	if cur.SDA {
		s.shift |= 1
	}
	s.bits++
	if s.bits == 8 {
		s.awaitingAck = true
	}
}

func (s *Sniffer) Events() []Event {
	return s.events
}

// Bytes returns the values of all completed bytes.
func (s *Sniffer) Bytes() []byte {
	var res []byte
	for _, e := range s.events {
		if e.Kind == EventByte {
			res = append(res, e.Byte)
		}
	}
	return res
}

func (s *Sniffer) Reset() {
	s.events = nil
	s.active = false
	s.awaitingAck = false
	s.bits = 0
	s.shift = 0
}
