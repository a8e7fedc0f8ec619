package bmp180

import "fmt"

// Phase is the domain value the sequencer is producing.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseReadID
	PhaseCalibration
	PhaseMeasureTemperature
	PhaseReadTemperature
	PhaseMeasurePressure
	PhaseReadPressure
	PhaseResult
	PhaseStop
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "NONE"
	case PhaseReadID:
		return "READ_ID"
	case PhaseCalibration:
		return "CALIBRATION"
	case PhaseMeasureTemperature:
		return "MEASURE_UT"
	case PhaseReadTemperature:
		return "READ_UT"
	case PhaseMeasurePressure:
		return "MEASURE_UP"
	case PhaseReadPressure:
		return "READ_UP"
	case PhaseResult:
		return "RESULT"
	case PhaseStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// State is the outer sequencer state. Coefficient is only meaningful in PhaseCalibration.
type State struct {
	Phase       Phase
	Coefficient int
}

func (s State) String() string {
	if s.Phase == PhaseCalibration {
		return fmt.Sprintf("%s_%s", s.Phase, CoefficientName(s.Coefficient))
	}
	return s.Phase.String()
}

// BusEvent is what the bus layer reports back when a transaction ends.
type BusEvent uint8

const (
	EventDone BusEvent = iota
	EventFailed
)

// Transition returns the successor of s. A failed transaction keeps the state so the same
// transaction is issued again.
func Transition(s State, ev BusEvent) State {
	if ev == EventFailed {
		return s
	}
	switch s.Phase {
	case PhaseNone:
		return State{Phase: PhaseReadID}
	case PhaseReadID:
		return State{Phase: PhaseCalibration}
	case PhaseCalibration:
		if s.Coefficient+1 < CalibrationSize {
			return State{Phase: PhaseCalibration, Coefficient: s.Coefficient + 1}
		}
		return State{Phase: PhaseMeasureTemperature}
	case PhaseMeasureTemperature:
		return State{Phase: PhaseReadTemperature}
	case PhaseReadTemperature:
		return State{Phase: PhaseMeasurePressure}
	case PhaseMeasurePressure:
		return State{Phase: PhaseReadPressure}
	case PhaseReadPressure:
		return State{Phase: PhaseResult}
	default:
		return State{Phase: PhaseStop}
	}
}

// BusPhase is the position inside one generic two-wire transaction.
type BusPhase uint8

const (
	BusIdle BusPhase = iota
	BusStart
	BusAddressWrite
	BusRegister
	BusCommand
	BusRestart
	BusAddressRead
	BusDataRead
	BusDone
	BusAbort
	BusStop
)

func (p BusPhase) String() string {
	switch p {
	case BusIdle:
		return "IDLE"
	case BusStart:
		return "START"
	case BusAddressWrite:
		return "ADDRESS_WRITE"
	case BusRegister:
		return "REGISTER"
	case BusCommand:
		return "COMMAND"
	case BusRestart:
		return "RESTART"
	case BusAddressRead:
		return "ADDRESS_READ"
	case BusDataRead:
		return "DATA_READ"
	case BusDone:
		return "DONE"
	case BusAbort:
		return "ABORT"
	case BusStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// transaction describes the bus traffic of one outer state.
type transaction struct {
	// register is the first byte after the write address
	register   byte
	command    byte
	hasCommand bool
	// read is the number of bytes read after the repeated start
	read   int
	settle bool
}

// plan maps an outer state to its transaction. result is only used in PhaseResult.
func plan(s State, result byte) transaction {
	switch s.Phase {
	case PhaseReadID:
		return transaction{register: regChipID, read: 1}
	case PhaseCalibration:
		return transaction{register: calibrationTable[s.Coefficient].reg, read: 2}
	case PhaseMeasureTemperature:
		return transaction{register: regControl, command: cmdTemperature, hasCommand: true}
	case PhaseMeasurePressure:
		return transaction{register: regControl, command: cmdPressure, hasCommand: true}
	case PhaseReadTemperature, PhaseReadPressure:
		return transaction{register: regDataMSB, read: 2, settle: true}
	default:
		return transaction{register: result}
	}
}
