package bmp180

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	s := State{}
	var walk []string
	for i := 0; i < 30 && s.Phase != PhaseStop; i++ {
		s = Transition(s, EventDone)
		walk = append(walk, s.String())
	}
	assert.Equal(t, []string{
		"READ_ID",
		"CALIBRATION_AC1", "CALIBRATION_AC2", "CALIBRATION_AC3", "CALIBRATION_AC4",
		"CALIBRATION_AC5", "CALIBRATION_AC6", "CALIBRATION_B1", "CALIBRATION_B2",
		"CALIBRATION_MB", "CALIBRATION_MC", "CALIBRATION_MD",
		"MEASURE_UT", "READ_UT", "MEASURE_UP", "READ_UP", "RESULT", "STOP",
	}, walk)
	assert.Equal(t, State{Phase: PhaseStop}, Transition(s, EventDone))
}

func TestTransition_FailedKeepsState(t *testing.T) {
	for _, s := range []State{
		{Phase: PhaseReadID},
		{Phase: PhaseCalibration, Coefficient: 4},
		{Phase: PhaseReadPressure},
	} {
		assert.Equal(t, s, Transition(s, EventFailed), s.String())
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		state    State
		expected transaction
	}{
		{State{Phase: PhaseReadID}, transaction{register: 0xD0, read: 1}},
		{State{Phase: PhaseCalibration}, transaction{register: 0xAA, read: 2}},
		{State{Phase: PhaseCalibration, Coefficient: 10}, transaction{register: 0xBE, read: 2}},
		{State{Phase: PhaseMeasureTemperature}, transaction{register: 0xF4, command: 0x2E, hasCommand: true}},
		{State{Phase: PhaseReadTemperature}, transaction{register: 0xF6, read: 2, settle: true}},
		{State{Phase: PhaseMeasurePressure}, transaction{register: 0xF4, command: 0x34, hasCommand: true}},
		{State{Phase: PhaseReadPressure}, transaction{register: 0xF6, read: 2, settle: true}},
		{State{Phase: PhaseResult}, transaction{register: 0x96}},
	}
	for _, test := range tests {
		t.Run(test.state.String(), func(t *testing.T) {
			assert.Equal(t, test.expected, plan(test.state, 0x96))
		})
	}
}

func TestBusPhase_String(t *testing.T) {
	assert.Equal(t, "ADDRESS_READ", BusAddressRead.String())
	assert.Equal(t, "UNKNOWN", BusPhase(42).String())
	assert.Equal(t, "UNKNOWN", Phase(42).String())
}
