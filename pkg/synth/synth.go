// Package synth holds the per-backend oscillator drivers. Each driver owns
// its state, validates every request before touching it and pushes the
// resulting register values to its bus collaborator.
package synth

import (
	"fmt"
	"strings"
)

// Backend identifies one of the frequency generation backends. The numeric
// values are the ids used by the active selector.
type Backend int

const (
	BackendVFO Backend = iota
	BackendDDS
	BackendPLL
)

// Backends lists every backend in selector order
var Backends = []Backend{BackendVFO, BackendDDS, BackendPLL}

// String returns the short backend name used in responses
func (b Backend) String() string {
	switch b {
	case BackendVFO:
		return "vfo"
	case BackendDDS:
		return "ad9850"
	case BackendPLL:
		return "adf4351"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Valid reports whether b is a known backend
func (b Backend) Valid() bool {
	return b >= BackendVFO && b <= BackendPLL
}

// Action returns the command action name addressed to this backend
func (b Backend) Action() string {
	return b.String() + "_command"
}

// ResponseAction returns the action name carried by this backend's responses
func (b Backend) ResponseAction() string {
	return "respuesta_" + b.String()
}

// BackendForAction resolves a command action name such as "adf4351_command"
func BackendForAction(action string) (Backend, bool) {
	for _, b := range Backends {
		if strings.EqualFold(action, b.Action()) {
			return b, true
		}
	}
	return 0, false
}

// Direction of a frequency step
type Direction int

const (
	Up Direction = iota
	Down
)

// ParseDirection accepts "up" and "down"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("invalid direction %q", s)
}

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// State is a snapshot of a driver's oscillator state
type State struct {
	Backend     Backend
	Available   bool
	FrequencyHz uint64
	Enabled     bool
	StepHz      uint64

	// PLL
	PowerIndex uint8

	// VFO
	Band       int // 1-based index into the band table
	BandName   string
	IFOffsetHz uint64
	TX         bool
}

// Driver is implemented by every backend
type Driver interface {
	Backend() Backend
	Name() string
	// Setup initializes the chip; a failure leaves the backend unavailable
	Setup() error
	Available() bool
	State() State
}

// FrequencySetter sets an absolute frequency
type FrequencySetter interface {
	SetFrequency(hz uint64) error
}

// FrequencyStepper moves the frequency by the current step
type FrequencyStepper interface {
	StepFrequency(dir Direction) error
}

// StepSetter sets the step size directly
type StepSetter interface {
	SetStep(hz uint64) error
}

// StepCycler advances through a fixed step table
type StepCycler interface {
	CycleStep() error
}

// Switchable turns the output on and off
type Switchable interface {
	Enable() error
	Disable() error
}

// Toggler flips the output state
type Toggler interface {
	Toggle() error
}

// PowerSetter selects the output power level
type PowerSetter interface {
	SetPower(level uint8) error
}

// BandCycler advances through a band table
type BandCycler interface {
	CycleBand() error
}

// ModeSetter switches between receive and transmit
type ModeSetter interface {
	SetMode(tx bool) error
}
