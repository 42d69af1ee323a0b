package synth

import (
	"fmt"
	"sync"

	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/regmath"
)

// VFO limits and defaults
const (
	VFOMinHz            uint64 = 10000
	VFOMaxHz            uint64 = 225000000
	VFOIFOffsetHz       uint64 = 455000
	VFOInitialBand             = 7 // 40m
	VFOInitialStepIndex        = 2 // 1 kHz
)

// ClockGenerator is the clock chip behind the VFO
type ClockGenerator interface {
	Initialize() error
	SetFrequency(clk uint8, frequencyHz float64) (regmath.Si5351Plan, error)
	ResetPLL() error
	EnableOutput(clk uint8, on bool) error
}

// VFOConfig holds the VFO settings
type VFOConfig struct {
	Clock       uint8  // output used for the local oscillator
	IFOffsetHz  uint64 // added to the generated clock in receive mode
	InitialBand int    // 1-based
}

// DefaultVFOConfig returns CLK0, a 455 kHz IF and the 40m band
func DefaultVFOConfig() VFOConfig {
	return VFOConfig{
		IFOffsetHz:  VFOIFOffsetHz,
		InitialBand: VFOInitialBand,
	}
}

// VFO is a band-switched local oscillator on a clock generator. The stored
// frequency is the tuned signal; in receive mode the chip runs IF above it.
// There is deliberately no way to set an absolute frequency.
type VFO struct {
	cfg   VFOConfig
	clock ClockGenerator
	mu    sync.Mutex

	available bool
	frequency uint64
	band      int // 0-based
	stepIdx   int
	tx        bool
}

// NewVFO creates a VFO on the initial band, receive mode
func NewVFO(clock ClockGenerator, cfg VFOConfig) *VFO {
	if _, ok := BandByNumber(cfg.InitialBand); !ok {
		cfg.InitialBand = VFOInitialBand
	}
	band := cfg.InitialBand - 1
	return &VFO{
		cfg:       cfg,
		clock:     clock,
		frequency: VFOBands[band].FrequencyHz,
		band:      band,
		stepIdx:   VFOInitialStepIndex,
	}
}

func (v *VFO) Backend() Backend { return BackendVFO }
func (v *VFO) Name() string     { return "Si5351" }

// Setup probes the chip, enables the oscillator output and tunes the
// initial band. A missing chip leaves the backend unavailable.
func (v *VFO) Setup() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.available = false
	if err := v.clock.Initialize(); err != nil {
		return fmt.Errorf("clock generator not found: %w", err)
	}
	if err := v.apply(v.frequency, v.tx); err != nil {
		return fmt.Errorf("clock generator initial tune: %w", err)
	}
	if err := v.clock.EnableOutput(v.cfg.Clock, true); err != nil {
		return fmt.Errorf("clock generator output: %w", err)
	}
	v.available = true
	logging.Infof("vfo", "Si5351 ready on CLK%d (band %s, IF %d Hz)", v.cfg.Clock, VFOBands[v.band].Name, v.cfg.IFOffsetHz)
	return nil
}

// Available reports whether Setup succeeded
func (v *VFO) Available() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.available
}

// State returns a snapshot of the driver state
func (v *VFO) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Backend:     BackendVFO,
		Available:   v.available,
		FrequencyHz: v.frequency,
		Enabled:     v.available,
		StepHz:      VFOSteps[v.stepIdx],
		Band:        v.band + 1,
		BandName:    VFOBands[v.band].Name,
		IFOffsetHz:  v.cfg.IFOffsetHz,
		TX:          v.tx,
	}
}

// OutputHz is the clock actually generated for a tuned frequency and mode
func (v *VFO) OutputHz(frequency uint64, tx bool) uint64 {
	out := frequency
	if !tx {
		out += v.cfg.IFOffsetHz
	}
	if out > VFOMaxHz {
		out = VFOMaxHz
	}
	return out
}

// apply programs the chip. Must be called with the lock held.
func (v *VFO) apply(frequency uint64, tx bool) error {
	out := v.OutputHz(frequency, tx)
	plan, err := v.clock.SetFrequency(v.cfg.Clock, float64(out))
	if err != nil {
		return err
	}
	logging.Debugf("vfo", "CLK%d %d Hz (PLL %.0f Hz, MS %d, R %d)", v.cfg.Clock, out, plan.PLLHz, plan.Multisynth.A, plan.RDiv())
	return nil
}

// StepFrequency moves by the current step, saturating at the VFO limits
func (v *VFO) StepFrequency(dir Direction) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.available {
		return ErrUnavailable
	}

	step := VFOSteps[v.stepIdx]
	next := v.frequency
	switch dir {
	case Up:
		next += step
		if next > VFOMaxHz {
			next = VFOMaxHz
		}
	case Down:
		if next < step+VFOMinHz {
			next = VFOMinHz
		} else {
			next -= step
		}
	}

	if err := v.apply(next, v.tx); err != nil {
		return err
	}
	v.frequency = next
	return nil
}

// CycleStep advances to the next step size
func (v *VFO) CycleStep() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.available {
		return ErrUnavailable
	}
	v.stepIdx = (v.stepIdx + 1) % len(VFOSteps)
	return nil
}

// CycleBand advances to the next band, tunes its frequency and resets the PLL
func (v *VFO) CycleBand() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.available {
		return ErrUnavailable
	}

	band := (v.band + 1) % len(VFOBands)
	next := VFOBands[band].FrequencyHz
	if err := v.apply(next, v.tx); err != nil {
		return err
	}
	v.band = band
	v.frequency = next

	if err := v.clock.ResetPLL(); err != nil {
		return fmt.Errorf("pll reset: %w", err)
	}
	return nil
}

// SetMode selects transmit (no IF offset) or receive
func (v *VFO) SetMode(tx bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.available {
		return ErrUnavailable
	}
	if err := v.apply(v.frequency, tx); err != nil {
		return err
	}
	v.tx = tx
	return nil
}
