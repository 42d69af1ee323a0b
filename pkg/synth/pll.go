package synth

import (
	"fmt"
	"sync"
	"time"

	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/regmath"
	"github.com/dougsko/synthd/pkg/verbose"
)

// PLL defaults
const (
	PLLRefClockHz   uint64 = 8000000
	PLLInitialHz    uint64 = 1000000000
	PLLInitialPower uint8  = 3
	PLLInitialStep  uint64 = 1000
	PLLMaxPower     uint8  = 3
)

// PLLSteps are the accepted step sizes
var PLLSteps = []uint64{10, 100, 1000, 10000, 100000, 1000000, 10000000}

// PLLPowerLabels maps the output power index to dBm
var PLLPowerLabels = [4]string{"-4dBm", "-1dBm", "+2dBm", "+5dBm"}

// PLLConfig holds the ADF4351 device constants
type PLLConfig struct {
	RefClockHz  uint64
	MinHz       uint64
	MaxHz       uint64
	Constants   regmath.PLLConstants
	Settle      time.Duration // between register words
	FinalSettle time.Duration // after the last word
}

// DefaultPLLConfig returns the constants of the current board revision
func DefaultPLLConfig() PLLConfig {
	return PLLConfig{
		RefClockHz:  PLLRefClockHz,
		MinHz:       regmath.ADF4351MinHz,
		MaxHz:       regmath.ADF4351MaxHz,
		Constants:   regmath.DefaultPLLConstants(),
		Settle:      10 * time.Microsecond,
		FinalSettle: 100 * time.Microsecond,
	}
}

type pllState struct {
	frequency uint64
	rfOn      bool
	power     uint8
}

// PLL drives an ADF4351 fractional-N synthesizer. Every accepted change to
// frequency, power or RF enable rewrites all six registers.
type PLL struct {
	cfg PLLConfig
	bus hardware.SPIBus
	mu  sync.Mutex

	available bool
	cur       pllState
	step      uint64
}

// NewPLL creates a PLL driver in its power-on state: 1 GHz, +5 dBm, RF off
func NewPLL(bus hardware.SPIBus, cfg PLLConfig) *PLL {
	if cfg.RefClockHz == 0 {
		cfg.RefClockHz = PLLRefClockHz
	}
	if cfg.MinHz == 0 {
		cfg.MinHz = regmath.ADF4351MinHz
	}
	if cfg.MaxHz == 0 {
		cfg.MaxHz = regmath.ADF4351MaxHz
	}
	return &PLL{
		cfg:  cfg,
		bus:  bus,
		cur:  pllState{frequency: PLLInitialHz, power: PLLInitialPower},
		step: PLLInitialStep,
	}
}

func (p *PLL) Backend() Backend { return BackendPLL }
func (p *PLL) Name() string     { return "ADF4351" }

// Setup loads the initial register set
func (p *PLL) Setup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.available = false
	if err := p.apply(p.cur); err != nil {
		return fmt.Errorf("adf4351 initial load: %w", err)
	}
	p.available = true
	logging.Infof("pll", "ADF4351 ready (ref %d Hz, %d-%d Hz)", p.cfg.RefClockHz, p.cfg.MinHz, p.cfg.MaxHz)
	return nil
}

// Available reports whether Setup succeeded
func (p *PLL) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// State returns a snapshot of the driver state. It never touches the bus.
func (p *PLL) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Backend:     BackendPLL,
		Available:   p.available,
		FrequencyHz: p.cur.frequency,
		Enabled:     p.cur.rfOn,
		StepHz:      p.step,
		PowerIndex:  p.cur.power,
	}
}

// apply computes and transmits the register set for next, R5 first.
// The state is committed only when every word went out.
func (p *PLL) apply(next pllState) error {
	regs, err := regmath.ComputePLLRegisters(regmath.PLLSettings{
		FrequencyHz: next.frequency,
		RefClockHz:  p.cfg.RefClockHz,
		RFEnabled:   next.rfOn,
		OutputPower: next.power,
		Constants:   p.cfg.Constants,
	})
	if err != nil {
		return err
	}

	words := regs.WriteOrder()
	verbose.Words("adf4351", words)
	for i, w := range words {
		if err := p.bus.Write(regmath.WordBytes(w)); err != nil {
			return fmt.Errorf("adf4351 write R%d: %w", w&0x7, err)
		}
		if i < len(words)-1 {
			sleep(p.cfg.Settle)
		}
	}
	sleep(p.cfg.FinalSettle)

	p.cur = next
	return nil
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (p *PLL) inRange(hz uint64) bool {
	return hz >= p.cfg.MinHz && hz <= p.cfg.MaxHz
}

// SetFrequency retunes to hz
func (p *PLL) SetFrequency(hz uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return ErrUnavailable
	}
	if !p.inRange(hz) {
		return fmt.Errorf("%w: %d Hz outside %d-%d Hz", ErrOutOfRange, hz, p.cfg.MinHz, p.cfg.MaxHz)
	}
	next := p.cur
	next.frequency = hz
	return p.apply(next)
}

// StepFrequency moves by one step. A step that would leave the range is
// rejected rather than clamped.
func (p *PLL) StepFrequency(dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return ErrUnavailable
	}

	next := p.cur
	switch dir {
	case Up:
		if p.cur.frequency > p.cfg.MaxHz-p.step {
			return fmt.Errorf("%w: step up from %d Hz", ErrOutOfRange, p.cur.frequency)
		}
		next.frequency += p.step
	case Down:
		if p.cur.frequency < p.cfg.MinHz+p.step {
			return fmt.Errorf("%w: step down from %d Hz", ErrOutOfRange, p.cur.frequency)
		}
		next.frequency -= p.step
	}
	return p.apply(next)
}

// SetPower selects output power 0 (-4 dBm) to 3 (+5 dBm)
func (p *PLL) SetPower(level uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return ErrUnavailable
	}
	if level > PLLMaxPower {
		return fmt.Errorf("%w: power %d", ErrOutOfRange, level)
	}
	next := p.cur
	next.power = level
	return p.apply(next)
}

// SetStep accepts only the sizes in PLLSteps. No registers are written.
func (p *PLL) SetStep(hz uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return ErrUnavailable
	}
	for _, s := range PLLSteps {
		if s == hz {
			p.step = hz
			return nil
		}
	}
	return fmt.Errorf("%w: step %d Hz", ErrOutOfRange, hz)
}

// setRF sets the RF enable bit; flip ignores on and inverts the current value
func (p *PLL) setRF(on, flip bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return ErrUnavailable
	}
	next := p.cur
	if flip {
		on = !p.cur.rfOn
	}
	next.rfOn = on
	return p.apply(next)
}

// Enable turns the RF output on
func (p *PLL) Enable() error { return p.setRF(true, false) }

// Disable turns the RF output off
func (p *PLL) Disable() error { return p.setRF(false, false) }

// Toggle flips the RF output
func (p *PLL) Toggle() error { return p.setRF(false, true) }
