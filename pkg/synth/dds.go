package synth

import (
	"fmt"
	"sync"

	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/regmath"
)

// DDS defaults
const (
	DDSRefClockHz         = 125000000.0
	DDSMaxHz       uint64 = 40000000
	DDSInitialHz   uint64 = 1000000
	DDSInitialStep        = 1000
)

// DDSConfig holds the AD9850 device constants
type DDSConfig struct {
	RefClockHz float64
	Divisor    float64
	MaxHz      uint64
}

// DefaultDDSConfig returns the constants of a 125 MHz AD9850 module
func DefaultDDSConfig() DDSConfig {
	return DDSConfig{
		RefClockHz: DDSRefClockHz,
		Divisor:    regmath.DDSDivisor,
		MaxHz:      DDSMaxHz,
	}
}

// DDS drives an AD9850 direct digital synthesizer. Disabling transmits a
// zero tuning word; the stored frequency is kept for the next enable.
type DDS struct {
	cfg DDSConfig
	bus hardware.DDSBus
	mu  sync.Mutex

	available bool
	frequency uint64
	step      uint64
	enabled   bool
}

// NewDDS creates a DDS driver in its power-on state: 1 MHz, 1 kHz step, output off
func NewDDS(bus hardware.DDSBus, cfg DDSConfig) *DDS {
	if cfg.RefClockHz <= 0 {
		cfg.RefClockHz = DDSRefClockHz
	}
	if cfg.Divisor <= 0 {
		cfg.Divisor = regmath.DDSDivisor
	}
	if cfg.MaxHz == 0 {
		cfg.MaxHz = DDSMaxHz
	}
	return &DDS{
		cfg:       cfg,
		bus:       bus,
		frequency: DDSInitialHz,
		step:      DDSInitialStep,
	}
}

func (d *DDS) Backend() Backend { return BackendDDS }
func (d *DDS) Name() string     { return "AD9850" }

// Setup switches the chip to serial mode and mutes the output
func (d *DDS) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.available = false
	if err := d.bus.Reset(); err != nil {
		return fmt.Errorf("ad9850 reset: %w", err)
	}
	if err := d.transmit(0); err != nil {
		return fmt.Errorf("ad9850 initial load: %w", err)
	}
	d.enabled = false
	d.available = true
	logging.Infof("dds", "AD9850 ready (ref %.0f Hz, max %d Hz)", d.cfg.RefClockHz, d.cfg.MaxHz)
	return nil
}

// Available reports whether Setup succeeded
func (d *DDS) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// State returns a snapshot of the driver state
func (d *DDS) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Backend:     BackendDDS,
		Available:   d.available,
		FrequencyHz: d.frequency,
		Enabled:     d.enabled,
		StepHz:      d.step,
	}
}

// transmit loads the tuning word for hz. Must be called with the lock held.
func (d *DDS) transmit(hz uint64) error {
	word := regmath.TuningWord(hz, d.cfg.RefClockHz, d.cfg.Divisor)
	frame := regmath.DDSFrame(word)
	logging.Debugf("dds", "tuning word 0x%08X for %d Hz", word, hz)
	return d.bus.WriteFrame(frame[:])
}

// SetFrequency stores hz and loads it when the output is on
func (d *DDS) SetFrequency(hz uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return ErrUnavailable
	}
	if hz > d.cfg.MaxHz {
		return fmt.Errorf("%w: %d Hz above %d Hz", ErrOutOfRange, hz, d.cfg.MaxHz)
	}
	if d.enabled {
		if err := d.transmit(hz); err != nil {
			return err
		}
	}
	d.frequency = hz
	return nil
}

// StepFrequency moves by one step, saturating at 0 and the maximum
func (d *DDS) StepFrequency(dir Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return ErrUnavailable
	}

	next := d.frequency
	switch dir {
	case Up:
		if d.step > d.cfg.MaxHz-next {
			next = d.cfg.MaxHz
		} else {
			next += d.step
		}
	case Down:
		if d.step > next {
			next = 0
		} else {
			next -= d.step
		}
	}

	if d.enabled {
		if err := d.transmit(next); err != nil {
			return err
		}
	}
	d.frequency = next
	return nil
}

// SetStep sets the step size; any value is accepted
func (d *DDS) SetStep(hz uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return ErrUnavailable
	}
	d.step = hz
	return nil
}

// Enable turns the output on at the stored frequency
func (d *DDS) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return ErrUnavailable
	}
	if err := d.transmit(d.frequency); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

// Disable mutes the output by loading a zero tuning word
func (d *DDS) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return ErrUnavailable
	}
	if err := d.transmit(0); err != nil {
		return err
	}
	d.enabled = false
	return nil
}
