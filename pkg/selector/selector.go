package selector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/synth"
)

// ErrInvalidRoute is returned for an unknown backend or switch position
var ErrInvalidRoute = errors.New("invalid route")

// Switch is an RF path selector such as hardware.RFSwitch
type Switch interface {
	Set(position int) error
	Value() int
}

// Selector tracks the active backend and the two RF routing switches.
// Changing it never touches driver state.
type Selector struct {
	mu         sync.RWMutex
	active     synth.Backend
	oscillator Switch
	generator  Switch
}

// New creates a selector with the given active backend. Either switch may be nil.
func New(active synth.Backend, oscillator, generator Switch) (*Selector, error) {
	if !active.Valid() {
		return nil, fmt.Errorf("%w: backend %d", ErrInvalidRoute, active)
	}
	return &Selector{active: active, oscillator: oscillator, generator: generator}, nil
}

// Reset routes both switches to position 0
func (s *Selector) Reset() error {
	if err := s.SelectGenerator(0); err != nil && !errors.Is(err, ErrInvalidRoute) {
		return err
	}
	if err := s.SelectOscillator(0); err != nil && !errors.Is(err, ErrInvalidRoute) {
		return err
	}
	return nil
}

// Active returns the active backend
func (s *Selector) Active() synth.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive changes the active backend
func (s *Selector) SetActive(id int) error {
	b := synth.Backend(id)
	if !b.Valid() {
		return fmt.Errorf("%w: backend %d", ErrInvalidRoute, id)
	}
	s.mu.Lock()
	s.active = b
	s.mu.Unlock()
	logging.Infof("selector", "Active backend: %s", b)
	return nil
}

// SelectOscillator routes the oscillator switch to position id
func (s *Selector) SelectOscillator(id int) error {
	return s.route("oscillator", s.oscillator, id)
}

// SelectGenerator routes the generator switch to position id
func (s *Selector) SelectGenerator(id int) error {
	return s.route("generator", s.generator, id)
}

func (s *Selector) route(name string, sw Switch, id int) error {
	if id < 0 || id >= hardware.RFSwitchPositions {
		return fmt.Errorf("%w: %s position %d", ErrInvalidRoute, name, id)
	}
	if sw == nil {
		return fmt.Errorf("%w: no %s switch", ErrInvalidRoute, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := sw.Set(id); err != nil {
		return err
	}
	logging.Debugf("selector", "%s route %d", name, id)
	return nil
}

// Routes returns the current oscillator and generator positions, -1 when absent
func (s *Selector) Routes() (oscillator, generator int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	oscillator, generator = -1, -1
	if s.oscillator != nil {
		oscillator = s.oscillator.Value()
	}
	if s.generator != nil {
		generator = s.generator.Value()
	}
	return oscillator, generator
}
