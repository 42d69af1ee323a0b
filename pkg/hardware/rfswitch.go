package hardware

import (
	"fmt"
	"log"
	"sync"
)

// RFSwitchPositions is the number of routes a 3-line switch can select
const RFSwitchPositions = 8

// RFSwitch selects one of eight RF paths with three binary-coded GPIO lines
type RFSwitch struct {
	name  string
	gpio  GPIOInterface
	pins  [3]int
	value int
	mu    sync.Mutex
}

// NewRFSwitch creates a switch; pins[0] carries bit 0
func NewRFSwitch(name string, gpio GPIOInterface, pins [3]int) *RFSwitch {
	return &RFSwitch{name: name, gpio: gpio, pins: pins}
}

// Set drives the lines for position value
func (s *RFSwitch) Set(value int) error {
	if value < 0 || value >= RFSwitchPositions {
		return fmt.Errorf("%s switch position %d out of range 0-%d", s.name, value, RFSwitchPositions-1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for bit, pin := range s.pins {
		if err := s.gpio.SetPin(pin, value&(1<<uint(bit)) != 0); err != nil {
			return fmt.Errorf("%s switch line %d: %w", s.name, bit+1, err)
		}
	}
	s.value = value
	log.Printf("RFSwitch: %s -> %d", s.name, value)
	return nil
}

// Value returns the last position set
func (s *RFSwitch) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
