package hardware

import (
	"fmt"
	"log"
	"sync"

	"github.com/dougsko/synthd/pkg/regmath"
)

// Si5351 drives a Si5351 clock generator over I2C. All outputs are fed
// from PLL A with integer output multisynths.
type Si5351 struct {
	bus        I2CBus
	addr       uint8
	xtalHz     float64
	corrPPB    int64
	enableMask byte
	ready      bool
	mu         sync.Mutex
}

// NewSi5351 creates a clock generator handle. Zero addr and xtalHz select the defaults.
func NewSi5351(bus I2CBus, addr uint8, xtalHz float64, corrPPB int64) *Si5351 {
	if addr == 0 {
		addr = regmath.Si5351DefaultAddress
	}
	if xtalHz == 0 {
		xtalHz = regmath.Si5351DefaultXtalHz
	}
	return &Si5351{
		bus:     bus,
		addr:    addr,
		xtalHz:  xtalHz,
		corrPPB: corrPPB,
	}
}

// Initialize probes the chip and puts it in a known state: every output
// disabled and powered down, 10 pF crystal load.
func (s *Si5351) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.bus.ReadRegister(s.addr, regmath.Si5351RegDeviceStatus)
	if err != nil {
		return fmt.Errorf("si5351 at 0x%02x: %w", s.addr, err)
	}
	if status&regmath.Si5351StatusSysInit != 0 {
		return fmt.Errorf("si5351 at 0x%02x still initializing", s.addr)
	}

	if err := s.write(regmath.Si5351RegOutputEnable, 0xFF); err != nil {
		return err
	}
	powerDown := make([]byte, 8)
	for i := range powerDown {
		powerDown[i] = regmath.Si5351ClkPowerDown
	}
	if err := s.write(regmath.Si5351RegClk0Control, powerDown...); err != nil {
		return err
	}
	if err := s.write(regmath.Si5351RegCrystalLoad, regmath.Si5351CrystalLoad10); err != nil {
		return err
	}

	s.enableMask = 0
	s.ready = true
	log.Printf("Si5351: Initialized at 0x%02x (xtal %.0f Hz, correction %d ppb)", s.addr, s.xtalHz, s.corrPPB)
	return nil
}

func (s *Si5351) write(reg uint8, data ...byte) error {
	if err := s.bus.WriteRegister(s.addr, reg, data); err != nil {
		return fmt.Errorf("si5351 write reg %d: %w", reg, err)
	}
	return nil
}

// CorrectedXtalHz is the crystal frequency adjusted by the calibration
func (s *Si5351) CorrectedXtalHz() float64 {
	return s.xtalHz * (1 + float64(s.corrPPB)/1e9)
}

// SetFrequency programs PLL A and output clk for frequencyHz. Outputs share
// PLL A, so the last call wins for every clock derived from it.
func (s *Si5351) SetFrequency(clk uint8, frequencyHz float64) (regmath.Si5351Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return regmath.Si5351Plan{}, fmt.Errorf("si5351 not initialized")
	}
	if clk > 7 {
		return regmath.Si5351Plan{}, fmt.Errorf("si5351 has no output %d", clk)
	}

	plan, err := regmath.PlanSi5351(s.CorrectedXtalHz(), frequencyHz)
	if err != nil {
		return regmath.Si5351Plan{}, err
	}

	pll := plan.FeedbackBlock()
	if err := s.write(regmath.Si5351RegPLLAParams, pll[:]...); err != nil {
		return plan, err
	}
	ms := plan.MultisynthBlock()
	if err := s.write(regmath.Si5351MultisynthRegister(clk), ms[:]...); err != nil {
		return plan, err
	}
	if err := s.write(regmath.Si5351RegClk0Control+clk, regmath.Si5351ClkControlDefault); err != nil {
		return plan, err
	}
	return plan, nil
}

// ResetPLL resets PLL A so that a new feedback ratio takes effect cleanly
func (s *Si5351) ResetPLL() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(regmath.Si5351RegPLLReset, regmath.Si5351PLLResetA)
}

// EnableOutput switches output clk on or off
func (s *Si5351) EnableOutput(clk uint8, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clk > 7 {
		return fmt.Errorf("si5351 has no output %d", clk)
	}
	mask := s.enableMask
	if on {
		mask |= 1 << clk
	} else {
		mask &^= 1 << clk
	}
	// output enable register is active low
	if err := s.write(regmath.Si5351RegOutputEnable, ^mask); err != nil {
		return err
	}
	s.enableMask = mask
	return nil
}

// Ready reports whether Initialize succeeded
func (s *Si5351) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
