package hardware

import (
	"fmt"
	"sync"

	"github.com/dougsko/synthd/pkg/verbose"
)

// BitBangSPI writes MSB-first SPI transactions over three GPIO lines. LE is
// held low during the transfer and pulsed high afterwards to latch.
type BitBangSPI struct {
	gpio GPIOInterface
	pins SPIPins
	mu   sync.Mutex
}

// NewBitBangSPI creates a GPIO SPI bus
func NewBitBangSPI(gpio GPIOInterface, pins SPIPins) *BitBangSPI {
	return &BitBangSPI{gpio: gpio, pins: pins}
}

// Write shifts data out and latches it
func (s *BitBangSPI) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	verbose.Bus("spi", data)
	if err := s.gpio.SetPin(s.pins.LE, false); err != nil {
		return fmt.Errorf("spi: LE low: %w", err)
	}
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			if err := s.gpio.SetPin(s.pins.Data, b&(1<<uint(i)) != 0); err != nil {
				return fmt.Errorf("spi: data line: %w", err)
			}
			if err := s.gpio.SetPin(s.pins.Clock, true); err != nil {
				return fmt.Errorf("spi: clock high: %w", err)
			}
			if err := s.gpio.SetPin(s.pins.Clock, false); err != nil {
				return fmt.Errorf("spi: clock low: %w", err)
			}
		}
	}
	if err := s.gpio.SetPin(s.pins.LE, true); err != nil {
		return fmt.Errorf("spi: LE high: %w", err)
	}
	return s.gpio.SetPin(s.pins.LE, false)
}

// Close is a no-op; the GPIO lines belong to the hardware manager
func (s *BitBangSPI) Close() error {
	return nil
}
