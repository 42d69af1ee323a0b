package hardware

import (
	"fmt"
	"sync"

	"github.com/dougsko/synthd/pkg/verbose"
)

// DDSSerial loads AD9850 frames by bit-banging W_CLK, FQ_UD and DATA
type DDSSerial struct {
	gpio GPIOInterface
	pins DDSPins
	mu   sync.Mutex
}

// NewDDSSerial creates a DDS serial bus on the given GPIO lines
func NewDDSSerial(gpio GPIOInterface, pins DDSPins) *DDSSerial {
	return &DDSSerial{gpio: gpio, pins: pins}
}

func (d *DDSSerial) pulse(pin int) error {
	if err := d.gpio.SetPin(pin, true); err != nil {
		return err
	}
	return d.gpio.SetPin(pin, false)
}

// Reset pulses RESET when wired, then W_CLK and FQ_UD to enter serial mode
func (d *DDSSerial) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, pin := range []int{d.pins.WClk, d.pins.FQUD, d.pins.Data} {
		if err := d.gpio.SetPin(pin, false); err != nil {
			return fmt.Errorf("dds: failed to drive pin %d: %w", pin, err)
		}
	}
	if d.pins.Reset >= 0 {
		if err := d.pulse(d.pins.Reset); err != nil {
			return fmt.Errorf("dds: reset pulse failed: %w", err)
		}
	}
	if err := d.pulse(d.pins.WClk); err != nil {
		return fmt.Errorf("dds: W_CLK pulse failed: %w", err)
	}
	if err := d.pulse(d.pins.FQUD); err != nil {
		return fmt.Errorf("dds: FQ_UD pulse failed: %w", err)
	}
	verbose.Printf("DDS: serial mode enabled")
	return nil
}

// WriteFrame shifts every byte out LSB first, one W_CLK pulse per bit, then
// latches the frame with FQ_UD.
func (d *DDSSerial) WriteFrame(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	verbose.Bus("dds", frame)
	for _, b := range frame {
		for i := 0; i < 8; i++ {
			if err := d.gpio.SetPin(d.pins.Data, b&(1<<uint(i)) != 0); err != nil {
				return fmt.Errorf("dds: data line: %w", err)
			}
			if err := d.pulse(d.pins.WClk); err != nil {
				return fmt.Errorf("dds: W_CLK pulse failed: %w", err)
			}
		}
	}
	if err := d.pulse(d.pins.FQUD); err != nil {
		return fmt.Errorf("dds: FQ_UD pulse failed: %w", err)
	}
	return nil
}
