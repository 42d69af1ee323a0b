package hardware

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrDeviceNotFound is returned when a bus device does not answer its probe
var ErrDeviceNotFound = errors.New("device not found")

// DDSPins holds the AD9850 serial interface GPIO lines
type DDSPins struct {
	WClk  int
	FQUD  int
	Data  int
	Reset int // optional, negative when not wired
}

// SPIPins holds the GPIO lines used when SPI is bit-banged
type SPIPins struct {
	Clock int
	Data  int
	LE    int
}

// HardwareConfig represents hardware configuration
type HardwareConfig struct {
	EnableGPIO     bool
	EnableOLED     bool
	OLEDI2CAddress int
	OLEDWidth      int
	OLEDHeight     int

	EnableDDS bool
	DDSPins   DDSPins

	EnablePLL  bool
	SPIDevice  string // spidev node, empty to bit-bang over PLLPins
	SPISpeedHz int
	PLLPins    SPIPins

	EnableVFO  bool
	I2CDevice  string // i2c-dev node, empty for the simulated bus
	VFOAddress int
	VFOXtalHz  float64
	VFOCorrPPB int64
	VFOPresent bool // simulated bus only: whether the Si5351 answers

	OscillatorSwitchPins [3]int
	GeneratorSwitchPins  [3]int
}

// HardwareManager manages all hardware interfaces
type HardwareManager struct {
	config HardwareConfig
	mutex  sync.RWMutex

	// Hardware interfaces
	gpio     GPIOInterface
	oled     OLEDInterface
	ddsBus   DDSBus
	spiBus   SPIBus
	i2cBus   I2CBus
	clockGen *Si5351
	oscSw    *RFSwitch
	genSw    *RFSwitch

	// State
	initialized bool
}

// GPIOInterface defines GPIO operations
type GPIOInterface interface {
	Initialize() error
	Close() error
	SetPin(pin int, value bool) error
	GetPin(pin int) (bool, error)
}

// OLEDInterface defines OLED display operations
type OLEDInterface interface {
	Initialize() error
	Close() error
	Clear() error
	WriteLine(line int, text string) error
	Display() error
	GetWidth() int
	GetHeight() int
}

// DDSBus is the AD9850 serial load interface
type DDSBus interface {
	// Reset pulses W_CLK then FQ_UD, which switches the chip into serial mode
	Reset() error
	// WriteFrame clocks the bytes out LSB first and latches them with FQ_UD
	WriteFrame(frame []byte) error
}

// SPIBus writes one latched transaction per call
type SPIBus interface {
	Write(data []byte) error
	Close() error
}

// I2CBus reads and writes device registers
type I2CBus interface {
	WriteRegister(addr, reg uint8, data []byte) error
	ReadRegister(addr, reg uint8) (byte, error)
	Close() error
}

// NewHardwareManager creates a new hardware manager
func NewHardwareManager(config HardwareConfig) *HardwareManager {
	return &HardwareManager{
		config: config,
	}
}

// Initialize initializes all hardware interfaces. Buses whose backend is
// disabled are replaced by mocks so that every driver always has a collaborator.
func (h *HardwareManager) Initialize() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.initialized {
		return nil
	}

	log.Printf("Hardware: Initializing hardware manager...")

	if h.config.EnableGPIO {
		log.Printf("Hardware: Initializing GPIO...")
		h.gpio = NewLinuxGPIO()
	} else {
		h.gpio = NewMockGPIO()
	}
	if err := h.gpio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize GPIO: %w", err)
	}

	if h.config.EnableOLED {
		log.Printf("Hardware: Initializing OLED...")

		// Text-only collaborator; pixel rendering lives outside this daemon
		h.oled = NewMockOLED(h.config.OLEDWidth, h.config.OLEDHeight)
		if err := h.oled.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize OLED: %w", err)
		}
		log.Printf("Hardware: OLED initialized (%dx%d at I2C 0x%02x)",
			h.config.OLEDWidth, h.config.OLEDHeight, h.config.OLEDI2CAddress)
	}

	if h.config.EnableDDS && h.config.EnableGPIO {
		h.ddsBus = NewDDSSerial(h.gpio, h.config.DDSPins)
		log.Printf("Hardware: DDS serial on GPIO (W_CLK %d, FQ_UD %d, DATA %d)",
			h.config.DDSPins.WClk, h.config.DDSPins.FQUD, h.config.DDSPins.Data)
	} else {
		h.ddsBus = NewMockDDSBus()
	}

	spiBus, err := h.openSPI()
	if err != nil {
		return err
	}
	h.spiBus = spiBus

	i2cBus, err := h.openI2C()
	if err != nil {
		h.spiBus.Close()
		return err
	}
	h.i2cBus = i2cBus

	h.clockGen = NewSi5351(h.i2cBus, uint8(h.config.VFOAddress), h.config.VFOXtalHz, h.config.VFOCorrPPB)
	h.oscSw = NewRFSwitch("oscillator", h.gpio, h.config.OscillatorSwitchPins)
	h.genSw = NewRFSwitch("generator", h.gpio, h.config.GeneratorSwitchPins)

	h.initialized = true
	log.Printf("Hardware: Hardware manager initialized successfully")
	return nil
}

func (h *HardwareManager) openSPI() (SPIBus, error) {
	switch {
	case h.config.EnablePLL && h.config.SPIDevice != "":
		bus, err := OpenSPIDev(h.config.SPIDevice, h.config.SPISpeedHz)
		if err != nil {
			return nil, fmt.Errorf("failed to open SPI device %s: %w", h.config.SPIDevice, err)
		}
		log.Printf("Hardware: PLL on %s (%d Hz)", h.config.SPIDevice, h.config.SPISpeedHz)
		return bus, nil
	case h.config.EnablePLL && h.config.EnableGPIO:
		log.Printf("Hardware: PLL on bit-banged SPI (CLK %d, DATA %d, LE %d)",
			h.config.PLLPins.Clock, h.config.PLLPins.Data, h.config.PLLPins.LE)
		return NewBitBangSPI(h.gpio, h.config.PLLPins), nil
	default:
		return NewMockSPI(), nil
	}
}

func (h *HardwareManager) openI2C() (I2CBus, error) {
	if h.config.EnableVFO && h.config.I2CDevice != "" {
		bus, err := OpenI2CDev(h.config.I2CDevice)
		if err != nil {
			return nil, fmt.Errorf("failed to open I2C device %s: %w", h.config.I2CDevice, err)
		}
		log.Printf("Hardware: VFO on %s at 0x%02x", h.config.I2CDevice, h.config.VFOAddress)
		return bus, nil
	}

	bus := NewMockI2C()
	if h.config.VFOPresent {
		bus.AddDevice(uint8(h.config.VFOAddress))
	}
	return bus, nil
}

// Close shuts down all hardware interfaces
func (h *HardwareManager) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.initialized {
		return nil
	}

	log.Printf("Hardware: Shutting down hardware manager...")

	if h.i2cBus != nil {
		if err := h.i2cBus.Close(); err != nil {
			log.Printf("Hardware: Error closing I2C: %v", err)
		}
	}

	if h.spiBus != nil {
		if err := h.spiBus.Close(); err != nil {
			log.Printf("Hardware: Error closing SPI: %v", err)
		}
	}

	if h.oled != nil {
		if err := h.oled.Close(); err != nil {
			log.Printf("Hardware: Error closing OLED: %v", err)
		}
	}

	if h.gpio != nil {
		if err := h.gpio.Close(); err != nil {
			log.Printf("Hardware: Error closing GPIO: %v", err)
		}
	}

	h.initialized = false
	log.Printf("Hardware: Hardware manager shut down")
	return nil
}

// UpdateDisplay writes the status lines to the OLED, truncated to its width
func (h *HardwareManager) UpdateDisplay(lines []string) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.initialized || !h.config.EnableOLED || h.oled == nil {
		return nil
	}

	if err := h.oled.Clear(); err != nil {
		return fmt.Errorf("failed to clear OLED: %w", err)
	}

	maxChars := h.oled.GetWidth() / 6 // 6 pixel wide font
	for i, text := range lines {
		if maxChars > 3 && len(text) > maxChars {
			text = text[:maxChars-3] + "..."
		}
		if err := h.oled.WriteLine(i, text); err != nil {
			return fmt.Errorf("failed to write OLED line %d: %w", i+1, err)
		}
	}

	if err := h.oled.Display(); err != nil {
		return fmt.Errorf("failed to update OLED display: %w", err)
	}

	return nil
}

// IsInitialized returns whether hardware is initialized
func (h *HardwareManager) IsInitialized() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.initialized
}

// GetConfig returns the hardware configuration
func (h *HardwareManager) GetConfig() HardwareConfig {
	return h.config
}

// GPIO returns the GPIO interface
func (h *HardwareManager) GPIO() GPIOInterface {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.gpio
}

// OLED returns the display, nil when disabled
func (h *HardwareManager) OLED() OLEDInterface {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.oled
}

// DDSBus returns the AD9850 serial bus
func (h *HardwareManager) DDSBus() DDSBus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.ddsBus
}

// SPIBus returns the ADF4351 SPI bus
func (h *HardwareManager) SPIBus() SPIBus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.spiBus
}

// I2CBus returns the raw I2C bus
func (h *HardwareManager) I2CBus() I2CBus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.i2cBus
}

// ClockGen returns the Si5351 clock generator
func (h *HardwareManager) ClockGen() *Si5351 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clockGen
}

// OscillatorSwitch returns the RF switch routing oscillator outputs
func (h *HardwareManager) OscillatorSwitch() *RFSwitch {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.oscSw
}

// GeneratorSwitch returns the RF switch routing generator outputs
func (h *HardwareManager) GeneratorSwitch() *RFSwitch {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.genSw
}
