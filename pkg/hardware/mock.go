package hardware

import (
	"fmt"
	"log"
	"sync"
)

// PinWrite is one recorded GPIO transition
type PinWrite struct {
	Pin   int
	Value bool
}

// MockGPIO implements GPIOInterface for testing
type MockGPIO struct {
	pins    map[int]bool
	history []PinWrite
	record  bool
	mu      sync.RWMutex
}

// NewMockGPIO creates a new mock GPIO interface
func NewMockGPIO() *MockGPIO {
	return &MockGPIO{
		pins: make(map[int]bool),
	}
}

// Initialize initializes the mock GPIO
func (g *MockGPIO) Initialize() error {
	log.Printf("MockGPIO: Initialized")
	return nil
}

// Close closes the mock GPIO
func (g *MockGPIO) Close() error {
	log.Printf("MockGPIO: Closed")
	return nil
}

// SetPin sets a GPIO pin value
func (g *MockGPIO) SetPin(pin int, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pins[pin] = value
	if g.record {
		g.history = append(g.history, PinWrite{Pin: pin, Value: value})
	}
	return nil
}

// GetPin gets a GPIO pin value
func (g *MockGPIO) GetPin(pin int) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	value := g.pins[pin]
	return value, nil
}

// Record starts capturing every SetPin call, clearing earlier history
func (g *MockGPIO) Record() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record = true
	g.history = nil
}

// History returns the captured pin writes
func (g *MockGPIO) History() []PinWrite {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]PinWrite, len(g.history))
	copy(out, g.history)
	return out
}

// MockOLED implements OLEDInterface for testing
type MockOLED struct {
	width  int
	height int
	lines  map[int]string
	shown  []string
	mu     sync.RWMutex
}

// NewMockOLED creates a new mock OLED interface
func NewMockOLED(width, height int) *MockOLED {
	return &MockOLED{
		width:  width,
		height: height,
		lines:  make(map[int]string),
	}
}

// Initialize initializes the mock OLED
func (o *MockOLED) Initialize() error {
	log.Printf("MockOLED: Initialized (%dx%d)", o.width, o.height)
	return nil
}

// Close closes the mock OLED
func (o *MockOLED) Close() error {
	log.Printf("MockOLED: Closed")
	return nil
}

// Clear clears the mock OLED display
func (o *MockOLED) Clear() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lines = make(map[int]string)
	return nil
}

// WriteLine writes a line to the mock OLED
func (o *MockOLED) WriteLine(line int, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if line < 0 || line >= o.height/8 { // 8 pixel rows per text line
		return fmt.Errorf("line %d out of range", line)
	}

	o.lines[line] = text
	return nil
}

// Display latches the written lines as the visible content
func (o *MockOLED) Display() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.shown = o.shown[:0]
	for i := 0; i < o.height/8; i++ {
		if text, exists := o.lines[i]; exists {
			o.shown = append(o.shown, text)
		}
	}
	return nil
}

// Shown returns the lines of the last Display call
func (o *MockOLED) Shown() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, len(o.shown))
	copy(out, o.shown)
	return out
}

// GetWidth returns the mock OLED width
func (o *MockOLED) GetWidth() int {
	return o.width
}

// GetHeight returns the mock OLED height
func (o *MockOLED) GetHeight() int {
	return o.height
}

// MockDDSBus records AD9850 frames
type MockDDSBus struct {
	frames [][]byte
	resets int
	err    error
	mu     sync.Mutex
}

// NewMockDDSBus creates a new mock DDS bus
func NewMockDDSBus() *MockDDSBus {
	return &MockDDSBus{}
}

// Reset records a serial-mode init sequence
func (b *MockDDSBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.resets++
	return nil
}

// WriteFrame records a frame
func (b *MockDDSBus) WriteFrame(frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.frames = append(b.frames, append([]byte(nil), frame...))
	return nil
}

// Frames returns every frame written so far
func (b *MockDDSBus) Frames() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.frames...)
}

// Resets returns how many init sequences were sent
func (b *MockDDSBus) Resets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resets
}

// FailWith makes every following call return err; nil restores normal operation
func (b *MockDDSBus) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// MockSPI records SPI transactions
type MockSPI struct {
	writes [][]byte
	err    error
	closed bool
	mu     sync.Mutex
}

// NewMockSPI creates a new mock SPI bus
func NewMockSPI() *MockSPI {
	return &MockSPI{}
}

// Write records a transaction
func (s *MockSPI) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, append([]byte(nil), data...))
	return nil
}

// Close marks the bus closed
func (s *MockSPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Writes returns every transaction written so far
func (s *MockSPI) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Words decodes the transactions as 32-bit MSB-first words
func (s *MockSPI) Words() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	words := make([]uint32, 0, len(s.writes))
	for _, w := range s.writes {
		var v uint32
		for _, b := range w {
			v = v<<8 | uint32(b)
		}
		words = append(words, v)
	}
	return words
}

// Reset clears the recorded transactions
func (s *MockSPI) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
}

// FailWith makes every following write return err; nil restores normal operation
func (s *MockSPI) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// I2CWrite is one recorded register write
type I2CWrite struct {
	Addr uint8
	Reg  uint8
	Data []byte
}

// MockI2C simulates an I2C bus with register-file devices
type MockI2C struct {
	devices map[uint8]map[uint8]byte
	writes  []I2CWrite
	mu      sync.Mutex
}

// NewMockI2C creates an empty bus
func NewMockI2C() *MockI2C {
	return &MockI2C{devices: make(map[uint8]map[uint8]byte)}
}

// AddDevice attaches a device that answers at addr
func (m *MockI2C) AddDevice(addr uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[addr]; !ok {
		m.devices[addr] = make(map[uint8]byte)
	}
}

// RemoveDevice detaches the device at addr
func (m *MockI2C) RemoveDevice(addr uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, addr)
}

// WriteRegister stores data starting at reg, auto-incrementing
func (m *MockI2C) WriteRegister(addr, reg uint8, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs, ok := m.devices[addr]
	if !ok {
		return fmt.Errorf("i2c 0x%02x: %w", addr, ErrDeviceNotFound)
	}
	for i, b := range data {
		regs[reg+uint8(i)] = b
	}
	m.writes = append(m.writes, I2CWrite{Addr: addr, Reg: reg, Data: append([]byte(nil), data...)})
	return nil
}

// ReadRegister returns the stored value, zero when never written
func (m *MockI2C) ReadRegister(addr, reg uint8) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs, ok := m.devices[addr]
	if !ok {
		return 0, fmt.Errorf("i2c 0x%02x: %w", addr, ErrDeviceNotFound)
	}
	return regs[reg], nil
}

// Register returns the current value of a device register
func (m *MockI2C) Register(addr, reg uint8) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[addr][reg]
}

// Writes returns the recorded register writes
func (m *MockI2C) Writes() []I2CWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]I2CWrite(nil), m.writes...)
}

// Close is a no-op
func (m *MockI2C) Close() error {
	return nil
}
