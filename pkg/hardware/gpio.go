package hardware

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

const sysfsGPIO = "/sys/class/gpio"

// LinuxGPIO implements GPIOInterface using Linux sysfs GPIO. Value files
// stay open after the first access because the serial buses toggle lines
// thousands of times per update.
type LinuxGPIO struct {
	root   string
	lines  map[int]*os.File
	output map[int]bool
	mutex  sync.Mutex
}

// NewLinuxGPIO creates a new Linux GPIO interface
func NewLinuxGPIO() *LinuxGPIO {
	return &LinuxGPIO{
		root:   sysfsGPIO,
		lines:  make(map[int]*os.File),
		output: make(map[int]bool),
	}
}

// Initialize checks that the sysfs GPIO class is present
func (g *LinuxGPIO) Initialize() error {
	if _, err := os.Stat(g.root); os.IsNotExist(err) {
		return fmt.Errorf("GPIO not available on this system")
	}

	log.Printf("LinuxGPIO: Initialized")
	return nil
}

// Close releases all lines and unexports them
func (g *LinuxGPIO) Close() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for pin, f := range g.lines {
		f.Close()
		if err := g.unexport(pin); err != nil {
			log.Printf("LinuxGPIO: %v", err)
		}
	}
	g.lines = make(map[int]*os.File)
	g.output = make(map[int]bool)

	log.Printf("LinuxGPIO: Closed")
	return nil
}

// SetPin drives an output line
func (g *LinuxGPIO) SetPin(pin int, value bool) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	f, err := g.line(pin, true)
	if err != nil {
		return err
	}

	v := []byte("0")
	if value {
		v = []byte("1")
	}
	if _, err := f.WriteAt(v, 0); err != nil {
		return fmt.Errorf("failed to set pin %d value: %w", pin, err)
	}
	return nil
}

// GetPin reads a line
func (g *LinuxGPIO) GetPin(pin int) (bool, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	f, err := g.line(pin, false)
	if err != nil {
		return false, err
	}

	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return false, fmt.Errorf("failed to read pin %d value: %w", pin, err)
	}
	return buf[0] == '1', nil
}

// line returns the open value file of pin, exporting it and setting its
// direction on first use. Must be called with the lock held.
func (g *LinuxGPIO) line(pin int, output bool) (*os.File, error) {
	if f, ok := g.lines[pin]; ok {
		if g.output[pin] == output {
			return f, nil
		}
		if err := g.setDirection(pin, output); err != nil {
			return nil, err
		}
		g.output[pin] = output
		return f, nil
	}

	if err := g.export(pin); err != nil {
		return nil, err
	}
	if err := g.setDirection(pin, output); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fmt.Sprintf("%s/gpio%d/value", g.root, pin), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open pin %d: %w", pin, err)
	}
	g.lines[pin] = f
	g.output[pin] = output
	return f, nil
}

func (g *LinuxGPIO) export(pin int) error {
	pinPath := fmt.Sprintf("%s/gpio%d", g.root, pin)
	if _, err := os.Stat(pinPath); err == nil {
		return nil
	}

	if err := os.WriteFile(g.root+"/export", []byte(strconv.Itoa(pin)), 0644); err != nil {
		return fmt.Errorf("failed to export GPIO pin %d: %w", pin, err)
	}

	// udev needs a moment to create the directory and fix permissions
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(pinPath); err == nil {
			log.Printf("LinuxGPIO: Exported pin %d", pin)
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("pin %d directory did not appear after export", pin)
}

func (g *LinuxGPIO) unexport(pin int) error {
	if err := os.WriteFile(g.root+"/unexport", []byte(strconv.Itoa(pin)), 0644); err != nil {
		return fmt.Errorf("failed to unexport GPIO pin %d: %w", pin, err)
	}
	return nil
}

func (g *LinuxGPIO) setDirection(pin int, output bool) error {
	direction := "in"
	if output {
		// "low" sets the direction and drives 0 in one write, avoiding a glitch
		direction = "low"
	}
	path := fmt.Sprintf("%s/gpio%d/direction", g.root, pin)
	if err := os.WriteFile(path, []byte(direction), 0644); err != nil {
		return fmt.Errorf("failed to set pin %d direction to %s: %w", pin, direction, err)
	}
	return nil
}
