//go:build linux

package hardware

import (
	"fmt"
	"log"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dougsko/synthd/pkg/verbose"
)

// i2cSlave selects the target address for subsequent read/write calls
const i2cSlave = 0x0703

// I2CDev is an I2C bus backed by a Linux i2c-dev character device
type I2CDev struct {
	path string
	fd   int
	addr int
	mu   sync.Mutex
}

// OpenI2CDev opens an i2c-dev node such as /dev/i2c-1
func OpenI2CDev(path string) (*I2CDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open device %s: %w", path, err)
	}
	log.Printf("I2CDev: Opened %s", path)
	return &I2CDev{path: path, fd: fd, addr: -1}, nil
}

func (d *I2CDev) selectAddr(addr uint8) error {
	if d.addr == int(addr) {
		return nil
	}
	if err := unix.IoctlSetInt(d.fd, i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("failed to select I2C address 0x%02x: %w", addr, err)
	}
	d.addr = int(addr)
	return nil
}

// WriteRegister writes data starting at reg
func (d *I2CDev) WriteRegister(addr, reg uint8, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.selectAddr(addr); err != nil {
		return err
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	buf = append(buf, data...)
	verbose.Bus(fmt.Sprintf("i2c 0x%02x", addr), buf)

	n, err := unix.Write(d.fd, buf)
	if err != nil {
		return fmt.Errorf("i2c write 0x%02x reg %d: %w", addr, reg, err)
	}
	if n != len(buf) {
		return fmt.Errorf("i2c write 0x%02x reg %d: short write %d/%d", addr, reg, n, len(buf))
	}
	return nil
}

// ReadRegister reads a single register. A NACK on the address phase is
// reported as ErrDeviceNotFound.
func (d *I2CDev) ReadRegister(addr, reg uint8) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.selectAddr(addr); err != nil {
		return 0, err
	}

	if _, err := unix.Write(d.fd, []byte{reg}); err != nil {
		if err == unix.ENXIO || err == unix.EREMOTEIO {
			return 0, fmt.Errorf("i2c 0x%02x: %w", addr, ErrDeviceNotFound)
		}
		return 0, fmt.Errorf("i2c 0x%02x select reg %d: %w", addr, reg, err)
	}

	buf := make([]byte, 1)
	if _, err := unix.Read(d.fd, buf); err != nil {
		return 0, fmt.Errorf("i2c 0x%02x read reg %d: %w", addr, reg, err)
	}
	return buf[0], nil
}

// Close closes the device
func (d *I2CDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	log.Printf("I2CDev: Closed %s", d.path)
	return err
}
