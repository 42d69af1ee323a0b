//go:build linux

package hardware

import (
	"fmt"
	"log"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dougsko/synthd/pkg/verbose"
)

// spidev ioctl requests from linux/spi/spidev.h
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrBitsPerWord = 0x40016b03
	spiIocWrMaxSpeedHz  = 0x40046b04
)

// SPIDev is an SPI bus backed by a Linux spidev character device. Every
// write is one chip-select cycle, which the ADF4351 uses as its LE strobe.
type SPIDev struct {
	path string
	fd   int
	mu   sync.Mutex
}

// OpenSPIDev opens path in SPI mode 0, 8 bits per word, at speedHz
func OpenSPIDev(path string, speedHz int) (*SPIDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open device %s: %w", path, err)
	}

	if err := unix.IoctlSetPointerInt(fd, spiIocWrMode, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SPI mode: %w", err)
	}
	if err := unix.IoctlSetPointerInt(fd, spiIocWrBitsPerWord, 8); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SPI word size: %w", err)
	}
	if speedHz > 0 {
		if err := unix.IoctlSetPointerInt(fd, spiIocWrMaxSpeedHz, speedHz); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set SPI speed: %w", err)
		}
	}

	log.Printf("SPIDev: Opened %s", path)
	return &SPIDev{path: path, fd: fd}, nil
}

// Write sends data as a single transfer
func (s *SPIDev) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	verbose.Bus("spi", data)
	for written := 0; written < len(data); {
		n, err := unix.Write(s.fd, data[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("write to %s failed after %d bytes: %w", s.path, written, err)
		}
		written += n
	}
	return nil
}

// Close closes the device
func (s *SPIDev) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	log.Printf("SPIDev: Closed %s", s.path)
	return err
}
