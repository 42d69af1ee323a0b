//go:build !linux

package hardware

import "fmt"

// SPIDev is unavailable outside Linux
type SPIDev struct{}

// OpenSPIDev always fails on this platform
func OpenSPIDev(path string, speedHz int) (*SPIDev, error) {
	return nil, fmt.Errorf("spidev %s not supported on this platform", path)
}

// Write always fails on this platform
func (s *SPIDev) Write(data []byte) error {
	return fmt.Errorf("spidev not supported on this platform")
}

// Close is a no-op
func (s *SPIDev) Close() error {
	return nil
}
