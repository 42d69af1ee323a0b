//go:build !linux

package hardware

import "fmt"

// I2CDev is unavailable outside Linux
type I2CDev struct{}

// OpenI2CDev always fails on this platform
func OpenI2CDev(path string) (*I2CDev, error) {
	return nil, fmt.Errorf("i2c-dev %s not supported on this platform", path)
}

// WriteRegister always fails on this platform
func (d *I2CDev) WriteRegister(addr, reg uint8, data []byte) error {
	return fmt.Errorf("i2c-dev not supported on this platform")
}

// ReadRegister always fails on this platform
func (d *I2CDev) ReadRegister(addr, reg uint8) (byte, error) {
	return 0, fmt.Errorf("i2c-dev not supported on this platform")
}

// Close is a no-op
func (d *I2CDev) Close() error {
	return nil
}
