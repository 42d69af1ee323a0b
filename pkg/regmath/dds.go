package regmath

import "math"

// AD9850 phase accumulator divisors. The datasheet formula uses 2^32; early
// boards were calibrated against 2^32-1, so the divisor is a device
// calibration parameter rather than a constant.
const (
	DDSDivisor       = 4294967296.0
	DDSLegacyDivisor = 4294967295.0
)

// DDSControlByte is the fifth serial byte: phase 0, power on, factory mode bits clear.
const DDSControlByte = 0x00

// DDSFrameSize is the number of bytes clocked into the AD9850 per update
const DDSFrameSize = 5

// TuningWord computes the 32-bit phase increment that makes a DDS clocked at
// refClockHz produce frequencyHz. The result wraps naturally at 32 bits.
func TuningWord(frequencyHz uint64, refClockHz, divisor float64) uint32 {
	if refClockHz <= 0 {
		return 0
	}
	word := math.Round(float64(frequencyHz) * divisor / refClockHz)
	return uint32(uint64(word))
}

// DDSFrame lays out a tuning word for serial transmission: the four word
// bytes least-significant first followed by the control byte.
func DDSFrame(word uint32) [DDSFrameSize]byte {
	var frame [DDSFrameSize]byte
	for i := 0; i < 4; i++ {
		frame[i] = byte(word >> (8 * uint(i)))
	}
	frame[4] = DDSControlByte
	return frame
}

// DDSOutputHz returns the frequency a tuning word actually produces.
func DDSOutputHz(word uint32, refClockHz, divisor float64) float64 {
	if divisor <= 0 {
		return 0
	}
	return float64(word) * refClockHz / divisor
}
