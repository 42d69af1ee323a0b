package regmath

import (
	"fmt"
	"math"
)

// ADF4351 limits and fixed values
const (
	ADF4351MinHz       uint64 = 35000000
	ADF4351MaxHz       uint64 = 4400000000
	ADF4351Modulus            = 4095
	ADF4351RegisterCnt        = 6

	// VCO frequency at and above which the 8/9 prescaler is required
	prescalerThresholdHz = 3600000000.0
)

// rfDividerThresholds[i] is the lowest output frequency served by RF divider 2^i.
var rfDividerThresholds = [7]uint64{
	2200000000,
	1100000000,
	550000000,
	275000000,
	137500000,
	68750000,
	0,
}

// RFDividerSelect picks the output divider index so that the VCO stays in its
// 2.2-4.4 GHz band. A frequency exactly on a threshold selects the lower index.
func RFDividerSelect(frequencyHz uint64) uint8 {
	for i, threshold := range rfDividerThresholds {
		if frequencyHz >= threshold {
			return uint8(i)
		}
	}
	return uint8(len(rfDividerThresholds) - 1)
}

// PLLConstants holds the fixed register fields taken from the device
// recommended settings. They are calibration data, not physics.
type PLLConstants struct {
	MuxOut             uint8  // R2 MUXOUT select
	RCounter           uint16 // R2 reference divider
	ChargePump         uint8  // R2 charge pump current index
	LockDetectFunction bool   // R2 LDF, true = integer-N (6 cycles)
	PDPolarityPositive bool   // R2 phase detector polarity
	ClockDivider       uint16 // R3 12-bit clock divider value
	BandSelectClockDiv uint8  // R4 band select clock divider
	MuteTillLockDetect bool   // R4 MTLD
	FeedbackFundament  bool   // R4 feedback from VCO fundamental
	LDPinMode          uint8  // R5 lock detect pin mode
	FixedPrescaler     bool   // force the 8/9 prescaler regardless of VCO
}

// DefaultPLLConstants returns the field values of the current board revision.
func DefaultPLLConstants() PLLConstants {
	return PLLConstants{
		MuxOut:             6,
		RCounter:           1,
		ChargePump:         7,
		LockDetectFunction: true,
		PDPolarityPositive: true,
		ClockDivider:       150,
		BandSelectClockDiv: 250,
		MuteTillLockDetect: true,
		FeedbackFundament:  true,
		LDPinMode:          1,
	}
}

// LegacyPLLConstants returns the field values used by the first board
// revision: band select divider 8 and a prescaler pinned to 8/9.
func LegacyPLLConstants() PLLConstants {
	c := DefaultPLLConstants()
	c.BandSelectClockDiv = 8
	c.FixedPrescaler = true
	return c
}

// PLLDividers are the N-divider values derived from a target frequency.
type PLLDividers struct {
	RFDivSel  uint8
	VCOHz     float64
	Prescaler uint8
	Int       uint16
	Frac      uint16
	Mod       uint16
}

// ComputePLLDividers runs the INT/FRAC/MOD derivation for frequencyHz
// against an integer reference (PFD) frequency.
func ComputePLLDividers(frequencyHz, refClockHz uint64) (PLLDividers, error) {
	if refClockHz == 0 {
		return PLLDividers{}, fmt.Errorf("reference clock must be non-zero")
	}

	div := RFDividerSelect(frequencyHz)
	vco := float64(frequencyHz) * float64(uint64(1)<<div)

	var prescaler uint8
	if vco >= prescalerThresholdHz {
		prescaler = 1
	}

	ratio := vco / float64(refClockHz)
	n := math.Floor(ratio)
	frac := math.Round((ratio - n) * ADF4351Modulus)
	if frac >= ADF4351Modulus {
		n++
		frac = 0
	}
	if n > 0xFFFF {
		return PLLDividers{}, fmt.Errorf("INT value %.0f does not fit the register", n)
	}

	return PLLDividers{
		RFDivSel:  div,
		VCOHz:     vco,
		Prescaler: prescaler,
		Int:       uint16(n),
		Frac:      uint16(frac),
		Mod:       ADF4351Modulus,
	}, nil
}

func bit(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func field(v uint32, width, shift uint) uint32 {
	return (v & (1<<width - 1)) << shift
}

// Register0 carries the integer and fractional N-divider values.
type Register0 struct {
	Int  uint16
	Frac uint16
}

// Encode packs the register with address 0.
func (r Register0) Encode() uint32 {
	return field(uint32(r.Int), 16, 15) | field(uint32(r.Frac), 12, 3) | 0
}

// Register1 carries prescaler, phase and modulus.
type Register1 struct {
	PhaseAdjust bool
	Prescaler   uint8
	Phase       uint16
	Mod         uint16
}

// Encode packs the register with address 1.
func (r Register1) Encode() uint32 {
	return field(bit(r.PhaseAdjust), 1, 28) |
		field(uint32(r.Prescaler), 1, 27) |
		field(uint32(r.Phase), 12, 15) |
		field(uint32(r.Mod), 12, 3) | 1
}

// Register2 carries reference path, charge pump and lock detect settings.
type Register2 struct {
	LowNoiseSpur uint8
	MuxOut       uint8
	RefDoubler   bool
	RDiv2        bool
	RCounter     uint16
	DoubleBuffer bool
	ChargePump   uint8
	LDF          bool
	LDP          bool
	PDPolarity   bool
	PowerDown    bool
	CPThreeState bool
	CounterReset bool
}

// Encode packs the register with address 2.
func (r Register2) Encode() uint32 {
	return field(uint32(r.LowNoiseSpur), 2, 29) |
		field(uint32(r.MuxOut), 3, 26) |
		field(bit(r.RefDoubler), 1, 25) |
		field(bit(r.RDiv2), 1, 24) |
		field(uint32(r.RCounter), 10, 14) |
		field(bit(r.DoubleBuffer), 1, 13) |
		field(uint32(r.ChargePump), 4, 9) |
		field(bit(r.LDF), 1, 8) |
		field(bit(r.LDP), 1, 7) |
		field(bit(r.PDPolarity), 1, 6) |
		field(bit(r.PowerDown), 1, 5) |
		field(bit(r.CPThreeState), 1, 4) |
		field(bit(r.CounterReset), 1, 3) | 2
}

// Register3 carries timing and clock divider settings.
type Register3 struct {
	BandSelectClockMode bool
	ABP                 bool
	ChargeCancel        bool
	CSR                 bool
	ClockDivMode        uint8
	ClockDivider        uint16
}

// Encode packs the register with address 3.
func (r Register3) Encode() uint32 {
	return field(bit(r.BandSelectClockMode), 1, 23) |
		field(bit(r.ABP), 1, 22) |
		field(bit(r.ChargeCancel), 1, 21) |
		field(bit(r.CSR), 1, 18) |
		field(uint32(r.ClockDivMode), 2, 15) |
		field(uint32(r.ClockDivider), 12, 3) | 3
}

// Register4 carries the RF output stage settings.
type Register4 struct {
	FeedbackSelect     bool
	RFDivSel           uint8
	BandSelectClockDiv uint8
	VCOPowerDown       bool
	MTLD               bool
	AuxOutputSelect    bool
	AuxOutputEnable    bool
	AuxOutputPower     uint8
	RFOutputEnable     bool
	OutputPower        uint8
}

// Encode packs the register with address 4.
func (r Register4) Encode() uint32 {
	return field(bit(r.FeedbackSelect), 1, 23) |
		field(uint32(r.RFDivSel), 3, 20) |
		field(uint32(r.BandSelectClockDiv), 8, 12) |
		field(bit(r.VCOPowerDown), 1, 11) |
		field(bit(r.MTLD), 1, 10) |
		field(bit(r.AuxOutputSelect), 1, 9) |
		field(bit(r.AuxOutputEnable), 1, 8) |
		field(uint32(r.AuxOutputPower), 2, 6) |
		field(bit(r.RFOutputEnable), 1, 5) |
		field(uint32(r.OutputPower), 2, 3) | 4
}

// Register5 carries the lock detect pin configuration.
type Register5 struct {
	LDPinMode uint8
}

// Encode packs the register with address 5. Bits 19 and 20 are reserved and must be set.
func (r Register5) Encode() uint32 {
	return field(uint32(r.LDPinMode), 2, 22) | field(0b11, 2, 19) | 5
}

// PLLRegisters is the full ADF4351 register image indexed by address.
type PLLRegisters [ADF4351RegisterCnt]uint32

// PLLSettings is the input of a register set computation.
type PLLSettings struct {
	FrequencyHz uint64
	RefClockHz  uint64
	RFEnabled   bool
	OutputPower uint8 // 0 (-4 dBm) .. 3 (+5 dBm)
	Constants   PLLConstants
}

// ComputePLLRegisters derives the six register words for s.
func ComputePLLRegisters(s PLLSettings) (PLLRegisters, error) {
	if s.OutputPower > 3 {
		return PLLRegisters{}, fmt.Errorf("output power %d out of range 0-3", s.OutputPower)
	}

	d, err := ComputePLLDividers(s.FrequencyHz, s.RefClockHz)
	if err != nil {
		return PLLRegisters{}, err
	}

	c := s.Constants
	prescaler := d.Prescaler
	if c.FixedPrescaler {
		prescaler = 1
	}

	var regs PLLRegisters
	regs[0] = Register0{Int: d.Int, Frac: d.Frac}.Encode()
	regs[1] = Register1{Prescaler: prescaler, Phase: 1, Mod: d.Mod}.Encode()
	regs[2] = Register2{
		MuxOut:     c.MuxOut,
		RCounter:   c.RCounter,
		ChargePump: c.ChargePump,
		LDF:        c.LockDetectFunction,
		PDPolarity: c.PDPolarityPositive,
	}.Encode()
	regs[3] = Register3{ClockDivider: c.ClockDivider}.Encode()
	regs[4] = Register4{
		FeedbackSelect:     c.FeedbackFundament,
		RFDivSel:           d.RFDivSel,
		BandSelectClockDiv: c.BandSelectClockDiv,
		MTLD:               c.MuteTillLockDetect,
		RFOutputEnable:     s.RFEnabled,
		OutputPower:        s.OutputPower,
	}.Encode()
	regs[5] = Register5{LDPinMode: c.LDPinMode}.Encode()

	return regs, nil
}

// WriteOrder returns the words in the order the chip expects them: R5 first, R0 last.
func (r PLLRegisters) WriteOrder() []uint32 {
	words := make([]uint32, 0, ADF4351RegisterCnt)
	for i := ADF4351RegisterCnt - 1; i >= 0; i-- {
		words = append(words, r[i])
	}
	return words
}

// WordBytes returns a register word most-significant byte first.
func WordBytes(word uint32) []byte {
	return []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
}
