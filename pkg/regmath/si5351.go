package regmath

import (
	"fmt"
	"math"
)

// Si5351 register map (AN619)
const (
	Si5351RegDeviceStatus   = 0
	Si5351RegOutputEnable   = 3
	Si5351RegClk0Control    = 16
	Si5351RegPLLAParams     = 26
	Si5351RegPLLBParams     = 34
	Si5351RegMS0Params      = 42
	Si5351RegPLLReset       = 177
	Si5351RegCrystalLoad    = 183
	Si5351ParamsBlockLength = 8

	Si5351StatusSysInit = 1 << 7
	Si5351PLLResetA     = 1 << 5
	Si5351PLLResetB     = 1 << 7
	Si5351CrystalLoad10 = 0x92

	// CLKx control: powered up, integer mode, PLLA source, multisynth input, 8 mA drive
	Si5351ClkControlDefault = 0x4F
	Si5351ClkPowerDown      = 1 << 7
)

// Si5351 frequency limits
const (
	Si5351MinOutputHz    = 4000.0
	Si5351MaxOutputHz    = 225000000.0
	si5351MaxPLLHz       = 900000000.0
	si5351DivBy4Above    = 150000000.0
	si5351MinMSInputHz   = 500000.0
	si5351MaxRDiv        = 128
	si5351MaxMSDivider   = 2048
	Si5351FractionDenom  = 1048575
	Si5351DefaultXtalHz  = 25000000.0
	Si5351DefaultAddress = 0x60
)

// Si5351Ratio is a fractional divider a + b/c.
type Si5351Ratio struct {
	A, B, C uint32
}

// Value returns the ratio as a float.
func (r Si5351Ratio) Value() float64 {
	if r.C == 0 {
		return float64(r.A)
	}
	return float64(r.A) + float64(r.B)/float64(r.C)
}

// Params computes the AN619 P1, P2, P3 encoding of the ratio.
func (r Si5351Ratio) Params() (p1, p2, p3 uint32) {
	c := r.C
	if c == 0 {
		c = 1
	}
	floor := (128 * uint64(r.B)) / uint64(c)
	p1 = uint32(128*uint64(r.A) + floor - 512)
	p2 = uint32(128*uint64(r.B) - uint64(c)*floor)
	p3 = c
	return
}

// Si5351Plan is the divider configuration producing one output frequency.
type Si5351Plan struct {
	XtalHz     float64
	PLLHz      float64
	OutputHz   float64 // actual output with the chosen ratios
	Feedback   Si5351Ratio
	Multisynth Si5351Ratio
	RDivLog2   uint8
	DivBy4     bool
}

// RDiv returns the output R divider value.
func (p Si5351Plan) RDiv() uint32 {
	return 1 << p.RDivLog2
}

// PlanSi5351 chooses PLL and multisynth ratios for frequencyHz from a
// crystal at xtalHz. The output multisynth is kept integer so that jitter
// stays low; the fractional part lives in the PLL feedback divider.
func PlanSi5351(xtalHz, frequencyHz float64) (Si5351Plan, error) {
	if xtalHz < 10e6 || xtalHz > 40e6 {
		return Si5351Plan{}, fmt.Errorf("invalid crystal frequency %.0f Hz", xtalHz)
	}
	if frequencyHz < Si5351MinOutputHz || frequencyHz > Si5351MaxOutputHz {
		return Si5351Plan{}, fmt.Errorf("output frequency %.0f Hz out of range", frequencyHz)
	}

	plan := Si5351Plan{XtalHz: xtalHz}

	rdiv := uint32(1)
	for frequencyHz*float64(rdiv) < si5351MinMSInputHz && rdiv < si5351MaxRDiv {
		rdiv *= 2
		plan.RDivLog2++
	}
	msOut := frequencyHz * float64(rdiv)

	if frequencyHz > si5351DivBy4Above {
		plan.DivBy4 = true
		plan.Multisynth = Si5351Ratio{A: 4, B: 0, C: 1}
		plan.PLLHz = 4 * frequencyHz
	} else {
		div := uint32(math.Floor(si5351MaxPLLHz/msOut)) &^ 1
		if div > si5351MaxMSDivider {
			div = si5351MaxMSDivider
		}
		if div < 6 {
			return Si5351Plan{}, fmt.Errorf("no multisynth divider for %.0f Hz", frequencyHz)
		}
		plan.Multisynth = Si5351Ratio{A: div, B: 0, C: 1}
		plan.PLLHz = msOut * float64(div)
	}

	ratio := plan.PLLHz / xtalHz
	a := math.Floor(ratio)
	b := math.Round((ratio - a) * Si5351FractionDenom)
	if b >= Si5351FractionDenom {
		a++
		b = 0
	}
	if a < 15 || a > 90 {
		return Si5351Plan{}, fmt.Errorf("feedback ratio %.3f outside 15..90", ratio)
	}
	plan.Feedback = Si5351Ratio{A: uint32(a), B: uint32(b), C: Si5351FractionDenom}

	plan.OutputHz = xtalHz * plan.Feedback.Value() / (plan.Multisynth.Value() * float64(rdiv))
	return plan, nil
}

// EncodeParams builds the 8-byte parameter block for a ratio. rdivLog2 and
// divBy4 only apply to multisynth output blocks and must be zero for PLLs.
func EncodeParams(r Si5351Ratio, rdivLog2 uint8, divBy4 bool) [Si5351ParamsBlockLength]byte {
	p1, p2, p3 := r.Params()
	var divBy4Bits byte
	if divBy4 {
		p1, p2, p3 = 0, 0, 1
		divBy4Bits = 0x0C
	}
	return [Si5351ParamsBlockLength]byte{
		byte(p3 >> 8),
		byte(p3),
		(rdivLog2&0x07)<<4 | divBy4Bits | byte(p1>>16)&0x03,
		byte(p1 >> 8),
		byte(p1),
		byte(p3>>16)&0x0F<<4 | byte(p2>>16)&0x0F,
		byte(p2 >> 8),
		byte(p2),
	}
}

// FeedbackBlock returns the PLL parameter block of the plan.
func (p Si5351Plan) FeedbackBlock() [Si5351ParamsBlockLength]byte {
	return EncodeParams(p.Feedback, 0, false)
}

// MultisynthBlock returns the output multisynth parameter block of the plan.
func (p Si5351Plan) MultisynthBlock() [Si5351ParamsBlockLength]byte {
	return EncodeParams(p.Multisynth, p.RDivLog2, p.DivBy4)
}

// Si5351MultisynthRegister returns the first parameter register of output clk.
func Si5351MultisynthRegister(clk uint8) uint8 {
	return Si5351RegMS0Params + clk*Si5351ParamsBlockLength
}
