package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/dougsko/synthd/pkg/regmath"
	"github.com/dougsko/synthd/pkg/synth"
)

// ErrDirectSetUnsupported is returned for a typed frequency while the VFO is active
var ErrDirectSetUnsupported = errors.New("direct frequency entry not supported by the VFO")

// InputSteps is the step table cycled by the "s" shorthand on the DDS and PLL
var InputSteps = []uint64{10, 100, 1000, 10000, 100000, 1000000, 10000000}

const (
	initialInputStepIdx  = 2
	initialInputPowerIdx = 3
)

// InputParser turns shorthand text into a command for the active backend:
//
//	"+", "-"                          step the frequency up or down
//	"s"                               next step size
//	"p"                               next output power (PLL)
//	"b"                               next band (VFO)
//	"7.1m", "2.4g", "455k", "1000"    set the frequency
//
// The step and power cursors persist between calls.
type InputParser struct {
	mu       sync.Mutex
	stepIdx  int
	powerIdx int
}

// NewInputParser creates a parser with the cursors at 1 kHz and +5 dBm
func NewInputParser() *InputParser {
	return &InputParser{stepIdx: initialInputStepIdx, powerIdx: initialInputPowerIdx}
}

// Parse builds the command for text relative to the active backend
func (p *InputParser) Parse(active synth.Backend, text string) (*Command, error) {
	if !active.Valid() {
		return nil, fmt.Errorf("%w: backend %d", ErrInvalidParam, active)
	}
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, ParamText)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := NewCommand(active.Action(), "")
	switch {
	case input == "+":
		cmd.SubAccion = SubChangeFreq
		cmd.With(ParamDirection, "up")
	case input == "-":
		cmd.SubAccion = SubChangeFreq
		cmd.With(ParamDirection, "down")
	case input == "b" && active == synth.BackendVFO:
		cmd.SubAccion = SubSetBand
	case input == "s":
		p.stepIdx = (p.stepIdx + 1) % len(InputSteps)
		cmd.SubAccion = SubSetStep
		if active != synth.BackendVFO {
			cmd.With(ParamStep, InputSteps[p.stepIdx])
		}
	case input == "p":
		if active != synth.BackendPLL {
			return nil, fmt.Errorf("%w: power is only adjustable on the ADF4351", synth.ErrUnsupported)
		}
		p.powerIdx = (p.powerIdx + 1) % len(synth.PLLPowerLabels)
		cmd.SubAccion = SubSetPower
		cmd.With(ParamPower, p.powerIdx)
	default:
		if active == synth.BackendVFO {
			return nil, ErrDirectSetUnsupported
		}
		hz, err := ParseFrequency(input)
		if err != nil {
			return nil, err
		}
		if active == synth.BackendPLL && hz < regmath.ADF4351MinHz {
			return nil, fmt.Errorf("%w: ADF4351 minimum is 35 MHz", ErrInvalidParam)
		}
		cmd.SubAccion = SubSetFreq
		cmd.With(ParamFrequency, hz)
	}
	return cmd, nil
}

// ParseFrequency reads a positive frequency with an optional k, m or g suffix
func ParseFrequency(text string) (uint64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "g"):
		mult = 1e9
	case strings.HasSuffix(s, "m"):
		mult = 1e6
	case strings.HasSuffix(s, "k"):
		mult = 1e3
	}
	if mult != 1.0 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: unknown input %q", ErrInvalidParam, text)
	}
	hz := math.Round(v * mult)
	if hz <= 0 || hz >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: frequency %q", ErrInvalidParam, text)
	}
	return uint64(hz), nil
}
