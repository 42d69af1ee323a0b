package synth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/regmath"
)

func testPLLConfig() PLLConfig {
	cfg := DefaultPLLConfig()
	cfg.Settle = 0
	cfg.FinalSettle = 0
	return cfg
}

func newTestPLL(t *testing.T) (*PLL, *hardware.MockSPI) {
	t.Helper()
	bus := hardware.NewMockSPI()
	pll := NewPLL(bus, testPLLConfig())
	require.NoError(t, pll.Setup())
	bus.Reset()
	return pll, bus
}

// lastRegisters decodes the most recent six-word burst indexed by address
func lastRegisters(t *testing.T, bus *hardware.MockSPI) regmath.PLLRegisters {
	t.Helper()
	words := bus.Words()
	require.GreaterOrEqual(t, len(words), 6)
	burst := words[len(words)-6:]
	var regs regmath.PLLRegisters
	for i, w := range burst {
		assert.Equal(t, uint32(5-i), w&0x7, "burst order")
		regs[w&0x7] = w
	}
	return regs
}

func TestPLLSetup(t *testing.T) {
	bus := hardware.NewMockSPI()
	pll := NewPLL(bus, testPLLConfig())
	require.NoError(t, pll.Setup())

	assert.Len(t, bus.Writes(), 6)
	for _, w := range bus.Writes() {
		assert.Len(t, w, 4)
	}

	st := pll.State()
	assert.True(t, st.Available)
	assert.Equal(t, uint64(1000000000), st.FrequencyHz)
	assert.False(t, st.Enabled)
	assert.Equal(t, uint8(3), st.PowerIndex)
	assert.Equal(t, uint64(1000), st.StepHz)
}

func TestPLLSetFrequency(t *testing.T) {
	pll, bus := newTestPLL(t)

	require.NoError(t, pll.SetFrequency(2400000000))
	regs := lastRegisters(t, bus)
	assert.Equal(t, uint32(0x00960000), regs[0])
	assert.Equal(t, uint32(0x0000FFF9), regs[1])
	assert.Equal(t, uint64(2400000000), pll.State().FrequencyHz)

	t.Run("Below Minimum", func(t *testing.T) {
		bus.Reset()
		assert.ErrorIs(t, pll.SetFrequency(10000000), ErrOutOfRange)
		assert.Equal(t, uint64(2400000000), pll.State().FrequencyHz)
		assert.Empty(t, bus.Writes())
	})

	t.Run("Above Maximum", func(t *testing.T) {
		assert.ErrorIs(t, pll.SetFrequency(4400000001), ErrOutOfRange)
		assert.Equal(t, uint64(2400000000), pll.State().FrequencyHz)
	})

	t.Run("Limits Accepted", func(t *testing.T) {
		require.NoError(t, pll.SetFrequency(35000000))
		require.NoError(t, pll.SetFrequency(4400000000))
	})
}

func TestPLLStepDoesNotClamp(t *testing.T) {
	pll, _ := newTestPLL(t)
	require.NoError(t, pll.SetStep(10000000))

	require.NoError(t, pll.SetFrequency(4395000000))
	assert.ErrorIs(t, pll.StepFrequency(Up), ErrOutOfRange)
	assert.Equal(t, uint64(4395000000), pll.State().FrequencyHz)

	require.NoError(t, pll.SetFrequency(40000000))
	assert.ErrorIs(t, pll.StepFrequency(Down), ErrOutOfRange)
	assert.Equal(t, uint64(40000000), pll.State().FrequencyHz)

	require.NoError(t, pll.SetFrequency(45000000))
	require.NoError(t, pll.StepFrequency(Down))
	assert.Equal(t, uint64(35000000), pll.State().FrequencyHz)

	require.NoError(t, pll.StepFrequency(Up))
	assert.Equal(t, uint64(45000000), pll.State().FrequencyHz)
}

func TestPLLSetStep(t *testing.T) {
	pll, bus := newTestPLL(t)

	for _, s := range PLLSteps {
		require.NoError(t, pll.SetStep(s))
		assert.Equal(t, s, pll.State().StepHz)
	}
	assert.Empty(t, bus.Writes(), "step changes never touch the chip")

	assert.ErrorIs(t, pll.SetStep(5000), ErrOutOfRange)
	assert.Equal(t, uint64(10000000), pll.State().StepHz)
}

func TestPLLPowerAndRF(t *testing.T) {
	pll, bus := newTestPLL(t)

	require.NoError(t, pll.SetPower(0))
	regs := lastRegisters(t, bus)
	assert.Equal(t, uint32(0), (regs[4]>>3)&0x3)

	assert.ErrorIs(t, pll.SetPower(4), ErrOutOfRange)
	assert.Equal(t, uint8(0), pll.State().PowerIndex)

	require.NoError(t, pll.Enable())
	regs = lastRegisters(t, bus)
	assert.Equal(t, uint32(1), (regs[4]>>5)&0x1)
	assert.True(t, pll.State().Enabled)

	require.NoError(t, pll.Toggle())
	regs = lastRegisters(t, bus)
	assert.Equal(t, uint32(0), (regs[4]>>5)&0x1)
	assert.False(t, pll.State().Enabled)

	require.NoError(t, pll.Toggle())
	assert.True(t, pll.State().Enabled)

	require.NoError(t, pll.Disable())
	assert.False(t, pll.State().Enabled)
}

func TestPLLStatusDoesNotTransmit(t *testing.T) {
	pll, bus := newTestPLL(t)
	pll.State()
	pll.State()
	assert.Empty(t, bus.Writes())
}

func TestPLLBusFailure(t *testing.T) {
	pll, bus := newTestPLL(t)

	bus.FailWith(errors.New("spi timeout"))
	assert.Error(t, pll.SetFrequency(2000000000))
	assert.Error(t, pll.Enable())

	st := pll.State()
	assert.Equal(t, uint64(1000000000), st.FrequencyHz)
	assert.False(t, st.Enabled)

	t.Run("Setup Failure", func(t *testing.T) {
		p := NewPLL(bus, testPLLConfig())
		assert.Error(t, p.Setup())
		assert.False(t, p.Available())
		assert.ErrorIs(t, p.SetPower(1), ErrUnavailable)
	})
}

func TestPLLAddressBitsAcrossRange(t *testing.T) {
	pll, bus := newTestPLL(t)

	for f := uint64(35000000); f <= 4400000000; f += 97000000 {
		require.NoError(t, pll.SetFrequency(f))
		regs := lastRegisters(t, bus)
		for i, w := range regs {
			assert.Equal(t, uint32(i), w&0x7)
		}
		assert.Equal(t, uint32(regmath.RFDividerSelect(f)), (regs[4]>>20)&0x7, "f=%d", f)
	}
}
