package protocol

import (
	"errors"
	"testing"

	"github.com/dougsko/synthd/pkg/synth"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"7.1m", 7100000},
		{"7.1M", 7100000},
		{"2.4g", 2400000000},
		{"455k", 455000},
		{"1000", 1000},
		{" 14.074m ", 14074000},
		{"0.5k", 500},
		{"3.5555m", 3555500},
	}

	for _, tt := range tests {
		got, err := ParseFrequency(tt.in)
		if err != nil {
			t.Errorf("ParseFrequency(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFrequency(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"abc", "0", "-5m", "k", "1.2.3"} {
		if _, err := ParseFrequency(bad); !errors.Is(err, ErrInvalidParam) {
			t.Errorf("ParseFrequency(%q): expected ErrInvalidParam, got %v", bad, err)
		}
	}
}

func TestInputParser(t *testing.T) {
	t.Run("Step Up And Down", func(t *testing.T) {
		p := NewInputParser()
		cmd, err := p.Parse(synth.BackendDDS, "+")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cmd.Accion != "ad9850_command" || cmd.SubAccion != SubChangeFreq {
			t.Errorf("Unexpected command %s", cmd.JSON())
		}
		if d, _ := cmd.Direction(); d != synth.Up {
			t.Errorf("Expected up")
		}

		cmd, _ = p.Parse(synth.BackendVFO, "-")
		if cmd.Accion != "vfo_command" {
			t.Errorf("Expected vfo_command, got %s", cmd.Accion)
		}
		if d, _ := cmd.Direction(); d != synth.Down {
			t.Errorf("Expected down")
		}
	})

	t.Run("Direct Frequency On DDS", func(t *testing.T) {
		cmd, err := NewInputParser().Parse(synth.BackendDDS, "7.1m")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cmd.SubAccion != SubSetFreq {
			t.Errorf("Expected set_freq, got %s", cmd.SubAccion)
		}
		if hz, _ := cmd.Uint64(ParamFrequency); hz != 7100000 {
			t.Errorf("Expected 7100000, got %d", hz)
		}
	})

	t.Run("Direct Frequency On VFO", func(t *testing.T) {
		for _, in := range []string{"7.1m", "1000", "abc"} {
			if _, err := NewInputParser().Parse(synth.BackendVFO, in); !errors.Is(err, ErrDirectSetUnsupported) {
				t.Errorf("Parse(%q): expected ErrDirectSetUnsupported, got %v", in, err)
			}
		}
	})

	t.Run("PLL Minimum", func(t *testing.T) {
		p := NewInputParser()
		if _, err := p.Parse(synth.BackendPLL, "10m"); !errors.Is(err, ErrInvalidParam) {
			t.Errorf("Expected ErrInvalidParam, got %v", err)
		}
		cmd, err := p.Parse(synth.BackendPLL, "2.4g")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if hz, _ := cmd.Uint64(ParamFrequency); hz != 2400000000 {
			t.Errorf("Expected 2400000000, got %d", hz)
		}
	})

	t.Run("Step Cycling", func(t *testing.T) {
		p := NewInputParser()
		want := []uint64{10000, 100000, 1000000, 10000000, 10, 100, 1000}
		for i, w := range want {
			cmd, err := p.Parse(synth.BackendPLL, "s")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if step, _ := cmd.Uint64(ParamStep); step != w {
				t.Errorf("Press %d: expected %d, got %d", i+1, w, step)
			}
		}
	})

	t.Run("VFO Step Has No Value", func(t *testing.T) {
		cmd, _ := NewInputParser().Parse(synth.BackendVFO, "s")
		if cmd.SubAccion != SubSetStep {
			t.Errorf("Expected set_step, got %s", cmd.SubAccion)
		}
		if cmd.Has(ParamStep) {
			t.Errorf("VFO step command should carry no paso_hz")
		}
	})

	t.Run("Power Cycling", func(t *testing.T) {
		p := NewInputParser()
		for _, w := range []int{0, 1, 2, 3, 0} {
			cmd, err := p.Parse(synth.BackendPLL, "P")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if pw, _ := cmd.Int(ParamPower); pw != w {
				t.Errorf("Expected power %d, got %d", w, pw)
			}
		}
		if _, err := p.Parse(synth.BackendDDS, "p"); !errors.Is(err, synth.ErrUnsupported) {
			t.Errorf("Expected ErrUnsupported on DDS, got %v", err)
		}
	})

	t.Run("Band", func(t *testing.T) {
		cmd, err := NewInputParser().Parse(synth.BackendVFO, "b")
		if err != nil || cmd.SubAccion != SubSetBand {
			t.Errorf("Expected set_band, got %v (%v)", cmd, err)
		}
		if _, err := NewInputParser().Parse(synth.BackendDDS, "b"); !errors.Is(err, ErrInvalidParam) {
			t.Errorf("Expected ErrInvalidParam for band on DDS, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := NewInputParser().Parse(synth.BackendDDS, "  "); !errors.Is(err, ErrMissingParam) {
			t.Errorf("Expected ErrMissingParam, got %v", err)
		}
	})
}
