package status

import (
	"testing"

	"github.com/dougsko/synthd/pkg/synth"
)

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		hz       uint64
		decimals int
		ghz      bool
		want     string
	}{
		{7100000, 3, false, "7.100 MHz"},
		{455000, 3, false, "455.000 kHz"},
		{1000, 3, false, "1.000 kHz"},
		{999, 3, false, "999 Hz"},
		{0, 3, false, "0 Hz"},
		{40000000, 3, false, "40.000 MHz"},
		{1000000000, 4, true, "1.0000 GHz"},
		{2400000000, 4, true, "2.4000 GHz"},
		{999999999, 4, true, "1000.0000 MHz"},
		{35000000, 4, true, "35.0000 MHz"},
	}

	for _, tt := range tests {
		if got := FormatFrequency(tt.hz, tt.decimals, tt.ghz); got != tt.want {
			t.Errorf("FormatFrequency(%d): expected %q, got %q", tt.hz, tt.want, got)
		}
	}
}

func TestReduce(t *testing.T) {
	t.Run("DDS Enabled", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendDDS, FrequencyHz: 7100000, StepHz: 1000, Enabled: true})
		want := Record{"AD9850 (ON)", "7.100 MHz", "Paso: 1 kHz", "SALIDA ACTIVA"}
		if rec != want {
			t.Errorf("Expected %+v, got %+v", want, rec)
		}
	})

	t.Run("DDS Disabled", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendDDS, FrequencyHz: 500, StepHz: 10})
		want := Record{"AD9850 (OFF)", "500 Hz", "Paso: 10 Hz", "SALIDA APAGADA"}
		if rec != want {
			t.Errorf("Expected %+v, got %+v", want, rec)
		}
	})

	t.Run("DDS Step In MHz", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendDDS, StepHz: 10000000})
		if rec.Secondary != "Paso: 10 MHz" {
			t.Errorf("Expected Paso: 10 MHz, got %s", rec.Secondary)
		}
	})

	t.Run("PLL", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendPLL, FrequencyHz: 2400000000, PowerIndex: 3})
		want := Record{"ADF4351 (OFF)", "2.4000 GHz", "Pot: +5dBm", "Salida: OFF"}
		if rec != want {
			t.Errorf("Expected %+v, got %+v", want, rec)
		}
	})

	t.Run("PLL Power Labels", func(t *testing.T) {
		for i, label := range []string{"-4dBm", "-1dBm", "+2dBm", "+5dBm"} {
			rec := Reduce(synth.State{Backend: synth.BackendPLL, PowerIndex: uint8(i), Enabled: true})
			if rec.Secondary != "Pot: "+label {
				t.Errorf("Power %d: expected %s, got %s", i, label, rec.Secondary)
			}
			if rec.Tertiary != "Salida: ON" {
				t.Errorf("Expected Salida: ON, got %s", rec.Tertiary)
			}
		}
	})

	t.Run("VFO", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendVFO, FrequencyHz: 7200000, StepHz: 1000, BandName: "40m"})
		want := Record{"Si5351 (RX)", "7.200 MHz", "Banda: 40m", "Paso: 1kHz"}
		if rec != want {
			t.Errorf("Expected %+v, got %+v", want, rec)
		}
	})

	t.Run("VFO Transmit Small Step", func(t *testing.T) {
		rec := Reduce(synth.State{Backend: synth.BackendVFO, FrequencyHz: 100000, StepHz: 10, BandName: "GEN", TX: true})
		if rec.Module != "Si5351 (TX)" {
			t.Errorf("Expected Si5351 (TX), got %s", rec.Module)
		}
		if rec.Primary != "100.000 kHz" {
			t.Errorf("Expected 100.000 kHz, got %s", rec.Primary)
		}
		if rec.Tertiary != "Paso: 10Hz" {
			t.Errorf("Expected Paso: 10Hz, got %s", rec.Tertiary)
		}
	})

	t.Run("VFO Below 1 MHz Scales Like DDS", func(t *testing.T) {
		for _, hz := range []uint64{10000, 800000, 999999} {
			vfo := Reduce(synth.State{Backend: synth.BackendVFO, FrequencyHz: hz, StepHz: 1000})
			dds := Reduce(synth.State{Backend: synth.BackendDDS, FrequencyHz: hz, StepHz: 1000})
			if vfo.Primary != dds.Primary {
				t.Errorf("%d Hz: expected %s, got %s", hz, dds.Primary, vfo.Primary)
			}
		}
		rec := Reduce(synth.State{Backend: synth.BackendVFO, FrequencyHz: 10000, StepHz: 1000})
		if rec.Primary != "10.000 kHz" {
			t.Errorf("Expected 10.000 kHz, got %s", rec.Primary)
		}
	})
}

func TestSummary(t *testing.T) {
	rec := Record{"ADF4351 (ON)", "2.4000 GHz", "Pot: +5dBm", "Salida: ON"}
	want := "ADF4351 (ON): 2.400 GHz | Pot: +5dBm Salida: ON"
	if got := rec.Summary(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	rec = Record{Module: "AD9850 (OFF)", Primary: "500 Hz"}
	if got := rec.Summary(); got != "AD9850 (OFF): 500.000 Hz" {
		t.Errorf("Expected bare summary, got %q", got)
	}
}

func TestAggregatorIdempotent(t *testing.T) {
	agg := NewAggregator()
	st := synth.State{Backend: synth.BackendVFO, FrequencyHz: 14100000, StepHz: 5000, BandName: "20m"}

	first := agg.Refresh(st)
	second := agg.Refresh(st)
	if first != second {
		t.Errorf("Expected identical records, got %+v and %+v", first, second)
	}
	if agg.Snapshot() != first {
		t.Errorf("Snapshot does not match last refresh")
	}

	agg.Refresh(synth.State{Backend: synth.BackendDDS, FrequencyHz: 1000000, StepHz: 1000})
	if agg.Snapshot().Module != "AD9850 (OFF)" {
		t.Errorf("Expected record to be overwritten, got %s", agg.Snapshot().Module)
	}
}

func TestLines(t *testing.T) {
	lines := Record{"Si5351 (RX)", "7.200 MHz", "Banda: 40m", "Paso: 1kHz"}.Lines()
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "Si5351 (RX)" || lines[1] != "7.200 MHz" {
		t.Errorf("Unexpected lines %v", lines)
	}
}
