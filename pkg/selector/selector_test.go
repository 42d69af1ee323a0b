package selector

import (
	"errors"
	"testing"

	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/synth"
)

func newTestSelector(t *testing.T) (*Selector, *hardware.MockGPIO) {
	t.Helper()
	gpio := hardware.NewMockGPIO()
	osc := hardware.NewRFSwitch("oscillator", gpio, [3]int{12, 13, 33})
	gen := hardware.NewRFSwitch("generator", gpio, [3]int{25, 26, 27})
	sel, err := New(synth.BackendVFO, osc, gen)
	if err != nil {
		t.Fatalf("Failed to create selector: %v", err)
	}
	return sel, gpio
}

func TestSetActive(t *testing.T) {
	sel, _ := newTestSelector(t)

	if sel.Active() != synth.BackendVFO {
		t.Errorf("Expected VFO active, got %s", sel.Active())
	}

	for _, id := range []int{1, 2, 0} {
		if err := sel.SetActive(id); err != nil {
			t.Errorf("SetActive(%d) failed: %v", id, err)
		}
		if int(sel.Active()) != id {
			t.Errorf("Expected active %d, got %d", id, sel.Active())
		}
	}

	t.Run("Invalid Id", func(t *testing.T) {
		for _, id := range []int{-1, 3, 42} {
			err := sel.SetActive(id)
			if !errors.Is(err, ErrInvalidRoute) {
				t.Errorf("SetActive(%d): expected ErrInvalidRoute, got %v", id, err)
			}
		}
		if sel.Active() != synth.BackendVFO {
			t.Errorf("Active backend changed on invalid id")
		}
	})
}

func TestNewRejectsInvalidBackend(t *testing.T) {
	if _, err := New(synth.Backend(7), nil, nil); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute, got %v", err)
	}
}

func TestSelectOscillator(t *testing.T) {
	sel, gpio := newTestSelector(t)

	if err := sel.SelectOscillator(5); err != nil {
		t.Fatalf("SelectOscillator failed: %v", err)
	}

	want := map[int]bool{12: true, 13: false, 33: true}
	for pin, level := range want {
		got, _ := gpio.GetPin(pin)
		if got != level {
			t.Errorf("Pin %d: expected %v, got %v", pin, level, got)
		}
	}

	osc, gen := sel.Routes()
	if osc != 5 || gen != 0 {
		t.Errorf("Expected routes (5, 0), got (%d, %d)", osc, gen)
	}
}

func TestSelectGenerator(t *testing.T) {
	sel, gpio := newTestSelector(t)

	if err := sel.SelectGenerator(6); err != nil {
		t.Fatalf("SelectGenerator failed: %v", err)
	}
	want := map[int]bool{25: false, 26: true, 27: true}
	for pin, level := range want {
		got, _ := gpio.GetPin(pin)
		if got != level {
			t.Errorf("Pin %d: expected %v, got %v", pin, level, got)
		}
	}

	t.Run("Out Of Range", func(t *testing.T) {
		if err := sel.SelectGenerator(8); !errors.Is(err, ErrInvalidRoute) {
			t.Errorf("Expected ErrInvalidRoute, got %v", err)
		}
		if _, gen := sel.Routes(); gen != 6 {
			t.Errorf("Expected generator to stay on 6, got %d", gen)
		}
	})
}

func TestRoutingDoesNotChangeActive(t *testing.T) {
	sel, _ := newTestSelector(t)
	if err := sel.SetActive(2); err != nil {
		t.Fatal(err)
	}
	sel.SelectOscillator(3)
	sel.SelectGenerator(4)
	if sel.Active() != synth.BackendPLL {
		t.Errorf("Expected PLL to remain active, got %s", sel.Active())
	}
}

func TestReset(t *testing.T) {
	sel, gpio := newTestSelector(t)
	sel.SelectOscillator(7)
	sel.SelectGenerator(7)

	if err := sel.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	for _, pin := range []int{12, 13, 33, 25, 26, 27} {
		if v, _ := gpio.GetPin(pin); v {
			t.Errorf("Pin %d still high after reset", pin)
		}
	}

	t.Run("Without Switches", func(t *testing.T) {
		bare, _ := New(synth.BackendDDS, nil, nil)
		if err := bare.Reset(); err != nil {
			t.Errorf("Reset without switches should succeed, got %v", err)
		}
		if err := bare.SelectOscillator(1); !errors.Is(err, ErrInvalidRoute) {
			t.Errorf("Expected ErrInvalidRoute, got %v", err)
		}
		osc, gen := bare.Routes()
		if osc != -1 || gen != -1 {
			t.Errorf("Expected (-1, -1), got (%d, %d)", osc, gen)
		}
	})
}
