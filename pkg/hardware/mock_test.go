package hardware

import (
	"errors"
	"testing"
)

func TestMockGPIO(t *testing.T) {
	gpio := NewMockGPIO()

	t.Run("Initialize", func(t *testing.T) {
		err := gpio.Initialize()
		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
	})

	t.Run("Set and Get Pin", func(t *testing.T) {
		pin := 12

		if err := gpio.SetPin(pin, true); err != nil {
			t.Errorf("Failed to set pin high: %v", err)
		}
		value, err := gpio.GetPin(pin)
		if err != nil {
			t.Errorf("Failed to get pin value: %v", err)
		}
		if !value {
			t.Error("Expected pin to be high")
		}

		if err := gpio.SetPin(pin, false); err != nil {
			t.Errorf("Failed to set pin low: %v", err)
		}
		value, _ = gpio.GetPin(pin)
		if value {
			t.Error("Expected pin to be low")
		}
	})

	t.Run("Unset Pin Default", func(t *testing.T) {
		value, err := gpio.GetPin(99)
		if err != nil {
			t.Errorf("Failed to get unset pin: %v", err)
		}
		if value {
			t.Error("Expected unset pin to be false")
		}
	})

	t.Run("History Recording", func(t *testing.T) {
		gpio.SetPin(1, true)
		if len(gpio.History()) != 0 {
			t.Error("Expected no history before Record")
		}

		gpio.Record()
		gpio.SetPin(2, true)
		gpio.SetPin(2, false)
		history := gpio.History()
		if len(history) != 2 {
			t.Fatalf("Expected 2 writes, got %d", len(history))
		}
		if history[0] != (PinWrite{Pin: 2, Value: true}) {
			t.Errorf("Unexpected first write: %+v", history[0])
		}
	})

	t.Run("Close", func(t *testing.T) {
		if err := gpio.Close(); err != nil {
			t.Errorf("Expected no error on close, got: %v", err)
		}
	})
}

func TestMockOLED(t *testing.T) {
	width, height := 128, 64
	oled := NewMockOLED(width, height)

	t.Run("Dimensions", func(t *testing.T) {
		if oled.GetWidth() != width {
			t.Errorf("Expected width %d, got %d", width, oled.GetWidth())
		}
		if oled.GetHeight() != height {
			t.Errorf("Expected height %d, got %d", height, oled.GetHeight())
		}
	})

	t.Run("Invalid Line Number", func(t *testing.T) {
		if err := oled.WriteLine(8, "Invalid line"); err == nil {
			t.Error("Expected error for invalid line number")
		}
		if err := oled.WriteLine(-1, "Negative line"); err == nil {
			t.Error("Expected error for negative line number")
		}
	})

	t.Run("Display Latches Lines", func(t *testing.T) {
		oled.Clear()
		oled.WriteLine(0, "AD9850 (ON)")
		oled.WriteLine(1, "7.100 MHz")
		if len(oled.Shown()) != 0 {
			t.Error("Expected nothing shown before Display")
		}

		if err := oled.Display(); err != nil {
			t.Fatalf("Failed to update display: %v", err)
		}
		shown := oled.Shown()
		if len(shown) != 2 || shown[1] != "7.100 MHz" {
			t.Errorf("Unexpected display content: %v", shown)
		}
	})
}

func TestMockSPI(t *testing.T) {
	spi := NewMockSPI()

	spi.Write([]byte{0x00, 0x58, 0x00, 0x05})
	spi.Write([]byte{0x00, 0x96, 0x00, 0x00})

	words := spi.Words()
	if len(words) != 2 {
		t.Fatalf("Expected 2 words, got %d", len(words))
	}
	if words[0] != 0x00580005 || words[1] != 0x00960000 {
		t.Errorf("Unexpected words: %08X %08X", words[0], words[1])
	}

	failure := errors.New("bus stuck")
	spi.FailWith(failure)
	if err := spi.Write([]byte{1}); !errors.Is(err, failure) {
		t.Errorf("Expected injected failure, got %v", err)
	}

	spi.FailWith(nil)
	spi.Reset()
	if len(spi.Writes()) != 0 {
		t.Error("Expected no writes after reset")
	}
}

func TestMockI2C(t *testing.T) {
	bus := NewMockI2C()

	t.Run("Absent Device", func(t *testing.T) {
		_, err := bus.ReadRegister(0x60, 0)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Expected ErrDeviceNotFound, got %v", err)
		}
		if err := bus.WriteRegister(0x60, 0, []byte{1}); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Expected ErrDeviceNotFound on write, got %v", err)
		}
	})

	t.Run("Auto Increment", func(t *testing.T) {
		bus.AddDevice(0x60)
		if err := bus.WriteRegister(0x60, 26, []byte{0xAA, 0xBB, 0xCC}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if bus.Register(0x60, 28) != 0xCC {
			t.Errorf("Expected 0xCC at reg 28, got 0x%02X", bus.Register(0x60, 28))
		}
		v, err := bus.ReadRegister(0x60, 27)
		if err != nil || v != 0xBB {
			t.Errorf("Expected 0xBB, got 0x%02X (%v)", v, err)
		}
	})
}

func TestMockInterfaces(t *testing.T) {
	t.Run("GPIO Interface Compliance", func(t *testing.T) {
		var _ GPIOInterface = (*MockGPIO)(nil)
		var _ GPIOInterface = (*LinuxGPIO)(nil)
	})

	t.Run("OLED Interface Compliance", func(t *testing.T) {
		var _ OLEDInterface = (*MockOLED)(nil)
	})

	t.Run("Bus Interface Compliance", func(t *testing.T) {
		var _ DDSBus = (*MockDDSBus)(nil)
		var _ DDSBus = (*DDSSerial)(nil)
		var _ SPIBus = (*MockSPI)(nil)
		var _ SPIBus = (*BitBangSPI)(nil)
		var _ SPIBus = (*SPIDev)(nil)
		var _ I2CBus = (*MockI2C)(nil)
		var _ I2CBus = (*I2CDev)(nil)
	})
}
