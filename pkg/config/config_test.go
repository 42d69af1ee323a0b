package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dougsko/synthd/pkg/regmath"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary directory for test files
	tempDir, err := os.MkdirTemp("", "synthd-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
dds:
  use_hardware: true
  w_clk_pin: 17
  reset_pin: 0
  divisor: legacy

pll:
  use_hardware: true
  spi_device: "/dev/spidev0.0"
  spi_speed_hz: 2000000
  revision: legacy
  disabled: true

vfo:
  use_hardware: true
  i2c_device: "/dev/i2c-1"
  address: 0x60
  xtal_hz: 27000000
  correction_ppb: -1500
  if_khz: 10700
  initial_band: 11

rf_switch:
  oscillator_pins: [5, 6, 13]
  generator_pins: [19, 20, 21]

web:
  port: 9090
  bind_address: "127.0.0.1"

api:
  unix_socket: "/run/synthd.sock"

storage:
  database_path: "/tmp/synthd.db"
  max_entries: 500

logging:
  level: "debug"
  file: "/var/log/synthd.log"
  console: true
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if !config.DDS.UseHardware || config.DDS.WClkPin != 17 {
			t.Errorf("Expected DDS hardware on W_CLK 17, got %v/%d", config.DDS.UseHardware, config.DDS.WClkPin)
		}
		if config.DDSResetPin() != 0 {
			t.Errorf("Expected reset on GPIO 0, got %d", config.DDSResetPin())
		}
		if !config.PLL.Disabled {
			t.Error("Expected PLL disabled")
		}
		if !config.LegacyDivisor() {
			t.Error("Expected legacy divisor")
		}
		if config.PLL.SPIDevice != "/dev/spidev0.0" {
			t.Errorf("Expected spi device /dev/spidev0.0, got %s", config.PLL.SPIDevice)
		}
		if config.PLL.SPISpeedHz != 2000000 {
			t.Errorf("Expected spi speed 2000000, got %d", config.PLL.SPISpeedHz)
		}
		if !config.LegacyPLL() {
			t.Error("Expected legacy PLL constants")
		}
		if config.VFO.XtalHz != 27000000 {
			t.Errorf("Expected crystal 27000000, got %f", config.VFO.XtalHz)
		}
		if config.VFO.CorrPPB != -1500 {
			t.Errorf("Expected correction -1500, got %d", config.VFO.CorrPPB)
		}
		if config.VFO.IFKHz != 10700 {
			t.Errorf("Expected IF 10700 kHz, got %d", config.VFO.IFKHz)
		}
		if config.RFSwitch.GeneratorPins[2] != 21 {
			t.Errorf("Expected generator pin 21, got %v", config.RFSwitch.GeneratorPins)
		}
		if config.Web.Port != 9090 {
			t.Errorf("Expected web port 9090, got %d", config.Web.Port)
		}
		if config.API.UnixSocket != "/run/synthd.sock" {
			t.Errorf("Expected socket /run/synthd.sock, got %s", config.API.UnixSocket)
		}
		if config.Storage.MaxEntries != 500 {
			t.Errorf("Expected max entries 500, got %d", config.Storage.MaxEntries)
		}
		if config.Logging.Level != "debug" {
			t.Errorf("Expected log level debug, got %s", config.Logging.Level)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Expected valid config, got: %v", err)
		}
	})

	t.Run("Config With Defaults", func(t *testing.T) {
		configContent := `
dds:
  use_hardware: true
`
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.DDS.RefClockHz != 125000000 {
			t.Errorf("Expected default ref clock 125 MHz, got %f", config.DDS.RefClockHz)
		}
		if config.DDS.ResetPin != nil || config.DDSResetPin() != -1 {
			t.Errorf("Expected reset pin unwired, got %d", config.DDSResetPin())
		}
		if config.LegacyDivisor() {
			t.Error("Expected modern divisor by default")
		}
		if config.PLL.RefClockHz != 8000000 {
			t.Errorf("Expected default PLL reference 8 MHz, got %d", config.PLL.RefClockHz)
		}
		if config.VFO.Address != 0x60 {
			t.Errorf("Expected default VFO address 0x60, got 0x%x", config.VFO.Address)
		}
		if config.VFO.IFKHz != 455 {
			t.Errorf("Expected default IF 455 kHz, got %d", config.VFO.IFKHz)
		}
		if config.VFO.InitialBand != 7 {
			t.Errorf("Expected default band 7, got %d", config.VFO.InitialBand)
		}
		if len(config.RFSwitch.OscillatorPins) != 3 || config.RFSwitch.OscillatorPins[0] != 12 {
			t.Errorf("Expected default oscillator pins, got %v", config.RFSwitch.OscillatorPins)
		}
		if config.API.UnixSocket != "/tmp/synthd.sock" {
			t.Errorf("Expected default socket /tmp/synthd.sock, got %s", config.API.UnixSocket)
		}
		if config.Web.BindAddress != "0.0.0.0" {
			t.Errorf("Expected default bind address 0.0.0.0, got %s", config.Web.BindAddress)
		}
		if config.Storage.MaxEntries != 10000 {
			t.Errorf("Expected default max entries 10000, got %d", config.Storage.MaxEntries)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", config.Logging.Level)
		}
		if config.Logging.MaxBackups != 3 {
			t.Errorf("Expected default log max backups 3, got %d", config.Logging.MaxBackups)
		}
	})

	t.Run("File Not Found", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if err == nil {
			t.Fatal("Expected error for nonexistent file, got nil")
		}
		if !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("Expected 'failed to read config file' error, got: %v", err)
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		configContent := `
dds:
  use_hardware: true
  divisor: [invalid yaml structure
`
		configPath := filepath.Join(tempDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := LoadConfig(configPath)
		if err == nil {
			t.Fatal("Expected error for invalid YAML, got nil")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected 'failed to parse config file' error, got: %v", err)
		}
	})

	t.Run("Empty File", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "empty.yaml")
		if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
			t.Fatalf("Failed to write empty config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error for empty file, got: %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Expected defaults to validate, got: %v", err)
		}
	})
}

func TestDefault(t *testing.T) {
	config := Default()
	if !config.VFO.Simulated {
		t.Error("Expected simulated VFO to be present by default")
	}
	if config.DDS.UseHardware || config.PLL.UseHardware || config.VFO.UseHardware {
		t.Error("Expected simulated buses by default")
	}
	if config.DDS.Disabled || config.PLL.Disabled || config.VFO.Disabled {
		t.Error("Expected every backend enabled by default")
	}
	if config.DDS.MaxHz != DDSMaxHz {
		t.Errorf("Expected DDS max %d, got %d", DDSMaxHz, config.DDS.MaxHz)
	}

	// The default reference is the current board's 8 MHz crystal
	dividers, err := regmath.ComputePLLDividers(2400000000, config.PLL.RefClockHz)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if dividers.Int != 300 || dividers.Frac != 0 {
		t.Errorf("Expected INT 300 FRAC 0 at 2.4 GHz, got %d/%d", dividers.Int, dividers.Frac)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"Unknown Divisor", func(c *Config) { c.DDS.Divisor = "exact" }, "dds divisor"},
		{"Zero Ref Clock", func(c *Config) { c.DDS.RefClockHz = -1 }, "reference clock"},
		{"DDS Max Above Device", func(c *Config) { c.DDS.MaxHz = DDSMaxHz + 1 }, "max_hz"},
		{"Negative Reset Pin", func(c *Config) { pin := -1; c.DDS.ResetPin = &pin }, "reset_pin"},
		{"Negative IF", func(c *Config) { c.VFO.IFKHz = -455 }, "if_khz"},
		{"Unknown Revision", func(c *Config) { c.PLL.Revision = "v3" }, "pll revision"},
		{"Address Too Large", func(c *Config) { c.VFO.Address = 0x80 }, "i2c address"},
		{"Clock Output", func(c *Config) { c.VFO.Clock = 3 }, "clock output"},
		{"Band Out Of Table", func(c *Config) { c.VFO.InitialBand = 22 }, "initial band"},
		{"Short Switch", func(c *Config) { c.RFSwitch.OscillatorPins = []int{1, 2} }, "oscillator_pins"},
		{"Long Switch", func(c *Config) { c.RFSwitch.GeneratorPins = []int{1, 2, 3, 4} }, "generator_pins"},
		{"Initial Backend", func(c *Config) { c.Selector.InitialBackend = 3 }, "initial_backend"},
		{"Web Port", func(c *Config) { c.Web.Port = 70000 }, "web port"},
		{"Socket Path", func(c *Config) { c.API.UnixSocket = "" }, "unix socket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.errMsg, err)
			}
		})
	}

	t.Run("Divisor Is Case Insensitive", func(t *testing.T) {
		config := Default()
		config.DDS.Divisor = "Legacy"
		if err := config.Validate(); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if !config.LegacyDivisor() {
			t.Error("Expected legacy divisor")
		}
	})
}
