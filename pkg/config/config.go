package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// DDSMaxHz is the highest output the AD9850 supports
const DDSMaxHz = 40000000

// Config represents the synthd configuration
type Config struct {
	DDS struct {
		// false drives a simulated bus
		UseHardware bool `yaml:"use_hardware"`
		// a disabled backend is never set up and answers with an error status
		Disabled bool `yaml:"disabled"`
		WClkPin  int  `yaml:"w_clk_pin"`
		FQUDPin  int  `yaml:"fq_ud_pin"`
		DataPin  int  `yaml:"data_pin"`
		// nil leaves the reset line unwired
		ResetPin   *int    `yaml:"reset_pin"`
		RefClockHz float64 `yaml:"ref_clock_hz"`
		// "modern" (2^32) or "legacy" (2^32-1)
		Divisor string `yaml:"divisor"`
		MaxHz   uint64 `yaml:"max_hz"`
	} `yaml:"dds"`

	PLL struct {
		UseHardware bool   `yaml:"use_hardware"`
		Disabled    bool   `yaml:"disabled"`
		SPIDevice   string `yaml:"spi_device"`
		SPISpeedHz  int    `yaml:"spi_speed_hz"`
		ClockPin    int    `yaml:"clock_pin"`
		DataPin     int    `yaml:"data_pin"`
		LEPin       int    `yaml:"le_pin"`
		RefClockHz  uint64 `yaml:"ref_clock_hz"`
		SettleUS    int    `yaml:"settle_us"`
		FinalUS     int    `yaml:"final_settle_us"`
		// "current" or "legacy" register constants
		Revision string `yaml:"revision"`
	} `yaml:"pll"`

	VFO struct {
		UseHardware bool    `yaml:"use_hardware"`
		Disabled    bool    `yaml:"disabled"`
		I2CDevice   string  `yaml:"i2c_device"`
		Address     int     `yaml:"address"`
		XtalHz      float64 `yaml:"xtal_hz"`
		CorrPPB     int64   `yaml:"correction_ppb"`
		Clock       int     `yaml:"clock"`
		IFKHz       int     `yaml:"if_khz"`
		InitialBand int     `yaml:"initial_band"`
		// only used without an i2c_device: whether the simulated chip answers
		Simulated bool `yaml:"simulated_present"`
	} `yaml:"vfo"`

	RFSwitch struct {
		OscillatorPins []int `yaml:"oscillator_pins"`
		GeneratorPins  []int `yaml:"generator_pins"`
	} `yaml:"rf_switch"`

	Selector struct {
		InitialBackend int `yaml:"initial_backend"`
	} `yaml:"selector"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	API struct {
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxEntries   int    `yaml:"max_entries"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		Console    bool   `yaml:"console"`
	} `yaml:"logging"`

	Hardware struct {
		EnableGPIO     bool `yaml:"enable_gpio"`
		EnableOLED     bool `yaml:"enable_oled"`
		OLEDI2CAddress int  `yaml:"oled_i2c_address"`
		OLEDWidth      int  `yaml:"oled_width"`
		OLEDHeight     int  `yaml:"oled_height"`
	} `yaml:"hardware"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML and fills in defaults
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()
	return &config, nil
}

// Default returns the configuration used when no file is given: every bus
// simulated, VFO chip present.
func Default() *Config {
	var config Config
	config.VFO.Simulated = true
	config.setDefaults()
	return &config
}

func (config *Config) setDefaults() {
	// Pin numbers default to the original board wiring
	if config.DDS.WClkPin == 0 {
		config.DDS.WClkPin = 16
	}
	if config.DDS.FQUDPin == 0 {
		config.DDS.FQUDPin = 4
	}
	if config.DDS.DataPin == 0 {
		config.DDS.DataPin = 2
	}
	if config.DDS.RefClockHz == 0 {
		config.DDS.RefClockHz = 125000000
	}
	if config.DDS.Divisor == "" {
		config.DDS.Divisor = "modern"
	}
	if config.DDS.MaxHz == 0 {
		config.DDS.MaxHz = DDSMaxHz
	}

	if config.PLL.SPISpeedHz == 0 {
		config.PLL.SPISpeedHz = 1000000
	}
	if config.PLL.ClockPin == 0 {
		config.PLL.ClockPin = 18
	}
	if config.PLL.DataPin == 0 {
		config.PLL.DataPin = 23
	}
	if config.PLL.LEPin == 0 {
		config.PLL.LEPin = 5
	}
	if config.PLL.RefClockHz == 0 {
		config.PLL.RefClockHz = 8000000
	}
	if config.PLL.SettleUS == 0 {
		config.PLL.SettleUS = 10
	}
	if config.PLL.FinalUS == 0 {
		config.PLL.FinalUS = 100
	}
	if config.PLL.Revision == "" {
		config.PLL.Revision = "current"
	}

	if config.VFO.Address == 0 {
		config.VFO.Address = 0x60
	}
	if config.VFO.XtalHz == 0 {
		config.VFO.XtalHz = 25000000
	}
	if config.VFO.IFKHz == 0 {
		config.VFO.IFKHz = 455
	}
	if config.VFO.InitialBand == 0 {
		config.VFO.InitialBand = 7
	}

	if len(config.RFSwitch.OscillatorPins) == 0 {
		config.RFSwitch.OscillatorPins = []int{12, 13, 33}
	}
	if len(config.RFSwitch.GeneratorPins) == 0 {
		config.RFSwitch.GeneratorPins = []int{25, 26, 27}
	}

	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "0.0.0.0"
	}
	if config.API.UnixSocket == "" {
		config.API.UnixSocket = "/tmp/synthd.sock"
	}
	if config.Storage.DatabasePath == "" {
		config.Storage.DatabasePath = "./synthd.db"
	}
	if config.Storage.MaxEntries == 0 {
		config.Storage.MaxEntries = 10000
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 3
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 28
	}

	if config.Hardware.OLEDI2CAddress == 0 {
		config.Hardware.OLEDI2CAddress = 0x3C
	}
	if config.Hardware.OLEDWidth == 0 {
		config.Hardware.OLEDWidth = 128
	}
	if config.Hardware.OLEDHeight == 0 {
		config.Hardware.OLEDHeight = 64
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.DDS.Divisor) {
	case "modern", "legacy":
	default:
		return fmt.Errorf("dds divisor must be modern or legacy, got %q", c.DDS.Divisor)
	}
	if c.DDS.RefClockHz <= 0 {
		return fmt.Errorf("dds reference clock must be positive")
	}
	if c.DDS.MaxHz > DDSMaxHz {
		return fmt.Errorf("dds max_hz %d exceeds the AD9850 limit of %d Hz", c.DDS.MaxHz, DDSMaxHz)
	}
	if c.DDS.ResetPin != nil && *c.DDS.ResetPin < 0 {
		return fmt.Errorf("dds reset_pin must be a GPIO number, got %d", *c.DDS.ResetPin)
	}
	switch strings.ToLower(c.PLL.Revision) {
	case "current", "legacy":
	default:
		return fmt.Errorf("pll revision must be current or legacy, got %q", c.PLL.Revision)
	}
	if c.VFO.Address <= 0 || c.VFO.Address > 0x7F {
		return fmt.Errorf("vfo i2c address 0x%x out of range", c.VFO.Address)
	}
	if c.VFO.IFKHz < 0 {
		return fmt.Errorf("vfo if_khz must not be negative, got %d", c.VFO.IFKHz)
	}
	if c.VFO.Clock < 0 || c.VFO.Clock > 2 {
		return fmt.Errorf("vfo clock output must be 0..2, got %d", c.VFO.Clock)
	}
	if c.VFO.InitialBand < 1 || c.VFO.InitialBand > 21 {
		return fmt.Errorf("vfo initial band must be 1..21, got %d", c.VFO.InitialBand)
	}
	if len(c.RFSwitch.OscillatorPins) != 3 {
		return fmt.Errorf("rf_switch oscillator_pins needs 3 lines, got %d", len(c.RFSwitch.OscillatorPins))
	}
	if len(c.RFSwitch.GeneratorPins) != 3 {
		return fmt.Errorf("rf_switch generator_pins needs 3 lines, got %d", len(c.RFSwitch.GeneratorPins))
	}
	if c.Selector.InitialBackend < 0 || c.Selector.InitialBackend > 2 {
		return fmt.Errorf("selector initial_backend must be 0..2, got %d", c.Selector.InitialBackend)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	if c.API.UnixSocket == "" {
		return fmt.Errorf("api unix socket path is required")
	}
	return nil
}

// DDSResetPin returns the AD9850 reset GPIO, or -1 when unwired
func (c *Config) DDSResetPin() int {
	if c.DDS.ResetPin == nil {
		return -1
	}
	return *c.DDS.ResetPin
}

// LegacyDivisor reports whether the DDS uses the 2^32-1 divisor
func (c *Config) LegacyDivisor() bool {
	return strings.EqualFold(c.DDS.Divisor, "legacy")
}

// LegacyPLL reports whether the PLL uses the older register constants
func (c *Config) LegacyPLL() bool {
	return strings.EqualFold(c.PLL.Revision, "legacy")
}
