package engine

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dougsko/synthd/pkg/config"
	"github.com/dougsko/synthd/pkg/hardware"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/protocol"
	"github.com/dougsko/synthd/pkg/regmath"
	"github.com/dougsko/synthd/pkg/router"
	"github.com/dougsko/synthd/pkg/selector"
	"github.com/dougsko/synthd/pkg/status"
	"github.com/dougsko/synthd/pkg/storage"
	"github.com/dougsko/synthd/pkg/synth"
)

// Sources recorded in the journal
const (
	SourceSocket    = "socket"
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
	SourceInternal  = "internal"
)

// ErrNotInitialized is returned by Execute before Initialize has run
var ErrNotInitialized = errors.New("engine not initialized")

// CoreEngine owns the synthesizer state and executes one command at a time
type CoreEngine struct {
	config     *config.Config
	socketPath string
	listener   net.Listener
	running    bool
	mutex      sync.RWMutex
	startTime  time.Time

	// held for the whole of a command
	execMutex sync.Mutex

	hardwareManager *hardware.HardwareManager
	drivers         []synth.Driver
	selector        *selector.Selector
	aggregator      *status.Aggregator
	router          *router.Router
	journal         *storage.CommandJournal
	initialized     bool

	subMutex    sync.Mutex
	subscribers map[int]chan *protocol.Response
	nextSubID   int
}

// HardwareConfigFrom maps the daemon configuration onto the hardware manager's
func HardwareConfigFrom(cfg *config.Config) hardware.HardwareConfig {
	hc := hardware.HardwareConfig{
		EnableGPIO:     cfg.Hardware.EnableGPIO,
		EnableOLED:     cfg.Hardware.EnableOLED,
		OLEDI2CAddress: cfg.Hardware.OLEDI2CAddress,
		OLEDWidth:      cfg.Hardware.OLEDWidth,
		OLEDHeight:     cfg.Hardware.OLEDHeight,

		EnableDDS: cfg.DDS.UseHardware,
		DDSPins: hardware.DDSPins{
			WClk:  cfg.DDS.WClkPin,
			FQUD:  cfg.DDS.FQUDPin,
			Data:  cfg.DDS.DataPin,
			Reset: cfg.DDSResetPin(),
		},

		EnablePLL:  cfg.PLL.UseHardware,
		SPIDevice:  cfg.PLL.SPIDevice,
		SPISpeedHz: cfg.PLL.SPISpeedHz,
		PLLPins: hardware.SPIPins{
			Clock: cfg.PLL.ClockPin,
			Data:  cfg.PLL.DataPin,
			LE:    cfg.PLL.LEPin,
		},

		EnableVFO:  cfg.VFO.UseHardware,
		I2CDevice:  cfg.VFO.I2CDevice,
		VFOAddress: cfg.VFO.Address,
		VFOXtalHz:  cfg.VFO.XtalHz,
		VFOCorrPPB: cfg.VFO.CorrPPB,
		VFOPresent: cfg.VFO.Simulated,
	}
	copy(hc.OscillatorSwitchPins[:], cfg.RFSwitch.OscillatorPins)
	copy(hc.GeneratorSwitchPins[:], cfg.RFSwitch.GeneratorPins)
	return hc
}

// NewCoreEngine creates a new core engine
func NewCoreEngine(cfg *config.Config, socketPath string) *CoreEngine {
	return &CoreEngine{
		config:          cfg,
		socketPath:      socketPath,
		startTime:       time.Now(),
		hardwareManager: hardware.NewHardwareManager(HardwareConfigFrom(cfg)),
		aggregator:      status.NewAggregator(),
		subscribers:     make(map[int]chan *protocol.Response),
	}
}

func (e *CoreEngine) buildDrivers() []synth.Driver {
	ddsCfg := synth.DefaultDDSConfig()
	ddsCfg.RefClockHz = e.config.DDS.RefClockHz
	ddsCfg.MaxHz = e.config.DDS.MaxHz
	if e.config.LegacyDivisor() {
		ddsCfg.Divisor = regmath.DDSLegacyDivisor
	}

	pllCfg := synth.DefaultPLLConfig()
	pllCfg.RefClockHz = e.config.PLL.RefClockHz
	pllCfg.Settle = time.Duration(e.config.PLL.SettleUS) * time.Microsecond
	pllCfg.FinalSettle = time.Duration(e.config.PLL.FinalUS) * time.Microsecond
	if e.config.LegacyPLL() {
		pllCfg.Constants = regmath.LegacyPLLConstants()
	}

	vfoCfg := synth.DefaultVFOConfig()
	vfoCfg.Clock = uint8(e.config.VFO.Clock)
	vfoCfg.IFOffsetHz = uint64(e.config.VFO.IFKHz) * 1000
	vfoCfg.InitialBand = e.config.VFO.InitialBand

	return []synth.Driver{
		synth.NewVFO(e.hardwareManager.ClockGen(), vfoCfg),
		synth.NewDDS(e.hardwareManager.DDSBus(), ddsCfg),
		synth.NewPLL(e.hardwareManager.SPIBus(), pllCfg),
	}
}

// Initialize brings up the hardware and the drivers. A backend whose setup
// fails is logged and left unavailable; the engine still starts.
func (e *CoreEngine) Initialize() error {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	if e.initialized {
		return nil
	}

	if err := e.hardwareManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware manager: %w", err)
	}

	e.drivers = e.buildDrivers()
	for _, d := range e.drivers {
		if e.disabled(d.Backend()) {
			logging.Infof("engine", "%s disabled by configuration", d.Name())
			continue
		}
		if err := d.Setup(); err != nil {
			logging.GetGlobalLogger().WithFields(map[string]interface{}{"backend": d.Name()}).
				Warnf("engine", "Backend unavailable: %v", err)
			continue
		}
		logging.Infof("engine", "%s ready", d.Name())
	}

	sel, err := selector.New(synth.Backend(e.config.Selector.InitialBackend),
		e.hardwareManager.OscillatorSwitch(), e.hardwareManager.GeneratorSwitch())
	if err != nil {
		return fmt.Errorf("failed to create selector: %w", err)
	}
	if err := sel.Reset(); err != nil {
		logging.Warnf("engine", "Failed to reset RF switches: %v", err)
	}
	e.selector = sel
	e.router = router.New(sel, e.aggregator, protocol.NewInputParser(), e.drivers...)

	if e.config.Storage.DatabasePath != "" {
		journal, err := storage.NewCommandJournal(e.config.Storage.DatabasePath, e.config.Storage.MaxEntries)
		if err != nil {
			logging.Warnf("engine", "Command journal disabled: %v", err)
		} else {
			e.journal = journal
		}
	}

	if d, ok := e.router.Driver(sel.Active()); ok {
		e.showRecord(e.aggregator.Refresh(d.State()))
	}

	e.initialized = true
	return nil
}

func (e *CoreEngine) disabled(b synth.Backend) bool {
	switch b {
	case synth.BackendDDS:
		return e.config.DDS.Disabled
	case synth.BackendPLL:
		return e.config.PLL.Disabled
	case synth.BackendVFO:
		return e.config.VFO.Disabled
	}
	return false
}

// Start initializes the engine and starts the Unix socket server
func (e *CoreEngine) Start() error {
	if err := e.Initialize(); err != nil {
		return err
	}

	// Remove a stale socket file
	os.Remove(e.socketPath)

	listener, err := net.Listen("unix", e.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create Unix socket: %w", err)
	}

	if err := os.Chmod(e.socketPath, 0660); err != nil {
		logging.Warnf("engine", "Failed to set socket permissions: %v", err)
	}

	e.mutex.Lock()
	e.listener = listener
	e.running = true
	e.mutex.Unlock()

	logging.Infof("engine", "Core engine listening on %s", e.socketPath)

	go e.acceptConnections()
	return nil
}

// Stop stops the socket server and releases the hardware
func (e *CoreEngine) Stop() error {
	e.mutex.Lock()
	e.running = false
	listener := e.listener
	e.listener = nil
	e.mutex.Unlock()

	if listener != nil {
		listener.Close()
		os.Remove(e.socketPath)
	}

	e.subMutex.Lock()
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
	e.subMutex.Unlock()

	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			logging.Warnf("engine", "Failed to close journal: %v", err)
		}
		e.journal = nil
	}

	if e.hardwareManager != nil {
		e.hardwareManager.Close()
	}
	e.initialized = false
	return nil
}

func (e *CoreEngine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

func (e *CoreEngine) acceptConnections() {
	for e.isRunning() {
		e.mutex.RLock()
		listener := e.listener
		e.mutex.RUnlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			if e.isRunning() {
				logging.Warnf("engine", "Socket accept error: %v", err)
				continue
			}
			return
		}

		go e.handleConnection(conn)
	}
}

// handleConnection serves newline-delimited JSON commands until the peer hangs up
func (e *CoreEngine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		resp := e.ExecuteLine(SourceSocket, line)
		if _, err := conn.Write([]byte(resp.String() + "\n")); err != nil {
			logging.Debugf("engine", "Socket write error: %v", err)
			return
		}
	}
}

// ExecuteLine parses one JSON command and executes it
func (e *CoreEngine) ExecuteLine(source, line string) *protocol.Response {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		e.execMutex.Lock()
		defer e.execMutex.Unlock()
		resp := protocol.NewErrorResponse(e.activeResponseAction(), fmt.Sprintf("parse error: %v", err))
		e.record(source, &protocol.Command{Accion: "invalid"}, resp, "{}")
		return resp
	}
	return e.Execute(source, cmd)
}

// Execute runs one command to completion: dispatch, display, journal, broadcast
func (e *CoreEngine) Execute(source string, cmd *protocol.Command) *protocol.Response {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	if !e.initialized {
		return protocol.NewErrorResponse(cmd.Accion, ErrNotInitialized.Error())
	}

	resp := e.router.Dispatch(cmd)
	e.finish(source, cmd, resp, cmd.JSON())
	return resp
}

// ExecuteInput runs shorthand text against the active backend
func (e *CoreEngine) ExecuteInput(source, text string) *protocol.Response {
	cmd := protocol.NewCommand(protocol.ActionInput, "").With(protocol.ParamText, text)
	return e.Execute(source, cmd)
}

func (e *CoreEngine) finish(source string, cmd *protocol.Command, resp *protocol.Response, params string) {
	e.showRecord(e.aggregator.Snapshot())
	e.record(source, cmd, resp, params)
	e.broadcast(resp)
}

func (e *CoreEngine) showRecord(rec status.Record) {
	if err := e.hardwareManager.UpdateDisplay(rec.Lines()); err != nil {
		logging.Warnf("engine", "Display update failed: %v", err)
	}
	logging.Debugf("engine", "%s", rec.Summary())
}

func (e *CoreEngine) record(source string, cmd *protocol.Command, resp *protocol.Response, params string) {
	if e.journal == nil {
		return
	}

	rec := e.aggregator.Snapshot()
	entry := storage.Entry{
		Source:    source,
		Accion:    cmd.Accion,
		SubAccion: cmd.SubAccion,
		Params:    params,
		Status:    resp.Status,
		Module:    rec.Module,
		Primary:   rec.Primary,
		Secondary: rec.Secondary,
		Tertiary:  rec.Tertiary,
		Error:     resp.Mensaje,
	}
	if _, err := e.journal.Record(entry); err != nil {
		logging.Warnf("engine", "Failed to journal command: %v", err)
	}
}

func (e *CoreEngine) activeResponseAction() string {
	if e.selector == nil {
		return synth.BackendVFO.ResponseAction()
	}
	return e.selector.Active().ResponseAction()
}

// Subscribe returns a channel receiving every response the engine produces,
// and a function to cancel the subscription. Slow subscribers miss updates.
func (e *CoreEngine) Subscribe() (<-chan *protocol.Response, func()) {
	e.subMutex.Lock()
	defer e.subMutex.Unlock()

	id := e.nextSubID
	e.nextSubID++
	ch := make(chan *protocol.Response, 16)
	e.subscribers[id] = ch

	return ch, func() {
		e.subMutex.Lock()
		defer e.subMutex.Unlock()
		if c, ok := e.subscribers[id]; ok {
			close(c)
			delete(e.subscribers, id)
		}
	}
}

func (e *CoreEngine) broadcast(resp *protocol.Response) {
	e.subMutex.Lock()
	defer e.subMutex.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- resp:
		default:
		}
	}
}

// StatusResponse reports the active backend without journaling
func (e *CoreEngine) StatusResponse() *protocol.Response {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	if !e.initialized {
		return protocol.NewErrorResponse(protocol.ActionGetStatus, ErrNotInitialized.Error())
	}
	resp := e.router.Dispatch(protocol.NewCommand(protocol.ActionGetStatus, ""))
	e.showRecord(e.aggregator.Snapshot())
	return resp
}

// Record returns the last status record
func (e *CoreEngine) Record() status.Record {
	return e.aggregator.Snapshot()
}

// Info is the daemon-level summary served to clients
type Info struct {
	Active     string        `json:"active"`
	ActiveID   int           `json:"active_id"`
	Oscillator int           `json:"oscillator"`
	Generator  int           `json:"generator"`
	Summary    string        `json:"summary"`
	Record     status.Record `json:"record"`
	Backends   []BackendInfo `json:"backends"`
	Uptime     string        `json:"uptime"`
	Journal    bool          `json:"journal"`
}

// BackendInfo describes one driver
type BackendInfo struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Accion     string   `json:"accion"`
	Available  bool     `json:"available"`
	Operations []string `json:"operations"`
}

// Info returns the selector, record and backend overview
func (e *CoreEngine) Info() (*Info, error) {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()

	if !e.initialized {
		return nil, ErrNotInitialized
	}

	active := e.selector.Active()
	osc, gen := e.selector.Routes()
	rec := e.aggregator.Snapshot()
	info := &Info{
		Active:     active.String(),
		ActiveID:   int(active),
		Oscillator: osc,
		Generator:  gen,
		Summary:    rec.Summary(),
		Record:     rec,
		Uptime:     time.Since(e.startTime).Truncate(time.Second).String(),
		Journal:    e.journal != nil,
	}
	for _, d := range e.drivers {
		info.Backends = append(info.Backends, BackendInfo{
			ID:         int(d.Backend()),
			Name:       d.Name(),
			Accion:     d.Backend().Action(),
			Available:  d.Available(),
			Operations: e.router.Operations(d.Backend()),
		})
	}
	return info, nil
}

// Journal returns the command journal, nil when disabled
func (e *CoreEngine) Journal() *storage.CommandJournal {
	e.execMutex.Lock()
	defer e.execMutex.Unlock()
	return e.journal
}

// HardwareManager returns the hardware manager
func (e *CoreEngine) HardwareManager() *hardware.HardwareManager {
	return e.hardwareManager
}

// SocketPath returns the Unix socket path
func (e *CoreEngine) SocketPath() string {
	return e.socketPath
}
