package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dougsko/synthd/pkg/synth"
)

// Parameter errors
var (
	ErrMissingParam = errors.New("missing parameter")
	ErrInvalidParam = errors.New("invalid parameter")
)

// Command actions besides the per-backend "<backend>_command" actions
const (
	ActionSelectBackend    = "select_backend"
	ActionSelectOscillator = "select_oscillator"
	ActionSelectGenerator  = "select_generator"
	ActionGetStatus        = "get_status"
	ActionInput            = "input"
)

// Sub-actions
const (
	SubSetFreq    = "set_freq"
	SubChangeFreq = "change_freq"
	SubSetStep    = "set_step"
	SubEnable     = "enable"
	SubDisable    = "disable"
	SubToggleRF   = "toggle_rf"
	SubSetPower   = "set_power"
	SubSetBand    = "set_band"
	SubSetRxTx    = "set_rxtx"
	SubGetStatus  = "get_status"
)

// Parameter names
const (
	ParamFrequency = "frecuencia_hz"
	ParamDirection = "direccion"
	ParamStep      = "paso_hz"
	ParamPower     = "potencia"
	ParamMode      = "modo"
	ParamID        = "id"
	ParamText      = "texto"
)

// Response actions for the routing selectors
const (
	RespOscSelect = "respuesta_osc_select"
	RespGenSelect = "respuesta_gen_select"
)

// Response status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Command is one uniform command. On the wire the parameters sit next to
// accion and sub_accion in a single flat object.
type Command struct {
	Accion    string                 `json:"accion"`
	SubAccion string                 `json:"sub_accion,omitempty"`
	Params    map[string]interface{} `json:"-"`
}

// NewCommand builds a command with an empty parameter bag
func NewCommand(accion, subAccion string) *Command {
	return &Command{Accion: accion, SubAccion: subAccion, Params: make(map[string]interface{})}
}

// With sets a parameter and returns the command for chaining
func (c *Command) With(key string, value interface{}) *Command {
	if c.Params == nil {
		c.Params = make(map[string]interface{})
	}
	c.Params[key] = value
	return c
}

// MarshalJSON flattens the parameters into the command object
func (c Command) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Params)+2)
	for k, v := range c.Params {
		m[k] = v
	}
	m["accion"] = c.Accion
	if c.SubAccion != "" {
		m["sub_accion"] = c.SubAccion
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a flat command object. Numbers are kept as json.Number
// so that large frequencies survive intact.
func (c *Command) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return err
	}

	c.Params = make(map[string]interface{}, len(m))
	for k, v := range m {
		switch k {
		case "accion":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: accion must be a string", ErrInvalidParam)
			}
			c.Accion = s
		case "sub_accion":
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("%w: sub_accion must be a string", ErrInvalidParam)
			}
			c.SubAccion = s
		default:
			c.Params[k] = v
		}
	}
	return nil
}

// ParseCommand decodes one JSON command
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty command")
	}

	var cmd Command
	if err := json.Unmarshal([]byte(text), &cmd); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	if cmd.Accion == "" {
		return nil, fmt.Errorf("%w: accion", ErrMissingParam)
	}
	return &cmd, nil
}

// Has reports whether the parameter is present
func (c *Command) Has(key string) bool {
	_, ok := c.Params[key]
	return ok
}

// Uint64 returns a non-negative integer parameter. Decimal strings are
// accepted since large frequencies travel as text.
func (c *Command) Uint64(key string) (uint64, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}

	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = strings.TrimSpace(n)
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%w: %s=%v", ErrInvalidParam, key, v)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: %s=%d", ErrInvalidParam, key, n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("%w: %s=%d", ErrInvalidParam, key, n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint32:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParam, key, v)
	}

	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		return u, nil
	}
	// 7.1e6 and 1000.0 are integers too
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, text)
	}
	return uint64(f), nil
}

// Int returns an integer parameter
func (c *Command) Int(key string) (int, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s=%d", ErrInvalidParam, key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < math.MinInt32 || i > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s=%s", ErrInvalidParam, key, n)
		}
		return int(i), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s=%v", ErrInvalidParam, key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParam, key, v)
}

// Text returns a string parameter
func (c *Command) Text(key string) (string, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParam, key)
	}
	return s, nil
}

// Direction returns the direccion parameter
func (c *Command) Direction() (synth.Direction, error) {
	s, err := c.Text(ParamDirection)
	if err != nil {
		return synth.Up, err
	}
	d, err := synth.ParseDirection(s)
	if err != nil {
		return synth.Up, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return d, nil
}

// TX returns true for modo "tx" and false for "rx"
func (c *Command) TX() (bool, error) {
	s, err := c.Text(ParamMode)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tx":
		return true, nil
	case "rx":
		return false, nil
	}
	return false, fmt.Errorf("%w: modo=%q", ErrInvalidParam, s)
}

// JSON renders the command as its wire line
func (c *Command) JSON() string {
	data, _ := json.Marshal(c)
	return string(data)
}

// Response is the normalised reply to every command
type Response struct {
	Status     string      `json:"status"`
	Accion     string      `json:"accion"`
	Datos      interface{} `json:"datos,omitempty"`
	Mensaje    string      `json:"mensaje,omitempty"`
	SelectedID *int        `json:"selected_id,omitempty"`
}

// String renders the response as JSON
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// OK reports whether the status is ok
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// NewSuccessResponse creates an ok response
func NewSuccessResponse(accion string, datos interface{}) *Response {
	return &Response{Status: StatusOK, Accion: accion, Datos: datos}
}

// NewErrorResponse creates an error response
func NewErrorResponse(accion string, msg string) *Response {
	return &Response{Status: StatusError, Accion: accion, Mensaje: msg}
}

// NewSelectResponse creates the reply to a routing selection
func NewSelectResponse(accion string, id int) *Response {
	return &Response{Status: StatusOK, Accion: accion, SelectedID: &id}
}

// DDSData is the datos object of respuesta_ad9850
type DDSData struct {
	FrecuenciaHz uint64 `json:"frecuencia_hz"`
	PasoHz       uint64 `json:"paso_hz"`
	Habilitado   bool   `json:"habilitado"`
}

// PLLData is the datos object of respuesta_adf4351. The frequency is a
// decimal string since it can exceed 32 bits.
type PLLData struct {
	FrecuenciaHz string `json:"frecuencia_hz"`
	Potencia     uint8  `json:"potencia"`
	Habilitado   bool   `json:"habilitado"`
	PasoHz       uint64 `json:"paso_hz"`
}

// VFOData is the datos object of respuesta_vfo
type VFOData struct {
	FrecuenciaHz uint64 `json:"frecuencia_hz"`
	PasoHz       uint64 `json:"paso_hz"`
	BandaNombre  string `json:"banda_nombre"`
	Modo         string `json:"modo"`
	IFKHz        uint64 `json:"if_khz"`
}

// Datos builds the backend-specific datos object for a driver state
func Datos(st synth.State) interface{} {
	switch st.Backend {
	case synth.BackendDDS:
		return DDSData{FrecuenciaHz: st.FrequencyHz, PasoHz: st.StepHz, Habilitado: st.Enabled}
	case synth.BackendPLL:
		return PLLData{
			FrecuenciaHz: strconv.FormatUint(st.FrequencyHz, 10),
			Potencia:     st.PowerIndex,
			Habilitado:   st.Enabled,
			PasoHz:       st.StepHz,
		}
	case synth.BackendVFO:
		modo := "RX"
		if st.TX {
			modo = "TX"
		}
		return VFOData{
			FrecuenciaHz: st.FrequencyHz,
			PasoHz:       st.StepHz,
			BandaNombre:  st.BandName,
			Modo:         modo,
			IFKHz:        st.IFOffsetHz / 1000,
		}
	}
	return nil
}
