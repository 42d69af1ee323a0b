package status

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/dougsko/synthd/pkg/synth"
)

// Record is the shared display/telemetry summary
type Record struct {
	Module    string `json:"module"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Tertiary  string `json:"tertiary"`
}

// Summary renders the one-line telemetry string, e.g.
// "AD9850 (ON): 7.100 MHz | Paso: 1 kHz SALIDA ACTIVA"
func (r Record) Summary() string {
	var b strings.Builder
	b.WriteString(r.Module)
	b.WriteString(": ")
	b.WriteString(Rescale(r.Primary))
	if r.Secondary != "" {
		b.WriteString(" | ")
		b.WriteString(r.Secondary)
	}
	if r.Tertiary != "" {
		b.WriteString(" ")
		b.WriteString(r.Tertiary)
	}
	return b.String()
}

// Lines returns the record as display lines, title first
func (r Record) Lines() []string {
	return []string{r.Module, Rescale(r.Primary), r.Secondary, r.Tertiary}
}

// Aggregator owns the single Record and overwrites it on every refresh
type Aggregator struct {
	mu     sync.RWMutex
	record Record
}

// NewAggregator creates an aggregator with an empty record
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Refresh reduces st into the shared record and returns it
func (a *Aggregator) Refresh(st synth.State) Record {
	rec := Reduce(st)
	a.mu.Lock()
	a.record = rec
	a.mu.Unlock()
	return rec
}

// Snapshot returns the last refreshed record
func (a *Aggregator) Snapshot() Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.record
}

// Reduce is the pure state-to-record mapping
func Reduce(st synth.State) Record {
	switch st.Backend {
	case synth.BackendDDS:
		return Record{
			Module:    "AD9850 (" + onOff(st.Enabled) + ")",
			Primary:   FormatFrequency(st.FrequencyHz, 3, false),
			Secondary: "Paso: " + formatDDSStep(st.StepHz),
			Tertiary:  pick(st.Enabled, "SALIDA ACTIVA", "SALIDA APAGADA"),
		}
	case synth.BackendPLL:
		power := "?"
		if int(st.PowerIndex) < len(synth.PLLPowerLabels) {
			power = synth.PLLPowerLabels[st.PowerIndex]
		}
		return Record{
			Module:    "ADF4351 (" + onOff(st.Enabled) + ")",
			Primary:   FormatFrequency(st.FrequencyHz, 4, true),
			Secondary: "Pot: " + power,
			Tertiary:  "Salida: " + onOff(st.Enabled),
		}
	case synth.BackendVFO:
		return Record{
			Module:    "Si5351 (" + pick(st.TX, "TX", "RX") + ")",
			Primary:   FormatFrequency(st.FrequencyHz, 3, false),
			Secondary: "Banda: " + st.BandName,
			Tertiary:  "Paso: " + formatVFOStep(st.StepHz),
		}
	}
	return Record{Module: "desconocido"}
}

// FormatFrequency scales hz to Hz/kHz/MHz (and GHz when allowGHz) with the
// given number of decimals. Plain hertz are printed as an integer.
func FormatFrequency(hz uint64, decimals int, allowGHz bool) string {
	f := float64(hz)
	switch {
	case allowGHz && hz >= 1000000000:
		return fmt.Sprintf("%.*f GHz", decimals, f/1e9)
	case hz >= 1000000 || allowGHz:
		return fmt.Sprintf("%.*f MHz", decimals, f/1e6)
	case hz >= 1000:
		return fmt.Sprintf("%.*f kHz", decimals, f/1e3)
	}
	return fmt.Sprintf("%d Hz", hz)
}

// Rescale rewrites "<number> <unit>" with three decimals, leaving other text alone
func Rescale(primary string) string {
	i := strings.IndexByte(primary, ' ')
	if i <= 0 {
		return primary
	}
	v, err := strconv.ParseFloat(primary[:i], 64)
	if err != nil {
		return primary
	}
	return fmt.Sprintf("%.3f%s", v, primary[i:])
}

func formatDDSStep(hz uint64) string {
	switch {
	case hz >= 1000000:
		return fmt.Sprintf("%.0f MHz", math.Round(float64(hz)/1e6))
	case hz >= 1000:
		return fmt.Sprintf("%.0f kHz", math.Round(float64(hz)/1e3))
	}
	return fmt.Sprintf("%d Hz", hz)
}

func formatVFOStep(hz uint64) string {
	if hz < 1000 {
		return fmt.Sprintf("%dHz", hz)
	}
	return fmt.Sprintf("%dkHz", hz/1000)
}

func onOff(on bool) string {
	return pick(on, "ON", "OFF")
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
