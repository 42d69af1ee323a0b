// Package router maps uniform commands onto driver operations and builds
// the normalised responses.
package router

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/protocol"
	"github.com/dougsko/synthd/pkg/selector"
	"github.com/dougsko/synthd/pkg/status"
	"github.com/dougsko/synthd/pkg/synth"
)

// operation is one row of the dispatch table
type operation struct {
	supports func(synth.Driver) bool
	run      func(synth.Driver, *protocol.Command) error
	// strict operations reject drivers without the capability;
	// the others are silent no-ops there
	strict bool
}

var operations = map[string]operation{
	protocol.SubSetFreq: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.FrequencySetter); return ok },
		run: func(d synth.Driver, cmd *protocol.Command) error {
			hz, err := cmd.Uint64(protocol.ParamFrequency)
			if err != nil {
				return err
			}
			return d.(synth.FrequencySetter).SetFrequency(hz)
		},
		strict: true,
	},
	protocol.SubChangeFreq: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.FrequencyStepper); return ok },
		run: func(d synth.Driver, cmd *protocol.Command) error {
			dir, err := cmd.Direction()
			if err != nil {
				return err
			}
			return d.(synth.FrequencyStepper).StepFrequency(dir)
		},
	},
	protocol.SubSetStep: {
		supports: func(d synth.Driver) bool {
			_, setter := d.(synth.StepSetter)
			_, cycler := d.(synth.StepCycler)
			return setter || cycler
		},
		run: func(d synth.Driver, cmd *protocol.Command) error {
			if s, ok := d.(synth.StepSetter); ok && cmd.Has(protocol.ParamStep) {
				hz, err := cmd.Uint64(protocol.ParamStep)
				if err != nil {
					return err
				}
				return s.SetStep(hz)
			}
			if c, ok := d.(synth.StepCycler); ok {
				return c.CycleStep()
			}
			return fmt.Errorf("%w: %s", protocol.ErrMissingParam, protocol.ParamStep)
		},
	},
	protocol.SubEnable: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.Switchable); return ok },
		run:      func(d synth.Driver, _ *protocol.Command) error { return d.(synth.Switchable).Enable() },
	},
	protocol.SubDisable: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.Switchable); return ok },
		run:      func(d synth.Driver, _ *protocol.Command) error { return d.(synth.Switchable).Disable() },
	},
	protocol.SubToggleRF: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.Toggler); return ok },
		run:      func(d synth.Driver, _ *protocol.Command) error { return d.(synth.Toggler).Toggle() },
	},
	protocol.SubSetPower: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.PowerSetter); return ok },
		run: func(d synth.Driver, cmd *protocol.Command) error {
			p, err := cmd.Int(protocol.ParamPower)
			if err != nil {
				return err
			}
			if p < 0 || p > 255 {
				return fmt.Errorf("%w: potencia=%d", protocol.ErrInvalidParam, p)
			}
			return d.(synth.PowerSetter).SetPower(uint8(p))
		},
	},
	protocol.SubSetBand: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.BandCycler); return ok },
		run:      func(d synth.Driver, _ *protocol.Command) error { return d.(synth.BandCycler).CycleBand() },
	},
	protocol.SubSetRxTx: {
		supports: func(d synth.Driver) bool { _, ok := d.(synth.ModeSetter); return ok },
		run: func(d synth.Driver, cmd *protocol.Command) error {
			tx, err := cmd.TX()
			if err != nil {
				return err
			}
			return d.(synth.ModeSetter).SetMode(tx)
		},
	},
}

// Router dispatches commands to the drivers
type Router struct {
	drivers    map[synth.Backend]synth.Driver
	selector   *selector.Selector
	aggregator *status.Aggregator
	input      *protocol.InputParser
}

// New creates a router over the given drivers
func New(sel *selector.Selector, agg *status.Aggregator, input *protocol.InputParser, drivers ...synth.Driver) *Router {
	r := &Router{
		drivers:    make(map[synth.Backend]synth.Driver, len(drivers)),
		selector:   sel,
		aggregator: agg,
		input:      input,
	}
	for _, d := range drivers {
		r.drivers[d.Backend()] = d
	}
	return r
}

// Driver returns the driver for b
func (r *Router) Driver(b synth.Backend) (synth.Driver, bool) {
	d, ok := r.drivers[b]
	return d, ok
}

// Operations lists the sub-actions b supports
func (r *Router) Operations(b synth.Backend) []string {
	d, ok := r.drivers[b]
	if !ok {
		return nil
	}
	ops := []string{protocol.SubGetStatus}
	for name, op := range operations {
		if op.supports(d) {
			ops = append(ops, name)
		}
	}
	sort.Strings(ops)
	return ops
}

// Dispatch executes one command and returns its response
func (r *Router) Dispatch(cmd *protocol.Command) *protocol.Response {
	if b, ok := synth.BackendForAction(cmd.Accion); ok {
		return r.dispatchBackend(b, cmd)
	}

	switch cmd.Accion {
	case protocol.ActionGetStatus:
		return r.dispatchBackend(r.selector.Active(), protocol.NewCommand(r.selector.Active().Action(), protocol.SubGetStatus))

	case protocol.ActionSelectBackend:
		id, err := cmd.Int(protocol.ParamID)
		if err == nil {
			err = r.selector.SetActive(id)
		}
		if err != nil {
			return protocol.NewErrorResponse(r.selector.Active().ResponseAction(), err.Error())
		}
		return r.dispatchBackend(r.selector.Active(), protocol.NewCommand(r.selector.Active().Action(), protocol.SubGetStatus))

	case protocol.ActionSelectOscillator:
		return r.route(protocol.RespOscSelect, cmd, r.selector.SelectOscillator)

	case protocol.ActionSelectGenerator:
		return r.route(protocol.RespGenSelect, cmd, r.selector.SelectGenerator)

	case protocol.ActionInput:
		return r.DispatchInput(textParam(cmd))
	}

	logging.Warnf("router", "Unknown action %q", cmd.Accion)
	return protocol.NewErrorResponse(cmd.Accion, fmt.Sprintf("unknown action %q", cmd.Accion))
}

func textParam(cmd *protocol.Command) string {
	s, _ := cmd.Text(protocol.ParamText)
	return s
}

// DispatchInput parses shorthand text against the active backend and executes it
func (r *Router) DispatchInput(text string) *protocol.Response {
	active := r.selector.Active()
	if r.input == nil {
		return protocol.NewErrorResponse(active.ResponseAction(), "text input not available")
	}
	cmd, err := r.input.Parse(active, text)
	if err != nil {
		logging.Infof("router", "Rejected input %q: %v", text, err)
		resp := protocol.NewErrorResponse(active.ResponseAction(), err.Error())
		if d, ok := r.drivers[active]; ok {
			st := d.State()
			r.aggregator.Refresh(st)
			resp.Datos = protocol.Datos(st)
		}
		return resp
	}
	return r.dispatchBackend(active, cmd)
}

func (r *Router) route(accion string, cmd *protocol.Command, sel func(int) error) *protocol.Response {
	id, err := cmd.Int(protocol.ParamID)
	if err == nil {
		err = sel(id)
	}
	if err != nil {
		return protocol.NewErrorResponse(accion, err.Error())
	}
	return protocol.NewSelectResponse(accion, id)
}

func (r *Router) dispatchBackend(b synth.Backend, cmd *protocol.Command) *protocol.Response {
	accion := b.ResponseAction()
	d, ok := r.drivers[b]
	if !ok {
		return protocol.NewErrorResponse(accion, fmt.Sprintf("%s: %v", b, synth.ErrUnavailable))
	}

	err := r.apply(d, cmd)

	st := d.State()
	r.aggregator.Refresh(st)
	resp := protocol.NewSuccessResponse(accion, protocol.Datos(st))

	switch {
	case err == nil:
	case errors.Is(err, synth.ErrOutOfRange):
		logging.Debugf("router", "%s %s ignored: %v", b, cmd.SubAccion, err)
	case errors.Is(err, protocol.ErrMissingParam), errors.Is(err, protocol.ErrInvalidParam):
		logging.Debugf("router", "%s %s skipped: %v", b, cmd.SubAccion, err)
	default:
		logging.Warnf("router", "%s %s failed: %v", b, cmd.SubAccion, err)
		resp.Status = protocol.StatusError
		resp.Mensaje = err.Error()
	}
	return resp
}

// apply runs the sub-action on d. Availability is checked before any
// parameter is read so that an unavailable backend never sees the bus.
func (r *Router) apply(d synth.Driver, cmd *protocol.Command) error {
	if !d.Available() {
		return fmt.Errorf("%s: %w", d.Name(), synth.ErrUnavailable)
	}
	if cmd.SubAccion == "" || cmd.SubAccion == protocol.SubGetStatus {
		return nil
	}

	op, ok := operations[cmd.SubAccion]
	if !ok {
		logging.Debugf("router", "%s: unknown sub_accion %q", d.Name(), cmd.SubAccion)
		return nil
	}
	if !op.supports(d) {
		if op.strict {
			return fmt.Errorf("%s %s: %w", d.Name(), cmd.SubAccion, synth.ErrUnsupported)
		}
		logging.Debugf("router", "%s has no %s", d.Name(), cmd.SubAccion)
		return nil
	}
	return op.run(d, cmd)
}
