package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dougsko/synthd/pkg/client"
	"github.com/dougsko/synthd/pkg/protocol"
	"github.com/dougsko/synthd/pkg/synth"
)

const (
	SocketOptionName  = "socket"
	TimeoutOptionName = "timeout"
	StrictOptionName  = "strict"
)

type options struct {
	socketPath string
	timeout    time.Duration
	strict     bool
}

func (o *options) client() *client.SocketClient {
	c := client.NewSocketClient(o.socketPath)
	c.SetTimeout(o.timeout)
	return c
}

// NewRootCommand builds the synthctl command tree
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "synthctl",
		Short:         "Control the synthd oscillator daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&opts.socketPath, SocketOptionName, "/tmp/synthd.sock", "Unix socket path")
	cmd.PersistentFlags().DurationVar(&opts.timeout, TimeoutOptionName, 5*time.Second, "Round-trip timeout")
	cmd.PersistentFlags().BoolVar(&opts.strict, StrictOptionName, false, "Exit non-zero on an error response")

	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newInputCommand(opts))
	cmd.AddCommand(newBackendCommand(opts))
	cmd.AddCommand(newSelectCommand(opts))
	cmd.AddCommand(newRouteCommand(opts, "osc", "Route the oscillator RF switch", (*client.SocketClient).SelectOscillator))
	cmd.AddCommand(newRouteCommand(opts, "gen", "Route the generator RF switch", (*client.SocketClient).SelectGenerator))
	return cmd
}

func printResponse(cmd *cobra.Command, opts *options, resp *protocol.Response) error {
	fmt.Fprintln(cmd.OutOrStdout(), resp.String())
	if opts.strict && !resp.OK() {
		return fmt.Errorf("%s: %s", resp.Accion, resp.Mensaje)
	}
	return nil
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active backend's status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().GetStatus()
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

func newSendCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "send <json>",
		Short:   "Send a raw JSON command line",
		Example: `  synthctl send '{"accion":"ad9850_command","sub_accion":"set_freq","frecuencia_hz":7100000}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().SendLine(args[0])
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

func newInputCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "input <text>",
		Short:   "Send shorthand input to the active backend",
		Example: "  synthctl input 7.1m\n  synthctl input +\n  synthctl input s",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Input(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

func newBackendCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "cmd <backend> <sub_accion> [key=value...]",
		Short:   "Send a command to one backend",
		Example: "  synthctl cmd adf4351 set_freq frecuencia_hz=2400000000\n  synthctl cmd vfo change_freq direccion=up",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := buildBackendCommand(args[0], args[1], args[2:])
			if err != nil {
				return err
			}
			resp, err := opts.client().Send(command)
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

func newSelectCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "select <vfo|ad9850|adf4351|id>",
		Short: "Select the active backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := backendID(args[0])
			if err != nil {
				return err
			}
			resp, err := opts.client().SelectBackend(id)
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

func newRouteCommand(opts *options, use, short string, route func(*client.SocketClient, int) (*protocol.Response, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid switch id %q", args[0])
			}
			resp, err := route(opts.client(), id)
			if err != nil {
				return err
			}
			return printResponse(cmd, opts, resp)
		},
	}
}

// buildBackendCommand turns "adf4351 set_power potencia=3" into a command
func buildBackendCommand(backend, subAccion string, params []string) (*protocol.Command, error) {
	id, err := backendID(backend)
	if err != nil {
		return nil, err
	}

	command := protocol.NewCommand(synth.Backend(id).Action(), subAccion)
	for _, param := range params {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", param)
		}
		command.With(key, paramValue(value))
	}
	return command, nil
}

func paramValue(value string) interface{} {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

func backendID(name string) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		if !synth.Backend(id).Valid() {
			return 0, fmt.Errorf("unknown backend id %d", id)
		}
		return id, nil
	}
	for _, b := range synth.Backends {
		if strings.EqualFold(name, b.String()) {
			return int(b), nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q", name)
}
