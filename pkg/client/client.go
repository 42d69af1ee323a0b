package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/dougsko/synthd/pkg/protocol"
)

// SocketClient talks to the core engine over its Unix socket
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SetTimeout changes the connect and round-trip timeout
func (c *SocketClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SendLine sends one raw JSON command line and returns the response
func (c *SocketClient) SendLine(line string) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return nil, fmt.Errorf("no response received")
	}

	var response protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// Send sends a command
func (c *SocketClient) Send(cmd *protocol.Command) (*protocol.Response, error) {
	return c.SendLine(cmd.JSON())
}

// GetStatus returns the active backend's status
func (c *SocketClient) GetStatus() (*protocol.Response, error) {
	return c.Send(protocol.NewCommand(protocol.ActionGetStatus, ""))
}

// Input sends shorthand text for the active backend
func (c *SocketClient) Input(text string) (*protocol.Response, error) {
	return c.Send(protocol.NewCommand(protocol.ActionInput, "").With(protocol.ParamText, text))
}

// SelectBackend makes id the active backend
func (c *SocketClient) SelectBackend(id int) (*protocol.Response, error) {
	return c.Send(protocol.NewCommand(protocol.ActionSelectBackend, "").With(protocol.ParamID, id))
}

// SelectOscillator routes the oscillator RF switch
func (c *SocketClient) SelectOscillator(id int) (*protocol.Response, error) {
	return c.Send(protocol.NewCommand(protocol.ActionSelectOscillator, "").With(protocol.ParamID, id))
}

// SelectGenerator routes the generator RF switch
func (c *SocketClient) SelectGenerator(id int) (*protocol.Response, error) {
	return c.Send(protocol.NewCommand(protocol.ActionSelectGenerator, "").With(protocol.ParamID, id))
}

// Ping tests the connection
func (c *SocketClient) Ping() error {
	resp, err := c.GetStatus()
	if err != nil {
		return err
	}
	if resp.Accion == "" {
		return fmt.Errorf("ping error: empty response")
	}
	return nil
}

// IsConnected tests if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
