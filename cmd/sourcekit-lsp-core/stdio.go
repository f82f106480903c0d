package main

import (
	"io"
	"os/exec"
)

// subprocessConn adapts a spawned daemon's stdin/stdout pipes into the
// single io.ReadWriteCloser daemon.NewHeaderTransport expects, the same
// role gopls's own lsprpc dialer plays for a forked `gopls serve`.
type subprocessConn struct {
	io.Reader
	io.WriteCloser
	cmd *exec.Cmd
}

func (c *subprocessConn) Close() error {
	werr := c.WriteCloser.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	return werr
}

// dialSubprocess starts command with args and connects its stdio as a
// duplex stream.
func dialSubprocess(command string, args []string) (*subprocessConn, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &subprocessConn{Reader: stdout, WriteCloser: stdin, cmd: cmd}, nil
}
