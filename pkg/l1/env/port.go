package env

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/tarm/serial"
)

// Port is the opened byte stream to the device.
type Port struct {
	io.ReadWriteCloser
	// ReadTimeout is true if Read returns when timeout.
	ReadTimeout bool
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdin.Close() }

// OpenPort opens the port specified in config.
func (c *Config) OpenPort() (*Port, error) {
	switch {
	case c.Port == "":
		return nil, fmt.Errorf("port must be specified")
	case c.Port == "-":
		return &Port{ReadWriteCloser: stdio{}}, nil
	case strings.HasPrefix(c.Port, "tcp://"):
		conn, err := net.Dial("tcp", strings.TrimPrefix(c.Port, "tcp://"))
		if err != nil {
			return nil, err
		}
		return &Port{ReadWriteCloser: conn}, nil
	case strings.HasPrefix(c.Port, "listen://"):
		ln, err := net.Listen("tcp", strings.TrimPrefix(c.Port, "listen://"))
		if err != nil {
			return nil, err
		}
		defer ln.Close()
		glog.Infof("waiting for connection on %s", ln.Addr())
		conn, err := ln.Accept()
		if err != nil {
			return nil, err
		}
		glog.Infof("accepted %s", conn.RemoteAddr())
		return &Port{ReadWriteCloser: conn}, nil
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        c.Port,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", c.Port, err)
	}
	if c.ReadTimeout > 0 {
		return &Port{ReadWriteCloser: &timeoutPort{Port: port}, ReadTimeout: true}, nil
	}
	return &Port{ReadWriteCloser: port}, nil
}

// timeoutError implements the Timeout() check of os.IsTimeout.
type timeoutError struct{}

func (timeoutError) Error() string   { return "read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// timeoutPort reports an empty read of a serial port with VTIME set as
// timeout instead of io.EOF.
type timeoutPort struct {
	*serial.Port
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == io.EOF {
		return 0, timeoutError{}
	}
	return n, err
}
