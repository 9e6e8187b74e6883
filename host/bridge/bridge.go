// Package bridge reads the transmitter's serial telemetry stream on the
// host and feeds it to a core.Monitor.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"hoplink/core"
	"hoplink/host/serial"
	"hoplink/protocol"
)

// Conn owns the port and the background reader. All Monitor access goes
// through View so callbacks and readers never race.
type Conn struct {
	port    io.ReadWriteCloser
	log     *log.Logger
	input   *protocol.FifoBuffer
	frames  *protocol.FrameReader
	monitor *core.Monitor

	mu       sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
	readErr  error
}

// Dial opens cfg's device and starts reading
func Dial(cfg *serial.Config, m *core.Monitor, logger *log.Logger) (*Conn, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("bridge: flush %s: %w", cfg.Device, err)
	}
	return New(port, m, logger), nil
}

// New starts reading from an already open stream
func New(port io.ReadWriteCloser, m *core.Monitor, logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Conn{
		port:     port,
		log:      logger,
		input:    protocol.NewFifoBuffer(512),
		monitor:  m,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	c.frames = protocol.NewFrameReader(m.Handle)

	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.doneChan)

	buffer := make([]byte, 256)
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		n, err := c.port.Read(buffer)
		if n > 0 {
			c.mu.Lock()
			c.input.Write(buffer[:n])
			c.frames.Receive(c.input)
			c.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
				return
			}
			c.log.Debug("bridge read", "err", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// View runs fn with the monitor locked against the reader
func (c *Conn) View(fn func(m *core.Monitor)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.monitor)
}

// Dropped returns how many times the stream lost framing
func (c *Conn) Dropped() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames.Dropped()
}

// Done is closed once the reader has stopped
func (c *Conn) Done() <-chan struct{} { return c.doneChan }

// Err reports why the reader stopped, if it stopped on its own
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close stops the reader and closes the port
func (c *Conn) Close() error {
	select {
	case <-c.stopChan:
	default:
		close(c.stopChan)
	}
	err := c.port.Close()
	<-c.doneChan
	return err
}
