package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/yegors/narsim-bridge/pkg/logger"
)

// DefaultReadBufferBytes is the size of a single socket read
const DefaultReadBufferBytes = 1024

var (
	// ErrNotConnected is returned when the client is used before Dial
	ErrNotConnected = errors.New("transport: not connected")
	// ErrConnectionClosed is returned when the peer closes the stream
	ErrConnectionClosed = errors.New("transport: connection closed by peer")
)

// Client is a TCP connection to the NARSIM truth stream
type Client struct {
	address     string
	dialTimeout time.Duration
	bufferSize  int
	conn        net.Conn
	mu          sync.Mutex
	logger      *logger.Logger
}

// NewClient creates a new stream client
func NewClient(address string, dialTimeout time.Duration, bufferSize int, logger *logger.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultReadBufferBytes
	}
	return &Client{
		address:     address,
		dialTimeout: dialTimeout,
		bufferSize:  bufferSize,
		logger:      logger.Named("narsim-tcp"),
	}
}

// Dial connects to the configured address
func (c *Client) Dial(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("Connected to NARSIM",
		logger.String("address", c.address),
		logger.String("local_addr", conn.LocalAddr().String()))
	return nil
}

func (c *Client) connection() (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// ReadChunk waits up to timeout for bytes from the stream. An empty slice
// with a nil error means nothing arrived in time.
func (c *Client) ReadChunk(timeout time.Duration) ([]byte, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	buf := make([]byte, c.bufferSize)
	n, err := conn.Read(buf)
	if n > 0 {
		// Any error is reported by the next read.
		return buf[:n], nil
	}
	if err == nil {
		return nil, nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return nil, fmt.Errorf("failed to read from stream: %w", err)
}

// Write sends bytes to the peer
func (c *Client) Write(p []byte) (int, error) {
	conn, err := c.connection()
	if err != nil {
		return 0, err
	}
	n, err := conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to stream: %w", err)
	}
	return n, nil
}

// Close closes the connection. Closing an unconnected client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.logger.Info("Disconnected from NARSIM", logger.String("address", c.address))
	return err
}
