// Package client implements the exmdb request catalog and the single
// synchronous TCP connection that sends requests and parses responses.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grommunio/exmdbpp-go"
	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// Flags for Client behavior.
const (
	// AutoReconnect causes a single silent reconnect attempt when a
	// request fails with ProtocolError{Code: exmdbpp.DispatchError},
	// before the error is re-raised to the caller.
	AutoReconnect uint8 = 1 << 0
)

// connectTimeout bounds address resolution plus the connect attempts
// across every resolved address.
const connectTimeout = 3 * time.Second

// Options configures a Client. The zero value is valid and disables
// debug tracing.
type Options struct {
	// DebugWriter, if set, receives a copy of every byte sent and
	// received on the connection.
	DebugWriter io.Writer

	// Logger receives connection lifecycle and dispatch-error events.
	// A nil Logger falls back to logrus's standard logger.
	Logger *logrus.Logger

	// Flags is a bitmask of AutoReconnect and future flags.
	Flags uint8
}

func (o *Options) wrapReadWriter(rw io.ReadWriter) io.ReadWriter {
	if o.DebugWriter == nil {
		return rw
	}
	return struct {
		io.Reader
		io.Writer
	}{
		Reader: io.TeeReader(rw, o.DebugWriter),
		Writer: io.MultiWriter(rw, o.DebugWriter),
	}
}

func (o *Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// Client owns exactly one exmdb connection. It is not safe for
// concurrent use: the protocol is strictly request/response on a single
// socket, with no multiplexing to protect against.
type Client struct {
	conn    net.Conn
	rw      io.ReadWriter
	options Options

	host     string
	port     string
	prefix   string
	isPrivate bool

	wbuf *wire.Buffer
}

// New constructs an unconnected Client. A nil options pointer is
// equivalent to a zero Options value.
func New(options *Options) *Client {
	if options == nil {
		options = &Options{}
	}
	return &Client{
		options: *options,
		wbuf:    wire.NewBuffer(),
	}
}

// NewWithConn wraps an already-established connection (e.g. one dialed
// through a custom transport, or a test net.Pipe) directly, bypassing
// Connect's address resolution and protocol handshake. Callers must
// issue Connect's handshake themselves if the peer expects one.
func NewWithConn(conn net.Conn, options *Options) *Client {
	c := New(options)
	c.conn = conn
	c.rw = c.options.wrapReadWriter(conn)
	return c
}

// Connect resolves host:port, tries each resolved address in order under
// a shared 3-second deadline, and issues the protocol-level Connect call
// on the first address that accepts.
func (c *Client) Connect(ctx context.Context, host, port, prefix string, isPrivate bool) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return &exmdbpp.ConnectionError{Op: "resolve", Err: err}
	}
	if len(addrs) == 0 {
		return &exmdbpp.ConnectionError{Op: "resolve", Err: fmt.Errorf("no addresses for %s", host)}
	}

	dialer := net.Dialer{}
	var conn net.Conn
	var dialErr error
	for _, addr := range addrs {
		conn, dialErr = dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr.IP.String(), port))
		if dialErr == nil {
			break
		}
	}
	if conn == nil {
		return &exmdbpp.ConnectionError{Op: "connect", Err: dialErr}
	}

	c.conn = conn
	c.rw = c.options.wrapReadWriter(conn)
	c.host, c.port, c.prefix, c.isPrivate = host, port, prefix, isPrivate

	c.options.logger().WithFields(logrus.Fields{"host": host, "port": port}).Debug("exmdb: connected")

	if err := Connect(ctx, c, prefix, isPrivate); err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Reconnect attempts a fresh connection with the stored parameters. On
// any failure the existing connection (if any) is left intact and
// Reconnect returns false.
func (c *Client) Reconnect(ctx context.Context) bool {
	old, oldRW := c.conn, c.rw
	if err := c.Connect(ctx, c.host, c.port, c.prefix, c.isPrivate); err != nil {
		c.conn, c.rw = old, oldRW
		return false
	}
	if old != nil {
		old.Close()
	}
	return true
}

// Send transmits a fully-built request body (opcode + arguments,
// without framing) and returns the raw response body bytes. A non-zero
// response status becomes a ProtocolError; when AutoReconnect is set and
// the code is DispatchError, Send transparently reconnects once and then
// returns that error; the request is not resent.
func (c *Client) Send(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := c.sendOnce(body)
	if err == nil {
		return resp, nil
	}

	var protoErr *exmdbpp.ProtocolError
	if c.options.Flags&AutoReconnect != 0 && isDispatchError(err, &protoErr) {
		c.options.logger().Warn("exmdb: dispatch error, reconnecting")
		c.Reconnect(ctx)
	}
	return nil, err
}

func isDispatchError(err error, out **exmdbpp.ProtocolError) bool {
	pe, ok := err.(*exmdbpp.ProtocolError)
	if !ok {
		return false
	}
	*out = pe
	return pe.Code == exmdbpp.DispatchError
}

func (c *Client) sendOnce(body []byte) ([]byte, error) {
	if c.conn == nil {
		return nil, &exmdbpp.ConnectionError{Op: "send", Err: fmt.Errorf("not connected")}
	}

	c.wbuf.Reset()
	c.wbuf.Start()
	c.wbuf.PushRaw(body)
	c.wbuf.Finalize()

	if _, err := c.rw.Write(c.wbuf.Bytes()); err != nil {
		return nil, &exmdbpp.ConnectionError{Op: "send", Err: err}
	}

	var header [5]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return nil, &exmdbpp.ConnectionError{Op: "recv header", Err: err}
	}
	status := header[0]
	length := uint32(header[1]) | uint32(header[2])<<8 | uint32(header[3])<<16 | uint32(header[4])<<24

	if status != exmdbpp.Success {
		return nil, &exmdbpp.ProtocolError{Code: status}
	}

	respBody := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.rw, respBody); err != nil {
			return nil, &exmdbpp.ConnectionError{Op: "recv body", Err: err}
		}
	}
	return respBody, nil
}
