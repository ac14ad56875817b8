package client

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go"
)

// newTestClient wires a Client directly to one end of a net.Pipe,
// bypassing address resolution so tests can drive a scripted fake
// server on the other end.
func newTestClient(t *testing.T) (*Client, net.Conn) {
	clientConn, serverConn := net.Pipe()
	c := New(nil)
	c.conn = clientConn
	c.rw = clientConn
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })
	return c, serverConn
}

func writeResponse(t *testing.T, conn net.Conn, status byte, body []byte) {
	t.Helper()
	header := []byte{status, byte(len(body)), byte(len(body) >> 8), byte(len(body) >> 16), byte(len(body) >> 24)}
	_, err := conn.Write(header)
	require.NoError(t, err)
	if len(body) > 0 {
		_, err = conn.Write(body)
		require.NoError(t, err)
	}
}

func TestClientSendSuccess(t *testing.T) {
	c, server := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), []byte{0x00})
		done <- err
	}()

	buf := make([]byte, 9) // 4-byte frame length + 1-byte opcode + ...
	_, err := io.ReadFull(server, buf[:5])
	require.NoError(t, err)

	writeResponse(t, server, exmdbpp.Success, []byte{0xAB})
	require.NoError(t, <-done)
}

func TestClientSendProtocolError(t *testing.T) {
	c, server := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), []byte{0x00})
		done <- err
	}()

	hdr := make([]byte, 5)
	_, err := io.ReadFull(server, hdr)
	require.NoError(t, err)

	writeResponse(t, server, exmdbpp.AccessDeny, nil)
	err = <-done
	require.Error(t, err)

	var protoErr *exmdbpp.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, exmdbpp.AccessDeny, protoErr.Code)
}

func TestClientSendNotConnected(t *testing.T) {
	c := New(nil)
	_, err := c.sendOnce([]byte{0x00})
	require.Error(t, err)

	var connErr *exmdbpp.ConnectionError
	require.ErrorAs(t, err, &connErr)
}
