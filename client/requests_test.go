package client

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go"
	"github.com/grommunio/exmdbpp-go/internal/wire"
)

func TestAllocateCn(t *testing.T) {
	c, server := newTestClient(t)

	done := make(chan struct {
		cn  uint64
		err error
	}, 1)
	go func() {
		cn, err := AllocateCn(context.Background(), c)
		done <- struct {
			cn  uint64
			err error
		}{cn, err}
	}()

	body := readRequestBody(t, server)
	require.Equal(t, byte(CallAllocateCn), body[0])

	respBuf := wire.NewBuffer()
	respBuf.PushUint64BE(1)
	writeResponse(t, server, exmdbpp.Success, respBuf.Bytes())

	result := <-done
	require.NoError(t, result.err)
	require.Equal(t, uint64(0x0000000000000001), result.cn)
}

// TestAllocateCnShortRead verifies a truncated response body surfaces as
// an exported exmdbpp.ShortReadError a caller can errors.As into, rather
// than the unexported wire.ErrShort.
func TestAllocateCnShortRead(t *testing.T) {
	c, server := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		_, err := AllocateCn(context.Background(), c)
		done <- err
	}()

	body := readRequestBody(t, server)
	require.Equal(t, byte(CallAllocateCn), body[0])

	// a change number response needs 8 bytes; send only 3.
	writeResponse(t, server, exmdbpp.Success, []byte{1, 2, 3})

	err := <-done
	require.Error(t, err)
	var shortRead *exmdbpp.ShortReadError
	require.True(t, errors.As(err, &shortRead))
}

func TestLoadHierarchyTable(t *testing.T) {
	c, server := newTestClient(t)

	type result struct {
		tr  TableResponse
		err error
	}
	done := make(chan result, 1)
	go func() {
		tr, err := LoadHierarchyTable(context.Background(), c, "/mbox", 1, "", 0, nil)
		done <- result{tr, err}
	}()

	body := readRequestBody(t, server)
	require.Equal(t, byte(CallLoadHierarchyTable), body[0])

	respBuf := wire.NewBuffer()
	respBuf.PushUint32(7)
	respBuf.PushUint32(3)
	writeResponse(t, server, exmdbpp.Success, respBuf.Bytes())

	r := <-done
	require.NoError(t, r.err)
	require.Equal(t, uint32(7), r.tr.TableID)
	require.Equal(t, uint32(3), r.tr.RowCount)
}

func TestQueryTableRows(t *testing.T) {
	c, server := newTestClient(t)

	displayNameTag := uint32(0x3001)<<16 | uint32(exmdbpp.String)

	type result struct {
		rows []Row
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := QueryTable(context.Background(), c, "/mbox", "", 0, 7, []uint32{displayNameTag}, 0, 3)
		done <- result{rows, err}
	}()

	body := readRequestBody(t, server)
	require.Equal(t, byte(CallQueryTable), body[0])

	pv, err := exmdbpp.NewString(displayNameTag, "Inbox", true)
	require.NoError(t, err)

	respBuf := wire.NewBuffer()
	respBuf.PushUint32(1) // row count
	respBuf.PushUint32(1) // columns in row
	require.NoError(t, pv.Serialize(respBuf))
	writeResponse(t, server, exmdbpp.Success, respBuf.Bytes())

	r := <-done
	require.NoError(t, r.err)
	require.Len(t, r.rows, 1)
	require.Len(t, r.rows[0], 1)
	require.Equal(t, "Inbox", r.rows[0][0].Value)
}

// readRequestBody reads one framed request off conn and returns its
// body (opcode + arguments, without the 4-byte length prefix).
func readRequestBody(t *testing.T, conn io.Reader) []byte {
	t.Helper()
	var lenBuf [4]byte
	_, err := io.ReadFull(conn, lenBuf[:])
	require.NoError(t, err)
	length := uint32(lenBuf[0]) | uint32(lenBuf[1])<<8 | uint32(lenBuf[2])<<16 | uint32(lenBuf[3])<<24
	body := make([]byte, length)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return body
}
