package queries

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go"
	"github.com/grommunio/exmdbpp-go/client"
	"github.com/grommunio/exmdbpp-go/internal/wire"
)

func newTestQueries(t *testing.T) (*ExmdbQueries, net.Conn) {
	clientConn, serverConn := net.Pipe()
	c := client.NewWithConn(clientConn, nil)
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })
	return New(c, nil), serverConn
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

func readRequestOpcode(t *testing.T, conn io.Reader) byte {
	t.Helper()
	var lenBuf [4]byte
	_, err := io.ReadFull(conn, lenBuf[:])
	require.NoError(t, err)
	length := uint32(lenBuf[0]) | uint32(lenBuf[1])<<8 | uint32(lenBuf[2])<<16 | uint32(lenBuf[3])<<24
	require.Greater(t, length, uint32(0))
	body := make([]byte, length)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return body[0]
}

// TestListFoldersTableLifecycle verifies the opcode sequence is
// Load...Table, QueryTable, UnloadTable, even when QueryTable errors.
func TestListFoldersTableLifecycle(t *testing.T) {
	for _, queryFails := range []bool{false, true} {
		q, server := newTestQueries(t)

		done := make(chan error, 1)
		go func() {
			_, err := q.ListFolders(context.Background(), "/mbox", 1, false, []uint32{exmdbpp.PropTagFolderID}, 0, 0, nil)
			done <- err
		}()

		require.Equal(t, byte(client.CallLoadHierarchyTable), readRequestOpcode(t, server))
		respBuf := wire.NewBuffer()
		respBuf.PushUint32(7)
		respBuf.PushUint32(2)
		writeResponse(t, server, exmdbpp.Success, respBuf.Bytes())

		require.Equal(t, byte(client.CallQueryTable), readRequestOpcode(t, server))
		if queryFails {
			writeResponse(t, server, exmdbpp.AccessDeny, nil)
		} else {
			qr := wire.NewBuffer()
			qr.PushUint32(0)
			writeResponse(t, server, exmdbpp.Success, qr.Bytes())
		}

		require.Equal(t, byte(client.CallUnloadTable), readRequestOpcode(t, server))
		writeResponse(t, server, exmdbpp.Success, nil)

		err := <-done
		if queryFails {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
}

// TestDiffFolderMembers covers P6: members in the requested set gain
// rights, members left out lose them (and are dropped once rights hit
// zero), and special ids are never touched.
func TestDiffFolderMembers(t *testing.T) {
	current := []FolderMember{
		{ID: 1, Name: "a@x", Rights: 0x2},
		{ID: 2, Name: "c@x", Rights: 0x3},
		{ID: 0, Name: "everyone", Rights: 0x7},
		{ID: 0xFFFFFFFFFFFFFFFF, Name: "default", Rights: 0x1},
	}

	ops := diffFolderMembers(current, []string{"a@x", "b@x"}, 0x1)

	byName := make(map[string]membershipOp, len(ops))
	for _, op := range ops {
		byName[op.name] = op
	}

	require.Len(t, ops, 3)

	modA, ok := byName["a@x"]
	require.True(t, ok)
	require.Equal(t, exmdbpp.ModifyRow, modA.flag)
	require.Equal(t, uint32(0x3), modA.rights)

	addB, ok := byName["b@x"]
	require.True(t, ok)
	require.Equal(t, exmdbpp.AddRow, addB.flag)
	require.Equal(t, uint32(0x1), addB.rights)

	modC, ok := byName["c@x"]
	require.True(t, ok)
	require.Equal(t, exmdbpp.ModifyRow, modC.flag)
	require.Equal(t, uint32(0x2), modC.rights)

	_, touched := byName["everyone"]
	require.False(t, touched)
	_, touchedDefault := byName["default"]
	require.False(t, touchedDefault)
}

// TestDiffFolderMembersRemovesWhenRightsHitZero confirms a member
// dropped from the requested set with no remaining rights is removed
// rather than modified to zero.
func TestDiffFolderMembersRemovesWhenRightsHitZero(t *testing.T) {
	current := []FolderMember{{ID: 9, Name: "old@x", Rights: 0x1}}
	ops := diffFolderMembers(current, nil, 0x1)
	require.Len(t, ops, 1)
	require.Equal(t, exmdbpp.RemoveRow, ops[0].flag)
	require.Equal(t, uint64(9), ops[0].id)
}

// TestDiffFolderMembersNoOp confirms members already satisfying the
// request produce no operations.
func TestDiffFolderMembersNoOp(t *testing.T) {
	current := []FolderMember{{ID: 1, Name: "a@x", Rights: 0x3}}
	ops := diffFolderMembers(current, []string{"a@x"}, 0x1)
	require.Empty(t, ops)
}
