package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

func TestBufferRoundTrip(t *testing.T) {
	b := wire.NewBuffer()
	b.PushByte(0xAB)
	b.PushBool(true)
	b.PushUint16(0x1234)
	b.PushUint32(0xDEADBEEF)
	b.PushUint64(0x0102030405060708)
	b.PushFloat32(1.5)
	b.PushFloat64(2.25)
	b.PushCString("hello")
	b.PushBinary([]byte{1, 2, 3})

	r := wire.NewBufferFrom(b.Bytes())
	require.Equal(t, byte(0xAB), r.PopByte())
	require.Equal(t, true, r.PopBool())
	require.Equal(t, uint16(0x1234), r.PopUint16())
	require.Equal(t, uint32(0xDEADBEEF), r.PopUint32())
	require.Equal(t, uint64(0x0102030405060708), r.PopUint64())
	require.Equal(t, float32(1.5), r.PopFloat32())
	require.Equal(t, float64(2.25), r.PopFloat64())
	require.Equal(t, "hello", string(r.PopCString()))
	require.Equal(t, []byte{1, 2, 3}, r.PopBinary())
	require.NoError(t, r.Err())
}

func TestBufferEmptyStringAndBinary(t *testing.T) {
	b := wire.NewBuffer()
	b.PushCString("")
	b.PushBinary(nil)

	r := wire.NewBufferFrom(b.Bytes())
	require.Equal(t, "", string(r.PopCString()))
	require.Equal(t, []byte{}, r.PopBinary())
	require.NoError(t, r.Err())
}

func TestBufferShortRead(t *testing.T) {
	r := wire.NewBufferFrom([]byte{0x01, 0x02})
	r.PopUint32()
	require.Error(t, r.Err())

	var short *wire.ErrShort
	require.ErrorAs(t, r.Err(), &short)
	require.Equal(t, 4, short.Want)
	require.Equal(t, 2, short.Have)
}

func TestBufferUnterminatedCString(t *testing.T) {
	r := wire.NewBufferFrom([]byte{'a', 'b', 'c'})
	r.PopCString()
	require.Error(t, r.Err())
}

func TestBufferFraming(t *testing.T) {
	b := wire.NewBuffer()
	b.Start()
	b.PushByte(1)
	b.PushCString("abc")
	b.Finalize()

	require.Equal(t, 9, b.Len()) // 4-byte length prefix + 1 + 4 (abc\0)

	r := wire.NewBufferFrom(b.Bytes())
	length := r.PopUint32()
	require.Equal(t, uint32(5), length)
	require.Equal(t, byte(1), r.PopByte())
	require.Equal(t, "abc", string(r.PopCString()))
}
