package exmdbpp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

func TestTaggedPropvalRoundTrip(t *testing.T) {
	tag := func(id uint16, typ PropvalType) uint32 {
		return uint32(id)<<16 | uint32(typ)
	}

	tests := []struct {
		name string
		pv   TaggedPropval
	}{
		{"byte", must(NewByte(tag(1, Byte), 0xAB))},
		{"short", must(NewShort(tag(2, Short), 0x1234))},
		{"long", must(NewLong(tag(3, Long), 0xDEADBEEF))},
		{"longlong", must(NewLongLong(tag(4, LongLong), 0x0102030405060708))},
		{"float", must(NewFloat(tag(5, Float), 1.5))},
		{"double", must(NewDouble(tag(6, Double), 2.25))},
		{"string", must(NewString(tag(7, String), "hello world", true))},
		{"empty string", must(NewString(tag(7, String), "", true))},
		{"wstring", must(NewString(tag(8, WString), "grommunio", true))},
		{"binary", must(NewBinary(tag(9, Binary), []byte{1, 2, 3, 4}, true))},
		{"empty binary", must(NewBinary(tag(9, Binary), []byte{}, true))},
		{"short array", must(NewShortArray(tag(10, ShortArray), []uint16{1, 2, 3}, true))},
		{"long array empty", must(NewLongArray(tag(11, LongArray), nil, true))},
		{"string array", must(NewStringArray(tag(12, StringArray), []string{"a", "bb", "ccc"}, true))},
		{"wstring array", must(NewStringArray(tag(13, WStringArray), []string{"x", "y"}, true))},
		{"binary array", must(NewBinaryArray(tag(14, BinaryArray), [][]byte{{1}, {2, 3}}, true))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := wire.NewBuffer()
			require.NoError(t, test.pv.Serialize(buf))

			r := wire.NewBufferFrom(buf.Bytes())
			got, err := DeserializeTaggedPropval(r)
			require.NoError(t, err)

			diff := cmp.Diff(test.pv.Tag, got.Tag)
			require.Empty(t, diff)
			require.Equal(t, test.pv.Type, got.Type)
			if diff := cmp.Diff(test.pv.Value, got.Value, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaggedPropvalInvalidType(t *testing.T) {
	tag := uint32(1)<<16 | uint32(Short)
	_, err := NewByte(tag, 1)
	require.Error(t, err)

	var invalidType *InvalidTypeError
	require.ErrorAs(t, err, &invalidType)
}

func TestTaggedPropvalUnspecifiedType(t *testing.T) {
	tag := uint32(1)<<16 | uint32(Unspecified)
	pv := TaggedPropval{Tag: tag, Type: Long, Value: uint32(42)}

	buf := wire.NewBuffer()
	require.NoError(t, pv.Serialize(buf))

	r := wire.NewBufferFrom(buf.Bytes())
	got, err := DeserializeTaggedPropval(r)
	require.NoError(t, err)
	require.Equal(t, Long, got.Type)
	require.Equal(t, uint32(42), got.Value)
}

func TestTaggedPropvalBorrowed(t *testing.T) {
	pv, err := NewBinary(uint32(Binary), []byte{1, 2, 3}, false)
	require.NoError(t, err)
	require.True(t, pv.Borrowed())

	owned, err := NewBinary(uint32(Binary), []byte{1, 2, 3}, true)
	require.NoError(t, err)
	require.False(t, owned.Borrowed())

	clone := pv.Clone()
	require.False(t, clone.Borrowed())
}

func must(pv TaggedPropval, err error) TaggedPropval {
	if err != nil {
		panic(err)
	}
	return pv
}
