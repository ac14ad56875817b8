package exmdbpp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

func TestRestrictionSerializeWireCode(t *testing.T) {
	displayNameTag := uint32(0x3001)<<16 | uint32(String)
	pv := must(NewString(displayNameTag, "Shared", true))

	tests := []struct {
		name string
		r    Restriction
		code uint8
	}{
		{"and", RestrictionAnd(RestrictionExist(1), RestrictionExist(2)), restAnd},
		{"or", RestrictionOr(RestrictionExist(1)), restOr},
		{"not", RestrictionNot(RestrictionExist(1)), restNot},
		{"content", RestrictionContent(Substring, displayNameTag, pv), restContent},
		{"property", RestrictionProperty(OpEQ, displayNameTag, pv), restProperty},
		{"propcomp", RestrictionPropComp(OpLT, 1, 2), restPropComp},
		{"bitmask", RestrictionBitmask(true, 1, 0x10), restBitmask},
		{"size", RestrictionSize(OpGE, 1, 1024), restSize},
		{"exist", RestrictionExist(1), restExist},
		{"subres", RestrictionSubres(7, RestrictionExist(1)), restSubres},
		{"comment", RestrictionComment([]TaggedPropval{pv}, nil), restComment},
		{"count", RestrictionCount(3, RestrictionExist(1)), restCount},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := wire.NewBuffer()
			require.NoError(t, test.r.Serialize(buf))
			require.NotZero(t, buf.Len())
			require.Equal(t, test.code, buf.Bytes()[0])
		})
	}
}

func TestRestrictionNullProducesNoBytes(t *testing.T) {
	buf := wire.NewBuffer()
	require.NoError(t, Restriction{}.Serialize(buf))
	require.Zero(t, buf.Len())
	require.True(t, Restriction{}.IsNull())
}

func TestRestrictionContentZeroProptagSubstitution(t *testing.T) {
	displayNameTag := uint32(0x3001)<<16 | uint32(String)
	pv := must(NewString(displayNameTag, "Shared", true))
	r := RestrictionContent(FullString, 0, pv)

	buf := wire.NewBuffer()
	require.NoError(t, r.Serialize(buf))

	got := wire.NewBufferFrom(buf.Bytes())
	require.Equal(t, restContent, got.PopByte())
	require.Equal(t, FullString, got.PopUint32())
	require.Equal(t, displayNameTag, got.PopUint32())
}

func TestRestrictionCommentRejectsEmptyPropvals(t *testing.T) {
	r := RestrictionComment(nil, nil)
	buf := wire.NewBuffer()
	err := r.Serialize(buf)
	require.Error(t, err)

	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestRestrictionAndChildCount(t *testing.T) {
	r := RestrictionAnd(RestrictionExist(1), RestrictionExist(2), RestrictionExist(3))
	buf := wire.NewBuffer()
	require.NoError(t, r.Serialize(buf))

	got := wire.NewBufferFrom(buf.Bytes())
	require.Equal(t, restAnd, got.PopByte())
	require.Equal(t, uint32(3), got.PopUint32())
}

func TestRestrictionBitmaskNegation(t *testing.T) {
	allTrue := RestrictionBitmask(true, 1, 0xFF)
	buf := wire.NewBuffer()
	require.NoError(t, allTrue.Serialize(buf))
	got := wire.NewBufferFrom(buf.Bytes())
	got.PopByte()
	require.False(t, got.PopBool()) // wire 0 means "all"

	anyTrue := RestrictionBitmask(false, 1, 0xFF)
	buf2 := wire.NewBuffer()
	require.NoError(t, anyTrue.Serialize(buf2))
	got2 := wire.NewBufferFrom(buf2.Bytes())
	got2.PopByte()
	require.True(t, got2.PopBool()) // wire 1 means "any"
}
