package exmdbpp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGcValueAlgebra(t *testing.T) {
	values := []uint64{0, 1, 42, 0xFFFFFFFF, 0xFFFFFFFFFFFF, 0x0000000000000001, 0x123456789ABC}
	for _, v := range values {
		got := GcToValue(ValueToGc(v))
		require.Equal(t, v, got, "round trip for %#x", v)
	}
}

func TestValueToGcAllocateCnScenario(t *testing.T) {
	// changeNum = 1, as AllocateCn returns it after decoding the
	// big-endian reply, survives the GC round trip used for change keys.
	changeNum := uint64(1)
	gc := ValueToGc(changeNum)
	require.Equal(t, changeNum, GcToValue(gc))
}

func TestMakeEid(t *testing.T) {
	replID := uint16(5)
	gc := ValueToGc(7)
	eid := MakeEid(replID, gc)
	require.Equal(t, uint64(replID), eid&0xFFFF)
	require.Equal(t, gc, eid>>16)
}

func TestMakeEidEx(t *testing.T) {
	require.Equal(t, MakeEid(1, ValueToGc(99)), MakeEidEx(1, 99))
}

func TestTimeAlgebra(t *testing.T) {
	times := []int64{0, 1, 1_000_000, 1_700_000_000}
	for _, tt := range times {
		require.Equal(t, tt, NxTime(NtTime(tt)))
	}
}
