package exmdbpp

import "math/bits"

// ValueToGc converts a 48-bit value into GC buffer form: the value is
// shifted into the top 6 bytes of a 64-bit word, then byte-reversed so
// those 6 bytes are ordered big-endian on the wire.
func ValueToGc(value uint64) uint64 {
	return bits.ReverseBytes64(value << 16)
}

// GcToValue is the inverse of ValueToGc.
func GcToValue(gc uint64) uint64 {
	return bits.ReverseBytes64(gc) >> 16
}

// MakeEid composes a 64-bit entity id from a 16-bit replica id and a GC
// value: the replica id occupies the low 16 bits, the GC's 48 bits
// occupy the high 48 bits. Always uses this explicit, byte-order
// independent form; never branch on host endianness.
func MakeEid(replID uint16, gc uint64) uint64 {
	return uint64(replID) | (gc << 16)
}

// MakeEidEx composes an entity id directly from a plain value, first
// converting it to GC form.
func MakeEidEx(replID uint16, value uint64) uint64 {
	return MakeEid(replID, ValueToGc(value))
}

// ntEpochOffset is the number of seconds between the Windows NT epoch
// (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const ntEpochOffset = 11644473600

// NxTime converts a Windows NT timestamp (100-ns ticks since
// 1601-01-01 UTC) to a Unix timestamp (seconds since 1970-01-01 UTC).
func NxTime(ntTime uint64) int64 {
	return int64(ntTime/10000000) - ntEpochOffset
}

// NtTime converts a Unix timestamp to a Windows NT timestamp.
func NtTime(unixTime int64) uint64 {
	return uint64(unixTime+ntEpochOffset) * 10000000
}
