package exmdbpp

import (
	"github.com/pborman/uuid"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// GUID is a 128-bit Microsoft GUID in its five-field layout.
type GUID struct {
	TimeLow          uint32
	TimeMid          uint16
	TimeHiAndVersion uint16
	ClockSeq         [2]byte
	Node             [6]byte
}

// domainGUIDMid, domainGUIDHiVersion, domainGUIDClockSeq and
// domainGUIDNode are the fixed suffix bytes exmdb uses to derive a
// per-domain store GUID from a 32-bit domain id.
var (
	domainGUIDMid       uint16  = 0x0afb
	domainGUIDHiVersion uint16  = 0x7df6
	domainGUIDClockSeq  [2]byte = [2]byte{0x91, 0x92}
	domainGUIDNode      [6]byte = [6]byte{0x49, 0x88, 0x6a, 0xa7, 0x38, 0xce}
)

// GUIDFromDomainID derives a store GUID from a domain id by substituting
// it as TimeLow and keeping exmdb's fixed suffix for the remaining fields.
func GUIDFromDomainID(domainID uint32) GUID {
	return GUID{
		TimeLow:          domainID,
		TimeMid:          domainGUIDMid,
		TimeHiAndVersion: domainGUIDHiVersion,
		ClockSeq:         domainGUIDClockSeq,
		Node:             domainGUIDNode,
	}
}

// ParseGUID parses a GUID from its canonical hex text form
// (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx), which is byte-identical to an
// RFC 4122 UUID's text form.
func ParseGUID(s string) (GUID, error) {
	u := uuid.Parse(s)
	if u == nil {
		return GUID{}, &SerializationError{Msg: "invalid GUID: " + s}
	}
	var g GUID
	g.TimeLow = uint32(u[0])<<24 | uint32(u[1])<<16 | uint32(u[2])<<8 | uint32(u[3])
	g.TimeMid = uint16(u[4])<<8 | uint16(u[5])
	g.TimeHiAndVersion = uint16(u[6])<<8 | uint16(u[7])
	copy(g.ClockSeq[:], u[8:10])
	copy(g.Node[:], u[10:16])
	return g, nil
}

// Serialize appends the GUID's 16 bytes to buf in the wire byte order:
// time_low, time_mid, time_hi_and_version little-endian, followed by
// clock_seq and node verbatim.
func (g GUID) Serialize(buf *wire.Buffer) {
	buf.PushUint32(g.TimeLow)
	buf.PushUint16(g.TimeMid)
	buf.PushUint16(g.TimeHiAndVersion)
	buf.PushRaw(g.ClockSeq[:])
	buf.PushRaw(g.Node[:])
}

// ParseGUIDFrom reads a GUID from buf in wire byte order.
func ParseGUIDFrom(buf *wire.Buffer) GUID {
	var g GUID
	g.TimeLow = buf.PopUint32()
	g.TimeMid = buf.PopUint16()
	g.TimeHiAndVersion = buf.PopUint16()
	copy(g.ClockSeq[:], buf.PopRaw(2))
	copy(g.Node[:], buf.PopRaw(6))
	return g
}

// SizedXID is a versioned identifier written into change keys and
// predecessor-change lists: a GUID followed by the low (size-16) bytes
// of a local id, little-endian.
type SizedXID struct {
	Size    uint8 // 17..24
	GUID    GUID
	LocalID uint64
}

// NewSizedXID builds a SizedXID with the default exmdb size of 22 bytes
// (16-byte GUID + 6-byte local id prefix, matching a 48-bit GC value).
func NewSizedXID(guid GUID, localID uint64) SizedXID {
	return SizedXID{Size: 22, GUID: guid, LocalID: localID}
}

// Serialize appends the XID to buf: size, then the 16-byte GUID, then
// the first (Size-16) little-endian bytes of LocalID.
func (x SizedXID) Serialize(buf *wire.Buffer) error {
	if x.Size < 17 || x.Size > 24 {
		return &SerializationError{Msg: "invalid SizedXID size"}
	}
	buf.PushByte(x.Size)
	x.GUID.Serialize(buf)
	n := int(x.Size) - 16
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(x.LocalID >> (8 * i))
	}
	buf.PushRaw(tmp[:n])
	return nil
}

// Permission row operation flags, per exmdb's UpdateFolderPermission.
const (
	AddRow    uint8 = 1
	ModifyRow uint8 = 2
	RemoveRow uint8 = 4
)

// PermissionData describes one row of a folder permission-table edit.
type PermissionData struct {
	Flags    uint8
	Propvals []TaggedPropval
}

// Serialize appends the flags byte, a uint32 propval count, and each
// propval's own serialization.
func (p PermissionData) Serialize(buf *wire.Buffer) error {
	buf.PushByte(p.Flags)
	buf.PushUint32(uint32(len(p.Propvals)))
	for _, pv := range p.Propvals {
		if err := pv.Serialize(buf); err != nil {
			return err
		}
	}
	return nil
}

// PropertyName identifiers a named property by either its numeric LID
// (Kind == PropertyNameID) or its string Name (Kind == PropertyNameString).
type PropertyName struct {
	Kind uint8
	GUID GUID
	Lid  uint32
	Name string
}

// PropertyName kinds.
const (
	PropertyNameID     uint8 = 0
	PropertyNameString uint8 = 1
)

// Serialize appends the property name in the layout ResolveNamedProperties
// expects: kind, GUID, then either Lid or a NUL-terminated Name.
func (p PropertyName) Serialize(buf *wire.Buffer) {
	buf.PushByte(p.Kind)
	p.GUID.Serialize(buf)
	if p.Kind == PropertyNameID {
		buf.PushUint32(p.Lid)
		return
	}
	buf.PushCString(p.Name)
}

// PropertyProblem reports that one propval in a request was rejected by
// the server, at the given index in the original array, with an error
// code in place of a value.
type PropertyProblem struct {
	Index   uint16
	Proptag uint32
	Err     uint32
}

// ParsePropertyProblem reads a PropertyProblem in wire order.
func ParsePropertyProblem(buf *wire.Buffer) PropertyProblem {
	return PropertyProblem{
		Index:   buf.PopUint16(),
		Proptag: buf.PopUint32(),
		Err:     buf.PopUint32(),
	}
}
