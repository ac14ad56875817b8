package exmdbpp

import (
	"golang.org/x/text/encoding/unicode"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// TaggedPropval is a tagged union of a property tag and the value it
// carries on the wire. Type determines which Go type Value holds; see
// the PropvalType table for the mapping.
//
// A propval constructed with copy=true (or produced by Deserialize)
// owns its string/binary/array storage. One constructed with copy=false
// borrows the caller's backing array and imposes a lifetime constraint:
// the caller must keep that array alive and unmodified for as long as
// the propval is used. Borrowed checks which case applies.
type TaggedPropval struct {
	Tag    uint32
	Type   PropvalType
	owned  bool
	Value  any
}

// Borrowed reports whether this propval holds a non-owning view over
// caller-supplied storage rather than its own copy.
func (p TaggedPropval) Borrowed() bool { return !p.owned }

func invalidType(tag uint32, t PropvalType, wanted string) error {
	return &InvalidTypeError{Tag: tag, Type: t, Wanted: wanted}
}

// NewByte constructs a BYTE propval.
func NewByte(tag uint32, v uint8) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Byte {
		return TaggedPropval{}, invalidType(tag, t, "uint8")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewShort constructs a SHORT propval.
func NewShort(tag uint32, v uint16) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Short {
		return TaggedPropval{}, invalidType(tag, t, "uint16")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewLong constructs a LONG or ERROR propval.
func NewLong(tag uint32, v uint32) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Long && t != PtypError {
		return TaggedPropval{}, invalidType(tag, t, "uint32")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewLongLong constructs a LONGLONG, CURRENCY, or FILETIME propval.
func NewLongLong(tag uint32, v uint64) (TaggedPropval, error) {
	t := TagType(tag)
	if t != LongLong && t != Currency && t != FileTime {
		return TaggedPropval{}, invalidType(tag, t, "uint64")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewFloat constructs a FLOAT propval.
func NewFloat(tag uint32, v float32) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Float {
		return TaggedPropval{}, invalidType(tag, t, "float32")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewDouble constructs a DOUBLE or FLOATINGTIME propval.
func NewDouble(tag uint32, v float64) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Double && t != FloatingTime {
		return TaggedPropval{}, invalidType(tag, t, "float64")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: true, Value: v}, nil
}

// NewString constructs a STRING or WSTRING propval. copy controls
// whether the value is treated as owned or borrowed; for Go strings
// (already immutable) this only affects Borrowed()'s reported value,
// since no mutable backing array can be aliased either way.
func NewString(tag uint32, v string, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != String && t != WString {
		return TaggedPropval{}, invalidType(tag, t, "string")
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewBinary constructs a BINARY propval. When copy is true, v is
// duplicated into owned storage; when false, the returned propval
// borrows v and the caller must keep it alive and unmodified.
func NewBinary(tag uint32, v []byte, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != Binary {
		return TaggedPropval{}, invalidType(tag, t, "[]byte")
	}
	if copy {
		dup := make([]byte, len(v))
		copyBytes(dup, v)
		v = dup
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

func copyBytes(dst, src []byte) { for i := range src { dst[i] = src[i] } }

// NewShortArray constructs a SHORT_ARRAY propval.
func NewShortArray(tag uint32, v []uint16, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != ShortArray {
		return TaggedPropval{}, invalidType(tag, t, "[]uint16")
	}
	if copy {
		v = append([]uint16(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewLongArray constructs a LONG_ARRAY propval.
func NewLongArray(tag uint32, v []uint32, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != LongArray {
		return TaggedPropval{}, invalidType(tag, t, "[]uint32")
	}
	if copy {
		v = append([]uint32(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewLongLongArray constructs a LONGLONG_ARRAY or CURRENCY_ARRAY propval.
func NewLongLongArray(tag uint32, v []uint64, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != LongLongArray && t != CurrencyArray {
		return TaggedPropval{}, invalidType(tag, t, "[]uint64")
	}
	if copy {
		v = append([]uint64(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewFloatArray constructs a FLOAT_ARRAY propval.
func NewFloatArray(tag uint32, v []float32, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != FloatArray {
		return TaggedPropval{}, invalidType(tag, t, "[]float32")
	}
	if copy {
		v = append([]float32(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewDoubleArray constructs a DOUBLE_ARRAY or FLOATINGTIME_ARRAY propval.
func NewDoubleArray(tag uint32, v []float64, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != DoubleArray && t != FloatingTimeArray {
		return TaggedPropval{}, invalidType(tag, t, "[]float64")
	}
	if copy {
		v = append([]float64(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewStringArray constructs a STRING_ARRAY or WSTRING_ARRAY propval.
func NewStringArray(tag uint32, v []string, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != StringArray && t != WStringArray {
		return TaggedPropval{}, invalidType(tag, t, "[]string")
	}
	if copy {
		v = append([]string(nil), v...)
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// NewBinaryArray constructs a BINARY_ARRAY propval.
func NewBinaryArray(tag uint32, v [][]byte, copy bool) (TaggedPropval, error) {
	t := TagType(tag)
	if t != BinaryArray {
		return TaggedPropval{}, invalidType(tag, t, "[][]byte")
	}
	if copy {
		dup := make([][]byte, len(v))
		for i, b := range v {
			dup[i] = append([]byte(nil), b...)
		}
		v = dup
	}
	return TaggedPropval{Tag: tag, Type: t, owned: copy, Value: v}, nil
}

// Clone returns a deep copy that owns its own storage, regardless of
// whether the receiver was borrowed.
func (p TaggedPropval) Clone() TaggedPropval {
	clone := p
	clone.owned = true
	switch v := p.Value.(type) {
	case []byte:
		clone.Value = append([]byte(nil), v...)
	case []uint16:
		clone.Value = append([]uint16(nil), v...)
	case []uint32:
		clone.Value = append([]uint32(nil), v...)
	case []uint64:
		clone.Value = append([]uint64(nil), v...)
	case []float32:
		clone.Value = append([]float32(nil), v...)
	case []float64:
		clone.Value = append([]float64(nil), v...)
	case []string:
		clone.Value = append([]string(nil), v...)
	case [][]byte:
		dup := make([][]byte, len(v))
		for i, b := range v {
			dup[i] = append([]byte(nil), b...)
		}
		clone.Value = dup
	}
	return clone
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func encodeUTF16LE(s string) ([]byte, error) {
	return utf16LE.NewEncoder().Bytes([]byte(s))
}

func decodeUTF16LE(b []byte) (string, error) {
	out, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Serialize appends tag (and, when the tag's embedded type is
// Unspecified, an explicit type field) followed by the value payload
// for Type.
func (p TaggedPropval) Serialize(buf *wire.Buffer) error {
	buf.PushUint32(p.Tag)
	if TagType(p.Tag) == Unspecified {
		buf.PushUint16(uint16(p.Type))
	}
	switch p.Type {
	case Byte:
		buf.PushByte(p.Value.(uint8))
	case Short:
		buf.PushUint16(p.Value.(uint16))
	case Long, PtypError:
		buf.PushUint32(p.Value.(uint32))
	case LongLong, Currency, FileTime:
		buf.PushUint64(p.Value.(uint64))
	case Float:
		buf.PushFloat32(p.Value.(float32))
	case Double, FloatingTime:
		buf.PushFloat64(p.Value.(float64))
	case String:
		buf.PushCString(p.Value.(string))
	case WString:
		enc, err := encodeUTF16LE(p.Value.(string))
		if err != nil {
			return &SerializationError{Msg: "encoding WSTRING: " + err.Error()}
		}
		buf.PushWChars(enc)
	case Binary:
		buf.PushBinary(p.Value.([]byte))
	case ShortArray:
		arr := p.Value.([]uint16)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushUint16(v)
		}
	case LongArray:
		arr := p.Value.([]uint32)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushUint32(v)
		}
	case LongLongArray, CurrencyArray:
		arr := p.Value.([]uint64)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushUint64(v)
		}
	case FloatArray:
		arr := p.Value.([]float32)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushFloat32(v)
		}
	case DoubleArray, FloatingTimeArray:
		arr := p.Value.([]float64)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushFloat64(v)
		}
	case StringArray:
		arr := p.Value.([]string)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushCString(v)
		}
	case WStringArray:
		arr := p.Value.([]string)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			enc, err := encodeUTF16LE(v)
			if err != nil {
				return &SerializationError{Msg: "encoding WSTRING: " + err.Error()}
			}
			buf.PushWChars(enc)
		}
	case BinaryArray:
		arr := p.Value.([][]byte)
		buf.PushUint32(uint32(len(arr)))
		for _, v := range arr {
			buf.PushBinary(v)
		}
	default:
		return &SerializationError{Msg: "unsupported propval type"}
	}
	return nil
}

// DeserializeTaggedPropval reads one TaggedPropval from buf.
func DeserializeTaggedPropval(buf *wire.Buffer) (TaggedPropval, error) {
	tag := buf.PopUint32()
	t := TagType(tag)
	if t == Unspecified {
		t = PropvalType(buf.PopUint16())
	}
	p := TaggedPropval{Tag: tag, Type: t, owned: true}
	switch t {
	case Byte:
		p.Value = buf.PopByte()
	case Short:
		p.Value = buf.PopUint16()
	case Long, PtypError:
		p.Value = buf.PopUint32()
	case LongLong, Currency, FileTime:
		p.Value = buf.PopUint64()
	case Float:
		p.Value = buf.PopFloat32()
	case Double, FloatingTime:
		p.Value = buf.PopFloat64()
	case String:
		p.Value = string(append([]byte(nil), buf.PopCString()...))
	case WString:
		raw := buf.PopWChars()
		if buf.Err() != nil {
			return TaggedPropval{}, WrapShortRead(buf.Err())
		}
		s, err := decodeUTF16LE(raw)
		if err != nil {
			return TaggedPropval{}, &SerializationError{Msg: "decoding WSTRING: " + err.Error()}
		}
		p.Value = s
	case Binary:
		p.Value = append([]byte(nil), buf.PopBinary()...)
	case ShortArray:
		n := buf.PopUint32()
		arr := make([]uint16, n)
		for i := range arr {
			arr[i] = buf.PopUint16()
		}
		p.Value = arr
	case LongArray:
		n := buf.PopUint32()
		arr := make([]uint32, n)
		for i := range arr {
			arr[i] = buf.PopUint32()
		}
		p.Value = arr
	case LongLongArray, CurrencyArray:
		n := buf.PopUint32()
		arr := make([]uint64, n)
		for i := range arr {
			arr[i] = buf.PopUint64()
		}
		p.Value = arr
	case FloatArray:
		n := buf.PopUint32()
		arr := make([]float32, n)
		for i := range arr {
			arr[i] = buf.PopFloat32()
		}
		p.Value = arr
	case DoubleArray, FloatingTimeArray:
		n := buf.PopUint32()
		arr := make([]float64, n)
		for i := range arr {
			arr[i] = buf.PopFloat64()
		}
		p.Value = arr
	case StringArray:
		n := buf.PopUint32()
		arr := make([]string, n)
		for i := range arr {
			arr[i] = string(append([]byte(nil), buf.PopCString()...))
		}
		p.Value = arr
	case WStringArray:
		n := buf.PopUint32()
		arr := make([]string, n)
		for i := range arr {
			raw := buf.PopWChars()
			if buf.Err() != nil {
				return TaggedPropval{}, WrapShortRead(buf.Err())
			}
			s, err := decodeUTF16LE(raw)
			if err != nil {
				return TaggedPropval{}, &SerializationError{Msg: "decoding WSTRING: " + err.Error()}
			}
			arr[i] = s
		}
		p.Value = arr
	case BinaryArray:
		n := buf.PopUint32()
		arr := make([][]byte, n)
		for i := range arr {
			arr[i] = append([]byte(nil), buf.PopBinary()...)
		}
		p.Value = arr
	default:
		return TaggedPropval{}, &SerializationError{Msg: "unsupported propval type"}
	}
	if buf.Err() != nil {
		return TaggedPropval{}, WrapShortRead(buf.Err())
	}
	return p, nil
}
