package exmdbpp

// PropvalType is the wire type code carried in the low 16 bits of a
// property tag (or, when the tag's low bits equal Unspecified, in an
// explicit 16-bit field immediately following the tag).
type PropvalType uint16

// Scalar and array wire type codes, per MS-OXCDATA's PT_* property types.
const (
	Unspecified       PropvalType = 0x0000
	Byte              PropvalType = 0x0001
	Short             PropvalType = 0x0002
	Long              PropvalType = 0x0003
	Float             PropvalType = 0x0004
	Double            PropvalType = 0x0005
	Currency          PropvalType = 0x0006
	FloatingTime      PropvalType = 0x0007
	PtypError         PropvalType = 0x000A
	LongLong          PropvalType = 0x0014
	String            PropvalType = 0x001E
	WString           PropvalType = 0x001F
	FileTime          PropvalType = 0x0040
	Binary            PropvalType = 0x0102
	ShortArray        PropvalType = 0x1002
	LongArray         PropvalType = 0x1003
	FloatArray        PropvalType = 0x1004
	DoubleArray       PropvalType = 0x1005
	CurrencyArray     PropvalType = 0x1006
	FloatingTimeArray PropvalType = 0x1007
	LongLongArray     PropvalType = 0x1014
	StringArray       PropvalType = 0x101E
	WStringArray      PropvalType = 0x101F
	BinaryArray       PropvalType = 0x1102
)

// arrayBit distinguishes an array wire code from its scalar counterpart.
const arrayBit PropvalType = 0x1000

// IsArray reports whether t is one of the array-valued type codes.
func (t PropvalType) IsArray() bool {
	return t&arrayBit != 0
}

// TagType extracts the wire type code from a 32-bit property tag.
func TagType(tag uint32) PropvalType {
	return PropvalType(tag & 0xFFFF)
}

func (t PropvalType) String() string {
	switch t {
	case Unspecified:
		return "UNSPECIFIED"
	case Byte:
		return "BYTE"
	case Short:
		return "SHORT"
	case Long:
		return "LONG"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Currency:
		return "CURRENCY"
	case FloatingTime:
		return "FLOATINGTIME"
	case PtypError:
		return "ERROR"
	case LongLong:
		return "LONGLONG"
	case String:
		return "STRING"
	case WString:
		return "WSTRING"
	case FileTime:
		return "FILETIME"
	case Binary:
		return "BINARY"
	case ShortArray:
		return "SHORT_ARRAY"
	case LongArray:
		return "LONG_ARRAY"
	case FloatArray:
		return "FLOAT_ARRAY"
	case DoubleArray:
		return "DOUBLE_ARRAY"
	case CurrencyArray:
		return "CURRENCY_ARRAY"
	case FloatingTimeArray:
		return "FLOATINGTIME_ARRAY"
	case LongLongArray:
		return "LONGLONG_ARRAY"
	case StringArray:
		return "STRING_ARRAY"
	case WStringArray:
		return "WSTRING_ARRAY"
	case BinaryArray:
		return "BINARY_ARRAY"
	default:
		return "UNKNOWN"
	}
}
