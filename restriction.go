package exmdbpp

import "github.com/grommunio/exmdbpp-go/internal/wire"

// Comparison operators used by PROPERTY, PROPCOMP and SIZE restrictions.
const (
	OpLT uint8 = 0x00
	OpLE uint8 = 0x01
	OpGT uint8 = 0x02
	OpGE uint8 = 0x03
	OpEQ uint8 = 0x04
	OpNE uint8 = 0x05
)

// FuzzyLevel bits for CONTENT restrictions. The low 16 bits select one
// matching mode; IgnoreCase, IgnoreNonSpace and Loose are independent
// modifier bits.
const (
	FullString     uint32 = 0
	Substring      uint32 = 1
	Prefix         uint32 = 2
	IgnoreCase     uint32 = 1 << 16
	IgnoreNonSpace uint32 = 1 << 17
	Loose          uint32 = 1 << 18
)

// restriction wire type codes.
const (
	restAnd      uint8 = 0x00
	restOr       uint8 = 0x01
	restNot      uint8 = 0x02
	restContent  uint8 = 0x03
	restProperty uint8 = 0x04
	restPropComp uint8 = 0x05
	restBitmask  uint8 = 0x06
	restSize     uint8 = 0x07
	restExist    uint8 = 0x08
	restSubres   uint8 = 0x09
	restComment  uint8 = 0x0a
	restCount    uint8 = 0x0b
	restNull     uint8 = 0xff
)

// Restriction is the filter expression tree evaluated server-side to
// row-limit a table query. The zero value is the virtual NULL variant
// ("no filter"), which produces no bytes when serialized and is only
// valid at a top-level "no filter" position.
type Restriction struct {
	kind uint8

	children []Restriction // AND, OR
	child    *Restriction  // NOT, SUBRES, COUNT, COMMENT (optional)

	fuzzyLevel uint32 // CONTENT
	op         uint8  // PROPERTY, PROPCOMP, SIZE
	proptag    uint32 // CONTENT, PROPERTY, PROPCOMP(pt1), BITMASK, SIZE, EXIST
	proptag2   uint32 // PROPCOMP(pt2), BITMASK(mask), SIZE(size)
	value      TaggedPropval // CONTENT, PROPERTY
	all        bool   // BITMASK
	subobject  uint32 // SUBRES
	propvals   []TaggedPropval // COMMENT
	count      uint32 // COUNT
}

// IsNull reports whether r is the virtual NULL ("no filter") variant.
// The zero value's kind equals restAnd's code; it is told apart from a
// real AND by its nil children, which RestrictionAnd never leaves nil.
func (r Restriction) IsNull() bool {
	return r.kind == restNull || (r.kind == restAnd && r.children == nil)
}

// RestrictionAnd builds an AND of children.
func RestrictionAnd(children ...Restriction) Restriction {
	if children == nil {
		children = []Restriction{}
	}
	return Restriction{kind: restAnd, children: children}
}

// RestrictionOr builds an OR of children.
func RestrictionOr(children ...Restriction) Restriction {
	return Restriction{kind: restOr, children: children}
}

// RestrictionNot negates child.
func RestrictionNot(child Restriction) Restriction {
	return Restriction{kind: restNot, child: &child}
}

// RestrictionContent builds a fuzzy content-match filter. If proptag is
// 0, value's own tag is substituted at serialization time.
func RestrictionContent(fuzzyLevel uint32, proptag uint32, value TaggedPropval) Restriction {
	return Restriction{kind: restContent, fuzzyLevel: fuzzyLevel, proptag: proptag, value: value}
}

// RestrictionProperty builds an `op proptag value` comparison. If
// proptag is 0, value's own tag is substituted at serialization time.
func RestrictionProperty(op uint8, proptag uint32, value TaggedPropval) Restriction {
	return Restriction{kind: restProperty, op: op, proptag: proptag, value: value}
}

// RestrictionPropComp compares two properties of the same row.
func RestrictionPropComp(op uint8, pt1, pt2 uint32) Restriction {
	return Restriction{kind: restPropComp, op: op, proptag: pt1, proptag2: pt2}
}

// RestrictionBitmask tests proptag's value against mask. all selects
// "all bits set" vs "any bit set".
func RestrictionBitmask(all bool, proptag, mask uint32) Restriction {
	return Restriction{kind: restBitmask, all: all, proptag: proptag, proptag2: mask}
}

// RestrictionSize compares a property's byte size against size.
func RestrictionSize(op uint8, proptag, size uint32) Restriction {
	return Restriction{kind: restSize, op: op, proptag: proptag, proptag2: size}
}

// RestrictionExist matches rows where proptag is present.
func RestrictionExist(proptag uint32) Restriction {
	return Restriction{kind: restExist, proptag: proptag}
}

// RestrictionSubres applies child to a named subobject (e.g. an
// attachment or recipient table) of each row.
func RestrictionSubres(subobject uint32, child Restriction) Restriction {
	return Restriction{kind: restSubres, subobject: subobject, child: &child}
}

// RestrictionComment attaches propvals (1..255 of them) to an optional
// child restriction, purely as metadata carried alongside the filter.
func RestrictionComment(propvals []TaggedPropval, child *Restriction) Restriction {
	return Restriction{kind: restComment, propvals: propvals, child: child}
}

// RestrictionCount limits child to matching at most count rows.
func RestrictionCount(count uint32, child Restriction) Restriction {
	return Restriction{kind: restCount, count: count, child: &child}
}

// Serialize writes r's wire form to buf: nothing for NULL, otherwise a
// type code byte followed by the variant's payload.
func (r Restriction) Serialize(buf *wire.Buffer) error {
	if r.IsNull() {
		return nil
	}
	buf.PushByte(r.kind)
	switch r.kind {
	case restAnd, restOr:
		if uint64(len(r.children)) > 0xFFFFFFFF {
			return &SerializationError{Msg: "restriction chain too long"}
		}
		buf.PushUint32(uint32(len(r.children)))
		for _, c := range r.children {
			if err := c.Serialize(buf); err != nil {
				return err
			}
		}
	case restNot:
		return r.child.Serialize(buf)
	case restContent:
		tag := r.proptag
		if tag == 0 {
			tag = r.value.Tag
		}
		buf.PushUint32(r.fuzzyLevel)
		buf.PushUint32(tag)
		return r.value.Serialize(buf)
	case restProperty:
		tag := r.proptag
		if tag == 0 {
			tag = r.value.Tag
		}
		buf.PushByte(r.op)
		buf.PushUint32(tag)
		return r.value.Serialize(buf)
	case restPropComp:
		buf.PushByte(r.op)
		buf.PushUint32(r.proptag)
		buf.PushUint32(r.proptag2)
	case restBitmask:
		buf.PushBool(!r.all)
		buf.PushUint32(r.proptag)
		buf.PushUint32(r.proptag2)
	case restSize:
		buf.PushByte(r.op)
		buf.PushUint32(r.proptag)
		buf.PushUint32(r.proptag2)
	case restExist:
		buf.PushUint32(r.proptag)
	case restSubres:
		buf.PushUint32(r.subobject)
		return r.child.Serialize(buf)
	case restComment:
		if len(r.propvals) == 0 || len(r.propvals) > 255 {
			return &SerializationError{Msg: "COMMENT restriction propval count out of range"}
		}
		buf.PushByte(uint8(len(r.propvals)))
		for _, pv := range r.propvals {
			if err := pv.Serialize(buf); err != nil {
				return err
			}
		}
		buf.PushBool(r.child != nil)
		if r.child != nil {
			return r.child.Serialize(buf)
		}
	case restCount:
		buf.PushUint32(r.count)
		return r.child.Serialize(buf)
	default:
		return &SerializationError{Msg: "unknown restriction type"}
	}
	return nil
}
