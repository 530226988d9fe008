package vm

import "math"

// Value is a NaN-boxed ember value.
//
// A Value that is not a quiet NaN carrying one of the tags below is a
// float64. Tagged payloads use the low 48 bits:
//
//	tagObject   heap allocation id
//	tagInt      48-bit two's complement integer
//	tagSpecial  nil, true, false, undef
//	tagSymbol   interned symbol id
//
// Heap references hold the allocation id rather than a pointer, so live
// objects are always reached through the Heap table. Two values are
// identical when their bit patterns are equal.
type Value uint64

const (
	nanBits     uint64 = 0x7FF8000000000000
	expBits     uint64 = 0x7FF0000000000000
	mantBits    uint64 = 0x000FFFFFFFFFFFFF
	tagMask     uint64 = 0x0007000000000000
	payloadMask uint64 = 0x0000FFFFFFFFFFFF
	boxMask            = nanBits | tagMask

	tagObject  uint64 = 1 << 48
	tagInt     uint64 = 2 << 48
	tagSpecial uint64 = 3 << 48
	tagSymbol  uint64 = 4 << 48

	intSignBit    uint64 = 1 << 47
	intSignExtend uint64 = ^payloadMask
)

const (
	specialNil uint64 = iota
	specialTrue
	specialFalse
	specialUndef
)

const (
	Nil   = Value(nanBits | tagSpecial | specialNil)
	True  = Value(nanBits | tagSpecial | specialTrue)
	False = Value(nanBits | tagSpecial | specialFalse)

	// Undef marks an absent value (an unbound receiver, a missing ivar slot).
	// It never escapes to script code.
	Undef = Value(nanBits | tagSpecial | specialUndef)
)

// Integer range held inline.
const (
	MaxSmallInt int64 = 1<<47 - 1
	MinSmallInt int64 = -1 << 47
)

func box(tag, payload uint64) Value { return Value(nanBits | tag | payload&payloadMask) }

func (v Value) hasTag(tag uint64) bool { return uint64(v)&boxMask == nanBits|tag }

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// IsFloat reports whether v holds a float64. Ordinary numbers, both
// infinities, signaling NaNs and the untagged quiet NaN all qualify.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	switch {
	case bits&expBits != expBits:
		return true
	case bits&mantBits == 0:
		return true
	case bits&nanBits != nanBits:
		return true
	}
	return bits&tagMask == 0
}

func (v Value) IsSmallInt() bool { return v.hasTag(tagInt) }

// IsObject reports whether v references a heap object.
func (v Value) IsObject() bool { return v.hasTag(tagObject) }

func (v Value) IsSymbol() bool { return v.hasTag(tagSymbol) }

// IsSpecial reports whether v is nil, true, false or undef.
func (v Value) IsSpecial() bool { return v.hasTag(tagSpecial) }

func (v Value) IsNil() bool   { return v == Nil }
func (v Value) IsUndef() bool { return v == Undef }
func (v Value) IsBool() bool  { return v == True || v == False }

// IsImmediate is true for everything except heap references.
func (v Value) IsImmediate() bool { return !v.IsObject() }

// IsTruthy follows Ruby truthiness: only nil and false are falsy. Undef
// is treated as falsy too.
func (v Value) IsTruthy() bool {
	return v != False && v != Nil && v != Undef
}

func (v Value) IsFalsy() bool { return !v.IsTruthy() }

// ---------------------------------------------------------------------------
// Constructors and accessors
// ---------------------------------------------------------------------------

// The accessors panic on a mismatched kind; callers check first.

func FromFloat64(f float64) Value { return Value(math.Float64bits(f)) }

func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("vm: Float64 of non-float value")
	}
	return math.Float64frombits(uint64(v))
}

// FromSmallInt boxes n, panicking when n does not fit in 48 bits. Use
// TryFromSmallInt or IntValue for unchecked input.
func FromSmallInt(n int64) Value {
	v, ok := TryFromSmallInt(n)
	if !ok {
		panic("vm: integer out of inline range")
	}
	return v
}

func TryFromSmallInt(n int64) (Value, bool) {
	if n > MaxSmallInt || n < MinSmallInt {
		return Nil, false
	}
	return box(tagInt, uint64(n)), true
}

func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("vm: SmallInt of non-integer value")
	}
	p := uint64(v) & payloadMask
	if p&intSignBit != 0 {
		p |= intSignExtend
	}
	return int64(p)
}

func fromObjectID(id uint32) Value { return box(tagObject, uint64(id)) }

// ObjectID returns the heap allocation id of an object reference.
func (v Value) ObjectID() uint32 {
	if !v.IsObject() {
		panic("vm: ObjectID of immediate value")
	}
	return uint32(uint64(v) & payloadMask)
}

func FromSymbol(sym Symbol) Value { return box(tagSymbol, uint64(sym)) }

func (v Value) Symbol() Symbol {
	if !v.IsSymbol() {
		panic("vm: Symbol of non-symbol value")
	}
	return Symbol(uint64(v) & payloadMask)
}

func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	}
	panic("vm: Bool of non-boolean value")
}
