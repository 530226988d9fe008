package vm

// ---------------------------------------------------------------------------
// RBasic: the header shared by every heap object
// ---------------------------------------------------------------------------

// VType discriminates the concrete representation of a heap object.
type VType uint8

const (
	TTObject VType = iota + 1
	TTClass
	TTModule
	TTSClass // singleton class
	TTIClass // include-clone of a module spliced into an ancestry
	TTProc
	TTString
	TTArray
	TTHash
	TTMethod
)

var vtypeNames = [...]string{
	TTObject: "object",
	TTClass:  "class",
	TTModule: "module",
	TTSClass: "sclass",
	TTIClass: "iclass",
	TTProc:   "proc",
	TTString: "string",
	TTArray:  "array",
	TTHash:   "hash",
	TTMethod: "method",
}

func (t VType) String() string {
	if int(t) < len(vtypeNames) && vtypeNames[t] != "" {
		return vtypeNames[t]
	}
	return "unknown"
}

// Header word layout: tt:8 | color:3 | frozen:1 | flags:20
const (
	hdrTypeMask    uint32 = 0xFF
	hdrColorShift         = 8
	hdrColorMask   uint32 = 0x7 << hdrColorShift
	hdrFrozenBit   uint32 = 1 << 11
	hdrFlagsShift         = 12
	hdrFlagsMask   uint32 = 0xFFFFF << hdrFlagsShift
	maxHeaderFlags uint32 = 0xFFFFF
)

// Representation-specific header flags (20 bits available).
const (
	// FlagShapedIV marks an ivar store using the inline shaped layout.
	FlagShapedIV uint32 = 1 << 5
	// FlagProcStrict marks lambdas and method bodies.
	FlagProcStrict uint32 = 1 << 6
	// FlagProcAlias marks an alias proc created by alias_method.
	FlagProcAlias uint32 = 1 << 7
	// FlagProcNoArg marks a native callable that takes no arguments.
	FlagProcNoArg uint32 = 1 << 8
	// FlagMethodBound marks a Method (as opposed to an UnboundMethod).
	FlagMethodBound uint32 = 1 << 9
)

// RBasic is embedded in every heap object. It holds the owning class, one
// packed word of type/collector/frozen/flag bits, and the allocation id.
type RBasic struct {
	class *RClass
	word  uint32
	id    uint32
}

func (b *RBasic) init(tt VType, c *RClass) {
	b.class = c
	b.word = uint32(tt)
}

// Basic returns the header itself; it satisfies HeapObject for embedders.
func (b *RBasic) Basic() *RBasic { return b }

// Class returns the class pointer stored in the header. This may be a
// singleton class; use RealClass for the user-visible class.
func (b *RBasic) Class() *RClass { return b.class }

// Type returns the representation tag.
func (b *RBasic) Type() VType { return VType(b.word & hdrTypeMask) }

// ID returns the heap allocation id (0 before registration).
func (b *RBasic) ID() uint32 { return b.id }

// Value returns the boxed reference to this object.
func (b *RBasic) Value() Value { return fromObjectID(b.id) }

// Frozen reports whether the object has been frozen.
func (b *RBasic) Frozen() bool { return b.word&hdrFrozenBit != 0 }

func (b *RBasic) freeze() { b.word |= hdrFrozenBit }

// Flags returns the 20 representation-specific flag bits.
func (b *RBasic) Flags() uint32 { return (b.word & hdrFlagsMask) >> hdrFlagsShift }

// HasFlag reports whether all bits of f are set.
func (b *RBasic) HasFlag(f uint32) bool { return b.Flags()&f == f }

func (b *RBasic) setFlag(f uint32) {
	b.word |= (f & maxHeaderFlags) << hdrFlagsShift
}

func (b *RBasic) clearFlag(f uint32) {
	b.word &^= (f & maxHeaderFlags) << hdrFlagsShift
}

func (b *RBasic) color() uint8 { return uint8((b.word & hdrColorMask) >> hdrColorShift) }

func (b *RBasic) setColor(c uint8) {
	b.word = (b.word &^ hdrColorMask) | (uint32(c&0x7) << hdrColorShift)
}

// HeapObject is implemented by every heap-allocated representation.
type HeapObject interface {
	Basic() *RBasic
	// mark reports every reference held by the object to the collector.
	mark(m *marker)
}

// ---------------------------------------------------------------------------
// RObject: plain instances
// ---------------------------------------------------------------------------

// RObject is an ordinary instance: a header plus an instance-variable store.
type RObject struct {
	RBasic
	iv ivStore
}

func (o *RObject) ivars() *ivStore { return &o.iv }

func (o *RObject) mark(m *marker) {
	m.class(o.class)
	markIVars(m, o.iv)
}

// NewObject allocates a plain instance of c.
func (s *State) NewObject(c *RClass) *RObject {
	o := &RObject{}
	o.init(TTObject, c)
	s.heap.add(o)
	return o
}

// ObjectFromValue returns the heap object referenced by v, or nil.
func (s *State) ObjectFromValue(v Value) HeapObject {
	return s.heap.Get(v)
}

// RObjectFromValue returns v as a plain instance, or nil.
func (s *State) RObjectFromValue(v Value) *RObject {
	o, _ := s.heap.Get(v).(*RObject)
	return o
}

// ---------------------------------------------------------------------------
// Frozen state
// ---------------------------------------------------------------------------

// IsFrozen reports whether v is frozen. Immediates are always frozen.
func (s *State) IsFrozen(v Value) bool {
	o := s.heap.Get(v)
	if o == nil {
		return true
	}
	return o.Basic().Frozen()
}

// Freeze freezes v. Freezing an object also freezes its singleton class,
// if it has one.
func (s *State) Freeze(v Value) Value {
	o := s.heap.Get(v)
	if o == nil {
		return v
	}
	b := o.Basic()
	if b.Frozen() {
		return v
	}
	b.freeze()
	if b.class != nil && b.class.Type() == TTSClass {
		b.class.freeze()
	}
	return v
}

// checkFrozen fails with FrozenError when o may not be mutated.
func (s *State) checkFrozen(o HeapObject) error {
	if o.Basic().Frozen() {
		v := o.Basic().Value()
		return s.Raisef(s.FrozenError, "can't modify frozen %s: %s", s.RealClassOf(v).Name(), s.InspectString(nil, v))
	}
	return nil
}
