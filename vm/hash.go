package vm

import (
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// RHash
// ---------------------------------------------------------------------------

// hashKey is the lookup form of a key. Strings and numbers hash by
// content, everything else by identity.
type hashKey struct {
	bits  uint64
	str   string
	isStr bool
}

// RHash is an insertion-ordered mapping. Hashes also carry instance
// variables.
type RHash struct {
	RBasic
	iv    ivStore
	keys  []Value
	vals  []Value
	index map[hashKey]int
}

func (h *RHash) ivars() *ivStore { return &h.iv }

func (h *RHash) mark(m *marker) {
	m.class(h.class)
	markIVars(m, h.iv)
	for i := range h.keys {
		m.value(h.keys[i])
		m.value(h.vals[i])
	}
}

// Len returns the number of entries.
func (h *RHash) Len() int { return len(h.keys) }

// Keys returns a copy of the keys in insertion order.
func (h *RHash) Keys() []Value { return append([]Value(nil), h.keys...) }

// Values returns a copy of the values in insertion order.
func (h *RHash) Values() []Value { return append([]Value(nil), h.vals...) }

// NewHash allocates an empty Hash.
func (s *State) NewHash() *RHash {
	h := &RHash{index: make(map[hashKey]int)}
	h.init(TTHash, s.HashClass)
	s.heap.add(h)
	return h
}

// HashFromValue returns v as a Hash, or nil.
func (s *State) HashFromValue(v Value) *RHash {
	h, _ := s.heap.Get(v).(*RHash)
	return h
}

func (s *State) hashKeyOf(k Value) hashKey {
	if r := s.StringFromValue(k); r != nil {
		return hashKey{str: r.str, isStr: true}
	}
	if k.IsFloat() {
		f := k.Float64()
		if f == 0 {
			f = 0 // fold -0.0
		}
		return hashKey{bits: math.Float64bits(f)}
	}
	return hashKey{bits: uint64(k)}
}

// HashGet looks k up.
func (s *State) HashGet(h *RHash, k Value) (Value, bool) {
	i, ok := h.index[s.hashKeyOf(k)]
	if !ok {
		return Nil, false
	}
	return h.vals[i], true
}

// HashSet stores v under k. String keys are copied and frozen.
func (s *State) HashSet(h *RHash, k, v Value) error {
	if err := s.checkFrozen(h); err != nil {
		return err
	}
	hk := s.hashKeyOf(k)
	if i, ok := h.index[hk]; ok {
		h.vals[i] = v
		s.heap.WriteBarrier(h, v)
		return nil
	}
	if r := s.StringFromValue(k); r != nil && !r.Frozen() {
		k = s.Freeze(s.StringValue(r.str))
	}
	h.index[hk] = len(h.keys)
	h.keys = append(h.keys, k)
	h.vals = append(h.vals, v)
	s.heap.WriteBarrier(h, k)
	s.heap.WriteBarrier(h, v)
	return nil
}

// HashDelete removes k and returns its value.
func (s *State) HashDelete(h *RHash, k Value) (Value, bool, error) {
	if err := s.checkFrozen(h); err != nil {
		return Nil, false, err
	}
	hk := s.hashKeyOf(k)
	i, ok := h.index[hk]
	if !ok {
		return Nil, false, nil
	}
	v := h.vals[i]
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
	h.vals = append(h.vals[:i], h.vals[i+1:]...)
	delete(h.index, hk)
	for j := i; j < len(h.keys); j++ {
		h.index[s.hashKeyOf(h.keys[j])] = j
	}
	return v, true, nil
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initHash() {
	c := s.HashClass
	s.DefinePrivateMethod(c, "initialize_copy", ArgsReq(1), hashInitializeCopy)
	s.DefineMethod(c, "[]", ArgsReq(1), hashAref)
	s.DefineMethod(c, "[]=", ArgsReq(2), hashAset)
	s.DefineMethod(c, "store", ArgsReq(2), hashAset)
	s.DefineMethod(c, "fetch", ArgsArg(1, 1), hashFetch)
	s.DefineMethod(c, "key?", ArgsReq(1), hashHasKey)
	s.DefineMethod(c, "has_key?", ArgsReq(1), hashHasKey)
	s.DefineMethod(c, "include?", ArgsReq(1), hashHasKey)
	s.DefineMethod(c, "member?", ArgsReq(1), hashHasKey)
	s.DefineMethod(c, "delete", ArgsReq(1), hashDelete)
	s.DefineMethod(c, "keys", ArgsNone, hashKeys)
	s.DefineMethod(c, "values", ArgsNone, hashValues)
	s.DefineMethod(c, "length", ArgsNone, hashLength)
	s.DefineMethod(c, "size", ArgsNone, hashLength)
	s.DefineMethod(c, "empty?", ArgsNone, hashEmpty)
	s.DefineMethod(c, "to_h", ArgsNone, hashToH)
	s.DefineMethod(c, "==", ArgsReq(1), hashEq)
	s.DefineMethod(c, "inspect", ArgsNone, hashInspect)
	s.DefineMethod(c, "to_s", ArgsNone, hashInspect)
	s.DefineMethod(c, "each", ArgsBlock, hashEach)
}

func selfHash(c *Context, self Value) (*RHash, error) {
	h := c.s.HashFromValue(self)
	if h == nil {
		return nil, c.s.Raisef(c.s.TypeError, "expected Hash")
	}
	return h, nil
}

func hashInitializeCopy(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	src := c.s.HashFromValue(args.At(0))
	if src == nil {
		return Nil, c.s.Raisef(c.s.TypeError, "initialize_copy should take same class object")
	}
	for i, k := range src.Keys() {
		if err := c.s.HashSet(h, k, src.vals[i]); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func hashAref(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	v, _ := c.s.HashGet(h, args.At(0))
	return v, nil
}

func hashAset(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	return args.At(1), c.s.HashSet(h, args.At(0), args.At(1))
}

func hashFetch(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	if v, ok := c.s.HashGet(h, args.At(0)); ok {
		return v, nil
	}
	if args.Len() > 1 {
		return args.At(1), nil
	}
	return Nil, c.s.Raisef(c.s.KeyError, "key not found: %s", c.s.InspectString(c, args.At(0)))
}

func hashHasKey(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	_, ok := c.s.HashGet(h, args.At(0))
	return FromBool(ok), nil
}

func hashDelete(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	v, _, err := c.s.HashDelete(h, args.At(0))
	return v, err
}

func hashKeys(c *Context, self Value, _ *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.ArrayValue(h.keys...), nil
}

func hashValues(c *Context, self Value, _ *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.ArrayValue(h.vals...), nil
}

func hashLength(c *Context, self Value, _ *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(len(h.keys))), nil
}

func hashEmpty(c *Context, self Value, _ *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(len(h.keys) == 0), nil
}

func hashToH(c *Context, self Value, _ *Args) (Value, error) {
	return self, nil
}

func hashEq(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	other := args.At(0)
	if other == self {
		return True, nil
	}
	o := s.HashFromValue(other)
	if o == nil || o.Len() != h.Len() {
		return False, nil
	}
	release, recursive := c.Guard(s.symEq, self, other)
	defer release()
	if recursive {
		return True, nil
	}
	for i, k := range h.Keys() {
		ov, ok := s.HashGet(o, k)
		if !ok {
			return False, nil
		}
		eq, err := s.Equal(c, h.vals[i], ov)
		if err != nil || !eq {
			return False, err
		}
	}
	return True, nil
}

// hashInspect renders "{a: 1, "k" => v}"; a hash reached again while it is
// being inspected renders as "{...}".
func hashInspect(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	release, recursive := c.Guard(s.symInspect, self, Nil)
	defer release()
	if recursive {
		return s.StringValue("{...}"), nil
	}
	if h.Len() == 0 {
		return s.StringValue("{}"), nil
	}
	parts := make([]string, 0, h.Len())
	keys, vals := h.Keys(), h.Values()
	for i, k := range keys {
		vs, err := s.Inspect(c, vals[i])
		if err != nil {
			return Nil, err
		}
		if k.IsSymbol() && isPlainSymbol(s.symbols.Name(k.Symbol())) {
			parts = append(parts, s.symbols.Name(k.Symbol())+": "+vs)
			continue
		}
		ks, err := s.Inspect(c, k)
		if err != nil {
			return Nil, err
		}
		parts = append(parts, ks+" => "+vs)
	}
	return s.StringValue("{" + strings.Join(parts, ", ") + "}"), nil
}

func hashEach(c *Context, self Value, args *Args) (Value, error) {
	h, err := selfHash(c, self)
	if err != nil {
		return Nil, err
	}
	keys, vals := h.Keys(), h.Values()
	for i, k := range keys {
		if _, err := c.s.Yield(c, args.Block, c.s.ArrayValue(k, vals[i])); err != nil {
			return Nil, err
		}
	}
	return self, nil
}
