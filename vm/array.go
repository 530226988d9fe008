package vm

import "strings"

// ---------------------------------------------------------------------------
// RArray
// ---------------------------------------------------------------------------

// RArray is a growable sequence of values.
type RArray struct {
	RBasic
	elems []Value
}

func (a *RArray) mark(m *marker) {
	m.class(a.class)
	for _, v := range a.elems {
		m.value(v)
	}
}

// Len returns the number of elements.
func (a *RArray) Len() int { return len(a.elems) }

// At returns element i, or Nil when out of range. Negative indexes count
// from the end.
func (a *RArray) At(i int) Value {
	if i < 0 {
		i += len(a.elems)
	}
	if i < 0 || i >= len(a.elems) {
		return Nil
	}
	return a.elems[i]
}

// Elems returns a copy of the elements.
func (a *RArray) Elems() []Value { return append([]Value(nil), a.elems...) }

// NewArray allocates an Array holding vals.
func (s *State) NewArray(vals ...Value) *RArray {
	a := &RArray{elems: append([]Value(nil), vals...)}
	a.init(TTArray, s.ArrayClass)
	s.heap.add(a)
	return a
}

// ArrayValue allocates an Array and returns its Value.
func (s *State) ArrayValue(vals ...Value) Value {
	return s.NewArray(vals...).Value()
}

// ArrayFromValue returns v as an Array, or nil.
func (s *State) ArrayFromValue(v Value) *RArray {
	a, _ := s.heap.Get(v).(*RArray)
	return a
}

// ArrayPush appends vals to a.
func (s *State) ArrayPush(a *RArray, vals ...Value) error {
	if err := s.checkFrozen(a); err != nil {
		return err
	}
	for _, v := range vals {
		a.elems = append(a.elems, v)
		s.heap.WriteBarrier(a, v)
	}
	return nil
}

// ArraySet stores v at index i, padding with nil.
func (s *State) ArraySet(a *RArray, i int, v Value) error {
	if err := s.checkFrozen(a); err != nil {
		return err
	}
	if i < 0 {
		i += len(a.elems)
		if i < 0 {
			return s.Raisef(s.IndexError, "index %d too small for array; minimum: -%d", i-len(a.elems), len(a.elems))
		}
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, Nil)
	}
	a.elems[i] = v
	s.heap.WriteBarrier(a, v)
	return nil
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initArray() {
	c := s.ArrayClass
	s.DefinePrivateMethod(c, "initialize", ArgsOpt(2), aryInitialize)
	s.DefinePrivateMethod(c, "initialize_copy", ArgsReq(1), aryInitializeCopy)
	s.DefineMethod(c, "inspect", ArgsNone, aryInspect)
	s.DefineMethod(c, "to_s", ArgsNone, aryInspect)
	s.DefineMethod(c, "to_a", ArgsNone, aryToA)
	s.DefineMethod(c, "==", ArgsReq(1), aryEq)
	s.DefineMethod(c, "eql?", ArgsReq(1), aryEql)
	s.DefineMethod(c, "hash", ArgsNone, aryHash)
	s.DefineMethod(c, "[]", ArgsReq(1), aryAref)
	s.DefineMethod(c, "at", ArgsReq(1), aryAref)
	s.DefineMethod(c, "[]=", ArgsReq(2), aryAset)
	s.DefineMethod(c, "length", ArgsNone, aryLength)
	s.DefineMethod(c, "size", ArgsNone, aryLength)
	s.DefineMethod(c, "empty?", ArgsNone, aryEmpty)
	s.DefineMethod(c, "push", ArgsAny, aryPush)
	s.DefineMethod(c, "<<", ArgsReq(1), aryPush)
	s.DefineMethod(c, "pop", ArgsNone, aryPop)
	s.DefineMethod(c, "shift", ArgsNone, aryShift)
	s.DefineMethod(c, "unshift", ArgsAny, aryUnshift)
	s.DefineMethod(c, "first", ArgsNone, aryFirst)
	s.DefineMethod(c, "last", ArgsNone, aryLast)
	s.DefineMethod(c, "include?", ArgsReq(1), aryInclude)
	s.DefineMethod(c, "+", ArgsReq(1), aryPlus)
	s.DefineMethod(c, "join", ArgsOpt(1), aryJoin)
	s.DefineMethod(c, "each", ArgsBlock, aryEach)
	s.DefineMethod(c, "map", ArgsBlock, aryMap)
}

func selfArray(c *Context, self Value) (*RArray, error) {
	a := c.s.ArrayFromValue(self)
	if a == nil {
		return nil, c.s.Raisef(c.s.TypeError, "expected Array")
	}
	return a, nil
}

func aryInitialize(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	if args.Len() == 0 {
		return self, nil
	}
	n, err := c.s.ToInt(args.At(0))
	if err != nil {
		return Nil, err
	}
	if n < 0 {
		return Nil, c.s.Raisef(c.s.ArgumentError, "negative array size")
	}
	fill := args.At(1)
	for i := int64(0); i < n; i++ {
		if err := c.s.ArrayPush(a, fill); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func aryInitializeCopy(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	src := c.s.ArrayFromValue(args.At(0))
	if src == nil {
		return Nil, c.s.Raisef(c.s.TypeError, "initialize_copy should take same class object")
	}
	if err := c.s.checkFrozen(a); err != nil {
		return Nil, err
	}
	a.elems = src.Elems()
	return self, nil
}

// aryInspect renders "[a, b]"; an array reached again while it is being
// inspected renders as "[...]".
func aryInspect(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	release, recursive := c.Guard(s.symInspect, self, Nil)
	defer release()
	if recursive {
		return s.StringValue("[...]"), nil
	}
	parts := make([]string, 0, len(a.elems))
	for _, v := range a.Elems() {
		str, err := s.Inspect(c, v)
		if err != nil {
			return Nil, err
		}
		parts = append(parts, str)
	}
	return s.StringValue("[" + strings.Join(parts, ", ") + "]"), nil
}

func aryToA(c *Context, self Value, _ *Args) (Value, error) {
	return self, nil
}

func aryCompare(c *Context, self, other Value, eq func(c *Context, a, b Value) (bool, error), mid Symbol) (Value, error) {
	s := c.s
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	if self == other {
		return True, nil
	}
	b := s.ArrayFromValue(other)
	if b == nil || len(a.elems) != len(b.elems) {
		return False, nil
	}
	release, recursive := c.Guard(mid, self, other)
	defer release()
	if recursive {
		return True, nil
	}
	for i := range a.elems {
		if i >= len(b.elems) {
			return False, nil
		}
		ok, err := eq(c, a.elems[i], b.elems[i])
		if err != nil || !ok {
			return False, err
		}
	}
	return True, nil
}

func aryEq(c *Context, self Value, args *Args) (Value, error) {
	return aryCompare(c, self, args.At(0), c.s.Equal, c.s.symEq)
}

func aryEql(c *Context, self Value, args *Args) (Value, error) {
	return aryCompare(c, self, args.At(0), c.s.Eql, c.s.symEql)
}

func aryHash(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	release, recursive := c.Guard(s.symHash, self, Nil)
	defer release()
	h := uint64(len(a.elems))
	if recursive {
		return FromSmallInt(int64(h)), nil
	}
	for _, v := range a.Elems() {
		eh, err := s.Hash(c, v)
		if err != nil {
			return Nil, err
		}
		h = h*31 + uint64(eh)
	}
	return FromSmallInt(int64(h & uint64(MaxSmallInt))), nil
}

func aryAref(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	i, err := c.s.ToInt(args.At(0))
	if err != nil {
		return Nil, err
	}
	return a.At(int(i)), nil
}

func aryAset(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	i, err := c.s.ToInt(args.At(0))
	if err != nil {
		return Nil, err
	}
	return args.At(1), c.s.ArraySet(a, int(i), args.At(1))
}

func aryLength(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(len(a.elems))), nil
}

func aryEmpty(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(len(a.elems) == 0), nil
}

func aryPush(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	return self, c.s.ArrayPush(a, args.Slice()...)
}

func aryPop(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	if err := c.s.checkFrozen(a); err != nil {
		return Nil, err
	}
	if len(a.elems) == 0 {
		return Nil, nil
	}
	v := a.elems[len(a.elems)-1]
	a.elems = a.elems[:len(a.elems)-1]
	return v, nil
}

func aryShift(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	if err := c.s.checkFrozen(a); err != nil {
		return Nil, err
	}
	if len(a.elems) == 0 {
		return Nil, nil
	}
	v := a.elems[0]
	a.elems = a.elems[1:]
	return v, nil
}

func aryUnshift(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	if err := c.s.checkFrozen(a); err != nil {
		return Nil, err
	}
	vals := args.Slice()
	a.elems = append(vals, a.elems...)
	for _, v := range vals {
		c.s.heap.WriteBarrier(a, v)
	}
	return self, nil
}

func aryFirst(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	return a.At(0), nil
}

func aryLast(c *Context, self Value, _ *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	return a.At(-1), nil
}

func aryInclude(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	for _, v := range a.Elems() {
		ok, err := c.s.Equal(c, v, args.At(0))
		if err != nil {
			return Nil, err
		}
		if ok {
			return True, nil
		}
	}
	return False, nil
}

func aryPlus(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	b := c.s.ArrayFromValue(args.At(0))
	if b == nil {
		return Nil, c.s.Raisef(c.s.TypeError, "no implicit conversion of %s into Array", c.s.TypeName(args.At(0)))
	}
	return c.s.ArrayValue(append(a.Elems(), b.elems...)...), nil
}

func aryJoin(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	sep := ""
	if args.Len() > 0 && args.At(0) != Nil {
		if sep, err = c.s.argString(args.At(0)); err != nil {
			return Nil, err
		}
	}
	release, recursive := c.Guard(c.s.Intern("join"), self, Nil)
	defer release()
	if recursive {
		return Nil, c.s.Raisef(c.s.ArgumentError, "recursive array join")
	}
	parts := make([]string, 0, len(a.elems))
	for _, v := range a.Elems() {
		var str string
		if inner := c.s.ArrayFromValue(v); inner != nil {
			joined, err := aryJoin(c, v, c.s.NewArgs(c.s.StringValue(sep)))
			if err != nil {
				return Nil, err
			}
			str = c.s.StringFromValue(joined).str
		} else if str, err = c.s.ToS(c, v); err != nil {
			return Nil, err
		}
		parts = append(parts, str)
	}
	return c.s.StringValue(strings.Join(parts, sep)), nil
}

func aryEach(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	for i := 0; i < len(a.elems); i++ {
		if _, err := c.s.Yield(c, args.Block, a.elems[i]); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func aryMap(c *Context, self Value, args *Args) (Value, error) {
	a, err := selfArray(c, self)
	if err != nil {
		return Nil, err
	}
	out := make([]Value, 0, len(a.elems))
	for i := 0; i < len(a.elems); i++ {
		v, err := c.s.Yield(c, args.Block, a.elems[i])
		if err != nil {
			return Nil, err
		}
		out = append(out, v)
	}
	return c.s.ArrayValue(out...), nil
}
