package vm

// ---------------------------------------------------------------------------
// Args: call arguments
// ---------------------------------------------------------------------------

// PackedArgsMax is the argument count at which a call stops carrying its
// arguments inline and switches to a spread array.
const PackedArgsMax = 15

// Args is the argument list of one call. Small lists live in an inline
// array (packed); at PackedArgsMax arguments the list is materialized into
// an Array object (spread). Both tiers behave the same through this API.
type Args struct {
	n      int // packed count; PackedArgsMax means spread
	packed [PackedArgsMax]Value
	spread *RArray

	// Keyword hash (Nil when absent) and block (Nil when absent).
	KW    Value
	Block Value

	s *State
}

// NewArgs builds an argument list from vals.
func (s *State) NewArgs(vals ...Value) *Args {
	a := &Args{KW: Nil, Block: Nil, s: s}
	if len(vals) < PackedArgsMax {
		a.n = copy(a.packed[:], vals)
		return a
	}
	a.n = PackedArgsMax
	a.spread = s.NewArray(vals...)
	return a
}

// IsSpread reports whether the arguments are held in an array.
func (a *Args) IsSpread() bool { return a.n == PackedArgsMax }

// Len returns the number of positional arguments.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	if a.IsSpread() {
		return len(a.spread.elems)
	}
	return a.n
}

// At returns argument i, or Nil when out of range.
func (a *Args) At(i int) Value {
	if i < 0 || i >= a.Len() {
		return Nil
	}
	if a.IsSpread() {
		return a.spread.elems[i]
	}
	return a.packed[i]
}

// Slice returns a copy of the positional arguments.
func (a *Args) Slice() []Value {
	if a == nil {
		return nil
	}
	if a.IsSpread() {
		return append([]Value(nil), a.spread.elems...)
	}
	return append([]Value(nil), a.packed[:a.n]...)
}

// Shift removes and returns the first argument.
func (a *Args) Shift() (Value, error) {
	if a.Len() == 0 {
		return Nil, a.s.Raisef(a.s.ArgumentError, "wrong number of arguments (given 0, expected 1+)")
	}
	if a.IsSpread() {
		v := a.spread.elems[0]
		a.spread.elems = a.spread.elems[1:]
		return v, nil
	}
	v := a.packed[0]
	copy(a.packed[:], a.packed[1:a.n])
	a.n--
	a.packed[a.n] = Nil
	return v, nil
}

// Unshift prepends v. A packed list that would reach PackedArgsMax is
// promoted to spread form first.
func (a *Args) Unshift(v Value) {
	if !a.IsSpread() && a.n+1 >= PackedArgsMax {
		a.promote()
	}
	if a.IsSpread() {
		a.spread.elems = append([]Value{v}, a.spread.elems...)
		a.s.heap.WriteBarrier(a.spread, v)
		return
	}
	copy(a.packed[1:a.n+1], a.packed[:a.n])
	a.packed[0] = v
	a.n++
}

// Push appends v.
func (a *Args) Push(v Value) {
	if !a.IsSpread() && a.n+1 >= PackedArgsMax {
		a.promote()
	}
	if a.IsSpread() {
		a.spread.elems = append(a.spread.elems, v)
		a.s.heap.WriteBarrier(a.spread, v)
		return
	}
	a.packed[a.n] = v
	a.n++
}

// promote moves the packed arguments into a new array.
func (a *Args) promote() {
	a.spread = a.s.NewArray(a.packed[:a.n]...)
	for i := range a.packed[:a.n] {
		a.packed[i] = Nil
	}
	a.n = PackedArgsMax
}

// Array returns the arguments as an Array object. Spread arguments return
// the backing array itself.
func (a *Args) Array() *RArray {
	if a.IsSpread() {
		return a.spread
	}
	return a.s.NewArray(a.packed[:a.n]...)
}

// mark reports every argument to the collector.
func (a *Args) mark(m *marker) {
	if a == nil {
		return
	}
	if a.IsSpread() {
		m.object(a.spread)
	} else {
		for _, v := range a.packed[:a.n] {
			m.value(v)
		}
	}
	m.value(a.KW)
	m.value(a.Block)
}

// check verifies the positional count against spec.
func (a *Args) check(spec ArgSpec) error {
	if spec.accepts(a.Len()) {
		return nil
	}
	return a.s.Raisef(a.s.ArgumentError, "wrong number of arguments (given %d, expected %s)", a.Len(), spec.expectation())
}
