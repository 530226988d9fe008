package vm

// ---------------------------------------------------------------------------
// Instance-variable storage
// ---------------------------------------------------------------------------

// ivStore maps instance variable names to values for one object.
// Two strategies implement it: shapedStore keeps values in inline slots
// addressed through a shared Shape, tableStore is an ordered map. A store
// reports false from put when it cannot take the key; the owner then
// upgrades to a table.
type ivStore interface {
	get(key Symbol) (Value, bool)
	put(key Symbol, v Value, limit int) bool
	each(fn func(Symbol, Value) bool) bool
	size() int
}

// ivHolder is implemented by heap objects that carry instance variables.
type ivHolder interface {
	HeapObject
	ivars() *ivStore
}

// NumInlineSlots is the number of ivar slots stored directly in a shaped
// store before the overflow slice is used.
const NumInlineSlots = 4

// shapedStore uses a hybrid slot layout: 4 inline slots for the common case
// and an overflow slice beyond that.
type shapedStore struct {
	shape *Shape

	slot0 Value
	slot1 Value
	slot2 Value
	slot3 Value

	overflow []Value
}

func newShapedStore(root *Shape) *shapedStore {
	return &shapedStore{shape: root, slot0: Undef, slot1: Undef, slot2: Undef, slot3: Undef}
}

func (st *shapedStore) slot(i int) Value {
	switch i {
	case 0:
		return st.slot0
	case 1:
		return st.slot1
	case 2:
		return st.slot2
	case 3:
		return st.slot3
	default:
		return st.overflow[i-NumInlineSlots]
	}
}

func (st *shapedStore) setSlot(i int, v Value) {
	switch i {
	case 0:
		st.slot0 = v
	case 1:
		st.slot1 = v
	case 2:
		st.slot2 = v
	case 3:
		st.slot3 = v
	default:
		idx := i - NumInlineSlots
		for len(st.overflow) <= idx {
			st.overflow = append(st.overflow, Undef)
		}
		st.overflow[idx] = v
	}
}

func (st *shapedStore) get(key Symbol) (Value, bool) {
	i := st.shape.indexOf(key)
	if i < 0 {
		return Nil, false
	}
	return st.slot(i), true
}

func (st *shapedStore) put(key Symbol, v Value, limit int) bool {
	if i := st.shape.indexOf(key); i >= 0 {
		st.setSlot(i, v)
		return true
	}
	if st.shape.size >= limit {
		return false
	}
	st.shape = st.shape.with(key)
	st.setSlot(st.shape.size-1, v)
	return true
}

func (st *shapedStore) each(fn func(Symbol, Value) bool) bool {
	for i, k := range st.shape.keys() {
		if fn(k, st.slot(i)) {
			return true
		}
	}
	return false
}

func (st *shapedStore) size() int { return st.shape.size }

// tableStore is an insertion-ordered map.
type tableStore struct {
	keys  []Symbol
	index map[Symbol]int
	vals  []Value
}

func newTableStore(capacity int) *tableStore {
	return &tableStore{
		keys:  make([]Symbol, 0, capacity),
		index: make(map[Symbol]int, capacity),
		vals:  make([]Value, 0, capacity),
	}
}

func (t *tableStore) get(key Symbol) (Value, bool) {
	i, ok := t.index[key]
	if !ok {
		return Nil, false
	}
	return t.vals[i], true
}

func (t *tableStore) put(key Symbol, v Value, _ int) bool {
	if i, ok := t.index[key]; ok {
		t.vals[i] = v
		return true
	}
	t.index[key] = len(t.keys)
	t.keys = append(t.keys, key)
	t.vals = append(t.vals, v)
	return true
}

func (t *tableStore) remove(key Symbol) (Value, bool) {
	i, ok := t.index[key]
	if !ok {
		return Nil, false
	}
	v := t.vals[i]
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	t.vals = append(t.vals[:i], t.vals[i+1:]...)
	delete(t.index, key)
	for j := i; j < len(t.keys); j++ {
		t.index[t.keys[j]] = j
	}
	return v, true
}

func (t *tableStore) each(fn func(Symbol, Value) bool) bool {
	for i, k := range t.keys {
		if fn(k, t.vals[i]) {
			return true
		}
	}
	return false
}

func (t *tableStore) size() int { return len(t.keys) }

func toTable(st ivStore) *tableStore {
	t := newTableStore(st.size() + 1)
	st.each(func(k Symbol, v Value) bool {
		t.put(k, v, 0)
		return false
	})
	return t
}

func markIVars(m *marker, st ivStore) {
	if st == nil {
		return
	}
	st.each(func(_ Symbol, v Value) bool {
		m.value(v)
		return false
	})
}

// ---------------------------------------------------------------------------
// State-level ivar operations
// ---------------------------------------------------------------------------

func (s *State) ivHolderOf(v Value) ivHolder {
	h, _ := s.heap.Get(v).(ivHolder)
	return h
}

// upgradeIVars replaces a shaped store with a table.
func (s *State) upgradeIVars(h ivHolder) *tableStore {
	p := h.ivars()
	if t, ok := (*p).(*tableStore); ok {
		return t
	}
	var t *tableStore
	if *p == nil {
		t = newTableStore(4)
	} else {
		t = toTable(*p)
		log.Debugf("ivars of %s#%d upgraded to table (%d vars)",
			h.Basic().class.Name(), h.Basic().id, t.size())
	}
	*p = t
	h.Basic().clearFlag(FlagShapedIV)
	return t
}

// IsIVName reports whether sym is acceptable as an instance variable name:
// "@" followed by an identifier that does not start with "@" or a digit.
func (s *State) IsIVName(sym Symbol) bool {
	name := s.symbols.Name(sym)
	if len(name) < 2 || name[0] != '@' || name[1] == '@' {
		return false
	}
	if name[1] >= '0' && name[1] <= '9' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return false
		}
	}
	return true
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// CheckIVName fails with NameError when sym is not a valid ivar name.
func (s *State) CheckIVName(sym Symbol) error {
	if !s.IsIVName(sym) {
		return s.raiseName(s.NameError, sym, "'%s' is not allowed as an instance variable name", s.symbols.Name(sym))
	}
	return nil
}

// IVGet returns the instance variable sym of v, or Nil when absent.
func (s *State) IVGet(v Value, sym Symbol) Value {
	h := s.ivHolderOf(v)
	if h == nil || *h.ivars() == nil {
		return Nil
	}
	val, ok := (*h.ivars()).get(sym)
	if !ok || val == Undef {
		return Nil
	}
	return val
}

// IVDefined reports whether v has the instance variable sym.
func (s *State) IVDefined(v Value, sym Symbol) bool {
	h := s.ivHolderOf(v)
	if h == nil || *h.ivars() == nil {
		return false
	}
	val, ok := (*h.ivars()).get(sym)
	return ok && val != Undef
}

// IVSet stores val as the instance variable sym of v.
func (s *State) IVSet(v Value, sym Symbol, val Value) error {
	h := s.ivHolderOf(v)
	if h == nil {
		return s.Raisef(s.ArgumentError, "cannot set instance variable")
	}
	if err := s.checkFrozen(h); err != nil {
		return err
	}
	s.ivPut(h, sym, val)
	return nil
}

func (s *State) ivPut(h ivHolder, sym Symbol, val Value) {
	p := h.ivars()
	if *p == nil {
		if h.Basic().Type() == TTObject {
			*p = newShapedStore(RealClass(h.Basic().class).rootShapeFor())
			h.Basic().setFlag(FlagShapedIV)
		} else {
			*p = newTableStore(4)
		}
	}
	if !(*p).put(sym, val, s.config.MaxShapedIVars) {
		s.upgradeIVars(h).put(sym, val, 0)
	}
	s.heap.WriteBarrier(h, val)
}

// IVRemove deletes the instance variable sym of v and returns its value.
func (s *State) IVRemove(v Value, sym Symbol) (Value, error) {
	h := s.ivHolderOf(v)
	if h != nil {
		if err := s.checkFrozen(h); err != nil {
			return Nil, err
		}
	}
	if h == nil || !s.IVDefined(v, sym) {
		return Nil, s.raiseName(s.NameError, sym, "instance variable %s not defined", s.symbols.Name(sym))
	}
	val, _ := s.upgradeIVars(h).remove(sym)
	return val, nil
}

// IVForEach calls fn for each instance variable of v in insertion order
// until fn returns true.
func (s *State) IVForEach(v Value, fn func(Symbol, Value) bool) {
	h := s.ivHolderOf(v)
	if h == nil || *h.ivars() == nil {
		return
	}
	(*h.ivars()).each(func(k Symbol, val Value) bool {
		if val == Undef {
			return false
		}
		return fn(k, val)
	})
}

// IVCount returns the number of instance variables of v.
func (s *State) IVCount(v Value) int {
	n := 0
	s.IVForEach(v, func(Symbol, Value) bool {
		n++
		return false
	})
	return n
}

// IVNames returns the instance variable names of v in insertion order.
func (s *State) IVNames(v Value) []Symbol {
	var names []Symbol
	s.IVForEach(v, func(k Symbol, _ Value) bool {
		if s.IsIVName(k) {
			names = append(names, k)
		}
		return false
	})
	return names
}

// IVCopy replaces the instance variables of dst with copies of src's.
func (s *State) IVCopy(dst, src Value) {
	d := s.ivHolderOf(dst)
	if d == nil {
		return
	}
	*d.ivars() = nil
	d.Basic().clearFlag(FlagShapedIV)
	s.IVForEach(src, func(k Symbol, val Value) bool {
		s.ivPut(d, k, val)
		return false
	})
}

// IsShaped reports whether v currently uses the shaped ivar layout.
func (s *State) IsShaped(v Value) bool {
	o := s.heap.Get(v)
	return o != nil && o.Basic().HasFlag(FlagShapedIV)
}
