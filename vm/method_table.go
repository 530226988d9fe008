package vm

import "sync"

// ---------------------------------------------------------------------------
// Method tables
// ---------------------------------------------------------------------------

type entryFlags uint8

const (
	entryUndef entryFlags = 1 << iota
	entryPrivate
)

// MethodEntry is one slot of a method table: a native function, a proc, or
// an undef marker that stops method search.
type MethodEntry struct {
	native *Native
	proc   *RProc
	flags  entryFlags
}

// Defined reports whether the entry holds something callable.
func (e MethodEntry) Defined() bool {
	return e.flags&entryUndef == 0 && (e.native != nil || e.proc != nil)
}

// IsUndef reports whether the entry is an undef marker.
func (e MethodEntry) IsUndef() bool { return e.flags&entryUndef != 0 }

// IsPrivate reports whether the method may only be called without an
// explicit receiver.
func (e MethodEntry) IsPrivate() bool { return e.flags&entryPrivate != 0 }

// Native returns the native function, or nil.
func (e MethodEntry) Native() *Native { return e.native }

// RawProc returns the stored proc, or nil for native entries.
func (e MethodEntry) RawProc() *RProc { return e.proc }

func (e MethodEntry) withPrivate(private bool) MethodEntry {
	if private {
		e.flags |= entryPrivate
	} else {
		e.flags &^= entryPrivate
	}
	return e
}

// MethodTable maps symbols to method entries for one class or module.
// Iclasses share the table of their module, so a method added to a module
// after it was included is visible through every includer.
//
// Tables are guarded by a RWMutex so host goroutines may define methods
// while another goroutine reads them.
type MethodTable struct {
	mu      sync.RWMutex
	methods map[Symbol]MethodEntry
	order   []Symbol
}

func newMethodTable() *MethodTable {
	return &MethodTable{methods: make(map[Symbol]MethodEntry, 8)}
}

// Lookup returns the entry for sym in this table only. Undef markers are
// returned with ok set so that search can stop on them.
func (mt *MethodTable) Lookup(sym Symbol) (MethodEntry, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	e, ok := mt.methods[sym]
	return e, ok
}

// Add adds or replaces the entry for sym.
func (mt *MethodTable) Add(sym Symbol, e MethodEntry) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if _, ok := mt.methods[sym]; !ok {
		mt.order = append(mt.order, sym)
	}
	mt.methods[sym] = e
}

// Remove deletes the entry for sym and reports whether it existed.
func (mt *MethodTable) Remove(sym Symbol) bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if _, ok := mt.methods[sym]; !ok {
		return false
	}
	delete(mt.methods, sym)
	for i, s := range mt.order {
		if s == sym {
			mt.order = append(mt.order[:i], mt.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether sym has a callable entry in this table.
func (mt *MethodTable) Has(sym Symbol) bool {
	e, ok := mt.Lookup(sym)
	return ok && e.Defined()
}

// Each calls fn for every entry in definition order.
func (mt *MethodTable) Each(fn func(Symbol, MethodEntry)) {
	mt.mu.RLock()
	order := append([]Symbol(nil), mt.order...)
	entries := make([]MethodEntry, len(order))
	for i, s := range order {
		entries[i] = mt.methods[s]
	}
	mt.mu.RUnlock()
	for i, s := range order {
		fn(s, entries[i])
	}
}

// Len returns the number of entries, undef markers included.
func (mt *MethodTable) Len() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.methods)
}

func (mt *MethodTable) mark(m *marker) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	for _, e := range mt.methods {
		if e.proc != nil {
			m.object(e.proc)
		}
	}
}

// ---------------------------------------------------------------------------
// Defining methods
// ---------------------------------------------------------------------------

// DefineMethod adds a native method to c.
func (s *State) DefineMethod(c *RClass, name string, spec ArgSpec, fn NativeFunc) {
	s.defineNative(c, name, spec, fn, false)
}

// DefinePrivateMethod adds a private native method to c.
func (s *State) DefinePrivateMethod(c *RClass, name string, spec ArgSpec, fn NativeFunc) {
	s.defineNative(c, name, spec, fn, true)
}

// DefineClassMethod adds a native method to the singleton class of c.
func (s *State) DefineClassMethod(c *RClass, name string, spec ArgSpec, fn NativeFunc) {
	s.defineNative(s.singletonClassOfClass(c), name, spec, fn, false)
}

func (s *State) defineNative(c *RClass, name string, spec ArgSpec, fn NativeFunc, private bool) {
	sym := s.symbols.Intern(name)
	n := &Native{Name: name, Fn: fn, Spec: spec}
	c.mt.Add(sym, MethodEntry{native: n}.withPrivate(private))
	s.heap.barrierObject(c, nil)
}

// DefineProcMethod installs p as the method sym of c. A proc already bound
// to another class is copied so each definition keeps its own target.
func (s *State) DefineProcMethod(c *RClass, sym Symbol, p *RProc) error {
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	if p.targetClass != nil && p.targetClass != c {
		cp := &RProc{
			native:   p.native,
			body:     p.body,
			env:      p.env,
			upper:    p.upper,
			aliasMID: p.aliasMID,
		}
		cp.init(TTProc, s.ProcClass)
		cp.setFlag(p.Flags())
		s.heap.add(cp)
		p = cp
	}
	p.targetClass = c
	c.mt.Add(sym, MethodEntry{proc: p})
	s.heap.barrierObject(c, p)
	return nil
}

// UndefMethod makes sym unresolvable through c, even if an ancestor
// defines it.
func (s *State) UndefMethod(c *RClass, sym Symbol) error {
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	if _, ok := s.SearchMethod(c, sym); !ok {
		return s.raiseName(s.NameError, sym, "undefined method '%s' for class '%s'", s.symbols.Name(sym), s.describeClass(c))
	}
	c.mt.Add(sym, MethodEntry{flags: entryUndef})
	return nil
}

// RemoveMethod deletes sym from c's own table.
func (s *State) RemoveMethod(c *RClass, sym Symbol) error {
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	if e, ok := c.mt.Lookup(sym); !ok || !e.Defined() {
		return s.raiseName(s.NameError, sym, "method '%s' not defined in %s", s.symbols.Name(sym), s.describeClass(c))
	}
	c.mt.Remove(sym)
	return nil
}

// AliasMethod makes newName call the method currently found as oldName.
// The alias keeps a link to the original so introspection can report it.
func (s *State) AliasMethod(c *RClass, newName, oldName Symbol) error {
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	res, ok := s.SearchMethod(c, oldName)
	if !ok {
		return s.raiseName(s.NameError, oldName, "undefined method '%s' for class '%s'", s.symbols.Name(oldName), s.describeClass(c))
	}
	orig := res.Entry.Proc(s)
	alias := &RProc{
		native:      orig.native,
		body:        orig.body,
		env:         orig.env,
		upper:       orig,
		aliasMID:    oldName,
		targetClass: orig.targetClass,
	}
	alias.init(TTProc, s.ProcClass)
	alias.setFlag(orig.Flags() | FlagProcAlias)
	s.heap.add(alias)
	c.mt.Add(newName, MethodEntry{proc: alias}.withPrivate(res.Entry.IsPrivate()))
	s.heap.barrierObject(c, alias)
	return nil
}

// SetVisibility changes the visibility of sym as seen from c. A method
// inherited from an ancestor is copied into c with the new visibility.
func (s *State) SetVisibility(c *RClass, sym Symbol, private bool) error {
	if e, ok := c.mt.Lookup(sym); ok && e.Defined() {
		c.mt.Add(sym, e.withPrivate(private))
		return nil
	}
	res, ok := s.SearchMethod(c, sym)
	if !ok {
		return s.raiseName(s.NameError, sym, "undefined method '%s' for class '%s'", s.symbols.Name(sym), s.describeClass(c))
	}
	c.mt.Add(sym, res.Entry.withPrivate(private))
	return nil
}
