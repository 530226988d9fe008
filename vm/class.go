package vm

import (
	"fmt"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// RClass: classes, modules, singleton classes and iclasses
// ---------------------------------------------------------------------------

// RClass is the heap representation shared by classes (TTClass), modules
// (TTModule), singleton classes (TTSClass) and include-clones (TTIClass).
//
// The super link forms the linearized ancestry used by method search.
// Including a module splices an iclass between a class and its super; the
// iclass shares the module's method table and points back at the module.
type RClass struct {
	RBasic
	iv ivStore // class-level ivars and class variables

	name   string
	super  *RClass
	mt     *MethodTable
	consts map[Symbol]Value

	module   *RClass // iclass: the module it stands for
	attached Value   // sclass: the object it belongs to

	rootShape *Shape
}

func (c *RClass) ivars() *ivStore { return &c.iv }

func (c *RClass) mark(m *marker) {
	m.class(c.class)
	m.class(c.super)
	m.class(c.module)
	m.value(c.attached)
	markIVars(m, c.iv)
	for _, v := range c.consts {
		m.value(v)
	}
	if c.Type() != TTIClass && c.mt != nil {
		c.mt.mark(m)
	}
}

// Name returns the class path, or "" for anonymous classes.
func (c *RClass) Name() string {
	if c == nil {
		return ""
	}
	if c.Type() == TTIClass {
		return c.module.Name()
	}
	return c.name
}

// Super returns the raw super link (which may be an iclass).
func (c *RClass) Super() *RClass { return c.super }

// Superclass returns the nearest real class above c.
func (c *RClass) Superclass() *RClass {
	return RealClass(c.super)
}

// IsModule reports whether c is a module or an iclass standing for one.
func (c *RClass) IsModule() bool {
	return c.Type() == TTModule || c.Type() == TTIClass
}

// IsSingleton reports whether c is a singleton class.
func (c *RClass) IsSingleton() bool { return c.Type() == TTSClass }

// IsIClass reports whether c is an include-clone node.
func (c *RClass) IsIClass() bool { return c.Type() == TTIClass }

// Module returns the module an iclass stands for, or nil.
func (c *RClass) Module() *RClass { return c.module }

// Attached returns the object a singleton class belongs to, or Undef.
func (c *RClass) Attached() Value { return c.attached }

// MethodTable returns the class's method table.
func (c *RClass) MethodTable() *MethodTable { return c.mt }

// Owner returns the class or module a method found at node c belongs to.
func (c *RClass) Owner() *RClass {
	for c != nil && c.Type() == TTIClass {
		c = c.module
	}
	return c
}

// RealClass skips singleton classes and iclasses.
func RealClass(c *RClass) *RClass {
	for c != nil && (c.Type() == TTSClass || c.Type() == TTIClass) {
		c = c.super
	}
	return c
}

// IncludesNode reports whether target (a class or module) appears in the
// ancestry starting at c.
func (c *RClass) IncludesNode(target *RClass) bool {
	for k := c; k != nil; k = k.super {
		if k == target || (k.Type() == TTIClass && k.module == target) {
			return true
		}
	}
	return false
}

// IsSubclassOf returns true if c is other or descends from it.
func (c *RClass) IsSubclassOf(other *RClass) bool {
	return c.IncludesNode(other)
}

// Depth returns the number of real superclasses above c.
func (c *RClass) Depth() int {
	depth := 0
	for k := c.Superclass(); k != nil; k = k.Superclass() {
		depth++
	}
	return depth
}

func (c *RClass) String() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprintf("#<%s:%#x>", c.Type(), c.id)
}

// ---------------------------------------------------------------------------
// ClassTable: name registry
// ---------------------------------------------------------------------------

// ClassTable manages named classes and modules.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*RClass
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*RClass),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *RClass) *RClass {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	old := ct.classes[c.name]
	ct.classes[c.name] = c
	return old
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *RClass {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes sorted by name.
func (ct *ClassTable) All() []*RClass {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*RClass, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

// ---------------------------------------------------------------------------
// Class creation
// ---------------------------------------------------------------------------

func (s *State) allocClass(tt VType, meta *RClass, name string, super *RClass) *RClass {
	c := &RClass{name: name, super: super, attached: Undef}
	c.init(tt, meta)
	if tt != TTIClass {
		c.mt = newMethodTable()
	}
	s.heap.add(c)
	return c
}

// NewClass creates an anonymous class with the given superclass.
func (s *State) NewClass(super *RClass) *RClass {
	if super == nil {
		super = s.ObjectClass
	}
	c := s.allocClass(TTClass, s.ClassClass, "", super)
	s.singletonClassOfClass(c)
	return c
}

// NewModule creates an anonymous module.
func (s *State) NewModule() *RClass {
	m := s.allocClass(TTModule, s.ModuleClass, "", nil)
	s.singletonClassOfClass(m)
	return m
}

// DefineClass returns the class named name, creating it under super when it
// does not exist. A nil super reopens an existing class as is and means
// Object for a new one. Reopening with a different superclass is a
// TypeError.
func (s *State) DefineClass(name string, super *RClass) (*RClass, error) {
	if c := s.classes.Lookup(name); c != nil {
		if c.Type() != TTClass {
			return nil, s.Raisef(s.TypeError, "%s is not a class", name)
		}
		if super != nil && c.Superclass() != super {
			return nil, s.Raisef(s.TypeError, "superclass mismatch for class %s", name)
		}
		return c, nil
	}
	if super == nil {
		super = s.ObjectClass
	}
	if super.Type() != TTClass {
		return nil, s.Raisef(s.TypeError, "superclass must be a Class (%s given)", s.RealClassOf(super.Value()).Name())
	}
	c := s.NewClass(super)
	s.nameClass(c, name)
	log.Debugf("defined class %s < %s", name, super.Name())
	return c, nil
}

// DefineModule returns the module named name, creating it when needed.
func (s *State) DefineModule(name string) (*RClass, error) {
	if c := s.classes.Lookup(name); c != nil {
		if c.Type() != TTModule {
			return nil, s.Raisef(s.TypeError, "%s is not a module", name)
		}
		return c, nil
	}
	m := s.NewModule()
	s.nameClass(m, name)
	log.Debugf("defined module %s", name)
	return m, nil
}

// MustDefineClass is DefineClass for bootstrap code that cannot fail.
func (s *State) MustDefineClass(name string, super *RClass) *RClass {
	c, err := s.DefineClass(name, super)
	if err != nil {
		panic(err)
	}
	return c
}

// MustDefineModule is DefineModule for bootstrap code that cannot fail.
func (s *State) MustDefineModule(name string) *RClass {
	m, err := s.DefineModule(name)
	if err != nil {
		panic(err)
	}
	return m
}

// nameClass gives c a name, registers it and binds the constant.
func (s *State) nameClass(c *RClass, name string) {
	c.name = name
	s.classes.Register(c)
	if s.ObjectClass != nil {
		s.ObjectClass.setConst(s.symbols.Intern(name), c.Value())
		s.heap.WriteBarrier(s.ObjectClass, c.Value())
	}
}

// ClassByName returns a registered class or module, or nil.
func (s *State) ClassByName(name string) *RClass {
	return s.classes.Lookup(name)
}

// Classes returns the class registry.
func (s *State) Classes() *ClassTable { return s.classes }

// ---------------------------------------------------------------------------
// Modules as mixins
// ---------------------------------------------------------------------------

// IncludeModule mixes m into c. The module and every module it includes are
// spliced into c's ancestry directly above c, keeping their relative order;
// modules already present are skipped.
func (s *State) IncludeModule(c, m *RClass) error {
	if m == nil || m.Type() != TTModule {
		return s.Raisef(s.TypeError, "wrong argument type %s (expected Module)", s.describeClass(m))
	}
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	ins := c
	for k := m; k != nil; k = k.super {
		mod := k
		if k.Type() == TTIClass {
			mod = k.module
		}
		if c.IncludesNode(mod) {
			continue
		}
		ic := s.allocClass(TTIClass, nil, "", ins.super)
		ic.module = mod
		ic.mt = mod.mt
		ins.super = ic
		s.heap.barrierObject(ins, ic)
		ins = ic
	}
	log.Debugf("included %s into %s", m.Name(), s.describeClass(c))
	return nil
}

// Ancestors returns the linearized ancestry of c, resolving iclasses to
// their modules and omitting singleton classes.
func (s *State) Ancestors(c *RClass) []*RClass {
	var out []*RClass
	for k := c; k != nil; k = k.super {
		switch k.Type() {
		case TTSClass:
			continue
		case TTIClass:
			out = append(out, k.module)
		default:
			out = append(out, k)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Singleton classes
// ---------------------------------------------------------------------------

// SingletonClassOf returns the singleton class of v, creating it on first
// use. nil, true and false answer their ordinary classes; other immediates
// cannot have singletons.
func (s *State) SingletonClassOf(v Value) (*RClass, error) {
	switch v {
	case Nil:
		return s.NilClass, nil
	case True:
		return s.TrueClass, nil
	case False:
		return s.FalseClass, nil
	}
	o := s.heap.Get(v)
	if o == nil {
		return nil, s.Raisef(s.TypeError, "can't define singleton")
	}
	if c, ok := o.(*RClass); ok && c.Type() != TTIClass {
		return s.singletonClassOfClass(c), nil
	}
	b := o.Basic()
	if b.class != nil && b.class.Type() == TTSClass && b.class.attached == v {
		return b.class, nil
	}
	sc := s.allocClass(TTSClass, s.ClassClass, "", b.class)
	sc.attached = v
	b.class = sc
	s.heap.barrierObject(o, sc)
	if b.Frozen() {
		sc.freeze()
	}
	log.Debugf("created singleton class for %s#%d", sc.super.Name(), b.id)
	return sc, nil
}

// singletonClassOfClass returns the metaclass of a class or module. The
// metaclass of a class inherits from the metaclass of its superclass.
func (s *State) singletonClassOfClass(c *RClass) *RClass {
	if c.class != nil && c.class.Type() == TTSClass && c.class.attached == c.Value() {
		return c.class
	}
	var super *RClass
	switch {
	case c.Type() == TTSClass:
		super = s.ClassClass
	case c.Type() == TTModule:
		super = s.ModuleClass
	case c.super == nil:
		super = s.ClassClass
	default:
		super = s.singletonClassOfClass(RealClass(c.super))
	}
	sc := s.allocClass(TTSClass, s.ClassClass, "", super)
	sc.attached = c.Value()
	c.class = sc
	s.heap.barrierObject(c, sc)
	return sc
}

// ExtendObject mixes m into the singleton class of v.
func (s *State) ExtendObject(v Value, m *RClass) error {
	sc, err := s.SingletonClassOf(v)
	if err != nil {
		return err
	}
	return s.IncludeModule(sc, m)
}

// ---------------------------------------------------------------------------
// Class of a value
// ---------------------------------------------------------------------------

// ClassOf returns the class used for dispatch on v, which is the singleton
// class when one exists.
func (s *State) ClassOf(v Value) *RClass {
	switch {
	case v == Nil:
		return s.NilClass
	case v == True:
		return s.TrueClass
	case v == False:
		return s.FalseClass
	case v.IsSmallInt():
		return s.IntegerClass
	case v.IsSymbol():
		return s.SymbolClass
	case v.IsFloat():
		return s.FloatClass
	}
	if o := s.heap.Get(v); o != nil {
		return o.Basic().class
	}
	return s.BasicObjectClass
}

// RealClassOf returns the user-visible class of v.
func (s *State) RealClassOf(v Value) *RClass {
	return RealClass(s.ClassOf(v))
}

// KindOf reports whether v is an instance of c or of a descendant, or
// includes c when c is a module.
func (s *State) KindOf(v Value, c *RClass) bool {
	return s.ClassOf(v).IncludesNode(c)
}

// InstanceOf reports whether the real class of v is exactly c.
func (s *State) InstanceOf(v Value, c *RClass) bool {
	return s.RealClassOf(v) == c
}

// ClassFromValue returns v as a class or module, or nil.
func (s *State) ClassFromValue(v Value) *RClass {
	c, _ := s.heap.Get(v).(*RClass)
	if c == nil || c.Type() == TTIClass {
		return nil
	}
	return c
}

// describeClass renders a class for messages, including anonymous and
// singleton classes.
func (s *State) describeClass(c *RClass) string {
	if c == nil {
		return "nil"
	}
	if c.Type() == TTSClass {
		if a := s.heap.Get(c.attached); a != nil {
			if ac, ok := a.(*RClass); ok {
				return "#<Class:" + s.describeClass(ac) + ">"
			}
		}
		return fmt.Sprintf("#<Class:%s>", s.anyToS(c.attached))
	}
	if n := c.Name(); n != "" {
		return n
	}
	if c.Type() == TTModule {
		return fmt.Sprintf("#<Module:%#016x>", c.id)
	}
	return fmt.Sprintf("#<Class:%#016x>", c.id)
}

// ---------------------------------------------------------------------------
// Constants and class variables
// ---------------------------------------------------------------------------

func (c *RClass) setConst(sym Symbol, v Value) {
	if c.consts == nil {
		c.consts = make(map[Symbol]Value)
	}
	c.consts[sym] = v
}

// ConstGet looks a constant up in c and its ancestors, then in Object.
func (s *State) ConstGet(c *RClass, sym Symbol) (Value, error) {
	for k := c; k != nil; k = k.super {
		if v, ok := k.Owner().consts[sym]; ok {
			return v, nil
		}
	}
	if v, ok := s.ObjectClass.consts[sym]; ok {
		return v, nil
	}
	return Nil, s.raiseName(s.NameError, sym, "uninitialized constant %s", s.symbols.Name(sym))
}

// ConstSet binds a constant in c. Naming an anonymous class via a constant
// gives it that name.
func (s *State) ConstSet(c *RClass, sym Symbol, v Value) error {
	if err := s.checkFrozen(c); err != nil {
		return err
	}
	c.setConst(sym, v)
	s.heap.WriteBarrier(c, v)
	if k := s.ClassFromValue(v); k != nil && k.name == "" && k.Type() != TTSClass {
		name := s.symbols.Name(sym)
		if c != s.ObjectClass && c.name != "" {
			name = c.name + "::" + name
		}
		k.name = name
		s.classes.Register(k)
	}
	return nil
}

// ConstDefined reports whether c or its ancestors bind sym.
func (s *State) ConstDefined(c *RClass, sym Symbol) bool {
	_, err := s.ConstGet(c, sym)
	return err == nil
}

// IsCVName reports whether sym looks like a class variable ("@@name").
func (s *State) IsCVName(sym Symbol) bool {
	name := s.symbols.Name(sym)
	if len(name) < 3 || name[0] != '@' || name[1] != '@' || (name[2] >= '0' && name[2] <= '9') {
		return false
	}
	for i := 2; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return false
		}
	}
	return true
}

// cvOwner finds the ancestor of c that holds the class variable sym.
func (s *State) cvOwner(c *RClass, sym Symbol) *RClass {
	for k := c; k != nil; k = k.super {
		owner := k.Owner()
		if owner.iv == nil {
			continue
		}
		if _, ok := owner.iv.get(sym); ok {
			return owner
		}
	}
	return nil
}

// CVGet reads a class variable through the ancestry of c.
func (s *State) CVGet(c *RClass, sym Symbol) (Value, error) {
	owner := s.cvOwner(c, sym)
	if owner == nil {
		return Nil, s.raiseName(s.NameError, sym, "uninitialized class variable %s in %s", s.symbols.Name(sym), s.describeClass(c))
	}
	v, _ := owner.iv.get(sym)
	return v, nil
}

// CVSet assigns a class variable on the ancestor that already holds it, or
// on c itself.
func (s *State) CVSet(c *RClass, sym Symbol, v Value) error {
	if !s.IsCVName(sym) {
		return s.raiseName(s.NameError, sym, "'%s' is not allowed as a class variable name", s.symbols.Name(sym))
	}
	owner := s.cvOwner(c, sym)
	if owner == nil {
		owner = c.Owner()
	}
	if err := s.checkFrozen(owner); err != nil {
		return err
	}
	s.ivPut(owner, sym, v)
	return nil
}

// CVDefined reports whether the class variable sym is visible from c.
func (s *State) CVDefined(c *RClass, sym Symbol) bool {
	return s.cvOwner(c, sym) != nil
}
