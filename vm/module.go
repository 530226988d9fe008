package vm

import "sort"

// ---------------------------------------------------------------------------
// Instance allocation
// ---------------------------------------------------------------------------

// allocInstance allocates an uninitialized instance of c using the
// representation of its nearest builtin ancestor.
func (s *State) allocInstance(c *RClass) (Value, error) {
	switch {
	case c.Type() == TTSClass:
		return Nil, s.Raisef(s.TypeError, "can't create instance of singleton class")
	case c.Type() != TTClass:
		return Nil, s.Raisef(s.TypeError, "allocator undefined for %s", s.describeClass(c))
	case c.IsSubclassOf(s.ClassClass):
		return s.NewClass(nil).Value(), nil
	case c.IsSubclassOf(s.ModuleClass):
		return s.NewModule().Value(), nil
	}
	for _, builtin := range []*RClass{
		s.IntegerClass, s.FloatClass, s.SymbolClass, s.NilClass, s.TrueClass,
		s.FalseClass, s.ProcClass, s.MethodClass, s.UnboundMethodClass,
	} {
		if c.IsSubclassOf(builtin) {
			return Nil, s.Raisef(s.TypeError, "allocator undefined for %s", s.describeClass(c))
		}
	}

	var o HeapObject
	switch {
	case c.IsSubclassOf(s.StringClass):
		o = s.NewString("")
	case c.IsSubclassOf(s.ArrayClass):
		o = s.NewArray()
	case c.IsSubclassOf(s.HashClass):
		o = s.NewHash()
	default:
		return s.NewObject(c).Value(), nil
	}
	o.Basic().class = c
	s.heap.barrierObject(o, c)
	return o.Basic().Value(), nil
}

// NewInstance is Class#new: allocate, then initialize with args.
func (s *State) NewInstance(c *Context, cls *RClass, args *Args) (Value, error) {
	obj, err := s.allocInstance(cls)
	if err != nil {
		return Nil, err
	}
	if _, err := s.Send(c, obj, s.symInitialize, args); err != nil {
		return Nil, err
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initModule() {
	cl := s.ClassClass
	s.DefineMethod(cl, "new", ArgsAny|ArgsBlock, classNew)
	s.DefineMethod(cl, "allocate", ArgsNone, classAllocate)
	s.DefineMethod(cl, "superclass", ArgsNone, classSuperclass)
	s.DefinePrivateMethod(cl, "initialize", ArgsOpt(1)|ArgsBlock, classInitialize)
	s.DefinePrivateMethod(cl, "inherited", ArgsReq(1), moduleHook)

	m := s.ModuleClass
	s.DefinePrivateMethod(m, "initialize", ArgsBlock, moduleInitialize)
	s.DefinePrivateMethod(m, "included", ArgsReq(1), moduleHook)
	s.DefinePrivateMethod(m, "extended", ArgsReq(1), moduleHook)
	s.DefineMethod(m, "name", ArgsNone, moduleName)
	s.DefineMethod(m, "to_s", ArgsNone, moduleToS)
	s.DefineMethod(m, "inspect", ArgsNone, moduleToS)
	s.DefineMethod(m, "ancestors", ArgsNone, moduleAncestors)
	s.DefineMethod(m, "include", ArgsReq(1)|ArgsRest, moduleInclude)
	s.DefineMethod(m, "include?", ArgsReq(1), moduleIncludeP)
	s.DefineMethod(m, "instance_methods", ArgsOpt(1), moduleInstanceMethods)
	s.DefineMethod(m, "method_defined?", ArgsReq(1), moduleMethodDefined)
	s.DefineMethod(m, "public_method_defined?", ArgsReq(1), moduleMethodDefined)
	s.DefineMethod(m, "private_method_defined?", ArgsReq(1), modulePrivateMethodDefined)
	s.DefineMethod(m, "define_method", ArgsArg(1, 1)|ArgsBlock, moduleDefineMethod)
	s.DefineMethod(m, "alias_method", ArgsReq(2), moduleAliasMethod)
	s.DefineMethod(m, "undef_method", ArgsAny, moduleUndefMethod)
	s.DefineMethod(m, "remove_method", ArgsAny, moduleRemoveMethod)
	s.DefineMethod(m, "private", ArgsAny, modulePrivate)
	s.DefineMethod(m, "public", ArgsAny, modulePublic)
	s.DefineMethod(m, "attr_reader", ArgsAny, moduleAttrReader)
	s.DefineMethod(m, "attr_writer", ArgsAny, moduleAttrWriter)
	s.DefineMethod(m, "attr_accessor", ArgsAny, moduleAttrAccessor)
	s.DefineMethod(m, "class_variable_get", ArgsReq(1), moduleCVGet)
	s.DefineMethod(m, "class_variable_set", ArgsReq(2), moduleCVSet)
	s.DefineMethod(m, "class_variable_defined?", ArgsReq(1), moduleCVDefined)
	s.DefineMethod(m, "class_variables", ArgsNone, moduleClassVariables)
	s.DefineMethod(m, "const_get", ArgsReq(1), moduleConstGet)
	s.DefineMethod(m, "const_set", ArgsReq(2), moduleConstSet)
	s.DefineMethod(m, "const_defined?", ArgsReq(1), moduleConstDefined)
	s.DefineMethod(m, "constants", ArgsNone, moduleConstants)
	s.DefineMethod(m, "class_eval", ArgsBlock, moduleEval)
	s.DefineMethod(m, "module_eval", ArgsBlock, moduleEval)
	s.DefineMethod(m, "===", ArgsReq(1), moduleCaseEq)
	s.DefineMethod(m, "<", ArgsReq(1), moduleLt)
	s.DefineMethod(m, "<=", ArgsReq(1), moduleLe)
}

func selfModule(c *Context, self Value) (*RClass, error) {
	m := c.s.ClassFromValue(self)
	if m == nil {
		return nil, c.s.Raisef(c.s.TypeError, "not a class/module")
	}
	return m, nil
}

func moduleHook(_ *Context, _ Value, _ *Args) (Value, error) { return Nil, nil }

func classNew(c *Context, self Value, args *Args) (Value, error) {
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.NewInstance(c, cls, args)
}

func classAllocate(c *Context, self Value, _ *Args) (Value, error) {
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.allocInstance(cls)
}

func classSuperclass(c *Context, self Value, _ *Args) (Value, error) {
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	if sup := cls.Superclass(); sup != nil {
		return sup.Value(), nil
	}
	return Nil, nil
}

// classInitialize is Class.new(super = Object) { body }: it relinks the
// freshly allocated class under super, fires super's inherited hook and
// runs the body with the class as self.
func classInitialize(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sup := s.ObjectClass
	if args.Len() > 0 {
		sup = s.ClassFromValue(args.At(0))
		if sup == nil || sup.Type() != TTClass {
			return Nil, s.Raisef(s.TypeError, "superclass must be a Class (%s given)", s.TypeName(args.At(0)))
		}
		if sup == s.ClassClass {
			return Nil, s.Raisef(s.TypeError, "can't make subclass of Class")
		}
	}
	if cls.super != sup {
		cls.super = sup
		cls.class.super = s.singletonClassOfClass(sup)
		s.heap.barrierObject(cls, sup)
	}
	if _, err := s.Funcall(c, sup.Value(), "inherited", self); err != nil {
		return Nil, err
	}
	return self, s.evalIn(c, cls, args.Block)
}

func moduleInitialize(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return self, c.s.evalIn(c, m, args.Block)
}

// evalIn runs blk with mod as self. A missing block is a no-op.
func (s *State) evalIn(c *Context, mod *RClass, blk Value) error {
	p := s.ProcFromValue(blk)
	if p == nil {
		return nil
	}
	_, err := s.CallProc(c, p, mod.Value(), mod, s.symCall, s.NewArgs(mod.Value()))
	return err
}

func moduleEval(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	p := c.s.ProcFromValue(args.Block)
	if p == nil {
		return Nil, c.s.Raisef(c.s.ArgumentError, "no block given")
	}
	return c.s.CallProc(c, p, self, m, c.s.symCall, c.s.NewArgs(self))
}

func moduleName(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	if m.Name() == "" {
		return Nil, nil
	}
	return c.s.StringValue(m.Name()), nil
}

func moduleToS(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(c.s.describeClass(m)), nil
}

func moduleAncestors(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	anc := c.s.Ancestors(m)
	out := make([]Value, len(anc))
	for i, a := range anc {
		out[i] = a.Value()
	}
	return c.s.ArrayValue(out...), nil
}

// moduleInclude mixes the modules in right to left so that the first
// argument ends up nearest the receiver, calling each included hook.
func moduleInclude(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	mods := args.Slice()
	for _, m := range mods {
		if mc := s.ClassFromValue(m); mc == nil || mc.Type() != TTModule {
			return Nil, s.Raisef(s.TypeError, "wrong argument type %s (expected Module)", s.TypeName(m))
		}
	}
	for i := len(mods) - 1; i >= 0; i-- {
		if err := s.IncludeModule(cls, s.ClassFromValue(mods[i])); err != nil {
			return Nil, err
		}
		if _, err := s.Funcall(c, mods[i], "included", self); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func moduleIncludeP(c *Context, self Value, args *Args) (Value, error) {
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	m := c.s.ClassFromValue(args.At(0))
	if m == nil || m.Type() != TTModule {
		return Nil, c.s.Raisef(c.s.TypeError, "wrong argument type %s (expected Module)", c.s.TypeName(args.At(0)))
	}
	return FromBool(cls != m && cls.IncludesNode(m)), nil
}

func moduleInstanceMethods(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	if args.Len() > 0 && args.At(0).IsFalsy() {
		var out []Value
		m.mt.Each(func(sym Symbol, e MethodEntry) {
			if e.Defined() && !e.IsPrivate() {
				out = append(out, FromSymbol(sym))
			}
		})
		return s.ArrayValue(out...), nil
	}
	return s.ArrayValue(s.collectMethods(m, false, false)...), nil
}

func moduleMethodDefined(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	res, ok := c.s.SearchMethod(m, sym)
	return FromBool(ok && !res.Entry.IsPrivate()), nil
}

func modulePrivateMethodDefined(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	res, ok := c.s.SearchMethod(m, sym)
	return FromBool(ok && res.Entry.IsPrivate()), nil
}

// moduleDefineMethod installs a method from a block, a Proc or a Method.
// Procs are copied and made strict so the method checks its arguments.
func moduleDefineMethod(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	body := args.Block
	if args.Len() > 1 {
		body = args.At(1)
	}
	var p *RProc
	if meth := s.MethodFromValue(body); meth != nil {
		if meth.proc == nil {
			return Nil, s.Raisef(s.TypeError, "method '%s' has no body", s.symbols.Name(meth.name))
		}
		p = meth.proc
	} else if src := s.ProcFromValue(body); src != nil {
		cp, err := s.allocCopy(src)
		if err != nil {
			return Nil, err
		}
		p = s.ProcFromValue(cp)
		p.setFlag(FlagProcStrict)
	} else if args.Len() > 1 {
		return Nil, s.Raisef(s.TypeError, "wrong argument type %s (expected Proc/Method/UnboundMethod)", s.TypeName(body))
	} else {
		return Nil, s.Raisef(s.ArgumentError, "tried to create Proc object without a block")
	}
	if err := s.DefineProcMethod(m, sym, p); err != nil {
		return Nil, err
	}
	return FromSymbol(sym), nil
}

func moduleAliasMethod(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	newName, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	oldName, err := c.s.toSym(args.At(1))
	if err != nil {
		return Nil, err
	}
	return FromSymbol(newName), c.s.AliasMethod(m, newName, oldName)
}

// eachName applies fn to every name argument; a single Array argument is
// expanded.
func eachName(c *Context, args *Args, fn func(Symbol) error) error {
	vals := args.Slice()
	if len(vals) == 1 {
		if a := c.s.ArrayFromValue(vals[0]); a != nil {
			vals = a.Elems()
		}
	}
	for _, v := range vals {
		sym, err := c.s.toSym(v)
		if err != nil {
			return err
		}
		if err := fn(sym); err != nil {
			return err
		}
	}
	return nil
}

func moduleUndefMethod(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return self, eachName(c, args, func(sym Symbol) error { return c.s.UndefMethod(m, sym) })
}

func moduleRemoveMethod(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return self, eachName(c, args, func(sym Symbol) error { return c.s.RemoveMethod(m, sym) })
}

func setVisibility(c *Context, self Value, args *Args, private bool) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	if args.Len() == 0 {
		return Nil, nil
	}
	err = eachName(c, args, func(sym Symbol) error { return c.s.SetVisibility(m, sym, private) })
	if args.Len() == 1 {
		return args.At(0), err
	}
	return c.s.ArrayValue(args.Slice()...), err
}

func modulePrivate(c *Context, self Value, args *Args) (Value, error) {
	return setVisibility(c, self, args, true)
}

func modulePublic(c *Context, self Value, args *Args) (Value, error) {
	return setVisibility(c, self, args, false)
}

// attrNames validates attribute names and returns the matching ivar
// symbols.
func attrNames(c *Context, args *Args) ([]string, []Symbol, error) {
	s := c.s
	var names []string
	var ivs []Symbol
	for _, v := range args.Slice() {
		sym, err := s.toSym(v)
		if err != nil {
			return nil, nil, err
		}
		name := s.symbols.Name(sym)
		iv := s.symbols.Intern("@" + name)
		if !s.IsIVName(iv) {
			return nil, nil, s.raiseName(s.NameError, sym, "invalid attribute name '%s'", name)
		}
		names = append(names, name)
		ivs = append(ivs, iv)
	}
	return names, ivs, nil
}

func (s *State) defineReader(m *RClass, name string, iv Symbol) {
	s.DefineMethod(m, name, ArgsNone, func(c *Context, self Value, _ *Args) (Value, error) {
		return c.s.IVGet(self, iv), nil
	})
}

func (s *State) defineWriter(m *RClass, name string, iv Symbol) {
	s.DefineMethod(m, name+"=", ArgsReq(1), func(c *Context, self Value, args *Args) (Value, error) {
		return args.At(0), c.s.IVSet(self, iv, args.At(0))
	})
}

func attrDefine(c *Context, self Value, args *Args, reader, writer bool) (Value, error) {
	s := c.s
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	if err := s.checkFrozen(m); err != nil {
		return Nil, err
	}
	names, ivs, err := attrNames(c, args)
	if err != nil {
		return Nil, err
	}
	var out []Value
	for i, name := range names {
		if reader {
			s.defineReader(m, name, ivs[i])
			out = append(out, s.Sym(name))
		}
		if writer {
			s.defineWriter(m, name, ivs[i])
			out = append(out, s.Sym(name+"="))
		}
	}
	return s.ArrayValue(out...), nil
}

func moduleAttrReader(c *Context, self Value, args *Args) (Value, error) {
	return attrDefine(c, self, args, true, false)
}

func moduleAttrWriter(c *Context, self Value, args *Args) (Value, error) {
	return attrDefine(c, self, args, false, true)
}

func moduleAttrAccessor(c *Context, self Value, args *Args) (Value, error) {
	return attrDefine(c, self, args, true, true)
}

func cvNameArg(c *Context, v Value) (Symbol, error) {
	sym, err := c.s.toSym(v)
	if err != nil {
		return NoSymbol, err
	}
	if !c.s.IsCVName(sym) {
		return NoSymbol, c.s.raiseName(c.s.NameError, sym, "'%s' is not allowed as a class variable name", c.s.symbols.Name(sym))
	}
	return sym, nil
}

func moduleCVGet(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := cvNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return c.s.CVGet(m, sym)
}

func moduleCVSet(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := cvNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return args.At(1), c.s.CVSet(m, sym, args.At(1))
}

func moduleCVDefined(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := cvNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.CVDefined(m, sym)), nil
}

// moduleClassVariables lists the class variables visible from the
// receiver, nearest first.
func moduleClassVariables(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	seen := make(map[Symbol]bool)
	var out []Value
	for k := m; k != nil; k = k.super {
		s.IVForEach(k.Owner().Value(), func(sym Symbol, _ Value) bool {
			if s.IsCVName(sym) && !seen[sym] {
				seen[sym] = true
				out = append(out, FromSymbol(sym))
			}
			return false
		})
	}
	return s.ArrayValue(out...), nil
}

func constNameArg(c *Context, v Value) (Symbol, error) {
	sym, err := c.s.toSym(v)
	if err != nil {
		return NoSymbol, err
	}
	name := c.s.symbols.Name(sym)
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return NoSymbol, c.s.raiseName(c.s.NameError, sym, "wrong constant name %s", name)
	}
	return sym, nil
}

func moduleConstGet(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := constNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return c.s.ConstGet(m, sym)
}

func moduleConstSet(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := constNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return args.At(1), c.s.ConstSet(m, sym, args.At(1))
}

func moduleConstDefined(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	sym, err := constNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.ConstDefined(m, sym)), nil
}

// moduleConstants lists the receiver's own constants in name order.
func moduleConstants(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	names := make([]string, 0, len(m.consts))
	for sym := range m.consts {
		names = append(names, s.symbols.Name(sym))
	}
	sort.Strings(names)
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = s.Sym(n)
	}
	return s.ArrayValue(out...), nil
}

func moduleCaseEq(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.KindOf(args.At(0), m)), nil
}

func moduleRelation(c *Context, self Value, args *Args, strict bool) (Value, error) {
	m, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	other := c.s.ClassFromValue(args.At(0))
	if other == nil {
		return Nil, c.s.Raisef(c.s.TypeError, "compared with non class/module")
	}
	switch {
	case m == other:
		return FromBool(!strict), nil
	case m.IncludesNode(other):
		return True, nil
	case other.IncludesNode(m):
		return False, nil
	}
	return Nil, nil
}

func moduleLt(c *Context, self Value, args *Args) (Value, error) {
	return moduleRelation(c, self, args, true)
}

func moduleLe(c *Context, self Value, args *Args) (Value, error) {
	return moduleRelation(c, self, args, false)
}
