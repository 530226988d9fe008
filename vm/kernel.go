package vm

import (
	"fmt"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Generic object protocol
// ---------------------------------------------------------------------------

// ObjectID returns the object_id of v. Heap objects derive it from their
// allocation id; immediates from their payload and tag, so equal
// immediates share an id.
func (s *State) ObjectID(v Value) int64 {
	if v.IsObject() {
		return int64(v.ObjectID()) << 3
	}
	tag := (uint64(v) & tagMask) >> 48
	return int64(((uint64(v)&payloadMask)<<3 | tag) & uint64(MaxSmallInt))
}

// anyToS renders the default "#<Foo:0x...>" form.
func (s *State) anyToS(v Value) string {
	return fmt.Sprintf("#<%s:0x%016x>", s.describeClass(s.RealClassOf(v)), s.ObjectID(v))
}

// ToS converts v with to_s. Strings are returned as is; a to_s that does
// not answer a String falls back to the default rendering.
func (s *State) ToS(c *Context, v Value) (string, error) {
	if r := s.StringFromValue(v); r != nil {
		return r.str, nil
	}
	out, err := s.Send(c, v, s.symToS, nil)
	if err != nil {
		return "", err
	}
	if r := s.StringFromValue(out); r != nil {
		return r.str, nil
	}
	return s.anyToS(v), nil
}

// Inspect converts v with inspect.
func (s *State) Inspect(c *Context, v Value) (string, error) {
	out, err := s.Send(c, v, s.symInspect, nil)
	if err != nil {
		return "", err
	}
	if r := s.StringFromValue(out); r != nil {
		return r.str, nil
	}
	return s.ToS(c, out)
}

// InspectString is Inspect for error messages: failures degrade to the
// default rendering.
func (s *State) InspectString(c *Context, v Value) string {
	str, err := s.Inspect(c, v)
	if err != nil {
		return s.anyToS(v)
	}
	return str
}

// Equal is a == b. Identical values are equal without a call, except
// floats, where NaN differs from itself.
func (s *State) Equal(c *Context, a, b Value) (bool, error) {
	if a == b && !a.IsFloat() {
		return true, nil
	}
	out, err := s.Send(c, a, s.symEq, s.NewArgs(b))
	if err != nil {
		return false, err
	}
	return out.IsTruthy(), nil
}

// Eql is a.eql?(b).
func (s *State) Eql(c *Context, a, b Value) (bool, error) {
	if a == b && !a.IsFloat() {
		return true, nil
	}
	out, err := s.Send(c, a, s.symEql, s.NewArgs(b))
	if err != nil {
		return false, err
	}
	return out.IsTruthy(), nil
}

// Hash calls v.hash and checks that it answers an Integer.
func (s *State) Hash(c *Context, v Value) (int64, error) {
	out, err := s.Send(c, v, s.symHash, nil)
	if err != nil {
		return 0, err
	}
	switch {
	case out.IsSmallInt():
		return out.SmallInt(), nil
	case out.IsFloat():
		return int64(math.Float64bits(out.Float64()) & uint64(MaxSmallInt)), nil
	}
	return 0, s.Raisef(s.TypeError, "hash must return an Integer")
}

// ---------------------------------------------------------------------------
// Copying
// ---------------------------------------------------------------------------

// Dup copies v: a fresh allocation of its class, its instance variables,
// then initialize_copy. Clone also keeps the frozen state and singleton
// methods.
func (s *State) Dup(c *Context, v Value) (Value, error) {
	return s.copyObject(s.ctx(c), v, false)
}

// Clone is Dup keeping the frozen state and singleton class.
func (s *State) Clone(c *Context, v Value) (Value, error) {
	return s.copyObject(s.ctx(c), v, true)
}

func (s *State) copyObject(c *Context, v Value, clone bool) (Value, error) {
	o := s.heap.Get(v)
	if o == nil {
		return v, nil
	}
	if o.Basic().Type() == TTSClass {
		return Nil, s.Raisef(s.TypeError, "can't copy singleton class")
	}
	cp, err := s.allocCopy(o)
	if err != nil {
		return Nil, err
	}
	if clone {
		if sc := o.Basic().class; sc != nil && sc.Type() == TTSClass {
			s.cloneSingleton(cp, sc)
		}
	}
	s.IVCopy(cp, v)
	if _, err := s.Send(c, cp, s.symInitializeCopy, s.NewArgs(v)); err != nil {
		return Nil, err
	}
	if clone && o.Basic().Frozen() {
		s.Freeze(cp)
	}
	return cp, nil
}

// allocCopy allocates the empty shell a copy of o is built in.
func (s *State) allocCopy(o HeapObject) (Value, error) {
	cls := RealClass(o.Basic().class)
	switch src := o.(type) {
	case *RClass:
		var nc *RClass
		if src.Type() == TTModule {
			nc = s.NewModule()
		} else {
			nc = s.NewClass(src.super)
		}
		src.mt.Each(func(sym Symbol, e MethodEntry) {
			nc.mt.Add(sym, e)
		})
		for k, val := range src.consts {
			nc.setConst(k, val)
		}
		return nc.Value(), nil
	case *RProc:
		p := *src
		p.RBasic = RBasic{}
		p.init(TTProc, cls)
		p.word |= src.word & hdrFlagsMask
		s.heap.add(&p)
		return p.Value(), nil
	case *RMethod:
		return s.newMethod(src.IsBound(), src.owner, src.recv, src.name, src.proc, src.klass).Value(), nil
	}
	return s.allocInstance(cls)
}

// cloneSingleton gives cp a singleton class carrying the methods of sc.
// Modules extended into the original stay shared through the super link.
func (s *State) cloneSingleton(cp Value, sc *RClass) {
	o := s.heap.Get(cp)
	nsc := s.allocClass(TTSClass, s.ClassClass, "", sc.super)
	nsc.attached = cp
	sc.mt.Each(func(sym Symbol, e MethodEntry) {
		nsc.mt.Add(sym, e)
	})
	o.Basic().class = nsc
	s.heap.barrierObject(o, nsc)
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initKernel() {
	b := s.BasicObjectClass
	s.DefinePrivateMethod(b, "initialize", ArgsAny, kernelInitialize)
	s.DefinePrivateMethod(b, "method_missing", ArgsReq(1)|ArgsRest, basicMethodMissing)
	s.DefineMethod(b, "==", ArgsReq(1), kernelIdentical)
	s.DefineMethod(b, "equal?", ArgsReq(1), kernelIdentical)
	s.DefineMethod(b, "!", ArgsNone, kernelNot)
	s.DefineMethod(b, "!=", ArgsReq(1), kernelNotEqual)
	s.DefineMethod(b, "__id__", ArgsNone, kernelObjectID)
	s.DefineMethod(b, "__send__", ArgsReq(1)|ArgsRest, kernelSend)

	k := s.KernelModule
	s.DefineMethod(k, "eql?", ArgsReq(1), kernelIdentical)
	s.DefineMethod(k, "===", ArgsReq(1), kernelCaseEq)
	s.DefineMethod(k, "<=>", ArgsReq(1), kernelCmp)
	s.DefineMethod(k, "class", ArgsNone, kernelClass)
	s.DefineMethod(k, "singleton_class", ArgsNone, kernelSingletonClass)
	s.DefineMethod(k, "frozen?", ArgsNone, kernelFrozen)
	s.DefineMethod(k, "freeze", ArgsNone, kernelFreeze)
	s.DefineMethod(k, "hash", ArgsNone, kernelHash)
	s.DefineMethod(k, "object_id", ArgsNone, kernelObjectID)
	s.DefineMethod(k, "to_s", ArgsNone, kernelToS)
	s.DefineMethod(k, "inspect", ArgsNone, kernelInspect)
	s.DefineMethod(k, "instance_of?", ArgsReq(1), kernelInstanceOf)
	s.DefineMethod(k, "is_a?", ArgsReq(1), kernelKindOf)
	s.DefineMethod(k, "kind_of?", ArgsReq(1), kernelKindOf)
	s.DefineMethod(k, "nil?", ArgsNone, kernelNilP)
	s.DefineMethod(k, "itself", ArgsNone, kernelItself)
	s.DefineMethod(k, "tap", ArgsBlock, kernelTap)
	s.DefineMethod(k, "respond_to?", ArgsArg(1, 1), kernelRespondTo)
	s.DefinePrivateMethod(k, "respond_to_missing?", ArgsArg(1, 1), kernelRespondToMissing)
	s.DefineMethod(k, "methods", ArgsOpt(1), kernelMethods)
	s.DefineMethod(k, "singleton_methods", ArgsOpt(1), kernelSingletonMethods)
	s.DefineMethod(k, "instance_variable_get", ArgsReq(1), kernelIVGet)
	s.DefineMethod(k, "instance_variable_set", ArgsReq(2), kernelIVSet)
	s.DefineMethod(k, "instance_variable_defined?", ArgsReq(1), kernelIVDefined)
	s.DefineMethod(k, "instance_variables", ArgsNone, kernelIVars)
	s.DefineMethod(k, "remove_instance_variable", ArgsReq(1), kernelIVRemove)
	s.DefineMethod(k, "extend", ArgsReq(1)|ArgsRest, kernelExtend)
	s.DefineMethod(k, "dup", ArgsNone, kernelDup)
	s.DefineMethod(k, "clone", ArgsNone, kernelClone)
	s.DefinePrivateMethod(k, "initialize_copy", ArgsReq(1), kernelInitializeCopy)
	s.DefineMethod(k, "send", ArgsReq(1)|ArgsRest, kernelSend)
	s.DefineMethod(k, "public_send", ArgsReq(1)|ArgsRest, kernelPublicSend)
	s.DefinePrivateMethod(k, "__method_recursive?", ArgsArg(1, 1), kernelMethodRecursive)
	s.DefinePrivateMethod(k, "raise", ArgsOpt(2), kernelRaise)
	s.DefinePrivateMethod(k, "block_given?", ArgsNone, kernelBlockGiven)
	s.DefinePrivateMethod(k, "proc", ArgsBlock, kernelProc)
	s.DefinePrivateMethod(k, "lambda", ArgsBlock, kernelLambda)
	s.DefineClassMethod(k, "raise", ArgsOpt(2), kernelRaise)

	s.initComparable()
}

func kernelInitialize(_ *Context, _ Value, _ *Args) (Value, error) { return Nil, nil }

func kernelIdentical(_ *Context, self Value, args *Args) (Value, error) {
	return FromBool(self == args.At(0)), nil
}

func kernelNot(_ *Context, self Value, _ *Args) (Value, error) {
	return FromBool(self.IsFalsy()), nil
}

func kernelNotEqual(c *Context, self Value, args *Args) (Value, error) {
	eq, err := c.s.Equal(c, self, args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(!eq), nil
}

func kernelCaseEq(c *Context, self Value, args *Args) (Value, error) {
	eq, err := c.s.Equal(c, self, args.At(0))
	return FromBool(eq), err
}

// kernelCmp answers 0 for equal objects and nil otherwise. A comparison
// already in progress for the same pair answers nil.
func kernelCmp(c *Context, self Value, args *Args) (Value, error) {
	other := args.At(0)
	release, recursive := c.Guard(c.s.symCmp, self, other)
	defer release()
	if recursive {
		return Nil, nil
	}
	eq, err := c.s.Equal(c, self, other)
	if err != nil {
		return Nil, err
	}
	if eq {
		return FromSmallInt(0), nil
	}
	return Nil, nil
}

func kernelClass(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.RealClassOf(self).Value(), nil
}

func kernelSingletonClass(c *Context, self Value, _ *Args) (Value, error) {
	sc, err := c.s.SingletonClassOf(self)
	if err != nil {
		return Nil, err
	}
	return sc.Value(), nil
}

func kernelFrozen(c *Context, self Value, _ *Args) (Value, error) {
	return FromBool(c.s.IsFrozen(self)), nil
}

func kernelFreeze(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.Freeze(self), nil
}

func kernelHash(c *Context, self Value, _ *Args) (Value, error) {
	return FromSmallInt(c.s.ObjectID(self)), nil
}

func kernelObjectID(c *Context, self Value, _ *Args) (Value, error) {
	return FromSmallInt(c.s.ObjectID(self)), nil
}

func kernelToS(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.StringValue(c.s.anyToS(self)), nil
}

// kernelInspect lists instance variables, "#<Foo:0x... @a=1, @b=2>", as
// long as to_s is the default one. A receiver met again while its own
// inspect is running renders as "#<Foo:0x... ...>".
func kernelInspect(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	names := s.IVNames(self)
	if len(names) == 0 || !s.isKernelNative(self, s.symToS) {
		str, err := s.ToS(c, self)
		if err != nil {
			return Nil, err
		}
		return s.StringValue(str), nil
	}
	base := strings.TrimSuffix(s.anyToS(self), ">")
	release, recursive := c.Guard(s.symInspect, self, Nil)
	defer release()
	if recursive {
		return s.StringValue(base + " ...>"), nil
	}
	var b strings.Builder
	b.WriteString(base)
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		str, err := s.Inspect(c, s.IVGet(self, name))
		if err != nil {
			return Nil, err
		}
		b.WriteString(" " + s.symbols.Name(name) + "=" + str)
	}
	b.WriteByte('>')
	return s.StringValue(b.String()), nil
}

func kernelInstanceOf(c *Context, self Value, args *Args) (Value, error) {
	cls, err := c.s.toClass(args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.InstanceOf(self, cls)), nil
}

func kernelKindOf(c *Context, self Value, args *Args) (Value, error) {
	cls, err := c.s.toClass(args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.KindOf(self, cls)), nil
}

func kernelNilP(_ *Context, self Value, _ *Args) (Value, error) {
	return FromBool(self == Nil), nil
}

func kernelItself(_ *Context, self Value, _ *Args) (Value, error) { return self, nil }

func kernelTap(c *Context, self Value, args *Args) (Value, error) {
	if _, err := c.s.Yield(c, args.Block, self); err != nil {
		return Nil, err
	}
	return self, nil
}

// kernelRespondTo consults respond_to_missing? only when some class has
// overridden it.
func kernelRespondTo(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	mid, err := s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	priv := args.At(1).IsTruthy()
	if s.RespondTo(self, mid, priv) {
		return True, nil
	}
	if s.isKernelNative(self, s.symRespondToMissing) {
		return False, nil
	}
	out, err := s.Send(c, self, s.symRespondToMissing, s.NewArgs(FromSymbol(mid), FromBool(priv)))
	if err != nil {
		return Nil, err
	}
	return FromBool(out.IsTruthy()), nil
}

func kernelRespondToMissing(_ *Context, _ Value, _ *Args) (Value, error) { return False, nil }

// collectMethods gathers the public and, when all is set, private names
// visible from c, stopping at the first node that is neither a singleton
// class nor an iclass when singletonOnly is set. Undef markers hide the
// name from every node above them.
func (s *State) collectMethods(c *RClass, singletonOnly, all bool) []Value {
	seen := make(map[Symbol]bool)
	var out []Value
	for k := c; k != nil; k = k.super {
		if singletonOnly && k.Type() != TTSClass && k.Type() != TTIClass {
			break
		}
		k.mt.Each(func(sym Symbol, e MethodEntry) {
			if seen[sym] {
				return
			}
			seen[sym] = true
			if e.IsUndef() || (e.IsPrivate() && !all) {
				return
			}
			out = append(out, FromSymbol(sym))
		})
	}
	return out
}

// kernelMethods with a false argument answers the receiver's own
// singleton methods, leaving out extended modules.
func kernelMethods(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	if args.Len() > 0 && args.At(0).IsFalsy() {
		return s.ArrayValue(s.ownSingletonMethods(self)...), nil
	}
	return s.ArrayValue(s.collectMethods(s.ClassOf(self), false, false)...), nil
}

func (s *State) ownSingletonMethods(v Value) []Value {
	cls := s.ClassOf(v)
	if cls.Type() != TTSClass {
		return nil
	}
	var out []Value
	cls.mt.Each(func(sym Symbol, e MethodEntry) {
		if e.Defined() && !e.IsPrivate() {
			out = append(out, FromSymbol(sym))
		}
	})
	return out
}

func kernelSingletonMethods(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	if args.Len() > 0 && args.At(0).IsFalsy() {
		return s.ArrayValue(s.ownSingletonMethods(self)...), nil
	}
	cls := s.ClassOf(self)
	if cls.Type() != TTSClass {
		return s.ArrayValue(), nil
	}
	return s.ArrayValue(s.collectMethods(cls, true, false)...), nil
}

func ivNameArg(c *Context, v Value) (Symbol, error) {
	sym, err := c.s.toSym(v)
	if err != nil {
		return NoSymbol, err
	}
	return sym, c.s.CheckIVName(sym)
}

func kernelIVGet(c *Context, self Value, args *Args) (Value, error) {
	sym, err := ivNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return c.s.IVGet(self, sym), nil
}

func kernelIVSet(c *Context, self Value, args *Args) (Value, error) {
	sym, err := ivNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	if c.s.heap.Get(self) == nil {
		return Nil, c.s.Raisef(c.s.FrozenError, "can't modify frozen %s: %s",
			c.s.RealClassOf(self).Name(), c.s.InspectString(c, self))
	}
	return args.At(1), c.s.IVSet(self, sym, args.At(1))
}

func kernelIVDefined(c *Context, self Value, args *Args) (Value, error) {
	sym, err := ivNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.IVDefined(self, sym)), nil
}

func kernelIVars(c *Context, self Value, _ *Args) (Value, error) {
	names := c.s.IVNames(self)
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = FromSymbol(n)
	}
	return c.s.ArrayValue(out...), nil
}

func kernelIVRemove(c *Context, self Value, args *Args) (Value, error) {
	sym, err := ivNameArg(c, args.At(0))
	if err != nil {
		return Nil, err
	}
	return c.s.IVRemove(self, sym)
}

// kernelExtend mixes the modules in right to left, calling each one's
// extended hook.
func kernelExtend(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	mods := args.Slice()
	for _, m := range mods {
		if mc := s.ClassFromValue(m); mc == nil || mc.Type() != TTModule {
			return Nil, s.Raisef(s.TypeError, "wrong argument type %s (expected Module)", s.TypeName(m))
		}
	}
	for i := len(mods) - 1; i >= 0; i-- {
		if err := s.ExtendObject(self, s.ClassFromValue(mods[i])); err != nil {
			return Nil, err
		}
		if _, err := s.Funcall(c, mods[i], "extended", self); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func kernelDup(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.Dup(c, self)
}

func kernelClone(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.Clone(c, self)
}

func kernelInitializeCopy(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	orig := args.At(0)
	if self == orig {
		return self, nil
	}
	if s.RealClassOf(self) != s.RealClassOf(orig) {
		return Nil, s.Raisef(s.TypeError, "initialize_copy should take same class object")
	}
	if o := s.heap.Get(self); o != nil {
		if err := s.checkFrozen(o); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func kernelSend(c *Context, self Value, args *Args) (Value, error) {
	name, err := args.Shift()
	if err != nil {
		return Nil, err
	}
	mid, err := c.s.toSym(name)
	if err != nil {
		return Nil, err
	}
	return c.s.Send(c, self, mid, args)
}

func kernelPublicSend(c *Context, self Value, args *Args) (Value, error) {
	name, err := args.Shift()
	if err != nil {
		return Nil, err
	}
	mid, err := c.s.toSym(name)
	if err != nil {
		return Nil, err
	}
	return c.s.PublicSend(c, self, mid, args)
}

func kernelMethodRecursive(c *Context, self Value, args *Args) (Value, error) {
	mid, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(c.MethodRecursive(mid, self, args.At(1))), nil
}

func kernelRaise(c *Context, _ Value, args *Args) (Value, error) {
	return Nil, c.s.exceptionFromArgs(c, args)
}

// callerFrame returns the frame that called the running native.
func (c *Context) callerFrame() *CallInfo {
	if len(c.frames) < 2 {
		return nil
	}
	return c.frames[len(c.frames)-2]
}

func kernelBlockGiven(c *Context, _ Value, _ *Args) (Value, error) {
	ci := c.callerFrame()
	return FromBool(ci != nil && ci.Args != nil && ci.Args.Block != Nil), nil
}

func kernelProc(c *Context, _ Value, args *Args) (Value, error) {
	if c.s.ProcFromValue(args.Block) == nil {
		return Nil, c.s.Raisef(c.s.ArgumentError, "tried to create Proc object without a block")
	}
	return args.Block, nil
}

func kernelLambda(c *Context, _ Value, args *Args) (Value, error) {
	s := c.s
	p := s.ProcFromValue(args.Block)
	if p == nil {
		return Nil, s.Raisef(s.ArgumentError, "tried to create Proc object without a block")
	}
	if p.IsLambda() {
		return args.Block, nil
	}
	cp, err := s.allocCopy(p)
	if err != nil {
		return Nil, err
	}
	s.ProcFromValue(cp).setFlag(FlagProcStrict)
	return cp, nil
}

// ---------------------------------------------------------------------------
// Comparable
// ---------------------------------------------------------------------------

func (s *State) initComparable() {
	m := s.ComparableModule
	s.DefineMethod(m, "==", ArgsReq(1), cmpEq)
	s.DefineMethod(m, "<", ArgsReq(1), cmpLt)
	s.DefineMethod(m, "<=", ArgsReq(1), cmpLe)
	s.DefineMethod(m, ">", ArgsReq(1), cmpGt)
	s.DefineMethod(m, ">=", ArgsReq(1), cmpGe)
	s.DefineMethod(m, "between?", ArgsReq(2), cmpBetween)
	s.DefineMethod(m, "clamp", ArgsReq(2), cmpClamp)
}

// compare calls a <=> b; ok is false when the answer is nil.
func (s *State) compare(c *Context, a, b Value) (n int64, ok bool, err error) {
	out, err := s.Send(c, a, s.symCmp, s.NewArgs(b))
	if err != nil || out == Nil {
		return 0, false, err
	}
	if out.IsSmallInt() {
		return out.SmallInt(), true, nil
	}
	if out.IsFloat() {
		f := out.Float64()
		switch {
		case f < 0:
			return -1, true, nil
		case f > 0:
			return 1, true, nil
		}
		return 0, true, nil
	}
	return 0, false, nil
}

func (s *State) mustCompare(c *Context, a, b Value) (int64, error) {
	n, ok, err := s.compare(c, a, b)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, s.Raisef(s.ArgumentError, "comparison of %s with %s failed",
			s.TypeName(a), s.InspectString(c, b))
	}
	return n, nil
}

func cmpEq(c *Context, self Value, args *Args) (Value, error) {
	other := args.At(0)
	if self == other {
		return True, nil
	}
	release, recursive := c.Guard(c.s.symCmp, self, other)
	defer release()
	if recursive {
		return False, nil
	}
	n, ok, err := c.s.compare(c, self, other)
	if err != nil {
		return Nil, err
	}
	return FromBool(ok && n == 0), nil
}

func cmpRel(c *Context, self Value, args *Args, test func(int64) bool) (Value, error) {
	n, err := c.s.mustCompare(c, self, args.At(0))
	if err != nil {
		return Nil, err
	}
	return FromBool(test(n)), nil
}

func cmpLt(c *Context, self Value, args *Args) (Value, error) {
	return cmpRel(c, self, args, func(n int64) bool { return n < 0 })
}

func cmpLe(c *Context, self Value, args *Args) (Value, error) {
	return cmpRel(c, self, args, func(n int64) bool { return n <= 0 })
}

func cmpGt(c *Context, self Value, args *Args) (Value, error) {
	return cmpRel(c, self, args, func(n int64) bool { return n > 0 })
}

func cmpGe(c *Context, self Value, args *Args) (Value, error) {
	return cmpRel(c, self, args, func(n int64) bool { return n >= 0 })
}

func cmpBetween(c *Context, self Value, args *Args) (Value, error) {
	lo, err := c.s.mustCompare(c, self, args.At(0))
	if err != nil {
		return Nil, err
	}
	hi, err := c.s.mustCompare(c, self, args.At(1))
	if err != nil {
		return Nil, err
	}
	return FromBool(lo >= 0 && hi <= 0), nil
}

func cmpClamp(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	lo, hi := args.At(0), args.At(1)
	order, err := s.mustCompare(c, lo, hi)
	if err != nil {
		return Nil, err
	}
	if order > 0 {
		return Nil, s.Raisef(s.ArgumentError, "min argument must be less than or equal to max argument")
	}
	if n, err := s.mustCompare(c, self, lo); err != nil || n < 0 {
		if err != nil {
			return Nil, err
		}
		return lo, nil
	}
	if n, err := s.mustCompare(c, self, hi); err != nil || n > 0 {
		if err != nil {
			return Nil, err
		}
		return hi, nil
	}
	return self, nil
}
