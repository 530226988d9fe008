package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Method and UnboundMethod
// ---------------------------------------------------------------------------

// RMethod is a reified method: an instance of Method when bound to a
// receiver, of UnboundMethod otherwise.
//
// klass is the class the lookup started from (possibly a singleton class);
// owner is the class or module that defines the method. A nil proc means
// the method exists only through respond_to_missing? and calls go through
// method_missing.
type RMethod struct {
	RBasic
	owner *RClass
	recv  Value // Undef when unbound
	name  Symbol
	proc  *RProc
	klass *RClass
}

func (m *RMethod) mark(mk *marker) {
	mk.class(m.class)
	mk.class(m.owner)
	mk.class(m.klass)
	mk.value(m.recv)
	if m.proc != nil {
		mk.object(m.proc)
	}
}

// Owner returns the class or module defining the method.
func (m *RMethod) Owner() *RClass { return m.owner }

// Receiver returns the bound receiver, or Undef for unbound methods.
func (m *RMethod) Receiver() Value { return m.recv }

// Name returns the method name.
func (m *RMethod) Name() Symbol { return m.name }

// Proc returns the underlying callable, or nil for method_missing-backed
// methods.
func (m *RMethod) Proc() *RProc { return m.proc }

// Klass returns the class the method was looked up from.
func (m *RMethod) Klass() *RClass { return m.klass }

// IsBound reports whether m is a Method rather than an UnboundMethod.
func (m *RMethod) IsBound() bool { return m.HasFlag(FlagMethodBound) }

// Arity returns -1 for method_missing-backed methods and natives, and the
// proc's arity otherwise.
func (m *RMethod) Arity() int {
	if m.proc == nil {
		return -1
	}
	return m.proc.Arity()
}

// Params returns the parameter listing of the method.
func (m *RMethod) Params() []Param {
	if m.proc == nil {
		return []Param{{Kind: "rest"}}
	}
	return m.proc.Params()
}

// MethodFromValue returns v as a Method or UnboundMethod, or nil.
func (s *State) MethodFromValue(v Value) *RMethod {
	m, _ := s.heap.Get(v).(*RMethod)
	return m
}

func (s *State) newMethod(bound bool, owner *RClass, recv Value, name Symbol, proc *RProc, klass *RClass) *RMethod {
	cls := s.UnboundMethodClass
	if bound {
		cls = s.MethodClass
	} else {
		recv = Undef
	}
	m := &RMethod{owner: owner, recv: recv, name: name, proc: proc, klass: klass}
	m.init(TTMethod, cls)
	if bound {
		m.setFlag(FlagMethodBound)
	}
	s.heap.add(m)
	s.heap.barrierObject(m, owner)
	s.heap.WriteBarrier(m, recv)
	if proc != nil {
		s.heap.barrierObject(m, proc)
	}
	s.heap.barrierObject(m, klass)
	return m
}

// methodAlloc looks name up from klass and reifies the result. Bound
// lookups that find nothing consult obj.respond_to_missing?(name, true) and
// produce a method with no proc when it answers true. Singleton lookups
// only accept methods found on a singleton class or a module extended
// into one.
func (s *State) methodAlloc(c *Context, klass *RClass, obj Value, name Symbol, unbound, singleton bool) (*RMethod, error) {
	fail := func() error {
		if singleton {
			return s.raiseName(s.NameError, name, "undefined singleton method '%s' for '%s'",
				s.symbols.Name(name), s.InspectString(c, obj))
		}
		return s.raiseName(s.NameError, name, "undefined method '%s' for class '%s'",
			s.symbols.Name(name), s.describeClass(klass))
	}

	owner := klass
	var proc *RProc
	if res, ok := s.SearchMethod(klass, name); ok {
		owner = res.Class
		proc = res.Proc(s)
	} else {
		if unbound || !s.RespondTo(obj, s.symRespondToMissing, true) {
			return nil, fail()
		}
		ret, err := s.Send(c, obj, s.symRespondToMissing, s.NewArgs(FromSymbol(name), True))
		if err != nil {
			return nil, err
		}
		if !ret.IsTruthy() {
			return nil, fail()
		}
	}
	if singleton && !singletonNode(klass, owner) {
		return nil, fail()
	}
	return s.newMethod(!unbound, owner.Owner(), obj, name, proc, klass), nil
}

// singletonNode reports whether node sits in the singleton part of
// klass's ancestry: the singleton classes and the modules extended into
// them, above the first ordinary class.
func singletonNode(klass, node *RClass) bool {
	for k := klass; k != nil && (k.Type() == TTSClass || k.Type() == TTIClass); k = k.super {
		if k == node {
			return true
		}
	}
	return false
}

// MethodOf is Kernel#method: the method name of recv as a Method.
func (s *State) MethodOf(c *Context, recv Value, name Symbol) (*RMethod, error) {
	return s.methodAlloc(s.ctx(c), s.ClassOf(recv), recv, name, false, false)
}

// SingletonMethodOf is Kernel#singleton_method.
func (s *State) SingletonMethodOf(c *Context, recv Value, name Symbol) (*RMethod, error) {
	return s.methodAlloc(s.ctx(c), s.ClassOf(recv), recv, name, false, true)
}

// InstanceMethod is Module#instance_method.
func (s *State) InstanceMethod(c *Context, mod *RClass, name Symbol) (*RMethod, error) {
	return s.methodAlloc(s.ctx(c), mod, mod.Value(), name, true, false)
}

// bindCheck verifies that recv may run a method owned by owner.
func (s *State) bindCheck(recv Value, owner *RClass) error {
	if owner.Type() == TTModule || owner == s.RealClassOf(recv) || s.KindOf(recv, owner) {
		return nil
	}
	if owner.Type() == TTSClass {
		return s.Raisef(s.TypeError, "singleton method called for a different object")
	}
	return s.Raisef(s.TypeError, "bind argument must be an instance of %s", s.describeClass(owner))
}

// Bind attaches m to recv, producing a Method.
func (s *State) Bind(m *RMethod, recv Value) (*RMethod, error) {
	if err := s.bindCheck(recv, m.owner); err != nil {
		return nil, err
	}
	return s.newMethod(true, m.owner, recv, m.name, m.proc, m.klass), nil
}

// Unbind detaches m from its receiver.
func (s *State) Unbind(m *RMethod) *RMethod {
	return s.newMethod(false, m.owner, Undef, m.name, m.proc, m.klass)
}

// CallMethod invokes m. recv is Undef to use the bound receiver; any other
// value is checked against the owner first. The current frame's MID and
// TargetClass are rewritten to the method being run.
func (s *State) CallMethod(c *Context, m *RMethod, recv Value, args *Args) (Value, error) {
	c = s.ctx(c)
	if args == nil {
		args = s.NewArgs()
	}
	if recv == Undef {
		recv = m.recv
		if recv == Undef {
			return Nil, s.Raisef(s.TypeError, "unbound method cannot be called without a receiver")
		}
	} else if err := s.bindCheck(recv, m.owner); err != nil {
		return Nil, err
	}

	proc, mid, tc := m.proc, m.name, m.owner
	if proc == nil {
		res, err := s.methodMissingFrom(c, m.owner, mid, recv, args)
		if err != nil {
			return Nil, err
		}
		proc, mid, tc = res.Proc(s), s.symMethodMissing, res.Class
	}
	if ci := c.CI(); ci != nil {
		ci.MID = mid
		ci.TargetClass = tc
	}
	return s.CallProc(c, proc, recv, tc, mid, args)
}

// BindCall takes the receiver from the front of args and calls m on it.
func (s *State) BindCall(c *Context, m *RMethod, args *Args) (Value, error) {
	recv, err := args.Shift()
	if err != nil {
		return Nil, err
	}
	return s.CallMethod(c, m, recv, args)
}

// SuperMethod returns the method that super would reach from m, or nil.
//
// A module has no superclass of its own, so for module owners the search
// finds the module's iclass in the ancestry of the lookup class and
// continues above it.
func (s *State) SuperMethod(m *RMethod) *RMethod {
	var start *RClass
	if m.owner.Type() == TTModule {
		k := m.klass.super
		for k != nil && !(k.Type() == TTIClass && k.module == m.owner) {
			k = k.super
		}
		if k == nil {
			return nil
		}
		start = k.super
	} else {
		start = m.owner.super
	}
	if start == nil {
		return nil
	}
	res, ok := s.SearchMethod(start, m.name)
	if !ok {
		return nil
	}
	owner := res.Class.Owner()
	klass := res.Class
	if owner.Type() == TTModule {
		klass = m.klass
	}
	return s.newMethod(m.IsBound(), owner, m.recv, m.name, res.Proc(s), klass)
}

// MethodEqual reports whether two method objects denote the same method
// on the same receiver.
func (s *State) MethodEqual(a, b *RMethod) bool {
	if a == nil || b == nil || a.class != b.class {
		return false
	}
	if a.owner != b.owner || a.recv != b.recv {
		return false
	}
	if a.proc == nil && b.proc == nil {
		return a.name == b.name
	}
	if a.proc == nil || b.proc == nil {
		return false
	}
	return a.proc.Equal(b.proc)
}

// InspectMethod renders m as "#<Method: Owner#name>" and its variants.
func (s *State) InspectMethod(c *Context, m *RMethod) (string, error) {
	var b strings.Builder
	b.WriteString("#<")
	b.WriteString(s.RealClassOf(m.Value()).Name())
	b.WriteString(": ")
	name := s.symbols.Name(m.name)

	if m.owner.Type() == TTSClass && m.recv != Undef && m.recv != Nil {
		str, err := s.ToS(c, m.recv)
		if err != nil {
			return "", err
		}
		b.WriteString(str)
		b.WriteByte('.')
		b.WriteString(name)
	} else {
		rk := RealClass(m.klass)
		if m.owner == m.klass || m.owner == rk {
			b.WriteString(s.describeClass(m.owner))
		} else {
			b.WriteString(s.describeClass(rk))
			b.WriteByte('(')
			b.WriteString(s.describeClass(m.owner))
			b.WriteByte(')')
		}
		b.WriteByte('#')
		b.WriteString(name)
	}

	if m.proc != nil && m.proc.IsAlias() {
		_, orig := m.proc.original()
		b.WriteByte('(')
		b.WriteString(s.symbols.Name(orig))
		b.WriteByte(')')
	}
	if m.proc != nil {
		if file, line, ok := m.proc.SourceLocation(); ok {
			b.WriteByte(' ')
			b.WriteString(file)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(line))
		}
	}
	b.WriteByte('>')
	return b.String(), nil
}

// paramsValue converts a parameter listing to [[:kind, :name], ...].
func (s *State) paramsValue(params []Param) Value {
	out := make([]Value, len(params))
	for i, p := range params {
		kind := s.Sym(p.Kind)
		if p.Name == NoSymbol {
			out[i] = s.ArrayValue(kind)
		} else {
			out[i] = s.ArrayValue(kind, FromSymbol(p.Name))
		}
	}
	return s.ArrayValue(out...)
}

// sourceLocationValue returns [file, line] or nil.
func (s *State) sourceLocationValue(p *RProc) Value {
	if p == nil {
		return Nil
	}
	file, line, ok := p.SourceLocation()
	if !ok {
		return Nil
	}
	return s.ArrayValue(s.StringValue(file), FromSmallInt(int64(line)))
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initMethod() {
	for _, cls := range []*RClass{s.MethodClass, s.UnboundMethodClass} {
		meta := s.singletonClassOfClass(cls)
		if err := s.UndefMethod(meta, s.symbols.Intern("new")); err != nil {
			panic(err)
		}
		if err := s.UndefMethod(meta, s.symbols.Intern("allocate")); err != nil {
			panic(err)
		}
		s.DefineMethod(cls, "==", ArgsReq(1), methodEql)
		s.DefineMethod(cls, "eql?", ArgsReq(1), methodEql)
		s.DefineMethod(cls, "hash", ArgsNone, methodHash)
		s.DefineMethod(cls, "to_s", ArgsNone, methodToS)
		s.DefineMethod(cls, "inspect", ArgsNone, methodToS)
		s.DefineMethod(cls, "arity", ArgsNone, methodArity)
		s.DefineMethod(cls, "source_location", ArgsNone, methodSourceLocation)
		s.DefineMethod(cls, "parameters", ArgsNone, methodParameters)
		s.DefineMethod(cls, "owner", ArgsNone, methodOwner)
		s.DefineMethod(cls, "name", ArgsNone, methodName)
		s.DefineMethod(cls, "super_method", ArgsNone, methodSuperMethod)
	}

	s.DefineMethod(s.UnboundMethodClass, "bind", ArgsReq(1), unboundMethodBind)
	s.DefineMethod(s.UnboundMethodClass, "bind_call", ArgsReq(1)|ArgsRest, methodBindCall)

	s.DefineMethod(s.MethodClass, "call", ArgsAny, methodCall)
	s.DefineMethod(s.MethodClass, "[]", ArgsAny, methodCall)
	s.DefineMethod(s.MethodClass, "===", ArgsAny, methodCall)
	s.DefineMethod(s.MethodClass, "unbind", ArgsNone, methodUnbind)
	s.DefineMethod(s.MethodClass, "receiver", ArgsNone, methodReceiver)
	s.DefineMethod(s.MethodClass, "to_proc", ArgsNone, methodToProc)

	s.DefineMethod(s.KernelModule, "method", ArgsReq(1), kernelMethod)
	s.DefineMethod(s.KernelModule, "singleton_method", ArgsReq(1), kernelSingletonMethod)
	s.DefineMethod(s.ModuleClass, "instance_method", ArgsReq(1), moduleInstanceMethod)
}

func selfMethod(c *Context, self Value) (*RMethod, error) {
	m := c.s.MethodFromValue(self)
	if m == nil {
		return nil, c.s.Raisef(c.s.TypeError, "not a method object")
	}
	return m, nil
}

func methodEql(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(c.s.MethodEqual(m, c.s.MethodFromValue(args.At(0)))), nil
}

func methodHash(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	h := uint64(m.owner.id)*31 + uint64(m.recv)
	return FromSmallInt(int64(h & uint64(MaxSmallInt))), nil
}

func methodToS(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	str, err := c.s.InspectMethod(c, m)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(str), nil
}

func methodArity(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(m.Arity())), nil
}

func methodSourceLocation(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.sourceLocationValue(m.proc), nil
}

func methodParameters(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.paramsValue(m.Params()), nil
}

func methodOwner(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return m.owner.Value(), nil
}

func methodName(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSymbol(m.name), nil
}

func methodReceiver(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return m.recv, nil
}

func methodSuperMethod(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	if sm := c.s.SuperMethod(m); sm != nil {
		return sm.Value(), nil
	}
	return Nil, nil
}

func unboundMethodBind(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	bm, err := c.s.Bind(m, args.At(0))
	if err != nil {
		return Nil, err
	}
	return bm.Value(), nil
}

func methodBindCall(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.BindCall(c, m, args)
}

func methodCall(c *Context, self Value, args *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.CallMethod(c, m, Undef, args)
}

func methodUnbind(c *Context, self Value, _ *Args) (Value, error) {
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.Unbind(m).Value(), nil
}

// methodToProc wraps the method in a lambda that calls it.
func methodToProc(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	m, err := selfMethod(c, self)
	if err != nil {
		return Nil, err
	}
	spec := ArgsAny
	if m.proc != nil && m.proc.body != nil {
		spec = m.proc.body.Spec
	}
	body := &Body{
		Spec: spec,
		Fn: func(c *Context, _ Value, args *Args) (Value, error) {
			return s.CallMethod(c, m, Undef, args)
		},
	}
	if m.proc != nil && m.proc.body != nil {
		body.Locals = m.proc.body.Locals
		body.File, body.Line = m.proc.body.File, m.proc.body.Line
	}
	return s.NewLambda(body, &Env{Self: m.Value()}).Value(), nil
}

func kernelMethod(c *Context, self Value, args *Args) (Value, error) {
	name, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	m, err := c.s.MethodOf(c, self, name)
	if err != nil {
		return Nil, err
	}
	return m.Value(), nil
}

func kernelSingletonMethod(c *Context, self Value, args *Args) (Value, error) {
	name, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	m, err := c.s.SingletonMethodOf(c, self, name)
	if err != nil {
		return Nil, err
	}
	return m.Value(), nil
}

func moduleInstanceMethod(c *Context, self Value, args *Args) (Value, error) {
	mod := c.s.ClassFromValue(self)
	if mod == nil {
		return Nil, c.s.Raisef(c.s.TypeError, "not a class/module")
	}
	name, err := c.s.toSym(args.At(0))
	if err != nil {
		return Nil, err
	}
	m, err := c.s.InstanceMethod(c, mod, name)
	if err != nil {
		return Nil, err
	}
	return m.Value(), nil
}
