package vm

import "fmt"

// ---------------------------------------------------------------------------
// ArgSpec: packed parameter shape
// ---------------------------------------------------------------------------

// ArgSpec packs a callable's declared parameter shape into 23 bits:
//
//	req:5 | opt:5 | rest:1 | post:5 | key:5 | kdict:1 | block:1
//
// Specs combine with |, e.g. ArgsReq(1) | ArgsOpt(2) | ArgsBlock.
type ArgSpec uint32

const (
	specReqShift  = 18
	specOptShift  = 13
	specRestShift = 12
	specPostShift = 7
	specKeyShift  = 2
	specKDictBit  = 1 << 1
	specBlockBit  = 1
	specFieldMask = 0x1f
)

// Common specs.
const (
	ArgsNone  ArgSpec = 0
	ArgsRest  ArgSpec = 1 << specRestShift
	ArgsAny           = ArgsRest
	ArgsBlock ArgSpec = specBlockBit
	ArgsKDict ArgSpec = specKDictBit
)

// ArgsReq declares n required leading parameters.
func ArgsReq(n int) ArgSpec { return ArgSpec(n&specFieldMask) << specReqShift }

// ArgsOpt declares n optional parameters.
func ArgsOpt(n int) ArgSpec { return ArgSpec(n&specFieldMask) << specOptShift }

// ArgsArg declares req required and opt optional parameters.
func ArgsArg(req, opt int) ArgSpec { return ArgsReq(req) | ArgsOpt(opt) }

// ArgsPost declares n required parameters after a rest parameter.
func ArgsPost(n int) ArgSpec { return ArgSpec(n&specFieldMask) << specPostShift }

// ArgsKey declares n keyword parameters.
func ArgsKey(n int) ArgSpec { return ArgSpec(n&specFieldMask) << specKeyShift }

func (a ArgSpec) Req() int    { return int(a>>specReqShift) & specFieldMask }
func (a ArgSpec) Opt() int    { return int(a>>specOptShift) & specFieldMask }
func (a ArgSpec) Rest() bool  { return a&ArgsRest != 0 }
func (a ArgSpec) Post() int   { return int(a>>specPostShift) & specFieldMask }
func (a ArgSpec) Key() int    { return int(a>>specKeyShift) & specFieldMask }
func (a ArgSpec) KDict() bool { return a&specKDictBit != 0 }
func (a ArgSpec) Block() bool { return a&specBlockBit != 0 }

// Arity follows the Ruby convention: the exact count of required
// parameters, or -(required+1) when the count is variable. Optional
// parameters only make a non-strict proc variable when they come with rest.
func (a ArgSpec) Arity(strict bool) int {
	req := a.Req() + a.Post()
	if a.Rest() || (strict && a.Opt() > 0) || a.Key() > 0 || a.KDict() {
		return -(req + 1)
	}
	return req
}

// accepts reports whether n positional arguments satisfy the spec.
func (a ArgSpec) accepts(n int) bool {
	req := a.Req() + a.Post()
	if n < req {
		return false
	}
	return a.Rest() || n <= req+a.Opt()
}

func (a ArgSpec) expectation() string {
	req := a.Req() + a.Post()
	switch {
	case a.Rest():
		return fmt.Sprintf("%d+", req)
	case a.Opt() > 0:
		return fmt.Sprintf("%d..%d", req, req+a.Opt())
	default:
		return fmt.Sprintf("%d", req)
	}
}

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

// NativeFunc implements a method in Go. Natives read the current frame
// through c and return explicit errors.
type NativeFunc func(c *Context, self Value, args *Args) (Value, error)

// Native is a named Go function registered as a method. Natives are
// compared by pointer identity.
type Native struct {
	Name string
	Fn   NativeFunc
	Spec ArgSpec
}

// Body is the executable part of a script-defined proc: its parameter
// metadata, source position and the function that runs it. It stands in
// for compiled bytecode, which is produced outside this package.
//
// Locals lists parameter names in slot order: required, optional, rest,
// post, keyword-rest, block (always one slot, NoSymbol when absent),
// then keywords.
type Body struct {
	Spec   ArgSpec
	Locals []Symbol
	File   string
	Line   int
	Fn     func(c *Context, self Value, args *Args) (Value, error)
}

// Env is the environment captured by a closure.
type Env struct {
	Self   Value
	Locals []Value
}

// RProc is a callable heap object: a method body, a block, a lambda or a
// native function wrapped for uniform handling.
type RProc struct {
	RBasic
	native *Native
	body   *Body
	env    *Env

	// alias procs: the original proc and the name it was aliased from
	upper    *RProc
	aliasMID Symbol

	targetClass *RClass
}

func (p *RProc) mark(m *marker) {
	m.class(p.class)
	m.class(p.targetClass)
	if p.upper != nil {
		m.object(p.upper)
	}
	if p.env != nil {
		m.value(p.env.Self)
		for _, v := range p.env.Locals {
			m.value(v)
		}
	}
}

// IsNative reports whether the proc wraps a Go function.
func (p *RProc) IsNative() bool { return p.native != nil }

// IsLambda reports whether the proc checks its arguments strictly.
func (p *RProc) IsLambda() bool { return p.HasFlag(FlagProcStrict) }

// IsAlias reports whether the proc was produced by alias_method.
func (p *RProc) IsAlias() bool { return p.HasFlag(FlagProcAlias) }

// Body returns the script body, or nil for natives.
func (p *RProc) Body() *Body { return p.body }

// NativeFn returns the wrapped native, or nil.
func (p *RProc) NativeFn() *Native { return p.native }

// TargetClass returns the class the proc is defined in, if any.
func (p *RProc) TargetClass() *RClass { return p.targetClass }

// original follows alias links to the aliased proc and returns the name
// of the root method.
func (p *RProc) original() (*RProc, Symbol) {
	mid := NoSymbol
	for p.IsAlias() {
		mid = p.aliasMID
		p = p.upper
	}
	return p, mid
}

// Arity returns the Ruby arity of the proc; natives report -1.
func (p *RProc) Arity() int {
	if p.native != nil {
		return -1
	}
	if p.body == nil {
		return 0
	}
	return p.body.Spec.Arity(p.IsLambda())
}

// SourceLocation returns the defining file and line of a script proc.
func (p *RProc) SourceLocation() (string, int, bool) {
	if p.native != nil {
		return "", 0, false
	}
	if p.IsAlias() {
		p = p.upper
	}
	if p.body == nil || p.body.File == "" {
		return "", 0, false
	}
	return p.body.File, p.body.Line, true
}

// Equal reports whether two procs run the same code in the same
// environment.
func (p *RProc) Equal(q *RProc) bool {
	if p == q {
		return true
	}
	if p == nil || q == nil {
		return false
	}
	if p.native != nil || q.native != nil {
		return p.native == q.native
	}
	return p.body == q.body && p.env == q.env
}

// Param is one entry of a parameter listing.
type Param struct {
	Kind string // req, opt, rest, keyrest, block, key
	Name Symbol // NoSymbol when anonymous
}

// Params decodes the proc's declared parameters. Entries come in the order
// required, optional, rest, post-required, keywords, keyword-rest, block.
// Non-lambda procs report required parameters as optional.
func (p *RProc) Params() []Param {
	if p.native != nil {
		return []Param{{Kind: "rest"}}
	}
	if p.IsAlias() {
		p, _ = p.original()
	}
	if p.body == nil {
		return nil
	}
	spec := p.body.Spec
	req := "req"
	if !p.IsLambda() {
		req = "opt"
	}
	kinds := []struct {
		kind string
		size int
	}{
		{req, spec.Req()},
		{"opt", spec.Opt()},
		{"rest", b2i(spec.Rest())},
		{req, spec.Post()},
		{"keyrest", b2i(spec.KDict())},
		{"block", b2i(spec.Block())},
		{"key", spec.Key()},
	}
	locals := p.body.Locals
	name := func(i int) Symbol {
		if i < len(locals) {
			return locals[i]
		}
		return NoSymbol
	}

	var out []Param
	var krest, block *Param
	i := 0
	for _, k := range kinds {
		if k.kind == "block" {
			// the block slot is reserved even when the proc takes no block
			if k.size == 1 {
				block = &Param{Kind: "block", Name: name(i)}
			}
			i++
			continue
		}
		for j := 0; j < k.size; j, i = j+1, i+1 {
			prm := Param{Kind: k.kind, Name: name(i)}
			if k.kind == "keyrest" {
				krest = &prm
				continue
			}
			out = append(out, prm)
		}
	}
	if krest != nil {
		out = append(out, *krest)
	}
	if block != nil {
		out = append(out, *block)
	}
	return out
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// NewProc wraps body as a non-lambda proc closing over env.
func (s *State) NewProc(body *Body, env *Env) *RProc {
	p := &RProc{body: body, env: env}
	p.init(TTProc, s.ProcClass)
	s.heap.add(p)
	return p
}

// NewLambda wraps body as a lambda closing over env.
func (s *State) NewLambda(body *Body, env *Env) *RProc {
	p := s.NewProc(body, env)
	p.setFlag(FlagProcStrict)
	return p
}

// NewMethodProc wraps body as a method body (strict argument checks).
func (s *State) NewMethodProc(body *Body) *RProc {
	return s.NewLambda(body, nil)
}

// nativeProc wraps a native function so that callers get a uniform handle.
func (s *State) nativeProc(n *Native) *RProc {
	p := &RProc{native: n}
	p.init(TTProc, s.ProcClass)
	p.setFlag(FlagProcStrict)
	if n.Spec == ArgsNone {
		p.setFlag(FlagProcNoArg)
	}
	s.heap.add(p)
	return p
}

// Proc returns the entry as a proc, wrapping native functions on demand.
func (e MethodEntry) Proc(s *State) *RProc {
	if e.proc != nil {
		return e.proc
	}
	if e.native != nil {
		return s.nativeProc(e.native)
	}
	return nil
}

// ProcFromValue returns v as a proc, or nil.
func (s *State) ProcFromValue(v Value) *RProc {
	p, _ := s.heap.Get(v).(*RProc)
	return p
}

// inspectProc renders "#<Proc:0x.. file:line (lambda)>".
func (s *State) inspectProc(p *RProc) string {
	str := fmt.Sprintf("#<%s:0x%016x", s.describeClass(RealClass(p.class)), s.ObjectID(p.Value()))
	if p.native == nil {
		if file, line, ok := p.SourceLocation(); ok {
			str += fmt.Sprintf(" %s:%d", file, line)
		} else {
			str += " -:-"
		}
	}
	if p.IsLambda() {
		str += " (lambda)"
	}
	return str + ">"
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initProc() {
	c := s.ProcClass
	s.DefineClassMethod(c, "new", ArgsBlock, procNew)
	s.DefineMethod(c, "call", ArgsAny|ArgsBlock, procCall)
	s.DefineMethod(c, "[]", ArgsAny|ArgsBlock, procCall)
	s.DefineMethod(c, "===", ArgsAny|ArgsBlock, procCall)
	s.DefineMethod(c, "yield", ArgsAny|ArgsBlock, procCall)
	s.DefineMethod(c, "lambda?", ArgsNone, procLambdaP)
	s.DefineMethod(c, "arity", ArgsNone, procArity)
	s.DefineMethod(c, "parameters", ArgsNone, procParameters)
	s.DefineMethod(c, "source_location", ArgsNone, procSourceLocation)
	s.DefineMethod(c, "inspect", ArgsNone, procInspect)
	s.DefineMethod(c, "to_s", ArgsNone, procInspect)
	s.DefineMethod(c, "==", ArgsReq(1), procEql)
	s.DefineMethod(c, "eql?", ArgsReq(1), procEql)
	s.DefineMethod(c, "hash", ArgsNone, procHash)
	s.DefineMethod(c, "to_proc", ArgsNone, numSelf)
}

func selfProc(c *Context, self Value) (*RProc, error) {
	p := c.s.ProcFromValue(self)
	if p == nil {
		return nil, c.s.Raisef(c.s.TypeError, "not a proc")
	}
	return p, nil
}

func procNew(c *Context, _ Value, args *Args) (Value, error) {
	if c.s.ProcFromValue(args.Block) == nil {
		return Nil, c.s.Raisef(c.s.ArgumentError, "tried to create Proc object without a block")
	}
	return args.Block, nil
}

// procCall runs the proc with the self it captured.
func procCall(c *Context, self Value, args *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	recv := Nil
	if p.env != nil {
		recv = p.env.Self
	}
	return c.s.CallProc(c, p, recv, p.targetClass, c.s.symCall, args)
}

func procLambdaP(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(p.IsLambda()), nil
}

func procArity(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(p.Arity())), nil
}

func procParameters(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.paramsValue(p.Params()), nil
}

func procSourceLocation(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.sourceLocationValue(p), nil
}

func procInspect(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(c.s.inspectProc(p)), nil
}

func procEql(c *Context, self Value, args *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	q := c.s.ProcFromValue(args.At(0))
	return FromBool(q != nil && p.IsLambda() == q.IsLambda() && p.Equal(q)), nil
}

// procHash agrees with procEql: equal procs share code and environment.
func procHash(c *Context, self Value, _ *Args) (Value, error) {
	p, err := selfProc(c, self)
	if err != nil {
		return Nil, err
	}
	if p.native != nil {
		return FromSmallInt(StrHash(fmt.Sprintf("native:%p", p.native))), nil
	}
	return FromSmallInt(StrHash(fmt.Sprintf("%p/%p", p.body, p.env))), nil
}
