package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// nil, true, false and Symbol
// ---------------------------------------------------------------------------

func (s *State) undefNew(classes ...*RClass) {
	sym := s.symbols.Intern("new")
	for _, c := range classes {
		if err := s.UndefMethod(s.singletonClassOfClass(c), sym); err != nil {
			panic(err)
		}
	}
}

func (s *State) initNil() {
	s.undefNew(s.NilClass)
	c := s.NilClass
	s.DefineMethod(c, "to_s", ArgsNone, nilToS)
	s.DefineMethod(c, "inspect", ArgsNone, nilInspect)
	s.DefineMethod(c, "nil?", ArgsNone, trueFn)
	s.DefineMethod(c, "to_a", ArgsNone, nilToA)
	s.DefineMethod(c, "to_i", ArgsNone, nilToI)
	s.DefineMethod(c, "&", ArgsReq(1), falseAnd)
	s.DefineMethod(c, "|", ArgsReq(1), falseOr)
}

func (s *State) initBoolean() {
	s.undefNew(s.TrueClass, s.FalseClass)
	t := s.TrueClass
	s.DefineMethod(t, "to_s", ArgsNone, boolToS)
	s.DefineMethod(t, "inspect", ArgsNone, boolToS)
	s.DefineMethod(t, "&", ArgsReq(1), trueAnd)
	s.DefineMethod(t, "|", ArgsReq(1), trueFn)
	s.DefineMethod(t, "^", ArgsReq(1), trueXor)

	f := s.FalseClass
	s.DefineMethod(f, "to_s", ArgsNone, boolToS)
	s.DefineMethod(f, "inspect", ArgsNone, boolToS)
	s.DefineMethod(f, "&", ArgsReq(1), falseAnd)
	s.DefineMethod(f, "|", ArgsReq(1), falseOr)
	s.DefineMethod(f, "^", ArgsReq(1), falseOr)
}

func nilToS(c *Context, _ Value, _ *Args) (Value, error) { return c.s.StringValue(""), nil }

func nilInspect(c *Context, _ Value, _ *Args) (Value, error) { return c.s.StringValue("nil"), nil }

func nilToA(c *Context, _ Value, _ *Args) (Value, error) { return c.s.ArrayValue(), nil }

func nilToI(_ *Context, _ Value, _ *Args) (Value, error) { return FromSmallInt(0), nil }

func trueFn(_ *Context, _ Value, _ *Args) (Value, error) { return True, nil }

func boolToS(c *Context, self Value, _ *Args) (Value, error) {
	if self == True {
		return c.s.StringValue("true"), nil
	}
	return c.s.StringValue("false"), nil
}

func trueAnd(_ *Context, _ Value, args *Args) (Value, error) {
	return FromBool(args.At(0).IsTruthy()), nil
}

func trueXor(_ *Context, _ Value, args *Args) (Value, error) {
	return FromBool(args.At(0).IsFalsy()), nil
}

func falseAnd(_ *Context, _ Value, _ *Args) (Value, error) { return False, nil }

func falseOr(_ *Context, _ Value, args *Args) (Value, error) {
	return FromBool(args.At(0).IsTruthy()), nil
}

// ---------------------------------------------------------------------------
// Symbol
// ---------------------------------------------------------------------------

// isPlainSymbol reports whether name is an identifier, optionally ending
// in ? or !, so that it can be written bare as :name or name: without
// quoting.
func isPlainSymbol(name string) bool {
	if name == "" {
		return false
	}
	if c := name[0]; c >= '0' && c <= '9' {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c == '?' || c == '!') && i == len(name)-1 && i > 0 {
			return true
		}
		if !isIdentChar(c) {
			return false
		}
	}
	return true
}

var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "===": true, "!=": true, "<=>": true, "<": true, "<=": true,
	">": true, ">=": true, "=~": true, "!~": true, "!": true, "~": true,
	"<<": true, ">>": true, "&": true, "|": true, "^": true,
	"[]": true, "[]=": true, "+@": true, "-@": true,
}

// symbolLiteral renders :name, quoting the name when it is not a plain
// identifier, setter, operator or variable name.
func symbolLiteral(name string) string {
	switch {
	case isPlainSymbol(name), operatorSymbols[name]:
		return ":" + name
	case len(name) > 1 && name[len(name)-1] == '=' && isPlainSymbol(name[:len(name)-1]) &&
		name[len(name)-2] != '?' && name[len(name)-2] != '!':
		return ":" + name
	case len(name) > 2 && name[:2] == "@@" && isPlainSymbol(name[2:]):
		return ":" + name
	case len(name) > 1 && (name[0] == '@' || name[0] == '$') && isPlainSymbol(name[1:]):
		return ":" + name
	}
	return ":" + QuoteString(name)
}

func (s *State) initSymbol() {
	s.undefNew(s.SymbolClass)
	if err := s.IncludeModule(s.SymbolClass, s.ComparableModule); err != nil {
		panic(err)
	}
	c := s.SymbolClass
	s.DefineMethod(c, "to_s", ArgsNone, symToS)
	s.DefineMethod(c, "id2name", ArgsNone, symToS)
	s.DefineMethod(c, "name", ArgsNone, symToS)
	s.DefineMethod(c, "to_sym", ArgsNone, numSelf)
	s.DefineMethod(c, "inspect", ArgsNone, symInspect)
	s.DefineMethod(c, "length", ArgsNone, symLength)
	s.DefineMethod(c, "size", ArgsNone, symLength)
	s.DefineMethod(c, "==", ArgsReq(1), kernelIdentical)
	s.DefineMethod(c, "<=>", ArgsReq(1), symCmp)
	s.DefineMethod(c, "to_proc", ArgsNone, symToProc)
}

func symToS(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.StringValue(c.s.symbols.Name(self.Symbol())), nil
}

func symInspect(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.StringValue(symbolLiteral(c.s.symbols.Name(self.Symbol()))), nil
}

func symLength(c *Context, self Value, _ *Args) (Value, error) {
	return FromSmallInt(int64(utf8.RuneCountInString(c.s.symbols.Name(self.Symbol())))), nil
}

func symCmp(c *Context, self Value, args *Args) (Value, error) {
	o := args.At(0)
	if !o.IsSymbol() {
		return Nil, nil
	}
	a, b := c.s.symbols.Name(self.Symbol()), c.s.symbols.Name(o.Symbol())
	switch {
	case a < b:
		return FromSmallInt(-1), nil
	case a > b:
		return FromSmallInt(1), nil
	}
	return FromSmallInt(0), nil
}

// symToProc answers a lambda sending the symbol to its first argument.
func symToProc(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	mid := self.Symbol()
	body := &Body{
		Spec: ArgsReq(1) | ArgsRest,
		Fn: func(c *Context, _ Value, args *Args) (Value, error) {
			recv, err := args.Shift()
			if err != nil {
				return Nil, err
			}
			return s.PublicSend(c, recv, mid, args)
		},
	}
	return s.NewLambda(body, &Env{Self: self}).Value(), nil
}
