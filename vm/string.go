package vm

import (
	"hash/fnv"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// RString
// ---------------------------------------------------------------------------

// RString is a mutable byte string.
type RString struct {
	RBasic
	str string
}

func (r *RString) mark(m *marker) { m.class(r.class) }

func (r *RString) String() string { return r.str }

// Len returns the length in bytes.
func (r *RString) Len() int { return len(r.str) }

// NewString allocates a String holding str.
func (s *State) NewString(str string) *RString {
	r := &RString{str: str}
	r.init(TTString, s.StringClass)
	s.heap.add(r)
	return r
}

// StringValue allocates a String and returns its Value.
func (s *State) StringValue(str string) Value {
	return s.NewString(str).Value()
}

// StringFromValue returns v as a String, or nil.
func (s *State) StringFromValue(v Value) *RString {
	r, _ := s.heap.Get(v).(*RString)
	return r
}

// SetString replaces the contents of r.
func (s *State) SetString(r *RString, str string) error {
	if err := s.checkFrozen(r); err != nil {
		return err
	}
	r.str = str
	return nil
}

// StrHash hashes string contents with FNV-1a.
func StrHash(str string) int64 {
	h := fnv.New64a()
	h.Write([]byte(str))
	return int64(h.Sum64() & uint64(MaxSmallInt))
}

// QuoteString renders str the way String#inspect does.
func QuoteString(str string) string {
	var b strings.Builder
	b.Grow(len(str) + 2)
	b.WriteByte('"')
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`\x`)
			b.WriteString(strings.ToUpper(strconv.FormatInt(int64(str[i])|0x100, 16)[1:]))
			i++
			continue
		}
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case '\b':
			b.WriteString(`\b`)
		case '\a':
			b.WriteString(`\a`)
		case 0x1b:
			b.WriteString(`\e`)
		case '#':
			// escape interpolation openers
			if i+1 < len(str) && (str[i+1] == '{' || str[i+1] == '$' || str[i+1] == '@') {
				b.WriteString(`\#`)
			} else {
				b.WriteByte('#')
			}
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\x`)
				b.WriteString(strings.ToUpper(strconv.FormatInt(int64(r)|0x100, 16)[1:]))
			} else {
				b.WriteString(str[i : i+size])
			}
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initString() {
	c := s.StringClass
	if err := s.IncludeModule(c, s.ComparableModule); err != nil {
		panic(err)
	}
	s.DefinePrivateMethod(c, "initialize", ArgsOpt(1), strInitialize)
	s.DefinePrivateMethod(c, "initialize_copy", ArgsReq(1), strInitializeCopy)
	s.DefineMethod(c, "to_s", ArgsNone, strToS)
	s.DefineMethod(c, "to_str", ArgsNone, strToS)
	s.DefineMethod(c, "inspect", ArgsNone, strInspect)
	s.DefineMethod(c, "==", ArgsReq(1), strEq)
	s.DefineMethod(c, "eql?", ArgsReq(1), strEq)
	s.DefineMethod(c, "hash", ArgsNone, strHash)
	s.DefineMethod(c, "<=>", ArgsReq(1), strCmp)
	s.DefineMethod(c, "+", ArgsReq(1), strPlus)
	s.DefineMethod(c, "*", ArgsReq(1), strTimes)
	s.DefineMethod(c, "<<", ArgsReq(1), strConcat)
	s.DefineMethod(c, "concat", ArgsReq(1), strConcat)
	s.DefineMethod(c, "length", ArgsNone, strLength)
	s.DefineMethod(c, "size", ArgsNone, strLength)
	s.DefineMethod(c, "bytesize", ArgsNone, strBytesize)
	s.DefineMethod(c, "empty?", ArgsNone, strEmpty)
	s.DefineMethod(c, "to_sym", ArgsNone, strToSym)
	s.DefineMethod(c, "intern", ArgsNone, strToSym)
	s.DefineMethod(c, "to_i", ArgsNone, strToI)
	s.DefineMethod(c, "upcase", ArgsNone, strUpcase)
	s.DefineMethod(c, "downcase", ArgsNone, strDowncase)
}

func selfString(c *Context, self Value) (*RString, error) {
	r := c.s.StringFromValue(self)
	if r == nil {
		return nil, c.s.Raisef(c.s.TypeError, "expected String")
	}
	return r, nil
}

// argString converts a String argument, failing with TypeError otherwise.
func (s *State) argString(v Value) (string, error) {
	if r := s.StringFromValue(v); r != nil {
		return r.str, nil
	}
	return "", s.Raisef(s.TypeError, "no implicit conversion of %s into String", s.TypeName(v))
}

func strInitialize(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	if args.Len() == 0 {
		return self, nil
	}
	str, err := c.s.argString(args.At(0))
	if err != nil {
		return Nil, err
	}
	return self, c.s.SetString(r, str)
}

func strInitializeCopy(c *Context, self Value, args *Args) (Value, error) {
	return strInitialize(c, self, args)
}

func strToS(c *Context, self Value, _ *Args) (Value, error) {
	return self, nil
}

func strInspect(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(QuoteString(r.str)), nil
}

func strEq(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	o := c.s.StringFromValue(args.At(0))
	return FromBool(o != nil && o.str == r.str), nil
}

func strHash(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(StrHash(r.str)), nil
}

func strCmp(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	o := c.s.StringFromValue(args.At(0))
	if o == nil {
		return Nil, nil
	}
	return FromSmallInt(int64(strings.Compare(r.str, o.str))), nil
}

func strPlus(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	o, err := c.s.argString(args.At(0))
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(r.str + o), nil
}

func strTimes(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	n, err := c.s.ToInt(args.At(0))
	if err != nil {
		return Nil, err
	}
	if n < 0 {
		return Nil, c.s.Raisef(c.s.ArgumentError, "negative argument")
	}
	return c.s.StringValue(strings.Repeat(r.str, int(n))), nil
}

func strConcat(c *Context, self Value, args *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	o, err := c.s.argString(args.At(0))
	if err != nil {
		return Nil, err
	}
	return self, c.s.SetString(r, r.str+o)
}

func strLength(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(utf8.RuneCountInString(r.str))), nil
}

func strBytesize(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return FromSmallInt(int64(len(r.str))), nil
}

func strEmpty(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return FromBool(r.str == ""), nil
}

func strToSym(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.Sym(r.str), nil
}

func strToI(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	str := strings.TrimSpace(r.str)
	end := 0
	for end < len(str) && (str[end] >= '0' && str[end] <= '9' || (end == 0 && (str[0] == '-' || str[0] == '+'))) {
		end++
	}
	n, perr := strconv.ParseInt(str[:end], 10, 64)
	if perr != nil {
		return FromSmallInt(0), nil
	}
	return FromSmallInt(n), nil
}

func strUpcase(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(strings.ToUpper(r.str)), nil
}

func strDowncase(c *Context, self Value, _ *Args) (Value, error) {
	r, err := selfString(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.StringValue(strings.ToLower(r.str)), nil
}
