// Package sprintf implements Kernel#format for ember values.
//
// A format string is scanned once. Each directive collects flags, a width
// and a precision, then renders one argument through a conversion:
//
//	%[flags][width][.precision]conversion
//
// Arguments are taken sequentially (%d), by absolute index (%1$d) or by
// name from a single trailing Hash (%<name>d, %{name}); one call may use
// only one of these styles.
package sprintf

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/ember/vm"
)

// DefaultMaxSize bounds the length of a formatted result.
const DefaultMaxSize = 64 << 20

// initialSize is the starting capacity of the result buffer; it doubles
// as output grows.
const initialSize = 120

const (
	fSharp = 1 << iota
	fMinus
	fPlus
	fZero
	fSpace
	fWidth
	fPrec
	fPrec0
)

// Formatter renders format strings against a State.
type Formatter struct {
	State *vm.State

	// MaxSize is the largest result the formatter will build before failing
	// with "too big specifier". Zero means DefaultMaxSize.
	MaxSize int
}

// New returns a Formatter for s.
func New(s *vm.State) *Formatter {
	return &Formatter{State: s, MaxSize: DefaultMaxSize}
}

// Format renders format with args using a default Formatter.
func Format(s *vm.State, c *vm.Context, format string, args []vm.Value) (string, error) {
	return New(s).Format(c, format, args)
}

// Format renders format with args. Errors are *vm.Exception values.
func (f *Formatter) Format(c *vm.Context, format string, args []vm.Value) (string, error) {
	max := f.MaxSize
	if max <= 0 {
		max = DefaultMaxSize
	}
	st := &state{
		s:       f.State,
		c:       c,
		args:    args,
		size:    initialSize,
		max:     max,
		nextarg: 1,
	}
	if err := st.run(format); err != nil {
		return "", err
	}
	return string(st.buf), nil
}

// ---------------------------------------------------------------------------
// Output buffer and argument bookkeeping
// ---------------------------------------------------------------------------

type state struct {
	s    *vm.State
	c    *vm.Context
	args []vm.Value
	hash *vm.RHash

	buf       []byte
	size, max int

	// nextarg is the next sequential argument (1-based). posarg records
	// the style in use: >0 the last sequential index, -1 numbered, -2 named.
	nextarg int
	posarg  int
}

func (st *state) argError(format string, args ...any) error {
	return st.s.Raisef(st.s.ArgumentError, format, args...)
}

// grow makes room for n more bytes, doubling the nominal capacity.
func (st *state) grow(n int) error {
	for len(st.buf)+n >= st.size {
		if st.size > st.max/2 {
			return st.argError("too big specifier")
		}
		st.size *= 2
	}
	return nil
}

func (st *state) push(str string) error {
	if err := st.grow(len(str)); err != nil {
		return err
	}
	st.buf = append(st.buf, str...)
	return nil
}

func (st *state) fill(ch byte, n int) error {
	if n <= 0 {
		return nil
	}
	if err := st.grow(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		st.buf = append(st.buf, ch)
	}
	return nil
}

func (st *state) nth(n int) (vm.Value, error) {
	if n > len(st.args) {
		return vm.Nil, st.argError("too few arguments")
	}
	return st.args[n-1], nil
}

func (st *state) nextArg() (vm.Value, error) {
	switch st.posarg {
	case -1:
		return vm.Nil, st.argError("unnumbered(%d) mixed with numbered", st.nextarg)
	case -2:
		return vm.Nil, st.argError("unnumbered(%d) mixed with named", st.nextarg)
	}
	st.posarg = st.nextarg
	st.nextarg++
	return st.nth(st.posarg)
}

func (st *state) posArg(n int) (vm.Value, error) {
	switch {
	case st.posarg > 0:
		return vm.Nil, st.argError("numbered(%d) after unnumbered(%d)", n, st.posarg)
	case st.posarg == -2:
		return vm.Nil, st.argError("numbered(%d) after named", n)
	case n < 1:
		return vm.Nil, st.argError("invalid index - %d$", n)
	}
	st.posarg = -1
	return st.nth(n)
}

func (st *state) nameArg(label string) error {
	switch {
	case st.posarg > 0:
		return st.argError("named%s after unnumbered(%d)", label, st.posarg)
	case st.posarg == -1:
		return st.argError("named%s after numbered", label)
	}
	st.posarg = -2
	if st.hash != nil {
		return nil
	}
	if len(st.args) != 1 {
		return st.argError("one hash required")
	}
	if st.hash = st.s.HashFromValue(st.args[0]); st.hash == nil {
		return st.argError("one hash required")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

// directive is the parsed state of one %-sequence.
type directive struct {
	flags int
	width int
	prec  int
	value vm.Value // argument already selected by N$ or <name>, else Undef
	name  string
}

func (d *directive) checkFlags(st *state) error {
	if d.flags&fWidth != 0 {
		return st.argError("flag after width")
	}
	if d.flags&fPrec0 != 0 {
		return st.argError("flag after precision")
	}
	return nil
}

func (d *directive) checkWidth(st *state) error {
	if d.flags&fWidth != 0 {
		return st.argError("width given twice")
	}
	if d.flags&fPrec0 != 0 {
		return st.argError("width after precision")
	}
	return nil
}

func flagBit(ch byte) int {
	switch ch {
	case ' ':
		return fSpace
	case '#':
		return fSharp
	case '+':
		return fPlus
	case '-':
		return fMinus
	}
	return fZero
}

func (st *state) arg(d *directive) (vm.Value, error) {
	if d.value != vm.Undef {
		return d.value, nil
	}
	return st.nextArg()
}

func (st *state) run(format string) error {
	end := len(format)
	for p := 0; p < end; p++ {
		t := strings.IndexByte(format[p:], '%')
		if t < 0 {
			return st.push(format[p:])
		}
		t += p
		if t+1 == end {
			return st.argError("%s", "incomplete format specifier; use %% (double %) instead")
		}
		if err := st.push(format[p:t]); err != nil {
			return err
		}
		var err error
		if p, err = st.directive(format, t+1); err != nil {
			return err
		}
	}
	return nil
}

// num reads a decimal number at p; no digits reads as zero.
func (st *state) num(format string, p int, what string) (int, int, error) {
	n := 0
	for p < len(format) && format[p] >= '0' && format[p] <= '9' {
		n = n*10 + int(format[p]-'0')
		if n > math.MaxInt32 {
			return 0, p, st.argError("%s too big", what)
		}
		p++
	}
	return n, p, nil
}

// aster resolves a '*' at p to an integer argument, either the next one or
// the one named by a following N$. It returns the index of the last byte
// consumed.
func (st *state) aster(format string, p int, what string) (int, int, error) {
	n, q, err := st.num(format, p+1, what)
	if err != nil {
		return 0, p, err
	}
	var v vm.Value
	if q < len(format) && format[q] == '$' {
		v, err = st.posArg(n)
		p = q
	} else {
		v, err = st.nextArg()
	}
	if err != nil {
		return 0, p, err
	}
	i, err := st.s.ToInt(v)
	if err != nil {
		return 0, p, err
	}
	if i > math.MaxInt32 || i < math.MinInt32 {
		return 0, p, st.argError("%s too big", what)
	}
	return int(i), p, nil
}

// directive parses and renders one %-sequence starting just after the
// '%'. It returns the index of the last byte consumed.
func (st *state) directive(format string, p int) (int, error) {
	d := &directive{width: -1, prec: -1, value: vm.Undef}
	for {
		var ch byte
		if p < len(format) {
			ch = format[p]
		}
		switch ch {
		case ' ', '#', '+', '-', '0':
			if err := d.checkFlags(st); err != nil {
				return p, err
			}
			d.flags |= flagBit(ch)
			p++

		case '1', '2', '3', '4', '5', '6', '7', '8', '9':
			n, q, err := st.num(format, p, "width")
			if err != nil {
				return p, err
			}
			p = q
			if p < len(format) && format[p] == '$' {
				if d.value != vm.Undef {
					return p, st.argError("value given twice - %d$", n)
				}
				if d.value, err = st.posArg(n); err != nil {
					return p, err
				}
				p++
				continue
			}
			if err := d.checkWidth(st); err != nil {
				return p, err
			}
			d.width = n
			d.flags |= fWidth

		case '<', '{':
			term := byte('>')
			if ch == '{' {
				term = '}'
			}
			start := p
			for p < len(format) && format[p] != term {
				p++
			}
			if p == len(format) {
				return p, st.argError("malformed name - unmatched parenthesis")
			}
			label := format[start : p+1]
			if d.name != "" {
				return p, st.argError("name%s after <%s>", label, d.name)
			}
			if err := st.nameArg(label); err != nil {
				return p, err
			}
			d.name = format[start+1 : p]
			found := false
			if sym, ok := st.s.Symbols().Lookup(d.name); ok {
				d.value, found = st.s.HashGet(st.hash, vm.FromSymbol(sym))
			}
			if !found {
				return p, st.s.Raisef(st.s.KeyError, "key%s not found", label)
			}
			if term == '}' {
				return p, st.formatString(d, 's')
			}
			p++

		case '*':
			if err := d.checkWidth(st); err != nil {
				return p, err
			}
			d.flags |= fWidth
			w, q, err := st.aster(format, p, "width")
			if err != nil {
				return q, err
			}
			if w > math.MaxInt16 || w < math.MinInt16 {
				return q, st.argError("width too big")
			}
			if w < 0 {
				d.flags |= fMinus
				w = -w
			}
			d.width = w
			p = q + 1

		case '.':
			if d.flags&fPrec0 != 0 {
				return p, st.argError("precision given twice")
			}
			d.flags |= fPrec | fPrec0
			p++
			if p < len(format) && format[p] == '*' {
				prec, q, err := st.aster(format, p, "precision")
				if err != nil {
					return q, err
				}
				if prec < 0 {
					d.flags &^= fPrec
				}
				d.prec = prec
				p = q + 1
				continue
			}
			n, q, err := st.num(format, p, "precision")
			if err != nil {
				return p, err
			}
			d.prec, p = n, q

		case '\n', 0:
			// a '%' before a newline or the end of input is literal
			if d.flags != 0 {
				return p, st.argError("invalid format character - %%")
			}
			return p - 1, st.push("%")

		case '%':
			if d.flags != 0 {
				return p, st.argError("invalid format character - %%")
			}
			return p, st.push("%")

		case 'c':
			return p, st.formatChar(d)

		case 's', 'p':
			return p, st.formatString(d, ch)

		case 'd', 'i', 'u', 'o', 'x', 'X', 'b', 'B':
			return p, st.formatInt(d, ch)

		case 'f', 'e', 'E', 'g', 'G':
			return p, st.formatFloat(d, ch)

		default:
			return p, st.argError("malformed format string - %%%c", ch)
		}
	}
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func (st *state) pad(d *directive, str string, n int) error {
	if d.flags&fWidth == 0 || d.width <= n {
		return st.push(str)
	}
	if d.flags&fMinus != 0 {
		if err := st.push(str); err != nil {
			return err
		}
		return st.fill(' ', d.width-n)
	}
	if err := st.fill(' ', d.width-n); err != nil {
		return err
	}
	return st.push(str)
}

func (st *state) formatChar(d *directive) error {
	v, err := st.arg(d)
	if err != nil {
		return err
	}
	var str string
	switch {
	case st.s.StringFromValue(v) != nil:
		str = st.s.StringFromValue(v).String()
		if utf8.RuneCountInString(str) != 1 {
			return st.argError("%%c requires a character")
		}
	case v.IsSmallInt():
		n := v.SmallInt()
		if n < 0 || n > unicode.MaxRune {
			return st.s.Raisef(st.s.RangeError, "%d out of char range", n)
		}
		str = string(rune(n))
	default:
		return st.argError("invalid character")
	}
	return st.pad(d, str, 1)
}

// formatString renders %s (to_s) and %p (inspect). Precision truncates to
// that many characters; width counts characters.
func (st *state) formatString(d *directive, conv byte) error {
	v, err := st.arg(d)
	if err != nil {
		return err
	}
	var str string
	if conv == 'p' {
		str, err = st.s.Inspect(st.c, v)
	} else {
		str, err = st.s.ToS(st.c, v)
	}
	if err != nil {
		return err
	}
	n := utf8.RuneCountInString(str)
	if d.flags&fPrec != 0 && d.prec < n {
		str = truncateRunes(str, d.prec)
		n = d.prec
	}
	return st.pad(d, str, n)
}

func truncateRunes(str string, n int) string {
	i := 0
	for pos := range str {
		if i == n {
			return str[:pos]
		}
		i++
	}
	return str
}

// toInteger converts an argument of an integer conversion. Floats
// truncate and Strings parse with Integer() rules.
func (st *state) toInteger(v vm.Value) (int64, error) {
	if r := st.s.StringFromValue(v); r != nil {
		n, err := strconv.ParseInt(strings.TrimSpace(r.String()), 0, 64)
		if err != nil {
			return 0, st.argError("invalid value for Integer(): %s", vm.QuoteString(r.String()))
		}
		return n, nil
	}
	return st.s.ToInt(v)
}

const digitChars = "0123456789abcdefghijklmnopqrstuvwxyz"

// complement renders the digits of negative n in base 8, 16 or 2 as an
// infinitely sign-extended two's complement with the leading run of the
// highest digit removed, so -123 in hex is "85" (from ...fff85).
func complement(n int64, base int, fc byte) string {
	shift := map[int]uint{2: 1, 8: 3, 16: 4}[base]
	mask := int64(base - 1)
	var out []byte
	for {
		out = append(out, digitChars[n&mask])
		n >>= shift
		if n == -1 {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strings.TrimLeft(string(out), string(fc))
}

func (st *state) formatInt(d *directive, conv byte) error {
	v, err := st.arg(d)
	if err != nil {
		return err
	}
	n, err := st.toInteger(v)
	if err != nil {
		return err
	}

	base, prefix := 10, ""
	switch conv {
	case 'o':
		base = 8
	case 'x', 'X':
		base = 16
	case 'b', 'B':
		base = 2
	}
	if d.flags&fSharp != 0 {
		prefix = map[byte]string{'o': "0", 'x': "0x", 'X': "0X", 'b': "0b", 'B': "0B"}[conv]
	}
	var fc byte
	switch base {
	case 16:
		fc = 'f'
	case 8:
		fc = '7'
	case 2:
		fc = '1'
	}

	// Decimal conversions, and any conversion given an explicit sign flag,
	// print a sign and the magnitude. Others show negatives as complements.
	signed := base == 10 || d.flags&(fPlus|fSpace) != 0
	width, prec := d.width, d.prec
	var sc byte
	var digits string
	dots := false
	if signed {
		switch {
		case n < 0:
			sc = '-'
		case d.flags&fPlus != 0:
			sc = '+'
		case d.flags&fSpace != 0:
			sc = ' '
		}
		if sc != 0 {
			width--
		}
		mag := uint64(n)
		if n < 0 {
			mag = -mag
		}
		digits = strconv.FormatUint(mag, base)
	} else if n < 0 {
		digits = complement(n, base, fc)
		dots = true
	} else {
		digits = strconv.FormatInt(n, base)
	}
	if conv == 'X' {
		digits = strings.ToUpper(digits)
		fc = 'F'
	}

	if prefix == "0" {
		switch {
		case dots:
			prefix = ""
		case digits == "0":
			digits = ""
			if d.flags&fPrec != 0 {
				prec--
			}
		case d.flags&fPrec != 0 && prec > len(digits):
			prefix = ""
		}
	} else if digits == "0" {
		prefix = ""
	}
	width -= len(prefix)

	if d.flags&(fZero|fMinus|fPrec) == fZero {
		prec, width = width, 0
	} else {
		if prec < len(digits) {
			if prefix == "" && prec == 0 && digits == "0" {
				digits = ""
			}
			prec = len(digits)
		}
		width -= prec
	}

	if d.flags&fMinus == 0 && width > 0 {
		if err := st.fill(' ', width); err != nil {
			return err
		}
		width = 0
	}
	if sc != 0 {
		if err := st.push(string(sc)); err != nil {
			return err
		}
	}
	if err := st.push(prefix); err != nil {
		return err
	}
	if dots {
		prec -= 2
		width -= 2
		if err := st.push(".."); err != nil {
			return err
		}
		if digits == "" || digits[0] != fc {
			if err := st.fill(fc, 1); err != nil {
				return err
			}
			prec--
			width--
		}
	}
	if prec > len(digits) {
		padc := byte('0')
		if dots {
			padc = fc
		}
		if err := st.fill(padc, prec-len(digits)); err != nil {
			return err
		}
	}
	if err := st.push(digits); err != nil {
		return err
	}
	return st.fill(' ', width)
}

func (st *state) formatFloat(d *directive, conv byte) error {
	v, err := st.arg(d)
	if err != nil {
		return err
	}
	f, err := st.s.ToFloat(v)
	if err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		str := nonFinite(d.flags, f)
		return st.pad(d, str, len(str))
	}

	prec := 6
	if d.flags&fPrec != 0 {
		prec = d.prec
	}
	need := prec + 20
	if conv != 'e' && conv != 'E' {
		if _, exp := math.Frexp(f); exp > 0 {
			need += exp*146/485 + 1
		}
	}
	if d.flags&fWidth != 0 && need < d.width+20 {
		need = d.width + 20
	}
	if err := st.grow(need); err != nil {
		return err
	}
	out := renderFloat(conv, d.flags, d.width, prec, f)
	if len(out) >= need {
		return st.s.Raisef(st.s.RuntimeError, "formatting error")
	}
	return st.push(out)
}
