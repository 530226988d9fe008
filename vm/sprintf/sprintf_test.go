package sprintf

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/ember/vm"
)

func hashOf(s *vm.State, pairs ...any) vm.Value {
	h := s.NewHash()
	for i := 0; i < len(pairs); i += 2 {
		s.HashSet(h, s.Sym(pairs[i].(string)), pairs[i+1].(vm.Value))
	}
	return h.Value()
}

func formatOK(t *testing.T, s *vm.State, format string, args ...vm.Value) string {
	t.Helper()
	out, err := Format(s, nil, format, args)
	if err != nil {
		t.Fatalf("Format(%q): unexpected error: %v", format, err)
	}
	return out
}

func formatErr(t *testing.T, s *vm.State, cls *vm.RClass, format string, args ...vm.Value) string {
	t.Helper()
	_, err := Format(s, nil, format, args)
	if err == nil {
		t.Fatalf("Format(%q): expected %s, got no error", format, cls.Name())
	}
	exc, ok := vm.AsException(err)
	if !ok || exc.Class != cls {
		t.Fatalf("Format(%q): error = %v, want %s", format, err, cls.Name())
	}
	return exc.Message
}

func TestFormat(t *testing.T) {
	s := vm.NewState()
	i := vm.FromSmallInt
	f := vm.FromFloat64
	str := s.StringValue
	tests := []struct {
		format string
		args   []vm.Value
		want   string
	}{
		{"plain text", nil, "plain text"},
		{"", nil, ""},
		{"%d %04x", []vm.Value{i(123), i(123)}, "123 007b"},
		{"%08b '%4s'", []vm.Value{i(123), i(123)}, "01111011 ' 123'"},
		{"%1$*2$s %2$d %1$s", []vm.Value{str("hello"), i(8)}, "   hello 8 hello"},
		{"%1$*2$s %2$d", []vm.Value{str("hello"), i(-8)}, "hello    -8"},
		{"%+g:% g:%-g", []vm.Value{f(1.23), f(1.23), f(1.23)}, "+1.23: 1.23:1.23"},
		{"%u", []vm.Value{i(-123)}, "-123"},
		{"%s and %p", []vm.Value{str("str"), str("str")}, `str and "str"`},
		{"%p", []vm.Value{vm.Nil}, "nil"},
		{"100%%", nil, "100%"},
		{"%s%%", []vm.Value{str("a")}, "a%"},

		// signs and widths
		{"%d", []vm.Value{i(123)}, "123"},
		{"%+d", []vm.Value{i(123)}, "+123"},
		{"% d", []vm.Value{i(123)}, " 123"},
		{"%20d", []vm.Value{i(123)}, "                 123"},
		{"%+20d", []vm.Value{i(123)}, "                +123"},
		{"%020d", []vm.Value{i(123)}, "00000000000000000123"},
		{"%+020d", []vm.Value{i(123)}, "+0000000000000000123"},
		{"% 020d", []vm.Value{i(123)}, " 0000000000000000123"},
		{"%-20d", []vm.Value{i(123)}, "123                 "},
		{"%-+20d", []vm.Value{i(123)}, "+123                "},
		{"%- 20d", []vm.Value{i(123)}, " 123                "},

		// octal, hex and binary
		{"%o", []vm.Value{i(123)}, "173"},
		{"%#o", []vm.Value{i(123)}, "0173"},
		{"%+o", []vm.Value{i(-123)}, "-173"},
		{"%o", []vm.Value{i(-123)}, "..7605"},
		{"%#o", []vm.Value{i(-123)}, "..7605"},
		{"%x", []vm.Value{i(123)}, "7b"},
		{"%#x", []vm.Value{i(123)}, "0x7b"},
		{"%+x", []vm.Value{i(-123)}, "-7b"},
		{"%x", []vm.Value{i(-123)}, "..f85"},
		{"%#x", []vm.Value{i(-123)}, "0x..f85"},
		{"%#x", []vm.Value{i(0)}, "0"},
		{"%x", []vm.Value{i(-1)}, "..f"},
		{"%x", []vm.Value{i(-16)}, "..f0"},
		{"%X", []vm.Value{i(123)}, "7B"},
		{"%#X", []vm.Value{i(123)}, "0X7B"},
		{"%X", []vm.Value{i(-123)}, "..F85"},
		{"%b", []vm.Value{i(123)}, "1111011"},
		{"%#b", []vm.Value{i(123)}, "0b1111011"},
		{"%+b", []vm.Value{i(-123)}, "-1111011"},
		{"%b", []vm.Value{i(-123)}, "..10000101"},
		{"%#b", []vm.Value{i(-123)}, "0b..10000101"},
		{"%#b", []vm.Value{i(0)}, "0"},
		{"%b", []vm.Value{i(-11)}, "..10101"},
		{"%B", []vm.Value{i(123)}, "1111011"},
		{"%#B", []vm.Value{i(123)}, "0B1111011"},
		{"%020x", []vm.Value{i(-123)}, "..ffffffffffffffff85"},
		{"%-8x|", []vm.Value{i(-123)}, "..f85   |"},

		// integer precision
		{"%20.8d", []vm.Value{i(123)}, "            00000123"},
		{"%20.8o", []vm.Value{i(123)}, "            00000173"},
		{"%20.8x", []vm.Value{i(123)}, "            0000007b"},
		{"%20.8b", []vm.Value{i(123)}, "            01111011"},
		{"%20.8d", []vm.Value{i(-123)}, "           -00000123"},
		{"%20.8o", []vm.Value{i(-123)}, "            ..777605"},
		{"%20.8x", []vm.Value{i(-123)}, "            ..ffff85"},
		{"%20.8b", []vm.Value{i(-11)}, "            ..110101"},
		{"%#20.8d", []vm.Value{i(123)}, "            00000123"},
		{"%#20.8o", []vm.Value{i(123)}, "            00000173"},
		{"%#20.8x", []vm.Value{i(123)}, "          0x0000007b"},
		{"%#20.8b", []vm.Value{i(123)}, "          0b01111011"},
		{"%#20.8d", []vm.Value{i(-123)}, "           -00000123"},
		{"%#20.8o", []vm.Value{i(-123)}, "            ..777605"},
		{"%#20.8x", []vm.Value{i(-123)}, "          0x..ffff85"},
		{"%#20.8b", []vm.Value{i(-11)}, "          0b..110101"},
		{"%.3d", []vm.Value{i(7)}, "007"},
		{"%.0d", []vm.Value{i(0)}, ""},
		{"%#.3o", []vm.Value{i(8)}, "010"},

		// integer conversion of other values
		{"%d", []vm.Value{f(3.99)}, "3"},
		{"%d", []vm.Value{f(-3.99)}, "-3"},
		{"%d", []vm.Value{str("0x1f")}, "31"},
		{"%x", []vm.Value{str("255")}, "ff"},

		// floats
		{"%f", []vm.Value{i(2)}, "2.000000"},
		{"%.0e", []vm.Value{i(1)}, "1e+00"},
		{"%#.0e", []vm.Value{i(1)}, "1.e+00"},
		{"%.0f", []vm.Value{i(1234)}, "1234"},
		{"%#.0f", []vm.Value{i(1234)}, "1234."},
		{"%g", []vm.Value{f(123.4)}, "123.4"},
		{"%#g", []vm.Value{f(123.4)}, "123.400"},
		{"%g", []vm.Value{i(123456)}, "123456"},
		{"%#g", []vm.Value{i(123456)}, "123456."},
		{"%g", []vm.Value{i(1000000)}, "1e+06"},
		{"%G", []vm.Value{f(0.00001234)}, "1.234E-05"},
		{"%20.8e", []vm.Value{f(1234.56789)}, "      1.23456789e+03"},
		{"%20.8f", []vm.Value{f(1234.56789)}, "       1234.56789000"},
		{"%20.8g", []vm.Value{f(1234.56789)}, "           1234.5679"},
		{"%20.8g", []vm.Value{i(123456789)}, "       1.2345679e+08"},
		{"%E", []vm.Value{f(1234.5)}, "1.234500E+03"},
		{"%5.1f|%-7.2f|%07.2f", []vm.Value{f(3.14159), f(2.5), f(-1.5)}, "  3.1|2.50   |-001.50"},
		{"%+.1f", []vm.Value{f(0.25)}, "+0.2"},
		{"%.1f", []vm.Value{f(math.Copysign(0, -1))}, "-0.0"},

		// non-finite floats
		{"%f", []vm.Value{f(math.Inf(1))}, "Inf"},
		{"%f", []vm.Value{f(math.Inf(-1))}, "-Inf"},
		{"%e", []vm.Value{f(math.NaN())}, "NaN"},
		{"%+f", []vm.Value{f(math.NaN())}, "+NaN"},
		{"% f", []vm.Value{f(math.Inf(1))}, " Inf"},
		{"%8f", []vm.Value{f(math.Inf(1))}, "     Inf"},
		{"%-8f|", []vm.Value{f(math.Inf(-1))}, "-Inf    |"},
		{"%08f", []vm.Value{f(math.Inf(1))}, "     Inf"},
		{"%.2f", []vm.Value{f(math.NaN())}, "NaN"},

		// strings and characters
		{"%20.8s", []vm.Value{str("string test")}, "            string t"},
		{"%-5s|", []vm.Value{str("ab")}, "ab   |"},
		{"%5.2s|", []vm.Value{str("abc")}, "   ab|"},
		{"%.2s", []vm.Value{str("héllo")}, "hé"},
		{"%6s|", []vm.Value{str("héllo")}, " héllo|"},
		{"%s", []vm.Value{s.Sym("sym")}, "sym"},
		{"%s", []vm.Value{vm.Nil}, ""},
		{"%c%c", []vm.Value{i(65), str("z")}, "Az"},
		{"%c", []vm.Value{i(0x263A)}, "☺"},
		{"%3c", []vm.Value{str("x")}, "  x"},
		{"%-3c|", []vm.Value{str("x")}, "x  |"},

		// star width and precision
		{"%*d", []vm.Value{i(5), i(42)}, "   42"},
		{"%-*d|", []vm.Value{i(4), i(7)}, "7   |"},
		{"%*d|", []vm.Value{i(-4), i(1)}, "1   |"},
		{"%.*f", []vm.Value{i(2), f(3.14159)}, "3.14"},
		{"%.*d", []vm.Value{i(-1), i(5)}, "5"},

		// named references
		{"%<foo>d : %<bar>f", []vm.Value{hashOf(s, "foo", i(1), "bar", i(2))}, "1 : 2.000000"},
		{"%{foo}f", []vm.Value{hashOf(s, "foo", i(1))}, "1f"},
		{"%-6<n>s|", []vm.Value{hashOf(s, "n", str("ab"))}, "ab    |"},
		{"%<n>05.1f", []vm.Value{hashOf(s, "n", f(2.5))}, "002.5"},
		{"%{a}-%{a}", []vm.Value{hashOf(s, "a", str("x"))}, "x-x"},

		// a trailing '%' before a newline is literal
		{"50%\n", nil, "50%\n"},
	}
	for _, tc := range tests {
		if got := formatOK(t, s, tc.format, tc.args...); got != tc.want {
			t.Errorf("format(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}

func TestFormatErrors(t *testing.T) {
	s := vm.NewState()
	i := vm.FromSmallInt
	one := i(1)
	tests := []struct {
		format string
		args   []vm.Value
		want   string
	}{
		{"%", nil, "incomplete format specifier; use %% (double %) instead"},
		{"abc %", nil, "incomplete format specifier; use %% (double %) instead"},
		{"%z", []vm.Value{one}, "malformed format string - %z"},
		{"%-%", nil, "invalid format character - %"},
		{"%d %d", []vm.Value{one}, "too few arguments"},
		{"%d %1$d", []vm.Value{one}, "numbered(1) after unnumbered(1)"},
		{"%1$d %d", []vm.Value{one}, "unnumbered(1) mixed with numbered"},
		{"%<a>d %d", []vm.Value{hashOf(s, "a", one)}, "unnumbered(1) mixed with named"},
		{"%<a>d %1$d", []vm.Value{hashOf(s, "a", one)}, "numbered(1) after named"},
		{"%d %<a>d", []vm.Value{one}, "named<a> after unnumbered(1)"},
		{"%1$d %<a>d", []vm.Value{one}, "named<a> after numbered"},
		{"%<a><b>d", []vm.Value{hashOf(s, "a", one, "b", one)}, "name<b> after <a>"},
		{"%<a>d", []vm.Value{one}, "one hash required"},
		{"%<a>d", []vm.Value{hashOf(s, "a", one), one}, "one hash required"},
		{"%<a", []vm.Value{hashOf(s, "a", one)}, "malformed name - unmatched parenthesis"},
		{"%1$1$d", []vm.Value{one}, "value given twice - 1$"},
		{"%5-d", []vm.Value{one}, "flag after width"},
		{"%.2-d", []vm.Value{one}, "flag after precision"},
		{"%5*d", []vm.Value{one, one}, "width given twice"},
		{"%.2*d", []vm.Value{one, one}, "width after precision"},
		{"%.1.2f", []vm.Value{one}, "precision given twice"},
		{"%*d", []vm.Value{i(40000), one}, "width too big"},
		{"%c", []vm.Value{s.StringValue("ab")}, "%c requires a character"},
		{"%c", []vm.Value{vm.Nil}, "invalid character"},
		{"%d", []vm.Value{s.StringValue("abc")}, `invalid value for Integer(): "abc"`},
	}
	for _, tc := range tests {
		if got := formatErr(t, s, s.ArgumentError, tc.format, tc.args...); got != tc.want {
			t.Errorf("format(%q) error = %q, want %q", tc.format, got, tc.want)
		}
	}
}

func TestFormatKeyError(t *testing.T) {
	s := vm.NewState()
	h := hashOf(s, "a", vm.FromSmallInt(1))
	s.Intern("b")
	if got := formatErr(t, s, s.KeyError, "%<b>d", h); got != "key<b> not found" {
		t.Errorf("message = %q", got)
	}
	if got := formatErr(t, s, s.KeyError, "%{never_interned_key}", h); got != "key{never_interned_key} not found" {
		t.Errorf("message = %q", got)
	}
}

func TestFormatTypeErrors(t *testing.T) {
	s := vm.NewState()
	if got := formatErr(t, s, s.TypeError, "%d", vm.Nil); got != "can't convert nil into Integer" {
		t.Errorf("message = %q", got)
	}
	formatErr(t, s, s.TypeError, "%f", s.StringValue("1.5"))
	formatErr(t, s, s.FloatDomainError, "%d", vm.FromFloat64(math.NaN()))
	formatErr(t, s, s.RangeError, "%c", vm.FromSmallInt(-1))
}

func TestFormatterMaxSize(t *testing.T) {
	s := vm.NewState()
	f := &Formatter{State: s, MaxSize: 1024}
	out, err := f.Format(nil, "%500d", []vm.Value{vm.FromSmallInt(1)})
	if err != nil {
		t.Fatalf("500 columns within a 1024 limit: %v", err)
	}
	if len(out) != 500 || !strings.HasSuffix(out, " 1") {
		t.Errorf("len = %d", len(out))
	}
	_, err = f.Format(nil, "%2000d", []vm.Value{vm.FromSmallInt(1)})
	exc, ok := vm.AsException(err)
	if !ok || exc.Class != s.ArgumentError || exc.Message != "too big specifier" {
		t.Errorf("error = %v, want too big specifier", err)
	}
	if _, err := f.Format(nil, "%.5000f", []vm.Value{vm.FromFloat64(1)}); err == nil {
		t.Error("a float precision past the limit should fail")
	}
	if _, err := (&Formatter{State: s}).Format(nil, "%2000d", []vm.Value{vm.FromSmallInt(1)}); err != nil {
		t.Errorf("zero MaxSize should use the default: %v", err)
	}
}

func TestInstall(t *testing.T) {
	s := vm.NewState()
	Install(s)

	call := func(recv vm.Value, name string, args ...vm.Value) string {
		t.Helper()
		out, err := s.Funcall(nil, recv, name, args...)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return s.StringFromValue(out).String()
	}
	kernel := s.KernelModule.Value()
	if got := call(kernel, "format", s.StringValue("%05.1f"), vm.FromFloat64(2.5)); got != "002.5" {
		t.Errorf("Kernel.format = %q", got)
	}
	if got := call(kernel, "sprintf", s.StringValue("%s!"), s.StringValue("hi")); got != "hi!" {
		t.Errorf("Kernel.sprintf = %q", got)
	}

	obj := s.NewObject(s.ObjectClass).Value()
	if got := call(obj, "format", s.StringValue("%d"), vm.FromSmallInt(7)); got != "7" {
		t.Errorf("format from an instance = %q", got)
	}
	if _, err := s.PublicSend(nil, obj, s.Intern("format"), s.NewArgs(s.StringValue("x"))); !s.IsKind(err, s.NoMethodError) {
		t.Errorf("format is private; public send error = %v", err)
	}

	pair := s.ArrayValue(s.StringValue("a"), vm.FromSmallInt(2))
	if got := call(s.StringValue("%s-%d"), "%", pair); got != "a-2" {
		t.Errorf("String#%% with an Array = %q", got)
	}
	if got := call(s.StringValue("%05d"), "%", vm.FromSmallInt(42)); got != "00042" {
		t.Errorf("String#%% with one value = %q", got)
	}
	if got := call(s.StringValue("%p"), "%", s.ArrayValue(s.ArrayValue())); got != "[]" {
		t.Errorf("String#%% with a nested Array = %q", got)
	}

	_, err := s.Funcall(nil, kernel, "format")
	if !s.IsKind(err, s.ArgumentError) {
		t.Errorf("format() error = %v, want ArgumentError", err)
	}
	_, err = s.Funcall(nil, kernel, "format", vm.FromSmallInt(1))
	if !s.IsKind(err, s.TypeError) {
		t.Errorf("format(1) error = %v, want TypeError", err)
	}
}
