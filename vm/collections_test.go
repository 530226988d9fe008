package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"a\\b", `"a\\b"`},
		{"line\nnext\ttab", `"line\nnext\ttab"`},
		{"\x1b[0m", `"\e[0m"`},
		{"\x01", `"\x01"`},
		{"#{x} #$y #@z #plain", `"\#{x} \#$y \#@z #plain"`},
		{"héllo", `"héllo"`},
		{"\xff", `"\xFF"`},
	}
	for _, tc := range tests {
		if got := QuoteString(tc.in); got != tc.want {
			t.Errorf("QuoteString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestStringBuiltins(t *testing.T) {
	s := NewState()
	a := s.StringValue("abc")
	if got := goString(t, s, mustCall(t, s, a, "+", s.StringValue("def"))); got != "abcdef" {
		t.Errorf("+ = %s", got)
	}
	if got := goString(t, s, mustCall(t, s, a, "*", FromSmallInt(3))); got != "abcabcabc" {
		t.Errorf("* = %s", got)
	}
	mustFail(t, s, s.ArgumentError, a, "*", FromSmallInt(-1))
	exc := mustFail(t, s, s.TypeError, a, "+", FromSmallInt(1))
	if exc.Message != "no implicit conversion of Integer into String" {
		t.Errorf("message = %q", exc.Message)
	}
	if mustCall(t, s, a, "==", s.StringValue("abc")) != True {
		t.Error("strings with equal contents should be ==")
	}
	if mustCall(t, s, a, "==", s.Sym("abc")) != False {
		t.Error("a String is never == a Symbol")
	}
	if got := mustCall(t, s, s.StringValue("héllo"), "length"); got != FromSmallInt(5) {
		t.Errorf("length = %v, want 5", got)
	}
	if got := mustCall(t, s, s.StringValue("héllo"), "bytesize"); got != FromSmallInt(6) {
		t.Errorf("bytesize = %v, want 6", got)
	}
	if got := goString(t, s, mustCall(t, s, a, "upcase")); got != "ABC" {
		t.Errorf("upcase = %s", got)
	}
	if got := mustCall(t, s, a, "to_sym"); got != s.Sym("abc") {
		t.Errorf("to_sym = %v", got)
	}
	if got := mustCall(t, s, a, "<=>", s.StringValue("abd")); got != FromSmallInt(-1) {
		t.Errorf("<=> = %v", got)
	}
	h1, _ := s.Hash(nil, s.StringValue("key"))
	h2, _ := s.Hash(nil, s.StringValue("key"))
	if h1 != h2 {
		t.Error("equal strings should hash alike")
	}
}

func TestStringAppendAndFreeze(t *testing.T) {
	s := NewState()
	v := s.StringValue("ab")
	if got := mustCall(t, s, v, "<<", s.StringValue("cd")); got != v {
		t.Error("<< should return the receiver")
	}
	if got := goString(t, s, v); got != "abcd" {
		t.Errorf("after << = %s", got)
	}
	s.Freeze(v)
	mustFail(t, s, s.FrozenError, v, "<<", s.StringValue("e"))
	if got := goString(t, s, v); got != "abcd" {
		t.Errorf("frozen string changed to %s", got)
	}
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

func TestArrayInspectAndJoin(t *testing.T) {
	s := NewState()
	arr := s.ArrayValue(FromSmallInt(1), s.StringValue("two"), s.Sym("three"), Nil, FromFloat64(4))
	if got := inspect(t, s, arr); got != `[1, "two", :three, nil, 4.0]` {
		t.Errorf("inspect = %s", got)
	}
	if got := goString(t, s, mustCall(t, s, arr, "join", s.StringValue("-"))); got != "1-two-three--4.0" {
		t.Errorf("join = %s", got)
	}
	nested := s.ArrayValue(FromSmallInt(1), s.ArrayValue(FromSmallInt(2), FromSmallInt(3)))
	if got := goString(t, s, mustCall(t, s, nested, "join", s.StringValue(","))); got != "1,2,3" {
		t.Errorf("nested join = %s", got)
	}
	if got := inspect(t, s, s.ArrayValue()); got != "[]" {
		t.Errorf("empty inspect = %s", got)
	}
}

func TestArrayRecursiveJoin(t *testing.T) {
	s := NewState()
	a := s.NewArray(FromSmallInt(1))
	if err := s.ArrayPush(a, a.Value()); err != nil {
		t.Fatal(err)
	}
	exc := mustFail(t, s, s.ArgumentError, a.Value(), "join")
	if exc.Message != "recursive array join" {
		t.Errorf("message = %q", exc.Message)
	}
	if got := inspect(t, s, a.Value()); got != "[1, [...]]" {
		t.Errorf("inspect = %s", got)
	}
}

func TestArrayMutation(t *testing.T) {
	s := NewState()
	a := s.NewArray()
	v := a.Value()
	mustCall(t, s, v, "push", FromSmallInt(1), FromSmallInt(2))
	mustCall(t, s, v, "<<", FromSmallInt(3))
	mustCall(t, s, v, "unshift", FromSmallInt(0))
	if got := inspect(t, s, v); got != "[0, 1, 2, 3]" {
		t.Errorf("after push/unshift = %s", got)
	}
	if got := mustCall(t, s, v, "pop"); got != FromSmallInt(3) {
		t.Errorf("pop = %v", got)
	}
	if got := mustCall(t, s, v, "shift"); got != FromSmallInt(0) {
		t.Errorf("shift = %v", got)
	}
	if got := mustCall(t, s, v, "[]", FromSmallInt(-1)); got != FromSmallInt(2) {
		t.Errorf("[-1] = %v", got)
	}
	if got := mustCall(t, s, v, "[]", FromSmallInt(10)); got != Nil {
		t.Errorf("[10] = %v, want nil", got)
	}
	mustCall(t, s, v, "[]=", FromSmallInt(4), s.Sym("x"))
	if got := inspect(t, s, v); got != "[1, 2, nil, nil, :x]" {
		t.Errorf("after []= = %s", got)
	}
	exc := mustFail(t, s, s.IndexError, v, "[]=", FromSmallInt(-9), Nil)
	if exc.Message != "index -9 too small for array; minimum: -5" {
		t.Errorf("message = %q", exc.Message)
	}
	s.Freeze(v)
	mustFail(t, s, s.FrozenError, v, "push", FromSmallInt(1))
}

func TestArrayEquality(t *testing.T) {
	s := NewState()
	a := s.ArrayValue(FromSmallInt(1), s.StringValue("x"))
	b := s.ArrayValue(FromSmallInt(1), s.StringValue("x"))
	c := s.ArrayValue(FromFloat64(1), s.StringValue("x"))
	if mustCall(t, s, a, "==", b) != True {
		t.Error("arrays with equal elements should be ==")
	}
	if mustCall(t, s, a, "==", c) != True {
		t.Error("1 == 1.0 so the arrays are ==")
	}
	if mustCall(t, s, a, "eql?", c) != False {
		t.Error("1.eql?(1.0) is false so the arrays are not eql?")
	}
	ha, _ := s.Hash(nil, a)
	hb, _ := s.Hash(nil, b)
	if ha != hb {
		t.Error("equal arrays should hash alike")
	}
	if mustCall(t, s, a, "include?", s.StringValue("x")) != True {
		t.Error("include? compares with ==")
	}
}

func TestArrayMapAndEach(t *testing.T) {
	s := NewState()
	arr := s.ArrayValue(FromSmallInt(1), FromSmallInt(2), FromSmallInt(3))
	double := s.NewProc(&Body{Fn: func(c *Context, _ Value, args *Args) (Value, error) {
		return c.s.Funcall(c, args.At(0), "*", FromSmallInt(2))
	}}, nil)
	args := s.NewArgs()
	args.Block = double.Value()
	got, err := s.Send(nil, arr, s.Intern("map"), args)
	if err != nil {
		t.Fatal(err)
	}
	if str := inspect(t, s, got); str != "[2, 4, 6]" {
		t.Errorf("map = %s", str)
	}
}

// ---------------------------------------------------------------------------
// Hash
// ---------------------------------------------------------------------------

func TestHashStringKeysAreCopiedAndFrozen(t *testing.T) {
	s := NewState()
	h := s.NewHash()
	key := s.NewString("name")
	if err := s.HashSet(h, key.Value(), FromSmallInt(1)); err != nil {
		t.Fatal(err)
	}
	stored := h.Keys()[0]
	if stored == key.Value() {
		t.Error("unfrozen string key should be copied")
	}
	if !s.IsFrozen(stored) {
		t.Error("stored key should be frozen")
	}
	if key.Frozen() {
		t.Error("caller's key should stay unfrozen")
	}
	if err := s.SetString(key, "other"); err != nil {
		t.Fatal(err)
	}
	if v, ok := s.HashGet(h, s.StringValue("name")); !ok || v != FromSmallInt(1) {
		t.Errorf("lookup after mutating the original key = %v, %v", v, ok)
	}
}

func TestHashKeyEquivalence(t *testing.T) {
	s := NewState()
	h := s.NewHash()
	s.HashSet(h, FromFloat64(0), s.Sym("zero"))
	if v, ok := s.HashGet(h, FromFloat64(math.Copysign(0, -1))); !ok || v != s.Sym("zero") {
		t.Error("-0.0 and 0.0 should be the same key")
	}
	s.HashSet(h, FromSmallInt(1), s.Sym("int"))
	s.HashSet(h, FromFloat64(1), s.Sym("float"))
	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3 (1 and 1.0 are distinct keys)", h.Len())
	}
	a := s.NewArray()
	s.HashSet(h, a.Value(), True)
	if _, ok := s.HashGet(h, s.ArrayValue()); ok {
		t.Error("arrays are keyed by identity")
	}
	if _, ok := s.HashGet(h, a.Value()); !ok {
		t.Error("same array should be found")
	}
}

func TestHashInspect(t *testing.T) {
	s := NewState()
	h := s.NewHash()
	s.HashSet(h, s.Sym("a"), FromSmallInt(1))
	s.HashSet(h, s.StringValue("k"), FromSmallInt(2))
	s.HashSet(h, s.Sym("odd key"), Nil)
	s.HashSet(h, FromSmallInt(3), s.ArrayValue())
	want := `{a: 1, "k" => 2, :"odd key" => nil, 3 => []}`
	if got := inspect(t, s, h.Value()); got != want {
		t.Errorf("inspect = %s, want %s", got, want)
	}
	if got := inspect(t, s, s.NewHash().Value()); got != "{}" {
		t.Errorf("empty inspect = %s", got)
	}

	self := s.NewHash()
	s.HashSet(self, s.Sym("me"), self.Value())
	if got := inspect(t, s, self.Value()); got != "{me: {...}}" {
		t.Errorf("recursive inspect = %s", got)
	}
}

func TestHashBuiltins(t *testing.T) {
	s := NewState()
	h := s.NewHash()
	v := h.Value()
	mustCall(t, s, v, "[]=", s.Sym("x"), FromSmallInt(10))
	mustCall(t, s, v, "store", s.Sym("y"), FromSmallInt(20))
	if got := mustCall(t, s, v, "[]", s.Sym("x")); got != FromSmallInt(10) {
		t.Errorf("[:x] = %v", got)
	}
	if got := mustCall(t, s, v, "[]", s.Sym("missing")); got != Nil {
		t.Errorf("[:missing] = %v", got)
	}
	if got := mustCall(t, s, v, "fetch", s.Sym("missing"), FromSmallInt(0)); got != FromSmallInt(0) {
		t.Errorf("fetch default = %v", got)
	}
	exc := mustFail(t, s, s.KeyError, v, "fetch", s.StringValue("nope"))
	if exc.Message != `key not found: "nope"` {
		t.Errorf("message = %q", exc.Message)
	}
	if got := mustCall(t, s, v, "key?", s.Sym("y")); got != True {
		t.Error("key?(:y)")
	}
	if got := mustCall(t, s, v, "delete", s.Sym("x")); got != FromSmallInt(10) {
		t.Errorf("delete = %v", got)
	}
	if got := inspect(t, s, mustCall(t, s, v, "keys")); got != "[:y]" {
		t.Errorf("keys = %s", got)
	}
	mustCall(t, s, v, "[]=", s.Sym("z"), FromSmallInt(30))
	if got := mustCall(t, s, v, "[]", s.Sym("z")); got != FromSmallInt(30) {
		t.Error("index should be rebuilt after delete")
	}
	s.Freeze(v)
	mustFail(t, s, s.FrozenError, v, "[]=", s.Sym("w"), Nil)
}

func TestHashEquality(t *testing.T) {
	s := NewState()
	a, b := s.NewHash(), s.NewHash()
	s.HashSet(a, s.Sym("k"), FromSmallInt(1))
	s.HashSet(a, s.Sym("j"), FromSmallInt(2))
	s.HashSet(b, s.Sym("j"), FromFloat64(2))
	s.HashSet(b, s.Sym("k"), FromSmallInt(1))
	if mustCall(t, s, a.Value(), "==", b.Value()) != True {
		t.Error("insertion order and 2 vs 2.0 do not affect ==")
	}
	s.HashSet(b, s.Sym("k"), FromSmallInt(9))
	if mustCall(t, s, a.Value(), "==", b.Value()) != False {
		t.Error("different values should not be ==")
	}
}
