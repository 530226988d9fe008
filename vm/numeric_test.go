package vm

import (
	"math"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-2.5, "-2.5"},
		{100, "100.0"},
		{0.1, "0.1"},
		{0.0001, "0.0001"},
		{0.00001, "1.0e-05"},
		{1.5e-7, "1.5e-07"},
		{1e15, "1000000000000000.0"},
		{1e16, "1.0e+16"},
		{1.25e20, "1.25e+20"},
		{math.Copysign(0, -1), "-0.0"},
		{0, "0.0"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tc := range tests {
		if got := FormatFloat(tc.in); got != tc.want {
			t.Errorf("FormatFloat(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestIntegerArithmetic(t *testing.T) {
	s := NewState()
	tests := []struct {
		a    int64
		op   string
		b    int64
		want int64
	}{
		{7, "+", 3, 10},
		{7, "-", 10, -3},
		{6, "*", 7, 42},
		{7, "/", 2, 3},
		{-7, "/", 2, -4},
		{7, "/", -2, -4},
		{7, "%", 3, 1},
		{-7, "%", 3, 2},
		{7, "%", -3, -2},
	}
	for _, tc := range tests {
		got := mustCall(t, s, FromSmallInt(tc.a), tc.op, FromSmallInt(tc.b))
		if got != FromSmallInt(tc.want) {
			t.Errorf("%d %s %d = %v, want %d", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestIntegerOverflowBecomesFloat(t *testing.T) {
	s := NewState()
	got := mustCall(t, s, FromSmallInt(MaxSmallInt), "+", FromSmallInt(1))
	if !got.IsFloat() {
		t.Errorf("MaxSmallInt + 1 = %v, want a float", got)
	}
	got = mustCall(t, s, FromSmallInt(MaxSmallInt), "*", FromSmallInt(4))
	if !got.IsFloat() {
		t.Errorf("MaxSmallInt * 4 = %v, want a float", got)
	}
}

func TestToIntFloatBounds(t *testing.T) {
	s := NewState()
	if _, err := s.ToInt(FromFloat64(math.Ldexp(1, 63))); !s.IsKind(err, s.RangeError) {
		t.Errorf("ToInt(2**63) err = %v, want RangeError", err)
	}
	got, err := s.ToInt(FromFloat64(-math.Ldexp(1, 63)))
	if err != nil || got != math.MinInt64 {
		t.Errorf("ToInt(-2**63) = %d, %v, want %d", got, err, int64(math.MinInt64))
	}
	if _, err := s.ToInt(FromFloat64(math.NaN())); !s.IsKind(err, s.FloatDomainError) {
		t.Errorf("ToInt(NaN) err = %v, want FloatDomainError", err)
	}
}

func TestMixedArithmetic(t *testing.T) {
	s := NewState()
	got := mustCall(t, s, FromSmallInt(1), "+", FromFloat64(0.5))
	if !got.IsFloat() || got.Float64() != 1.5 {
		t.Errorf("1 + 0.5 = %v", got)
	}
	got = mustCall(t, s, FromFloat64(7), "/", FromSmallInt(2))
	if got.Float64() != 3.5 {
		t.Errorf("7.0 / 2 = %v", got)
	}
	got = mustCall(t, s, FromFloat64(1), "/", FromSmallInt(0))
	if !math.IsInf(got.Float64(), 1) {
		t.Errorf("1.0 / 0 = %v, want Infinity", got)
	}
	exc := mustFail(t, s, s.TypeError, FromSmallInt(1), "+", s.StringValue("a"))
	if exc.Message != "String can't be coerced into Integer" {
		t.Errorf("message = %q", exc.Message)
	}
	exc = mustFail(t, s, s.TypeError, FromSmallInt(1), "+", Nil)
	if exc.Message != "nil can't be coerced into Integer" {
		t.Errorf("message = %q", exc.Message)
	}
}

func TestNumericComparison(t *testing.T) {
	s := NewState()
	if mustCall(t, s, FromSmallInt(1), "<", FromFloat64(1.5)) != True {
		t.Error("1 < 1.5")
	}
	if mustCall(t, s, FromSmallInt(2), "==", FromFloat64(2)) != True {
		t.Error("2 == 2.0")
	}
	if mustCall(t, s, FromSmallInt(2), "eql?", FromFloat64(2)) != False {
		t.Error("2.eql?(2.0) is false")
	}
	if got := mustCall(t, s, FromSmallInt(3), "<=>", FromSmallInt(5)); got != FromSmallInt(-1) {
		t.Errorf("3 <=> 5 = %v", got)
	}
	if got := mustCall(t, s, FromSmallInt(3), "<=>", s.StringValue("x")); got != Nil {
		t.Errorf("3 <=> 'x' = %v, want nil", got)
	}
	nan := FromFloat64(math.NaN())
	if got := mustCall(t, s, nan, "<=>", nan); got != Nil {
		t.Errorf("NaN <=> NaN = %v, want nil", got)
	}
	if mustCall(t, s, nan, "<", FromSmallInt(1)) != False {
		t.Error("NaN < 1 is false")
	}
	exc := mustFail(t, s, s.ArgumentError, FromSmallInt(1), "<", s.StringValue("x"))
	if exc.Message != `comparison of Integer with "x" failed` {
		t.Errorf("message = %q", exc.Message)
	}
	if mustCall(t, s, FromSmallInt(5), "between?", FromSmallInt(1), FromSmallInt(9)) != True {
		t.Error("Comparable#between? on integers")
	}
}

func TestIntegerMethods(t *testing.T) {
	s := NewState()
	if got := goString(t, s, mustCall(t, s, FromSmallInt(255), "to_s", FromSmallInt(16))); got != "ff" {
		t.Errorf("255.to_s(16) = %s", got)
	}
	mustFail(t, s, s.ArgumentError, FromSmallInt(1), "to_s", FromSmallInt(1))
	if got := mustCall(t, s, FromSmallInt(-4), "abs"); got != FromSmallInt(4) {
		t.Errorf("-4.abs = %v", got)
	}
	if got := mustCall(t, s, FromSmallInt(4), "-@"); got != FromSmallInt(-4) {
		t.Errorf("-4 = %v", got)
	}
	if got := mustCall(t, s, FromSmallInt(0), "zero?"); got != True {
		t.Error("0.zero?")
	}

	var seen []int64
	blk := s.NewProc(&Body{Fn: func(_ *Context, _ Value, args *Args) (Value, error) {
		seen = append(seen, args.At(0).SmallInt())
		return Nil, nil
	}}, nil)
	args := s.NewArgs()
	args.Block = blk.Value()
	if _, err := s.Send(nil, FromSmallInt(3), s.Intern("times"), args); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Errorf("times yielded %v", seen)
	}
}

func TestFloatMethods(t *testing.T) {
	s := NewState()
	if got := inspect(t, s, FromFloat64(2)); got != "2.0" {
		t.Errorf("2.0.inspect = %s", got)
	}
	if got := mustCall(t, s, FromFloat64(-3.7), "to_i"); got != FromSmallInt(-3) {
		t.Errorf("-3.7.to_i = %v", got)
	}
	mustFail(t, s, s.FloatDomainError, FromFloat64(math.Inf(1)), "to_i")
	mustFail(t, s, s.FloatDomainError, FromFloat64(math.NaN()), "to_i")
	if got := mustCall(t, s, FromFloat64(math.Inf(-1)), "infinite?"); got != FromSmallInt(-1) {
		t.Errorf("-Infinity.infinite? = %v", got)
	}
	if got := mustCall(t, s, FromFloat64(1), "infinite?"); got != Nil {
		t.Errorf("1.0.infinite? = %v", got)
	}
	if got := mustCall(t, s, FromFloat64(math.NaN()), "nan?"); got != True {
		t.Error("NaN.nan?")
	}
	if got := mustCall(t, s, FromFloat64(5.5), "%", FromSmallInt(2)); got.Float64() != 1.5 {
		t.Errorf("5.5 %% 2 = %v", got)
	}
}

func TestNumericHashConsistency(t *testing.T) {
	s := NewState()
	a, _ := s.Hash(nil, FromSmallInt(12))
	b, _ := s.Hash(nil, FromSmallInt(12))
	if a != b {
		t.Error("equal integers should hash alike")
	}
}
