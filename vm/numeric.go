package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Integer and Float
// ---------------------------------------------------------------------------

// FormatFloat renders f the way Float#to_s does: shortest round-trip
// digits, always with a fractional part, exponent form outside
// 1e-4 <= |f| < 1e16.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := strconv.FormatFloat(f, 'e', -1, 64)
	mant, e, _ := strings.Cut(exp, "e")
	n, _ := strconv.Atoi(e)
	if n < -4 || n >= 16 {
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		sign := "+"
		if n < 0 {
			sign = "-"
			n = -n
		}
		es := strconv.Itoa(n)
		if len(es) < 2 {
			es = "0" + es
		}
		return mant + "e" + sign + es
	}
	str := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(str, ".") {
		str += ".0"
	}
	return str
}

func (s *State) initNumeric() {
	if err := s.IncludeModule(s.NumericClass, s.ComparableModule); err != nil {
		panic(err)
	}
	s.undefNew(s.IntegerClass, s.FloatClass)

	c := s.IntegerClass
	s.DefineMethod(c, "to_s", ArgsOpt(1), intToS)
	s.DefineMethod(c, "inspect", ArgsNone, intToS)
	s.DefineMethod(c, "to_i", ArgsNone, numSelf)
	s.DefineMethod(c, "to_int", ArgsNone, numSelf)
	s.DefineMethod(c, "to_f", ArgsNone, intToF)
	s.DefineMethod(c, "hash", ArgsNone, numHash)
	s.DefineMethod(c, "-@", ArgsNone, intNeg)
	s.DefineMethod(c, "abs", ArgsNone, intAbs)
	s.DefineMethod(c, "zero?", ArgsNone, numZero)
	s.DefineMethod(c, "times", ArgsBlock, intTimes)

	f := s.FloatClass
	s.DefineMethod(f, "to_s", ArgsNone, floatToS)
	s.DefineMethod(f, "inspect", ArgsNone, floatToS)
	s.DefineMethod(f, "to_f", ArgsNone, numSelf)
	s.DefineMethod(f, "to_i", ArgsNone, floatToI)
	s.DefineMethod(f, "to_int", ArgsNone, floatToI)
	s.DefineMethod(f, "hash", ArgsNone, numHash)
	s.DefineMethod(f, "-@", ArgsNone, floatNeg)
	s.DefineMethod(f, "nan?", ArgsNone, floatNaN)
	s.DefineMethod(f, "infinite?", ArgsNone, floatInfinite)
	s.DefineMethod(f, "finite?", ArgsNone, floatFinite)
	s.DefineMethod(f, "zero?", ArgsNone, numZero)

	for _, cls := range []*RClass{c, f} {
		s.DefineMethod(cls, "==", ArgsReq(1), numEq)
		s.DefineMethod(cls, "eql?", ArgsReq(1), numEql)
		s.DefineMethod(cls, "<=>", ArgsReq(1), numCmp)
		s.DefineMethod(cls, "<", ArgsReq(1), numLt)
		s.DefineMethod(cls, "<=", ArgsReq(1), numLe)
		s.DefineMethod(cls, ">", ArgsReq(1), numGt)
		s.DefineMethod(cls, ">=", ArgsReq(1), numGe)
		s.DefineMethod(cls, "+", ArgsReq(1), numAdd)
		s.DefineMethod(cls, "-", ArgsReq(1), numSub)
		s.DefineMethod(cls, "*", ArgsReq(1), numMul)
		s.DefineMethod(cls, "/", ArgsReq(1), numDiv)
		s.DefineMethod(cls, "%", ArgsReq(1), numMod)
	}
}

func numSelf(_ *Context, self Value, _ *Args) (Value, error) { return self, nil }

func intToS(c *Context, self Value, args *Args) (Value, error) {
	base := int64(10)
	if args.Len() > 0 {
		var err error
		if base, err = c.s.ToInt(args.At(0)); err != nil {
			return Nil, err
		}
		if base < 2 || base > 36 {
			return Nil, c.s.Raisef(c.s.ArgumentError, "invalid radix %d", base)
		}
	}
	return c.s.StringValue(strconv.FormatInt(self.SmallInt(), int(base))), nil
}

func intToF(_ *Context, self Value, _ *Args) (Value, error) {
	return FromFloat64(float64(self.SmallInt())), nil
}

func intNeg(_ *Context, self Value, _ *Args) (Value, error) {
	return IntValue(-self.SmallInt()), nil
}

func intAbs(_ *Context, self Value, _ *Args) (Value, error) {
	n := self.SmallInt()
	if n < 0 {
		n = -n
	}
	return IntValue(n), nil
}

func intTimes(c *Context, self Value, args *Args) (Value, error) {
	n := self.SmallInt()
	for i := int64(0); i < n; i++ {
		if _, err := c.s.Yield(c, args.Block, FromSmallInt(i)); err != nil {
			return Nil, err
		}
	}
	return self, nil
}

func floatToS(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.StringValue(FormatFloat(self.Float64())), nil
}

func floatToI(c *Context, self Value, _ *Args) (Value, error) {
	n, err := c.s.ToInt(self)
	if err != nil {
		return Nil, err
	}
	return IntValue(n), nil
}

func floatNeg(_ *Context, self Value, _ *Args) (Value, error) {
	return FromFloat64(-self.Float64()), nil
}

func floatNaN(_ *Context, self Value, _ *Args) (Value, error) {
	return FromBool(math.IsNaN(self.Float64())), nil
}

func floatInfinite(_ *Context, self Value, _ *Args) (Value, error) {
	f := self.Float64()
	switch {
	case math.IsInf(f, 1):
		return FromSmallInt(1), nil
	case math.IsInf(f, -1):
		return FromSmallInt(-1), nil
	}
	return Nil, nil
}

func floatFinite(_ *Context, self Value, _ *Args) (Value, error) {
	f := self.Float64()
	return FromBool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
}

func numZero(_ *Context, self Value, _ *Args) (Value, error) {
	if self.IsSmallInt() {
		return FromBool(self.SmallInt() == 0), nil
	}
	return FromBool(self.Float64() == 0), nil
}

func numHash(_ *Context, self Value, _ *Args) (Value, error) {
	return FromSmallInt(int64(uint64(self) & uint64(MaxSmallInt))), nil
}

func isNumeric(v Value) bool { return v.IsSmallInt() || v.IsFloat() }

// numCompare orders two numerics; ok is false when either is NaN or other
// is not numeric.
func numCompare(a, b Value) (cmp int, ok bool) {
	if !isNumeric(b) {
		return 0, false
	}
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	x, y := numToFloat(a), numToFloat(b)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func numToFloat(v Value) float64 {
	if v.IsSmallInt() {
		return float64(v.SmallInt())
	}
	return v.Float64()
}

func numEq(_ *Context, self Value, args *Args) (Value, error) {
	cmp, ok := numCompare(self, args.At(0))
	return FromBool(ok && cmp == 0), nil
}

func numEql(_ *Context, self Value, args *Args) (Value, error) {
	o := args.At(0)
	if self.IsSmallInt() != o.IsSmallInt() || !isNumeric(o) {
		return False, nil
	}
	cmp, ok := numCompare(self, o)
	return FromBool(ok && cmp == 0), nil
}

func numCmp(_ *Context, self Value, args *Args) (Value, error) {
	cmp, ok := numCompare(self, args.At(0))
	if !ok {
		return Nil, nil
	}
	return FromSmallInt(int64(cmp)), nil
}

func numRelop(c *Context, self, other Value, test func(int) bool) (Value, error) {
	cmp, ok := numCompare(self, other)
	if !ok {
		if !isNumeric(other) {
			return Nil, c.s.Raisef(c.s.ArgumentError, "comparison of %s with %s failed",
				c.s.TypeName(self), c.s.InspectString(c, other))
		}
		return False, nil
	}
	return FromBool(test(cmp)), nil
}

func numLt(c *Context, self Value, args *Args) (Value, error) {
	return numRelop(c, self, args.At(0), func(n int) bool { return n < 0 })
}

func numLe(c *Context, self Value, args *Args) (Value, error) {
	return numRelop(c, self, args.At(0), func(n int) bool { return n <= 0 })
}

func numGt(c *Context, self Value, args *Args) (Value, error) {
	return numRelop(c, self, args.At(0), func(n int) bool { return n > 0 })
}

func numGe(c *Context, self Value, args *Args) (Value, error) {
	return numRelop(c, self, args.At(0), func(n int) bool { return n >= 0 })
}

// numArith applies an integer op when both operands are integers and a
// float op otherwise.
func numArith(c *Context, self, other Value, name string,
	iop func(x, y int64) (Value, error), fop func(x, y float64) float64) (Value, error) {
	if !isNumeric(other) {
		return Nil, c.s.Raisef(c.s.TypeError, "%s can't be coerced into %s", c.s.TypeName(other), c.s.TypeName(self))
	}
	if self.IsSmallInt() && other.IsSmallInt() {
		return iop(self.SmallInt(), other.SmallInt())
	}
	return FromFloat64(fop(numToFloat(self), numToFloat(other))), nil
}

func numAdd(c *Context, self Value, args *Args) (Value, error) {
	return numArith(c, self, args.At(0), "+",
		func(x, y int64) (Value, error) { return IntValue(x + y), nil },
		func(x, y float64) float64 { return x + y })
}

func numSub(c *Context, self Value, args *Args) (Value, error) {
	return numArith(c, self, args.At(0), "-",
		func(x, y int64) (Value, error) { return IntValue(x - y), nil },
		func(x, y float64) float64 { return x - y })
}

func numMul(c *Context, self Value, args *Args) (Value, error) {
	return numArith(c, self, args.At(0), "*",
		func(x, y int64) (Value, error) {
			p := x * y
			if x != 0 && (p/x != y || p > MaxSmallInt || p < MinSmallInt) {
				return FromFloat64(float64(x) * float64(y)), nil
			}
			return FromSmallInt(p), nil
		},
		func(x, y float64) float64 { return x * y })
}

func numDiv(c *Context, self Value, args *Args) (Value, error) {
	return numArith(c, self, args.At(0), "/",
		func(x, y int64) (Value, error) {
			if y == 0 {
				return Nil, c.s.Raisef(c.s.ZeroDivisionError, "divided by 0")
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return IntValue(q), nil
		},
		func(x, y float64) float64 { return x / y })
}

func numMod(c *Context, self Value, args *Args) (Value, error) {
	return numArith(c, self, args.At(0), "%",
		func(x, y int64) (Value, error) {
			if y == 0 {
				return Nil, c.s.Raisef(c.s.ZeroDivisionError, "divided by 0")
			}
			m := x % y
			if m != 0 && ((m < 0) != (y < 0)) {
				m += y
			}
			return IntValue(m), nil
		},
		func(x, y float64) float64 {
			m := math.Mod(x, y)
			if m != 0 && ((m < 0) != (y < 0)) {
				m += y
			}
			return m
		})
}
