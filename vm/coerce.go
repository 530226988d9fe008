package vm

import "math"

// ---------------------------------------------------------------------------
// Argument conversion helpers shared by builtins
// ---------------------------------------------------------------------------

// TypeName names the class of v for conversion errors; nil, true and false
// name themselves.
func (s *State) TypeName(v Value) string {
	switch v {
	case Nil:
		return "nil"
	case True:
		return "true"
	case False:
		return "false"
	}
	return s.describeClass(s.RealClassOf(v))
}

// toSym accepts a Symbol or a String.
func (s *State) toSym(v Value) (Symbol, error) {
	if v.IsSymbol() {
		return v.Symbol(), nil
	}
	if r := s.StringFromValue(v); r != nil {
		return s.symbols.Intern(r.str), nil
	}
	return NoSymbol, s.Raisef(s.TypeError, "%s is not a symbol nor a string", s.InspectString(nil, v))
}

// ToInt accepts an Integer or a finite Float, truncating toward zero.
func (s *State) ToInt(v Value) (int64, error) {
	switch {
	case v.IsSmallInt():
		return v.SmallInt(), nil
	case v.IsFloat():
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, s.Raisef(s.FloatDomainError, "%s", FormatFloat(f))
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, s.Raisef(s.RangeError, "float %s out of range of integer", FormatFloat(f))
		}
		return int64(f), nil
	case v == Nil:
		return 0, s.Raisef(s.TypeError, "can't convert nil into Integer")
	}
	return 0, s.Raisef(s.TypeError, "no implicit conversion of %s into Integer", s.TypeName(v))
}

// ToFloat accepts any numeric.
func (s *State) ToFloat(v Value) (float64, error) {
	switch {
	case v.IsFloat():
		return v.Float64(), nil
	case v.IsSmallInt():
		return float64(v.SmallInt()), nil
	}
	return 0, s.Raisef(s.TypeError, "can't convert %s into Float", s.TypeName(v))
}

// toClass accepts a class or module.
func (s *State) toClass(v Value) (*RClass, error) {
	if c := s.ClassFromValue(v); c != nil {
		return c, nil
	}
	return nil, s.Raisef(s.TypeError, "class or module required")
}

// IntValue boxes n, falling back to a Float outside the 48-bit range.
func IntValue(n int64) Value {
	if v, ok := TryFromSmallInt(n); ok {
		return v
	}
	return FromFloat64(float64(n))
}
