package vm

// ---------------------------------------------------------------------------
// method_missing fallback
// ---------------------------------------------------------------------------

// prepareMethodMissing redirects a failed call of mid on recv to the
// receiver's method_missing. On success the original name has been
// prepended to args and the caller continues with the returned entry under
// the name method_missing. A failed lookup of method_missing itself never
// recurses: it raises NoMethodError directly.
func (s *State) prepareMethodMissing(c *Context, mid Symbol, recv Value, args *Args) (MethodResult, error) {
	return s.methodMissingFrom(c, s.ClassOf(recv), mid, recv, args)
}

// methodMissingFrom is prepareMethodMissing with method_missing searched
// from start instead of the receiver's class.
func (s *State) methodMissingFrom(c *Context, start *RClass, mid Symbol, recv Value, args *Args) (MethodResult, error) {
	if mid == s.symMethodMissing {
		return MethodResult{}, s.raiseNoMethod(mid, recv)
	}
	res, ok := s.SearchMethod(start, s.symMethodMissing)
	if !ok {
		return MethodResult{}, s.raiseNoMethod(mid, recv)
	}
	args.Unshift(FromSymbol(mid))
	log.Debugf("%s: falling back to method_missing on %s (depth %d)",
		s.symbols.Name(mid), s.describeClass(res.Class.Owner()), c.Depth())
	return res, nil
}

// basicMethodMissing is BasicObject#method_missing: the end of the
// fallback chain.
func basicMethodMissing(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	name := args.At(0)
	if !name.IsSymbol() {
		return Nil, s.Raisef(s.ArgumentError, "no method name given")
	}
	return Nil, s.raiseNoMethod(name.Symbol(), self)
}
