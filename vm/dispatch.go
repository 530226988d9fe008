package vm

// ---------------------------------------------------------------------------
// Method resolution
// ---------------------------------------------------------------------------

// MethodResult is a successful method search: the entry and the ancestry
// node it was found on. Class may be a singleton class or an iclass; use
// Class.Owner() for the defining class or module.
type MethodResult struct {
	Entry MethodEntry
	Class *RClass
}

// Proc returns the found method as a proc, wrapping natives on demand.
func (r MethodResult) Proc(s *State) *RProc {
	return r.Entry.Proc(s)
}

// SearchMethod walks the ancestry of c looking for mid. The walk stops at
// the first table binding mid; an undef marker there means not found.
func (s *State) SearchMethod(c *RClass, mid Symbol) (MethodResult, bool) {
	for k := c; k != nil; k = k.super {
		e, ok := k.mt.Lookup(mid)
		if !ok {
			continue
		}
		if e.IsUndef() {
			return MethodResult{}, false
		}
		return MethodResult{Entry: e, Class: k}, true
	}
	return MethodResult{}, false
}

// FindMethod is SearchMethod starting at the dispatch class of recv.
func (s *State) FindMethod(recv Value, mid Symbol) (MethodResult, bool) {
	return s.SearchMethod(s.ClassOf(recv), mid)
}

// isKernelNative reports whether mid resolves on recv to the native
// defined by Kernel itself, i.e. no class or module has overridden it.
func (s *State) isKernelNative(recv Value, mid Symbol) bool {
	res, ok := s.FindMethod(recv, mid)
	if !ok || res.Class.Owner() != s.KernelModule {
		return false
	}
	return res.Entry.native != nil || (res.Entry.proc != nil && res.Entry.proc.native != nil && !res.Entry.proc.IsAlias())
}

// ---------------------------------------------------------------------------
// Sending messages
// ---------------------------------------------------------------------------

// Send calls mid on recv, ignoring visibility, falling back to
// method_missing when the method is not found.
func (s *State) Send(c *Context, recv Value, mid Symbol, args *Args) (Value, error) {
	return s.dispatch(s.ctx(c), recv, mid, args, false)
}

// PublicSend is Send for calls with an explicit receiver: private methods
// are not callable.
func (s *State) PublicSend(c *Context, recv Value, mid Symbol, args *Args) (Value, error) {
	return s.dispatch(s.ctx(c), recv, mid, args, true)
}

// Funcall is a convenience wrapper around Send for Go callers.
func (s *State) Funcall(c *Context, recv Value, name string, args ...Value) (Value, error) {
	return s.Send(c, recv, s.symbols.Intern(name), s.NewArgs(args...))
}

func (s *State) dispatch(c *Context, recv Value, mid Symbol, args *Args, public bool) (Value, error) {
	if args == nil {
		args = s.NewArgs()
	}
	res, ok := s.FindMethod(recv, mid)
	if ok && public && res.Entry.IsPrivate() {
		return Nil, &Exception{
			Class:    s.NoMethodError,
			Message:  "private method '" + s.symbols.Name(mid) + "' called for " + s.describeReceiver(recv),
			Name:     mid,
			Receiver: recv,
		}
	}
	if !ok {
		var err error
		if res, err = s.prepareMethodMissing(c, mid, recv, args); err != nil {
			return Nil, err
		}
		mid = s.symMethodMissing
	}
	return s.callEntry(c, res.Entry, recv, res.Class, mid, args)
}

// callEntry runs a method table entry in a new frame.
func (s *State) callEntry(c *Context, e MethodEntry, self Value, target *RClass, mid Symbol, args *Args) (Value, error) {
	if e.proc != nil {
		return s.CallProc(c, e.proc, self, target, mid, args)
	}
	ci := &CallInfo{MID: mid, TargetClass: target, Self: self, Args: args}
	if err := c.push(ci); err != nil {
		return Nil, err
	}
	defer c.pop()
	if err := args.check(e.native.Spec); err != nil {
		return Nil, err
	}
	return e.native.Fn(c, self, args)
}

// CallProc invokes p with self in a new frame through the State's Invoker.
func (s *State) CallProc(c *Context, p *RProc, self Value, target *RClass, mid Symbol, args *Args) (Value, error) {
	c = s.ctx(c)
	if args == nil {
		args = s.NewArgs()
	}
	ci := &CallInfo{MID: mid, TargetClass: target, Proc: p, Self: self, Args: args}
	if err := c.push(ci); err != nil {
		return Nil, err
	}
	defer c.pop()
	return s.invoker.Invoke(c, p, self, target, mid, args)
}

// Yield calls the block blk with vals. Blocks run with the self they
// captured.
func (s *State) Yield(c *Context, blk Value, vals ...Value) (Value, error) {
	p := s.ProcFromValue(blk)
	if p == nil {
		return Nil, s.Raisef(s.ArgumentError, "no block given")
	}
	self := Nil
	if p.env != nil {
		self = p.env.Self
	}
	return s.CallProc(c, p, self, p.targetClass, s.symCall, s.NewArgs(vals...))
}

// RespondTo reports whether recv has a callable method mid. Private methods
// count only when includePrivate is set.
func (s *State) RespondTo(recv Value, mid Symbol, includePrivate bool) bool {
	res, ok := s.FindMethod(recv, mid)
	return ok && (includePrivate || !res.Entry.IsPrivate())
}
