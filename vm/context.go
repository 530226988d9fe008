package vm

// ---------------------------------------------------------------------------
// Context: execution context and call frames
// ---------------------------------------------------------------------------

// CallInfo is the control record of one active call. Dispatch code reads
// and rewrites MID and TargetClass on the current frame, e.g. when a call
// is redirected to method_missing or through a Method object.
type CallInfo struct {
	MID         Symbol
	TargetClass *RClass
	Proc        *RProc
	Self        Value
	Args        *Args
}

type guardKey struct {
	mid  Symbol
	a, b Value
}

// Context is one logical thread of execution (a fiber). It owns the call
// stack and the set of receivers currently inside recursion-sensitive
// methods such as inspect and <=>. A Context must not be shared between
// goroutines.
type Context struct {
	s      *State
	frames []*CallInfo
	guard  map[guardKey]int
}

// NewContext creates an execution context for s.
func (s *State) NewContext() *Context {
	c := &Context{s: s, guard: make(map[guardKey]int)}
	s.contexts[c] = struct{}{}
	return c
}

// Close detaches the context from its State so its frames stop acting as
// collection roots.
func (c *Context) Close() {
	delete(c.s.contexts, c)
}

// State returns the owning State.
func (c *Context) State() *State { return c.s }

// CI returns the current frame, or nil at top level.
func (c *Context) CI() *CallInfo {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// Depth returns the number of active frames.
func (c *Context) Depth() int { return len(c.frames) }

// Frames returns the active frames, innermost last.
func (c *Context) Frames() []CallInfo {
	out := make([]CallInfo, len(c.frames))
	for i, ci := range c.frames {
		out[i] = *ci
	}
	return out
}

func (c *Context) push(ci *CallInfo) error {
	if len(c.frames) >= c.s.config.MaxCallDepth {
		return c.s.Raisef(c.s.SystemStackError, "stack level too deep")
	}
	c.frames = append(c.frames, ci)
	return nil
}

func (c *Context) pop() {
	n := len(c.frames) - 1
	c.frames[n] = nil
	c.frames = c.frames[:n]
}

// Guard records that method mid is running for (a, b). It reports whether
// the pair was already being processed; the returned release function must
// be called on every exit path, typically via defer.
func (c *Context) Guard(mid Symbol, a, b Value) (release func(), recursive bool) {
	k := guardKey{mid, a, b}
	if c.guard[k] > 0 {
		return func() {}, true
	}
	c.guard[k]++
	return func() {
		if c.guard[k]--; c.guard[k] <= 0 {
			delete(c.guard, k)
		}
	}, false
}

// MethodRecursive reports whether a call of mid on self is active further
// up the stack than the caller of the current native. When arg is not Nil
// the first argument of that call must also be arg.
func (c *Context) MethodRecursive(mid Symbol, self, arg Value) bool {
	for i := len(c.frames) - 3; i >= 0; i-- {
		ci := c.frames[i]
		if ci.MID != mid || ci.Self != self {
			continue
		}
		if arg == Nil || (ci.Args != nil && ci.Args.At(0) == arg) {
			return true
		}
	}
	return false
}

func (c *Context) mark(m *marker) {
	for _, ci := range c.frames {
		m.value(ci.Self)
		m.class(ci.TargetClass)
		if ci.Proc != nil {
			m.object(ci.Proc)
		}
		ci.Args.mark(m)
	}
	for k := range c.guard {
		m.value(k.a)
		m.value(k.b)
	}
}

// ctx returns c, or the State's root context when c is nil.
func (s *State) ctx(c *Context) *Context {
	if c == nil {
		return s.root
	}
	return c
}
