package vm

// ---------------------------------------------------------------------------
// Invoker: running a callable
// ---------------------------------------------------------------------------

// Invoker evaluates a callable for a receiver and arguments. The dispatch
// code prepares the frame (pushed on c before Invoke runs) and the argument
// list; the Invoker only executes. A bytecode interpreter plugs in here.
type Invoker interface {
	Invoke(c *Context, p *RProc, self Value, targetClass *RClass, mid Symbol, args *Args) (Value, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(c *Context, p *RProc, self Value, targetClass *RClass, mid Symbol, args *Args) (Value, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(c *Context, p *RProc, self Value, targetClass *RClass, mid Symbol, args *Args) (Value, error) {
	return f(c, p, self, targetClass, mid, args)
}

// SetInvoker replaces the Invoker. A nil Invoker restores the default.
func (s *State) SetInvoker(inv Invoker) {
	if inv == nil {
		inv = defaultInvoker{}
	}
	s.invoker = inv
}

// defaultInvoker runs natives and the Go functions attached to script
// bodies. Strict procs get their positional count checked first.
type defaultInvoker struct{}

func (defaultInvoker) Invoke(c *Context, p *RProc, self Value, _ *RClass, _ Symbol, args *Args) (Value, error) {
	if n := p.native; n != nil {
		if p.HasFlag(FlagProcNoArg) {
			if args.Len() != 0 {
				return Nil, c.s.Raisef(c.s.ArgumentError, "wrong number of arguments (given %d, expected 0)", args.Len())
			}
		} else if err := args.check(n.Spec); err != nil {
			return Nil, err
		}
		return n.Fn(c, self, args)
	}
	if p.body == nil || p.body.Fn == nil {
		return Nil, nil
	}
	if p.IsLambda() {
		if err := args.check(p.body.Spec); err != nil {
			return Nil, err
		}
	}
	return p.body.Fn(c, self, args)
}
