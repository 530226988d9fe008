package sprintf

import "github.com/chazu/ember/vm"

// Install defines Kernel#format, Kernel#sprintf (as module functions) and
// String#% on s and returns the Formatter they share.
func Install(s *vm.State) *Formatter {
	f := New(s)
	f.Install()
	return f
}

// Install defines the formatting builtins backed by f.
func (f *Formatter) Install() {
	s := f.State
	for _, name := range []string{"format", "sprintf"} {
		s.DefinePrivateMethod(s.KernelModule, name, vm.ArgsAny, f.kernelFormat)
		s.DefineClassMethod(s.KernelModule, name, vm.ArgsAny, f.kernelFormat)
	}
	s.DefineMethod(s.StringClass, "%", vm.ArgsReq(1), f.stringFormat)
}

func (f *Formatter) formatValue(c *vm.Context, format vm.Value, args []vm.Value) (vm.Value, error) {
	s := f.State
	r := s.StringFromValue(format)
	if r == nil {
		return vm.Nil, s.Raisef(s.TypeError, "no implicit conversion of %s into String", s.TypeName(format))
	}
	out, err := f.Format(c, r.String(), args)
	if err != nil {
		return vm.Nil, err
	}
	return s.StringValue(out), nil
}

func (f *Formatter) kernelFormat(c *vm.Context, _ vm.Value, args *vm.Args) (vm.Value, error) {
	all := args.Slice()
	if len(all) == 0 {
		return vm.Nil, f.State.Raisef(f.State.ArgumentError, "too few arguments")
	}
	return f.formatValue(c, all[0], all[1:])
}

// stringFormat is String#%: an Array argument supplies the argument list.
func (f *Formatter) stringFormat(c *vm.Context, self vm.Value, args *vm.Args) (vm.Value, error) {
	arg := args.At(0)
	if a := f.State.ArrayFromValue(arg); a != nil {
		return f.formatValue(c, self, a.Elems())
	}
	return f.formatValue(c, self, []vm.Value{arg})
}
