package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// Exception is the Go error raised by the runtime. Class is one of the
// exception classes bootstrapped in the State (or a script subclass).
// Errors propagate as ordinary return values; nothing in this package
// recovers from them except the method_missing and respond_to_missing?
// protocol steps.
type Exception struct {
	Class   *RClass
	Message string

	// Name is the offending symbol for NameError and NoMethodError.
	Name Symbol
	// Receiver is the receiver of a failed call, or Undef.
	Receiver Value

	// Object is the exception instance raised by script code, if any.
	// Only heap values count; the zero Value is not an object.
	Object Value
}

func (e *Exception) Error() string {
	if e.Class == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Class.Name())
}

// bootstrapExceptionClasses creates the error taxonomy:
//
//	Exception
//	  StandardError
//	    RuntimeError
//	      FrozenError
//	    ArgumentError
//	    TypeError
//	    NameError
//	      NoMethodError
//	    IndexError
//	      KeyError
//	    RangeError
//	      FloatDomainError
//	    ZeroDivisionError
//	    NotImplementedError
//	  SystemStackError
func (s *State) bootstrapExceptionClasses() {
	s.ExceptionClass = s.MustDefineClass("Exception", s.ObjectClass)
	s.StandardError = s.MustDefineClass("StandardError", s.ExceptionClass)
	s.RuntimeError = s.MustDefineClass("RuntimeError", s.StandardError)
	s.FrozenError = s.MustDefineClass("FrozenError", s.RuntimeError)
	s.ArgumentError = s.MustDefineClass("ArgumentError", s.StandardError)
	s.TypeError = s.MustDefineClass("TypeError", s.StandardError)
	s.NameError = s.MustDefineClass("NameError", s.StandardError)
	s.NoMethodError = s.MustDefineClass("NoMethodError", s.NameError)
	s.IndexError = s.MustDefineClass("IndexError", s.StandardError)
	s.KeyError = s.MustDefineClass("KeyError", s.IndexError)
	s.RangeError = s.MustDefineClass("RangeError", s.StandardError)
	s.FloatDomainError = s.MustDefineClass("FloatDomainError", s.RangeError)
	s.ZeroDivisionError = s.MustDefineClass("ZeroDivisionError", s.StandardError)
	s.NotImplementedError = s.MustDefineClass("NotImplementedError", s.StandardError)
	s.SystemStackError = s.MustDefineClass("SystemStackError", s.ExceptionClass)
}

// Raisef builds an exception of class cls with a formatted message.
func (s *State) Raisef(cls *RClass, format string, args ...any) error {
	return &Exception{Class: cls, Message: fmt.Sprintf(format, args...), Receiver: Undef}
}

// raiseName builds a NameError-family exception carrying the name.
func (s *State) raiseName(cls *RClass, name Symbol, format string, args ...any) error {
	return &Exception{Class: cls, Message: fmt.Sprintf(format, args...), Name: name, Receiver: Undef}
}

// raiseNoMethod builds the NoMethodError for a failed call of mid on recv.
func (s *State) raiseNoMethod(mid Symbol, recv Value) error {
	return &Exception{
		Class:    s.NoMethodError,
		Message:  fmt.Sprintf("undefined method '%s' for %s", s.symbols.Name(mid), s.describeReceiver(recv)),
		Name:     mid,
		Receiver: recv,
	}
}

// describeReceiver renders a receiver the way NoMethodError messages do.
func (s *State) describeReceiver(v Value) string {
	switch v {
	case Nil:
		return "nil"
	case True:
		return "true"
	case False:
		return "false"
	}
	if c := s.ClassFromValue(v); c != nil {
		if c.Type() == TTModule {
			return "module " + s.describeClass(c)
		}
		return "class " + s.describeClass(c)
	}
	return "an instance of " + s.describeClass(s.RealClassOf(v))
}

// AsException extracts a runtime exception from err.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// IsKind reports whether err is an exception of class cls or a subclass.
func (s *State) IsKind(err error, cls *RClass) bool {
	exc, ok := AsException(err)
	if !ok || exc.Class == nil {
		return false
	}
	return exc.Class.IsSubclassOf(cls)
}

// exceptionFromArgs builds the error raised by Kernel#raise from an
// exception class or instance and optional message, or a bare message
// string.
func (s *State) exceptionFromArgs(c *Context, args *Args) error {
	if args.Len() == 0 {
		return s.Raisef(s.RuntimeError, "unhandled exception")
	}
	a := args.At(0)
	if args.Len() == 1 {
		if str := s.StringFromValue(a); str != nil {
			return s.Raisef(s.RuntimeError, "%s", str.String())
		}
	}
	if cls := s.ClassFromValue(a); cls != nil && cls.IsSubclassOf(s.ExceptionClass) {
		var ctorArgs []Value
		if args.Len() > 1 {
			ctorArgs = append(ctorArgs, args.At(1))
		}
		obj, err := s.NewInstance(c, cls, s.NewArgs(ctorArgs...))
		if err != nil {
			return err
		}
		a = obj
	} else if args.Len() > 1 && s.RObjectFromValue(a) != nil && s.KindOf(a, s.ExceptionClass) {
		obj, err := s.Dup(c, a)
		if err != nil {
			return err
		}
		if err := s.IVSet(obj, s.symMesg, args.At(1)); err != nil {
			return err
		}
		a = obj
	}
	if s.RObjectFromValue(a) == nil || !s.KindOf(a, s.ExceptionClass) {
		return s.Raisef(s.TypeError, "exception class/object expected")
	}
	msg, err := s.exceptionMessage(c, a)
	if err != nil {
		return err
	}
	return &Exception{Class: s.RealClassOf(a), Message: msg, Receiver: Undef, Object: a}
}

// ExceptionObject returns the script-level instance for err, creating one
// for errors raised from Go.
func (s *State) ExceptionObject(c *Context, err error) (Value, error) {
	exc, ok := AsException(err)
	if !ok {
		return s.NewInstance(c, s.RuntimeError, s.NewArgs(s.StringValue(err.Error())))
	}
	if exc.Object.IsObject() && s.heap.Get(exc.Object) != nil {
		return exc.Object, nil
	}
	cls := exc.Class
	if cls == nil {
		cls = s.RuntimeError
	}
	obj, aerr := s.allocInstance(cls)
	if aerr != nil {
		return Nil, aerr
	}
	if ierr := s.IVSet(obj, s.symMesg, s.StringValue(exc.Message)); ierr != nil {
		return Nil, ierr
	}
	exc.Object = obj
	return obj, nil
}

// exceptionMessage renders the message of an exception instance through
// its to_s.
func (s *State) exceptionMessage(c *Context, obj Value) (string, error) {
	return s.ToS(c, obj)
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (s *State) initException() {
	c := s.ExceptionClass
	s.DefineClassMethod(c, "exception", ArgsAny, excClassException)
	s.DefinePrivateMethod(c, "initialize", ArgsOpt(1), excInitialize)
	s.DefineMethod(c, "exception", ArgsOpt(1), excException)
	s.DefineMethod(c, "message", ArgsNone, excMessage)
	s.DefineMethod(c, "to_s", ArgsNone, excToS)
	s.DefineMethod(c, "inspect", ArgsNone, excInspect)
	s.DefineMethod(c, "==", ArgsReq(1), excEq)
}

func excClassException(c *Context, self Value, args *Args) (Value, error) {
	cls, err := selfModule(c, self)
	if err != nil {
		return Nil, err
	}
	return c.s.NewInstance(c, cls, args)
}

func excInitialize(c *Context, self Value, args *Args) (Value, error) {
	if args.Len() == 0 {
		return Nil, nil
	}
	return Nil, c.s.IVSet(self, c.s.symMesg, args.At(0))
}

// excException answers self, or a copy carrying a new message.
func excException(c *Context, self Value, args *Args) (Value, error) {
	if args.Len() == 0 || args.At(0) == self {
		return self, nil
	}
	cp, err := c.s.Clone(c, self)
	if err != nil {
		return Nil, err
	}
	return cp, c.s.IVSet(cp, c.s.symMesg, args.At(0))
}

func excMessage(c *Context, self Value, _ *Args) (Value, error) {
	return c.s.Send(c, self, c.s.symToS, nil)
}

func excToS(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	mesg := s.IVGet(self, s.symMesg)
	if mesg == Nil {
		return s.StringValue(s.RealClassOf(self).Name()), nil
	}
	str, err := s.ToS(c, mesg)
	if err != nil {
		return Nil, err
	}
	return s.StringValue(str), nil
}

// excInspect renders "#<Cls: message>", or just the class name when the
// message is empty.
func excInspect(c *Context, self Value, _ *Args) (Value, error) {
	s := c.s
	name := s.describeClass(s.RealClassOf(self))
	msg, err := s.ToS(c, self)
	if err != nil {
		return Nil, err
	}
	if msg == "" {
		return s.StringValue(name), nil
	}
	return s.StringValue("#<" + name + ": " + msg + ">"), nil
}

func excEq(c *Context, self Value, args *Args) (Value, error) {
	s := c.s
	other := args.At(0)
	if self == other {
		return True, nil
	}
	if s.RealClassOf(self) != s.RealClassOf(other) {
		return False, nil
	}
	a, err := s.Send(c, self, s.symbols.Intern("message"), nil)
	if err != nil {
		return Nil, err
	}
	b, err := s.Send(c, other, s.symbols.Intern("message"), nil)
	if err != nil {
		return Nil, err
	}
	eq, err := s.Equal(c, a, b)
	return FromBool(eq), err
}
