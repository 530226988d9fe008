package vm

import (
	"fmt"
	"testing"
)

func addBody(file string, line int) *Body {
	return &Body{
		Spec: ArgsReq(2),
		File: file,
		Line: line,
		Fn: func(c *Context, _ Value, args *Args) (Value, error) {
			if args.Len() < 2 {
				return args.At(0), nil
			}
			return c.s.Funcall(c, args.At(0), "+", args.At(1))
		},
	}
}

func TestProcCall(t *testing.T) {
	s := NewState()
	lam := s.NewLambda(addBody("test.rb", 3), nil).Value()
	if got := mustCall(t, s, lam, "call", FromSmallInt(2), FromSmallInt(3)); got != FromSmallInt(5) {
		t.Errorf("call = %v, want 5", got)
	}
	if got := mustCall(t, s, lam, "[]", FromSmallInt(1), FromSmallInt(1)); got != FromSmallInt(2) {
		t.Errorf("[] = %v, want 2", got)
	}
	mustFail(t, s, s.ArgumentError, lam, "call", FromSmallInt(1))

	prc := s.NewProc(addBody("test.rb", 4), nil).Value()
	if got := mustCall(t, s, prc, "call", FromSmallInt(7)); got != FromSmallInt(7) {
		t.Errorf("lenient call = %v, want 7", got)
	}
}

func TestProcSelf(t *testing.T) {
	s := NewState()
	obj := s.NewObject(s.ObjectClass).Value()
	p := s.NewProc(&Body{Fn: echoSelf}, &Env{Self: obj})
	if got := mustCall(t, s, p.Value(), "call"); got != obj {
		t.Error("proc should run with the self it captured")
	}
	if got := mustCall(t, s, s.NewProc(&Body{Fn: echoSelf}, nil).Value(), "call"); got != Nil {
		t.Errorf("self without an env = %v, want nil", got)
	}
}

func TestProcReflection(t *testing.T) {
	s := NewState()
	x, y := s.Intern("x"), s.Intern("y")
	body := &Body{Spec: ArgsReq(1) | ArgsOpt(1), Locals: []Symbol{x, y}, File: "test.rb", Line: 9}

	lam := s.NewLambda(body, nil)
	prc := s.NewProc(body, nil)
	if mustCall(t, s, lam.Value(), "lambda?") != True || mustCall(t, s, prc.Value(), "lambda?") != False {
		t.Error("lambda? wrong")
	}
	if got := inspect(t, s, mustCall(t, s, lam.Value(), "parameters")); got != "[[:req, :x], [:opt, :y]]" {
		t.Errorf("lambda parameters = %s", got)
	}
	if got := inspect(t, s, mustCall(t, s, prc.Value(), "parameters")); got != "[[:opt, :x], [:opt, :y]]" {
		t.Errorf("proc parameters = %s", got)
	}
	if got := inspect(t, s, mustCall(t, s, lam.Value(), "source_location")); got != `["test.rb", 9]` {
		t.Errorf("source_location = %s", got)
	}

	want := fmt.Sprintf("#<Proc:0x%016x test.rb:9 (lambda)>", s.ObjectID(lam.Value()))
	if got := inspect(t, s, lam.Value()); got != want {
		t.Errorf("inspect = %s, want %s", got, want)
	}
	want = fmt.Sprintf("#<Proc:0x%016x test.rb:9>", s.ObjectID(prc.Value()))
	if got := inspect(t, s, prc.Value()); got != want {
		t.Errorf("inspect = %s, want %s", got, want)
	}
	anon := s.NewProc(&Body{}, nil)
	want = fmt.Sprintf("#<Proc:0x%016x -:->", s.ObjectID(anon.Value()))
	if got := inspect(t, s, anon.Value()); got != want {
		t.Errorf("inspect = %s, want %s", got, want)
	}
}

func TestProcEquality(t *testing.T) {
	s := NewState()
	body := &Body{Fn: echoSelf}
	env := &Env{Self: Nil}
	a, b := s.NewProc(body, env), s.NewProc(body, env)
	if mustCall(t, s, a.Value(), "==", b.Value()) != True {
		t.Error("procs sharing body and env should be ==")
	}
	ha, _ := s.Hash(nil, a.Value())
	hb, _ := s.Hash(nil, b.Value())
	if ha != hb {
		t.Error("== procs should hash alike")
	}
	if mustCall(t, s, a.Value(), "==", s.NewLambda(body, env).Value()) != False {
		t.Error("a proc is never == a lambda")
	}
	if mustCall(t, s, a.Value(), "==", s.NewProc(body, &Env{}).Value()) != False {
		t.Error("different environments should not be ==")
	}
}

func TestProcNew(t *testing.T) {
	s := NewState()
	exc := mustFail(t, s, s.ArgumentError, s.ProcClass.Value(), "new")
	if exc.Message != "tried to create Proc object without a block" {
		t.Errorf("message = %q", exc.Message)
	}
	blk := s.NewProc(&Body{Fn: echoSelf}, nil).Value()
	args := s.NewArgs()
	args.Block = blk
	got, err := s.Send(nil, s.ProcClass.Value(), s.Intern("new"), args)
	if err != nil {
		t.Fatal(err)
	}
	if got != blk {
		t.Error("Proc.new should return the block")
	}
	if mustCall(t, s, blk, "to_proc") != blk {
		t.Error("to_proc should return self")
	}
}
