package vm

import "testing"

func TestContextGuard(t *testing.T) {
	s := NewState()
	c := s.NewContext()
	defer c.Close()
	sym := s.Intern("inspect")
	a := FromSmallInt(1)

	release, rec := c.Guard(sym, a, Nil)
	if rec {
		t.Fatal("first entry should not be recursive")
	}
	if _, rec := c.Guard(sym, a, Nil); !rec {
		t.Error("second entry for the same pair should be recursive")
	}
	if _, rec := c.Guard(sym, FromSmallInt(2), Nil); rec {
		t.Error("a different receiver is not recursive")
	}
	release()
	if _, rec := c.Guard(sym, a, Nil); rec {
		t.Error("released guard should allow re-entry")
	}
}

func TestContextsAreIndependent(t *testing.T) {
	s := NewState()
	c1 := s.NewContext()
	c2 := s.NewContext()
	defer c1.Close()
	defer c2.Close()

	sym := s.Intern("cmp")
	release, _ := c1.Guard(sym, Nil, Nil)
	defer release()
	if _, rec := c2.Guard(sym, Nil, Nil); rec {
		t.Error("guards should be per context")
	}
	if c1.State() != s {
		t.Error("State() should return the owner")
	}
}

func TestMethodRecursive(t *testing.T) {
	s := NewState()
	cls := s.MustDefineClass("Walker", nil)
	defMethod(t, s, cls, "walk", ArgsOpt(1), func(c *Context, self Value, args *Args) (Value, error) {
		if args.At(0) == Nil {
			return c.s.Funcall(c, self, "walk", True)
		}
		return c.s.Funcall(c, self, "__method_recursive?", c.s.Sym("walk"))
	})
	defMethod(t, s, cls, "once", ArgsNone, func(c *Context, self Value, _ *Args) (Value, error) {
		return c.s.Funcall(c, self, "__method_recursive?", c.s.Sym("once"))
	})
	o := s.NewObject(cls).Value()

	if got := mustCall(t, s, o, "walk"); got != True {
		t.Error("nested walk should see the outer call")
	}
	if got := mustCall(t, s, o, "once"); got != False {
		t.Error("a single call is not recursive")
	}
}

func TestContextFrames(t *testing.T) {
	s := NewState()
	c := s.NewContext()
	defer c.Close()
	if c.CI() != nil || c.Depth() != 0 {
		t.Fatal("fresh context should have no frames")
	}
	cls := s.MustDefineClass("Nest", nil)
	var depth int
	var mids []string
	defMethod(t, s, cls, "inner", ArgsNone, func(c *Context, _ Value, _ *Args) (Value, error) {
		depth = c.Depth()
		for _, f := range c.Frames() {
			mids = append(mids, c.s.SymName(f.MID))
		}
		return Nil, nil
	})
	defMethod(t, s, cls, "outer", ArgsNone, func(c *Context, self Value, _ *Args) (Value, error) {
		return c.s.Funcall(c, self, "inner")
	})
	if _, err := s.Funcall(c, s.NewObject(cls).Value(), "outer"); err != nil {
		t.Fatal(err)
	}
	if depth != 2 || len(mids) != 2 || mids[0] != "outer" || mids[1] != "inner" {
		t.Errorf("depth %d frames %v", depth, mids)
	}
	if c.Depth() != 0 {
		t.Error("frames should be popped after the call")
	}
}

func TestActiveFramesAreRoots(t *testing.T) {
	s := NewState()
	c := s.NewContext()
	cls := s.MustDefineClass("Holder", nil)
	defMethod(t, s, cls, "hold", ArgsNone, func(c *Context, _ Value, _ *Args) (Value, error) {
		c.s.GC()
		if c.s.ObjectFromValue(c.CI().Self) == nil {
			t.Error("receiver of an active frame must survive collection")
		}
		return Nil, nil
	})
	if _, err := s.Funcall(c, s.NewObject(cls).Value(), "hold"); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if _, ok := s.contexts[c]; ok {
		t.Error("Close should detach the context")
	}
}
