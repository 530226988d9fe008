package vm

import "testing"

func TestNilAndBooleans(t *testing.T) {
	s := NewState()
	tests := []struct {
		recv Value
		to_s string
		insp string
	}{
		{Nil, "", "nil"},
		{True, "true", "true"},
		{False, "false", "false"},
	}
	for _, tc := range tests {
		if got := goString(t, s, mustCall(t, s, tc.recv, "to_s")); got != tc.to_s {
			t.Errorf("to_s = %q, want %q", got, tc.to_s)
		}
		if got := inspect(t, s, tc.recv); got != tc.insp {
			t.Errorf("inspect = %q, want %q", got, tc.insp)
		}
	}
	if mustCall(t, s, Nil, "nil?") != True || mustCall(t, s, False, "nil?") != False {
		t.Error("nil? wrong")
	}
	if got := inspect(t, s, mustCall(t, s, Nil, "to_a")); got != "[]" {
		t.Errorf("nil.to_a = %s", got)
	}
	if mustCall(t, s, True, "&", Nil) != False || mustCall(t, s, True, "&", FromSmallInt(0)) != True {
		t.Error("true & x")
	}
	if mustCall(t, s, False, "|", FromSmallInt(1)) != True || mustCall(t, s, Nil, "|", False) != False {
		t.Error("false | x")
	}
	if mustCall(t, s, True, "^", True) != False || mustCall(t, s, False, "^", True) != True {
		t.Error("^ wrong")
	}
	mustFail(t, s, s.NoMethodError, s.NilClass.Value(), "new")
	mustFail(t, s, s.NoMethodError, s.TrueClass.Value(), "new")
}

func TestNilSingletonMethods(t *testing.T) {
	s := NewState()
	sc, err := s.SingletonClassOf(Nil)
	if err != nil {
		t.Fatal(err)
	}
	constMethod(t, s, sc, "blank?", True)
	if mustCall(t, s, Nil, "blank?") != True {
		t.Error("methods on nil's singleton are NilClass methods")
	}
}
