package snapshot

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/ember/vm"
)

func roundTrip(t *testing.T, src *vm.State, dst *vm.State, v vm.Value) vm.Value {
	t.Helper()
	data, err := Marshal(src, v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Decode(dst, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestImmediates(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	tests := []vm.Value{
		vm.Nil, vm.True, vm.False,
		vm.FromSmallInt(0), vm.FromSmallInt(-42), vm.FromSmallInt(vm.MaxSmallInt),
		vm.FromFloat64(1.5), vm.FromFloat64(math.Inf(-1)),
	}
	for _, v := range tests {
		if got := roundTrip(t, src, dst, v); got != v {
			t.Errorf("round trip of %s = %s", src.InspectString(nil, v), dst.InspectString(nil, got))
		}
	}

	got := roundTrip(t, src, dst, vm.FromFloat64(math.Copysign(0, -1)))
	if !got.IsFloat() || !math.Signbit(got.Float64()) {
		t.Errorf("-0.0 lost its sign: %s", dst.InspectString(nil, got))
	}

	got = roundTrip(t, src, dst, src.Sym("hello world"))
	if !got.IsSymbol() || dst.SymName(got.Symbol()) != "hello world" {
		t.Errorf("symbol round trip = %s", dst.InspectString(nil, got))
	}
}

func TestContainers(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	h := src.NewHash()
	if err := src.HashSet(h, src.StringValue("k"), vm.FromSmallInt(2)); err != nil {
		t.Fatal(err)
	}
	if err := src.HashSet(h, src.Sym("a"), src.ArrayValue(vm.FromSmallInt(1), vm.Nil)); err != nil {
		t.Fatal(err)
	}
	root := src.ArrayValue(src.StringValue("x"), h.Value(), src.IntegerClass.Value())

	got := roundTrip(t, src, dst, root)
	want := `["x", {"k" => 2, a: [1, nil]}, Integer]`
	if s := dst.InspectString(nil, got); s != want {
		t.Errorf("inspect = %s, want %s", s, want)
	}
	elems := dst.ArrayFromValue(got).Elems()
	if elems[2] != dst.IntegerClass.Value() {
		t.Error("class reference should resolve to the destination class")
	}
}

func TestSharedAndCyclic(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	shared := src.StringValue("shared")
	a := src.NewArray(shared, shared)
	if err := src.ArrayPush(a, a.Value()); err != nil {
		t.Fatal(err)
	}

	got := roundTrip(t, src, dst, a.Value())
	elems := dst.ArrayFromValue(got).Elems()
	if len(elems) != 3 {
		t.Fatalf("len = %d, want 3", len(elems))
	}
	if elems[0] != elems[1] {
		t.Error("shared string should restore as one object")
	}
	if elems[2] != got {
		t.Error("cycle should point back at the root")
	}
	if s := dst.InspectString(nil, got); s != `["shared", "shared", [...]]` {
		t.Errorf("inspect = %s", s)
	}
}

func TestObjectsAndIVars(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	srcPoint := src.MustDefineClass("Point", nil)
	dstPoint := dst.MustDefineClass("Point", nil)

	p := src.NewObject(srcPoint).Value()
	if err := src.IVSet(p, src.Intern("@x"), vm.FromSmallInt(3)); err != nil {
		t.Fatal(err)
	}
	if err := src.IVSet(p, src.Intern("@label"), src.StringValue("origin")); err != nil {
		t.Fatal(err)
	}
	src.Freeze(p)

	got := roundTrip(t, src, dst, p)
	if dst.RealClassOf(got) != dstPoint {
		t.Fatalf("class = %s, want Point", dst.RealClassOf(got).Name())
	}
	if v := dst.IVGet(got, dst.Intern("@x")); v != vm.FromSmallInt(3) {
		t.Errorf("@x = %s, want 3", dst.InspectString(nil, v))
	}
	label := dst.StringFromValue(dst.IVGet(got, dst.Intern("@label")))
	if label == nil || label.String() != "origin" {
		t.Errorf("@label = %v, want origin", label)
	}
	if !dst.IsFrozen(got) {
		t.Error("frozen flag should survive")
	}

	var names []string
	dst.IVForEach(got, func(sym vm.Symbol, _ vm.Value) bool {
		names = append(names, dst.SymName(sym))
		return false
	})
	if len(names) != 2 || names[0] != "@x" || names[1] != "@label" {
		t.Errorf("ivar order = %v, want [@x @label]", names)
	}
}

func TestFrozenString(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	got := roundTrip(t, src, dst, src.Freeze(src.StringValue("ice")))
	if !dst.IsFrozen(got) {
		t.Error("frozen string should restore frozen")
	}
	got = roundTrip(t, src, dst, src.StringValue("water"))
	if dst.IsFrozen(got) {
		t.Error("unfrozen string should restore unfrozen")
	}
}

func TestUnsupported(t *testing.T) {
	s := vm.NewState()
	anon := s.NewClass(nil)
	tests := []struct {
		name string
		v    vm.Value
	}{
		{"proc", s.NewProc(&vm.Body{}, nil).Value()},
		{"anonymous class", anon.Value()},
		{"instance of anonymous class", s.NewObject(anon).Value()},
		{"nested proc", s.ArrayValue(s.NewProc(&vm.Body{}, nil).Value())},
	}
	for _, tc := range tests {
		if _, err := Capture(s, tc.v); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: err = %v, want ErrUnsupported", tc.name, err)
		}
	}
}

func TestUnknownClass(t *testing.T) {
	src, dst := vm.NewState(), vm.NewState()
	cls := src.MustDefineClass("OnlyHere", nil)
	data, err := Marshal(src, src.NewObject(cls).Value())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(dst, data); err == nil {
		t.Error("decoding into a state without the class should fail")
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage should not unmarshal")
	}
	data, err := (&Snapshot{Version: Version + 1}).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("future version should be rejected")
	}
}

func TestCanonicalEncoding(t *testing.T) {
	s := vm.NewState()
	v := s.ArrayValue(s.StringValue("a"), vm.FromSmallInt(1))
	a, err := Marshal(s, v)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(s, v)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("encoding should be deterministic")
	}
}
