// Package snapshot encodes an ember object graph as CBOR and rebuilds it
// inside another State.
//
// A snapshot is a root reference plus a table of heap nodes. Immediates
// (nil, booleans, integers, floats, symbols) and named classes are encoded
// inline; Strings, Arrays, Hashes and plain objects become nodes, so shared
// references and cycles survive a round trip. Frozen flags and instance
// variables are kept. Procs, Methods and singleton classes are not.
package snapshot

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/ember/vm"
	"github.com/fxamacker/cbor/v2"
)

// Version is the snapshot format version written by Capture.
const Version = 1

// ErrUnsupported is returned for values that cannot be captured.
var ErrUnsupported = errors.New("snapshot: unsupported value")

// RefKind identifies what a Ref points at.
type RefKind uint8

const (
	RefNil RefKind = iota
	RefTrue
	RefFalse
	RefInt
	RefFloat
	RefSymbol
	RefClass
	RefNode
)

// Ref is an encoded Value.
type Ref struct {
	Kind RefKind `cbor:"1,keyasint"`
	Int  int64   `cbor:"2,keyasint,omitempty"`
	Bits uint64  `cbor:"3,keyasint,omitempty"` // float64 bits
	Name string  `cbor:"4,keyasint,omitempty"` // symbol or class name
	Node int     `cbor:"5,keyasint,omitempty"`
}

// NodeKind identifies the layout of a heap node.
type NodeKind uint8

const (
	NodeObject NodeKind = iota + 1
	NodeString
	NodeArray
	NodeHash
)

// IVar is one instance variable of a node.
type IVar struct {
	Name  string `cbor:"1,keyasint"`
	Value Ref    `cbor:"2,keyasint"`
}

// Node is an encoded heap object.
type Node struct {
	Kind   NodeKind `cbor:"1,keyasint"`
	Class  string   `cbor:"2,keyasint"`
	Frozen bool     `cbor:"3,keyasint,omitempty"`
	Str    string   `cbor:"4,keyasint,omitempty"`
	Elems  []Ref    `cbor:"5,keyasint,omitempty"` // hash entries alternate key, value
	IVars  []IVar   `cbor:"6,keyasint,omitempty"`
}

// Snapshot is a captured object graph.
type Snapshot struct {
	Version int    `cbor:"1,keyasint"`
	Root    Ref    `cbor:"2,keyasint"`
	Nodes   []Node `cbor:"3,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal captures root and encodes it.
func Marshal(s *vm.State, root vm.Value) ([]byte, error) {
	snap, err := Capture(s, root)
	if err != nil {
		return nil, err
	}
	return snap.Marshal()
}

// Marshal encodes the snapshot as canonical CBOR.
func (snap *Snapshot) Marshal() ([]byte, error) {
	return encMode.Marshal(snap)
}

// Unmarshal decodes a snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", snap.Version)
	}
	return &snap, nil
}

// Decode decodes data and restores it into s.
func Decode(s *vm.State, data []byte) (vm.Value, error) {
	snap, err := Unmarshal(data)
	if err != nil {
		return vm.Nil, err
	}
	return snap.Restore(s)
}

// ---------------------------------------------------------------------------
// Capture
// ---------------------------------------------------------------------------

type capturer struct {
	s     *vm.State
	nodes []Node
	seen  map[vm.Value]int
}

// Capture walks the graph reachable from root.
func Capture(s *vm.State, root vm.Value) (*Snapshot, error) {
	c := &capturer{s: s, seen: make(map[vm.Value]int)}
	ref, err := c.ref(root)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Version: Version, Root: ref, Nodes: c.nodes}, nil
}

func (c *capturer) ref(v vm.Value) (Ref, error) {
	s := c.s
	switch {
	case v == vm.Nil:
		return Ref{Kind: RefNil}, nil
	case v == vm.True:
		return Ref{Kind: RefTrue}, nil
	case v == vm.False:
		return Ref{Kind: RefFalse}, nil
	case v.IsSmallInt():
		return Ref{Kind: RefInt, Int: v.SmallInt()}, nil
	case v.IsFloat():
		return Ref{Kind: RefFloat, Bits: math.Float64bits(v.Float64())}, nil
	case v.IsSymbol():
		return Ref{Kind: RefSymbol, Name: s.SymName(v.Symbol())}, nil
	case !v.IsObject():
		return Ref{}, fmt.Errorf("%w: undef", ErrUnsupported)
	}
	if cls := s.ClassFromValue(v); cls != nil {
		if cls.Name() == "" || cls.IsSingleton() {
			return Ref{}, fmt.Errorf("%w: anonymous class", ErrUnsupported)
		}
		return Ref{Kind: RefClass, Name: cls.Name()}, nil
	}
	if i, ok := c.seen[v]; ok {
		return Ref{Kind: RefNode, Node: i}, nil
	}
	return c.node(v)
}

func (c *capturer) node(v vm.Value) (Ref, error) {
	s := c.s
	cls := s.RealClassOf(v)
	n := Node{Class: cls.Name(), Frozen: s.IsFrozen(v)}
	switch {
	case s.StringFromValue(v) != nil && cls == s.StringClass:
		n.Kind = NodeString
		n.Str = s.StringFromValue(v).String()
	case s.ArrayFromValue(v) != nil && cls == s.ArrayClass:
		n.Kind = NodeArray
	case s.HashFromValue(v) != nil && cls == s.HashClass:
		n.Kind = NodeHash
	case s.RObjectFromValue(v) != nil && cls.Name() != "":
		n.Kind = NodeObject
	default:
		return Ref{}, fmt.Errorf("%w: %s", ErrUnsupported, s.TypeName(v))
	}

	// register before descending so cycles resolve to this node
	idx := len(c.nodes)
	c.seen[v] = idx
	c.nodes = append(c.nodes, n)

	var elems []Ref
	switch n.Kind {
	case NodeArray:
		for _, e := range s.ArrayFromValue(v).Elems() {
			r, err := c.ref(e)
			if err != nil {
				return Ref{}, err
			}
			elems = append(elems, r)
		}
	case NodeHash:
		h := s.HashFromValue(v)
		vals := h.Values()
		for i, k := range h.Keys() {
			kr, err := c.ref(k)
			if err != nil {
				return Ref{}, err
			}
			vr, err := c.ref(vals[i])
			if err != nil {
				return Ref{}, err
			}
			elems = append(elems, kr, vr)
		}
	}

	var ivars []IVar
	var ierr error
	s.IVForEach(v, func(sym vm.Symbol, val vm.Value) bool {
		r, err := c.ref(val)
		if err != nil {
			ierr = err
			return true
		}
		ivars = append(ivars, IVar{Name: s.SymName(sym), Value: r})
		return false
	})
	if ierr != nil {
		return Ref{}, ierr
	}

	c.nodes[idx].Elems = elems
	c.nodes[idx].IVars = ivars
	return Ref{Kind: RefNode, Node: idx}, nil
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

// Restore rebuilds the graph in s and returns the root value. Classes are
// resolved by name and must already be defined in s.
func (snap *Snapshot) Restore(s *vm.State) (vm.Value, error) {
	vals := make([]vm.Value, len(snap.Nodes))
	for i, n := range snap.Nodes {
		switch n.Kind {
		case NodeString:
			vals[i] = s.StringValue(n.Str)
		case NodeArray:
			vals[i] = s.NewArray().Value()
		case NodeHash:
			vals[i] = s.NewHash().Value()
		case NodeObject:
			cls := s.ClassByName(n.Class)
			if cls == nil {
				return vm.Nil, fmt.Errorf("snapshot: node %d: unknown class %q", i, n.Class)
			}
			vals[i] = s.NewObject(cls).Value()
		default:
			return vm.Nil, fmt.Errorf("snapshot: node %d: unknown kind %d", i, n.Kind)
		}
	}

	value := func(r Ref) (vm.Value, error) {
		switch r.Kind {
		case RefNil:
			return vm.Nil, nil
		case RefTrue:
			return vm.True, nil
		case RefFalse:
			return vm.False, nil
		case RefInt:
			return vm.IntValue(r.Int), nil
		case RefFloat:
			return vm.FromFloat64(math.Float64frombits(r.Bits)), nil
		case RefSymbol:
			return s.Sym(r.Name), nil
		case RefClass:
			cls := s.ClassByName(r.Name)
			if cls == nil {
				return vm.Nil, fmt.Errorf("snapshot: unknown class %q", r.Name)
			}
			return cls.Value(), nil
		case RefNode:
			if r.Node < 0 || r.Node >= len(vals) {
				return vm.Nil, fmt.Errorf("snapshot: node %d out of range", r.Node)
			}
			return vals[r.Node], nil
		}
		return vm.Nil, fmt.Errorf("snapshot: unknown ref kind %d", r.Kind)
	}

	for i, n := range snap.Nodes {
		elems := make([]vm.Value, len(n.Elems))
		for j, r := range n.Elems {
			v, err := value(r)
			if err != nil {
				return vm.Nil, err
			}
			elems[j] = v
		}
		switch n.Kind {
		case NodeArray:
			if err := s.ArrayPush(s.ArrayFromValue(vals[i]), elems...); err != nil {
				return vm.Nil, err
			}
		case NodeHash:
			if len(elems)%2 != 0 {
				return vm.Nil, fmt.Errorf("snapshot: node %d: odd hash entry count", i)
			}
			h := s.HashFromValue(vals[i])
			for j := 0; j < len(elems); j += 2 {
				if err := s.HashSet(h, elems[j], elems[j+1]); err != nil {
					return vm.Nil, err
				}
			}
		}
		for _, iv := range n.IVars {
			v, err := value(iv.Value)
			if err != nil {
				return vm.Nil, err
			}
			if err := s.IVSet(vals[i], s.Intern(iv.Name), v); err != nil {
				return vm.Nil, err
			}
		}
	}

	// freeze last so that containers can still be filled
	for i, n := range snap.Nodes {
		if n.Frozen {
			s.Freeze(vals[i])
		}
	}
	return value(snap.Root)
}
