package vm

// ---------------------------------------------------------------------------
// Shapes: shared instance-variable layouts
// ---------------------------------------------------------------------------

// Shape describes the ordered set of instance variable names held by an
// object using the shaped layout. Shapes form a transition tree rooted at
// a class: adding a variable moves an object to the child shape, so objects
// of one class that set the same variables in the same order share shapes.
type Shape struct {
	parent      *Shape
	key         Symbol
	size        int
	transitions map[Symbol]*Shape
}

func newRootShape() *Shape {
	return &Shape{}
}

// Len returns the number of variables described by the shape.
func (sh *Shape) Len() int { return sh.size }

// indexOf returns the slot index of key, or -1.
func (sh *Shape) indexOf(key Symbol) int {
	for p := sh; p != nil && p.size > 0; p = p.parent {
		if p.key == key {
			return p.size - 1
		}
	}
	return -1
}

// with returns the child shape that adds key after the current layout.
func (sh *Shape) with(key Symbol) *Shape {
	if next, ok := sh.transitions[key]; ok {
		return next
	}
	next := &Shape{parent: sh, key: key, size: sh.size + 1}
	if sh.transitions == nil {
		sh.transitions = make(map[Symbol]*Shape)
	}
	sh.transitions[key] = next
	return next
}

// keys returns the variable names in slot order.
func (sh *Shape) keys() []Symbol {
	out := make([]Symbol, sh.size)
	for p := sh; p != nil && p.size > 0; p = p.parent {
		out[p.size-1] = p.key
	}
	return out
}

// rootShapeFor returns the shape tree root for instances of c.
func (c *RClass) rootShapeFor() *Shape {
	if c.rootShape == nil {
		c.rootShape = newRootShape()
	}
	return c.rootShape
}
