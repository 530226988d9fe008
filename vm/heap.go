package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Heap: allocation table, write barrier and a stop-the-world collector
// ---------------------------------------------------------------------------

var heapLog = commonlog.GetLogger("ember.heap")

// Collector colors stored in the 3-bit header field.
const (
	colorWhite uint8 = 0
	colorGray  uint8 = 1
	colorBlack uint8 = 2
	colorOld   uint8 = 4 // survived at least one collection
)

// HeapStats holds counters describing the heap.
type HeapStats struct {
	Live          int
	Allocated     uint64
	Freed         uint64
	Barriers      uint64
	Remembered    int
	Collections   int
	LastSweep     time.Duration
	LastCollected int
}

// Heap owns every heap object of a State. Values refer to objects by
// allocation id; ids of collected objects are reused.
type Heap struct {
	objects    []HeapObject // index = allocation id; slot 0 unused
	free       []uint32
	remembered map[uint32]struct{}
	stats      HeapStats
}

func newHeap() *Heap {
	return &Heap{
		objects:    make([]HeapObject, 1, 1024),
		remembered: make(map[uint32]struct{}),
	}
}

// add registers o and assigns its allocation id.
func (h *Heap) add(o HeapObject) Value {
	b := o.Basic()
	var id uint32
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[id] = o
	} else {
		id = uint32(len(h.objects))
		h.objects = append(h.objects, o)
	}
	b.id = id
	h.stats.Live++
	h.stats.Allocated++
	return fromObjectID(id)
}

// Get returns the object referenced by v, or nil for immediates and
// dangling ids.
func (h *Heap) Get(v Value) HeapObject {
	if !v.IsObject() {
		return nil
	}
	id := v.ObjectID()
	if int(id) >= len(h.objects) {
		return nil
	}
	return h.objects[id]
}

// WriteBarrier must be called whenever a Value is stored into a field of
// parent. Stores of young objects into old ones are remembered.
func (h *Heap) WriteBarrier(parent HeapObject, child Value) {
	h.stats.Barriers++
	if !child.IsObject() || parent == nil {
		return
	}
	pb := parent.Basic()
	if pb.color()&colorOld == 0 {
		return
	}
	if c := h.Get(child); c != nil && c.Basic().color()&colorOld == 0 {
		h.remembered[pb.id] = struct{}{}
	}
}

// barrierObject is WriteBarrier for stores of direct object pointers.
func (h *Heap) barrierObject(parent HeapObject, child HeapObject) {
	if child == nil {
		h.stats.Barriers++
		return
	}
	h.WriteBarrier(parent, child.Basic().Value())
}

// Remembered reports whether parent is in the remembered set.
func (h *Heap) Remembered(parent HeapObject) bool {
	_, ok := h.remembered[parent.Basic().id]
	return ok
}

// Stats returns a snapshot of heap counters.
func (h *Heap) Stats() HeapStats {
	st := h.stats
	st.Remembered = len(h.remembered)
	return st
}

// marker drives the mark phase with an explicit gray stack.
type marker struct {
	h    *Heap
	gray []HeapObject
}

func (m *marker) value(v Value) {
	if o := m.h.Get(v); o != nil {
		m.object(o)
	}
}

// class marks a class pointer; a nil *RClass must not reach object as a
// non-nil interface.
func (m *marker) class(c *RClass) {
	if c != nil {
		m.object(c)
	}
}

func (m *marker) object(o HeapObject) {
	if o == nil {
		return
	}
	b := o.Basic()
	if b.id == 0 || b.color()&colorBlack != 0 || b.color()&colorGray != 0 {
		return
	}
	b.setColor((b.color() & colorOld) | colorGray)
	m.gray = append(m.gray, o)
}

// collect marks everything reachable from the roots reported by markRoots
// and frees the rest. It returns the number of objects freed.
func (h *Heap) collect(markRoots func(m *marker)) int {
	start := time.Now()
	m := &marker{h: h}
	markRoots(m)
	for len(m.gray) > 0 {
		o := m.gray[len(m.gray)-1]
		m.gray = m.gray[:len(m.gray)-1]
		b := o.Basic()
		b.setColor((b.color() & colorOld) | colorBlack)
		o.mark(m)
	}

	freed := 0
	for id := 1; id < len(h.objects); id++ {
		o := h.objects[id]
		if o == nil {
			continue
		}
		b := o.Basic()
		if b.color()&colorBlack == 0 {
			h.objects[id] = nil
			h.free = append(h.free, uint32(id))
			b.id = 0
			freed++
			continue
		}
		b.setColor(colorOld | colorWhite)
	}
	clear(h.remembered)

	h.stats.Live -= freed
	h.stats.Freed += uint64(freed)
	h.stats.Collections++
	h.stats.LastCollected = freed
	h.stats.LastSweep = time.Since(start)
	heapLog.Debugf("collection %d: freed %d, live %d in %v",
		h.stats.Collections, freed, h.stats.Live, h.stats.LastSweep)
	return freed
}
