package vm

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ember.vm")

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds the tunables of a State.
type Config struct {
	// MaxCallDepth bounds the number of nested calls on one Context.
	MaxCallDepth int
	// MaxShapedIVars is the number of instance variables an object keeps in
	// the shaped layout before switching to a table.
	MaxShapedIVars int
}

// Default limits.
const (
	DefaultMaxCallDepth   = 1024
	DefaultMaxShapedIVars = 8
)

// DefaultConfig returns the configuration used by NewState.
func DefaultConfig() Config {
	return Config{
		MaxCallDepth:   DefaultMaxCallDepth,
		MaxShapedIVars: DefaultMaxShapedIVars,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.MaxShapedIVars <= 0 {
		c.MaxShapedIVars = DefaultMaxShapedIVars
	}
	return c
}

// ---------------------------------------------------------------------------
// State: one interpreter instance
// ---------------------------------------------------------------------------

// State is one interpreter: its symbols, heap, class hierarchy and
// execution contexts. A State is single-threaded; independent States share
// nothing and may run on separate goroutines.
type State struct {
	symbols  *SymbolTable
	heap     *Heap
	classes  *ClassTable
	config   Config
	invoker  Invoker
	root     *Context
	contexts map[*Context]struct{}
	globals  map[Symbol]Value

	// Core hierarchy
	BasicObjectClass *RClass
	ObjectClass      *RClass
	ModuleClass      *RClass
	ClassClass       *RClass
	KernelModule     *RClass

	// Builtin classes
	NilClass           *RClass
	TrueClass          *RClass
	FalseClass         *RClass
	NumericClass       *RClass
	IntegerClass       *RClass
	FloatClass         *RClass
	SymbolClass        *RClass
	StringClass        *RClass
	ArrayClass         *RClass
	HashClass          *RClass
	ProcClass          *RClass
	MethodClass        *RClass
	UnboundMethodClass *RClass
	ComparableModule   *RClass

	// Exception hierarchy
	ExceptionClass      *RClass
	StandardError       *RClass
	RuntimeError        *RClass
	FrozenError         *RClass
	ArgumentError       *RClass
	TypeError           *RClass
	NameError           *RClass
	NoMethodError       *RClass
	IndexError          *RClass
	KeyError            *RClass
	RangeError          *RClass
	FloatDomainError    *RClass
	ZeroDivisionError   *RClass
	NotImplementedError *RClass
	SystemStackError    *RClass

	// Frequently used symbols
	symMethodMissing    Symbol
	symRespondToMissing Symbol
	symInitialize       Symbol
	symInitializeCopy   Symbol
	symInspect          Symbol
	symToS              Symbol
	symEq               Symbol
	symEql              Symbol
	symCmp              Symbol
	symHash             Symbol
	symCall             Symbol
	symMesg             Symbol
}

// NewState creates a State with the default configuration.
func NewState() *State {
	return NewStateWithConfig(DefaultConfig())
}

// NewStateWithConfig creates a fully bootstrapped State.
func NewStateWithConfig(cfg Config) *State {
	s := &State{
		symbols:  NewSymbolTable(),
		heap:     newHeap(),
		classes:  NewClassTable(),
		config:   cfg.withDefaults(),
		contexts: make(map[*Context]struct{}),
		globals:  make(map[Symbol]Value),
	}
	s.invoker = defaultInvoker{}
	s.root = s.NewContext()
	s.internCommonSymbols()
	s.bootstrap()
	log.Debugf("state ready: %d classes, %d symbols", s.classes.Len(), s.symbols.Len())
	return s
}

func (s *State) internCommonSymbols() {
	s.symMethodMissing = s.symbols.Intern("method_missing")
	s.symRespondToMissing = s.symbols.Intern("respond_to_missing?")
	s.symInitialize = s.symbols.Intern("initialize")
	s.symInitializeCopy = s.symbols.Intern("initialize_copy")
	s.symInspect = s.symbols.Intern("inspect")
	s.symToS = s.symbols.Intern("to_s")
	s.symEq = s.symbols.Intern("==")
	s.symEql = s.symbols.Intern("eql?")
	s.symCmp = s.symbols.Intern("<=>")
	s.symHash = s.symbols.Intern("hash")
	s.symCall = s.symbols.Intern("call")
	s.symMesg = s.symbols.Intern("mesg")
}

// bootstrap builds the class hierarchy and installs the builtin methods.
func (s *State) bootstrap() {
	// Phase 1: BasicObject, Object, Module and Class refer to each other, so
	// they are allocated unlinked and patched together.
	s.BasicObjectClass = s.allocClass(TTClass, nil, "BasicObject", nil)
	s.ObjectClass = s.allocClass(TTClass, nil, "Object", s.BasicObjectClass)
	s.ModuleClass = s.allocClass(TTClass, nil, "Module", s.ObjectClass)
	s.ClassClass = s.allocClass(TTClass, nil, "Class", s.ModuleClass)
	core := []*RClass{s.BasicObjectClass, s.ObjectClass, s.ModuleClass, s.ClassClass}
	for _, c := range core {
		c.class = s.ClassClass
	}
	for _, c := range core {
		s.nameClass(c, c.name)
		s.singletonClassOfClass(c)
	}

	// Phase 2: Kernel and the builtin value classes.
	s.KernelModule = s.MustDefineModule("Kernel")
	if err := s.IncludeModule(s.ObjectClass, s.KernelModule); err != nil {
		panic(err)
	}
	s.ComparableModule = s.MustDefineModule("Comparable")
	s.NilClass = s.MustDefineClass("NilClass", s.ObjectClass)
	s.TrueClass = s.MustDefineClass("TrueClass", s.ObjectClass)
	s.FalseClass = s.MustDefineClass("FalseClass", s.ObjectClass)
	s.NumericClass = s.MustDefineClass("Numeric", s.ObjectClass)
	s.IntegerClass = s.MustDefineClass("Integer", s.NumericClass)
	s.FloatClass = s.MustDefineClass("Float", s.NumericClass)
	s.SymbolClass = s.MustDefineClass("Symbol", s.ObjectClass)
	s.StringClass = s.MustDefineClass("String", s.ObjectClass)
	s.ArrayClass = s.MustDefineClass("Array", s.ObjectClass)
	s.HashClass = s.MustDefineClass("Hash", s.ObjectClass)
	s.ProcClass = s.MustDefineClass("Proc", s.ObjectClass)
	s.MethodClass = s.MustDefineClass("Method", s.ObjectClass)
	s.UnboundMethodClass = s.MustDefineClass("UnboundMethod", s.ObjectClass)

	// Phase 3: exceptions.
	s.bootstrapExceptionClasses()

	// Phase 4: methods.
	s.initKernel()
	s.initModule()
	s.initProc()
	s.initMethod()
	s.initNil()
	s.initBoolean()
	s.initNumeric()
	s.initSymbol()
	s.initString()
	s.initArray()
	s.initHash()
	s.initException()
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Symbols returns the symbol table.
func (s *State) Symbols() *SymbolTable { return s.symbols }

// Heap returns the object heap.
func (s *State) Heap() *Heap { return s.heap }

// Config returns the active configuration.
func (s *State) Config() Config { return s.config }

// Root returns the context used when callers pass a nil *Context.
func (s *State) Root() *Context { return s.root }

// Intern interns name.
func (s *State) Intern(name string) Symbol { return s.symbols.Intern(name) }

// SymName returns the text of sym.
func (s *State) SymName(sym Symbol) string { return s.symbols.Name(sym) }

// Sym returns name interned as a Symbol value.
func (s *State) Sym(name string) Value { return FromSymbol(s.symbols.Intern(name)) }

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

// GVGet returns the global variable sym, or Nil.
func (s *State) GVGet(sym Symbol) Value {
	if v, ok := s.globals[sym]; ok {
		return v
	}
	return Nil
}

// GVSet assigns the global variable sym.
func (s *State) GVSet(sym Symbol, v Value) {
	s.globals[sym] = v
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// GC runs a full collection. Roots are the registered classes, globals,
// every open context and the extra values given by the caller.
func (s *State) GC(extra ...Value) int {
	return s.heap.collect(func(m *marker) {
		for _, c := range s.classes.All() {
			m.object(c)
		}
		for _, v := range s.globals {
			m.value(v)
		}
		for c := range s.contexts {
			c.mark(m)
		}
		for _, v := range extra {
			m.value(v)
		}
	})
}
