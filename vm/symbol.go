package vm

import "sync"

// Symbol names a method, variable or constant. Equal names intern to the
// same Symbol for the life of a State.
type Symbol uint32

// NoSymbol stands for a missing name; Intern never returns it.
const NoSymbol Symbol = 0

// SymbolTable maps names to Symbols. It is safe for concurrent use.
//
// names[0] is a placeholder for NoSymbol, so a Symbol indexes names
// directly.
type SymbolTable struct {
	mu    sync.RWMutex
	index map[string]Symbol
	names []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		index: make(map[string]Symbol, 256),
		names: append(make([]string, 0, 256), ""),
	}
}

// Intern returns the Symbol for name, allocating one on first use.
func (st *SymbolTable) Intern(name string) Symbol {
	if sym, ok := st.Lookup(name); ok {
		return sym
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if sym, ok := st.index[name]; ok {
		return sym
	}
	sym := Symbol(len(st.names))
	st.names = append(st.names, name)
	st.index[name] = sym
	return sym
}

// Lookup reports the Symbol for name without allocating one.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	st.mu.RLock()
	sym, ok := st.index[name]
	st.mu.RUnlock()
	return sym, ok
}

// Name is the inverse of Intern. Unknown symbols and NoSymbol map to "".
func (st *SymbolTable) Name(sym Symbol) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if sym == NoSymbol || int(sym) >= len(st.names) {
		return ""
	}
	return st.names[sym]
}

// Len counts interned names.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.index)
}

func (st *SymbolTable) SymbolValue(name string) Value {
	return FromSymbol(st.Intern(name))
}
