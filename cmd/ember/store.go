package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/chazu/ember/store"
)

// openStore resolves the database path: -store, then [store] path, then
// store.DefaultPath.
func (e *env) openStore() (*store.Store, error) {
	path := e.storePath
	if path == "" {
		path = e.m.StorePath()
	}
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func (e *env) store(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("store: expected list, put, show or drop")
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "list", "ls":
		return e.storeList(st)
	case "put":
		if len(args) == 0 {
			return fmt.Errorf("store put: missing name")
		}
		s := e.newState()
		return st.SaveValue(s, args[0], s.ArrayValue(parseArgs(s, args[1:])...))
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("store show: expected one name")
		}
		s := e.newState()
		v, err := st.LoadValue(s, args[0])
		if err != nil {
			return err
		}
		str, err := s.Inspect(s.Root(), v)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, str)
		return nil
	case "drop", "rm":
		if len(args) != 1 {
			return fmt.Errorf("store drop: expected one name")
		}
		return st.Delete(args[0])
	}
	return fmt.Errorf("store: unknown command %q", cmd)
}

func (e *env) storeList(st *store.Store) error {
	entries, err := st.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tSAVED")
	for _, en := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", en.Name, en.Size, en.SavedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
