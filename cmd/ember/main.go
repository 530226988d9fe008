// Ember CLI - format strings and manage stored snapshots
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/ember/manifest"
	"github.com/chazu/ember/vm"
	"github.com/chazu/ember/vm/sprintf"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env carries what every subcommand needs.
type env struct {
	m         *manifest.Manifest
	storePath string
	stdout    io.Writer
	stderr    io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ember", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Int("v", 0, "Log verbosity (0 = warnings only)")
	dir := fs.String("C", ".", "Directory to search for ember.toml / ember.yaml")
	storeFlag := fs.String("store", "", "Snapshot database (overrides [store] path)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ember [options] <command> [args...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nCommands:\n")
		fmt.Fprintf(stderr, "  format FMT [ARGS...]      Render FMT with Kernel#format\n")
		fmt.Fprintf(stderr, "  store list                List stored snapshots\n")
		fmt.Fprintf(stderr, "  store put NAME [ARGS...]  Store ARGS as an array snapshot\n")
		fmt.Fprintf(stderr, "  store show NAME           Inspect a stored snapshot\n")
		fmt.Fprintf(stderr, "  store drop NAME           Delete a stored snapshot\n")
		fmt.Fprintf(stderr, "\nArguments are read as integers, floats, nil, true, false,\n")
		fmt.Fprintf(stderr, ":symbols or strings. format -named takes key=value pairs.\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil && !errors.Is(err, manifest.ErrNotFound) {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil {
		m = &manifest.Manifest{}
	}

	configureLogging(m, *verbose)

	e := &env{m: m, storePath: *storeFlag, stdout: stdout, stderr: stderr}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	switch rest[0] {
	case "format", "fmt":
		err = e.format(rest[1:])
	case "store":
		err = e.store(rest[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// configureLogging applies the manifest [log] section; -v wins when set.
func configureLogging(m *manifest.Manifest, verbose int) {
	verbosity := m.Log.Verbosity
	if verbose > 0 {
		verbosity = verbose
	}
	var path *string
	if f := m.LogFile(); f != "" {
		path = &f
	}
	commonlog.Configure(verbosity, path)
}

// newState builds a State from the manifest [vm] section.
func (e *env) newState() *vm.State {
	return vm.NewStateWithConfig(e.m.VMConfig())
}

// ---------------------------------------------------------------------------
// format
// ---------------------------------------------------------------------------

func (e *env) format(args []string) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	named := fs.Bool("named", false, "Pass key=value arguments as one hash")
	noNewline := fs.Bool("n", false, "Do not print a trailing newline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("format: missing format string")
	}

	s := e.newState()
	f := sprintf.New(s)
	if max := e.m.Format.MaxSize; max > 0 {
		f.MaxSize = max
	}

	var vals []vm.Value
	if *named {
		h, err := parseNamed(s, fs.Args()[1:])
		if err != nil {
			return err
		}
		vals = []vm.Value{h}
	} else {
		vals = parseArgs(s, fs.Args()[1:])
	}

	out, err := f.Format(s.Root(), fs.Arg(0), vals)
	if err != nil {
		return err
	}
	if *noNewline {
		fmt.Fprint(e.stdout, out)
	} else {
		fmt.Fprintln(e.stdout, out)
	}
	return nil
}

// parseLiteral reads a command-line argument as an ember value.
func parseLiteral(s *vm.State, arg string) vm.Value {
	switch arg {
	case "nil":
		return vm.Nil
	case "true":
		return vm.True
	case "false":
		return vm.False
	}
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return vm.IntValue(n)
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil && strings.ContainsAny(arg, ".eE") {
		return vm.FromFloat64(f)
	}
	if len(arg) > 1 && arg[0] == ':' {
		return s.Sym(arg[1:])
	}
	return s.StringValue(arg)
}

func parseArgs(s *vm.State, args []string) []vm.Value {
	vals := make([]vm.Value, len(args))
	for i, a := range args {
		vals[i] = parseLiteral(s, a)
	}
	return vals
}

// parseNamed builds a symbol-keyed Hash from key=value arguments.
func parseNamed(s *vm.State, args []string) (vm.Value, error) {
	h := s.NewHash()
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return vm.Nil, fmt.Errorf("format: expected key=value, got %q", a)
		}
		if err := s.HashSet(h, s.Sym(k), parseLiteral(s, v)); err != nil {
			return vm.Nil, err
		}
	}
	return h.Value(), nil
}
