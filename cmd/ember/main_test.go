package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestFormatCommand(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"format", "%05.1f|%-4s|%x", "3.14159", "ab", "255"}, "003.1|ab  |ff\n"},
		{[]string{"format", "%s %s %s", "nil", ":sym", "true"}, " sym true\n"},
		{[]string{"format", "-n", "%d", "42"}, "42"},
		{[]string{"format", "-named", "%<a>d-%{b}", "a=7", "b=x"}, "7-x\n"},
	}
	for _, tc := range tests {
		code, out, errOut := runCLI(t, append([]string{"-C", dir}, tc.args...)...)
		if code != 0 {
			t.Errorf("%v: exit %d, stderr %s", tc.args, code, errOut)
			continue
		}
		if out != tc.want {
			t.Errorf("%v = %q, want %q", tc.args, out, tc.want)
		}
	}
}

func TestFormatErrors(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := runCLI(t, "-C", dir, "format", "%d")
	if code != 1 || !strings.Contains(errOut, "too few arguments") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
	code, _, errOut = runCLI(t, "-C", dir, "format", "-named", "%{a}", "novalue")
	if code != 1 || !strings.Contains(errOut, "key=value") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestFormatMaxSizeFromManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ember.toml"), []byte("[format]\nmax-size = 256\n"), 0644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "-C", dir, "format", "%1000d", "1")
	if code != 1 || !strings.Contains(errOut, "too big specifier") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestStoreCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "snaps.db")
	base := []string{"-C", dir, "-store", db}
	cli := func(args ...string) (int, string, string) {
		return runCLI(t, append(append([]string{}, base...), args...)...)
	}

	if code, _, errOut := cli("store", "put", "nums", "1", "2.5", "hi", ":k"); code != 0 {
		t.Fatalf("put: exit %d, %s", code, errOut)
	}
	code, out, _ := cli("store", "show", "nums")
	if code != 0 || out != "[1, 2.5, \"hi\", :k]\n" {
		t.Errorf("show = %d %q", code, out)
	}
	code, out, _ = cli("store", "list")
	if code != 0 || !strings.Contains(out, "nums") || !strings.HasPrefix(out, "NAME") {
		t.Errorf("list = %d %q", code, out)
	}
	if code, _, errOut := cli("store", "drop", "nums"); code != 0 {
		t.Errorf("drop: exit %d, %s", code, errOut)
	}
	code, _, errOut := cli("store", "show", "nums")
	if code != 1 || !strings.Contains(errOut, "snapshot not found") {
		t.Errorf("show after drop = %d %q", code, errOut)
	}
}

func TestStorePathFromManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ember.yaml"), []byte("store:\n  path: data/s.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, "-C", dir, "store", "put", "x"); code != 0 {
		t.Fatalf("put: exit %d, %s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "s.db")); err != nil {
		t.Errorf("database not created at manifest path: %v", err)
	}
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCLI(t, "-C", t.TempDir())
	if code != 2 || !strings.Contains(errOut, "Usage: ember") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
	code, _, _ = runCLI(t, "-C", t.TempDir(), "bogus")
	if code != 2 {
		t.Errorf("unknown command exit = %d, want 2", code)
	}
}
