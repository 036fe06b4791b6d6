package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDefaultsCommand(t *testing.T) {
	out, err := execute(t, "defaults")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "threshold_mV: 2700") || !strings.Contains(out, "counter_hz: 32768") {
		t.Fatalf("defaults output:\n%s", out)
	}
}

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	doc := "name: cli\nintervals: 3\nconfig: {interval_ms: 1000}\nfaults: [{at: 1.5, rail: primary}]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"name: cli", "outcome: completed", "active_rail: backup", "no-power-gap"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_MissingFile(t *testing.T) {
	if _, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing scenario accepted")
	}
}
