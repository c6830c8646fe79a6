package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepositoryHonoursLayerBoundaries(t *testing.T) {
	t.Chdir("..")
	for _, v := range collectViolations("contexts") {
		t.Errorf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
	}
}

func TestCollectViolationsFlagsForbiddenImports(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "contexts/ballot/tally/domain/entities/vote.go", `package entities

import (
	"time"

	_ "evoting/contexts/ballot/tally/adapters/memory"
)

var _ time.Time
`)
	writeSource(t, root, "contexts/ballot/tally/application/commands/cast.go", `package commands

import _ "evoting/contexts/identity-access/staff-accounts/ports"
`)
	writeSource(t, root, "contexts/ballot/tally/ports/ports.go", `package ports

import _ "evoting/contexts/ballot/tally/domain/entities"
`)
	t.Chdir(root)

	rules := make(map[string]bool)
	for _, v := range collectViolations("contexts") {
		rules[v.Rule] = true
	}
	for _, want := range []string{
		"domain must not import adapters",
		"domain import is outside explicit allowlist",
		"cross-module imports are forbidden",
		"application import is outside explicit allowlist",
	} {
		if !rules[want] {
			t.Fatalf("expected violation %q, got %v", want, rules)
		}
	}
	if len(rules) != 4 {
		t.Fatalf("expected only the four planted violations, got %v", rules)
	}
}

func writeSource(t *testing.T, root string, rel string, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}
