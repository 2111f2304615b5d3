// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func buildByOut(t *testing.T, state *State, out string) *Build {
	t.Helper()
	for _, b := range state.Graph.Builds {
		for _, id := range b.Outs.ExplicitOuts() {
			if state.Graph.Files.ByID(id).Name == filepath.Clean(out) {
				return b
			}
		}
	}
	t.Fatalf("no build produces %q", out)
	return nil
}

func TestLoadPhonyAlias(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
build all: phony foo bar
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := buildByOut(t, state, "all")
	if b.RuleName != "phony" {
		t.Fatalf("RuleName = %q, want phony", b.RuleName)
	}
	if b.Ins.Explicit != 2 || b.Ins.Implicit != 0 || b.Ins.OrderOnly != 0 {
		t.Fatalf("Ins partition = %+v, want explicit=2", b.Ins)
	}
}

// Scope shadowing via subninja: a child manifest's scope mounts at the
// point the subninja statement appears, so it sees the top-level variable
// as it stood there, not as later reassigned.
func TestLoadSubninjaScopeShadowing(t *testing.T) {
	dir := t.TempDir()
	child := writeManifest(t, dir, "child.ninja", `
rule r
    command = $x
build out: r in
`)
	top := writeManifest(t, dir, "build.ninja", `
x = A
subninja `+child+`
x = B
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := buildByOut(t, state, "out")
	if b.Command != "A" {
		t.Fatalf("Command = %q, want %q", b.Command, "A")
	}
}

// include inlines textually at the including scope's current position, so
// a reassignment after the include is visible to statements that follow it.
func TestLoadIncludeOrdering(t *testing.T) {
	dir := t.TempDir()
	other := writeManifest(t, dir, "other.ninja", `
x = 2
`)
	top := writeManifest(t, dir, "build.ninja", `
x = 1
include `+other+`
rule r
    command = $x
build out: r in
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := buildByOut(t, state, "out")
	if b.Command != "2" {
		t.Fatalf("Command = %q, want %q", b.Command, "2")
	}
}

// Duplicate output within a single build statement: the CMake quirk. The
// graph finaliser collapses it without error and shrinks Explicit.
func TestLoadDuplicateOutputWithinOneBuild(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
rule r
    command = touch $out
build x x y: r in
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Graph.Builds) != 1 {
		t.Fatalf("len(Builds) = %d, want 1", len(state.Graph.Builds))
	}
	b := state.Graph.Builds[0]
	if len(b.Outs.Ids) != 2 {
		t.Fatalf("Outs.Ids = %v, want 2 entries", b.Outs.Ids)
	}
	if b.Outs.Explicit != 2 {
		t.Fatalf("Outs.Explicit = %d, want 2", b.Outs.Explicit)
	}
}

// Duplicate output across two distinct build statements is a hard
// ownership conflict, not the CMake quirk.
func TestLoadDuplicateOutputAcrossTwoBuilds(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
rule r
    command = touch $out
build x: r a
build x: r b
`)
	_, err := Load(top)
	if err == nil {
		t.Fatalf("Load: expected OwnershipError, got nil")
	}
	ownErr, ok := err.(*OwnershipError)
	if !ok {
		t.Fatalf("err = %T(%v), want *OwnershipError", err, err)
	}
	if ownErr.File != "x" {
		t.Fatalf("File = %q, want x", ownErr.File)
	}
	if ownErr.First.Line == 0 || ownErr.Second.Line == 0 {
		t.Fatalf("both locations should be populated: %+v", ownErr)
	}
}

func TestLoadUnknownRuleSuggestsDidYouMean(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
rule compile
    command = cc $in -o $out
build out: compiel in
`)
	_, err := Load(top)
	if err == nil {
		t.Fatalf("Load: expected ReferenceError, got nil")
	}
	refErr, ok := err.(*ReferenceError)
	if !ok {
		t.Fatalf("err = %T(%v), want *ReferenceError", err, err)
	}
	if refErr.Did_you_mean != "compile" {
		t.Fatalf("Did_you_mean = %q, want compile", refErr.Did_you_mean)
	}
}

func TestLoadDefaultsAndPools(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
pool link_pool
    depth = 4
rule r
    command = touch $out
    pool = link_pool
build a: r in
build b: r in
default a
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Defaults) != 1 {
		t.Fatalf("len(Defaults) = %d, want 1", len(state.Defaults))
	}
	if state.Graph.Files.ByID(state.Defaults[0]).Name != "a" {
		t.Fatalf("Defaults[0] names %q, want a", state.Graph.Files.ByID(state.Defaults[0]).Name)
	}
	pool, ok := state.Pools["link_pool"]
	if !ok || pool.Depth != 4 {
		t.Fatalf("Pools[link_pool] = %+v, ok=%v, want depth 4", pool, ok)
	}
	for _, b := range state.Graph.Builds {
		if b.Pool != "link_pool" {
			t.Fatalf("Build %s Pool = %q, want link_pool", b.RuleName, b.Pool)
		}
	}
}

func TestLoadDuplicatePoolIsError(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
pool p
    depth = 2
pool p
    depth = 4
`)
	_, err := Load(top)
	if err == nil {
		t.Fatalf("Load: expected DuplicationError, got nil")
	}
	if _, ok := err.(*DuplicationError); !ok {
		t.Fatalf("err = %T(%v), want *DuplicationError", err, err)
	}
}

func TestLoadBuilddirAndRequiredVersion(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
ninja_required_version = 1.1
builddir = out
rule r
    command = touch $out
build a: r in
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.Builddir != "out" {
		t.Fatalf("Builddir = %q, want out", state.Builddir)
	}
}

func TestLoadRequiredVersionTooNewFails(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
ninja_required_version = 999.0
rule r
    command = touch $out
build a: r in
`)
	_, err := Load(top)
	if err == nil {
		t.Fatalf("Load: expected version error, got nil")
	}
}

// The loader's output must not depend on how many workers raced to produce
// it: running the same manifest at parallelism 1 and parallelism 8 must
// yield the same set of files and the same per-build command strings.
func TestLoadDeterministicAcrossParallelism(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
rule r
    command = cc $in -o $out
build a.o: r a.c
build b.o: r b.c
build c.o: r c.c
build all: phony a.o b.o c.o
`)
	var commands [][]string
	for _, parallelism := range []int{1, 2, 8} {
		state, err := LoadWithOptions(top, LoadOptions{Parallelism: parallelism})
		if err != nil {
			t.Fatalf("Load(parallelism=%d): %v", parallelism, err)
		}
		seen := make(map[string]string)
		for _, b := range state.Graph.Builds {
			for _, id := range b.Outs.ExplicitOuts() {
				seen[state.Graph.Files.ByID(id).Name] = b.Command
			}
		}
		var flat []string
		for name, cmd := range seen {
			flat = append(flat, name+"="+cmd)
		}
		commands = append(commands, flat)
	}
	for i := 1; i < len(commands); i++ {
		if len(commands[i]) != len(commands[0]) {
			t.Fatalf("parallelism produced different build counts: %v vs %v", commands[0], commands[i])
		}
		counts := make(map[string]int)
		for _, e := range commands[0] {
			counts[e]++
		}
		for _, e := range commands[i] {
			counts[e]--
		}
		for e, c := range counts {
			if c != 0 {
				t.Fatalf("entry %q mismatched across parallelism settings", e)
			}
		}
	}
}

func TestLoadDependentsLinkBackToConsumingBuild(t *testing.T) {
	dir := t.TempDir()
	top := writeManifest(t, dir, "build.ninja", `
rule r
    command = touch $out
build out: r in1 in2
`)
	state, err := Load(top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := buildByOut(t, state, "out")
	in1, ok := state.Graph.Files.Lookup("in1")
	if !ok {
		t.Fatalf("in1 was never interned")
	}
	deps := in1.Dependents()
	if len(deps) != 1 || deps[0] != b.Id {
		t.Fatalf("in1.Dependents() = %v, want [%v]", deps, b.Id)
	}
}

// At parallelism=1, a subninja's own goroutine holds the pool's only
// permit while it parses its manifest — including submitting its own
// chunk-parsing tasks via the same executor. spawn must never make that
// goroutine wait on a permit only it itself can release, or this hangs
// forever. Guarded with a timeout so a regression fails the test instead
// of hanging the suite.
func TestLoadSubninjaAtParallelism1DoesNotDeadlock(t *testing.T) {
	dir := t.TempDir()
	child := writeManifest(t, dir, "child.ninja", `
rule r
    command = touch $out
build out: r in
`)
	top := writeManifest(t, dir, "build.ninja", `
subninja `+child+`
`)

	type loadResult struct {
		state *State
		err   error
	}
	done := make(chan loadResult, 1)
	go func() {
		state, err := LoadWithOptions(top, LoadOptions{Parallelism: 1})
		done <- loadResult{state: state, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Load: %v", r.err)
		}
		buildByOut(t, r.state, "out")
	case <-time.After(5 * time.Second):
		t.Fatalf("Load at parallelism=1 with a subninja statement did not return within 5s (deadlocked)")
	}
}

func TestLoadMissingManifestIsIOError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "does-not-exist.ninja"))
	if err == nil {
		t.Fatalf("Load: expected error, got nil")
	}
	if _, ok := err.(*IOError); !ok {
		t.Fatalf("err = %T(%v), want *IOError", err, err)
	}
}
