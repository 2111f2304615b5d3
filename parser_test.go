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

import "testing"

func parseOne(t *testing.T, input string) *statement {
	t.Helper()
	stmts, err := parseChunk("input", manifestChunk{text: input, startLine: 1})
	if err != nil {
		t.Fatalf("parseChunk(%q): %v", input, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("parseChunk(%q) = %d statements, want 1", input, len(stmts))
	}
	return stmts[0]
}

func evalOf(e EvalString) string { return e.Evaluate(nil, nil, 0) }

func TestParseVariableAssignment(t *testing.T) {
	st := parseOne(t, "x = hello\n")
	if st.kind != stmtVariable || st.varName != "x" || evalOf(st.varValue) != "hello" {
		t.Fatalf("got %+v", st)
	}
}

func TestParseRuleStatement(t *testing.T) {
	st := parseOne(t, "rule cc\n  command = $cc $in -o $out\n  description = CC $out\n")
	if st.kind != stmtRule || st.name != "cc" {
		t.Fatalf("got %+v", st)
	}
	if len(st.ruleVars) != 2 {
		t.Fatalf("ruleVars = %v", st.ruleVars)
	}
}

func TestParsePoolStatement(t *testing.T) {
	st := parseOne(t, "pool link_pool\n  depth = 4\n")
	if st.kind != stmtPool || st.name != "link_pool" {
		t.Fatalf("got %+v", st)
	}
	if evalOf(st.poolDepth) != "4" {
		t.Fatalf("poolDepth = %q", evalOf(st.poolDepth))
	}
}

func TestParseDefaultStatement(t *testing.T) {
	st := parseOne(t, "default foo bar\n")
	if st.kind != stmtDefault || len(st.defaultFiles) != 2 {
		t.Fatalf("got %+v", st)
	}
	if evalOf(st.defaultFiles[0]) != "foo" || evalOf(st.defaultFiles[1]) != "bar" {
		t.Fatalf("defaultFiles = %v", st.defaultFiles)
	}
}

func TestParseIncludeAndSubninja(t *testing.T) {
	st := parseOne(t, "include other.ninja\n")
	if st.kind != stmtInclude || evalOf(st.file) != "other.ninja" {
		t.Fatalf("got %+v", st)
	}
	st = parseOne(t, "subninja child.ninja\n")
	if st.kind != stmtSubninja || evalOf(st.file) != "child.ninja" {
		t.Fatalf("got %+v", st)
	}
}

// Scenario 1: phony alias.
func TestParsePhonyAlias(t *testing.T) {
	st := parseOne(t, "build all: phony foo bar\n")
	if st.kind != stmtBuild || st.buildRuleName != "phony" {
		t.Fatalf("got %+v", st)
	}
	if st.explicitOuts != 1 || evalOf(st.outs[0]) != "all" {
		t.Fatalf("outs = %v explicitOuts=%d", st.outs, st.explicitOuts)
	}
	if st.explicitIns != 2 || st.implicitIns != 0 || st.orderOnlyIns != 0 {
		t.Fatalf("ins partition = %d/%d/%d", st.explicitIns, st.implicitIns, st.orderOnlyIns)
	}
	if evalOf(st.ins[0]) != "foo" || evalOf(st.ins[1]) != "bar" {
		t.Fatalf("ins = %v", st.ins)
	}
}

// Full pipe separator coverage: implicit outs, implicit, order-only and
// validation ins.
func TestParseBuildAllSeparators(t *testing.T) {
	st := parseOne(t, "build a.o b.o | a.d : cc a.c b.c | header.h || order.txt |@ validate.txt\n")
	if st.buildRuleName != "cc" {
		t.Fatalf("rule = %q", st.buildRuleName)
	}
	if st.explicitOuts != 2 || len(st.outs) != 3 {
		t.Fatalf("outs = %v explicitOuts=%d", st.outs, st.explicitOuts)
	}
	if evalOf(st.outs[2]) != "a.d" {
		t.Fatalf("implicit out = %q", evalOf(st.outs[2]))
	}
	if st.explicitIns != 2 || st.implicitIns != 1 || st.orderOnlyIns != 1 {
		t.Fatalf("ins partition = %d/%d/%d (total %d)", st.explicitIns, st.implicitIns, st.orderOnlyIns, len(st.ins))
	}
	if len(st.ins) != 5 {
		t.Fatalf("ins = %v", st.ins)
	}
	if evalOf(st.ins[4]) != "validate.txt" {
		t.Fatalf("validation in = %q", evalOf(st.ins[4]))
	}
}

func TestParseBuildWithVars(t *testing.T) {
	st := parseOne(t, "build out: cc in\n  command = foo\n  pool = link_pool\n")
	if len(st.buildVars) != 2 {
		t.Fatalf("buildVars = %v", st.buildVars)
	}
	if evalOf(st.buildVars["command"]) != "foo" {
		t.Fatalf("command = %q", evalOf(st.buildVars["command"]))
	}
}

func TestParseBuildZeroInputs(t *testing.T) {
	st := parseOne(t, "build out: phony\n")
	if st.explicitIns != 0 || len(st.ins) != 0 {
		t.Fatalf("ins = %v", st.ins)
	}
}

func TestParseMultipleStatements(t *testing.T) {
	stmts, err := parseChunk("input", manifestChunk{text: "x = 1\ny = 2\nbuild out: phony in\n", startLine: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d statements", len(stmts))
	}
	if stmts[0].varName != "x" || stmts[1].varName != "y" || stmts[2].kind != stmtBuild {
		t.Fatalf("got %+v", stmts)
	}
}

func TestParseErrorUnknownRuleToken(t *testing.T) {
	_, err := parseChunk("input", manifestChunk{text: "build out :\n", startLine: 1})
	if err == nil {
		t.Fatal("expected error for missing rule name")
	}
}

func TestParseChunkLineNumbersUseStartLine(t *testing.T) {
	stmts, err := parseChunk("input", manifestChunk{text: "x = 1\n", startLine: 42})
	if err != nil {
		t.Fatal(err)
	}
	if stmts[0].loc.Line != 42 {
		t.Fatalf("loc.Line = %d, want 42", stmts[0].loc.Line)
	}
}
