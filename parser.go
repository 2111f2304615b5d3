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

import "fmt"

// parseChunk tokenises one manifestChunk in full and returns every
// top-level statement it contains, in textual order. It never mutates a
// Scope and never recurses into include/subninja targets: the loader
// orchestrator owns both of those, since only it knows the scope a chunk's
// statements are destined for and the position each should be assigned.
func parseChunk(filename string, chunk manifestChunk) ([]*statement, error) {
	l := newLexerAt(filename, chunk.text, chunk.startLine)
	var stmts []*statement

	for {
		tok, err := l.readToken()
		if err != nil {
			return stmts, err
		}

		var st *statement
		switch tok {
		case TEOF:
			return stmts, nil
		case NEWLINE:
			continue
		case BUILD:
			st, err = parseBuildStmt(l, filename)
		case RULE:
			st, err = parseRuleStmt(l, filename)
		case POOL:
			st, err = parsePoolStmt(l, filename)
		case DEFAULT:
			st, err = parseDefaultStmt(l, filename)
		case INCLUDE:
			st, err = parseIncludeLikeStmt(l, filename, stmtInclude)
		case SUBNINJA:
			st, err = parseIncludeLikeStmt(l, filename, stmtSubninja)
		case IDENT:
			l.unreadToken()
			st, err = parseVariableStmt(l, filename)
		default:
			err = l.error(fmt.Sprintf("unexpected %s", tok))
		}
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, st)
	}
}

// parsePathList reads a space-separated run of $-escaped paths, stopping
// (without consuming) at the next unescaped space-adjacent ':'/'|'/'||'/
// newline. Returns a nil slice if there are no further paths.
func parsePathList(l *lexer) ([]EvalString, error) {
	var paths []EvalString
	for {
		var p EvalString
		if err := l.readPath(&p); err != nil {
			return nil, err
		}
		if len(p.Parts) == 0 {
			return paths, nil
		}
		paths = append(paths, p)
		l.eatWhitespace()
	}
}

// parseIndentedVars drains the indented "name = value" lines that follow a
// rule/pool/build header, in the order they appear.
func parseIndentedVars(l *lexer) (map[string]EvalString, error) {
	vars := make(map[string]EvalString)
	for {
		isIndent, err := l.peekToken(INDENT)
		if err != nil {
			return nil, err
		}
		if !isIndent {
			return vars, nil
		}
		name, err := l.readIdent()
		if err != nil {
			return nil, err
		}
		if err := l.expectToken(EQUALS); err != nil {
			return nil, err
		}
		var value EvalString
		if err := l.readVarValue(&value); err != nil {
			return nil, err
		}
		vars[name] = value
	}
}

func parseVariableStmt(l *lexer, filename string) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}
	name, err := l.readIdent()
	if err != nil {
		return nil, err
	}
	if err := l.expectToken(EQUALS); err != nil {
		return nil, err
	}
	var value EvalString
	if err := l.readVarValue(&value); err != nil {
		return nil, err
	}
	return &statement{kind: stmtVariable, loc: loc, varName: name, varValue: value}, nil
}

func parseRuleStmt(l *lexer, filename string) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}
	name, err := l.readIdent()
	if err != nil {
		return nil, err
	}
	if err := l.expectToken(NEWLINE); err != nil {
		return nil, err
	}
	vars, err := parseIndentedVars(l)
	if err != nil {
		return nil, err
	}
	return &statement{kind: stmtRule, loc: loc, name: name, ruleVars: vars}, nil
}

func parsePoolStmt(l *lexer, filename string) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}
	name, err := l.readIdent()
	if err != nil {
		return nil, err
	}
	if err := l.expectToken(NEWLINE); err != nil {
		return nil, err
	}
	vars, err := parseIndentedVars(l)
	if err != nil {
		return nil, err
	}
	return &statement{kind: stmtPool, loc: loc, name: name, poolDepth: vars["depth"]}, nil
}

func parseDefaultStmt(l *lexer, filename string) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}
	files, err := parsePathList(l)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, l.error("expected target name")
	}
	if err := l.expectToken(NEWLINE); err != nil {
		return nil, err
	}
	return &statement{kind: stmtDefault, loc: loc, defaultFiles: files}, nil
}

func parseIncludeLikeStmt(l *lexer, filename string, kind stmtKind) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}
	var file EvalString
	if err := l.readPath(&file); err != nil {
		return nil, err
	}
	if len(file.Parts) == 0 {
		return nil, l.error("expected path")
	}
	if err := l.expectToken(NEWLINE); err != nil {
		return nil, err
	}
	return &statement{kind: kind, loc: loc, file: file}, nil
}

func parseBuildStmt(l *lexer, filename string) (*statement, error) {
	loc := FileLoc{Filename: filename, Line: l.currentLine()}

	outs, err := parsePathList(l)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, l.error("expected path")
	}
	explicitOuts := len(outs)

	tok, err := l.readToken()
	if err != nil {
		return nil, err
	}
	if tok == PIPE {
		implicitOuts, err := parsePathList(l)
		if err != nil {
			return nil, err
		}
		outs = append(outs, implicitOuts...)
		if tok, err = l.readToken(); err != nil {
			return nil, err
		}
	}
	if tok != COLON {
		return nil, l.error(fmt.Sprintf("expected ':', got %s%s", tok, tok.errorHint()))
	}

	tok, err = l.readToken()
	if err != nil {
		return nil, err
	}
	if tok != IDENT {
		return nil, l.error(fmt.Sprintf("expected build command name, got %s", tok))
	}
	l.unreadToken()
	ruleName, err := l.readIdent()
	if err != nil {
		return nil, err
	}

	ins, err := parsePathList(l)
	if err != nil {
		return nil, err
	}
	explicitIns := len(ins)
	implicitIns := 0
	orderOnlyIns := 0

	if tok, err = l.readToken(); err != nil {
		return nil, err
	}
	if tok == PIPE {
		implicit, err := parsePathList(l)
		if err != nil {
			return nil, err
		}
		ins = append(ins, implicit...)
		implicitIns = len(implicit)
		if tok, err = l.readToken(); err != nil {
			return nil, err
		}
	}
	if tok == PIPE2 {
		orderOnly, err := parsePathList(l)
		if err != nil {
			return nil, err
		}
		ins = append(ins, orderOnly...)
		orderOnlyIns = len(orderOnly)
		if tok, err = l.readToken(); err != nil {
			return nil, err
		}
	}
	if tok == PIPEAT {
		validation, err := parsePathList(l)
		if err != nil {
			return nil, err
		}
		ins = append(ins, validation...)
		if tok, err = l.readToken(); err != nil {
			return nil, err
		}
	}
	if tok != NEWLINE {
		return nil, l.error(fmt.Sprintf("expected newline, got %s", tok))
	}

	vars, err := parseIndentedVars(l)
	if err != nil {
		return nil, err
	}

	return &statement{
		kind:          stmtBuild,
		loc:           loc,
		buildRuleName: ruleName,
		outs:          outs,
		explicitOuts:  explicitOuts,
		ins:           ins,
		explicitIns:   explicitIns,
		implicitIns:   implicitIns,
		orderOnlyIns:  orderOnlyIns,
		buildVars:     vars,
	}, nil
}
