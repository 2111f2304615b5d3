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
	"fmt"
	"strings"
)

// Token is the lexer's statement-stream vocabulary: the out-of-scope
// byte-level tokeniser is specified only by this stream (spec.md §1/§4.1).
type Token int

const (
	ERROR Token = iota
	BUILD
	COLON
	DEFAULT
	EQUALS
	IDENT
	INCLUDE
	INDENT
	NEWLINE
	PIPE
	PIPE2
	PIPEAT
	POOL
	RULE
	SUBNINJA
	TEOF
)

func (t Token) String() string {
	switch t {
	case ERROR:
		return "lexing error"
	case BUILD:
		return "'build'"
	case COLON:
		return "':'"
	case DEFAULT:
		return "'default'"
	case EQUALS:
		return "'='"
	case IDENT:
		return "identifier"
	case INCLUDE:
		return "'include'"
	case INDENT:
		return "indent"
	case NEWLINE:
		return "newline"
	case PIPE2:
		return "'||'"
	case PIPEAT:
		return "'|@'"
	case PIPE:
		return "'|'"
	case POOL:
		return "'pool'"
	case RULE:
		return "'rule'"
	case SUBNINJA:
		return "'subninja'"
	case TEOF:
		return "eof"
	}
	return "unknown token"
}

func (t Token) errorHint() string {
	if t == COLON {
		return " ($ also escapes ':')"
	}
	return ""
}

var keywords = map[string]Token{
	"build":    BUILD,
	"default":  DEFAULT,
	"include":  INCLUDE,
	"pool":     POOL,
	"rule":     RULE,
	"subninja": SUBNINJA,
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// lexer tokenises one manifest's bytes. It is not safe for concurrent use;
// each chunk dispatched by the loader's chunk splitter gets its own lexer.
type lexer struct {
	filename  string
	input     string
	ofs       int
	lastToken int
	startLine int
}

// newLexer creates a lexer over input, which need not be the whole
// manifest file — splitIntoChunks (statement.go) hands each worker a
// self-contained slice aligned on statement boundaries. Line numbers in
// diagnostics are relative to the start of the whole manifest, not the
// chunk: callers that lex a sub-slice should use newLexerAt.
func newLexer(filename, input string) *lexer {
	return newLexerAt(filename, input, 1)
}

// newLexerAt is newLexer for a chunk that begins at startLine within its
// containing manifest (1-based), so error messages report true manifest
// line numbers even though parsing happens on an independent sub-slice.
func newLexerAt(filename, input string, startLine int) *lexer {
	return &lexer{filename: filename, input: input + "\x00", ofs: 0, lastToken: -1, startLine: startLine}
}

// lineAndColOf returns the 1-based manifest line number and 0-based column
// of byte offset ofs within this lexer's input.
func (l *lexer) lineAndColOf(ofs int) (line, col int) {
	line = l.startLine
	lineStart := 0
	for p := 0; p < ofs && p < len(l.input); p++ {
		if l.input[p] == '\n' {
			line++
			lineStart = p + 1
		}
	}
	if ofs < 0 {
		return line, 0
	}
	return line, ofs - lineStart
}

// currentLine returns the manifest line number of the most recently read
// token, for tagging a statement's FileLoc.
func (l *lexer) currentLine() int {
	line, _ := l.lineAndColOf(l.lastToken)
	return line
}

func (l *lexer) error(message string) error {
	line, col := l.lineAndColOf(l.lastToken)
	lineStart := l.lastToken - col

	var b strings.Builder
	b.WriteString(message)

	const truncateColumn = 72
	if col >= 0 && col < truncateColumn {
		length := 0
		for length < truncateColumn && lineStart+length < len(l.input) {
			c := l.input[lineStart+length]
			if c == 0 || c == '\n' {
				break
			}
			length++
		}
		truncated := lineStart+length < len(l.input) && l.input[lineStart+length] != 0 && l.input[lineStart+length] != '\n'
		b.WriteByte('\n')
		b.WriteString(l.input[lineStart : lineStart+length])
		if truncated {
			b.WriteString("...")
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", col))
		b.WriteString("^ near here")
	}
	return &SyntaxError{Loc: FileLoc{Filename: l.filename, Line: line}, Message: b.String()}
}

func (l *lexer) describeLastError() string {
	if l.lastToken != -1 && l.lastToken < len(l.input) && l.input[l.lastToken] == '\t' {
		return "tabs are not allowed, use spaces"
	}
	return "lexing error"
}

// unreadToken rewinds to the start of the last token read.
func (l *lexer) unreadToken() {
	l.ofs = l.lastToken
}

// readToken scans and returns the next token, eating trailing whitespace
// (including "$\n" continuations) unless the token is NEWLINE or TEOF.
func (l *lexer) readToken() (Token, error) {
	for {
		start := l.ofs
		c := l.input[l.ofs]

		var tok Token
		switch {
		case c == 0:
			l.ofs++
			tok = TEOF
		case c == '\n':
			l.ofs++
			l.lastToken = start
			return NEWLINE, nil
		case c == '\r':
			if l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '\n' {
				l.ofs += 2
				l.lastToken = start
				return NEWLINE, nil
			}
			l.ofs++
			l.lastToken = start
			return ERROR, l.error(l.describeLastError())
		case c == '\t':
			l.ofs++
			l.lastToken = start
			return ERROR, l.error(l.describeLastError())
		case c == ' ':
			for l.ofs < len(l.input) && l.input[l.ofs] == ' ' {
				l.ofs++
			}
			if l.ofs < len(l.input) && l.input[l.ofs] == '#' {
				l.skipComment()
				continue
			}
			l.lastToken = start
			return INDENT, nil
		case c == '#':
			l.skipComment()
			continue
		case c == ':':
			l.ofs++
			tok = COLON
		case c == '=':
			l.ofs++
			tok = EQUALS
		case c == '|':
			switch {
			case l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '|':
				l.ofs += 2
				tok = PIPE2
			case l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '@':
				l.ofs += 2
				tok = PIPEAT
			default:
				l.ofs++
				tok = PIPE
			}
		case isIdentChar(c):
			p := l.ofs
			for p < len(l.input) && isIdentChar(l.input[p]) {
				p++
			}
			word := l.input[l.ofs:p]
			l.ofs = p
			if kw, ok := keywords[word]; ok {
				tok = kw
			} else {
				tok = IDENT
			}
		default:
			l.ofs++
			l.lastToken = start
			return ERROR, l.error(fmt.Sprintf("unexpected character %q", c))
		}

		l.lastToken = start
		if tok != NEWLINE && tok != TEOF {
			l.eatWhitespace()
		}
		return tok, nil
	}
}

// peekToken reads a token; if it matches want, it is consumed (true is
// returned); otherwise it is pushed back.
func (l *lexer) peekToken(want Token) (bool, error) {
	tok, err := l.readToken()
	if err != nil {
		return false, err
	}
	if tok == want {
		return true, nil
	}
	l.unreadToken()
	return false, nil
}

// expectToken reads a token and errors with "expected X, got Y" if it
// isn't expected.
func (l *lexer) expectToken(expected Token) error {
	tok, err := l.readToken()
	if err != nil {
		return err
	}
	if tok != expected {
		return l.error(fmt.Sprintf("expected %s, got %s%s", expected, tok, expected.errorHint()))
	}
	return nil
}

func (l *lexer) skipComment() {
	for l.ofs < len(l.input) {
		c := l.input[l.ofs]
		if c == 0 {
			return
		}
		l.ofs++
		if c == '\n' {
			return
		}
	}
}

// eatWhitespace consumes runs of plain spaces and "$\n"/"$\r\n"
// continuations (each optionally followed by more spaces), called after
// every non-NEWLINE/TEOF token.
func (l *lexer) eatWhitespace() {
	for l.ofs < len(l.input) {
		c := l.input[l.ofs]
		switch {
		case c == ' ':
			for l.ofs < len(l.input) && l.input[l.ofs] == ' ' {
				l.ofs++
			}
		case c == '$' && l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '\n':
			l.ofs += 2
		case c == '$' && l.ofs+2 < len(l.input) && l.input[l.ofs+1] == '\r' && l.input[l.ofs+2] == '\n':
			l.ofs += 3
		default:
			return
		}
	}
}

// readIdent reads a bare identifier (rule/pool/variable name) without any
// keyword classification — used everywhere except the leading token of a
// top-level statement line.
func (l *lexer) readIdent() (string, error) {
	start := l.ofs
	p := l.ofs
	for p < len(l.input) && isIdentChar(l.input[p]) {
		p++
	}
	if p == start {
		l.lastToken = start
		return "", l.error("failed to scan ident")
	}
	name := l.input[start:p]
	l.ofs = p
	l.lastToken = start
	l.eatWhitespace()
	return name, nil
}

// readPath reads a $-escaped path (used for build outs/ins, include and
// subninja targets): unescaped whitespace, ':' and '|' terminate it
// without being consumed.
func (l *lexer) readPath(out *EvalString) error {
	return l.readEvalString(out, true)
}

// readVarValue reads the $-escaped value side of a "name = value" line;
// only an unescaped newline terminates it (and is consumed).
func (l *lexer) readVarValue(out *EvalString) error {
	return l.readEvalString(out, false)
}

func (l *lexer) readEvalString(out *EvalString, path bool) error {
	for {
		if l.ofs >= len(l.input) {
			return l.error("unexpected EOF")
		}
		c := l.input[l.ofs]
		switch {
		case c == 0:
			return l.error("unexpected EOF")
		case c == '$':
			if err := l.readEscape(out); err != nil {
				return err
			}
		case path && (c == ' ' || c == ':' || c == '|' || c == '\n'):
			return nil
		case !path && c == '\n':
			l.ofs++
			return nil
		case c == '\r':
			if l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '\n' {
				if path {
					return nil
				}
				l.ofs += 2
				return nil
			}
			l.lastToken = l.ofs
			return l.error(l.describeLastError())
		default:
			start := l.ofs
			p := l.ofs
			for p < len(l.input) {
				ch := l.input[p]
				if ch == 0 || ch == '$' || ch == '\r' || ch == '\n' {
					break
				}
				if path && (ch == ' ' || ch == ':' || ch == '|') {
					break
				}
				p++
			}
			out.AddText(l.input[start:p])
			l.ofs = p
		}
	}
}

// readEscape handles a single "$..." sequence; l.ofs must point at the
// '$' on entry.
func (l *lexer) readEscape(out *EvalString) error {
	start := l.ofs
	l.ofs++
	if l.ofs >= len(l.input) {
		l.lastToken = start
		return l.error("unexpected EOF")
	}
	c := l.input[l.ofs]
	switch {
	case c == '\n':
		l.ofs++
		l.skipContinuationSpaces()
		return nil
	case c == '\r':
		if l.ofs+1 < len(l.input) && l.input[l.ofs+1] == '\n' {
			l.ofs += 2
			l.skipContinuationSpaces()
			return nil
		}
		l.lastToken = start
		return l.error(l.describeLastError())
	case c == ' ':
		l.ofs++
		out.AddText(" ")
		return nil
	case c == '$':
		l.ofs++
		out.AddText("$")
		return nil
	case c == ':':
		l.ofs++
		out.AddText(":")
		return nil
	case c == '{':
		p := l.ofs + 1
		for p < len(l.input) && isIdentChar(l.input[p]) {
			p++
		}
		if p >= len(l.input) || l.input[p] != '}' || p == l.ofs+1 {
			l.lastToken = start
			return l.error("bad $-escape (literal $ must be written as $$)")
		}
		out.AddSpecial(l.input[l.ofs+1 : p])
		l.ofs = p + 1
		return nil
	case isIdentChar(c):
		p := l.ofs
		for p < len(l.input) && isIdentChar(l.input[p]) {
			p++
		}
		out.AddSpecial(l.input[l.ofs:p])
		l.ofs = p
		return nil
	default:
		l.lastToken = start
		return l.error("bad $-escape (literal $ must be written as $$)")
	}
}

func (l *lexer) skipContinuationSpaces() {
	for l.ofs < len(l.input) && l.input[l.ofs] == ' ' {
		l.ofs++
	}
}
