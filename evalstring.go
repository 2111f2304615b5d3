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

import "strings"

// EvalPart is one fragment of an EvalString: either literal text or a
// variable reference (e.g. from "$foo" or "${foo}").
type EvalPart struct {
	Text      string
	IsSpecial bool
}

// EvalString is a deferred expansion: an ordered sequence of literal
// fragments and variable references, produced by the lexer and resolved
// later against a chain of environments plus a scope and position.
type EvalString struct {
	Parts []EvalPart
}

// AddText appends a literal fragment, merging into the previous literal
// fragment when possible.
func (e *EvalString) AddText(s string) {
	if s == "" {
		return
	}
	if n := len(e.Parts); n > 0 && !e.Parts[n-1].IsSpecial {
		e.Parts[n-1].Text += s
		return
	}
	e.Parts = append(e.Parts, EvalPart{Text: s})
}

// AddSpecial appends a variable reference.
func (e *EvalString) AddSpecial(name string) {
	e.Parts = append(e.Parts, EvalPart{Text: name, IsSpecial: true})
}

// Unparse renders the EvalString back into ninja source syntax (literal $
// escaping, ${var} for references), mainly useful for diagnostics.
func (e *EvalString) Unparse() string {
	var b strings.Builder
	for _, p := range e.Parts {
		if p.IsSpecial {
			b.WriteString("${")
			b.WriteString(p.Text)
			b.WriteByte('}')
		} else {
			for _, r := range p.Text {
				if r == '$' {
					b.WriteByte('$')
				}
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Env is an intermediate lookup environment consulted before falling back
// to the owning scope. Rule bindings, build bindings, and the implicit
// $in/$out environment all implement Env.
type Env interface {
	LookupVariable(name string) (string, bool)
}

// Evaluate resolves this EvalString against an ordered list of
// intermediate environments, then falls back to scope.Evaluate at
// position for any variable reference none of envs answer. Undefined
// variables expand to the empty string.
func (e *EvalString) Evaluate(envs []Env, scope *Scope, position Position) string {
	if len(e.Parts) == 1 && !e.Parts[0].IsSpecial {
		return e.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range e.Parts {
		if !p.IsSpecial {
			b.WriteString(p.Text)
			continue
		}
		b.WriteString(lookupVar(p.Text, envs, scope, position))
	}
	return b.String()
}

func lookupVar(name string, envs []Env, scope *Scope, position Position) string {
	for _, env := range envs {
		if env == nil {
			continue
		}
		if v, ok := env.LookupVariable(name); ok {
			return v
		}
	}
	if scope == nil {
		return ""
	}
	return scope.Evaluate(name, position)
}

// bindingsEnv wraps a build's or rule's own name->EvalString bindings as
// an Env: each lookup lazily evaluates the bound EvalString against a
// further chain of envs (typically the implicit $in/$out environment)
// and the owning scope, matching n2's BuildEnv/RuleEnv chaining.
type bindingsEnv struct {
	vars  map[string]EvalString
	envs  []Env
	scope *Scope
	pos   Position
}

func (b *bindingsEnv) LookupVariable(name string) (string, bool) {
	es, ok := b.vars[name]
	if !ok {
		return "", false
	}
	return es.Evaluate(b.envs, b.scope, b.pos), true
}

// implicitEnv answers exactly the four names $in/$in_newline/$out/$out_newline
// derive from a build's explicit inputs/outputs (§4.2).
type implicitEnv struct {
	in, inNewline   string
	out, outNewline string
}

func newImplicitEnv(explicitIns, explicitOuts []string) *implicitEnv {
	return &implicitEnv{
		in:        strings.Join(explicitIns, " "),
		inNewline: strings.Join(explicitIns, "\n"),
		out:       strings.Join(explicitOuts, " "),
		outNewline: strings.Join(explicitOuts, "\n"),
	}
}

func (i *implicitEnv) LookupVariable(name string) (string, bool) {
	switch name {
	case "in":
		return i.in, true
	case "in_newline":
		return i.inNewline, true
	case "out":
		return i.out, true
	case "out_newline":
		return i.outNewline, true
	}
	return "", false
}
