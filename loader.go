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
	"runtime"
	"strconv"
	"strings"
)

// LoadOptions configures a Load call. The zero value picks sane defaults:
// hardware parallelism and an in-memory no-op persistence backend.
type LoadOptions struct {
	// Parallelism bounds the loader's worker pool. <= 0 uses
	// runtime.GOMAXPROCS(0).
	Parallelism int

	// Persistence supplies the HashWriter/HashStore pair once the graph is
	// built. nil uses a no-op backend (no on-disk database).
	Persistence PersistenceBackend

	// Explain turns on "ninja explain:"-style tracing of why each manifest
	// and build was loaded, written to stderr via EXPLAIN.
	Explain bool
}

// loader holds the resources shared by every task in one Load call: the
// file registry every build/file handle is interned into, the byte cache
// backing every manifest read, and the bounded task pool.
type loader struct {
	files       *Files
	pool        *filePool
	exec        *executor
	parallelism int
}

// Load reads topManifestPath and its transitive include/subninja manifests,
// and returns the fully-linked build graph plus its companion persistence
// handles. It is the sole entry point described by spec.md §4.5.
func Load(topManifestPath string) (*State, error) {
	return LoadWithOptions(topManifestPath, LoadOptions{})
}

// LoadWithOptions is Load with explicit parallelism/persistence.
func LoadWithOptions(topManifestPath string, opts LoadOptions) (*State, error) {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	persistence := opts.Persistence
	if persistence == nil {
		persistence = noopPersistence{}
	}
	g_explaining = opts.Explain

	ld := &loader{
		files:       NewFiles(),
		pool:        newFilePool(),
		exec:        newExecutor(parallelism),
		parallelism: parallelism,
	}

	results, err := ld.subninjaLoad(CanonicalizePath(topManifestPath), nil, 0)
	if err != nil {
		return nil, err
	}

	graph := newGraph(ld.files, results.builds)

	writer, hashes, err := persistence.Open(graph, results.builddir)
	if err != nil {
		return nil, err
	}

	return &State{
		Graph:    graph,
		Defaults: results.defaults,
		Pools:    results.pools,
		Builddir: results.builddir,
		Persist:  writer,
		Hashes:   hashes,
	}, nil
}

// parseResults accumulates one manifest's (and its inlined includes')
// buffered statements: builds and subninja mounts are deferred until the
// owning scope is fully drained and sealed (§4.5 step 5).
type parseResults struct {
	builds    []*statement
	defaults  []*statement
	subninjas []*statement
	pools     map[string]Pool
}

// subninjaResults is what one subninja(path, ...) recursion, plus every
// descendant it spawned, contributes to the overall load.
type subninjaResults struct {
	builds   []*Build
	defaults []FileId
	builddir string
	pools    map[string]Pool
}

func addPool(pools map[string]Pool, p Pool) error {
	if _, exists := pools[p.Name]; exists {
		return &DuplicationError{Loc: p.Loc, Kind: "pool", Name: p.Name}
	}
	pools[p.Name] = p
	return nil
}

func mergeParseResults(dst *parseResults, src parseResults) error {
	dst.builds = append(dst.builds, src.builds...)
	dst.defaults = append(dst.defaults, src.defaults...)
	dst.subninjas = append(dst.subninjas, src.subninjas...)
	for _, p := range src.pools {
		if err := addPool(dst.pools, p); err != nil {
			return err
		}
	}
	return nil
}

func mergeSubninjaResults(dst *subninjaResults, src subninjaResults) error {
	dst.builds = append(dst.builds, src.builds...)
	dst.defaults = append(dst.defaults, src.defaults...)
	for _, p := range src.pools {
		if err := addPool(dst.pools, p); err != nil {
			return err
		}
	}
	return nil
}

// subninjaLoad is the recursive orchestrator routine from spec.md §4.5: it
// owns one manifest's scope end to end, from creation through sealing
// through spawning its buffered subninjas and builds, and returns once
// every descendant it spawned has reported back.
func (ld *loader) subninjaLoad(path string, parent *Scope, mountPos Position) (subninjaResults, error) {
	topLevel := parent == nil
	EXPLAIN("loading %s", path)
	scope := NewScope(parent, mountPos)
	if topLevel {
		pos := scope.NextPosition()
		if err := scope.AddRule(Rule{Name: "phony", Vars: map[string]EvalString{}, Position: pos}, FileLoc{Filename: path}); err != nil {
			return subninjaResults{}, err
		}
	}

	data, err := ld.pool.read(path)
	if err != nil {
		return subninjaResults{}, err
	}
	parsed, err := ld.parseManifest(path, data, scope)
	if err != nil {
		return subninjaResults{}, err
	}

	type childOutcome struct {
		res subninjaResults
		err error
	}
	total := len(parsed.subninjas) + len(parsed.builds)
	ch := make(chan childOutcome, total)

	for _, sn := range parsed.subninjas {
		sn := sn
		ld.exec.spawn(func() {
			childPath := CanonicalizePath(sn.file.Evaluate(nil, scope, sn.position))
			res, err := ld.subninjaLoad(childPath, scope, sn.position)
			ch <- childOutcome{res: res, err: err}
		})
	}
	for _, b := range parsed.builds {
		b := b
		ld.exec.spawn(func() {
			build, err := ld.constructBuild(path, scope, b)
			if err != nil {
				ch <- childOutcome{err: err}
				return
			}
			ch <- childOutcome{res: subninjaResults{builds: []*Build{build}}}
		})
	}

	results := subninjaResults{pools: parsed.pools}
	for _, d := range parsed.defaults {
		for _, f := range d.defaultFiles {
			p := CanonicalizePath(f.Evaluate(nil, scope, d.position))
			file := ld.files.Intern(p)
			results.defaults = append(results.defaults, file.Id)
		}
	}
	if topLevel {
		lastPos := scope.LastPosition()
		results.builddir = scope.Evaluate("builddir", lastPos)
		if required := scope.Evaluate("ninja_required_version", lastPos); required != "" {
			if err := checkNinjaVersion(required); err != nil {
				return subninjaResults{}, err
			}
		}
	}

	outcomes := collectResults(ch, total)
	var firstErr error
	for _, o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		if err := mergeSubninjaResults(&results, o.res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return subninjaResults{}, firstErr
	}
	return results, nil
}

// parseManifest splits data into chunks, parses them concurrently, and
// drains the per-chunk results strictly in chunk order — applying each
// statement to scope (or buffering it) immediately so scope positions
// reflect the manifest's exact textual order despite parallel tokenising
// (§4.1, §5). include statements recurse into this same function against
// the same scope, inlining their contents at the include's position.
func (ld *loader) parseManifest(filename, data string, scope *Scope) (parseResults, error) {
	chunks := splitIntoChunks(data, ld.parallelism)

	type chunkOutcome struct {
		stmts []*statement
		err   error
	}
	channels := make([]chan chunkOutcome, len(chunks))
	for i, c := range chunks {
		c := c
		out := make(chan chunkOutcome, 1)
		channels[i] = out
		ld.exec.spawn(func() {
			stmts, err := parseChunk(filename, c)
			out <- chunkOutcome{stmts: stmts, err: err}
		})
	}

	results := parseResults{pools: make(map[string]Pool)}
	for _, out := range channels {
		outcome := recvOne(out)
		if outcome.err != nil {
			return parseResults{}, outcome.err
		}
		for _, st := range outcome.stmts {
			if err := ld.applyStatement(filename, st, scope, &results); err != nil {
				return parseResults{}, err
			}
		}
	}
	return results, nil
}

// applyStatement is the per-statement dispatch of §4.5 step 4: assignments
// and rules mutate scope immediately; pools accumulate (duplicate names
// error immediately); builds/defaults/subninjas buffer for after sealing;
// include synchronously inlines its target manifest's statements into
// scope at the current (unconsumed) position.
func (ld *loader) applyStatement(filename string, st *statement, scope *Scope, results *parseResults) error {
	switch st.kind {
	case stmtVariable:
		scope.AddVariable(st.varName, st.varValue, scope.NextPosition())
		return nil

	case stmtRule:
		pos := scope.NextPosition()
		return scope.AddRule(Rule{Name: st.name, Vars: st.ruleVars, Position: pos}, st.loc)

	case stmtPool:
		depthText := st.poolDepth.Evaluate(nil, scope, scope.LastPosition())
		depth, err := strconv.Atoi(strings.TrimSpace(depthText))
		if err != nil {
			return &AttributeError{Loc: st.loc, Message: fmt.Sprintf("invalid pool depth %q", depthText)}
		}
		return addPool(results.pools, Pool{Name: st.name, Depth: depth, Loc: st.loc})

	case stmtBuild:
		st.position = scope.NextPosition()
		results.builds = append(results.builds, st)
		return nil

	case stmtDefault:
		st.position = scope.NextPosition()
		results.defaults = append(results.defaults, st)
		return nil

	case stmtSubninja:
		st.position = scope.NextPosition()
		results.subninjas = append(results.subninjas, st)
		return nil

	case stmtInclude:
		pos := scope.LastPosition()
		childPath := CanonicalizePath(st.file.Evaluate(nil, scope, pos))
		data, err := ld.pool.read(childPath)
		if err != nil {
			return err
		}
		childResults, err := ld.parseManifest(childPath, data, scope)
		if err != nil {
			return err
		}
		return mergeParseResults(results, childResults)
	}
	return nil
}

// constructBuild is §4.5's per-build record construction: resolve outs/ins
// against the build's own vars, look up the rule, build the implicit
// $in/$out environment, resolve the fixed attribute set, intern every file,
// and finalise into the graph.
func (ld *loader) constructBuild(filename string, scope *Scope, st *statement) (*Build, error) {
	buildEnv := &bindingsEnv{vars: st.buildVars, scope: scope, pos: st.position}

	outs := make([]string, len(st.outs))
	for i, o := range st.outs {
		outs[i] = CanonicalizePath(o.Evaluate([]Env{buildEnv}, scope, st.position))
	}
	ins := make([]string, len(st.ins))
	for i, in := range st.ins {
		ins[i] = CanonicalizePath(in.Evaluate([]Env{buildEnv}, scope, st.position))
	}

	rule, ok := scope.GetRule(st.buildRuleName, st.position)
	if !ok {
		known := scope.KnownRuleNames(st.position)
		return nil, &ReferenceError{Loc: st.loc, Name: st.buildRuleName, Did_you_mean: suggestRuleName(st.buildRuleName, known)}
	}
	EXPLAIN("%s: building %d output(s) with rule %q", st.loc, len(st.outs), st.buildRuleName)

	implicit := newImplicitEnv(ins[:st.explicitIns], outs[:st.explicitOuts])

	lookup := func(key string) (string, bool) {
		if rv, ok := rule.Vars[key]; ok {
			return rv.Evaluate([]Env{implicit, buildEnv}, scope, st.position), true
		}
		if bv, ok := st.buildVars[key]; ok {
			return bv.Evaluate(nil, scope, st.position), true
		}
		return "", false
	}

	command, hasCommand := lookup("command")
	description, _ := lookup("description")
	depfile, _ := lookup("depfile")
	deps, hasDeps := lookup("deps")
	poolName, _ := lookup("pool")
	rspfilePath, hasRspPath := lookup("rspfile")
	rspfileContent, hasRspContent := lookup("rspfile_content")

	parseShowIncludes := false
	if hasDeps {
		switch deps {
		case "gcc":
		case "msvc":
			parseShowIncludes = true
		default:
			return nil, &AttributeError{Loc: st.loc, Message: fmt.Sprintf("invalid deps attribute %q", deps)}
		}
	}
	if hasRspPath != hasRspContent {
		return nil, &AttributeError{Loc: st.loc, Message: "rspfile and rspfile_content need to be both specified"}
	}

	buildId := ld.files.CreateBuildId()

	inIds := make([]FileId, len(ins))
	for i, p := range ins {
		inIds[i] = ld.files.InternAndAddDependent(p, buildId).Id
	}
	outIds := make([]FileId, len(outs))
	for i, p := range outs {
		outIds[i] = ld.files.Intern(p).Id
	}

	build := &Build{
		Id:                buildId,
		Loc:               st.loc,
		RuleName:          st.buildRuleName,
		HasCommand:        hasCommand,
		Command:           command,
		Description:       description,
		Depfile:           depfile,
		ParseShowIncludes: parseShowIncludes,
		HasRspFile:        hasRspPath && hasRspContent,
		RspFile:           rspfilePath,
		RspFileContent:    rspfileContent,
		Pool:              poolName,
		Ins:               BuildIns{Ids: inIds, Explicit: st.explicitIns, Implicit: st.implicitIns, OrderOnly: st.orderOnlyIns},
		Outs:              BuildOuts{Ids: outIds, Explicit: st.explicitOuts},
	}

	if err := finalizeBuild(ld.files, build); err != nil {
		return nil, err
	}
	return build, nil
}
