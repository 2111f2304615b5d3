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

// BuildIns is a build's input list, partitioned left-to-right into
// explicit, implicit, order-only and (the remainder) validation segments.
type BuildIns struct {
	Ids       []FileId
	Explicit  int
	Implicit  int
	OrderOnly int
}

// ExplicitIns returns the inputs named directly on the build line.
func (b *BuildIns) ExplicitIns() []FileId { return b.Ids[:b.Explicit] }

// DirtyingIns returns explicit+implicit inputs: changes to any of these
// require a rebuild.
func (b *BuildIns) DirtyingIns() []FileId { return b.Ids[:b.Explicit+b.Implicit] }

// OrderingIns returns explicit+implicit+order-only inputs: these must
// exist/be built first, but changes to the order-only segment alone don't
// dirty the build.
func (b *BuildIns) OrderingIns() []FileId { return b.Ids[:b.Explicit+b.Implicit+b.OrderOnly] }

// ValidationIns returns the trailing validation segment: built in
// parallel, its failure fails the overall build, but this build does not
// wait on it.
func (b *BuildIns) ValidationIns() []FileId { return b.Ids[b.Explicit+b.Implicit+b.OrderOnly:] }

// BuildOuts is a build's output list, partitioned into explicit and
// (the remainder) implicit outputs.
type BuildOuts struct {
	Ids      []FileId
	Explicit int
}

// ExplicitOuts returns the outputs named directly on the build line.
func (b *BuildOuts) ExplicitOuts() []FileId { return b.Ids[:b.Explicit] }

// RemoveDuplicates drops any output that already appeared earlier in this
// same build's output list, preserving the first occurrence and adjusting
// Explicit down by one for every dropped index that fell within
// [0, Explicit). Used when the graph finaliser detects that a build lists
// the same output twice (the CMake-generated-manifest quirk, §4.6).
func (b *BuildOuts) RemoveDuplicates() {
	seen := make(map[FileId]bool, len(b.Ids))
	out := b.Ids[:0]
	explicit := b.Explicit
	for i, id := range b.Ids {
		if seen[id] {
			if i < b.Explicit {
				explicit--
			}
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	b.Ids = out
	b.Explicit = explicit
}

// Build is one instantiated build statement: a rule name bound with
// concrete inputs, outputs and per-build variables.
type Build struct {
	Id   BuildId
	Loc  FileLoc

	RuleName string

	HasCommand  bool
	Command     string
	Description string

	Depfile           string
	ParseShowIncludes bool

	HasRspFile     bool
	RspFile        string
	RspFileContent string

	Pool string

	Ins  BuildIns
	Outs BuildOuts

	// DiscoveredIns is populated only after execution (out of scope for
	// this module); it is always empty at load time.
	DiscoveredIns []FileId
}

// Pool is a named concurrency limit, declared at most once across a load.
type Pool struct {
	Name  string
	Depth int
	Loc   FileLoc
}
