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

import "sync/atomic"

// dependentNode is one link of a lock-free, prepend-only singly linked
// list of BuildIds that consume a File as an input.
type dependentNode struct {
	build BuildId
	next  *dependentNode
}

// dependentList is a CAS-loop prepend-only list. Readers may walk it
// concurrently with writers: a reader observes some consistent prefix of
// the list as it stood at some point during the walk, which is all §4.4
// requires ("readers tolerate any consistent prefix observation").
type dependentList struct {
	head atomic.Pointer[dependentNode]
}

// Prepend adds build to the front of the list. Safe for concurrent callers.
func (l *dependentList) Prepend(build BuildId) {
	n := &dependentNode{build: build}
	for {
		old := l.head.Load()
		n.next = old
		if l.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// Snapshot returns every BuildId currently in the list, most recently
// prepended first. The result reflects the list at some instant during
// the call; concurrent Prepends may or may not be included.
func (l *dependentList) Snapshot() []BuildId {
	var out []BuildId
	for n := l.head.Load(); n != nil; n = n.next {
		out = append(out, n.build)
	}
	return out
}
