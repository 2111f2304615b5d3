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
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// FileId and BuildId are dense handles, stable for the lifetime of a
// single load, that double as indices into the graph's dense vectors
// after finalisation.
type FileId int32
type BuildId int32

// noBuildId marks a File with no producer yet.
const noBuildId BuildId = -1

// File is the registry's record for one canonical path: at most one
// producing build, guarded for concurrent assignment during load, and a
// lock-free append-only list of builds that consume it as an input.
type File struct {
	Id   FileId
	Name string

	mu          sync.Mutex
	producer    BuildId
	producerLoc FileLoc

	dependents dependentList
}

// Dependents returns every BuildId that currently depends on this file.
func (f *File) Dependents() []BuildId { return f.dependents.Snapshot() }

// Producer returns the build that produces this file, if any.
func (f *File) Producer() (BuildId, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.producer == noBuildId {
		return 0, false
	}
	return f.producer, true
}

// claimProducer is the single-producer enforcement primitive used by the
// graph finaliser (§4.6). It returns dup=true if id was already this
// file's producer (duplicate output within one build), or a
// *OwnershipError if a different build already claimed it.
func (f *File) claimProducer(id BuildId, loc FileLoc) (dup bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.producer == noBuildId {
		f.producer = id
		f.producerLoc = loc
		return false, nil
	}
	if f.producer == id {
		return true, nil
	}
	return false, &OwnershipError{File: f.Name, First: f.producerLoc, Second: loc}
}

const registryShards = 32

type fileShard struct {
	mu     sync.RWMutex
	byName map[string]FileId
}

// Files is the concurrent file registry: a sharded-mutex map from
// canonical path to FileId (striped to avoid serialising every concurrent
// build statement's interning on one lock, the Go analogue of the
// original's DashMap-backed registry) plus a by-id lookup and the
// monotonic id allocators.
type Files struct {
	shards [registryShards]fileShard

	byID sync.Map // FileId -> *File

	nextFileID  int32
	nextBuildID int32
}

// NewFiles creates an empty file registry.
func NewFiles() *Files {
	fs := &Files{}
	for i := range fs.shards {
		fs.shards[i].byName = make(map[string]FileId)
	}
	return fs
}

func shardIndex(path string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(path))
	return h.Sum32() % registryShards
}

// Intern returns the existing File for path, or atomically inserts and
// returns a fresh one. path must already be canonicalised.
func (fs *Files) Intern(path string) *File {
	shard := &fs.shards[shardIndex(path)]

	shard.mu.RLock()
	if id, ok := shard.byName[path]; ok {
		shard.mu.RUnlock()
		return fs.byIDUnsafe(id)
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if id, ok := shard.byName[path]; ok {
		return fs.byIDUnsafe(id)
	}
	id := FileId(atomic.AddInt32(&fs.nextFileID, 1) - 1)
	file := &File{Id: id, Name: path, producer: noBuildId}
	fs.byID.Store(id, file)
	shard.byName[path] = id
	return file
}

// InternAndAddDependent interns path and prepends build to its dependents
// list, atomically with respect to other dependent registrations.
func (fs *Files) InternAndAddDependent(path string, build BuildId) *File {
	file := fs.Intern(path)
	file.dependents.Prepend(build)
	return file
}

// Lookup returns the File for path without inserting one.
func (fs *Files) Lookup(path string) (*File, bool) {
	shard := &fs.shards[shardIndex(path)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	id, ok := shard.byName[path]
	if !ok {
		return nil, false
	}
	return fs.byIDUnsafe(id), true
}

// ByID returns the File for a previously interned FileId.
func (fs *Files) ByID(id FileId) *File {
	return fs.byIDUnsafe(id)
}

func (fs *Files) byIDUnsafe(id FileId) *File {
	v, ok := fs.byID.Load(id)
	if !ok {
		return nil
	}
	return v.(*File)
}

// CreateBuildId returns the next sequential BuildId.
func (fs *Files) CreateBuildId() BuildId {
	return BuildId(atomic.AddInt32(&fs.nextBuildID, 1) - 1)
}

// Count returns the number of distinct files interned so far.
func (fs *Files) Count() int {
	return int(atomic.LoadInt32(&fs.nextFileID))
}
