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
	"sync"

	"golang.org/x/sync/singleflight"
)

// filePool is a process-scoped, load-lifetime cache of manifest bytes: once
// a path is read, its bytes are kept for the remainder of the load so that
// every EvalString produced while parsing it can reference the same
// immutable buffer. Entries are never evicted during a load. singleflight
// collapses the case where the same manifest is reachable via two
// include/subninja edges discovered concurrently onto a single disk read.
type filePool struct {
	group singleflight.Group

	mu    sync.RWMutex
	bytes map[string]string
}

func newFilePool() *filePool {
	return &filePool{bytes: make(map[string]string)}
}

// read returns the contents of path, reading it from disk at most once for
// the lifetime of this pool.
func (p *filePool) read(path string) (string, error) {
	p.mu.RLock()
	if data, ok := p.bytes[path]; ok {
		p.mu.RUnlock()
		return data, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.group.Do(path, func() (interface{}, error) {
		p.mu.RLock()
		if data, ok := p.bytes[path]; ok {
			p.mu.RUnlock()
			return data, nil
		}
		p.mu.RUnlock()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		data := string(raw)
		p.mu.Lock()
		p.bytes[path] = data
		p.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
