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

const maxPathComponents = 60

// CanonicalizePath collapses "./" segments, resolves ".." textually (no
// filesystem access) and normalises repeated separators, the way Ninja
// canonicalises paths before interning them into the file registry. It
// never touches the filesystem: "a/../../b" walks off the front of the
// path and is left as "../b".
func CanonicalizePath(path string) string {
	if path == "" {
		return ""
	}

	netPath := strings.HasPrefix(path, "//")
	absPath := !netPath && strings.HasPrefix(path, "/")
	// A leading ".." has nowhere to go on an absolute path; only relative
	// paths keep leading ".." components.
	keepLeadingDotDot := !netPath && !absPath

	var components [maxPathComponents]string
	componentCount := 0

	start := 0
	dotdot := 0 // number of leading ".." components already emitted
	for start <= len(path) {
		end := strings.IndexByte(path[start:], '/')
		var part string
		if end == -1 {
			part = path[start:]
			start = len(path) + 1
		} else {
			part = path[start : start+end]
			start += end + 1
		}

		switch part {
		case "", ".":
			// skip empty (repeated slash) and "." components
		case "..":
			if componentCount > dotdot {
				componentCount--
			} else if keepLeadingDotDot && componentCount < maxPathComponents {
				components[componentCount] = ".."
				componentCount++
				dotdot++
			}
		default:
			if componentCount < maxPathComponents {
				components[componentCount] = part
				componentCount++
			}
		}
	}

	if componentCount == 0 {
		if absPath {
			return "/"
		}
		if netPath {
			return "//"
		}
		return "."
	}

	var b strings.Builder
	if netPath {
		b.WriteString("//")
	} else if absPath {
		b.WriteByte('/')
	}
	for i := 0; i < componentCount; i++ {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(components[i])
	}
	return b.String()
}
