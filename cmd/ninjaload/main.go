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

// Command ninjaload loads a Ninja build manifest and its transitive
// include/subninja files, then reports the resulting graph's shape. It
// exercises the loader without running any build: no command is ever
// invoked.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nineva/ninload"
)

// options mirrors the flag surface a manifest-loading front end needs:
// which file to load, which directory to run in, how hard to parallelise,
// and whether to list targets.
type options struct {
	inputFile   string
	workingDir  string
	parallelism int
	listTargets bool
}

func fatalf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ninjaload: fatal: "+msg+"\n", args...)
	os.Exit(1)
}

func warningf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ninjaload: warning: "+msg+"\n", args...)
}

func readFlags() options {
	var opts options
	flag.StringVar(&opts.inputFile, "f", "build.ninja", "specify input build file")
	flag.StringVar(&opts.workingDir, "C", "", "change to DIR before doing anything else")
	flag.IntVar(&opts.parallelism, "j", 0, "parse with N parallel workers (0 means hardware parallelism)")
	flag.BoolVar(&opts.listTargets, "t", false, "list each build's explicit outputs and the rule that produces them")
	flag.Parse()
	return opts
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := readFlags()

	if opts.workingDir != "" {
		if err := os.Chdir(opts.workingDir); err != nil {
			fatalf("chdir to %q: %v", opts.workingDir, err)
		}
	}

	state, err := nin.LoadWithOptions(opts.inputFile, nin.LoadOptions{Parallelism: opts.parallelism})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ninjaload: error: %v\n", err)
		return 1
	}

	fmt.Printf("%s: %d builds, %d files, %d pools, %d defaults\n",
		opts.inputFile, len(state.Graph.Builds), state.Graph.Files.Count(), len(state.Pools), len(state.Defaults))
	if state.Builddir != "" {
		fmt.Printf("builddir = %s\n", state.Builddir)
	}

	if opts.listTargets {
		for _, b := range state.Graph.Builds {
			for _, id := range b.Outs.ExplicitOuts() {
				f := state.Graph.Files.ByID(id)
				fmt.Printf("%s: %s\n", f.Name, b.RuleName)
			}
		}
	}

	return 0
}
