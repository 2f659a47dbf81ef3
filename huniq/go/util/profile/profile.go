/*
 * Copyright 2019 The Huniq Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package profile provides a simple method for exposing profile information
// through a --cpu_profile flag.
package profile // import "huniq.io/huniq/go/util/profile"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"sync"
)

var (
	profCPU = flag.String("cpu_profile", "", "Write CPU profile to the specified file (if nonempty)")

	file io.Closer
	mu   sync.Mutex
)

// Start begins profiling the program, writing data to the file given with the
// --cpu_profile flag.  If --cpu_profile was not given, nothing happens.  Start
// must not be called again until Stop is called.  The profile data in the
// --cpu_profile flag is overwritten on each call to Start.
func Start() error {
	mu.Lock()
	defer mu.Unlock()

	if *profCPU != "" {
		if file != nil {
			return errors.New("profiling already started")
		}

		f, err := os.Create(*profCPU)
		if err != nil {
			return fmt.Errorf("error creating profile file %q: %v", *profCPU, err)
		}
		file = f
		pprof.StartCPUProfile(f)
	}
	return nil
}

// Stop stops profiling the program.  If --cpu_profile was not given, nothing
// happens.  Start must be called before Stop.
func Stop() error {
	mu.Lock()
	defer mu.Unlock()

	if *profCPU != "" {
		if file == nil {
			return errors.New("profiling not yet started")
		}

		pprof.StopCPUProfile()
		err := file.Close()
		file = nil
		return err
	}
	return nil
}
