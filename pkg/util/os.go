// Copyright 2025 The fawa Authors
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

package util

import (
	"fmt"
	"os"
)

const (
	// the owner can make/remove files inside the directory
	privateDirMode = 0700
)

// Exist reports whether dirpath exists and is a directory.
func Exist(dirpath string) bool {
	info, err := os.Stat(dirpath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDir creates dirpath and any missing parents. An existing directory
// is left untouched; an existing non-directory is an error.
func EnsureDir(dirpath string) error {
	info, err := os.Stat(dirpath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dirpath)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	return os.MkdirAll(dirpath, privateDirMode)
}
