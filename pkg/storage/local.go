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

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fawa-io/filebox/pkg/fwlog"
	"github.com/fawa-io/filebox/pkg/util"
)

// LocalStore keeps every file as a regular file directly under Root.
type LocalStore struct {
	root string

	mu    sync.Mutex
	ready bool
}

// NewLocalStore returns a store rooted at root. The directory is created
// on first use, not here.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: filepath.Clean(root)}
}

// Root returns the directory backing the store.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) ensureRoot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := util.EnsureDir(filepath.Join(s.root, partialDir)); err != nil {
		return fmt.Errorf("create store root %s: %w", s.root, err)
	}
	fwlog.Debugf("Store root ready at %s", s.root)
	s.ready = true
	return nil
}

// path resolves name under the root after validation. The prefix check is
// a second line behind ValidateName.
func (s *LocalStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, name)
	if filepath.Dir(p) != s.root {
		return "", fmt.Errorf("%w: %q resolves outside the store", ErrInvalidName, name)
	}
	return p, nil
}

// Put streams r into a temporary file and renames it over the target, so
// readers never observe a partially written file.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, sizeLimit int64) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, partialDir), "upload-*")
	if err != nil {
		return nil, fmt.Errorf("put %s: create temp file: %w", name, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fwlog.Warnf("Failed to remove temp file %s: %v", tmpName, err)
		}
	}()

	src := r
	if sizeLimit > 0 {
		src = newLimitedReader(r, sizeLimit)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("put %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("put %s: close temp file: %w", name, err)
	}

	info, err := os.Stat(tmpName)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", name, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("put %s: %w", name, err)
	}
	committed = true

	return &StoredFile{
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}, nil
}

// List returns the names of regular files in the root, ordered by name.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Get opens name for streaming.
func (s *LocalStore) Get(ctx context.Context, name string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("get %s: %w", name, ErrNotFound)
	}

	return &Object{
		ReadCloser: f,
		Info: StoredFile{
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		},
		ContentType: contentTypeFor(name),
	}, nil
}

// Delete removes name. A missing name is reported as ErrNotFound.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("delete %s: %w", name, ErrNotFound)
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
