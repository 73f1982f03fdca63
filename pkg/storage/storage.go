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
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxUploadSize is the upload policy limit in bytes.
const DefaultMaxUploadSize int64 = 10_000_000

const (
	maxNameLength = 255

	// partialDir holds in-flight uploads inside a local store root.
	partialDir = ".partial"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
	ErrTooLarge    = errors.New("file exceeds size limit")
)

// StoredFile describes a file held by a BlobStore. Size and ModTime come
// from the storage medium; nothing is tracked on the side.
type StoredFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Object is an open download stream. Callers must Close it.
type Object struct {
	io.ReadCloser
	Info        StoredFile
	ContentType string
}

// BlobStore persists file content by name in a single flat namespace.
//
// Put replaces any existing file with the same name; concurrent puts of one
// name resolve as last-write-wins. A sizeLimit <= 0 disables the size check.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, sizeLimit int64) (*StoredFile, error)
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects names that are empty, too long, or could address
// anything other than a direct child of the store root.
func ValidateName(name string) error {
	switch {
	case name == "" || len(name) > maxNameLength:
		return fmt.Errorf("%w: length must be between 1 and %d bytes", ErrInvalidName, maxNameLength)
	case filepath.IsAbs(name) || strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: name contains a NUL byte", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case name == partialDir:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// limitedReader passes through at most limit bytes and fails with
// ErrTooLarge as soon as the source proves to hold more.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func newLimitedReader(r io.Reader, limit int64) *limitedReader {
	return &limitedReader{r: r, remaining: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	if l.remaining <= 0 {
		var probe [1]byte
		n, err := io.ReadFull(l.r, probe[:])
		if n > 0 {
			l.exceeded = true
			return 0, ErrTooLarge
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
