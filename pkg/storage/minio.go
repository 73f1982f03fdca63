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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

// MinioOptions configures a MinioStore.
type MinioOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// MinioStore keeps every file as an object at the top level of one bucket.
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

func newMinioClient(opts MinioOptions) (*minio.Client, error) {
	return minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
	})
}

// NewMinioStore connects to MinIO and creates the bucket if it is missing.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	fwlog.Infof("Initializing MinIO store: endpoint=%s bucket=%s ssl=%v", opts.Endpoint, opts.Bucket, opts.UseSSL)

	client, err := newMinioClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", opts.Bucket, err)
		}
		fwlog.Infof("Successfully created MinIO bucket: %s", opts.Bucket)
	}

	return &MinioStore{client: client, bucketName: opts.Bucket}, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

const (
	minPartSize int64 = 16 << 20
	maxPartSize int64 = 5 << 30
)

// partSizeFor picks the multipart buffer for an upload of unknown length.
// Without an explicit part size the client allocates its worst-case part
// (over 500 MiB) per upload. Up to the limit, the upload fits in one part.
func partSizeFor(sizeLimit int64) uint64 {
	if sizeLimit <= 0 || sizeLimit+1 <= minPartSize {
		return uint64(minPartSize)
	}
	const mib = 1 << 20
	size := (sizeLimit + 1 + mib - 1) / mib * mib
	if size > maxPartSize {
		size = maxPartSize
	}
	return uint64(size)
}

func putOptions(name string, sizeLimit int64) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType: contentTypeFor(name),
		PartSize:    partSizeFor(sizeLimit),
	}
}

// Put streams r to the bucket with unknown size. The client buffers one
// part at a time, sized by partSizeFor.
func (m *MinioStore) Put(ctx context.Context, name string, r io.Reader, sizeLimit int64) (*StoredFile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var lr *limitedReader
	src := r
	if sizeLimit > 0 {
		lr = newLimitedReader(r, sizeLimit)
		src = lr
	}

	info, err := m.client.PutObject(ctx, m.bucketName, name, src, -1, putOptions(name, sizeLimit))
	if lr != nil && lr.exceeded {
		return nil, fmt.Errorf("put %s: %w", name, ErrTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", name, err)
	}

	modTime := info.LastModified
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return &StoredFile{Name: name, Size: info.Size, ModTime: modTime.UTC()}, nil
}

// List returns top-level object keys in listing order.
func (m *MinioStore) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list %s: %w", m.bucketName, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		names = append(names, object.Key)
	}
	return names, nil
}

func (m *MinioStore) stat(ctx context.Context, op, name string) (minio.ObjectInfo, error) {
	if err := ValidateName(name); err != nil {
		return minio.ObjectInfo{}, err
	}
	info, err := m.client.StatObject(ctx, m.bucketName, name, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return minio.ObjectInfo{}, fmt.Errorf("%s %s: %w", op, name, ErrNotFound)
		}
		return minio.ObjectInfo{}, fmt.Errorf("%s %s: %w", op, name, err)
	}
	return info, nil
}

// Get opens a streaming reader for name.
func (m *MinioStore) Get(ctx context.Context, name string) (*Object, error) {
	info, err := m.stat(ctx, "get", name)
	if err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, m.bucketName, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = contentTypeFor(name)
	}
	return &Object{
		ReadCloser:  obj,
		Info:        StoredFile{Name: name, Size: info.Size, ModTime: info.LastModified.UTC()},
		ContentType: contentType,
	}, nil
}

// Delete removes name. RemoveObject succeeds on missing keys, so existence
// is checked first to report ErrNotFound.
func (m *MinioStore) Delete(ctx context.Context, name string) error {
	if _, err := m.stat(ctx, "delete", name); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucketName, name, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("delete %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

var _ BlobStore = (*MinioStore)(nil)
var _ BlobStore = (*LocalStore)(nil)

