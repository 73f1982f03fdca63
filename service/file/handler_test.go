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

package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawa-io/filebox/pkg/storage"
)

func newTestServer(t *testing.T, store storage.BlobStore, limit int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	(&FileServiceHandler{Store: store, MaxUploadSize: limit}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, fileField, filename, content)
	resp, err := http.Post(srv.URL+"/api/upload", ct, body)
	require.NoError(t, err)
	return resp
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestUpload(t *testing.T) {
	store := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	srv := newTestServer(t, store, 64)

	testCases := []struct {
		name       string
		field      string
		filename   string
		content    []byte
		wantStatus int
		wantName   string
	}{
		{name: "ok", field: fileField, filename: "a.txt", content: []byte("hello"), wantStatus: http.StatusOK, wantName: "a.txt"},
		{name: "at limit", field: fileField, filename: "full.bin", content: bytes.Repeat([]byte("x"), 64), wantStatus: http.StatusOK, wantName: "full.bin"},
		{name: "over limit", field: fileField, filename: "big.bin", content: bytes.Repeat([]byte("x"), 65), wantStatus: http.StatusRequestEntityTooLarge},
		{name: "no file part", field: "", wantStatus: http.StatusBadRequest},
		{name: "wrong field", field: "upload", filename: "a.txt", content: []byte("x"), wantStatus: http.StatusBadRequest},
		{name: "directory components stripped", field: fileField, filename: "../../etc/passwd", content: []byte("x"), wantStatus: http.StatusOK, wantName: "passwd"},
		{name: "parent name rejected", field: fileField, filename: "..", content: []byte("x"), wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.filename, tc.content)
			resp, err := http.Post(srv.URL+"/api/upload", ct, body)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			got := decode[UploadResponse](t, resp)
			assert.NotEmpty(t, got.Message.Message)
			if tc.wantStatus == http.StatusOK {
				require.NotNil(t, got.StoredFile)
				assert.Equal(t, "success", got.Status)
				assert.Equal(t, tc.wantName, got.StoredFile.Name)
				assert.Equal(t, int64(len(tc.content)), got.StoredFile.Size)
			} else {
				assert.Equal(t, "error", got.Status)
				assert.Nil(t, got.StoredFile)
			}
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(store.Root()), "etc"))
	assert.True(t, os.IsNotExist(err), "nothing may be written outside the store root")
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, storage.NewLocalStore(t.TempDir()), 0)
	resp, err := http.Post(srv.URL+"/api/upload", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDownloadDelete(t *testing.T) {
	srv := newTestServer(t, storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads")), 0)
	content := bytes.Repeat([]byte("%PDF"), 125)

	resp := upload(t, srv, "report.pdf", content)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/files")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"report.pdf"}, decode[[]string](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/api/files/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "500", resp.Header.Get("Content-Length"))
	assert.Equal(t, `attachment; filename=report.pdf`, resp.Header.Get("Content-Disposition"))
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, content, got)

	resp = do(t, http.MethodDelete, srv.URL+"/api/files/report.pdf")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/api/files")
	assert.Equal(t, []string{}, decode[[]string](t, resp))

	resp = do(t, http.MethodDelete, srv.URL+"/api/files/report.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/api/files/report.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestInvalidNamesRejected(t *testing.T) {
	srv := newTestServer(t, storage.NewLocalStore(t.TempDir()), 0)

	for _, name := range []string{"a%2Fb", "..%5Cetc%5Cpasswd", ".partial"} {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			resp := do(t, method, srv.URL+"/api/files/"+name)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, method+" "+name)
			resp.Body.Close()
		}
	}
}

type brokenStore struct{}

var errDisk = errors.New("disk on fire")

func (brokenStore) Put(context.Context, string, io.Reader, int64) (*storage.StoredFile, error) {
	return nil, errDisk
}
func (brokenStore) List(context.Context) ([]string, error)               { return nil, errDisk }
func (brokenStore) Get(context.Context, string) (*storage.Object, error) { return nil, errDisk }
func (brokenStore) Delete(context.Context, string) error                 { return errDisk }

func TestStoreFailures(t *testing.T) {
	srv := newTestServer(t, brokenStore{}, 0)

	resp := upload(t, srv, "a.txt", []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/files"},
		{http.MethodGet, "/api/files/a.txt"},
		{http.MethodDelete, "/api/files/a.txt"},
	} {
		resp := do(t, tc.method, srv.URL+tc.path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, tc.method+" "+tc.path)
		msg := decode[map[string]string](t, resp)
		assert.Equal(t, "error", msg["status"])
		assert.NotContains(t, msg["message"], errDisk.Error())
	}
}
