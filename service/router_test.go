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

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/metrics"
	"github.com/fawa-io/filebox/pkg/storage"
)

type staticVerifier struct{ email, password string }

func (v staticVerifier) Verify(_ context.Context, c auth.Credential) error {
	if c.Identifier == v.email && c.Secret == v.password {
		return nil
	}
	return auth.ErrInvalidCredentials
}

func (staticVerifier) Close() error { return nil }

func newRouterServer(t *testing.T, sampler *metrics.Sampler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(Deps{
		Store:    storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads")),
		Verifier: staticVerifier{email: "a@b.com", password: "x"},
		Sampler:  sampler,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, method, url, contentType string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestRouter_FileLifecycle(t *testing.T) {
	srv := newRouterServer(t, nil)

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0x25}, 500))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, _ := send(t, http.MethodPost, srv.URL+"/api/upload", mw.FormDataContentType(), buf)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := send(t, http.MethodGet, srv.URL+"/api/files", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["report.pdf"]`, string(body))

	resp, body = send(t, http.MethodGet, srv.URL+"/api/files/report.pdf", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body, 500)

	resp, _ = send(t, http.MethodDelete, srv.URL+"/api/files/report.pdf", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = send(t, http.MethodGet, srv.URL+"/api/files", "", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRouter_Login(t *testing.T) {
	srv := newRouterServer(t, nil)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "match", body: `{"email":"a@b.com","password":"x"}`, wantStatus: http.StatusOK, wantMsg: "login successful"},
		{name: "mismatch", body: `{"email":"a@b.com","password":"y"}`, wantStatus: http.StatusUnauthorized, wantMsg: "incorrect email or password"},
		{name: "missing field", body: `{"email":"a@b.com"}`, wantStatus: http.StatusBadRequest, wantMsg: "email and password are required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := send(t, http.MethodPost, srv.URL+"/login", "application/json", bytes.NewBufferString(tc.body))
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var msg map[string]string
			require.NoError(t, json.Unmarshal(body, &msg))
			assert.Equal(t, tc.wantMsg, msg["message"])
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	srv := newRouterServer(t, metrics.NewSampler())

	resp, _ := send(t, http.MethodGet, srv.URL+"/api/files", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = send(t, http.MethodGet, srv.URL+"/api/files/missing.txt", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := send(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `custom_go_version_info{version="`+runtime.Version()+`"} 1`)
	assert.Contains(t, text, `custom_http_requests_total{code="200",method="GET",route="GET /api/files"} 1`)
	assert.Contains(t, text, `custom_http_requests_total{code="404",method="GET",route="GET /api/files/{name}"} 1`)
	assert.NotContains(t, text, "missing.txt")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	srv := newRouterServer(t, nil)

	resp, _ := send(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_LoginDisabledWithoutVerifier(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Deps{
		Store: storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads")),
	}))
	defer srv.Close()

	for _, path := range []string{"/login", "/api/login"} {
		resp, _ := send(t, http.MethodPost, srv.URL+path, "application/json", bytes.NewBufferString(`{"email":"a@b.com","password":"x"}`))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, _ := send(t, http.MethodGet, srv.URL+"/api/files", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Healthz(t *testing.T) {
	srv := newRouterServer(t, nil)

	resp, body := send(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRouter_RequestID(t *testing.T) {
	srv := newRouterServer(t, nil)

	resp, _ := send(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestRouter_CORS(t *testing.T) {
	srv := newRouterServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/files", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodOptions, srv.URL+"/api/files/a.txt", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusRecorder(t *testing.T) {
	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBytes  int64
	}{
		{name: "implicit ok", handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("hi")) }, wantStatus: http.StatusOK, wantBytes: 2},
		{name: "explicit", handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }, wantStatus: http.StatusTeapot},
		{name: "first code wins", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			w.WriteHeader(http.StatusInternalServerError)
		}, wantStatus: http.StatusAccepted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
			tc.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.wantStatus, rec.status)
			assert.Equal(t, tc.wantBytes, rec.bytes)
		})
	}
}
