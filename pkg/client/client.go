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

// Package client talks to a filebox server over its JSON and multipart API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/storage"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// storage or auth sentinel where one exists.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.StatusCode)
	}
	return fmt.Sprintf("server answered %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return auth.ErrInvalidCredentials
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return storage.ErrTooLarge
	}
	return nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) fileURL(name string) string {
	return c.baseURL + "/api/files/" + url.PathEscape(name)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
}

// Login checks a credential against the server.
func (c *Client) Login(ctx context.Context, cred auth.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files", nil)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := c.do(req, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Upload streams r to the server under name without buffering it.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*storage.StoredFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		StoredFile *storage.StoredFile `json:"storedFile"`
	}
	if err := c.do(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	return out.StoredFile, nil
}

// Download copies the named file into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(name), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readAPIError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.fileURL(name), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
