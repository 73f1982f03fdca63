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
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/fawa-io/filebox/pkg/fwlog"
	"github.com/fawa-io/filebox/pkg/storage"
	"github.com/fawa-io/filebox/pkg/util"
)

// fileField is the multipart field carrying the upload.
const fileField = "file"

// multipartOverhead is allowed on top of the size limit for part headers
// and boundaries.
const multipartOverhead = 1 << 20

// FileServiceHandler serves upload, list, download and delete over HTTP.
// It holds no state of its own; everything lives in Store.
type FileServiceHandler struct {
	Store         storage.BlobStore
	MaxUploadSize int64
}

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	util.Message
	StoredFile *storage.StoredFile `json:"storedFile"`
}

// Register adds the file routes to mux.
func (s *FileServiceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", s.Upload)
	mux.HandleFunc("GET /api/files", s.List)
	mux.HandleFunc("GET /api/files/{name}", s.Download)
	mux.HandleFunc("DELETE /api/files/{name}", s.Delete)
}

func (s *FileServiceHandler) maxUploadSize() int64 {
	if s.MaxUploadSize > 0 {
		return s.MaxUploadSize
	}
	return storage.DefaultMaxUploadSize
}

// writeStoreError maps store failures onto status codes.
func writeStoreError(w http.ResponseWriter, op, name string, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		util.WriteMessage(w, http.StatusBadRequest, "invalid file name")
	case errors.Is(err, storage.ErrNotFound):
		util.WriteMessage(w, http.StatusNotFound, "file not found")
	case errors.Is(err, storage.ErrTooLarge), errors.As(err, &maxBytes):
		util.WriteMessage(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
	default:
		fwlog.Errorf("Failed to %s %q: %v", op, name, err)
		util.WriteMessage(w, http.StatusInternalServerError, "failed to "+op+" file")
	}
}

// Upload streams the first "file" part of a multipart body into the store.
func (s *FileServiceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		util.WriteMessage(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			util.WriteMessage(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				util.WriteMessage(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
				return
			}
			util.WriteMessage(w, http.StatusBadRequest, "malformed multipart body")
			return
		}

		// FileName strips any directory components the client sent.
		name := part.FileName()
		if part.FormName() != fileField || name == "" {
			_ = part.Close()
			continue
		}

		fwlog.Debugf("Upload of %q started", name)
		stored, err := s.Store.Put(r.Context(), name, part, limit)
		_ = part.Close()
		if err != nil {
			writeStoreError(w, "upload", name, err)
			return
		}

		fwlog.Infof("File %s uploaded successfully (%d bytes).", stored.Name, stored.Size)
		util.WriteJSON(w, http.StatusOK, UploadResponse{
			Message:    util.Message{Message: "file uploaded successfully", Status: util.StatusSuccess},
			StoredFile: stored,
		})
		return
	}
}

// List returns the stored file names as a JSON array.
func (s *FileServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := s.Store.List(r.Context())
	if err != nil {
		fwlog.Errorf("Failed to list files: %v", err)
		util.WriteMessage(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	util.WriteJSON(w, http.StatusOK, names)
}

// Download streams a stored file back with attachment headers.
func (s *FileServiceHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fwlog.Debugf("Request to download file: %s", name)

	obj, err := s.Store.Get(r.Context(), name)
	if err != nil {
		writeStoreError(w, "download", name, err)
		return
	}
	defer func() {
		if err := obj.Close(); err != nil {
			fwlog.Warnf("Failed to close %s: %v", name, err)
		}
	}()

	h := w.Header()
	h.Set("Content-Type", obj.ContentType)
	h.Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if !obj.Info.ModTime.IsZero() {
		h.Set("Last-Modified", obj.Info.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	n, err := io.Copy(w, obj)
	if err != nil {
		// headers are gone; all that is left is to log
		fwlog.Warnf("Download of %s aborted after %d bytes: %v", name, n, err)
		return
	}
	fwlog.Infof("File %s sent successfully (%d bytes in %v).", name, n, time.Since(start))
}

// Delete removes a stored file.
func (s *FileServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.Store.Delete(r.Context(), name); err != nil {
		writeStoreError(w, "delete", name, err)
		return
	}
	fwlog.Infof("File %s deleted.", name)
	util.WriteMessage(w, http.StatusOK, "file deleted successfully")
}
