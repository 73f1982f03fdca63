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

// Package service assembles the HTTP surface of the file box.
package service

import (
	"net/http"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/cors"
	"github.com/fawa-io/filebox/pkg/metrics"
	"github.com/fawa-io/filebox/pkg/storage"
	"github.com/fawa-io/filebox/pkg/util"
	"github.com/fawa-io/filebox/service/file"
	"github.com/fawa-io/filebox/service/login"
)

// Deps are the collaborators the router hands to its handlers. Verifier may
// be nil, in which case the login routes are not served. Sampler may be nil,
// in which case /metrics is not served and requests are not counted.
type Deps struct {
	Store         storage.BlobStore
	MaxUploadSize int64
	Verifier      auth.Verifier
	Limiter       *auth.Limiter
	Sampler       *metrics.Sampler
}

// NewRouter registers every route and wraps them with request logging and
// CORS.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	fileSvcHdr := &file.FileServiceHandler{
		Store:         d.Store,
		MaxUploadSize: d.MaxUploadSize,
	}
	fileSvcHdr.Register(mux)

	if d.Verifier != nil {
		loginHdr := &login.Handler{
			Verifier: d.Verifier,
			Limiter:  d.Limiter,
		}
		loginHdr.Register(mux)
	}

	var observer requestObserver
	if d.Sampler != nil {
		mux.Handle("GET /metrics", d.Sampler.Handler())
		observer = d.Sampler
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return cors.NewCORS().Handler(logRequests(mux, observer))
}
