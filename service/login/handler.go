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

package login

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/fwlog"
	"github.com/fawa-io/filebox/pkg/util"
)

const maxBodySize = 1 << 16

// Handler answers login attempts. The response never says which field
// was wrong.
type Handler struct {
	Verifier auth.Verifier
	Limiter  *auth.Limiter
}

// Register adds the login routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /api/login", h.Login)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(clientKey(r)) {
		util.WriteMessage(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var cred auth.Credential
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&cred); err != nil {
		util.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := cred.Validate(); err != nil {
		util.WriteMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	err := h.Verifier.Verify(r.Context(), cred)
	switch {
	case err == nil:
		fwlog.Infof("Login succeeded for %s", cred.Identifier)
		util.WriteMessage(w, http.StatusOK, "login successful")
	case errors.Is(err, auth.ErrInvalidCredentials):
		fwlog.Infof("Login rejected for %s", cred.Identifier)
		util.WriteMessage(w, http.StatusUnauthorized, "incorrect email or password")
	default:
		fwlog.Errorf("Credential verification failed: %v", err)
		util.WriteMessage(w, http.StatusInternalServerError, "server error")
	}
}
