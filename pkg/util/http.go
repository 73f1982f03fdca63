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
	"encoding/json"
	"net/http"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message is the body shape shared by every JSON endpoint.
type Message struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fwlog.Warnf("Failed to encode response body: %v", err)
	}
}

// WriteMessage writes a Message. Codes below 400 are reported as success.
func WriteMessage(w http.ResponseWriter, code int, msg string) {
	status := StatusSuccess
	if code >= http.StatusBadRequest {
		status = StatusError
	}
	WriteJSON(w, code, Message{Message: msg, Status: status})
}
