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
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

const requestIDHeader = "X-Request-Id"

type requestObserver interface {
	ObserveRequest(method, route string, code int, d time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests logs one line per request and feeds the observer, if any.
// The route label is the matched mux pattern so file names never become
// label values.
func logRequests(next http.Handler, observer requestObserver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)

		if observer != nil {
			observer.ObserveRequest(r.Method, route, status, latency)
		}

		const format = "http request id=%s method=%s path=%s status=%d bytes=%d latency=%v remote=%s"
		args := []any{reqID, r.Method, r.URL.Path, status, rec.bytes, latency, r.RemoteAddr}
		switch {
		case status >= http.StatusInternalServerError:
			fwlog.Errorf(format, args...)
		case status >= http.StatusBadRequest:
			fwlog.Warnf(format, args...)
		default:
			fwlog.Infof(format, args...)
		}
	})
}
