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

// Package auth verifies login credentials against an external user store.
// Secrets are only ever compared as bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

const (
	BackendMySQL     = "mysql"
	BackendDragonfly = "dragonfly"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredential  = errors.New("identifier and secret are required")
)

// Credential is what a caller submits to log in.
type Credential struct {
	Identifier string `json:"email"`
	Secret     string `json:"password"`
}

// Validate reports ErrMissingCredential when either field is blank.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.Identifier) == "" || c.Secret == "" {
		return ErrMissingCredential
	}
	return nil
}

// Verifier checks a credential. Verify returns nil on a match,
// ErrInvalidCredentials on a mismatch or unknown identifier, and any other
// error when the backend itself failed.
type Verifier interface {
	Verify(ctx context.Context, c Credential) error
	Close() error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Options selects and configures the backend used by Open.
type Options struct {
	Backend        string
	MySQL          MySQLOptions
	Dragonfly      DragonflyOptions
	ConnectTimeout time.Duration
}

// Open builds the configured verifier and blocks until its backend answers
// a ping, retrying with exponential backoff for up to ConnectTimeout.
func Open(ctx context.Context, opts Options) (Verifier, error) {
	var (
		v   Verifier
		err error
	)
	switch opts.Backend {
	case BackendMySQL:
		v, err = OpenMySQL(opts.MySQL)
	case BackendDragonfly:
		v = NewDragonflyVerifier(opts.Dragonfly)
	default:
		return nil, fmt.Errorf("unknown auth backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if p, ok := v.(pinger); ok {
		if err := connectWithRetry(ctx, opts.ConnectTimeout, p.Ping); err != nil {
			_ = v.Close()
			return nil, fmt.Errorf("connect %s auth backend: %w", opts.Backend, err)
		}
	}
	fwlog.Infof("Auth backend %s connected", opts.Backend)
	return v, nil
}

var (
	initialRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = 5 * time.Second
	pingTimeout          = 5 * time.Second
)

func connectWithRetry(ctx context.Context, maxElapsed time.Duration, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialRetryInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return ping(pctx)
	}
	notify := func(err error, next time.Duration) {
		fwlog.Warnf("Auth backend not reachable (attempt %d): %v; retrying in %v", attempt, err, next)
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

var hashCost = bcrypt.DefaultCost

// HashSecret returns the bcrypt hash stored in place of a secret.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingCredential
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func compareSecret(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	// Rows left over from plaintext storage can never match; they are
	// reported like any other mismatch and need re-provisioning.
	fwlog.Warnf("Stored secret is not a bcrypt hash: %v", err)
	return ErrInvalidCredentials
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// burnCompare spends roughly one bcrypt comparison so unknown identifiers
// take as long as wrong secrets.
func burnCompare(secret string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("filebox-unknown-user"), hashCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
}
