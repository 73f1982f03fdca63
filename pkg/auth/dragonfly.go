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

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

const credentialKeyPrefix = "filebox:credential:"

// DragonflyOptions configures the Dragonfly/Redis connection.
type DragonflyOptions struct {
	Addr     string
	Password string
	DB       int
}

// DragonflyVerifier keeps one bcrypt hash per identifier under
// credentialKeyPrefix.
type DragonflyVerifier struct {
	client redis.Cmdable
}

// NewDragonflyVerifier creates the client; it does not connect.
func NewDragonflyVerifier(opts DragonflyOptions) *DragonflyVerifier {
	return &DragonflyVerifier{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

func credentialKey(identifier string) string {
	return credentialKeyPrefix + identifier
}

func (d *DragonflyVerifier) Verify(ctx context.Context, c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	hash, err := d.client.Get(ctx, credentialKey(c.Identifier)).Result()
	if errors.Is(err, redis.Nil) {
		burnCompare(c.Secret)
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	return compareSecret(hash, c.Secret)
}

// SetCredential stores (or replaces) the hash for identifier.
func (d *DragonflyVerifier) SetCredential(ctx context.Context, c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}
	hash, err := HashSecret(c.Secret)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, credentialKey(c.Identifier), hash, 0).Err()
}

// DeleteCredential removes identifier. Unknown identifiers are not an error.
func (d *DragonflyVerifier) DeleteCredential(ctx context.Context, identifier string) error {
	return d.client.Del(ctx, credentialKey(identifier)).Err()
}

func (d *DragonflyVerifier) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes storage connections
func (d *DragonflyVerifier) Close() error {
	switch client := d.client.(type) {
	case *redis.Client:
		fwlog.Info("Closing Redis/Dragonfly connection...")
		return client.Close()
	case *redis.ClusterClient:
		fwlog.Info("Closing Redis/Dragonfly cluster connection...")
		return client.Close()
	}
	return nil
}
