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

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

var validate = validator.New()

// Validate checks struct tags first, then the backend-specific rules that
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if _, err := fwlog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}

	switch cfg.Storage.Backend {
	case StorageLocal:
		if cfg.Storage.Dir == "" {
			return errors.New("storage.dir: required for the local backend")
		}
	case StorageMinio:
		m := cfg.Storage.Minio
		if m.Endpoint == "" || m.AccessKeyID == "" || m.SecretAccessKey == "" || m.Bucket == "" {
			return errors.New("storage.minio: endpoint, accessKeyID, secretAccessKey and bucket are required for the minio backend")
		}
	}

	switch cfg.Auth.Backend {
	case AuthMySQL:
		m := cfg.Auth.MySQL
		if m.Host == "" || m.User == "" || m.Database == "" {
			return errors.New("auth.mysql: host, user and database are required for the mysql backend (DB_HOST, DB_USER, DB_NAME)")
		}
	case AuthDragonfly:
		if cfg.Auth.Dragonfly.Addr == "" {
			return errors.New("auth.dragonfly.addr: required for the dragonfly backend")
		}
	}

	if cfg.Auth.RateLimit > 0 && cfg.Auth.RateBurst < 1 {
		return errors.New("auth.rateBurst: must be at least 1 when rateLimit is set")
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
