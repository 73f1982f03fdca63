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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/config"
	"github.com/fawa-io/filebox/pkg/fwlog"
	"github.com/fawa-io/filebox/pkg/metrics"
	"github.com/fawa-io/filebox/pkg/storage"
	"github.com/fawa-io/filebox/pkg/util"
	"github.com/fawa-io/filebox/service"
)

func newBlobStore(ctx context.Context, c config.StorageConfig) (storage.BlobStore, error) {
	switch c.Backend {
	case config.StorageLocal:
		fwlog.Infof("Using local blob store at %s", c.Dir)
		// Create upload dir up front so a bad path fails at startup.
		if !util.Exist(c.Dir) {
			if err := util.EnsureDir(c.Dir); err != nil {
				return nil, err
			}
		}
		return storage.NewLocalStore(c.Dir), nil
	case config.StorageMinio:
		fwlog.Infof("Using minio blob store %s/%s", c.Minio.Endpoint, c.Minio.Bucket)
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:        c.Minio.Endpoint,
			AccessKeyID:     c.Minio.AccessKeyID,
			SecretAccessKey: c.Minio.SecretAccessKey,
			Bucket:          c.Minio.Bucket,
			UseSSL:          c.Minio.UseSSL,
		})
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
}

func openVerifier(ctx context.Context, c config.AuthConfig) (auth.Verifier, error) {
	return auth.Open(ctx, auth.Options{
		Backend: c.Backend,
		MySQL: auth.MySQLOptions{
			Host:     c.MySQL.Host,
			User:     c.MySQL.User,
			Password: c.MySQL.Password,
			Database: c.MySQL.Database,
		},
		Dragonfly: auth.DragonflyOptions{
			Addr:     c.Dragonfly.Addr,
			Password: c.Dragonfly.Password,
			DB:       c.Dragonfly.DB,
		},
		ConnectTimeout: c.ConnectTimeout,
	})
}

func main() {
	if err := config.InitConfig(); err != nil {
		fwlog.Fatalf("Failed to initialize configuration: %v", err)
	}

	cfg := config.Get()

	logLevel, err := fwlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fwlog.Warnf("Invalid initial log level '%s': %v. Using default.", cfg.LogLevel, err)
	}
	fwlog.SetLevel(logLevel)
	fwlog.Infof("Logger initialized with level: %s", logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		fwlog.Fatalf("Failed to initialize blob store: %v", err)
	}

	verifier, err := openVerifier(ctx, cfg.Auth)
	if err != nil {
		fwlog.Fatalf("Failed to connect to the auth backend: %v", err)
	}

	limiter := auth.NewLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)

	var sampler *metrics.Sampler
	if cfg.Metrics.Enabled {
		sampler = metrics.NewSampler()
		sampler.Start(cfg.Metrics.Interval)
	}

	fileboxSrv := &http.Server{
		Addr: cfg.Addr,
		Handler: service.NewRouter(service.Deps{
			Store:         store,
			MaxUploadSize: cfg.Storage.MaxUploadSize,
			Verifier:      verifier,
			Limiter:       limiter,
			Sampler:       sampler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		fwlog.Info("Shutting down server...")

		// Set timeout for HTTP server shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := fileboxSrv.Shutdown(shutdownCtx); err != nil {
			fwlog.Errorf("Server shutdown error: %v", err)
		}
	}()

	serve(fileboxSrv, cfg.CertFile, cfg.KeyFile)
	<-shutdownDone

	if sampler != nil {
		sampler.Stop()
	}
	limiter.Stop()
	if err := verifier.Close(); err != nil {
		fwlog.Errorf("Error closing auth backend: %v", err)
	}
	fwlog.Info("Server shutdown complete")
}

// serve blocks until the server stops. It uses TLS when both certificate
// files exist and plain HTTP otherwise.
func serve(srv *http.Server, certFile, keyFile string) {
	fwlog.Infof("Server starting on %v", srv.Addr)

	if certFile != "" && keyFile != "" {
		if _, err := os.Stat(certFile); err == nil {
			if _, err := os.Stat(keyFile); err == nil {
				fwlog.Infof("Starting HTTPS server with certificates: %s, %s", certFile, keyFile)
				if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
					fwlog.Fatalf("Failed to start HTTPS server: %v", err)
				}
				return
			}
		}
		fwlog.Warnf("Certificate files not found, falling back to HTTP mode")
	}

	fwlog.Infof("Starting HTTP server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fwlog.Fatalf("Failed to start HTTP server: %v", err)
	}
}
