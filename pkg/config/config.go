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
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"

	AuthMySQL     = "mysql"
	AuthDragonfly = "dragonfly"
)

type Config struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	CertFile string `mapstructure:"certFile" validate:"required_with=KeyFile"`
	KeyFile  string `mapstructure:"keyFile" validate:"required_with=CertFile"`
	LogLevel string `mapstructure:"logLevel"`

	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StorageConfig struct {
	Backend       string      `mapstructure:"backend" validate:"oneof=local minio"`
	Dir           string      `mapstructure:"dir"`
	MaxUploadSize int64       `mapstructure:"maxUploadSize" validate:"gt=0"`
	Minio         MinioConfig `mapstructure:"minio"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"useSSL"`
}

type AuthConfig struct {
	Backend        string          `mapstructure:"backend" validate:"oneof=mysql dragonfly"`
	MySQL          MySQLConfig     `mapstructure:"mysql"`
	Dragonfly      DragonflyConfig `mapstructure:"dragonfly"`
	ConnectTimeout time.Duration   `mapstructure:"connectTimeout" validate:"gt=0"`
	// RateLimit is login attempts per second per client; 0 disables it.
	RateLimit float64 `mapstructure:"rateLimit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rateBurst" validate:"gte=0"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type DragonflyConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

var (
	once sync.Once

	mu sync.RWMutex

	config Config
)

// envBindings maps config keys onto the environment variables the
// deployment already provides.
var envBindings = map[string]string{
	"auth.mysql.host":               "DB_HOST",
	"auth.mysql.user":               "DB_USER",
	"auth.mysql.password":           "DB_PASSWORD",
	"auth.mysql.database":           "DB_NAME",
	"auth.dragonfly.addr":           "DRAGONFLY_ADDR",
	"storage.minio.endpoint":        "MINIO_ENDPOINT",
	"storage.minio.accessKeyID":     "MINIO_ACCESS_KEY_ID",
	"storage.minio.secretAccessKey": "MINIO_SECRET_ACCESS_KEY",
	"storage.minio.bucket":          "MINIO_BUCKET_NAME",
	"storage.minio.useSSL":          "MINIO_USE_SSL",
}

func InitConfig() error {
	var initErr error
	once.Do(func() {
		initErr = LoadAndWatch()
	})
	return initErr
}

func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:5000")
	v.SetDefault("certFile", "")
	v.SetDefault("keyFile", "")
	v.SetDefault("logLevel", "info")

	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.dir", "./uploads")
	v.SetDefault("storage.maxUploadSize", 10_000_000)

	v.SetDefault("auth.backend", AuthMySQL)
	v.SetDefault("auth.dragonfly.addr", "localhost:6379")
	v.SetDefault("auth.connectTimeout", 30*time.Second)
	v.SetDefault("auth.rateLimit", 5)
	v.SetDefault("auth.rateBurst", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.interval", 5*time.Second)
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("the configuration cannot be decoded into the struct: %w", err)
	}
	if err := Validate(&c); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return c, nil
}

func LoadAndWatch() error {
	pflag.String("addr", "", "HTTP service address (e.g., '127.0.0.1:5000')")
	pflag.String("certFile", "", "Path to the TLS certificate file.")
	pflag.String("keyFile", "", "Path to the TLS private key file.")
	pflag.String("logLevel", "", "Log level: debug, info, warn, error or fatal.")
	pflag.String("storage.backend", "", "Blob store backend: local or minio.")
	pflag.String("storage.dir", "", "Directory the local blob store writes to.")
	pflag.String("auth.backend", "", "Credential backend: mysql or dragonfly.")
	pflag.Parse()

	v := viper.GetViper()
	setDefaults(v)

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return fmt.Errorf("failed to bind pflags: %w", err)
	}
	if err := bindEnv(v); err != nil {
		return err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/filebox/")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fwlog.Infof("Config file not found, using defaults.")
		} else {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}

	c, err := decode(v)
	if err != nil {
		return err
	}
	mu.Lock()
	config = c
	mu.Unlock()

	v.OnConfigChange(func(e fsnotify.Event) {
		fwlog.Infof("Config file %s changed, reloading...", e.Name)
		reload(v)
	})
	v.WatchConfig()

	return nil
}

// reload swaps in the new configuration and re-applies the log level. A
// configuration that fails to decode or validate is ignored. Only the log
// level takes effect without a restart.
func reload(v *viper.Viper) {
	c, err := decode(v)
	if err != nil {
		fwlog.Errorf("Error while reloading config, keeping previous: %v", err)
		return
	}

	mu.Lock()
	config = c
	mu.Unlock()

	level, err := fwlog.ParseLevel(c.LogLevel)
	if err != nil {
		fwlog.Warnf("New log level in config is invalid: %v. Keeping previous level.", err)
		return
	}
	fwlog.SetLevel(level)
	fwlog.Infof("Log level reloaded successfully to: %s", level)
}
