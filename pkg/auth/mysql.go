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
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

const selectSecretHash = "SELECT password FROM users WHERE email = ? LIMIT 1"

// MySQLOptions are the DB_* environment settings.
type MySQLOptions struct {
	Host     string
	User     string
	Password string
	Database string
}

// DSN renders the options as a go-sql-driver DSN. Port 3306 is assumed when
// Host carries none.
func (o MySQLOptions) DSN() string {
	addr := o.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "3306")
	}

	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = o.Database
	cfg.ParseTime = true
	cfg.Timeout = 5 * time.Second
	return cfg.FormatDSN()
}

// MySQLVerifier looks up bcrypt hashes in the users table.
type MySQLVerifier struct {
	db *sql.DB
}

// NewMySQLVerifier wraps an existing handle.
func NewMySQLVerifier(db *sql.DB) *MySQLVerifier {
	return &MySQLVerifier{db: db}
}

// OpenMySQL creates the connection pool. database/sql replaces broken
// connections on its own, so no reconnect logic lives here.
func OpenMySQL(o MySQLOptions) (*MySQLVerifier, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return NewMySQLVerifier(db), nil
}

func (v *MySQLVerifier) Verify(ctx context.Context, c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var hash string
	err := v.db.QueryRowContext(ctx, selectSecretHash, c.Identifier).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		burnCompare(c.Secret)
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	return compareSecret(hash, c.Secret)
}

func (v *MySQLVerifier) Ping(ctx context.Context) error {
	return v.db.PingContext(ctx)
}

func (v *MySQLVerifier) Close() error {
	return v.db.Close()
}
