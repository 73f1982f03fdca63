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

// Command client drives a filebox server from the shell.
//
//	client [--server URL] login <email> <password>
//	client [--server URL] list
//	client [--server URL] upload <path> [name]
//	client [--server URL] download <name> [path]
//	client [--server URL] delete <name>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/client"
	"github.com/fawa-io/filebox/pkg/fwlog"
)

func main() {
	server := pflag.String("server", "http://127.0.0.1:5000", "Base URL of the filebox server.")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, client.New(*server, nil), pflag.Args()); err != nil {
		fwlog.Fatal(err)
	}
}

func run(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command: login, list, upload, download or delete")
	}
	cmd, args := args[0], args[1:]

	switch {
	case cmd == "login" && len(args) == 2:
		if err := c.Login(ctx, auth.Credential{Identifier: args[0], Secret: args[1]}); err != nil {
			return err
		}
		fmt.Println("login successful")

	case cmd == "list" && len(args) == 0:
		names, err := c.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case cmd == "upload" && (len(args) == 1 || len(args) == 2):
		name := filepath.Base(args[0])
		if len(args) == 2 {
			name = args[1]
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		stored, err := c.Upload(ctx, name, f)
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %s (%d bytes)\n", stored.Name, stored.Size)

	case cmd == "download" && (len(args) == 1 || len(args) == 2):
		path := args[0]
		if len(args) == 2 {
			path = args[1]
		}
		n, err := download(ctx, c, args[0], path)
		if err != nil {
			return err
		}
		fmt.Printf("downloaded %s (%d bytes)\n", path, n)

	case cmd == "delete" && len(args) == 1:
		if err := c.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])

	default:
		return fmt.Errorf("unknown command or wrong arguments: %s", cmd)
	}
	return nil
}

// download writes into a temp file next to path and renames it into place
// only once the transfer succeeds, so a failure leaves path untouched.
func download(ctx context.Context, c *client.Client, name, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, err := c.Download(ctx, name, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	return n, nil
}
