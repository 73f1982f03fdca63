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

// Command useradd provisions login credentials. With --dragonfly it writes
// the bcrypt hash straight into Dragonfly; without it, it prints the hash
// for insertion into the MySQL users table.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fawa-io/filebox/pkg/auth"
	"github.com/fawa-io/filebox/pkg/fwlog"
)

func main() {
	email := pflag.String("email", "", "Login identifier.")
	password := pflag.String("password", "", "Login secret.")
	dragonfly := pflag.String("dragonfly", "", "Dragonfly address; empty prints the hash instead.")
	remove := pflag.Bool("delete", false, "Remove the credential from Dragonfly.")
	pflag.Parse()

	cred := auth.Credential{Identifier: *email, Secret: *password}

	if *dragonfly == "" {
		if err := cred.Validate(); err != nil {
			fwlog.Fatal(err)
		}
		hash, err := auth.HashSecret(cred.Secret)
		if err != nil {
			fwlog.Fatal(err)
		}
		fmt.Println(insertStatement(cred.Identifier, hash))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := auth.NewDragonflyVerifier(auth.DragonflyOptions{Addr: *dragonfly})
	defer store.Close()

	if *remove {
		if err := store.DeleteCredential(ctx, cred.Identifier); err != nil {
			fwlog.Fatalf("Failed to delete %s: %v", cred.Identifier, err)
		}
		fwlog.Infof("Deleted credential for %s", cred.Identifier)
		return
	}
	if err := store.SetCredential(ctx, cred); err != nil {
		fwlog.Fatalf("Failed to store %s: %v", cred.Identifier, err)
	}
	fwlog.Infof("Stored credential for %s", cred.Identifier)
}

var sqlQuoter = strings.NewReplacer(`\`, `\\`, `'`, `''`, "\x00", `\0`)

// insertStatement renders a MySQL INSERT for the users table. Values are
// quoted for the default sql_mode, where backslash is an escape character.
func insertStatement(email, hash string) string {
	return fmt.Sprintf("INSERT INTO users (email, password) VALUES ('%s', '%s');",
		sqlQuoter.Replace(email), sqlQuoter.Replace(hash))
}
