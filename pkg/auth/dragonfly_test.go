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
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragonflyVerifier_Verify(t *testing.T) {
	client, mock := redismock.NewClientMock()
	verifier := &DragonflyVerifier{client: client}
	hash := mustHash(t, "x")

	testCases := []struct {
		name    string
		cred    Credential
		mocker  func()
		wantErr error
		anyErr  bool
	}{
		{
			name: "match",
			cred: Credential{Identifier: "a@b.com", Secret: "x"},
			mocker: func() {
				mock.ExpectGet(credentialKey("a@b.com")).SetVal(hash)
			},
		},
		{
			name: "wrong secret",
			cred: Credential{Identifier: "a@b.com", Secret: "y"},
			mocker: func() {
				mock.ExpectGet(credentialKey("a@b.com")).SetVal(hash)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "key not found",
			cred: Credential{Identifier: "ghost@b.com", Secret: "x"},
			mocker: func() {
				mock.ExpectGet(credentialKey("ghost@b.com")).RedisNil()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "missing identifier",
			cred:    Credential{Secret: "x"},
			mocker:  func() {},
			wantErr: ErrMissingCredential,
		},
		{
			name: "redis error",
			cred: Credential{Identifier: "a@b.com", Secret: "x"},
			mocker: func() {
				mock.ExpectGet(credentialKey("a@b.com")).SetErr(errors.New("redis error"))
			},
			anyErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.mocker()
			err := verifier.Verify(context.Background(), tc.cred)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrInvalidCredentials)
			default:
				assert.NoError(t, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestDragonflyVerifier_SetCredential(t *testing.T) {
	client, mock := redismock.NewClientMock()
	verifier := &DragonflyVerifier{client: client}

	mock.Regexp().ExpectSet(credentialKey("a@b.com"), `^\$2a\$`, 0).SetVal("OK")
	require.NoError(t, verifier.SetCredential(context.Background(), Credential{Identifier: "a@b.com", Secret: "x"}))

	assert.ErrorIs(t, verifier.SetCredential(context.Background(), Credential{Identifier: "a@b.com"}), ErrMissingCredential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDragonflyVerifier_DeleteCredential(t *testing.T) {
	client, mock := redismock.NewClientMock()
	verifier := &DragonflyVerifier{client: client}

	mock.ExpectDel(credentialKey("a@b.com")).SetVal(1)
	assert.NoError(t, verifier.DeleteCredential(context.Background(), "a@b.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDragonflyVerifier_Ping(t *testing.T) {
	client, mock := redismock.NewClientMock()
	verifier := &DragonflyVerifier{client: client}

	mock.ExpectPing().SetErr(redis.ErrClosed)
	mock.ExpectPing().SetVal("PONG")

	assert.Error(t, verifier.Ping(context.Background()))
	assert.NoError(t, verifier.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
