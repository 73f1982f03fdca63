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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(0.001, 2)
	defer l.Stop()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")

	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")
}

func TestLimiter_Disabled(t *testing.T) {
	var l *Limiter = NewLimiter(0, 10)
	assert.Nil(t, l)

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	l.Stop()
}
