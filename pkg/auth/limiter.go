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
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = time.Minute

// Limiter throttles login attempts per client key. A nil *Limiter allows
// everything.
type Limiter struct {
	limit rate.Limit
	burst int
	cache *ttlcache.Cache[string, *rate.Limiter]
}

// NewLimiter allows perSecond attempts per key with the given burst. It
// returns nil when perSecond is not positive. Idle keys expire after a
// minute.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}

	cache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](limiterIdleTTL),
	)
	go cache.Start()

	return &Limiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		cache: cache,
	}
}

// Allow reports whether key may make another attempt now.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	item, _ := l.cache.GetOrSet(key, rate.NewLimiter(l.limit, l.burst))
	return item.Value().Allow()
}

// Stop ends the expiry goroutine.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.cache.Stop()
}
