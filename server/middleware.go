// Copyright 2025 Poiesic Systems
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

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const msgRateLimited = "Too many requests. Please slow down."

// idle clients are forgotten after this long
const limiterIdleTTL = 10 * time.Minute

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"elapsed", time.Since(start))
	}
}

// Timeout bounds the request context so a hung dependency cannot hold a
// worker forever. Handlers observe it through c.Request.Context().
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiters{
		limit:     rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (l *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, cl := range l.clients {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit rejects clients that exceed rps sustained requests per second
// with bursts up to burst. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := newClientLimiters(rps, burst)

	return func(c *gin.Context) {
		now := time.Now()
		limiter := limiters.get(c.ClientIP(), now)

		reservation := limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
			return
		}
		c.Next()
	}
}
