// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package auth

import (
	"sync"
	"time"
)

// Throttle defaults. Five failures inside a fifteen-minute window lock the
// key out for ten minutes.
const (
	DefaultThrottleWindow   = 15 * time.Minute
	DefaultThrottleLock     = 10 * time.Minute
	DefaultThrottleAttempts = 5
)

// ThrottleConfig tunes a Throttle. Zero values fall back to the defaults.
type ThrottleConfig struct {
	Window      time.Duration
	Lock        time.Duration
	MaxAttempts int
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Throttle tracks credential-flow failures per key (typically the client IP)
// and locks a key out after repeated failures. It only slows online guessing;
// the account-level invariants do not depend on it.
type Throttle struct {
	window      time.Duration
	lock        time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]*attemptState
}

// NewThrottle creates a Throttle.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.Window <= 0 {
		cfg.Window = DefaultThrottleWindow
	}
	if cfg.Lock <= 0 {
		cfg.Lock = DefaultThrottleLock
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultThrottleAttempts
	}
	return &Throttle{
		window:      cfg.Window,
		lock:        cfg.Lock,
		maxAttempts: cfg.MaxAttempts,
		attempts:    make(map[string]*attemptState),
	}
}

// RetryAfter returns how long the key remains locked out, or zero when the
// key may attempt again.
func (t *Throttle) RetryAfter(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.attempts[key]
	if !ok {
		return 0
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

// RecordFailure registers a failed attempt for the key and returns the number
// of attempts remaining before lockout.
func (t *Throttle) RecordFailure(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	state, ok := t.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > t.window {
		state = &attemptState{firstAttempt: now}
		t.attempts[key] = state
	}

	state.count++
	if state.count >= t.maxAttempts {
		state.lockedUntil = now.Add(t.lock)
		state.count = t.maxAttempts
	}

	remaining := t.maxAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset clears the failure state for the key, typically after a success.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, key)
}
