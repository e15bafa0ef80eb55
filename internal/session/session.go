// Package session tracks whether the dashboard is logged in.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State holds the bearer token used for backend calls. A token that parses as a
// JWT with an "exp" claim in the past counts as logged out; opaque tokens never
// expire on the client side.
type State struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
	listeners []func(loggedIn bool)
	expTimer  *time.Timer
}

func New(token string) *State {
	s := &State{now: time.Now}
	s.set(strings.TrimSpace(token))
	return s
}

// OnChange registers fn to be called after every login/logout, and when a JWT
// expires, with the new state.
func (s *State) OnChange(fn func(loggedIn bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *State) Login(token string) {
	s.set(strings.TrimSpace(token))
	s.notify()
}

func (s *State) Logout() {
	s.set("")
	s.notify()
}

// Token returns the current token, or "" when logged out or expired.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loggedInLocked() {
		return ""
	}
	return s.token
}

func (s *State) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedInLocked()
}

// ExpiresAt is zero for opaque tokens.
func (s *State) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *State) loggedInLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

func (s *State) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiry(token)
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer = nil
	}
	// listeners learn about the expiry without waiting for the next Login/Logout
	if d := s.expiresAt.Sub(s.now()); !s.expiresAt.IsZero() && d > 0 {
		s.expTimer = time.AfterFunc(d, s.notify)
	}
}

func (s *State) notify() {
	s.mu.RLock()
	in := s.loggedInLocked()
	ls := append([]func(bool){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(in)
	}
}

// signature is the backend's business; only the expiry is read here
func expiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
