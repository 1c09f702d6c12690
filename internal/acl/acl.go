// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package acl implements the ACL gate and per-IP rate limiter that sit in
// front of dispatch: per-user command allow-lists, bcrypt-hashed
// passwords, JWT session tokens, and a golang.org/x/time/rate token
// bucket per client IP.
package acl

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// ErrDenied is returned by Gate.Check when a user is not allowed to run a
// command; the connection layer replies with its text, which starts with
// "NOPERM", as an error frame.
var ErrDenied = errors.New("NOPERM this user is not allowed to run this command")

// User is one ACL principal: a bcrypt password hash and the set of
// command names (case-insensitive) it may run. An empty Commands set
// denies everything; there is no implicit "allow all" default.
type User struct {
	Username     string
	PasswordHash []byte
	Commands     map[string]bool
}

// Allows reports whether u may run the named command.
func (u *User) Allows(command string) bool {
	return u.Commands[strings.ToUpper(command)]
}

// Gate holds the registered users and issues/verifies JWT session tokens.
// The zero value is not usable; construct with New.
type Gate struct {
	mu        sync.RWMutex
	users     map[string]*User
	jwtSecret []byte
	tokenTTL  time.Duration
}

// New builds a Gate. jwtSecret signs and verifies session tokens with
// HS256 with a single shared secret.
func New(jwtSecret []byte, tokenTTL time.Duration) *Gate {
	return &Gate{
		users:     make(map[string]*User),
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// AddUser registers a user, hashing password with bcrypt at its default
// cost.
func (g *Gate) AddUser(username, password string, commands []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(commands))
	for _, c := range commands {
		allowed[strings.ToUpper(c)] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[username] = &User{Username: username, PasswordHash: hash, Commands: allowed}
	return nil
}

// Authenticate checks username/password and, on success, issues a signed
// session token carrying the username as its subject.
func (g *Gate) Authenticate(username, password string) (token string, err error) {
	g.mu.RLock()
	u, ok := g.users[username]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("ACL: unknown user %q", username)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", fmt.Errorf("ACL: authentication failed for %q", username)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
	}
	if g.tokenTTL > 0 {
		claims["exp"] = now.Add(g.tokenTTL).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.jwtSecret)
}

// Login checks username/password and returns the User directly, with no
// token issued. AUTH on a RESP connection uses this: the connection itself
// is the session, so there is nothing for a bearer token to stand in for.
// Authenticate/Resolve remain for callers (the HTTP façade) that need a
// token they can hand back across separate requests.
func (g *Gate) Login(username, password string) (*User, error) {
	g.mu.RLock()
	u, ok := g.users[username]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ACL: unknown user %q", username)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("ACL: authentication failed for %q", username)
	}
	return u, nil
}

// Resolve verifies a session token and returns the User it names.
func (g *Gate) Resolve(token string) (*User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("ACL: unexpected signing method %v", t.Method)
		}
		return g.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("ACL: invalid session token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("ACL: invalid session token")
	}
	sub, _ := claims["sub"].(string)

	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[sub]
	if !ok {
		return nil, fmt.Errorf("ACL: unknown user %q", sub)
	}
	return u, nil
}

// Check gates a command for a resolved user, returning ErrDenied if the
// user's allow-list doesn't include it.
func (g *Gate) Check(u *User, command string) error {
	if u == nil || !u.Allows(command) {
		return ErrDenied
	}
	return nil
}

// Limiter is a per-IP token bucket rate limiter built on
// golang.org/x/time/rate, with one lazily created bucket per client IP.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewLimiter builds a Limiter allowing rps sustained requests per second
// with burst headroom, per remote IP.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether the client at ip may proceed right now, consuming
// one token from its bucket if so.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[ip] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
