// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the server configuration: an optional .env file
// first, then config.json validated against an embedded JSON Schema
// before it is decoded. Every field has a default, so a missing
// config.json starts a usable single-node server on 127.0.0.1:6379.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zedis/zedis/internal/acl"
	"github.com/zedis/zedis/pkg/log"
)

// UserConfig declares one ACL principal and the commands it may run. An
// empty Commands list allows no command at all.
type UserConfig struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Commands []string `json:"commands"`
}

// RateLimitConfig bounds each client IP to Rps requests per second with
// bursts of up to Burst.
type RateLimitConfig struct {
	Rps   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

// NatsConfig enables the optional cross-process pub/sub bridge.
type NatsConfig struct {
	URL    string `json:"url"`
	Prefix string `json:"prefix"`
}

// S3Config enables optional snapshot mirroring to an object store.
type S3Config struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// LdapConfig mirrors acl.LdapConfig with JSON tags.
type LdapConfig struct {
	URL           string   `json:"url"`
	BindDN        string   `json:"bind-dn"`
	BindPassword  string   `json:"bind-password"`
	UserBase      string   `json:"user-base"`
	UserFilter    string   `json:"user-filter"`
	DefaultCmds   []string `json:"default-commands"`
	RemoveMissing bool     `json:"remove-missing"`
}

// ToACL converts the JSON shape to what acl.Gate.SyncLDAP takes.
func (l *LdapConfig) ToACL() acl.LdapConfig {
	return acl.LdapConfig{
		URL:           l.URL,
		BindDN:        l.BindDN,
		BindPassword:  l.BindPassword,
		UserBase:      l.UserBase,
		UserFilter:    l.UserFilter,
		DefaultCmds:   l.DefaultCmds,
		RemoveMissing: l.RemoveMissing,
	}
}

// ProgramConfig is the decoded shape of config.json.
type ProgramConfig struct {
	// Address the RESP listener binds, host:port.
	Addr string `json:"addr"`

	// If both are set, the listener speaks TLS.
	CertFile string `json:"cert-file"`
	KeyFile  string `json:"key-file"`

	// Durability. Fsync is one of "always", "everysec", "no".
	AppendOnlyFile string `json:"appendonly-file"`
	Fsync          string `json:"fsync"`
	SnapshotFile   string `json:"snapshot-file"`

	// If non-empty, a Go duration ("5m") between automatic SAVEs.
	SnapshotInterval string `json:"snapshot-interval"`

	// Best-effort mirror of mutating commands, host:port. No
	// acknowledgement is ever read back.
	ShadowAddr string `json:"shadow-addr"`

	// ACL. With no users and no ldap configured, authentication is
	// disabled and every connection may run every command. JwtSecret supports the "env:NAME"
	// indirection so the secret itself stays out of config.json.
	JwtSecret     string          `json:"jwt-secret"`
	SessionMaxAge string          `json:"session-max-age"`
	Users         []UserConfig    `json:"users"`
	RateLimit     *RateLimitConfig `json:"rate-limit"`
	Ldap          *LdapConfig     `json:"ldap"`

	// Optional collaborators.
	Nats          *NatsConfig `json:"nats"`
	S3            *S3Config   `json:"s3"`
	EtlConfigFile string      `json:"etl-config-file"`
	SearchAddr    string      `json:"search-addr"`
	MetricsAddr   string      `json:"metrics-addr"`

	// Embedding collaborator: dimension of the stub embedder, and the
	// optional model directory handed to it (never opened by the core).
	EmbeddingDim int    `json:"embedding-dim"`
	ModelDir     string `json:"model-dir"`
}

// Keys holds the active configuration and its defaults.
var Keys = ProgramConfig{
	Addr:           "127.0.0.1:6379",
	AppendOnlyFile: "./appendonly.aof",
	Fsync:          "everysec",
	SnapshotFile:   "./dump.rdb",
	SessionMaxAge:  "168h",
	EmbeddingDim:   64,
}

// LoadEnv reads a .env file into the process environment, ignoring a
// missing file. Runs before Init so "env:" indirections resolve.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Init loads and validates configPath into Keys. A missing file keeps the
// defaults; any other failure is fatal, since serving with a half-read
// config is worse than not starting.
func Init(configPath string) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("config: no %s, using defaults", configPath)
			return
		}
		log.Fatalf("config: reading %s: %v", configPath, err)
	}

	if err := Validate(configSchema, raw); err != nil {
		log.Fatalf("config: validating %s: %v", configPath, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("config: decoding %s: %v", configPath, err)
	}

	Keys.JwtSecret = resolveEnvIndirection(Keys.JwtSecret)
}

// resolveEnvIndirection maps "env:NAME" to the value of $NAME, so secrets
// can live in the environment (or .env) instead of config.json.
func resolveEnvIndirection(v string) string {
	if name, ok := strings.CutPrefix(v, "env:"); ok {
		return os.Getenv(name)
	}
	return v
}
