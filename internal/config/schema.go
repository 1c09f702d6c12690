// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

// configSchema is the JSON Schema config.json is validated against.
// additionalProperties is false everywhere so unknown keys fail loudly at
// validation time, matching DisallowUnknownFields at decode time.
const configSchema = `{
  "type": "object",
  "properties": {
    "addr": {
      "description": "Address the RESP listener binds (host:port).",
      "type": "string"
    },
    "cert-file": {
      "description": "TLS certificate path; TLS is enabled only with key-file.",
      "type": "string"
    },
    "key-file": {
      "description": "TLS key path; TLS is enabled only with cert-file.",
      "type": "string"
    },
    "appendonly-file": {
      "description": "Path of the append-only command log.",
      "type": "string"
    },
    "fsync": {
      "description": "AOL fsync policy.",
      "type": "string",
      "enum": ["always", "everysec", "no"]
    },
    "snapshot-file": {
      "description": "Path SAVE writes the binary snapshot to.",
      "type": "string"
    },
    "snapshot-interval": {
      "description": "Go duration between automatic snapshots, empty to disable.",
      "type": "string"
    },
    "shadow-addr": {
      "description": "Best-effort mirror target for mutating commands (host:port).",
      "type": "string"
    },
    "jwt-secret": {
      "description": "HMAC secret for AUTH session tokens; supports env:NAME indirection.",
      "type": "string"
    },
    "session-max-age": {
      "description": "Lifetime of AUTH session tokens as a Go duration.",
      "type": "string"
    },
    "users": {
      "description": "ACL principals. Empty (with no ldap) disables authentication.",
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "username": { "type": "string" },
          "password": { "type": "string" },
          "commands": {
            "type": "array",
            "items": { "type": "string" }
          }
        },
        "required": ["username", "password"],
        "additionalProperties": false
      }
    },
    "rate-limit": {
      "description": "Per-IP token bucket.",
      "type": "object",
      "properties": {
        "rps": { "type": "number", "exclusiveMinimum": 0 },
        "burst": { "type": "integer", "minimum": 1 }
      },
      "required": ["rps", "burst"],
      "additionalProperties": false
    },
    "ldap": {
      "description": "Optional LDAP user sync.",
      "type": "object",
      "properties": {
        "url": { "type": "string" },
        "bind-dn": { "type": "string" },
        "bind-password": { "type": "string" },
        "user-base": { "type": "string" },
        "user-filter": { "type": "string" },
        "default-commands": {
          "type": "array",
          "items": { "type": "string" }
        },
        "remove-missing": { "type": "boolean" }
      },
      "required": ["url", "user-base", "user-filter"],
      "additionalProperties": false
    },
    "nats": {
      "description": "Optional NATS pub/sub bridge.",
      "type": "object",
      "properties": {
        "url": { "type": "string" },
        "prefix": { "type": "string" }
      },
      "required": ["url", "prefix"],
      "additionalProperties": false
    },
    "s3": {
      "description": "Optional snapshot mirroring to S3.",
      "type": "object",
      "properties": {
        "bucket": { "type": "string" },
        "key": { "type": "string" }
      },
      "required": ["bucket", "key"],
      "additionalProperties": false
    },
    "etl-config-file": {
      "description": "Path to zflow.toml for the DB sync collaborator.",
      "type": "string"
    },
    "search-addr": {
      "description": "Bind address of the JSON-over-HTTP search facade, empty to disable.",
      "type": "string"
    },
    "metrics-addr": {
      "description": "Bind address of the Prometheus /metrics endpoint, empty to disable.",
      "type": "string"
    },
    "embedding-dim": {
      "description": "Dimension of the stub embedder's dense vectors.",
      "type": "integer",
      "minimum": 1
    },
    "model-dir": {
      "description": "Path of the optional embedding model directory.",
      "type": "string"
    }
  },
  "additionalProperties": false
}`
