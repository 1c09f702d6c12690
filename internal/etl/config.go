// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package etl is the database sync collaborator: a declarative
// zflow.toml names source tables and how their rows map onto keyspace
// writes, and Syncer polls them on a schedule, calling the dispatcher
// exactly the way a RESP client would rather than touching any
// internal/values type directly.
package etl

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the parsed shape of zflow.toml.
type Config struct {
	Source []SourceConfig `toml:"source"`
}

// SourceConfig describes one table to poll and how each row becomes a
// keyspace write. Command names one of SET, HSET, SADD, ZADD — the same
// RESP command names Syncer hands to dispatch.Dispatcher.Execute, so
// nothing here needs to know about internal/values' concrete types.
type SourceConfig struct {
	Name         string   `toml:"name"`
	Driver       string   `toml:"driver"`
	DSN          string   `toml:"dsn"`
	Interval     string   `toml:"interval"`
	Table        string   `toml:"table"`
	IDColumn     string   `toml:"id_column"`
	CursorColumn string   `toml:"cursor_column"`
	KeyTemplate  string   `toml:"key_template"`
	Command      string   `toml:"command"`
	Fields       []string `toml:"fields"`
}

// LoadConfig parses a zflow.toml file at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("etl: parsing %s: %w", path, err)
	}
	for i, src := range cfg.Source {
		if src.Name == "" {
			return nil, fmt.Errorf("etl: source #%d missing name", i)
		}
		if src.IDColumn == "" {
			cfg.Source[i].IDColumn = "id"
		}
	}
	return &cfg, nil
}
