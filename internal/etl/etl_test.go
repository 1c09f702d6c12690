// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/resp"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[source]]
name = "users"
dsn = "./users.db"
interval = "30s"
table = "users"
cursor_column = "updated_at"
key_template = "user:{id}"
command = "HSET"
fields = ["name", "email"]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Source, 1)
	src := cfg.Source[0]
	require.Equal(t, "users", src.Name)
	require.Equal(t, "id", src.IDColumn) // defaulted
	require.Equal(t, "updated_at", src.CursorColumn)
	require.Equal(t, []string{"name", "email"}, src.Fields)
}

func TestLoadConfigRejectsUnnamedSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[source]]
dsn = "./x.db"
`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestRowTokens(t *testing.T) {
	row := map[string]interface{}{
		"id":    int64(7),
		"name":  "ada",
		"email": []byte("ada@example.org"),
		"rank":  3.5,
	}

	commands, err := rowTokens(SourceConfig{
		IDColumn: "id", KeyTemplate: "user:{id}", Command: "SET", Fields: []string{"name"},
	}, row)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"SET", "user:7", "ada"}}, commands)

	commands, err = rowTokens(SourceConfig{
		IDColumn: "id", KeyTemplate: "user:{id}", Command: "HSET", Fields: []string{"name", "email"},
	}, row)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"HSET", "user:7", "name", "ada"},
		{"HSET", "user:7", "email", "ada@example.org"},
	}, commands)

	commands, err = rowTokens(SourceConfig{
		IDColumn: "id", KeyTemplate: "ranking", Command: "ZADD", Fields: []string{"rank"},
	}, row)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"ZADD", "ranking", "3.5", "7"}}, commands)

	_, err = rowTokens(SourceConfig{
		IDColumn: "id", KeyTemplate: "x", Command: "LPUSH", Fields: []string{"name"},
	}, row)
	require.Error(t, err)
}

func TestSyncerPollsSourceIntoDispatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")

	cfg := &Config{Source: []SourceConfig{{
		Name:        "users",
		DSN:         dbPath,
		Interval:    "1h",
		Table:       "users",
		IDColumn:    "id",
		KeyTemplate: "user:{id}",
		Command:     "SET",
		Fields:      []string{"name"},
	}}}

	var got [][]string
	s := NewSyncer(cfg, func(tokens []string) resp.Frame {
		got = append(got, tokens)
		return resp.SimpleString("OK")
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	db := s.dbs[0]
	_, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, name) VALUES (1, 'ada'), (2, 'grace')`)
	require.NoError(t, err)

	s.pollSource(cfg.Source[0], db)
	require.Equal(t, [][]string{
		{"SET", "user:1", "ada"},
		{"SET", "user:2", "grace"},
	}, got)

	// Nothing new: the cursor holds and no commands are re-dispatched.
	got = nil
	s.pollSource(cfg.Source[0], db)
	require.Empty(t, got)

	// A row past the cursor is picked up on the next poll.
	_, err = db.Exec(`INSERT INTO users (id, name) VALUES (3, 'alan')`)
	require.NoError(t, err)
	s.pollSource(cfg.Source[0], db)
	require.Equal(t, [][]string{{"SET", "user:3", "alan"}}, got)
}
