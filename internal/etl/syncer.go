// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package etl

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-co-op/gocron/v2"
	"github.com/golang-migrate/migrate/v4"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/pkg/log"
)

// Dispatch hands one tokenized command to the core, the same seam shape
// durability.Recover uses. The syncer only inspects whether the reply is
// an error frame.
type Dispatch func(tokens []string) resp.Frame

//go:embed migrations/*
var migrationFiles embed.FS

const hookedDriverName = "sqlite3WithZedisHooks"

var registerDriverOnce sync.Once

// Syncer polls each configured source table on its own schedule and
// replays new rows into the keyspace through the dispatcher. Construct
// with NewSyncer, then Start.
type Syncer struct {
	cfg      *Config
	dispatch Dispatch

	sched gocron.Scheduler
	dbs   []*sqlx.DB
}

func NewSyncer(cfg *Config, dispatch Dispatch) *Syncer {
	return &Syncer{cfg: cfg, dispatch: dispatch}
}

// Start opens every source's database, brings the cursor-state table up
// to the current migration version, and schedules the polling jobs.
func (s *Syncer) Start() error {
	registerDriverOnce.Do(func() {
		sql.Register(hookedDriverName,
			sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
	})

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("etl: creating scheduler: %w", err)
	}
	s.sched = sched

	for i := range s.cfg.Source {
		src := s.cfg.Source[i]
		if src.Driver != "" && src.Driver != "sqlite3" {
			return fmt.Errorf("etl: source %s: unsupported driver %q", src.Name, src.Driver)
		}

		db, err := sqlx.Open(hookedDriverName, src.DSN)
		if err != nil {
			return fmt.Errorf("etl: source %s: open: %w", src.Name, err)
		}
		// sqlite does not multithread; more connections just wait on locks.
		db.SetMaxOpenConns(1)
		s.dbs = append(s.dbs, db)

		if err := migrateCursorTable(db); err != nil {
			return fmt.Errorf("etl: source %s: %w", src.Name, err)
		}

		interval, err := time.ParseDuration(src.Interval)
		if err != nil || interval <= 0 {
			return fmt.Errorf("etl: source %s: bad interval %q", src.Name, src.Interval)
		}

		if _, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { s.pollSource(src, db) }),
		); err != nil {
			return fmt.Errorf("etl: source %s: scheduling: %w", src.Name, err)
		}
		log.Infof("etl: source %s polling %s every %s", src.Name, src.Table, interval)
	}

	sched.Start()
	return nil
}

// Stop shuts the scheduler down and closes every source database.
func (s *Syncer) Stop() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			log.Warnf("etl: scheduler shutdown: %v", err)
		}
	}
	for _, db := range s.dbs {
		db.Close()
	}
}

// migrateCursorTable applies the embedded migrations that own the
// zedis_etl_cursor table, tracked in its own schema-version table so it
// never collides with the source's application tables.
func migrateCursorTable(db *sqlx.DB) error {
	driver, err := migsqlite.WithInstance(db.DB, &migsqlite.Config{
		MigrationsTable: "zedis_etl_schema",
	})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// pollSource fetches rows past the stored cursor and dispatches one
// keyspace write per row, then advances the cursor to the highest value
// seen. A dispatch error skips that row but does not move the cursor
// back, matching the AOL replay posture of "skip and continue".
func (s *Syncer) pollSource(src SourceConfig, db *sqlx.DB) {
	cursorCol := src.CursorColumn
	if cursorCol == "" {
		cursorCol = src.IDColumn
	}

	var cursor string
	err := db.Get(&cursor,
		"SELECT cursor_value FROM zedis_etl_cursor WHERE source_name = ?", src.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Errorf("etl: source %s: reading cursor: %v", src.Name, err)
		return
	}

	cols := append([]string{src.IDColumn, cursorCol}, src.Fields...)
	q := sq.Select(cols...).From(src.Table).OrderBy(cursorCol + " ASC")
	if cursor != "" {
		q = q.Where(sq.Gt{cursorCol: cursor})
	}
	query, args, err := q.ToSql()
	if err != nil {
		log.Errorf("etl: source %s: building query: %v", src.Name, err)
		return
	}

	rows, err := db.Queryx(query, args...)
	if err != nil {
		log.Errorf("etl: source %s: poll: %v", src.Name, err)
		return
	}
	defer rows.Close()

	synced := 0
	lastCursor := cursor
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			log.Errorf("etl: source %s: scanning row: %v", src.Name, err)
			return
		}

		commands, err := rowTokens(src, row)
		if err != nil {
			log.Warnf("etl: source %s: skipping row: %v", src.Name, err)
			continue
		}
		rejected := false
		for _, tokens := range commands {
			if frame := s.dispatch(tokens); frame.IsError() {
				log.Warnf("etl: source %s: %s rejected: %s", src.Name, tokens[0], frame.Str)
				rejected = true
			}
		}
		if rejected {
			continue
		}
		lastCursor = columnString(row[cursorCol])
		synced++
	}
	if err := rows.Err(); err != nil {
		log.Errorf("etl: source %s: iterating rows: %v", src.Name, err)
		return
	}

	if lastCursor != cursor {
		if _, err := db.Exec(`INSERT INTO zedis_etl_cursor (source_name, cursor_value)
			VALUES (?, ?)
			ON CONFLICT(source_name) DO UPDATE SET cursor_value = excluded.cursor_value`,
			src.Name, lastCursor); err != nil {
			log.Errorf("etl: source %s: saving cursor: %v", src.Name, err)
			return
		}
	}
	if synced > 0 {
		log.Infof("etl: source %s: synced %d row(s), cursor now %q", src.Name, synced, lastCursor)
	}
}

// rowTokens maps one scanned row to the command(s) it becomes, per
// src.Command. Field expectations: SET takes one field (the value); HSET
// writes one command per field; SADD adds every field as a member; ZADD
// takes one field (the score) and uses the row id as member.
func rowTokens(src SourceConfig, row map[string]interface{}) ([][]string, error) {
	id := columnString(row[src.IDColumn])
	if id == "" {
		return nil, fmt.Errorf("row has empty %s", src.IDColumn)
	}
	key := strings.ReplaceAll(src.KeyTemplate, "{id}", id)
	if key == "" {
		return nil, fmt.Errorf("key template produced empty key for id %s", id)
	}

	switch strings.ToUpper(src.Command) {
	case "SET":
		if len(src.Fields) != 1 {
			return nil, fmt.Errorf("SET needs exactly one field, have %d", len(src.Fields))
		}
		return [][]string{{"SET", key, columnString(row[src.Fields[0]])}}, nil
	case "HSET":
		if len(src.Fields) == 0 {
			return nil, errors.New("HSET needs at least one field")
		}
		commands := make([][]string, 0, len(src.Fields))
		for _, f := range src.Fields {
			commands = append(commands, []string{"HSET", key, f, columnString(row[f])})
		}
		return commands, nil
	case "SADD":
		if len(src.Fields) == 0 {
			return nil, errors.New("SADD needs at least one field")
		}
		tokens := []string{"SADD", key}
		for _, f := range src.Fields {
			tokens = append(tokens, columnString(row[f]))
		}
		return [][]string{tokens}, nil
	case "ZADD":
		if len(src.Fields) != 1 {
			return nil, fmt.Errorf("ZADD needs exactly one score field, have %d", len(src.Fields))
		}
		return [][]string{{"ZADD", key, columnString(row[src.Fields[0]]), id}}, nil
	default:
		return nil, fmt.Errorf("unsupported command %q", src.Command)
	}
}

// columnString renders a scanned column for the text command protocol.
// sqlite hands back int64, float64, []byte, string, bool or nil depending
// on column affinity.
func columnString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
