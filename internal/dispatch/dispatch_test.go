// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/resp"
)

func newTestDispatcher() *Dispatcher {
	return New(keyspace.New(), nil, nil, nil)
}

func TestUnknownCommand(t *testing.T) {
	d := newTestDispatcher()
	f := d.Execute([]string{"NOSUCHCOMMAND"})
	require.True(t, f.IsError())
}

func TestEmptyCommand(t *testing.T) {
	d := newTestDispatcher()
	f := d.Execute(nil)
	require.True(t, f.IsError())
}

func TestPing(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.SimpleString("PONG"), d.Execute([]string{"PING"}))
	require.Equal(t, resp.BulkStringFromString("hello"), d.Execute([]string{"PING", "hello"}))
}

func TestSetGetDel(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.SimpleString("OK"), d.Execute([]string{"SET", "k", "v"}))
	f := d.Execute([]string{"GET", "k"})
	require.Equal(t, resp.BulkStringFromString("v"), f)

	require.Equal(t, resp.Integer(1), d.Execute([]string{"EXISTS", "k"}))
	require.Equal(t, resp.Integer(1), d.Execute([]string{"DEL", "k"}))
	require.True(t, d.Execute([]string{"GET", "k"}).IsNull())
}

func TestIncr(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.Integer(1), d.Execute([]string{"INCR", "n"}))
	require.Equal(t, resp.Integer(6), d.Execute([]string{"INCRBY", "n", "5"}))
}

func TestWrongType(t *testing.T) {
	d := newTestDispatcher()
	d.Execute([]string{"RPUSH", "l", "a"})
	f := d.Execute([]string{"GET", "l"})
	require.True(t, f.IsError())
}

func TestListOps(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.Integer(2), d.Execute([]string{"RPUSH", "l", "a", "b"}))
	f := d.Execute([]string{"LRANGE", "l", "0", "-1"})
	require.Equal(t, resp.KindArray, f.Kind)
	require.Len(t, f.Array, 2)

	popped := d.Execute([]string{"LPOP", "l"})
	require.Equal(t, resp.BulkStringFromString("a"), popped)
}

func TestHashOps(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.Integer(1), d.Execute([]string{"HSET", "h", "f", "v"}))
	require.Equal(t, resp.Integer(0), d.Execute([]string{"HSET", "h", "f", "v2"}))
	require.Equal(t, resp.BulkStringFromString("v2"), d.Execute([]string{"HGET", "h", "f"}))
}

func TestSetOps(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.Integer(2), d.Execute([]string{"SADD", "s", "a", "b"}))
	f := d.Execute([]string{"SMEMBERS", "s"})
	require.Len(t, f.Array, 2)
}

func TestZAddZRange(t *testing.T) {
	d := newTestDispatcher()
	d.Execute([]string{"ZADD", "z", "1", "a"})
	d.Execute([]string{"ZADD", "z", "2", "b"})
	f := d.Execute([]string{"ZRANGE", "z", "0", "-1"})
	require.Equal(t, []resp.Frame{resp.BulkStringFromString("a"), resp.BulkStringFromString("b")}, f.Array)

	withScores := d.Execute([]string{"ZRANGE", "z", "0", "-1", "WITHSCORES"})
	require.Len(t, withScores.Array, 4)
}

func TestBitfieldSetGet(t *testing.T) {
	d := newTestDispatcher()
	f := d.Execute([]string{"BITFIELD", "b", "SET", "u8", "#0", "255", "GET", "u8", "#0"})
	require.Equal(t, resp.KindArray, f.Kind)
	require.Len(t, f.Array, 2)
	require.Equal(t, resp.Integer(0), f.Array[0])
	require.Equal(t, resp.Integer(255), f.Array[1])
}

func TestEvalGetSet(t *testing.T) {
	d := newTestDispatcher()
	f := d.Execute([]string{"EVAL", `call("SET", KEYS[0], ARGV[0])`, "1", "k", "v"})
	require.False(t, f.IsError())
	require.Equal(t, resp.BulkStringFromString("v"), d.Execute([]string{"GET", "k"}))
}

func TestPublishWithoutBus(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, resp.Integer(0), d.Execute([]string{"PUBLISH", "ch", "msg"}))
}

func TestSaveWithoutSnapshotPath(t *testing.T) {
	d := newTestDispatcher()
	f := d.Execute([]string{"SAVE"})
	require.True(t, f.IsError())
}
