// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package durability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

// miniDispatch implements just enough of the command surface (SET, INCR)
// to exercise AOL replay without depending on the full dispatcher package.
func miniDispatch(ks *keyspace.Keyspace) Dispatch {
	return func(tokens []string) resp.Frame {
		if len(tokens) == 0 {
			return resp.Errorf("ERR empty command")
		}
		switch tokens[0] {
		case "SET":
			if len(tokens) != 3 {
				return resp.Errorf("ERR wrong number of arguments")
			}
			ks.Set(tokens[1], values.NewString([]byte(tokens[2])), 0)
			return resp.SimpleString("OK")
		case "INCR":
			if len(tokens) != 2 {
				return resp.Errorf("ERR wrong number of arguments")
			}
			v, err := ks.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
				if !ok {
					s := values.NewString([]byte("0"))
					if _, err := s.IncrBy(1); err != nil {
						return nil, false, err
					}
					return s, false, nil
				}
				s, ok := cur.(*values.String)
				if !ok {
					return nil, false, values.ErrWrongType
				}
				if _, err := s.IncrBy(1); err != nil {
					return nil, false, err
				}
				return s, false, nil
			})
			if err != nil {
				return resp.Errorf("ERR %s", err)
			}
			n, _ := v.(*values.String).AsInt()
			return resp.Integer(n)
		default:
			return resp.Errorf("ERR unknown command %q", tokens[0])
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ks := keyspace.New()
	ks.Set("greeting", values.NewString([]byte("hello")), 0)
	list := values.NewList()
	list.RPush([]byte("a"), []byte("b"))
	ks.Set("mylist", list, 0)

	path := filepath.Join(dir, "snapshot.bin")
	require.NoError(t, SaveSnapshot(ks, path))

	restored := keyspace.New()
	require.NoError(t, LoadSnapshot(restored, path))

	v, ok := restored.Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", string(v.(*values.String).Bytes()))

	v, ok = restored.Get("mylist")
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, v.(*values.List).LRange(0, -1))
}

func TestReplayThenSaveEqualsDirectSave(t *testing.T) {
	dir := t.TempDir()
	aolPath := filepath.Join(dir, "aol.log")

	w, err := NewWriter(aolPath, FsyncAlways)
	require.NoError(t, err)

	direct := keyspace.New()
	direct.Set("a", values.NewString([]byte("1")), 0)
	_, err = direct.Mutate("counter", func(cur values.Value, ok bool) (values.Value, bool, error) {
		s := values.NewString([]byte("0"))
		_, err := s.IncrBy(1)
		return s, false, err
	})
	require.NoError(t, err)
	_, err = direct.Mutate("counter", func(cur values.Value, ok bool) (values.Value, bool, error) {
		s := cur.(*values.String)
		_, err := s.IncrBy(1)
		return s, false, err
	})
	require.NoError(t, err)

	w.Append("SET a 1")
	w.Append("INCR counter")
	w.Append("INCR counter")
	require.NoError(t, w.Close())

	replayed := keyspace.New()
	rw, err := NewWriter(filepath.Join(dir, "replay-aol.log"), FsyncNo)
	require.NoError(t, err)
	defer rw.Close()

	require.NoError(t, Recover(replayed, filepath.Join(dir, "no-such-snapshot.bin"), aolPath, rw, miniDispatch(replayed)))

	v, ok := replayed.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", string(v.(*values.String).Bytes()))

	v, ok = replayed.Get("counter")
	require.True(t, ok)
	n, err := v.(*values.String).AsInt()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	directPath := filepath.Join(dir, "direct.bin")
	replayedPath := filepath.Join(dir, "replayed.bin")
	require.NoError(t, SaveSnapshot(direct, directPath))
	require.NoError(t, SaveSnapshot(replayed, replayedPath))

	// Equivalent keyspace state must produce byte-equal snapshots, even
	// though the two keyspaces hash keys to different shards.
	directBytes, err := os.ReadFile(directPath)
	require.NoError(t, err)
	replayedBytes, err := os.ReadFile(replayedPath)
	require.NoError(t, err)
	require.Equal(t, directBytes, replayedBytes)
}

func TestWriterDisableSuppressesAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aol.log")
	w, err := NewWriter(path, FsyncAlways)
	require.NoError(t, err)

	w.Disable()
	w.Append("SET during-replay 1")
	w.Enable()
	w.Append("SET after-replay 1")
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(content), "during-replay")
	require.Contains(t, string(content), "after-replay")
}

func TestRecoverLeavesWriterEnabledAfterReturn(t *testing.T) {
	dir := t.TempDir()
	aolPath := filepath.Join(dir, "aol.log")
	w, err := NewWriter(aolPath, FsyncAlways)
	require.NoError(t, err)
	w.Append("SET k v")
	require.NoError(t, w.Close())

	ks := keyspace.New()
	replayWriter, err := NewWriter(filepath.Join(dir, "replay.log"), FsyncAlways)
	require.NoError(t, err)

	require.NoError(t, Recover(ks, filepath.Join(dir, "missing.bin"), aolPath, replayWriter, miniDispatch(ks)))

	replayWriter.Append("SET post-recover 1")
	require.NoError(t, replayWriter.Close())

	content, err := os.ReadFile(filepath.Join(dir, "replay.log"))
	require.NoError(t, err)
	require.Contains(t, string(content), "post-recover")
}
