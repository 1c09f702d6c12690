// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package keyspace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/values"
)

func TestSetGetRemove(t *testing.T) {
	ks := New()
	_, ok := ks.Get("k")
	require.False(t, ok)

	ks.Set("k", values.NewString([]byte("v")), 0)
	v, ok := ks.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", string(v.(*values.String).Bytes()))

	require.True(t, ks.Remove("k"))
	require.False(t, ks.Remove("k"))
}

func TestExpiry(t *testing.T) {
	ks := New()
	ks.Set("k", values.NewString([]byte("v")), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := ks.Get("k")
	require.False(t, ok)
	require.Equal(t, int64(-2), ks.TTL("k"))
}

func TestTTLStates(t *testing.T) {
	ks := New()
	require.Equal(t, int64(-2), ks.TTL("missing"))

	ks.Set("persistent", values.NewString([]byte("v")), 0)
	require.Equal(t, int64(-1), ks.TTL("persistent"))

	ks.Set("expiring", values.NewString([]byte("v")), 10*time.Second)
	ttl := ks.TTL("expiring")
	require.True(t, ttl > 0 && ttl <= 10)
}

func TestMutateCreatesAndUpdates(t *testing.T) {
	ks := New()
	_, err := ks.Mutate("counter", func(cur values.Value, ok bool) (values.Value, bool, error) {
		if !ok {
			return values.NewString([]byte("0")), false, nil
		}
		s := cur.(*values.String)
		n, err := s.IncrBy(1)
		if err != nil {
			return nil, false, err
		}
		_ = n
		return s, false, nil
	})
	require.NoError(t, err)

	_, err = ks.Mutate("counter", func(cur values.Value, ok bool) (values.Value, bool, error) {
		require.True(t, ok)
		s := cur.(*values.String)
		_, err := s.IncrBy(1)
		return s, false, err
	})
	require.NoError(t, err)

	v, ok := ks.Get("counter")
	require.True(t, ok)
	n, err := v.(*values.String).AsInt()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestMutateRemove(t *testing.T) {
	ks := New()
	ks.Set("k", values.NewString([]byte("v")), 0)
	_, err := ks.Mutate("k", func(cur values.Value, ok bool) (values.Value, bool, error) {
		return nil, true, nil
	})
	require.NoError(t, err)
	require.False(t, ks.Contains("k"))
}

func TestConcurrentDistinctKeys(t *testing.T) {
	ks := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ks.Mutate(string(rune('a'+i%26)), func(cur values.Value, ok bool) (values.Value, bool, error) {
				if !ok {
					return values.NewString([]byte("0")), false, nil
				}
				s := cur.(*values.String)
				_, err := s.IncrBy(1)
				return s, false, err
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 26, ks.Len())
}

func TestVisitSeesAllKeysOnce(t *testing.T) {
	ks := New()
	for i := 0; i < 50; i++ {
		ks.Set(string(rune('A'+i)), values.NewString([]byte("x")), 0)
	}
	seen := map[string]bool{}
	ks.Visit(func(key string, e *Entry) {
		require.False(t, seen[key])
		seen[key] = true
	})
	require.Len(t, seen, 50)
}

func TestFlush(t *testing.T) {
	ks := New()
	ks.Set("a", values.NewString([]byte("1")), 0)
	ks.Set("b", values.NewString([]byte("2")), 0)
	ks.Flush()
	require.Equal(t, 0, ks.Len())
}
