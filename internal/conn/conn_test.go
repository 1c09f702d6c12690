// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package conn

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zedis/zedis/internal/acl"
	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/pubsub"
	"github.com/zedis/zedis/internal/resp"
)

// harness wires a Conn to one end of an in-memory pipe, serving it on its
// own goroutine, and gives the test the other end to drive as a client.
func harness(t *testing.T, bus *pubsub.Bus) (client net.Conn, r *bufio.Reader) {
	t.Helper()
	server, clientConn := net.Pipe()
	d := dispatch.New(keyspace.New(), nil, bus, nil)
	c := New(server, d, bus)
	go c.Serve()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, bufio.NewReader(clientConn)
}

// harnessWithACL is like harness but wires a Gate (and, optionally, a
// Limiter) in front of the connection.
func harnessWithACL(t *testing.T, gate *acl.Gate, limiter *acl.Limiter) (client net.Conn, r *bufio.Reader) {
	t.Helper()
	server, clientConn := net.Pipe()
	d := dispatch.New(keyspace.New(), nil, nil, nil)
	c := New(server, d, nil).WithACL(gate, limiter)
	go c.Serve()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, bufio.NewReader(clientConn)
}

func sendCommand(t *testing.T, client net.Conn, tokens ...string) {
	t.Helper()
	f := resp.EncodeCommand(tokens)
	w := bufio.NewWriter(client)
	require.NoError(t, resp.Encode(w, f))
	require.NoError(t, w.Flush())
}

func TestNormalRoundTrip(t *testing.T) {
	client, r := harness(t, nil)
	sendCommand(t, client, "SET", "k", "v")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("OK"), f)

	sendCommand(t, client, "GET", "k")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.BulkStringFromString("v"), f)
}

func TestMultiExec(t *testing.T) {
	client, r := harness(t, nil)

	sendCommand(t, client, "MULTI")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("OK"), f)

	sendCommand(t, client, "SET", "k", "v")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("QUEUED"), f)

	sendCommand(t, client, "GET", "k")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("QUEUED"), f)

	sendCommand(t, client, "EXEC")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.KindArray, f.Kind)
	require.Len(t, f.Array, 2)
	require.Equal(t, resp.BulkStringFromString("v"), f.Array[1])
}

func TestDiscard(t *testing.T) {
	client, r := harness(t, nil)

	sendCommand(t, client, "MULTI")
	_, err := resp.Parse(r)
	require.NoError(t, err)

	sendCommand(t, client, "SET", "k", "v")
	_, err = resp.Parse(r)
	require.NoError(t, err)

	sendCommand(t, client, "DISCARD")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("OK"), f)

	// k must not have been set since the queued batch was discarded.
	sendCommand(t, client, "GET", "k")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.True(t, f.IsNull())
}

func TestSubscribeDelivery(t *testing.T) {
	bus := pubsub.NewBus()
	client, r := harness(t, bus)

	sendCommand(t, client, "SUBSCRIBE", "ch")
	ack, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.KindArray, ack.Kind)
	require.Equal(t, resp.BulkStringFromString("subscribe"), ack.Array[0])
	require.Equal(t, resp.BulkStringFromString("ch"), ack.Array[1])
	require.Equal(t, resp.Integer(1), ack.Array[2])

	// Give the subscriber goroutine a moment to register before publishing.
	time.Sleep(10 * time.Millisecond)
	bus.Publish("ch", "hello")

	msg, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.KindArray, msg.Kind)
	require.Equal(t, resp.BulkStringFromString("message"), msg.Array[0])
	require.Equal(t, resp.BulkStringFromString("ch"), msg.Array[1])
	require.Equal(t, resp.BulkStringFromString("hello"), msg.Array[2])
}

func TestACLDeniesUnauthenticated(t *testing.T) {
	gate := acl.New([]byte("secret"), time.Hour)
	require.NoError(t, gate.AddUser("alice", "hunter2", []string{"GET"}))
	client, r := harnessWithACL(t, gate, nil)

	sendCommand(t, client, "GET", "k")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.True(t, f.IsError())
}

func TestACLAuthThenAllowed(t *testing.T) {
	gate := acl.New([]byte("secret"), time.Hour)
	require.NoError(t, gate.AddUser("alice", "hunter2", []string{"GET", "SET"}))
	client, r := harnessWithACL(t, gate, nil)

	sendCommand(t, client, "AUTH", "alice", "hunter2")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("OK"), f)

	sendCommand(t, client, "SET", "k", "v")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("OK"), f)

	sendCommand(t, client, "DEL", "k")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.True(t, f.IsError())
}

func TestACLCheckedAtExecNotAtQueueTime(t *testing.T) {
	gate := acl.New([]byte("secret"), time.Hour)
	require.NoError(t, gate.AddUser("alice", "hunter2", []string{"GET", "SET"}))
	client, r := harnessWithACL(t, gate, nil)

	sendCommand(t, client, "AUTH", "alice", "hunter2")
	_, err := resp.Parse(r)
	require.NoError(t, err)

	sendCommand(t, client, "MULTI")
	_, err = resp.Parse(r)
	require.NoError(t, err)

	// DEL is not in alice's allow-list, but queuing it must still succeed
	// (queued commands aren't validated until EXEC).
	sendCommand(t, client, "DEL", "k")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("QUEUED"), f)

	sendCommand(t, client, "EXEC")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.KindArray, f.Kind)
	require.Len(t, f.Array, 1)
	require.True(t, f.Array[0].IsError())
}

func TestRateLimitExceeded(t *testing.T) {
	limiter := acl.NewLimiter(1, 1)
	client, r := harnessWithACL(t, nil, limiter)

	sendCommand(t, client, "PING")
	f, err := resp.Parse(r)
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString("PONG"), f)

	sendCommand(t, client, "PING")
	f, err = resp.Parse(r)
	require.NoError(t, err)
	require.True(t, f.IsError())
}
