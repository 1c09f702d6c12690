// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, raw string) {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader([]byte(raw)))
	f, err := Parse(r)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, Encode(w, f))
	require.Equal(t, raw, buf.String())
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"+OK\r\n",
		"-ERR something bad\r\n",
		":1234\r\n",
		":-7\r\n",
		"$3\r\nbar\r\n",
		"$0\r\n\r\n",
		"$-1\r\n",
		"*-1\r\n",
		"_\r\n",
		"*3\r\n$3\r\nfoo\r\n:1\r\n$-1\r\n",
		"*0\r\n",
	}
	for _, c := range cases {
		c := c
		t.Run(c, func(t *testing.T) { roundTrip(t, c) })
	}
}

func TestParseCommand(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")))
	tokens, err := ParseCommand(r)
	require.NoError(t, err)
	require.Equal(t, []string{"GET", "foo"}, tokens)
}

func TestParseCommandRejectsNonArray(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("+PING\r\n")))
	_, err := ParseCommand(r)
	require.ErrorIs(t, err, ErrProtocol)
}

func TestParseIncomplete(t *testing.T) {
	// A bulk string whose body ends early is an error: the reader hits EOF
	// mid-frame and the parser reports it as a protocol error.
	r := bufio.NewReader(bytes.NewReader([]byte("$5\r\nhel")))
	_, err := Parse(r)
	require.Error(t, err)
}

func TestEncodeCommand(t *testing.T) {
	f := EncodeCommand([]string{"SET", "k", "v"})
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, Encode(w, f))
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", buf.String())
}
