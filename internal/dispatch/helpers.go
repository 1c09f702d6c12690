// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"errors"
	"strconv"
	"time"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

var errSyntax = errors.New("ERR syntax error")

func arityErr(cmd string) resp.Frame {
	return resp.Errorf("ERR wrong number of arguments for '%s' command", cmd)
}

func wrongTypeErr() resp.Frame {
	return resp.ErrorFrame(values.ErrWrongType.Error())
}

func parseInt(tok string) (int64, error) {
	return strconv.ParseInt(tok, 10, 64)
}

func parseFloat(tok string) (float64, error) {
	return strconv.ParseFloat(tok, 64)
}

func ttlFromSeconds(tok string) (time.Duration, error) {
	secs, err := parseInt(tok)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func bulkOrNull(b []byte, ok bool) resp.Frame {
	if !ok {
		return resp.NullBulkString()
	}
	return resp.BulkString(b)
}

func bulkArray(items [][]byte) resp.Frame {
	out := make([]resp.Frame, len(items))
	for i, it := range items {
		out[i] = resp.BulkString(it)
	}
	return resp.Array(out)
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func stringArray(items []string) resp.Frame {
	out := make([]resp.Frame, len(items))
	for i, it := range items {
		out[i] = resp.BulkStringFromString(it)
	}
	return resp.Array(out)
}
