// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import "github.com/zedis/zedis/internal/resp"

func registerLivenessCommands(register registerFunc) {
	register("PING", false, cmdPing)
}

func cmdPing(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) > 2 {
		return arityErr("PING")
	}
	if len(tokens) == 2 {
		return resp.BulkStringFromString(tokens[1])
	}
	return resp.SimpleString("PONG")
}
