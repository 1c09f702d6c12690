// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import "github.com/zedis/zedis/internal/resp"

func registerPubSubCommands(register registerFunc) {
	register("PUBLISH", false, cmdPublish)
}

// PUBLISH channel message — SUBSCRIBE itself is handled by the connection
// layer (internal/conn), not here, since it changes the connection's mode
// rather than returning a single reply frame.
func cmdPublish(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 3 {
		return arityErr("PUBLISH")
	}
	if d.Bus == nil {
		return resp.Integer(0)
	}
	n := d.Bus.Publish(tokens[1], tokens[2])
	return resp.Integer(int64(n))
}
