// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/durability"
	"github.com/zedis/zedis/internal/resp"
)

func registerDurabilityCommands(register registerFunc) {
	register("SAVE", false, cmdSave)
}

// SAVE writes a point-in-time snapshot to d.SnapshotPath. It is not flagged
// mutating: it does not change the keyspace and has no business being
// replayed from the AOL.
func cmdSave(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 1 {
		return arityErr("SAVE")
	}
	if d.SnapshotPath == "" {
		return resp.Errorf("ERR no snapshot path configured")
	}
	if err := durability.Save(d.KS, d.SnapshotPath); err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.SimpleString("OK")
}
