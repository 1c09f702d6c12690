// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/scripting"
)

func registerScriptingCommands(register registerFunc) {
	register("EVAL", true, cmdEval)
}

// EVAL script numkeys key1 .. keyN arg1 .. argM
func cmdEval(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 3 {
		return arityErr("EVAL")
	}
	script := tokens[1]
	numKeys, err := parseInt(tokens[2])
	if err != nil || numKeys < 0 {
		return resp.Errorf("ERR value is not a valid integer")
	}
	rest := tokens[3:]
	if int64(len(rest)) < numKeys {
		return errorFrame(errSyntax)
	}
	keys := rest[:numKeys]
	args := rest[numKeys:]

	result, err := scripting.Eval(script, keys, args, d.scriptCaller)
	if err != nil {
		return resp.ErrorFrame("ERR " + err.Error())
	}
	return resp.BulkStringFromString(result)
}

func errorFrame(err error) resp.Frame {
	return resp.ErrorFrame(err.Error())
}
