// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"math/bits"
	"strings"

	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/internal/values"
)

func registerBitfieldCommands(register registerFunc) {
	register("BITCOUNT", false, cmdBitCount)
	register("BITFIELD", true, cmdBitfield)
}

func cmdBitCount(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) != 2 {
		return arityErr("BITCOUNT")
	}
	raw, ok := d.KS.Get(tokens[1])
	if !ok {
		return resp.Integer(0)
	}
	b, isBitfield := raw.(*values.BitfieldString)
	if !isBitfield {
		return wrongTypeErr()
	}
	var n int64
	for _, by := range b.Bytes() {
		n += int64(bits.OnesCount8(by))
	}
	return resp.Integer(n)
}

// parseBitOffset parses a BITFIELD offset token: "#N" addresses the Nth
// field of the given width (offset = N*width bits); a bare integer is a
// literal bit offset.
func parseBitOffset(tok string, width int) (int64, error) {
	if strings.HasPrefix(tok, "#") {
		n, err := parseInt(tok[1:])
		if err != nil {
			return 0, err
		}
		return n * int64(width), nil
	}
	return parseInt(tok)
}

// cmdBitfield implements BITFIELD's run-length sub-command grammar: SET
// type offset value | GET type offset | INCRBY type offset delta |
// OVERFLOW policy (which changes the policy applied to subsequent SET/
// INCRBY sub-ops in the same call).
func cmdBitfield(d *Dispatcher, tokens []string) resp.Frame {
	if len(tokens) < 2 {
		return arityErr("BITFIELD")
	}
	replies := []resp.Frame{}
	policy := values.OverflowWrap

	_, err := d.KS.Mutate(tokens[1], func(cur values.Value, ok bool) (values.Value, bool, error) {
		var b *values.BitfieldString
		if ok {
			var isBitfield bool
			b, isBitfield = cur.(*values.BitfieldString)
			if !isBitfield {
				return nil, false, values.ErrWrongType
			}
		} else {
			b = values.NewBitfieldString()
		}

		i := 2
		for i < len(tokens) {
			switch strings.ToUpper(tokens[i]) {
			case "OVERFLOW":
				if i+1 >= len(tokens) {
					return nil, false, errSyntax
				}
				switch strings.ToUpper(tokens[i+1]) {
				case "WRAP":
					policy = values.OverflowWrap
				case "SAT":
					policy = values.OverflowSat
				case "FAIL":
					policy = values.OverflowFail
				default:
					return nil, false, errSyntax
				}
				i += 2
			case "GET":
				if i+2 >= len(tokens) {
					return nil, false, errSyntax
				}
				field, err := values.ParseFieldType(tokens[i+1])
				if err != nil {
					return nil, false, err
				}
				field.Offset, err = parseBitOffset(tokens[i+2], field.Width)
				if err != nil {
					return nil, false, err
				}
				replies = append(replies, resp.Integer(b.Get(field)))
				i += 3
			case "SET":
				if i+3 >= len(tokens) {
					return nil, false, errSyntax
				}
				field, err := values.ParseFieldType(tokens[i+1])
				if err != nil {
					return nil, false, err
				}
				field.Offset, err = parseBitOffset(tokens[i+2], field.Width)
				if err != nil {
					return nil, false, err
				}
				v, err := parseInt(tokens[i+3])
				if err != nil {
					return nil, false, err
				}
				prev, setOk := b.SetField(field, v, policy)
				if !setOk {
					replies = append(replies, resp.NullBulkString())
				} else {
					replies = append(replies, resp.Integer(prev))
				}
				i += 4
			case "INCRBY":
				if i+3 >= len(tokens) {
					return nil, false, errSyntax
				}
				field, err := values.ParseFieldType(tokens[i+1])
				if err != nil {
					return nil, false, err
				}
				field.Offset, err = parseBitOffset(tokens[i+2], field.Width)
				if err != nil {
					return nil, false, err
				}
				delta, err := parseInt(tokens[i+3])
				if err != nil {
					return nil, false, err
				}
				result, incrOk := b.IncrByField(field, delta, policy)
				if !incrOk {
					replies = append(replies, resp.NullBulkString())
				} else {
					replies = append(replies, resp.Integer(result))
				}
				i += 4
			default:
				return nil, false, errSyntax
			}
		}
		return b, false, nil
	})
	if err != nil {
		return resp.ErrorFrame(err.Error())
	}
	return resp.Array(replies)
}
