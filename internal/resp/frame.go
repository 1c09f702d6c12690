// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package resp implements the text-framed request/response wire protocol
// the server speaks with clients: SimpleString, Error, Integer, BulkString,
// Array and Null frames, parsed incrementally off a buffered connection and
// encoded back onto the wire.
package resp

import "fmt"

// Kind identifies which of the six RESP frame shapes a Frame holds.
type Kind int

const (
	KindSimpleString Kind = iota
	KindError
	KindInteger
	KindBulkString
	KindArray
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "SimpleString"
	case KindError:
		return "Error"
	case KindInteger:
		return "Integer"
	case KindBulkString:
		return "BulkString"
	case KindArray:
		return "Array"
	case KindNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// Frame is a single parsed RESP value. Only the fields relevant to Kind are
// meaningful; the rest are zero. BulkString and Array additionally carry a
// Null flag because both frame kinds have a distinct on-wire null encoding
// (length -1) that differs from the RESP3 '_' Null frame.
type Frame struct {
	Kind  Kind
	Str   string  // SimpleString, Error
	Int   int64   // Integer
	Bulk  []byte  // BulkString payload; nil iff Null is set
	Array []Frame // Array elements; nil iff Null is set
	Null  bool    // BulkString/Array null marker
}

func SimpleString(s string) Frame { return Frame{Kind: KindSimpleString, Str: s} }
func ErrorFrame(s string) Frame   { return Frame{Kind: KindError, Str: s} }
func Integer(n int64) Frame       { return Frame{Kind: KindInteger, Int: n} }

func BulkString(b []byte) Frame {
	if b == nil {
		return Frame{Kind: KindBulkString, Null: true}
	}
	return Frame{Kind: KindBulkString, Bulk: b}
}

func BulkStringFromString(s string) Frame { return BulkString([]byte(s)) }
func NullBulkString() Frame               { return Frame{Kind: KindBulkString, Null: true} }

func Array(elems []Frame) Frame {
	if elems == nil {
		return Frame{Kind: KindArray, Null: true}
	}
	return Frame{Kind: KindArray, Array: elems}
}

func NullArray() Frame { return Frame{Kind: KindArray, Null: true} }
func Null() Frame      { return Frame{Kind: KindNull} }

// IsError reports whether f is an Error frame.
func (f Frame) IsError() bool { return f.Kind == KindError }

// IsNull reports whether f represents any of the three null encodings.
func (f Frame) IsNull() bool {
	return f.Kind == KindNull || ((f.Kind == KindBulkString || f.Kind == KindArray) && f.Null)
}

// Errorf builds an Error frame the way dispatcher handlers produce them.
func Errorf(format string, args ...interface{}) Frame {
	return ErrorFrame(fmt.Sprintf(format, args...))
}
