// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

// ssoInlineCap is the largest payload kept inline in an SSOString before it
// spills to a heap-allocated []byte.
const ssoInlineCap = 22

// SSOString is a compact byte-string container. Payloads of 22 bytes or
// fewer are stored inline in the struct itself, avoiding a separate heap
// allocation and an extra pointer indirection for the common case of short
// keys and counters; longer payloads fall back to a plain []byte.
type SSOString struct {
	length int32
	inline [ssoInlineCap]byte
	heap   []byte
}

// NewSSOString copies b into a new SSOString.
func NewSSOString(b []byte) SSOString {
	s := SSOString{length: int32(len(b))}
	if len(b) <= ssoInlineCap {
		copy(s.inline[:], b)
	} else {
		s.heap = append([]byte(nil), b...)
	}
	return s
}

// Bytes returns the string's contents. The returned slice must not be
// retained across a mutation of the owning value.
func (s *SSOString) Bytes() []byte {
	if s.length <= ssoInlineCap {
		return s.inline[:s.length]
	}
	return s.heap
}

// Len returns the byte length of the string.
func (s *SSOString) Len() int { return int(s.length) }

// Set overwrites the string's contents in place.
func (s *SSOString) Set(b []byte) {
	s.length = int32(len(b))
	if len(b) <= ssoInlineCap {
		copy(s.inline[:], b)
		s.heap = nil
	} else {
		s.heap = append([]byte(nil), b...)
	}
}

// IsInline reports whether the string is currently stored inline, exposed
// mainly so tests can assert where the inline boundary lands.
func (s *SSOString) IsInline() bool { return s.length <= ssoInlineCap }
