// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import "strconv"

// String is the scalar byte-string variant, backed by an SSOString.
type String struct {
	data SSOString
}

func NewString(b []byte) *String { return &String{data: NewSSOString(b)} }

func (s *String) Type() Type { return TypeString }

func (s *String) Bytes() []byte { return s.data.Bytes() }

func (s *String) Set(b []byte) { s.data.Set(b) }

func (s *String) Len() int { return s.data.Len() }

// AsInt decodes the string's bytes as a base-10 signed 64-bit integer,
// failing the operation (rather than coercing) if they don't parse as a
// base-10 signed 64-bit integer.
func (s *String) AsInt() (int64, error) {
	n, err := strconv.ParseInt(string(s.data.Bytes()), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// IncrBy adds delta to the string's integer value and stores the result,
// returning the new value. Fails with ErrNotInteger if the current contents
// aren't a valid base-10 int64, mirroring INCR/INCRBY.
func (s *String) IncrBy(delta int64) (int64, error) {
	cur, err := s.AsInt()
	if err != nil {
		return 0, err
	}
	next := cur + delta
	s.data.Set([]byte(strconv.FormatInt(next, 10)))
	return next, nil
}
