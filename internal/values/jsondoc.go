// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONDoc is a parsed JSON document, queried by a simple dot-notation path
// expression; "." returns the whole document.
type JSONDoc struct {
	doc interface{}
}

func NewJSONDoc(raw []byte) (*JSONDoc, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return &JSONDoc{doc: v}, nil
}

func (j *JSONDoc) Type() Type { return TypeJSONDoc }

func (j *JSONDoc) Set(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	j.doc = v
	return nil
}

// Get evaluates a dot-notation path ("." for the whole document, ".a.b" to
// descend into nested objects) and returns the matched value re-encoded as
// JSON.
func (j *JSONDoc) Get(path string) ([]byte, error) {
	if path == "" || path == "." {
		return json.Marshal(j.doc)
	}
	cur := j.doc
	for _, part := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		if part == "" {
			continue
		}
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path %q does not address an object", path)
		}
		next, ok := obj[part]
		if !ok {
			return nil, fmt.Errorf("path %q not found", path)
		}
		cur = next
	}
	return json.Marshal(cur)
}
