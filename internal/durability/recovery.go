// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package durability

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/resp"
	"github.com/zedis/zedis/pkg/log"
)

// Dispatch replays one already-tokenized command, returning the response
// frame it produced. Recovery only inspects whether the frame is an error,
// to log a warning; the frame is otherwise discarded.
type Dispatch func(tokens []string) resp.Frame

// Recover runs the full boot sequence: load the
// snapshot if present, then replay the AOL on top of it with w held
// disabled so replayed mutations are not re-appended, then re-enable w.
// Callers must not start accepting client connections until Recover
// returns.
func Recover(ks *keyspace.Keyspace, snapshotPath, aolPath string, w *Writer, dispatch Dispatch) error {
	if err := LoadSnapshot(ks, snapshotPath); err != nil {
		return err
	}

	w.Disable()
	defer w.Enable()

	f, err := os.Open(aolPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("durability: no AOL found at %s, nothing to replay", aolPath)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	replayed, skipped := 0, 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// The v1 text format has no escaping: fields are whitespace
		// separated, so a value containing whitespace cannot round-trip (a
		// known limitation of the v1 format).
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		frame := dispatch(tokens)
		if frame.IsError() {
			log.Warnf("durability: replay of %q returned an error: %s", line, frame.Str)
			skipped++
			continue
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Infof("durability: replayed %d AOL records (%d skipped) from %s", replayed, skipped, aolPath)
	return nil
}
