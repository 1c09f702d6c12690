// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package etl

import (
	"context"
	"time"

	"github.com/zedis/zedis/pkg/log"
)

type queryTimingKey struct{}

// Hooks satisfies sqlhooks.Hooks, logging every poll query and its
// duration.
type Hooks struct{}

func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("etl: query %s %q", query, args)
	return context.WithValue(ctx, queryTimingKey{}, time.Now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimingKey{}).(time.Time); ok {
		log.Debugf("etl: query took %s", time.Since(begin))
	}
	return ctx, nil
}
