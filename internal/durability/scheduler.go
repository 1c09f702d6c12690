// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package durability

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/pkg/log"
)

// saveMu serializes snapshot writes process-wide: a SAVE arriving while
// another snapshot is in flight is rejected instead of queued.
var saveMu sync.Mutex

// mirrorHook, when set, runs in the background after every successful
// Save with the snapshot's path (the S3 mirror's entry point). Set once
// at boot, before any SAVE can run.
var mirrorHook func(path string)

func SetMirrorHook(fn func(path string)) { mirrorHook = fn }

// Save is the entry point both the SAVE command and the periodic
// scheduler go through. It refuses to run concurrently with itself.
func Save(ks *keyspace.Keyspace, path string) error {
	if !saveMu.TryLock() {
		return fmt.Errorf("durability: a snapshot is already in progress")
	}
	defer saveMu.Unlock()
	if err := SaveSnapshot(ks, path); err != nil {
		return err
	}
	if mirrorHook != nil {
		go mirrorHook(path)
	}
	return nil
}

// SnapshotScheduler runs Save on a fixed interval in the background.
type SnapshotScheduler struct {
	sched gocron.Scheduler
}

// StartSnapshotScheduler begins saving ks to path every interval. A
// failed periodic save is logged and retried at the next tick, never
// escalated: the AOL still covers everything since the last good
// snapshot.
func StartSnapshotScheduler(ks *keyspace.Keyspace, path string, interval time.Duration) (*SnapshotScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("durability: creating snapshot scheduler: %w", err)
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := Save(ks, path); err != nil {
				log.Errorf("durability: periodic snapshot failed: %v", err)
			}
		}),
	); err != nil {
		return nil, fmt.Errorf("durability: scheduling snapshots: %w", err)
	}

	sched.Start()
	log.Infof("durability: periodic snapshots to %s every %s", path, interval)
	return &SnapshotScheduler{sched: sched}, nil
}

// Stop halts the periodic job, letting an in-flight save finish.
func (s *SnapshotScheduler) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		log.Warnf("durability: snapshot scheduler shutdown: %v", err)
	}
}
