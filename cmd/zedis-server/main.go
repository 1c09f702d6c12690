// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/zedis/zedis/internal/acl"
	"github.com/zedis/zedis/internal/config"
	"github.com/zedis/zedis/internal/dispatch"
	"github.com/zedis/zedis/internal/durability"
	"github.com/zedis/zedis/internal/embedding"
	"github.com/zedis/zedis/internal/etl"
	"github.com/zedis/zedis/internal/keyspace"
	"github.com/zedis/zedis/internal/metrics"
	"github.com/zedis/zedis/internal/pubsub"
	"github.com/zedis/zedis/internal/searchfacade"
	"github.com/zedis/zedis/internal/shadow"
	"github.com/zedis/zedis/internal/supervisor"
	"github.com/zedis/zedis/pkg/log"
)

const version = "1.0.0"

const initConfig = `{
  "addr": "127.0.0.1:6379",
  "appendonly-file": "./appendonly.aof",
  "fsync": "everysec",
  "snapshot-file": "./dump.rdb"
}
`

const initEnv = `# Secrets referenced from config.json via "env:NAME".
# ZEDIS_JWT_SECRET=change-me
# ZEDIS_LOGLEVEL=info
`

func main() {
	log.FromEnv()
	cliInit()
	if flagLogLevel != "" {
		log.SetLogLevel(flagLogLevel)
	}
	log.SetLogDateTime(flagLogDateTime)

	if flagVersion {
		fmt.Printf("zedis-server %s\n", version)
		return
	}

	if flagInit {
		initFiles()
		return
	}

	// See https://github.com/google/gops (runtime overhead is almost zero).
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := config.LoadEnv("./.env"); err != nil {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}
	config.Init(flagConfigFile)
	cfg := &config.Keys

	policy, err := durability.ParseFsyncPolicy(cfg.Fsync)
	if err != nil {
		log.Fatal(err)
	}
	aol, err := durability.NewWriter(cfg.AppendOnlyFile, policy)
	if err != nil {
		log.Fatal(err)
	}

	ks := keyspace.New()
	metrics.RegisterKeyspaceSize(ks.Len)
	bus := pubsub.NewBus()

	var embedder embedding.Embedder
	if cfg.ModelDir != "" {
		embedder = embedding.NewFileBackedEmbedder(cfg.ModelDir, cfg.EmbeddingDim)
	} else {
		embedder = embedding.NewStub(cfg.EmbeddingDim)
	}

	d := dispatch.New(ks, aol, bus, embedding.Adapt(embedder))
	d.SnapshotPath = cfg.SnapshotFile

	// Recovery must complete before the listener accepts anyone: the AOL
	// writer stays disabled throughout so replayed mutations are not
	// re-appended.
	if err := durability.Recover(ks, cfg.SnapshotFile, cfg.AppendOnlyFile, aol, d.Execute); err != nil {
		log.Fatalf("recovery failed: %s", err.Error())
	}

	var fwd *shadow.Forwarder
	if cfg.ShadowAddr != "" {
		fwd = shadow.New(cfg.ShadowAddr)
		d.Shadow = fwd
	}

	var bridge *pubsub.NatsBridge
	if cfg.Nats != nil {
		bridge, err = pubsub.NewNatsBridge(cfg.Nats.URL, cfg.Nats.Prefix, bus)
		if err != nil {
			log.Fatalf("nats bridge: %s", err.Error())
		}
		bus.SetMirror(bridge.Forward)
	}

	if cfg.S3 != nil {
		mirror, err := durability.NewS3Mirror(context.Background(), cfg.S3.Bucket, cfg.S3.Key)
		if err != nil {
			log.Fatalf("s3 mirror: %s", err.Error())
		}
		durability.SetMirrorHook(func(path string) {
			mirror.Mirror(context.Background(), path)
		})
	}

	gate, limiter := setupACL(cfg)

	sup := supervisor.New(supervisor.Config{
		Addr:     cfg.Addr,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
	}, d, bus).WithACL(gate, limiter)

	if err := sup.Listen(); err != nil {
		log.Fatalf("bind %s: %s", cfg.Addr, err.Error())
	}

	var snapSched *durability.SnapshotScheduler
	if cfg.SnapshotInterval != "" {
		interval, err := time.ParseDuration(cfg.SnapshotInterval)
		if err != nil || interval <= 0 {
			log.Fatalf("bad snapshot-interval %q", cfg.SnapshotInterval)
		}
		snapSched, err = durability.StartSnapshotScheduler(ks, cfg.SnapshotFile, interval)
		if err != nil {
			log.Fatal(err)
		}
	}

	var syncer *etl.Syncer
	if cfg.EtlConfigFile != "" {
		etlCfg, err := etl.LoadConfig(cfg.EtlConfigFile)
		if err != nil {
			log.Fatal(err)
		}
		syncer = etl.NewSyncer(etlCfg, d.Execute)
		if err := syncer.Start(); err != nil {
			log.Fatal(err)
		}
	}

	var httpServers []*http.Server
	if cfg.SearchAddr != "" {
		httpServers = append(httpServers,
			serveHTTP(cfg.SearchAddr, searchfacade.New(d).Handler(), "search facade"))
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		httpServers = append(httpServers, serveHTTP(cfg.MetricsAddr, mux, "metrics"))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sup.Serve()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")

	sup.Shutdown()
	wg.Wait()

	for _, srv := range httpServers {
		srv.Close()
	}
	if syncer != nil {
		syncer.Stop()
	}
	if snapSched != nil {
		snapSched.Stop()
	}
	if bridge != nil {
		bridge.Close()
	}
	if fwd != nil {
		fwd.Close()
	}

	// Final snapshot so a clean shutdown restarts from a fresh baseline
	// instead of a long AOL replay. Best effort: the AOL already has
	// everything.
	if err := durability.Save(ks, cfg.SnapshotFile); err != nil {
		log.Warnf("final snapshot failed: %s", err.Error())
	}
	if err := aol.Close(); err != nil {
		log.Warnf("closing AOL: %s", err.Error())
	}

	log.Info("graceful shutdown completed")
}

// setupACL builds the gate and limiter from config. With neither users
// nor ldap configured, authentication stays off entirely.
func setupACL(cfg *config.ProgramConfig) (*acl.Gate, *acl.Limiter) {
	var gate *acl.Gate
	if len(cfg.Users) > 0 || cfg.Ldap != nil {
		if cfg.JwtSecret == "" {
			log.Fatal("users are configured but jwt-secret is empty")
		}
		maxAge, err := time.ParseDuration(cfg.SessionMaxAge)
		if err != nil {
			log.Fatalf("bad session-max-age %q", cfg.SessionMaxAge)
		}
		gate = acl.New([]byte(cfg.JwtSecret), maxAge)
		for _, u := range cfg.Users {
			if err := gate.AddUser(u.Username, u.Password, u.Commands); err != nil {
				log.Fatalf("adding user %s: %s", u.Username, err.Error())
			}
		}
		if flagSyncLdap {
			if cfg.Ldap == nil {
				log.Fatal("cannot sync: LDAP is not configured")
			}
			if err := gate.SyncLDAP(cfg.Ldap.ToACL()); err != nil {
				log.Fatal(err)
			}
			log.Info("LDAP sync successful")
		}
	} else if flagSyncLdap {
		log.Fatal("cannot sync: LDAP is not configured")
	}

	var limiter *acl.Limiter
	if cfg.RateLimit != nil {
		limiter = acl.NewLimiter(cfg.RateLimit.Rps, cfg.RateLimit.Burst)
	}
	return gate, limiter
}

// serveHTTP starts one auxiliary HTTP listener in the background. A serve
// error after startup is logged, not fatal: the RESP core keeps running
// without its sidecar.
func serveHTTP(addr string, h http.Handler, name string) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("%s listening at %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("%s: %s", name, err.Error())
		}
	}()
	return srv
}

// initFiles writes skeleton config.json and .env files, refusing to
// overwrite either.
func initFiles() {
	for _, f := range []struct{ path, content string }{
		{"./config.json", initConfig},
		{"./.env", initEnv},
	} {
		if _, err := os.Stat(f.path); err == nil {
			log.Warnf("%s already exists, not overwriting", f.path)
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			log.Fatal(err)
		}
		log.Infof("wrote %s", f.path)
	}
}
