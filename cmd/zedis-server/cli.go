// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagInit, flagGops, flagVersion, flagLogDateTime, flagSyncLdap bool
	flagConfigFile, flagLogLevel                                   string
)

func cliInit() {
	flag.BoolVar(&flagInit, "init", false, "Write a skeleton config.json and .env and exit")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&flagSyncLdap, "sync-ldap", false, "Sync ACL users from the configured LDAP directory at startup")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Sets the logging level: `[debug, info, notice, warn, err, crit]`")
	flag.Parse()
}
