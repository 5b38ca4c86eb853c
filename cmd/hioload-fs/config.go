// File: cmd/hioload-fs/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layered configuration: flags over HIOLOAD_FS_* environment over an
// optional config file over defaults. A .env file in the working directory
// seeds the environment.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/momentics/hioload-fs/server"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "HIOLOAD_FS"

// Configuration keys, shared by flags, environment and config files.
const (
	keyConfig      = "config"
	keyAddr        = "addr"
	keyRoot        = "root"
	keyChunkSize   = "chunk-size"
	keyWriteBudget = "write-budget"
	keyMaxEvents   = "max-events"
	keyBacklog     = "backlog"
	keyHighWater   = "high-water"
	keyCPU         = "cpu"
	keyLogLevel    = "log-level"
	keyLogFormat   = "log-format"
	keyOut         = "out"
	keyParallel    = "parallel"
	keyTimeout     = "timeout"
	keyProgress    = "progress"
)

// loadDotEnv loads .env files without overriding variables already set.
// Missing files are ignored.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// commonFlags registers flags every subcommand understands.
func commonFlags(fl *pflag.FlagSet) {
	d := server.DefaultConfig()
	fl.StringP(keyConfig, "c", "", "config file (yaml, toml, json, ...)")
	fl.StringP(keyAddr, "a", d.ListenAddr, "server address")
	fl.String(keyLogLevel, "info", "log level: debug, info, warn, error")
	fl.String(keyLogFormat, "text", "log format: text or json")
}

func serveFlags(fl *pflag.FlagSet) {
	d := server.DefaultConfig()
	fl.StringP(keyRoot, "r", d.Root, "directory to serve")
	fl.Int(keyChunkSize, d.ChunkSize, "body bytes read per step")
	fl.Int(keyWriteBudget, d.WriteBudget, "write steps per connection before yielding")
	fl.Int(keyMaxEvents, d.MaxEvents, "readiness events per poll")
	fl.Int(keyBacklog, d.Backlog, "listen backlog")
	fl.Int(keyHighWater, d.HighWater, "pause body reads above this many queued bytes (0 = off)")
	fl.Int(keyCPU, d.CPU, "pin the event loop to this CPU (-1 = off)")
}

func getFlags(fl *pflag.FlagSet) {
	fl.StringP(keyOut, "o", ".", "output directory")
	fl.IntP(keyParallel, "p", 4, "concurrent downloads, one connection each")
	fl.Duration(keyTimeout, 0, "overall timeout (0 = none)")
	fl.Bool(keyProgress, false, "print download progress to stderr")
}

// loadConfig parses args into fl and layers the result into a viper instance.
func loadConfig(fl *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fl.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fl); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// serverConfig maps layered settings onto server.Config.
func serverConfig(v *viper.Viper) *server.Config {
	cfg := server.DefaultConfig()
	cfg.ListenAddr = v.GetString(keyAddr)
	cfg.Root = v.GetString(keyRoot)
	cfg.ChunkSize = v.GetInt(keyChunkSize)
	cfg.WriteBudget = v.GetInt(keyWriteBudget)
	cfg.MaxEvents = v.GetInt(keyMaxEvents)
	cfg.Backlog = v.GetInt(keyBacklog)
	cfg.HighWater = v.GetInt(keyHighWater)
	cfg.CPU = v.GetInt(keyCPU)
	return cfg
}

func timeoutOf(v *viper.Viper) time.Duration {
	return v.GetDuration(keyTimeout)
}
