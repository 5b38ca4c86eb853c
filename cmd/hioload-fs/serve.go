// File: cmd/hioload-fs/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/control"
	"github.com/momentics/hioload-fs/internal/logger"
	"github.com/momentics/hioload-fs/server"
	"github.com/spf13/viper"
)

func runServe(ctx context.Context, v *viper.Viper, _ []string, _ io.Writer) error {
	log := logger.With("component", "server")
	srv, err := server.NewServer(serverConfig(v), server.WithLogger(log))
	if err != nil {
		return err
	}

	live := control.NewConfigStore()
	live.SetConfig(map[string]any{keyLogLevel: v.GetString(keyLogLevel)})
	live.OnReload(func(settings map[string]any) {
		name, _ := settings[keyLogLevel].(string)
		if err := logger.SetLevel(name); err != nil {
			log.Warn("reload rejected", "error", err)
			return
		}
		log.Info("log level changed", "level", name)
	})
	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Debug("config file changed", "file", e.Name, "op", e.Op.String())
			live.SetConfig(map[string]any{keyLogLevel: v.GetString(keyLogLevel)})
		})
		v.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	defer signal.Stop(dump)
	go func() {
		for {
			select {
			case <-dump:
				log.Info("debug dump", "state", srv.Probes().DumpState())
			case <-srv.Done():
				return
			}
		}
	}()

	err = srv.Run(ctx)
	st := srv.Stats()
	log.Info("shutdown complete",
		"accepted", st.Accepted,
		"transfers", st.TransfersCompleted,
		"truncated", st.TransfersTruncated,
		"bytes", st.BytesWritten)
	if errors.Is(err, api.ErrServerClosed) {
		return nil
	}
	return err
}
