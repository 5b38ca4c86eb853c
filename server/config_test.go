package server_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/server"
)

func TestConfigValidate(t *testing.T) {
	if err := server.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cases := map[string]func(*server.Config){
		"empty addr":       func(c *server.Config) { c.ListenAddr = "" },
		"empty root":       func(c *server.Config) { c.Root = "" },
		"zero chunk":       func(c *server.Config) { c.ChunkSize = 0 },
		"zero budget":      func(c *server.Config) { c.WriteBudget = 0 },
		"zero events":      func(c *server.Config) { c.MaxEvents = 0 },
		"zero backlog":     func(c *server.Config) { c.Backlog = 0 },
		"negative high wm": func(c *server.Config) { c.HighWater = -1 },
		"bad cpu":          func(c *server.Config) { c.CPU = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := server.DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, api.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
