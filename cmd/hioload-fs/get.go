// File: cmd/hioload-fs/get.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/momentics/hioload-fs/client"
	"github.com/momentics/hioload-fs/internal/logger"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/viper"
)

func runList(ctx context.Context, v *viper.Viper, _ []string, stdout io.Writer) error {
	c, err := client.Dial(ctx, v.GetString(keyAddr))
	if err != nil {
		return err
	}
	defer c.Close()
	names, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return nil
}

// runGet downloads every named file over its own connection, at most
// --parallel at a time. All failures are reported together.
func runGet(ctx context.Context, v *viper.Viper, names []string, stdout io.Writer) error {
	if len(names) == 0 {
		return errors.New("get: no file names given")
	}
	if d := timeoutOf(v); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	addr := v.GetString(keyAddr)
	outDir := v.GetString(keyOut)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	var opts []client.Option
	if v.GetBool(keyProgress) {
		opts = append(opts, client.WithProgress(progressPrinter(os.Stderr)))
	}

	var outMu sync.Mutex
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(max(1, v.GetInt(keyParallel)))
	for _, name := range names {
		name := name
		p.Go(func(ctx context.Context) error {
			c, err := client.Dial(ctx, addr, opts...)
			if err != nil {
				return err
			}
			defer c.Close()
			t, err := c.Fetch(ctx, name, outDir)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			logger.Debug("downloaded", "file", name, "path", t.Path, "size", t.Size)
			outMu.Lock()
			fmt.Fprintf(stdout, "%s %d MD5 OK %s\n", t.Path, t.Size, t.Digest)
			outMu.Unlock()
			return nil
		})
	}
	return p.Wait()
}

// progressPrinter reports every MiB and the final byte of each transfer.
func progressPrinter(w io.Writer) func(name string, done, total int64) {
	var mu sync.Mutex
	last := make(map[string]int64)
	return func(name string, done, total int64) {
		mu.Lock()
		defer mu.Unlock()
		if done-last[name] < 1<<20 && done != total {
			return
		}
		last[name] = done
		pct := 100.0
		if total > 0 {
			pct = float64(done) * 100 / float64(total)
		}
		fmt.Fprintf(w, "%s: %d/%d bytes (%.1f%%)\n", name, done, total, pct)
	}
}
