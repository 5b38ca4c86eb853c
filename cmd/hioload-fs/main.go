// File: cmd/hioload-fs/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-fs serves a directory over a line-oriented TCP protocol and
// downloads from such a server.
//
//	hioload-fs serve -a 127.0.0.1:4000 -r ./files
//	hioload-fs list  -a 127.0.0.1:4000
//	hioload-fs get   -a 127.0.0.1:4000 -o ./dl a.txt b.bin

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/momentics/hioload-fs/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type command struct {
	name  string
	usage string
	flags func(*pflag.FlagSet)
	run   func(ctx context.Context, v *viper.Viper, args []string, stdout io.Writer) error
}

var commands = []command{
	{"serve", "serve a directory", serveFlags, runServe},
	{"list", "list files offered by a server", nil, runList},
	{"get", "download files and verify their MD5", getFlags, runGet},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: hioload-fs <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-6s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags may also be set as HIOLOAD_FS_<FLAG> environment variables or in a config file.")
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		logger.Fatal("environment", "error", err)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(2)
		}
		logger.Fatal("hioload-fs failed", "error", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		return pflag.ErrHelp
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		fl := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
		fl.SetOutput(stderr)
		commonFlags(fl)
		if c.flags != nil {
			c.flags(fl)
		}
		v, err := loadConfig(fl, args[1:])
		if err != nil {
			return err
		}
		if err := logger.Configure(logger.Options{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
			Output: stderr,
		}); err != nil {
			return err
		}
		return c.run(ctx, v, fl.Args(), stdout)
	}
	usage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}
