// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/solidcoredata/nopb"
	nopbconfig "github.com/solidcoredata/nopb/config"
	"github.com/solidcoredata/nopb/internal/start"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "schema-to-json":
		err = cmdSchemaToJSON(os.Args[2:])
	case "schema-from-json":
		err = cmdSchemaFromJSON(os.Args[2:])
	case "dump":
		err = cmdDump(os.Args[2:])
	case "stat":
		err = cmdStat(os.Args[2:])
	case "compact":
		err = cmdCompact(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: nopb <schema-to-json|schema-from-json|dump|stat|compact|watch> [flags]")
}

func openFactory(path string) (*nopb.Factory, []byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read schema %s", path)
	}
	if len(b) > 0 && b[0] == '{' {
		f, err := nopb.NewFactoryFromJSON(b)
		return f, b, err
	}
	f, err := nopb.NewFactoryFromBytes(b)
	return f, b, err
}

func cmdSchemaToJSON(args []string) error {
	fs := flag.NewFlagSet("schema-to-json", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	f, _, err := openFactory(cfg.SchemaPath)
	if err != nil {
		return err
	}
	out, err := f.SchemaJSON()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func cmdSchemaFromJSON(args []string) error {
	fs := flag.NewFlagSet("schema-from-json", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	out := fs.String("out", "", "path to write the compact schema bytes to (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	desc, err := os.ReadFile(cfg.SchemaPath)
	if err != nil {
		return errors.Wrap(err, "read schema json")
	}
	f, err := nopb.NewFactoryFromJSON(desc)
	if err != nil {
		return err
	}
	b, err := f.SchemaBytes()
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(*out, b, 0o644)
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	buf, err := loadBuffer(cfg)
	if err != nil {
		return err
	}
	out, err := buf.ToJSON()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func cmdStat(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	buf, err := loadBuffer(cfg)
	if err != nil {
		return err
	}
	printStat(os.Stdout, cfg.BufferPath, buf)
	return nil
}

func printStat(w *os.File, name string, buf *nopb.Buffer) {
	current, wasted := buf.CalcBytes()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"buffer", "current bytes", "wasted bytes"})
	t.AppendRows([]table.Row{{name, current, wasted}})
	t.AppendSeparator()
	t.Render()
}

func cmdCompact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	out := fs.String("out", "", "path to write the compacted buffer to (default overwrites -buffer)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	buf, err := loadBuffer(cfg)
	if err != nil {
		return err
	}
	if err := buf.Compact(); err != nil {
		return err
	}
	dest := cfg.BufferPath
	if *out != "" {
		dest = *out
	}
	return os.WriteFile(dest, buf.Bytes(), 0o644)
}

func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg := nopbconfig.Register(fs)
	interval := fs.Duration("interval", 2*time.Second, "polling interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Load(); err != nil {
		return err
	}
	return start.Start(context.Background(), 5*time.Second, func(ctx context.Context) error {
		return start.RunAll(ctx, func(ctx context.Context) error {
			return watchLoop(ctx, cfg, *interval)
		})
	})
}

func watchLoop(ctx context.Context, cfg *nopbconfig.Config, interval time.Duration) error {
	var lastWasted int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		buf, err := loadBuffer(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		_, wasted := buf.CalcBytes()
		if wasted != lastWasted {
			printStat(os.Stdout, cfg.BufferPath, buf)
			lastWasted = wasted
		}
	}
}

func loadBuffer(cfg *nopbconfig.Config) (*nopb.Buffer, error) {
	f, _, err := openFactory(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	if cfg.BufferPath == "" {
		return f.Empty(), nil
	}
	b, err := os.ReadFile(cfg.BufferPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read buffer %s", cfg.BufferPath)
	}
	return f.Open(b)
}
