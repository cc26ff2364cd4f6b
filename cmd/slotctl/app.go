package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gobwas/glob"
	"github.com/tidwall/pretty"

	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slotstore"
	"github.com/Ratio1/slotstore_sdk_go/pkg/storage"
)

type opener func(ctx context.Context, configPath string, opts ...slotstore.Option) (slot.Store, error)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	open   opener
	logger *slog.Logger
}

const usage = `usage: slotctl [-config file] <command> [flags]

commands:
  save -id @ns/name [-version v] [-file path|-]
  load -id @ns/name [-pretty]
  meta -id @ns/name
  ls [-match glob] [-chunks]
`

func (a *app) run(ctx context.Context, args []string) int {
	global := flag.NewFlagSet("slotctl", flag.ContinueOnError)
	global.SetOutput(a.stderr)
	global.Usage = func() { fmt.Fprint(a.stderr, usage) }
	configPath := global.String("config", "", "YAML config file (default: environment)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	cmds := map[string]func(context.Context, slot.Store, []string) error{
		"save": a.save,
		"load": a.load,
		"meta": a.meta,
		"ls":   a.ls,
	}
	cmd, ok := cmds[rest[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "slotctl: unknown command %q\n", rest[0])
		global.Usage()
		return 2
	}

	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := a.open(ctx, *configPath, slotstore.WithLogger(a.logger))
	if err != nil {
		fmt.Fprintf(a.stderr, "slotctl: %v\n", err)
		return 1
	}
	if err := cmd(ctx, store, rest[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(a.stderr, "slotctl %s: %v\n", rest[0], err)
		}
		return 1
	}
	return 0
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) record(store slot.Store, id string) (*storage.Record[json.RawMessage], error) {
	if id == "" {
		return nil, errors.New("-id is required")
	}
	return storage.Open[json.RawMessage](store, id, storage.WithLogger(a.logger))
}

func (a *app) save(ctx context.Context, store slot.Store, args []string) error {
	fs := a.flags("save")
	id := fs.String("id", "", "record id (@namespace/name)")
	version := fs.String("version", "", "version tag stored in the header")
	file := fs.String("file", "-", "JSON input file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rec, err := a.record(store, *id)
	if err != nil {
		return err
	}

	data, err := a.readInput(*file)
	if err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return errors.New("input is not a single JSON value")
	}
	if err := rec.Put(ctx, json.RawMessage(data), *version); err != nil {
		return err
	}

	meta := rec.Metadata(ctx)
	layout := "inline"
	if !meta.Inline() {
		layout = fmt.Sprintf("%d chunks", meta.Chunks)
	}
	fmt.Fprintf(a.stdout, "saved %s (%s, %d characters)\n", rec.ID(), layout, meta.Size)
	return nil
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

func (a *app) load(ctx context.Context, store slot.Store, args []string) error {
	fs := a.flags("load")
	id := fs.String("id", "", "record id (@namespace/name)")
	indent := fs.Bool("pretty", false, "indent the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rec, err := a.record(store, *id)
	if err != nil {
		return err
	}

	value, err := rec.Fetch(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: not found", rec.ID())
	}
	if err != nil {
		return err
	}
	out := []byte(value)
	if *indent {
		out = pretty.Pretty(out)
	} else {
		out = append(out, '\n')
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *app) meta(ctx context.Context, store slot.Store, args []string) error {
	fs := a.flags("meta")
	id := fs.String("id", "", "record id (@namespace/name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rec, err := a.record(store, *id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec.Metadata(ctx))
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(pretty.Pretty(data))
	return err
}

func (a *app) ls(ctx context.Context, store slot.Store, args []string) error {
	fs := a.flags("ls")
	match := fs.String("match", "*", "glob filter on keys")
	chunks := fs.Bool("chunks", false, "include indexed chunk slots")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lister, ok := store.(slot.Lister)
	if !ok {
		return fmt.Errorf("store %T cannot list keys", store)
	}
	g, err := glob.Compile(*match)
	if err != nil {
		return fmt.Errorf("invalid -match pattern %q: %w", *match, err)
	}

	keys, err := lister.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if !*chunks && slot.IsChunkKey(key) {
			continue
		}
		if !g.Match(key) {
			continue
		}
		fmt.Fprintln(a.stdout, key)
	}
	return nil
}
