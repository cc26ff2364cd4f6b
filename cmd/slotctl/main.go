// Command slotctl inspects and edits records kept in a slot store.
//
//	slotctl [-config file] save -id @ns/name [-version v] [-file path|-]
//	slotctl [-config file] load -id @ns/name [-pretty]
//	slotctl [-config file] meta -id @ns/name
//	slotctl [-config file] ls [-match glob] [-chunks]
//
// Without -config the store is resolved from the environment, like any other
// slotstore client.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slotstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, open: openStore}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func openStore(ctx context.Context, configPath string, opts ...slotstore.Option) (slot.Store, error) {
	if configPath == "" {
		store, _, err := slotstore.NewFromEnv(opts...)
		return store, err
	}
	cfg, err := slotstore.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	store, _, err := slotstore.Open(ctx, cfg, opts...)
	return store, err
}
