package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Ratio1/slotstore_sdk_go/internal/seed"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slotstore"
	"github.com/Ratio1/slotstore_sdk_go/pkg/storage"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seedPath := flag.String("seed", "", "path to a YAML or JSON slot seed")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	capacity := flag.Int("capacity", 0, "reject slot values longer than this many characters (0 = unlimited)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	sb := newSandbox(*capacity)
	if *seedPath != "" {
		f, err := seed.Load(*seedPath)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		if err := sb.flat.Seed(f.Slots); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
		if err := slotstore.SeedRecords(context.Background(), sb.flat, f.Records, storage.WithLogger(logger)); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
		logger.Info("seed applied", "slots", len(f.Slots), "records", len(f.Records))
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: sb.routes(logger, *latency, failCfg),
	}

	log.Printf("slot-sandbox listening on %s", *addr)
	fmt.Println()
	fmt.Println("export R1_RUNTIME_MODE=http")
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Printf("export EE_CHAINSTORE_API_URL=http://%s\n", host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
