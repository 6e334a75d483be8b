package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/reformer/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	userID := flag.String("user", "", "sign in as this user id (optional, overrides config)")
	syncSeconds := flag.Int("sync", 0, "periodic sync interval in seconds (optional, defaults to 30s)")
	offline := flag.Bool("offline", false, "never contact the sync backend")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		UserID:     *userID,
		Offline:    *offline,
		Verbose:    *verbose,
	}
	if s := *syncSeconds; s > 0 {
		opts.SyncEvery = s
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "reformer: %v\n", err)
		return 1
	}
	return 0
}
