package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/scopes-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start(ctx)
	a.Log.Info("scopes-backend ready",
		"db_driver", a.Cfg.DBDriver,
		"alias_index", a.Cfg.AliasIndex,
		"metrics", a.Metrics != nil,
	)
	<-ctx.Done()
	a.Log.Info("Shutting down")
}
