package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	maint "github.com/yusufserdarr/predictiveMaintenance"
)

func main() {
	rt, err := maint.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("watch runtime exited: %v", err)
	}
}
