package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/pkg/maintflow"
)

func main() {
	callback := func(batch []maintflow.Record) error {
		for _, rec := range batch {
			fmt.Printf("%s rul=%.2f status=%s\n",
				rec.Timestamp.Format(time.RFC3339Nano),
				rec.RUL,
				rec.Status,
			)
		}
		return nil
	}

	rt, err := maintflow.Conf("../../data/config.yaml", maintflow.WithSink(maintflow.NewCallbackSink("stdout", callback)))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
