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
	sink, batches, closeBatches := maintflow.NewChannelSink("fanout", 32)
	defer closeBatches()

	rt, err := maintflow.Conf("../../data/config.yaml", maintflow.WithSink(sink))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	go alertWorker("alerts", batches)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

// alertWorker prints only the records that need attention.
func alertWorker(name string, batches <-chan []maintflow.Record) {
	for batch := range batches {
		for _, rec := range batch {
			if rec.Status != maintflow.StatusCritical {
				continue
			}
			fmt.Printf("[%s] %s critical, rul=%.2f\n", name, time.Now().Format(time.RFC3339), rec.RUL)
		}
	}
}
