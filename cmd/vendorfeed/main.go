package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders/internal/vendorfeed"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	name := cfg.ServiceName + "-vendorfeed"
	logger := log.New(os.Stderr, "["+name+"] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &vendorfeed.Service{
		Redis:       rdb,
		ServiceName: name,
		Logger:      logger,
	}

	// Consumer per topic, group sama
	var wg sync.WaitGroup
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.VendorFeedGroup, topic, cfg.VendorFeedWorkers, logger)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			logger.Printf("consumer started: group=%s topic=%s workers=%d", cfg.VendorFeedGroup, topic, cfg.VendorFeedWorkers)
			if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
				logger.Printf("consumer topic=%s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Println("shutting down consumers...")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
}
