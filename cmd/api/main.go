package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
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
	logger := log.New(os.Stderr, "["+cfg.ServiceName+"] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis: status cache, vendor feed, dan (opsional) cart
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := redisx.NewStatusCache(rdb)

	// Order repository
	var repo orders.Repository
	switch cfg.OrderStore {
	case "memory":
		repo = orders.NewMemoryRepository()
	default:
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.PostgresDSN, logger); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		repo = orders.NewPostgresRepository(db)
	}

	// Cart store
	var store cart.Store
	switch cfg.CartStore {
	case "memory":
		store = cart.NewMemoryStore()
	default:
		store = cart.NewRedisStore(rdb)
	}
	carts := cart.NewService(store, cart.Pricing{
		DeliveryFee: cfg.Pricing.DeliveryFee,
		PlatformFee: cfg.Pricing.PlatformFee,
		TaxRate:     cfg.Pricing.TaxRate,
	})

	// Payment gateway
	var (
		gw      payment.Gateway
		sandbox *payment.Sandbox
	)
	switch cfg.Payment.Provider {
	case "razorpay":
		gw = payment.NewRazorpay(cfg.Payment.RazorpayKeyID, cfg.Payment.RazorpayKeySecret)
	case "stripe":
		gw = payment.NewStripe(cfg.Payment.StripeSecretKey, cfg.Payment.StripePublishableKey)
	default:
		sandbox = payment.NewSandbox(cfg.Payment.SandboxSecret)
		gw = sandbox
	}
	payments := payment.NewAdapter(gw, cfg.Payment.ChallengeTTL, logger)

	// Kafka producers, satu per topic
	var producers []*kafkax.Producer
	newProducer := func(topic string) *kafkax.Producer {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024, logger)
		p.Start(ctx)
		logger.Printf("kafka producer started topic=%s", p.Topic())
		producers = append(producers, p)
		return p
	}
	events := &orders.Emitter{Service: cfg.ServiceName}
	if len(cfg.KafkaBrokers) > 0 {
		events.Created = newProducer(orders.TopicOrderCreated)
		events.StatusChanges = newProducer(orders.TopicOrderStatusChanged)
		events.Unverified = newProducer(orders.TopicPaymentUnverified)
	}

	factory := orders.NewFactory(repo, events, cache, cfg.DeliveryWindow, logger)
	co := checkout.NewService(carts, payments, factory, events, checkout.Config{
		Currency:   cfg.Payment.Currency,
		MaxRetries: cfg.Payment.MaxRetries,
	}, logger)

	router := httpx.NewRouter()
	(&httpx.CartHandler{Carts: carts}).Register(router)
	(&httpx.CheckoutHandler{Checkout: co}).Register(router)
	(&httpx.OrdersHandler{
		Store:   orders.NewStore(repo, cache, logger),
		Machine: orders.NewStateMachine(repo, events, cache, logger),
	}).Register(router)
	(&httpx.FeedHandler{Feed: &vendorfeed.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-vendorfeed",
		Logger:      logger,
	}}).Register(router)
	if sandbox != nil {
		(&httpx.SandboxHandler{Sandbox: sandbox}).Register(router)
	}

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Printf("HTTP listening at %s provider=%s orders=%s cart=%s",
			cfg.HTTPAddr, payments.Provider(), cfg.OrderStore, cfg.CartStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
