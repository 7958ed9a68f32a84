// Command gateway wires up every component and serves the ingress HTTP
// API, with a SIGINT/SIGTERM handler that drains the worker pool before
// the process exits.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rinha-gateway/gateway/internal/archive"
	"github.com/rinha-gateway/gateway/internal/config"
	"github.com/rinha-gateway/gateway/internal/domain"
	"github.com/rinha-gateway/gateway/internal/health"
	"github.com/rinha-gateway/gateway/internal/httpapi"
	"github.com/rinha-gateway/gateway/internal/idempotency"
	"github.com/rinha-gateway/gateway/internal/ledger"
	"github.com/rinha-gateway/gateway/internal/processor"
	"github.com/rinha-gateway/gateway/internal/queue"
	"github.com/rinha-gateway/gateway/internal/selector"
	"github.com/rinha-gateway/gateway/internal/worker"
)

// drainTimeout bounds how long shutdown waits for the worker pool to
// finish in-flight work once the queue stops accepting new items.
const drainTimeout = 30 * time.Second

// queueCapacity is the bounded queue's admission budget between ingress
// and the worker pool.
const queueCapacity = 1000

func main() {
	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisEndpoint})

	pgPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("gateway: failed to connect to postgres: ", err)
	}

	ledgerStore := ledger.New(rdb)
	idempotencyRegistry := idempotency.New(rdb)
	archiver := archive.New(pgPool, ledgerStore, cfg.LedgerRetention)

	if err := archiver.EnsureSchema(context.Background()); err != nil {
		log.Fatal("gateway: failed to ensure archive schema: ", err)
	}

	const processorRequestTimeout = 30 * time.Second
	defaultClient := processor.New(domain.Default, cfg.ProcessorDefaultURL, processorRequestTimeout)
	fallbackClient := processor.New(domain.Fallback, cfg.ProcessorFallbackURL, processorRequestTimeout)

	monitor := health.New(map[domain.ProcessorID]health.Checker{
		domain.Default:  defaultClient,
		domain.Fallback: fallbackClient,
	})

	sel := selector.New(monitor, map[domain.ProcessorID]selector.Poster{
		domain.Default:  defaultClient,
		domain.Fallback: fallbackClient,
	}, ledgerStore)

	paymentQueue := queue.New[domain.PaymentRequest](queueCapacity)
	pool := worker.New(paymentQueue, idempotencyRegistry, sel, cfg.Workers)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpapi.New(paymentQueue, ledgerStore, archiver).Register(app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go monitor.Run(ctx)
	go archiver.Run(ctx)

	// drainCtx is independent of ctx: it must stay live for up to
	// drainTimeout after shutdown begins so pool.Run can keep draining
	// queued items, rather than dying the instant ctx is cancelled.
	drainCtx, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()

	g, gctx := errgroup.WithContext(drainCtx)
	g.Go(func() error {
		return pool.Run(gctx)
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("gateway: failed to start http server: ", err)
		}
	}()
	log.Println("gateway: listening on :" + cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("gateway: shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelShutdown()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Println("gateway: http shutdown error: ", err)
	}

	paymentQueue.Close()

	// Give the worker pool up to drainTimeout to finish draining whatever
	// was still queued or in flight before forcing it to stop.
	drained := make(chan error, 1)
	go func() { drained <- g.Wait() }()

	select {
	case err := <-drained:
		if err != nil {
			log.Println("gateway: worker pool exited with error: ", err)
		}
	case <-time.After(drainTimeout):
		log.Println("gateway: drain deadline exceeded, forcing shutdown")
		cancelDrain()
		<-drained
	}

	cancel()
	log.Println("gateway: exited")
}
