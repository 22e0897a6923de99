package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cache"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/config"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/db"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/kafka"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
	taskprocessor "gitlab.ozon.dev/qwestard/cutoff-delivery/internal/processor"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/repository"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/server"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/service"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Error in connection to db: %v", err)
	}
	defer database.Close()

	warehouseRepo := repository.NewWarehouseRepository(database)
	locationRepo := repository.NewLocationRepository(database)
	pickingRepo := repository.NewPickingRepository(database)
	outboxRepo := repository.NewOutboxRepository(database)
	txManager := repository.NewTxManager(database)

	auditCtx, auditCancel := context.WithCancel(context.Background())
	auditPool := audit.NewAuditWorkerPool(audit.AuditPoolConfig{
		BatchSize:   cfg.AuditBatchSize,
		Timeout:     cfg.AuditTimeout,
		ChannelSize: 1000,
	},
		audit.NewDBProcessor(database),
		&audit.StdoutProcessor{Filter: cfg.FilterWord},
	)
	auditPool.Start(auditCtx, cfg.AuditWorkers)
	defer auditPool.Shutdown(auditCancel)

	producer, err := kafka.NewSaramaProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Printf("Kafka unavailable, cutoff events stay in the outbox: %v", err)
	} else {
		defer producer.Close()
		relay := taskprocessor.NewOutboxRelay(outboxRepo, producer, cfg.KafkaTopic, cfg.OutboxPoll, cfg.OutboxBatchLimit)
		go relay.Start(ctx)
	}

	if cfg.KafkaConsume {
		go func() {
			handler := kafka.CutoffEventHandler{Handle: func(_ context.Context, e models.CutoffEvent) error {
				log.Printf("Cutoff event %s %s: %s -> %s", e.Kind, e.Key(), e.OldCutoff, e.NewCutoff)
				return nil
			}}
			err := kafka.StartSaramaConsumer(ctx, kafka.NewConsumerConfig(), cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic}, handler)
			if err != nil {
				log.Printf("Audit consumer stopped: %v", err)
			}
		}()
	}

	warehouseCache := cache.NewWarehouseCache()
	if err := warehouseCache.Refresh(ctx, locationRepo); err != nil {
		log.Fatalf("Error loading warehouses: %v", err)
	}
	go warehouseCache.StartAutoRefresh(ctx, locationRepo, cfg.CacheRefresh)

	classifier := cutoff.NewClassifier(cutoff.ClockIn(cfg.Location))
	pickingService := service.NewPickingService(pickingRepo, locationRepo, warehouseCache, classifier, txManager, outboxRepo, auditPool)
	warehouseService := service.NewWarehouseService(warehouseRepo, locationRepo, pickingRepo, warehouseCache, txManager, outboxRepo, auditPool)

	srv := server.NewServer(pickingService, warehouseService, auditPool, cfg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
