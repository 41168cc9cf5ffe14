package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"procura/internal/assignment"
	"procura/internal/audit"
	auditstore "procura/internal/audit/store"
	"procura/internal/audit/stream"
	"procura/internal/delivery"
	"procura/internal/delivery/email"
	dirstore "procura/internal/directory/store"
	"procura/internal/notification"
	notificationstore "procura/internal/notification/store"
	"procura/internal/platform/config"
	"procura/internal/platform/httpserver"
	"procura/internal/platform/kafka"
	"procura/internal/platform/logger"
	"procura/internal/platform/metrics"
	"procura/internal/platform/postgres"
	redisplatform "procura/internal/platform/redis"
	"procura/internal/preferences"
	prefstore "procura/internal/preferences/store"
	"procura/internal/realtime"
	httptransport "procura/internal/transport/http"
	"procura/pkg/platform/circuit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "procura: %v\n", err)
		os.Exit(1)
	}
}

// run wires every dependency explicitly, serves the ops router, and drives
// the periodic sweeps until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Info("redis not configured, real-time push disabled")
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka); err != nil {
			return err
		}
	} else {
		log.Info("kafka not configured, audit stream disabled")
	}

	directory := dirstore.NewPostgres(db)
	notifications := notificationstore.NewPostgresStore(db)

	auditOpts := []audit.Option{audit.WithLogger(log), audit.WithMetrics(audit.NewMetrics())}
	if kafkaClient != nil {
		auditOpts = append(auditOpts, audit.WithStreamer(stream.NewKafkaStreamer(kafkaClient, cfg.Kafka.AuditTopic), cfg.Kafka.StreamBuffer))
	}
	auditLog := audit.NewLog(auditstore.NewPostgresStore(db), auditOpts...)
	defer auditLog.Close()

	prefs := preferences.NewService(prefstore.NewPostgresStore(db), preferences.WithLogger(log))

	relay := circuit.New("smtp",
		circuit.WithFailureThreshold(cfg.SMTP.BreakerThreshold),
		circuit.WithCooldown(cfg.SMTP.BreakerCooldown),
	)
	sender := email.NewGuardedSender(email.NewSMTPSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		FromName: cfg.SMTP.FromName,
		From:     cfg.SMTP.From,
	}), relay, log)

	schedulerOpts := []delivery.Option{
		delivery.WithLogger(log),
		delivery.WithMetrics(delivery.NewMetrics()),
		delivery.WithBaseURL(cfg.Server.AppBaseURL),
		delivery.WithSendTimeout(cfg.SMTP.SendTimeout),
	}
	orchestratorOpts := []notification.Option{
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics()),
	}
	if rdb != nil {
		push := realtime.NewPublisher(rdb.Client)
		schedulerOpts = append(schedulerOpts, delivery.WithPublisher(push))
		orchestratorOpts = append(orchestratorOpts, notification.WithPublisher(push))
	}
	scheduler := delivery.NewScheduler(notifications, prefs, directory, sender, schedulerOpts...)
	orchestrator := notification.NewOrchestrator(notifications, directory, scheduler, orchestratorOpts...)
	assignments := assignment.NewService(directory, orchestrator, auditLog,
		assignment.WithLogger(log),
		assignment.WithMetrics(assignment.NewMetrics()),
	)

	checks := map[string]httptransport.Check{"postgres": db.PingContext}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}
	if kafkaClient != nil {
		checks["kafka"] = kafkaClient.Ping
	}
	if cfg.Server.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, ops triggers disabled")
	}
	router := httptransport.NewRouter(httptransport.NewHandler(assignments, scheduler, checks, log), cfg.Server.AdminToken)
	srv := httpserver.New(ctx, cfg.Server, router)

	sweeps := []sweep{
		{name: "assignment_batch", interval: cfg.Sweeps.AssignmentInterval, run: func(ctx context.Context) error {
			_, err := assignments.ProcessAllDepartments(ctx)
			return err
		}},
		{name: "notification_expiry", interval: cfg.Sweeps.ExpiryInterval, run: func(ctx context.Context) error {
			_, err := orchestrator.CleanupExpired(ctx)
			return err
		}},
		{name: "email_retry", interval: cfg.Sweeps.RetryInterval, run: func(ctx context.Context) error {
			_, err := scheduler.RetryFailed(ctx, cfg.Sweeps.RetryBatch)
			return err
		}},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting procura", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return runSweeps(gctx, sweeps, metrics.New(), log)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownIn)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		return err
	}
	return nil
}
