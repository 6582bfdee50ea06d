package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/config"
	"github.com/ecosense/alertkit/pkg/delivery"
	"github.com/ecosense/alertkit/pkg/logger"
	"github.com/ecosense/alertkit/pkg/queue"
	"github.com/ecosense/alertkit/pkg/redisconn"
	"github.com/ecosense/alertkit/pkg/rule"
	"github.com/ecosense/alertkit/pkg/suppress"
	"github.com/ecosense/alertkit/pkg/trigger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("alertd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	var redisCfg redisconn.Config
	config.MustLoad(&redisCfg)

	client, err := redisconn.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer client.Close()

	var queueCfg queueConfig
	config.MustLoad(&queueCfg)

	storage, err := queue.NewRedisStorage(client, queueCfg.KeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to init queue storage: %w", err)
	}

	limiter, err := suppress.NewLimiter(
		suppress.NewRedisStore(client, queueCfg.KeyPrefix),
		suppress.WithLimiterLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to init suppression limiter: %w", err)
	}

	// Rules, alert history, and delivery records live in memory until the
	// platform database integration lands.
	rules := rule.NewMemoryStore()
	alerts := trigger.NewMemoryAlertStore()
	records := delivery.NewMemoryRecordStore()

	enqueuer, err := queue.NewEnqueuer(storage)
	if err != nil {
		return fmt.Errorf("failed to init enqueuer: %w", err)
	}

	svc, err := trigger.NewService(
		alert.NewGenerator(),
		limiter,
		alerts,
		rules,
		enqueuer,
		trigger.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to init trigger service: %w", err)
	}

	worker, err := queue.NewWorker(storage, buildAdapter(log), records,
		queue.WithPollInterval(queueCfg.PollInterval),
		queue.WithDequeueTimeout(queueCfg.DequeueTimeout),
		queue.WithSendTimeout(queueCfg.SendTimeout),
		queue.WithMaxConcurrent(queueCfg.MaxConcurrent),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to init notification worker: %w", err)
	}

	scanner, err := queue.NewRetryScanner(storage, queue.WithScannerLogger(log))
	if err != nil {
		return fmt.Errorf("failed to init retry scanner: %w", err)
	}

	janitor, err := queue.NewJanitor(storage, queue.WithJanitorLogger(log))
	if err != nil {
		return fmt.Errorf("failed to init queue janitor: %w", err)
	}

	maintenance := cron.New()
	if _, err := maintenance.AddFunc(queueCfg.RetryScanSchedule, func() {
		if _, err := scanner.Scan(ctx); err != nil {
			log.ErrorContext(ctx, "retry scan failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("invalid retry scan schedule %q: %w", queueCfg.RetryScanSchedule, err)
	}
	if _, err := maintenance.AddFunc(queueCfg.CleanupSchedule, func() {
		if _, err := janitor.Sweep(ctx); err != nil {
			log.ErrorContext(ctx, "queue sweep failed", slog.String("error", err.Error()))
		}
		if _, err := svc.PurgeExpiredAlerts(ctx); err != nil {
			log.ErrorContext(ctx, "alert purge failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", queueCfg.CleanupSchedule, err)
	}
	checkStore := redisconn.Healthcheck(client)
	if _, err := maintenance.AddFunc(queueCfg.HealthcheckSchedule, func() {
		if err := checkStore(ctx); err != nil {
			log.ErrorContext(ctx, "store healthcheck failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("invalid healthcheck schedule %q: %w", queueCfg.HealthcheckSchedule, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error {
		maintenance.Start()
		<-ctx.Done()
		<-maintenance.Stop().Done()
		return nil
	})

	log.InfoContext(ctx, "alertd started",
		slog.String("env", appCfg.Environment),
		slog.String("queue_prefix", queueCfg.KeyPrefix))

	return g.Wait()
}

// buildAdapter routes email deliveries through Postmark when a server token
// is configured and logs everything else through the dev adapter. Push and
// SMS channels ship with their own adapters on the mobile side.
func buildAdapter(log *slog.Logger) delivery.Adapter {
	dev := delivery.NewDevAdapter(log)

	var emailCfg delivery.EmailConfig
	if err := config.Load(&emailCfg); err != nil || emailCfg.PostmarkServerToken == "" {
		log.Info("postmark token not configured, using dev adapter for all channels")
		return dev
	}

	email, err := delivery.NewEmailAdapter(emailCfg, resolveRecipient)
	if err != nil {
		log.Warn("email adapter unavailable, falling back to dev adapter",
			slog.String("error", err.Error()))
		return dev
	}

	return delivery.AdapterFunc(func(ctx context.Context, userID uuid.UUID, method delivery.Method, a alert.Alert) error {
		if method == delivery.MethodEmail {
			return email.Send(ctx, userID, method, a)
		}
		return dev.Send(ctx, userID, method, a)
	})
}

// resolveRecipient maps a user id to an email address.
// TODO: look up addresses in the accounts service once its client library is
// published; the override below exists for pilot deployments.
func resolveRecipient(ctx context.Context, userID uuid.UUID) (string, error) {
	if addr := os.Getenv("ALERT_RECIPIENT_OVERRIDE"); addr != "" {
		return addr, nil
	}
	return "", fmt.Errorf("%w: user %s", delivery.ErrNoRecipientAddress, userID)
}
