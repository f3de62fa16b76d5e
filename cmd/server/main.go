package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opinia/opinia/pkg/billing"
	"github.com/opinia/opinia/pkg/billing/pgstore"
	"github.com/opinia/opinia/pkg/config"
	"github.com/opinia/opinia/pkg/email"
	"github.com/opinia/opinia/pkg/httpserver"
	"github.com/opinia/opinia/pkg/limits"
	"github.com/opinia/opinia/pkg/logger"
	"github.com/opinia/opinia/pkg/notification"
	"github.com/opinia/opinia/pkg/pg"
	"github.com/opinia/opinia/pkg/redis"
	"github.com/opinia/opinia/pkg/tenant"
)

type appConfig struct {
	AppName            string        `env:"APP_NAME" envDefault:"opinia-billing"`
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	PortalSuffix       string        `env:"PORTAL_SUFFIX" envDefault:".opinia.app"`
	EmailDevDir        string        `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
	TrialSweepInterval time.Duration `env:"TRIAL_SWEEP_INTERVAL" envDefault:"1h"`
	TenantCacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.AppName),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// Postgres
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	// Redis backs the shared tenant cache.
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store := pgstore.NewStore(pool)

	catalog, err := billing.NewCatalog(ctx, billing.NewInMemPlanSource(defaultPlans()...))
	if err != nil {
		return err
	}

	var stripeCfg billing.StripeConfig
	config.MustLoad(&stripeCfg)

	provider, err := billing.NewStripeProvider(stripeCfg)
	if err != nil {
		return err
	}

	sender, err := newEmailSender(cfg, log)
	if err != nil {
		return err
	}
	dispatcher := notification.NewDispatcher(sender,
		notification.WithLogger(log),
		notification.WithPlanNames(planNames()),
	)

	svc := billing.NewService(catalog, provider, store,
		billing.WithServiceLogger(log),
	)

	reconciler := billing.NewReconciler(catalog, provider, store,
		billing.WithNotifier(dispatcher),
		billing.WithReconcilerLogger(log),
	)

	var webhookCfg billing.WebhookConfig
	config.MustLoad(&webhookCfg)

	guard := limits.NewGuard(catalog, store.Subscriptions(), usageCounters(pool))

	// Periodic trial sweep. The ticker is coarse on purpose, the operation
	// is idempotent and cheap.
	go trialSweep(ctx, svc, cfg.TrialSweepInterval, log)

	router := newRouter(routerDeps{
		cfg:        cfg,
		log:        log,
		svc:        svc,
		catalog:    catalog,
		guard:      guard,
		store:      store,
		webhook:    billing.NewWebhookHandler(reconciler, webhookCfg, log),
		redis:      redisClient,
		pgHealth:   pg.Healthcheck(pool),
		redisCheck: redis.Healthcheck(redisClient),
	})

	server := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithLogger(log),
		httpserver.WithReadTimeout(15*time.Second),
		httpserver.WithWriteTimeout(30*time.Second),
		httpserver.WithShutdownTimeout(10*time.Second),
	)

	log.InfoContext(ctx, "starting server", slog.String("addr", cfg.HTTPAddr))
	return server.Run(ctx, router)
}

func planNames() map[string]string {
	names := make(map[string]string)
	for _, p := range defaultPlans() {
		names[p.ID] = p.Name
	}
	return names
}

// newEmailSender prefers Postmark and falls back to the on-disk dev sender
// when the Postmark configuration is absent or incomplete.
func newEmailSender(cfg appConfig, log *slog.Logger) (email.EmailSender, error) {
	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil || emailCfg.PostmarkServerToken == "" {
		log.Info("postmark not configured, writing emails to disk",
			slog.String("dir", cfg.EmailDevDir))
		return email.NewDevSender(cfg.EmailDevDir), nil
	}
	return email.NewPostmarkClient(emailCfg)
}

func trialSweep(ctx context.Context, svc billing.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireTrials(ctx)
			if err != nil {
				log.ErrorContext(ctx, "trial sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				log.InfoContext(ctx, "expired trials deactivated", slog.Int64("count", n))
			}
		}
	}
}
