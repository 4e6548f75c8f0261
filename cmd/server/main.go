package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/config"
	"github.com/dmitrymomot/gallerykit/pkg/email"
	"github.com/dmitrymomot/gallerykit/pkg/file"
	"github.com/dmitrymomot/gallerykit/pkg/httpserver"
	"github.com/dmitrymomot/gallerykit/pkg/limits"
	"github.com/dmitrymomot/gallerykit/pkg/logger"
	"github.com/dmitrymomot/gallerykit/pkg/pg"
	"github.com/dmitrymomot/gallerykit/pkg/redis"
	"github.com/dmitrymomot/gallerykit/pkg/tenant"
	"github.com/dmitrymomot/gallerykit/pkg/usage"

	billingmodule "github.com/dmitrymomot/gallerykit/modules/billing"
)

type appConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"gallerykit"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	CatalogPath string `env:"BILLING_CATALOG_PATH" envDefault:"plans.yml"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3AccessKey string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3BaseURL   string `env:"S3_BASE_URL"`

	LocalStorageDir string `env:"LOCAL_STORAGE_DIR" envDefault:"./media"`
	EmailOutputDir  string `env:"EMAIL_OUTPUT_DIR" envDefault:"./email-output"`

	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = config.LoadEnv()

	var (
		app         appConfig
		pgCfg       pg.Config
		redisCfg    redis.Config
		httpCfg     httpserver.Config
		resolverCfg tenant.ResolverConfig
		paddleCfg   billing.PaddleConfig
	)
	config.MustLoad(&app)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&resolverCfg)
	config.MustLoad(&paddleCfg)

	log := logger.New(logger.WithEnvironment(app.Environment, app.AppName),
		logger.WithContextExtractors(tenant.LoggerExtractor()))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "postgres connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "migrations failed", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "redis connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	var store file.Storage
	if app.S3Bucket != "" {
		store, err = file.NewS3Storage(ctx, file.S3Config{
			Bucket:      app.S3Bucket,
			Region:      app.S3Region,
			AccessKeyID: app.S3AccessKey,
			SecretKey:   app.S3SecretKey,
			Endpoint:    app.S3Endpoint,
			BaseURL:     app.S3BaseURL,
		})
	} else {
		store, err = file.NewLocalStorage(app.LocalStorageDir, "/media/")
	}
	if err != nil {
		log.ErrorContext(ctx, "object storage init failed", logger.Error(err))
		os.Exit(1)
	}

	catalogSource := billing.NewYAMLCatalogSource(app.CatalogPath)
	catalog, err := catalogSource.Load(ctx)
	if err != nil {
		log.ErrorContext(ctx, "billing catalog load failed", logger.Error(err))
		os.Exit(1)
	}

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		log.ErrorContext(ctx, "paddle provider init failed", logger.Error(err))
		os.Exit(1)
	}

	tenants := tenant.NewPGStore(pool)

	var sender email.EmailSender
	var emailCfg email.Config
	if err := config.Load(&emailCfg); err == nil && emailCfg.PostmarkServerToken != "" {
		sender = email.MustNewPostmarkClient(emailCfg)
	} else {
		sender = email.NewDevSender(app.EmailOutputDir)
	}
	notifier := billing.NewEmailNotifier(sender, billing.ContactResolverFunc(
		func(ctx context.Context, tenantID uuid.UUID) (string, error) {
			t, err := tenants.GetByID(ctx, tenantID)
			if err != nil {
				return "", err
			}
			return t.OwnerEmail, nil
		}), app.AppName, log)

	subs := billing.NewPGSubscriptionStore(pool)
	addons := billing.NewPGAddonStore(pool)
	recalc := subs.Recalculator(catalog)
	accountant := usage.NewPGAccountant(pool)
	guard := billing.NewGuard(subs, addons, catalog, accountant)
	reconciler := billing.NewReconciler(subs, addons, provider, catalog, recalc, log,
		billing.WithNotifier(notifier))
	billingSvc := billing.NewService(subs, addons, provider, catalog, guard, recalc, reconciler, log)
	enforcer := limits.NewEnforcer(subs, accountant)

	tenantSvc := tenant.NewService(tenants, log,
		store,
		tenant.PurgerFunc(func(ctx context.Context, tenantID uuid.UUID) error {
			return billing.PurgeTenantBilling(ctx, pool, tenantID)
		}),
	)

	resolver := tenant.NewHostResolver(tenants, resolverCfg, log)
	tenantMiddleware := tenant.Middleware(resolver,
		tenant.WithCache(tenant.NewRedisCache(redisClient, app.AppName+":tenant")),
		tenant.WithCacheTTL(app.TenantCacheTTL),
		tenant.WithSkipPaths("/health", "/billing/webhooks/paddle"),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(tenantMiddleware)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", billingmodule.Router(billingmodule.RouterOptions{
		Service:  billingSvc,
		Enforcer: enforcer,
		Log:      log,
	}))

	// Internal admin surface; front it with network-level auth.
	r.Delete("/admin/tenants/{tenantID}", func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}
		if err := tenantSvc.DeleteTenant(req.Context(), id); err != nil {
			log.ErrorContext(req.Context(), "tenant deletion failed", logger.Error(err))
			http.Error(w, "deletion failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "server stopped", logger.Error(err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "server shut down cleanly", slog.String("app", app.AppName))
}
