package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/gateway"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/plan"
	sharedcache "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/cache"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/config"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/database"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/logger"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	registry *provider.Registry
	guard    *provider.Guard

	gatewayService *gateway.Service
	gatewayHandler *gateway.Handler

	planService *plan.Service
	planHandler *plan.Handler

	checkoutService *checkout.Service
	checkoutHandler *checkout.Handler
	webhookHandler  *checkout.WebhookHandler
	sweeper         *checkout.Sweeper
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("clivus"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&gateway.GatewayConfig{},
		&checkout.Payment{},
		&plan.Plan{},
		&plan.Activation{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// Redis backs the idempotency middleware; the server runs without it.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			zapLog.Warn("redis connection failed, idempotency replay disabled", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	if err := app.seed(context.Background()); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	app.router = app.setupRouter()
	app.sweeper.Start()

	return app, nil
}

// initModules wires the provider registry and the three modules.
func (a *App) initModules() error {
	// Registration order is the selection priority order.
	a.registry = provider.NewRegistry()
	a.registry.Register(provider.NewAsaasAdapter())
	a.registry.Register(provider.NewMercadoPagoAdapter())
	a.registry.Register(provider.NewStripeAdapter())
	a.registry.Register(provider.NewPagBankAdapter())
	a.registry.Register(provider.NewEfiAdapter())

	a.guard = provider.NewGuard(provider.DefaultGuardConfig())

	// Gateway module
	gatewayRepo := gateway.NewRepository(a.db)
	a.gatewayService = gateway.NewService(gatewayRepo, a.registry, a.config.Checkout.ProviderTimeout, a.zapLogger)
	a.gatewayHandler = gateway.NewHandler(a.gatewayService, a.registry)

	// Plan module
	planRepo := plan.NewRepository(a.db)
	a.planService = plan.NewService(planRepo, a.zapLogger)
	a.planHandler = plan.NewHandler(a.planService)

	// Checkout module
	checkoutRepo := checkout.NewRepository(a.db)
	catalog := &planCatalog{service: a.planService}
	machine := checkout.NewStateMachine(checkoutRepo, catalog, a.zapLogger)
	selector := checkout.NewSelector(a.gatewayService, a.registry)

	a.checkoutService = checkout.NewService(
		checkoutRepo,
		selector,
		machine,
		catalog,
		a.guard,
		a.metrics,
		checkout.CheckoutOptions{
			ProviderTimeout: a.config.Checkout.ProviderTimeout,
			PollInterval:    a.config.Checkout.PollInterval,
			PollMaxAttempts: a.config.Checkout.PollMaxAttempts,
		},
		a.zapLogger,
	)
	a.checkoutHandler = checkout.NewHandler(a.checkoutService)
	a.webhookHandler = checkout.NewWebhookHandler(a.registry, a.gatewayService, checkoutRepo, machine, a.metrics, a.zapLogger)
	a.sweeper = checkout.NewSweeper(
		checkoutRepo,
		machine,
		a.metrics,
		a.config.Checkout.ExpiryWindow,
		a.config.Checkout.SweepInterval,
		a.zapLogger,
	)

	return nil
}

// seed creates the per-provider config rows and the default catalog.
func (a *App) seed(ctx context.Context) error {
	if err := a.gatewayService.Seed(ctx); err != nil {
		return err
	}
	return a.planService.Seed(ctx, defaultPlans())
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhooks sit outside the api group: providers call the exact URL
	// the admin configured, with no auth and no idempotency replay.
	a.webhookHandler.RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(middleware.Idempotency(a.redis, middleware.DefaultIdempotencyConfig()))
	{
		a.checkoutHandler.RegisterRoutes(api)
		a.planHandler.RegisterRoutes(api)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(a.config.Auth.JWTSecret))
	{
		a.gatewayHandler.RegisterRoutes(admin)
	}

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop shuts down background work and closes connections.
func (a *App) Stop() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.zapLogger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.zapLogger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.zapLogger.Sync()
}

// planCatalog adapts the plan service to the checkout module's view.
type planCatalog struct {
	service *plan.Service
}

func (p *planCatalog) GetBySlug(ctx context.Context, slug string) (*checkout.PlanInfo, error) {
	pl, err := p.service.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &checkout.PlanInfo{
		Slug:       pl.Slug,
		Name:       pl.Name,
		PriceCents: pl.PriceCents,
		Currency:   pl.Currency,
	}, nil
}

func (p *planCatalog) Activate(ctx context.Context, paymentID uuid.UUID, planSlug, orderRef string) error {
	return p.service.Activate(ctx, paymentID, planSlug, orderRef)
}

func defaultPlans() []*plan.Plan {
	return []*plan.Plan{
		{Slug: "basico", Name: "Básico", Description: "Acesso aos recursos essenciais", PriceCents: 2990, Currency: "BRL", IsActive: true},
		{Slug: "pro", Name: "Pro", Description: "Recursos completos para profissionais", PriceCents: 5990, Currency: "BRL", IsActive: true},
		{Slug: "premium", Name: "Premium", Description: "Tudo do Pro com suporte prioritário", PriceCents: 9990, Currency: "BRL", IsActive: true},
	}
}
