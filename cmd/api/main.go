package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/cfrm-service/internal/api/http"
	"github.com/spec-kit/cfrm-service/internal/api/http/handlers"
	"github.com/spec-kit/cfrm-service/internal/auth"
	"github.com/spec-kit/cfrm-service/internal/config"
	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/importer"
	"github.com/spec-kit/cfrm-service/internal/observability"
	"github.com/spec-kit/cfrm-service/internal/persistence"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/service"
	"github.com/spec-kit/cfrm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	priorityRepo := repository.NewPriorityRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	logRepo := repository.NewTicketLogRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	webhookRepo := repository.NewWebhookEventRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	registry := buildProviderRegistry(cfg, logger)
	dispatcher := dispatch.NewDispatcher(registry, messageRepo, webhookRepo, channelRepo,
		redis, logger, metrics, cfg.Dispatch.ProviderTimeout())

	eventBus := events.NewInMemoryDispatcher(logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CategoryRepo: categoryRepo,
		PriorityRepo: priorityRepo,
		StatusRepo:   statusRepo,
		ChannelRepo:  channelRepo,
		LogRepo:      logRepo,
		ResponseRepo: responseRepo,
		FeedbackRepo: feedbackRepo,
		UserRepo:     userRepo,
		Dispatcher:   eventBus,
	})
	dispatcher.SetIntake(ticketService)

	templateService := service.NewTemplateService(templateRepo, channelRepo)
	statsService := service.NewStatsService(statsRepo, feedbackRepo)
	authService := service.NewAuthService(*cfg, userRepo)

	notifyPool := worker.NewNotificationWorker(func(ctx context.Context, out dispatch.OutboundMessage) error {
		_, err := dispatcher.SendMessage(ctx, out)
		return err
	}, logger, cfg.Dispatch.QueueSize, cfg.Dispatch.Workers)
	notifyPool.Start()
	defer notifyPool.Stop()

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo:   ticketRepo,
		ResponseRepo: responseRepo,
		ChannelRepo:  channelRepo,
		CategoryRepo: categoryRepo,
		PriorityRepo: priorityRepo,
		Templates:    templateService,
		Dispatcher:   eventBus,
		Pool:         notifyPool,
		Logger:       logger,
	})
	notificationService.RegisterHandlers()

	csvImporter := importer.NewCSVImporter(ticketService, categoryRepo, priorityRepo, channelRepo, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, providerNames(registry)),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Reference:      handlers.NewReferenceHandler(categoryRepo, priorityRepo, statusRepo),
		Channels:       handlers.NewChannelsHandler(channelRepo, dispatcher, statsService),
		Messages:       handlers.NewMessagesHandler(messageRepo, dispatcher),
		Webhooks:       handlers.NewWebhooksHandler(dispatcher, cfg.WhatsApp.VerifyToken),
		Templates:      handlers.NewTemplatesHandler(templateService),
		Import:         handlers.NewImportHandler(csvImporter),
		Stats:          handlers.NewStatsHandler(statsService, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildProviderRegistry wires only the providers whose credentials are
// present. An unconfigured channel type fails fast at send time with an
// unsupported-channel error instead of a provider 401 later.
func buildProviderRegistry(cfg *config.Config, logger *zap.Logger) *dispatch.Registry {
	var providers []dispatch.Provider

	if cfg.Twilio.AccountSID != "" {
		sms, err := dispatch.NewSMSProvider(cfg.Twilio, nil)
		if err != nil {
			logger.Fatal("invalid twilio configuration", zap.Error(err))
		}
		providers = append(providers, sms)
		logger.Info("sms provider registered")
	}
	if cfg.WhatsApp.AccessToken != "" {
		wa, err := dispatch.NewWhatsAppProvider(cfg.WhatsApp, nil)
		if err != nil {
			logger.Fatal("invalid whatsapp configuration", zap.Error(err))
		}
		providers = append(providers, wa)
		logger.Info("whatsapp provider registered")
	}
	if cfg.Email.APIKey != "" {
		email, err := dispatch.NewEmailProvider(cfg.Email)
		if err != nil {
			logger.Fatal("invalid email configuration", zap.Error(err))
		}
		providers = append(providers, email)
		logger.Info("email provider registered")
	}

	return dispatch.NewRegistry(providers...)
}

func providerNames(registry *dispatch.Registry) []string {
	types := registry.Types()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
