package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"wastebill/server/internal/api"
	"wastebill/server/internal/config"
	"wastebill/server/internal/database"
	"wastebill/server/internal/logger"
	"wastebill/server/internal/models"
	"wastebill/server/internal/services"
	"wastebill/server/internal/utils"
)

func main() {
	// .env is optional; production environments inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.Environment)

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer database.ClosePostgres(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Msg("database migrations completed")

	// Redis and Kafka are optional: the engine degrades to no caching
	// and no event stream when they are absent.
	var redisUtil *utils.RedisClient
	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
		defer database.CloseRedis(redisClient)
	}

	var events *services.BillingEventPublisher
	if brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		dialer := api.CreateKafkaDialer(cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		events = services.NewBillingEventPublisher(brokers, cfg.KafkaTopic, dialer)
		defer events.Close()
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("billing event stream enabled")
	} else {
		log.Info().Msg("KAFKA_BROKERS not set, billing events disabled")
	}

	sequences := services.NewSequenceService(cfg.InvoicePrefix, cfg.LotPrefix)
	linkage := services.NewLinkageService(db)
	tax := services.NewTaxCalculator(cfg.DefaultCGSTRate, cfg.DefaultSGSTRate)
	invoiceService := services.NewInvoiceService(db, sequences, linkage, tax, events, redisUtil)
	allocationService := services.NewAllocationService(db, redisUtil)
	movementService := services.NewMovementService(db, sequences)
	companyService := services.NewCompanyService(db)
	transporterService := services.NewTransporterService(db)
	exportService := services.NewExportService(invoiceService)

	invoiceController := api.NewInvoiceController(invoiceService, allocationService, exportService)
	movementController := api.NewMovementController(movementService, allocationService)
	registryController := api.NewRegistryController(companyService, transporterService)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(api.AuthRequired(cfg.JWTSecret))
	{
		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoiceController.CreateInvoice)
			invoices.GET("", invoiceController.ListInvoices)
			invoices.GET("/open", invoiceController.ListOpenInvoices)
			invoices.GET("/export", invoiceController.ExportRegister)
			invoices.GET("/:id", invoiceController.GetInvoice)
			invoices.PUT("/:id", invoiceController.UpdateInvoice)
			invoices.DELETE("/:id", api.RequireRole("accountant"), invoiceController.DeleteInvoice)
			invoices.POST("/:id/payment", invoiceController.RecordPayment)
			invoices.GET("/:id/allocations", invoiceController.GetAllocations)
		}

		movements := v1.Group("/movements")
		{
			movements.POST("", movementController.CreateMovement)
			movements.GET("", movementController.ListMovements)
			movements.GET("/:id", movementController.GetMovement)
			movements.DELETE("/:id", api.RequireRole("accountant"), movementController.DeleteMovement)
			movements.GET("/:id/allocation", movementController.GetAllocation)
		}

		companies := v1.Group("/companies")
		{
			companies.POST("", registryController.CreateCompany)
			companies.GET("", registryController.ListCompanies)
			companies.GET("/:id", registryController.GetCompany)
			companies.PUT("/:id", registryController.UpdateCompany)
			companies.DELETE("/:id", registryController.ArchiveCompany)
		}

		transporters := v1.Group("/transporters")
		{
			transporters.POST("", registryController.CreateTransporter)
			transporters.GET("", registryController.ListTransporters)
			transporters.GET("/:id", registryController.GetTransporter)
			transporters.PUT("/:id", registryController.UpdateTransporter)
			transporters.DELETE("/:id", registryController.ArchiveTransporter)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
