package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/credentials"

	cartadapters "go-commerce/internal/carts/adapters"
	cartapp "go-commerce/internal/carts/application"
	carthttp "go-commerce/internal/carts/infrastructure"
	catalogadapters "go-commerce/internal/catalog/adapters"
	catalogapp "go-commerce/internal/catalog/application"
	cataloghttp "go-commerce/internal/catalog/infrastructure"
	"go-commerce/internal/orders/adapters"
	"go-commerce/internal/orders/application"
	"go-commerce/internal/orders/infrastructure"
	"go-commerce/internal/orders/ports"
	"go-commerce/pkg/config"
	"go-commerce/pkg/db"
	"go-commerce/pkg/events"
	grpcpkg "go-commerce/pkg/grpc"
	"go-commerce/pkg/kafka"
	"go-commerce/pkg/logger"
	"go-commerce/pkg/metrics"
	"go-commerce/pkg/middleware"
	"go-commerce/pkg/rabbitmq"
	pkgtls "go-commerce/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewWithFormat(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting commerce service")

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
		Debug:    cfg.DBDebug,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	productRepo := catalogadapters.NewPostgresProductRepository(dbConn)
	cartRepo := cartadapters.NewPostgresCartRepository(dbConn)
	orderRepo := adapters.NewPostgresOrderRepository(dbConn)
	migrate(log, productRepo, cartRepo, orderRepo)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverMetrics := metrics.NewServerMetrics(registry, cfg.ServiceName)
	domainMetrics := metrics.NewDomainMetrics(registry)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Events
	var publisher ports.EventPublisher
	var rabbitConn *rabbitmq.Connection
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		rabbitConn, err = rabbitmq.NewConnection(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
			rabbitConn = nil
			break
		}
		defer rabbitConn.Close()

		pub, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangeOrders, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
			break
		}
		publisher = adapters.NewBrokerEventPublisher(pub)
	case config.BrokerKafka:
		pub, err := kafka.NewPublisher(kafka.NewClient(cfg.KafkaBrokers), cfg.KafkaTopic, log)
		if err != nil {
			log.Warn("failed to create Kafka publisher, events will be disabled: " + err.Error())
			break
		}
		defer pub.Close()
		publisher = adapters.NewBrokerEventPublisher(pub)
	case config.BrokerNone:
		log.Info("events disabled")
	default:
		log.Warn("unknown events broker, events will be disabled: " + cfg.EventsBroker)
	}

	// Initialize use cases
	tx := db.NewTransactor(dbConn)
	policy := cfg.PricingPolicy()

	productUseCase := catalogapp.NewProductUseCase(productRepo, log)
	cartUseCase := cartapp.NewCartUseCase(cartRepo, productRepo, tx, domainMetrics, cartapp.Settings{
		DeliveryPolicy:  policy,
		MaxItemQuantity: cfg.MaxCartItemQuantity,
	}, log)
	orderUseCase := application.NewOrderUseCase(orderRepo, cartRepo, productRepo, tx, publisher, domainMetrics, policy, log)
	paymentUseCase := application.NewPaymentUseCase(orderRepo, tx, publisher, domainMetrics, log)

	// Payment callbacks relayed through RabbitMQ
	if rabbitConn != nil {
		consumer, err := adapters.NewPaymentCallbackConsumer(rabbitConn, paymentUseCase, log)
		if err != nil {
			log.Warn("failed to create payment callback consumer: " + err.Error())
		} else if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start consumer: " + err.Error())
		}
	}

	// HTTP router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics(serverMetrics))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	api := router.Group("/api/v1")
	cataloghttp.NewHTTPHandler(productUseCase).RegisterRoutes(api)
	carthttp.NewHTTPHandler(cartUseCase).RegisterRoutes(api)
	infrastructure.NewHTTPHandler(orderUseCase, paymentUseCase).RegisterRoutes(api)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.HandlerFor(registry)))

	var httpServer *http.Server
	if cfg.TLSEnabled {
		httpServer = startHTTPSServer(cfg, log, router)
	} else {
		httpServer = startHTTPServer(cfg, log, router)
	}

	// Start gRPC server
	grpcServer := setupGRPCServer(cfg, log)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC: " + err.Error())
	}

	go func() {
		log.Info("gRPC server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error: " + err.Error())
		}
	}()

	waitForShutdown(ctx, log, httpServer, grpcServer)
}

type migrator interface {
	Migrate() error
}

func migrate(log *logger.Logger, repos ...migrator) {
	for _, repo := range repos {
		if err := repo.Migrate(); err != nil {
			log.Fatal("failed to migrate database: " + err.Error())
		}
	}
	log.Info("database migrated")
}

func startHTTPServer(cfg *config.Config, log *logger.Logger, router *gin.Engine) *http.Server {
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTP server listening on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	return server
}

func startHTTPSServer(cfg *config.Config, log *logger.Logger, router *gin.Engine) *http.Server {
	tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, "", false)
	if err != nil {
		log.Fatal("failed to load TLS config: " + err.Error())
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      router,
		TLSConfig:    tlsConfig,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTPS server listening on :" + cfg.HTTPSPort)
		if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTPS server error: " + err.Error())
		}
	}()

	return server
}

func setupGRPCServer(cfg *config.Config, log *logger.Logger) *grpcpkg.Server {
	var creds credentials.TransportCredentials

	// Configure mTLS if enabled
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := pkgtls.ServerConfig(
			cfg.TLSCertFile,
			cfg.TLSKeyFile,
			cfg.TLSCAFile,
			true, // require client cert
		)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		creds = credentials.NewTLS(tlsConfig)
		log.Info("gRPC mTLS enabled")
	}

	server := grpcpkg.NewServer(log, cfg.GRPCTimeout, creds)
	server.SetServing("", true)
	server.SetServing(cfg.ServiceName, true)
	return server
}

func waitForShutdown(ctx context.Context, log *logger.Logger, httpServer *http.Server, grpcServer *grpcpkg.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	grpcServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("servers stopped")
}
