package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/config"
	"github.com/VytasKer/Fintegrate/internal/http/middleware"
	"github.com/VytasKer/Fintegrate/internal/metrics"
	"github.com/VytasKer/Fintegrate/internal/repository"
	"github.com/VytasKer/Fintegrate/internal/sanctions"
	"github.com/VytasKer/Fintegrate/internal/service/customer"
	"github.com/VytasKer/Fintegrate/internal/service/outbox"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	tenantsRepo := repository.NewTenantsRepository(mysqlDB)
	customersRepo := repository.NewCustomersRepository(mysqlDB)
	tagsRepo := repository.NewTagsRepository(mysqlDB)
	eventsRepo := repository.NewEventsRepository(mysqlDB)
	receiptsRepo := repository.NewReceiptsRepository(mysqlDB)

	// repos (ClickHouse)
	snapshotsRepo := repository.NewSnapshotsRepository(clickhouseDB)

	// broker publisher behind a breaker
	pub := broker.NewPublisher(broker.Options{
		URL:            cfg.RabbitMQ.URL,
		Exchange:       cfg.RabbitMQ.Exchange,
		QueuePrefix:    cfg.RabbitMQ.QueuePrefix,
		DialTimeout:    cfg.RabbitMQ.DialTimeout,
		Heartbeat:      cfg.RabbitMQ.Heartbeat,
		QueueTTL:       cfg.RabbitMQ.QueueTTL,
		QueueMaxLength: cfg.RabbitMQ.QueueMaxLength,
	}, broker.NewMicroBreaker(cfg.RabbitMQ.Breaker.FailThreshold, cfg.RabbitMQ.Breaker.OpenFor), zap.L())

	// services
	outboxSvc := outbox.New(mysqlDB, eventsRepo, receiptsRepo, pub, zap.L())

	var checker sanctions.Checker = sanctions.Noop{}
	if cfg.Sanctions.BaseURL != "" {
		checker = sanctions.NewHTTPChecker(cfg.Sanctions.BaseURL, cfg.Sanctions.Timeout)
	}
	customerSvc := customer.New(mysqlDB, customersRepo, tagsRepo, outboxSvc, checker, zap.L())

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(tenantsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/customers", createCustomerHandler(customerSvc))
	v1.GET("/customers/:id", getCustomerHandler(customerSvc))
	v1.DELETE("/customers/:id", deleteCustomerHandler(customerSvc))
	v1.PATCH("/customers/:id/status", changeCustomerStatusHandler(customerSvc))
	v1.PUT("/customers/:id/tags/:key", setTagHandler(customerSvc))
	v1.GET("/customers/:id/tags", listTagsHandler(customerSvc))
	v1.DELETE("/customers/:id/tags/:key", deleteTagHandler(customerSvc))
	v1.GET("/reports/customers", listSnapshotsHandler(snapshotsRepo))
	v1.POST("/events/confirm-delivery", confirmDeliveryHandler(outboxSvc))

	// operational endpoints: sweeps and outbox health
	admin := e.Group("/v1/admin", authMW)
	admin.POST("/events/resend", resendEventsHandler(outboxSvc))
	admin.POST("/events/redeliver", redeliverEventsHandler(outboxSvc))
	admin.GET("/events/health", eventsHealthHandler(outboxSvc))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
