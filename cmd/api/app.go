package main

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"casepay/internal/adapter/repository"
	domainrepo "casepay/internal/domain/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/kafka"
	"casepay/internal/infrastructure/metrics"
	"casepay/internal/usecase"
	"casepay/pkg/config"
	"casepay/pkg/logger"
)

// core is everything that needs only the database: the HTTP server and the
// sweep command both build on it.
type core struct {
	caseRepo    domainrepo.CaseRepository
	paymentRepo domainrepo.PaymentRepository
	eventRepo   domainrepo.WebhookEventRepository

	metrics    *metrics.PaymentMetrics
	publisher  service.CaseEventPublisher
	reconciler *usecase.ReconcilerUseCase
	cases      *usecase.CaseUseCase

	closers []io.Closer
}

func newCore(cfg *config.Config, db *gorm.DB, reg prometheus.Registerer) *core {
	c := &core{
		caseRepo:    repository.NewPostgresCaseRepository(db),
		paymentRepo: repository.NewPostgresPaymentRepository(db),
		eventRepo:   repository.NewPostgresWebhookEventRepository(db),
		metrics:     metrics.NewPaymentMetrics(reg),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewCaseEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		c.publisher = publisher
		c.closers = append(c.closers, publisher)
		logger.Info("case events go to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		c.publisher = service.NoopCaseEventPublisher{}
		logger.Warn("KAFKA_BROKERS not set, case events are dropped")
	}

	c.reconciler = usecase.NewReconcilerUseCase(
		c.caseRepo,
		c.paymentRepo,
		c.publisher,
		c.metrics,
		cfg.Gateway.DefaultFee,
		cfg.Gateway.Currency,
	)
	c.cases = usecase.NewCaseUseCase(c.caseRepo, service.NewDefaultFeeCalculator(), c.publisher, c.metrics)

	return c
}

func (c *core) Close() {
	c.reconciler.Drain()
	c.cases.Drain()
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close", "error", err)
		}
	}
}
