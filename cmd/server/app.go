package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vapi/internal/api/middleware"
	"vapi/internal/config"
	"vapi/internal/realtime"
	"vapi/internal/repository"
	"vapi/internal/repository/dynamo"
	"vapi/internal/repository/memory"
	"vapi/internal/repository/sqlstore"
	"vapi/internal/services"
)

// stores groups the repositories selected by configuration.
type stores struct {
	reports       repository.ReportStore
	sessions      repository.SessionRepository
	confirmations repository.ConfirmationRepository
	subscriptions repository.SubscriptionRegistry

	// purger is set when expired reports must be deleted by this process
	// (the SQL stores). The memory store sweeps itself and DynamoDB uses
	// its TTL attribute.
	purger services.ExpiryPurger

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newLogger builds the process logger from the log section.
//
// Go Learning Note — zap.Config:
// zap.NewProductionConfig() logs JSON at info level with sampling;
// zap.NewDevelopmentConfig() logs human-readable console lines with stack
// traces on warnings. Both return a Config struct you can tweak before
// calling Build(), here to set the level from configuration.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func newAuthenticator(cfg config.AuthConfig) (middleware.Authenticator, error) {
	switch cfg.Mode {
	case config.AuthNone:
		return nil, nil
	case config.AuthDev:
		return middleware.DevAuthenticator{}, nil
	case config.AuthJWT:
		return middleware.NewJWTAuthenticator(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// awsLoader loads the shared AWS configuration at most once, and only when
// some component needs it.
type awsLoader struct {
	region string
	cfg    *aws.Config
}

func (l *awsLoader) load(ctx context.Context) (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(l.region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	l.cfg = &cfg
	return cfg, nil
}

// openStores opens the main store, runs its migrations, and swaps in the
// DynamoDB report store when configured.
func openStores(ctx context.Context, cfg *config.Config, loader *awsLoader) (*stores, error) {
	s := &stores{}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		reports := memory.NewReportStore(cfg.Store.SweepInterval)
		s.reports = reports
		s.sessions = memory.NewSessionRepository()
		s.confirmations = memory.NewConfirmationRepository()
		s.subscriptions = memory.NewSubscriptionRegistry()
		s.closers = append(s.closers, reports.Stop)

	case config.DriverSQLite, config.DriverPostgres:
		db, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.Store.Driver), cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		if err := db.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		reports := sqlstore.NewReportStore(db)
		s.reports = reports
		s.purger = reports
		s.sessions = sqlstore.NewSessionRepository(db)
		s.confirmations = sqlstore.NewConfirmationRepository(db)
		s.subscriptions = sqlstore.NewSubscriptionRegistry(db)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Reports.Backend == config.BackendDynamo {
		awsCfg, err := loader.load(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.reports = dynamo.NewReportStore(dynamodb.NewFromConfig(awsCfg), cfg.Reports.DynamoTable)
		s.purger = nil
	}
	return s, nil
}

// newNotifier fans report updates out to the local hub, the debug log and,
// when an endpoint is configured, AWS IoT.
func newNotifier(ctx context.Context, cfg *config.Config, hub *realtime.Hub, loader *awsLoader, logger *zap.Logger) (services.Notifier, error) {
	notifiers := services.MultiNotifier{hub, services.NewLogNotifier(logger)}
	if strings.TrimSpace(cfg.Realtime.IoTEndpoint) == "" {
		return notifiers, nil
	}

	awsCfg, err := loader.load(ctx)
	if err != nil {
		return nil, err
	}
	client := realtime.NewIoTClient(awsCfg, cfg.Realtime.IoTEndpoint)
	return append(notifiers, realtime.NewIoTPublisher(client, cfg.Realtime.IoTTopicPrefix)), nil
}
