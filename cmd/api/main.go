package main

import (
	"context"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/artifact"
	"github.com/ecominsights/retail-analytics-api/infrastructure/database/postgres"
	"github.com/ecominsights/retail-analytics-api/infrastructure/repository"
	"github.com/ecominsights/retail-analytics-api/internal/api"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/scheduler"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/dashboarding"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/forecasting"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/training"
	"github.com/sirupsen/logrus"
)

func main() {
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	applyLogLevel(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	transactionRepo := repository.NewTransactionRepository(pgConn, cfg.Ingest.RawTable, cfg.Train.CleanedTable)
	modelStore := artifact.NewStore(cfg.Train.ModelPath)

	forecastService := forecasting.NewService(cfg, modelStore)
	dashboardService := dashboarding.NewService(cfg, transactionRepo)
	trainService := training.NewService(cfg, transactionRepo, modelStore)

	retrainService := scheduler.NewRetrainService(trainService, forecastService, cfg)
	if err := retrainService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Failed to start retrain scheduler")
	}

	server, err := api.New(cfg, forecastService, dashboardService, retrainService)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

func configureLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

func applyLogLevel(cfg *config.Config) {
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid log level %q, falling back to info", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
}

func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}

	if err := conn.Ping(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to ping PostgreSQL")
	}

	logrus.Info("PostgreSQL connection established")
	return conn
}
