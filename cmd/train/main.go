package main

import (
	"context"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/artifact"
	"github.com/ecominsights/retail-analytics-api/infrastructure/database/postgres"
	"github.com/ecominsights/retail-analytics-api/infrastructure/repository"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/training"
	"github.com/sirupsen/logrus"
)

func main() {
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	if err := cfg.ValidateDatabaseCredentials(); err != nil {
		logrus.WithError(err).Fatal("Incomplete warehouse credentials")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	transactionRepo := repository.NewTransactionRepository(pgConn, cfg.Ingest.RawTable, cfg.Train.CleanedTable)
	modelStore := artifact.NewStore(cfg.Train.ModelPath)

	service := training.NewService(cfg, transactionRepo, modelStore)
	a, err := service.Run(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Training failed")
	}

	logrus.WithFields(logrus.Fields{
		"model_path":     modelStore.Path(),
		"trained_days":   a.Series.Len(),
		"in_sample_mape": a.InSampleMAPE,
	}).Info("Model trained and persisted")
}

func configureLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
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
