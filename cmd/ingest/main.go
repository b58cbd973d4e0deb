package main

import (
	"context"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/database/postgres"
	"github.com/ecominsights/retail-analytics-api/infrastructure/repository"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/ingesting"
	"github.com/sirupsen/logrus"
)

func main() {
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	transactionRepo := repository.NewTransactionRepository(pgConn, cfg.Ingest.RawTable, cfg.Train.CleanedTable)

	service := ingesting.NewService(cfg, transactionRepo)
	if err := service.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("Ingest failed")
	}
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
