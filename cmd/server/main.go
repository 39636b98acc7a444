package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/roomchat/internal/api"
	"github.com/npezzotti/roomchat/internal/chat"
	"github.com/npezzotti/roomchat/internal/config"
	"github.com/npezzotti/roomchat/internal/database"
	"github.com/npezzotti/roomchat/internal/server"
	"github.com/npezzotti/roomchat/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	mongoURI       string
	mongoDatabase  string
	migrate        bool
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&mongoURI, "mongo-uri", "", "store messages in MongoDB at this uri instead of Postgres")
	flag.StringVar(&mongoDatabase, "mongo-db", "roomchat", "MongoDB database name")
	flag.BoolVar(&migrate, "migrate", true, "apply database migrations on startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[roomchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	if err := cfg.WithMongo(mongoURI, mongoDatabase); err != nil {
		logger.Fatal("config:", err)
	}
	cfg.Migrate = migrate

	if cfg.Migrate {
		if err := database.RunMigrations(cfg.DatabaseDSN); err != nil {
			logger.Fatal("migrations:", err)
		}
		logger.Println("database migrations applied")
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	var ledger database.Ledger
	if cfg.MongoURI != "" {
		mongoLedger, err := database.NewMongoLedger(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatal("mongo open:", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoLedger.Close(ctx); err != nil {
				logger.Println("mongo close:", err)
			}
		}()

		ledger = mongoLedger
		logger.Printf("storing messages in mongo database %q", cfg.MongoDatabase)
	}

	svc := chat.NewService(logger, dbConn, ledger)

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer := server.NewChatServer(logger, svc, statsUpdater)

	srv, err := api.NewChatApp(mux, logger, chatServer, svc, dbConn, cfg)
	if err != nil {
		logger.Fatal("new chat app:", err)
	}

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Println("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
