package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	globalcampus "github.com/tagryu/GlobalCampus"
	"github.com/tagryu/GlobalCampus/cfg"
	"github.com/tagryu/GlobalCampus/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// convenient in development, harmless in production
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger, *configPath); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string) error {
	config, err := cfg.Load(configPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := globalcampus.New(config,
		globalcampus.WithLogger(logger),
		globalcampus.WithSqliteSessionCache(db),
	)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Start(ctx)

	server, err := web.New(logger, app)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	server.Routes(router)

	srv := &http.Server{
		Addr:              config.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", config.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
