package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lp-analyzer/internal/api"
	"lp-analyzer/internal/config"
	"lp-analyzer/internal/db"
	"lp-analyzer/internal/engine"
	"lp-analyzer/internal/esi"
	"lp-analyzer/internal/logger"
	"lp-analyzer/internal/render"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON/TOML config file")
	mode := flag.String("mode", "console", "console: run once and print tables; web: serve the UI")
	port := flag.Int("port", 0, "HTTP server port (web mode, overrides config)")
	corp := flag.Int("corp", 0, "LP store corporation ID (overrides config)")
	flag.Parse()

	// .env is optional; real environment variables still win
	if err := godotenv.Load(); err == nil {
		logger.Info("Config", "Loaded .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	if *corp > 0 {
		cfg.CorporationID = int32(*corp)
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Banner(version)

	var database *db.DB
	if cfg.DBPath != "" {
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
			os.Exit(1)
		}
		defer database.Close()
	}

	esiClient := esi.NewClient(cfg.ESIBaseURL, esi.Timeouts{
		Offers:  cfg.OffersTimeout,
		History: cfg.HistoryTimeout,
		Orders:  cfg.OrdersTimeout,
		Names:   cfg.NamesTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "console":
		err = runConsole(ctx, cfg, esiClient, database)
	case "web":
		err = runWeb(ctx, cfg, esiClient, database)
	default:
		err = fmt.Errorf("unknown mode %q (want console or web)", *mode)
	}
	if err != nil {
		logger.Error("Main", err.Error())
		stop()
		if database != nil {
			database.Close()
		}
		os.Exit(1)
	}
}

func runConsole(ctx context.Context, cfg *config.Config, src engine.MarketSource, database *db.DB) error {
	logger.Section("LP store analysis")
	logger.Stats("Corporation", cfg.CorporationID)
	logger.Stats("Markets", len(cfg.Regions))
	logger.Stats("History window", fmt.Sprintf("%dd", cfg.HistoryWindowDays))
	logger.Stats("Volume window", fmt.Sprintf("%dd", cfg.VolumeWindowDays))

	report, err := engine.NewAnalyzer(src, cfg).Run(ctx)
	if err != nil {
		return err
	}
	if database != nil {
		if err := database.SaveReport(report, cfg); err != nil {
			logger.Warn("DB", fmt.Sprintf("Run %s not saved: %v", report.ID, err))
		}
	}
	return render.Console(os.Stdout, report)
}

func runWeb(ctx context.Context, cfg *config.Config, src engine.MarketSource, database *db.DB) error {
	srv, err := api.NewServer(cfg, src, database)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	logger.Server(addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
