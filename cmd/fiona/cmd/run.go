package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fiona-trading/fiona/broker"
	"github.com/fiona-trading/fiona/broker/ig"
	"github.com/fiona-trading/fiona/config"
	"github.com/fiona-trading/fiona/execution"
	"github.com/fiona-trading/fiona/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the execution service",
	Long: `Start the execution service: connect to the broker (when enabled),
open the journal, serve Prometheus metrics and poll open shadow trades for
SL/TP exits until interrupted.

IG credentials are read from the environment (IG_API_KEY, IG_IDENTIFIER,
IG_PASSWORD, IG_ENV); a .env file in the working directory is loaded first.

Example:
  fiona run --config fiona.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Best effort: credentials may come from the real environment instead.
	_ = godotenv.Load()

	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b broker.Broker
	if cfg.Broker.Enabled {
		igCfg, err := ig.FromEnv()
		if err != nil {
			return fmt.Errorf("broker credentials: %w", err)
		}
		igCfg.Demo = cfg.Broker.Demo

		client := ig.NewClient(igCfg)
		loginCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = client.Login(loginCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("broker login: %w", err)
		}
		b = client
		log.Info("broker connected", zap.Bool("demo", igCfg.Demo))
	} else {
		log.Info("running shadow-only, no broker configured")
	}

	shadow := execution.NewShadowTrader(b, j, cfg.Execution, log)
	svc := execution.NewService(b, shadow, j, cfg.Execution, log)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(svc.ActiveSessions())
		})
		mux.HandleFunc("/trades/open", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(shadow.OpenTrades())
		})
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Listen))
	}

	if cfg.Execution.EnableExitPolling && b != nil {
		interval := time.Duration(cfg.Execution.ExitPollingIntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info("shadow exit polling started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				log.Info("shutting down")
				return nil
			case <-ticker.C:
				if n := shadow.Poll(ctx); n > 0 {
					log.Info("shadow trades closed by poll", zap.Int("count", n))
				}
			}
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.ShadowsFile)
	default:
		return journal.NewSQLite(cfg.DBPath)
	}
}
