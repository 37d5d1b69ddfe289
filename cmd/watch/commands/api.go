package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-watch/internal/api"
	"github.com/wonny/aegis-watch/internal/api/handlers"
	"github.com/wonny/aegis-watch/internal/scheduler"
	"github.com/wonny/aegis-watch/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버와 프리마켓 warm-up 스케줄러를 시작합니다.

Endpoints:
  GET  /health                 - Health check
  GET  /metrics                - Prometheus metrics (METRICS_ENABLED)
  POST /api/picks/select       - 워치리스트 선정
  GET  /api/picks/latest       - 최근 저장된 선정 결과
  GET  /api/premarket/status   - 프리마켓 캐시 상태

Example:
  go run ./cmd/watch api
  go run ./cmd/watch api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default is PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Watch API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	// Router
	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}
	checks := map[string]func(context.Context) error{
		"redis": a.redis.Ping,
	}
	if a.db != nil {
		checks["database"] = a.db.Ping
	}
	router := api.NewRouter(api.Routes{
		Picks:     handlers.NewPicksHandler(a.orchestrator, a.repo, log),
		Premarket: handlers.NewPremarketHandler(a.premarket),
		Metrics:   metricsHandler,
		Checks:    checks,
	}, log)

	server := api.New(a.cfg, log, router)

	// Scheduler (exchange timezone)
	var sched *scheduler.Scheduler
	if a.cfg.SchedulerEnabled && a.cfg.Premarket.Enabled {
		loc, err := a.cfg.Premarket.Location()
		if err != nil {
			return err
		}
		sched = scheduler.New(loc, log, scheduler.WithRunTimeout(a.cfg.Premarket.Throttle))
		if err := sched.AddJob(jobs.NewPremarketWarmJob(a.premarket, log)); err != nil {
			return fmt.Errorf("add premarket job: %w", err)
		}
		sched.Start()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
