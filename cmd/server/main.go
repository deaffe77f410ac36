// cmd/server/main.go
package main

import (
	"log"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sozercan/disclosure-ui/internal/config"
	"github.com/sozercan/disclosure-ui/internal/disclosure"
	"github.com/sozercan/disclosure-ui/internal/logger"
	"github.com/sozercan/disclosure-ui/internal/server"
	"github.com/sozercan/disclosure-ui/internal/session"
	"github.com/sozercan/disclosure-ui/internal/shell"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg := logger.New(logger.FromConfig(cfg.Log.Level, cfg.Log.Format))
	slog.SetDefault(logg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := disclosure.NewClient(cfg.Backend.URL, cfg.Backend.Timeout,
		disclosure.WithLogger(logg),
		disclosure.WithMetrics(disclosure.NewMetrics(registry)),
	)
	if err != nil {
		log.Fatalf("failed to create disclosure client: %v", err)
	}

	sessions := session.New(cfg.Session.TTL, cfg.Session.CleanupInterval, func() *shell.Shell {
		return shell.New(client, logg)
	}, logg)

	srv, err := server.New(cfg.Server, sessions, client, registry, logg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	logg.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", client.BaseURL(),
	)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
