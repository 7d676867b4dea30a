package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"health-data-pipeline/internal/api"
	"health-data-pipeline/internal/export"
	"health-data-pipeline/internal/fetch"
	"health-data-pipeline/internal/logging"
	"health-data-pipeline/internal/pipeline"
	"health-data-pipeline/internal/policy"
	"health-data-pipeline/internal/store"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		configPath  = flag.String("config", "pipeline.yaml", "pipeline policy configuration file")
		sourcesPath = flag.String("sources", "sources.yaml", "per-country source registry file")
		outputDir   = flag.String("output", "output", "export directory")
		dbPath      = flag.String("db", "pipeline.db", "sqlite path for run tracking")
		logLevel    = flag.String("log-level", "info", "log level")
		logFormat   = flag.String("log-format", "text", "log format (text|json)")
	)
	flag.Parse()

	logging.Setup(*logLevel, *logFormat)

	if err := store.InitDB(*dbPath); err != nil {
		slog.Error("init run store", "error", err)
		os.Exit(1)
	}
	pol, err := policy.Load(*configPath)
	if err != nil {
		slog.Error("load policy", "error", err)
		os.Exit(1)
	}
	sources, err := fetch.LoadSources(*sourcesPath)
	if err != nil {
		slog.Error("load sources", "error", err)
		os.Exit(1)
	}

	deps := pipeline.Deps{
		Policy:   pol,
		Fetcher:  fetch.New(sources),
		Exporter: export.NewFileExporter(*outputDir, "csv"),
	}

	slog.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, api.NewRouter(deps)); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
