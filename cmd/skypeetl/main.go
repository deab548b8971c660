// Command skypeetl runs one extract-transform-load pass over a Skype chat
// export, landing the result in a PostgreSQL-compatible database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
	"github.com/dependable-call-exchange/skypeetl/handlers"
	"github.com/dependable-call-exchange/skypeetl/internal/config"
	"github.com/dependable-call-exchange/skypeetl/observer"
	"github.com/dependable-call-exchange/skypeetl/pipeline"
	"github.com/dependable-call-exchange/skypeetl/store/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file (optional; defaults + env vars apply regardless)")
		sourcePath = flag.String("source", "", "path to the export archive (.tar) or messages JSON file")
		taskID     = flag.String("task-id", "", "resume an existing task by id; a new one is generated if empty")
		resume     = flag.Bool("resume", false, "resume from the last checkpoint for -task-id")
		strategy   = flag.String("strategy", "bulk", "insert strategy: bulk or individual")
		withOTEL   = flag.Bool("otel", false, "export traces and metrics via OTEL_EXPORTER_OTLP_ENDPOINT")
		userName   = flag.String("user-display-name", "", "display name for the exporting user when the source document doesn't carry one (default \"Me\")")
	)
	flag.Parse()

	if *sourcePath == "" {
		log.Fatal("skypeetl: -source is required")
	}

	fileCfg := config.Load(*configPath)
	if *userName != "" {
		fileCfg.ETL.UserDisplayName = *userName
	}
	if err := fileCfg.Validate(); err != nil {
		log.Fatalf("skypeetl: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var shutdownObserver func(context.Context) error
	var instruments *observer.Instruments
	var tracer skypeetl.Tracer = skypeetl.NoopTracer{}
	if *withOTEL {
		var err error
		instruments, shutdownObserver, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("skypeetl: observer init: %v", err)
		}
		defer shutdownObserver(ctx)
		tracer = observer.NewTracer()
	}

	runCfg := fileCfg.RunConfig()
	runCtx := newRunContext(runCfg, *taskID)
	runCtx.Tracer = tracer
	runCtx.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

	pool, err := postgres.Open(ctx, postgres.PoolConfig{
		DSN:               fileCfg.Database.DSN(),
		ConnectionTimeout: runCfg.Database.ConnectionTimeout,
	})
	if err != nil {
		log.Fatalf("skypeetl: open database: %v", err)
	}
	defer pool.CloseAll()

	insertStrategy := newInsertStrategy(*strategy, runCfg.BatchSize)
	loader := postgres.NewLoader(runCtx, pool, insertStrategy)

	orch := pipeline.New(runCtx, *sourcePath, loader, handlers.NewFactory())
	if instruments != nil {
		orch = orch.WithInstruments(instruments)
	}

	summary, err := orch.Run(ctx, *resume)
	if err != nil {
		runCtx.Logger.Error("run failed", "task_id", runCtx.TaskID, "error", err)
		if writeErr := writeSummary(runCfg.OutputDir, runCtx.TaskID, summary); writeErr != nil {
			runCtx.Logger.Error("write summary failed", "error", writeErr)
		}
		os.Exit(1)
	}

	if err := writeSummary(runCfg.OutputDir, runCtx.TaskID, summary); err != nil {
		log.Fatalf("skypeetl: write summary: %v", err)
	}
	fmt.Printf("task %s: %s (%d conversations, %d messages)\n",
		summary.TaskID, summary.Status, summary.ConversationCount, summary.MessageCount)
}

func newRunContext(cfg skypeetl.Config, taskID string) *skypeetl.Context {
	if taskID == "" {
		return skypeetl.NewContext(cfg)
	}
	return skypeetl.NewContextWithTaskID(cfg, taskID)
}

func newInsertStrategy(name string, batchSize int) postgres.InsertStrategy {
	switch name {
	case "individual":
		return postgres.NewIndividualStrategy(3, 100*time.Millisecond)
	default:
		return postgres.NewBulkStrategy(batchSize)
	}
}

func writeSummary(outputDir, taskID string, summary *pipeline.Summary) error {
	if summary == nil {
		return nil
	}
	path := fmt.Sprintf("%s/etl_summary_%s.json", outputDir, taskID)
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
