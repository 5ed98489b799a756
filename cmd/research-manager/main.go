// cmd/research-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/collector"
	awsclients "research-orchestrator/internal/common/aws"
	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/database"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/common/observability"
	"research-orchestrator/internal/evidence"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/notify"
	"research-orchestrator/internal/orchestrator"
	"research-orchestrator/internal/resilience"
	"research-orchestrator/internal/store"
	"research-orchestrator/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting research manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("research-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var db *sql.DB
	err = retryWithBackoff(func() error {
		var err error
		db, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return db.PingContext(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer db.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Source adapters and collection pipeline ---
	health := resilience.NewHealthMonitor()
	cache := evidence.NewCache(redis.GetClient(), time.Duration(cfg.Research.CacheTTL)*time.Second, log)
	coll := collector.New(health, cache, log)

	registerSources(cfg, coll, esClient, log, zapLog)

	synth := adapters.NewHTTPSynthesizer(adapters.SynthesizerConfig{
		BaseURL:     cfg.APIs.Synthesizer.BaseURL,
		APIKey:      cfg.APIs.Synthesizer.APIKey,
		Model:       cfg.APIs.Synthesizer.Model,
		Timeout:     time.Duration(cfg.APIs.Synthesizer.Timeout) * time.Millisecond,
		MaxTokens:   500,
		Temperature: 0.7,
	}, log)

	machine := orchestrator.NewMachine(cfg, coll, synth, obs, log)
	runStore := store.NewRunStore(db, log)

	// --- Notifications (optional, AWS clients only when a channel is on) ---
	var notifier *notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.Alert.Enabled {
		sesClient, sesErr := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		snsClient, snsErr := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if sesErr != nil || snsErr != nil {
			zapLog.Warn("notification clients unavailable, notifications disabled",
				zap.NamedError("ses", sesErr), zap.NamedError("sns", snsErr))
		} else {
			notifier = notify.New(cfg.Notifications, sesClient, snsClient, log)
		}
	}

	rootCtx, stopRuns := context.WithCancel(ctx)
	defer stopRuns()

	// --- HTTP API, Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	catalog := registry.DefaultCatalog()
	if path := os.Getenv("SOURCE_CATALOG_PATH"); path != "" {
		loaded, catErr := registry.LoadCatalog(path)
		if catErr != nil {
			zapLog.Warn("source catalog load failed, using built-in", zap.String("path", path), zap.Error(catErr))
		} else {
			catalog = loaded
		}
	}
	mux.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(catalog)
	})
	mux.HandleFunc("/sources/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			if source := r.URL.Query().Get("source"); source != "" {
				health.Reset(source)
			} else {
				health.ResetAll()
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health.Snapshot())
	})
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		handleRuns(w, r, rootCtx, machine, runStore, notifier, log)
	})
	mux.HandleFunc("/runs/recent", func(w http.ResponseWriter, r *http.Request) {
		handleRecentRuns(w, r, runStore)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := cfg.Metrics.Address
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		zapLog.Info("API/Metrics server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("API/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stopRuns()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down server", zap.Error(err))
	}

	zapLog.Info("Research manager stopped gracefully")
}

// registerSources wires every enabled source adapter into the collector.
func registerSources(cfg *config.Config, coll *collector.Collector, esClient *database.ElasticsearchClient, log logger.Logger, zapLog *zap.Logger) {
	registered := 0

	register := func(kind models.SourceKind, adapter adapters.SourceAdapter) {
		srcCfg, ok := cfg.Sources[string(kind)]
		if !ok || !srcCfg.Enabled {
			zapLog.Info("source disabled", zap.String("source", string(kind)))
			return
		}
		coll.Register(adapter, srcCfg)
		registered++
		zapLog.Info("source registered",
			zap.String("source", string(kind)),
			zap.Int("timeout_ms", srcCfg.Timeout),
			zap.Strings("fallbacks", srcCfg.Fallbacks),
		)
	}

	register(models.SourceWebSearch, adapters.NewWebSearchAdapter(adapters.WebSearchConfig{
		BaseURL:    cfg.APIs.WebSearch.BaseURL,
		APIKey:     cfg.APIs.WebSearch.APIKey,
		EngineID:   cfg.APIs.WebSearch.EngineID,
		Timeout:    time.Duration(cfg.APIs.WebSearch.Timeout) * time.Millisecond,
		MaxResults: 10,
	}, log))

	register(models.SourceInternalData, adapters.NewInternalDataAdapter(adapters.InternalDataConfig{
		Index:      cfg.Database.Elasticsearch.Index,
		MaxResults: 10,
	}, esClient.Client, log))

	register(models.SourceTechStack, adapters.NewTechStackAdapter(adapters.RESTAdapterConfig{
		BaseURL: cfg.APIs.TechScan.BaseURL,
		APIKey:  cfg.APIs.TechScan.APIKey,
		Timeout: time.Duration(cfg.APIs.TechScan.Timeout) * time.Millisecond,
	}, log))

	register(models.SourceSecurityScan, adapters.NewSecurityScanAdapter(adapters.RESTAdapterConfig{
		BaseURL: cfg.APIs.SecurityScan.BaseURL,
		APIKey:  cfg.APIs.SecurityScan.APIKey,
		Timeout: time.Duration(cfg.APIs.SecurityScan.Timeout) * time.Millisecond,
	}, log))

	register(models.SourceReviews, adapters.NewReviewsAdapter(adapters.RESTAdapterConfig{
		BaseURL: cfg.APIs.Reviews.BaseURL,
		APIKey:  cfg.APIs.Reviews.APIKey,
		Timeout: time.Duration(cfg.APIs.Reviews.Timeout) * time.Millisecond,
	}, log))

	register(models.SourceFinancial, adapters.NewFinancialAdapter(adapters.RESTAdapterConfig{
		BaseURL: cfg.APIs.Financial.BaseURL,
		APIKey:  cfg.APIs.Financial.APIKey,
		Timeout: time.Duration(cfg.APIs.Financial.Timeout) * time.Millisecond,
	}, log))

	zapLog.Info("source registration complete", zap.Int("registered", registered))
}

func handleRuns(w http.ResponseWriter, r *http.Request, rootCtx context.Context, machine *orchestrator.Machine, runStore *store.RunStore, notifier *notify.Notifier, log logger.Logger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// The run survives client disconnects but honors process shutdown.
	result, err := machine.Run(rootCtx, req)
	if err != nil {
		log.Error("research run rejected", map[string]interface{}{
			"target": req.Target,
			"error":  err.Error(),
		})
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := runStore.SaveRun(rootCtx, result.State, result.Accepted, result.Gaps, result.Summary, result.Forced); err != nil {
		log.Error("run persistence failed", map[string]interface{}{
			"runId": result.State.RunID,
			"error": err.Error(),
		})
	}

	if notifier != nil {
		notifier.RunFinalized(rootCtx, result)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func handleRecentRuns(w http.ResponseWriter, r *http.Request, runStore *store.RunStore) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	runs, err := runStore.RecentRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}
