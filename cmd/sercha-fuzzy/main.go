package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	configfile "github.com/custodia-labs/sercha-fuzzy/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-fuzzy/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-fuzzy/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-fuzzy/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-fuzzy/internal/core/services"
	"github.com/custodia-labs/sercha-fuzzy/internal/worker"
)

var version = "dev"

// infra holds the driven adapters selected from the environment
type infra struct {
	content   driven.ContentRepository
	cache     driven.IndexCache
	logs      driven.SearchLogStore
	lock      driven.DistributedLock
	redis     *redis.Client
	closeFunc []func()
}

func (i *infra) close() {
	for j := len(i.closeFunc) - 1; j >= 0; j-- {
		i.closeFunc[j]()
	}
}

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "worker")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("sercha-fuzzy %s starting in %s mode", version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	cfg, err := loadSearchConfig()
	if err != nil {
		log.Fatalf("Invalid search configuration: %v", err)
	}

	if mode == "config" {
		out, err := configfile.Marshal(cfg)
		if err != nil {
			log.Fatalf("Failed to render configuration: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	adapters := connect(ctx)
	defer adapters.close()

	logger := slog.Default()

	indexService := services.NewIndexService(services.IndexServiceConfig{
		Content: adapters.content,
		Cache:   adapters.cache,
		Config:  cfg,
		Logger:  logger,
	})
	analyticsService := services.NewAnalyticsService(adapters.logs, logger)

	var archiver *services.ArchiveScheduler
	if mode == "worker" && getEnvBool("ARCHIVE_ENABLED", true) {
		archiver = services.NewArchiveScheduler(services.ArchiveSchedulerConfig{
			Analytics:      analyticsService,
			Lock:           adapters.lock,
			Logger:         logger,
			RetentionDays:  cfg.LogRetentionDays,
			Interval:       time.Duration(getEnvInt("ARCHIVE_INTERVAL_HOURS", 24)) * time.Hour,
			RunWithoutLock: getEnvBool("ARCHIVE_RUN_WITHOUT_LOCK", false),
		})
	}

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Analytics:   analyticsService,
		Scheduler:   archiver,
		Logger:      logger,
		Concurrency: getEnvInt("ANALYTICS_CONCURRENCY", 2),
		BufferSize:  getEnvInt("ANALYTICS_BUFFER_SIZE", 1024),
	})

	searchService := services.NewSearchService(services.SearchServiceConfig{
		Index:    indexService,
		Cache:    adapters.cache,
		Recorder: dispatcher,
		Config:   cfg,
		Logger:   logger,
	})

	switch mode {
	case "worker":
		runWorkerMode(ctx, adapters, indexService, dispatcher)

	case "rebuild":
		for _, t := range domain.AllIndexTypes() {
			n, err := indexService.RebuildIndex(ctx, t)
			if err != nil {
				log.Fatalf("Failed to rebuild %s index: %v", t, err)
			}
			log.Printf("Rebuilt %s index: %d records", t, n)
		}
		printStats(ctx, indexService, analyticsService)

	case "archive":
		removed := services.NewArchiveScheduler(services.ArchiveSchedulerConfig{
			Analytics:      analyticsService,
			Lock:           adapters.lock,
			Logger:         logger,
			RetentionDays:  cfg.LogRetentionDays,
			RunWithoutLock: getEnvBool("ARCHIVE_RUN_WITHOUT_LOCK", false),
		}).RunOnce(ctx)
		log.Printf("Archived %d search logs older than %d days", removed, cfg.LogRetentionDays)

	case "stats":
		printStats(ctx, indexService, analyticsService)

	case "search":
		if len(os.Args) < 3 {
			log.Fatalf("Usage: %s search <query>", os.Args[0])
		}
		runSearch(ctx, searchService, dispatcher, strings.Join(os.Args[2:], " "))

	default:
		log.Fatalf("Unknown mode: %s (use: worker, rebuild, archive, stats, search, config)", mode)
	}
}

// loadSearchConfig reads the optional TOML file, then applies environment overrides
func loadSearchConfig() (domain.SearchConfig, error) {
	cfg, err := configfile.Load(getEnv("SEARCH_CONFIG_FILE", ""))
	if err != nil {
		return cfg, err
	}

	cfg.DefaultThreshold = getEnvFloat("SEARCH_DEFAULT_THRESHOLD", cfg.DefaultThreshold)
	cfg.PhoneticEnabled = getEnvBool("SEARCH_PHONETIC_ENABLED", cfg.PhoneticEnabled)
	cfg.LogRetentionDays = getEnvInt("SEARCH_LOG_RETENTION_DAYS", cfg.LogRetentionDays)
	cfg.IndexTTL = time.Duration(getEnvInt("SEARCH_INDEX_TTL_SEC", int(cfg.IndexTTL/time.Second))) * time.Second
	cfg.FuzzyPosts = getEnvBool("SEARCH_FUZZY_POSTS", cfg.FuzzyPosts)
	cfg.FuzzyTags = getEnvBool("SEARCH_FUZZY_TAGS", cfg.FuzzyTags)
	cfg.FuzzyCategories = getEnvBool("SEARCH_FUZZY_CATEGORIES", cfg.FuzzyCategories)

	return cfg, cfg.Validate()
}

// connect selects PostgreSQL and Redis adapters when configured and falls
// back to in-memory adapters otherwise.
func connect(ctx context.Context) *infra {
	i := &infra{}

	if databaseURL := getEnv("DATABASE_URL", ""); databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		i.closeFunc = append(i.closeFunc, func() { db.Close() })

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")

		i.content = postgres.NewContentRepository(db)
		i.logs = postgres.NewSearchLogStore(db)
		i.lock = postgres.NewAdvisoryLock(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory content and analytics stores")
		i.content = memory.NewContentRepository()
		i.logs = memory.NewSearchLogStore()
	}

	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		i.closeFunc = append(i.closeFunc, func() { client.Close() })
		log.Println("Redis connected")

		i.redis = client
		namespace := getEnv("REDIS_NAMESPACE", "")
		i.cache = redisadapter.NewIndexCache(client, namespace)
		i.lock = redisadapter.NewLock(client, namespace)
	} else {
		i.cache = memory.NewIndexCache()
	}

	return i
}

// runWorkerMode warms the indexes, then keeps them current from the content
// event stream while the dispatcher writes analytics and archives old logs.
func runWorkerMode(ctx context.Context, adapters *infra, index driving.IndexService, dispatcher *worker.Dispatcher) {
	log.Println("Starting worker mode...")

	n, err := index.BuildIndex(ctx)
	if err != nil {
		log.Printf("Warning: initial index build failed: %v", err)
	} else {
		log.Printf("Posts index warmed: %d records", n)
	}

	if err := dispatcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start analytics dispatcher: %v", err)
	}

	var consumer *redisadapter.ContentEventConsumer
	if adapters.redis != nil {
		consumer = redisadapter.NewContentEventConsumer(adapters.redis, redisadapter.ContentEventsConfig{
			Stream:   getEnv("CONTENT_EVENTS_STREAM", ""),
			Group:    getEnv("CONTENT_EVENTS_GROUP", ""),
			Consumer: getEnv("CONTENT_EVENTS_CONSUMER", ""),
		}, index, adapters.content, slog.Default())
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("Failed to start content event consumer: %v", err)
		}
	} else {
		log.Println("REDIS_URL not set, content events disabled; indexes refresh on TTL expiry")
	}

	log.Println("Worker started")

	<-ctx.Done()

	log.Println("Stopping worker...")
	if consumer != nil {
		consumer.Stop()
	}
	dispatcher.Stop()
	stats := dispatcher.Stats()
	log.Printf("Worker stopped (written=%d failed=%d dropped=%d)", stats.Written, stats.Failed, stats.Dropped)
}

func runSearch(ctx context.Context, search driving.SearchService, dispatcher *worker.Dispatcher, query string) {
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start analytics dispatcher: %v", err)
	}
	defer dispatcher.Stop()

	opts := domain.DefaultSearchOptions()
	if t, ok := domain.ParseIndexType(getEnv("SEARCH_TYPE", "posts")); ok {
		opts.Type = t
	}

	resp, err := search.Search(ctx, query, opts)
	if err != nil {
		log.Printf("Search failed: %v", err)
		return
	}
	printJSON(resp)
}

func printStats(ctx context.Context, index driving.IndexService, analytics driving.AnalyticsService) {
	indexes, err := index.GetIndexStats(ctx)
	if err != nil {
		log.Fatalf("Failed to read index stats: %v", err)
	}
	metrics, err := analytics.PerformanceMetrics(ctx, domain.PeriodMonth)
	if err != nil {
		log.Fatalf("Failed to read search metrics: %v", err)
	}
	printJSON(map[string]any{
		"indexes":     indexes,
		"performance": metrics,
	})
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
