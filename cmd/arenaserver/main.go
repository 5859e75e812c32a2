// Package main provides the arena server binary: combat sessions, honour
// ratings, and the ranked matchmaking queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/npc"
	"github.com/cory-johannsen/arena/internal/game/rating"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/storage/redishonour"
)

// catalogAdapter exposes the world item catalog through the combat engine's
// reward lookup contract.
type catalogAdapter struct {
	catalog *world.Catalog
}

func (a catalogAdapter) Lookup(key string) (combat.ItemInfo, bool) {
	item, ok := a.catalog.Lookup(key)
	if !ok {
		return combat.ItemInfo{}, false
	}
	return combat.ItemInfo{Name: item.Name, Icon: item.Icon}, true
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	itemsDir := flag.String("items-dir", "content/items", "path to item YAML definitions directory")
	npcsDir := flag.String("npcs-dir", "content/npcs", "path to NPC YAML templates directory")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	logger.Info("starting arena server",
		zap.String("honour_store", cfg.Honour.Store),
		zap.String("metrics_addr", cfg.Server.MetricsAddr()),
	)

	// Item catalog for reward display data.
	catalogStart := time.Now()
	catalog, err := world.LoadCatalogFromDir(*itemsDir)
	if err != nil {
		logger.Fatal("loading item catalog", zap.Error(err))
	}
	logger.Info("item catalog loaded",
		zap.Int("items", catalog.Len()),
		zap.Duration("elapsed", time.Since(catalogStart)),
	)

	// Honour rating store backend.
	var store rating.Store
	var pool *postgres.Pool
	switch cfg.Honour.Store {
	case "postgres":
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewHonourRepository(pool.DB())
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		store, err = redishonour.NewStore(&redishonour.Config{RedisClient: client})
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr()))
	default:
		logger.Fatal("unknown honour store", zap.String("store", cfg.Honour.Store))
	}

	engine := rating.NewEngine(store, cfg.Honour.InitialRating, logger, metrics)
	if err := engine.Reload(ctx); err != nil {
		logger.Fatal("loading honour rankings", zap.Error(err))
	}

	// Character registry and combat session manager.
	characters := session.NewManager()
	calc := combat.NewCalculator(catalogAdapter{catalog: catalog}, logger)
	sessions := combat.NewManager(calc, engine, cfg.Combat.DefaultTimeout, logger, metrics)

	// Spawn one arena combatant per NPC template.
	templates, err := npc.LoadTemplates(*npcsDir)
	if err != nil {
		logger.Fatal("loading npc templates", zap.Error(err))
	}
	for _, tmpl := range templates {
		inst := npc.NewInstance(fmt.Sprintf("npc-%s", tmpl.ID), tmpl)
		if err := characters.Register(inst); err != nil {
			logger.Fatal("registering npc", zap.String("template", tmpl.ID), zap.Error(err))
		}
	}
	logger.Info("npc combatants spawned", zap.Int("count", len(templates)))

	// Ranked matchmaking queue.
	queue := match.NewQueue(
		characters, engine, sessions,
		combat.TypeHonour, cfg.Honour.InitialRating,
		cfg.Matchmaking,
		func() config.MatchmakingConfig { return cfg.Matchmaking },
		logger, metrics,
	)

	lifecycle := server.NewLifecycle(logger)

	queueCtx, stopQueue := context.WithCancel(ctx)
	lifecycle.Add("matchmaking", &server.FuncService{
		StartFn: func() error {
			queue.Run(queueCtx)
			return nil
		},
		StopFn: func() {
			stopQueue()
			queue.Reset()
		},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr(), Handler: mux}
	lifecycle.Add("metrics", &server.FuncService{
		StartFn: func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		},
	})

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	logger.Info("arena server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
