package main

import (
	"context"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/tht-tools/team-balancer/internal/auth"
	"github.com/tht-tools/team-balancer/internal/charts"
	"github.com/tht-tools/team-balancer/internal/clickhouse"
	"github.com/tht-tools/team-balancer/internal/config"
	"github.com/tht-tools/team-balancer/internal/engine"
	"github.com/tht-tools/team-balancer/internal/handlers"
	"github.com/tht-tools/team-balancer/internal/logger"
	"github.com/tht-tools/team-balancer/internal/pubsub"
	"github.com/tht-tools/team-balancer/internal/resolution"
	"github.com/tht-tools/team-balancer/internal/stats"
	"github.com/tht-tools/team-balancer/internal/store"
)

var (
	templates    *template.Template
	statsStore   *stats.Store
	boardStore   store.BoardStore
	authProvider auth.Provider
	chClient     *clickhouse.Client
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.Info("Starting team balancer dashboard", "environment", cfg.Environment)

	// Stats snapshot from CSV files. Missing files log a warning and leave
	// that game empty, so a partial stats directory still starts.
	table, updated, err := stats.LoadDir(cfg.StatsDir, config.Games)
	if err != nil {
		logger.Error("Failed to load stats", "error", err, "dir", cfg.StatsDir)
		log.Fatalf("Failed to load stats from %s: %v", cfg.StatsDir, err)
	}
	statsStore = stats.NewStore(table, updated)
	logger.Info("Stats loaded", "dir", cfg.StatsDir, "players", len(table.Players()))

	// Saved-board store.
	switch cfg.BoardDriver {
	case "memory":
		boardStore = store.NewMemoryStore()
		logger.Info("Using in-memory board store")
	case "sqlite":
		boardStore, err = store.NewSQLiteStore(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite board store", "file", cfg.SQLiteFile)
	case "postgres":
		if cfg.PostgresDSN == "" {
			log.Fatal("BALANCER_POSTGRES_DSN is required for the postgres board driver")
		}
		boardStore, err = store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres board store")
	default:
		log.Fatalf("Unknown board driver: %s (valid: memory, sqlite, postgres)", cfg.BoardDriver)
	}

	// Pub/sub. Development runs an embedded NATS server so the JetStream
	// path is exercised without external infrastructure.
	var upstream pubsub.Upstream
	if cfg.DevMode() {
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Port:    -1,
			Subject: cfg.NatsSubject,
		})
		if err != nil {
			logger.Error("Failed to start embedded NATS", "error", err)
			log.Fatalf("Failed to start embedded NATS: %v", err)
		}
		defer embedded.Close()
		upstream = embedded
	} else {
		real, err := pubsub.NewNATSPubSub(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err, "url", cfg.NatsURL)
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer real.Close()
		upstream = real
		logger.Info("Connected to NATS", "url", cfg.NatsURL)
	}
	ps := pubsub.NewWithUpstream(upstream)

	// ClickHouse warehouse sync keeps the stats table current while games
	// are being scored. Optional; the CSV snapshot works on its own.
	if cfg.ClickHouseAddr != "" && !cfg.DevMode() {
		chClient, err = clickhouse.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
		if err != nil {
			logger.Error("Failed to connect to ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer chClient.Close()
		logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)

		go func() {
			ticker := time.NewTicker(time.Duration(cfg.ClickHouseSyncMinutes) * time.Minute)
			defer ticker.Stop()

			syncScores(ps)
			for range ticker.C {
				syncScores(ps)
			}
		}()
	} else {
		logger.Info("ClickHouse sync disabled")
	}

	// Authentication.
	if cfg.DevMode() {
		logger.Info("Using mock authentication")
		authProvider = auth.NewMockAuth()
	} else {
		if cfg.OIDCBaseURL == "" || cfg.OIDCClientID == "" || cfg.OIDCClientSecret == "" {
			log.Fatal("OIDC_BASE_URL, OIDC_CLIENT_ID, and OIDC_CLIENT_SECRET are required outside development")
		}
		authProvider = auth.NewOIDCAuth(&auth.OIDCConfig{
			BaseURL:      cfg.OIDCBaseURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		})
		logger.Info("Connected to OIDC provider", "url", cfg.OIDCBaseURL)
	}

	templates, err = template.ParseGlob(cfg.TemplatesGlob)
	if err != nil {
		logger.Error("Failed to parse templates", "error", err)
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// Resolution sessions with idle expiry.
	sessions := resolution.NewRegistry()
	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessions.PurgeIdle(sessionTTL); n > 0 {
				logger.Debug("Purged idle resolution sessions", "count", n)
			}
		}
	}()

	eng := engine.New(config.Games, config.TeamNames())
	renderer := charts.New(config.Games, config.Teams)

	reload := func() error {
		table, updated, err := stats.LoadDir(cfg.StatsDir, config.Games)
		if err != nil {
			return err
		}
		statsStore.Replace(table, updated)
		return nil
	}

	api := handlers.NewAPIHandlers(statsStore, eng, sessions, boardStore, ps, renderer, config.Games, config.TeamNames(), reload)

	mux := http.NewServeMux()

	// Static files
	fs := http.FileServer(http.Dir("static"))
	mux.Handle("/static/", http.StripPrefix("/static/", fs))

	// Auth routes (public)
	mux.HandleFunc("/auth/login", authProvider.LoginHandler)
	mux.HandleFunc("/auth/callback", authProvider.CallbackHandler)
	mux.HandleFunc("/auth/logout", authProvider.LogoutHandler)

	// Dashboard page (protected)
	mux.HandleFunc("/", authProvider.Middleware(indexHandler))

	// Recompute API
	mux.HandleFunc("/api/recalc", api.Recalc)
	mux.HandleFunc("/api/players", api.Players)
	mux.HandleFunc("/api/games", api.Games)

	// Resolution API
	mux.HandleFunc("/api/resolutions", api.Resolutions)
	mux.HandleFunc("/api/resolutions/substitute", api.Substitute)
	mux.HandleFunc("/api/resolutions/ignore", api.Ignore)
	mux.HandleFunc("/api/resolutions/clear", api.ClearResolution)

	// Saved boards API
	mux.HandleFunc("/api/boards", api.ListBoards)
	mux.HandleFunc("/api/boards/get", api.GetBoard)
	mux.HandleFunc("/api/boards/save", api.SaveBoard)
	mux.HandleFunc("/api/boards/delete", api.DeleteBoard)

	// Admin API (protected)
	mux.HandleFunc("/api/stats/reload", authProvider.Middleware(api.ReloadStats))

	// SSE for realtime updates
	mux.HandleFunc("/api/events", api.EventsSSE)

	// Health check endpoints
	mux.HandleFunc("/api/health", healthHandler)
	mux.HandleFunc("/healthz", livenessHandler)
	mux.HandleFunc("/readyz", readinessHandler)

	logger.Info("Server starting", "address", cfg.Address)
	if err := http.ListenAndServe(cfg.Address, mux); err != nil {
		logger.Error("Server failed", "error", err)
		log.Fatal(err)
	}
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	user := auth.GetUser(r)
	table := statsStore.Table()

	data := map[string]any{
		"Teams":       config.Teams,
		"Games":       config.EnabledGames(),
		"Players":     table.Players(),
		"LastUpdated": statsStore.LastUpdated().Format("2006-01-02 15:04"),
		"User":        user,
		"IsAdmin":     auth.IsAdmin(user),
	}

	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if boardStore != nil {
		if _, err := boardStore.List(); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks["boards"] = map[string]any{"status": "unhealthy", "error": err.Error()}
		} else {
			checks["boards"] = map[string]any{"status": "healthy"}
		}
	} else {
		checks["boards"] = map[string]any{"status": "not_configured"}
	}

	if chClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := chClient.FetchAllScores(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks["clickhouse"] = map[string]any{"status": "unhealthy", "error": err.Error()}
		} else {
			checks["clickhouse"] = map[string]any{"status": "healthy"}
		}
	}

	checks["stats"] = map[string]any{
		"status":      "healthy",
		"lastUpdated": statsStore.LastUpdated().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// livenessHandler answers Kubernetes liveness probes without touching
// dependencies.
func livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// readinessHandler answers Kubernetes readiness probes; the board store is
// the one dependency a request cannot do without.
func readinessHandler(w http.ResponseWriter, r *http.Request) {
	if boardStore != nil {
		if _, err := boardStore.List(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"status":    "not_ready",
				"reason":    "board_store_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

// syncScores pulls warehouse totals into the stats table and notifies
// connected dashboards.
func syncScores(ps *pubsub.PubSub) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := chClient.SyncScores(ctx, func(scores map[string]map[string]float64) error {
		statsStore.Merge(scores)
		return nil
	})
	if err != nil {
		logger.Error("Failed to sync scores from ClickHouse", "error", err)
		return
	}

	ps.Publish(pubsub.Event{
		Type:    pubsub.EventStatsUpdated,
		Payload: map[string]any{"source": "clickhouse"},
	})
}
