package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eugenenazirov/apportionment/internal/api"
	"github.com/eugenenazirov/apportionment/internal/apportion"
	"github.com/eugenenazirov/apportionment/internal/config"
	"github.com/eugenenazirov/apportionment/internal/dataset"
	"github.com/eugenenazirov/apportionment/internal/metrics"
	"github.com/eugenenazirov/apportionment/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	engine  apportion.Engine
	metrics *metrics.Prometheus
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if cfg.PopulationsFile != "" {
		if err := loadPopulations(store, cfg.PopulationsFile, logger); err != nil {
			return nil, fmt.Errorf("failed to load populations: %w", err)
		}
	}

	engine := apportion.New()
	handlerOpts := []api.HandlerOption{
		api.WithDefaults(cfg.Seats, cfg.Bonus),
		api.WithMaxSeats(cfg.MaxSeats),
	}
	routerOpts := []api.RouterOption{
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	var prom *metrics.Prometheus
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		var err error
		prom, err = metrics.NewPrometheus(reg, "")
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		handlerOpts = append(handlerOpts, api.WithMetrics(prom))
		routerOpts = append(routerOpts, api.WithMetricsHandler(prom.Handler()), api.WithRequestObserver(prom))
	}

	handler := api.NewHandler(engine, store, handlerOpts...)
	apiRouter := api.NewRouter(handler, logger, routerOpts...)

	return &App{
		storage: store,
		engine:  engine,
		metrics: prom,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API router and answers "/" with an index of
// the available endpoints.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, indexText)
	}))
	return mux
}

const indexText = `apportionment service (method of equal proportions)

GET  /api/health
GET  /api/subdivisions
PUT  /api/subdivisions
POST /api/apportion
POST /api/priority-list
GET  /metrics
`

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

func loadPopulations(store storage.Storage, path string, logger *zap.Logger) error {
	resolved, err := resolveDatasetPath(path)
	if err != nil {
		return err
	}

	subs, err := dataset.Load(resolved)
	if err != nil {
		return err
	}
	if err := store.SetSubdivisions(subs); err != nil {
		return err
	}

	logger.Info("populations loaded",
		zap.String("path", resolved),
		zap.Int("subdivisions", len(subs)),
	)
	return nil
}

// resolveDatasetPath returns path unchanged when it exists or is absolute,
// otherwise it is looked up relative to the project root.
func resolveDatasetPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return resolveProjectPath(path)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
