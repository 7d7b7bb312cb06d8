package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.uber.org/fx"

	"prediction-service/internal/adapters/primary/http/handlers"
	"prediction-service/internal/adapters/primary/http/middleware"
	"prediction-service/internal/adapters/primary/pubsub"
	"prediction-service/internal/adapters/primary/watcher"
	"prediction-service/internal/adapters/secondary/filesystem"
	"prediction-service/internal/adapters/secondary/httpblob"
	"prediction-service/internal/adapters/secondary/kube"
	"prediction-service/internal/adapters/secondary/postgres"
	"prediction-service/internal/config"
	ports "prediction-service/internal/core/ports/output"
	"prediction-service/internal/core/services"
)

// ============================================================================
// Hexagonal Architecture Wiring
// ============================================================================

// Module provides the prediction service. It expects a *config.Config.
var Module = fx.Module("prediction",
	fx.Provide(
		newArtifactSources,
		newArtifactStore,
		newValidator,
		fx.Annotate(services.NewLinearEngine, fx.As(new(services.Engine))),
		newScheduler,
		newReportService,
		newPredictor,
		handlers.New,
		newRouter,
		newHTTPServer,
	),
	fx.Invoke(
		registerPredictor,
		registerWatcher,
		registerReloadSubscriber,
		registerHTTPServer,
	),
)

// Options wires Module around cfg.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		Module,
		fx.StopTimeout(cfg.Server.ShutdownTimeout),
	)
}

// Secondary Adapters (Artifact Sources)
func newArtifactSources(cfg *config.Config) []ports.ArtifactSource {
	sources := []ports.ArtifactSource{
		filesystem.NewFileSource(),
		httpblob.NewHTTPSource(cfg.Artifact.HTTPTimeout),
	}

	if cfg.Kubernetes.Enabled {
		src, err := kube.NewConfigMapSource(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("ConfigMap source init failed (continuing without K8s integration): %v", err)
		} else {
			sources = append(sources, src)
			log.Info("ConfigMap artifact source initialized")
		}
	} else {
		log.Info("Kubernetes integration disabled")
	}
	return sources
}

// Core Services (Application Layer)
func newArtifactStore(cfg *config.Config, sources []ports.ArtifactSource) *services.ArtifactStore {
	return services.NewArtifactStore(cfg.Artifact.Ref, sources...)
}

func newValidator(cfg *config.Config) *services.Validator {
	return services.NewValidator(cfg.Artifact.StrictValidation)
}

func newScheduler(cfg *config.Config, engine services.Engine) (*services.Scheduler, error) {
	return services.NewScheduler(engine, services.SchedulerConfig{
		MaxBatchSize: cfg.Batch.MaxSize,
		MaxWaitTime:  cfg.Batch.MaxWait,
	})
}

// newReportService returns nil when persistence is disabled.
func newReportService(lc fx.Lifecycle, cfg *config.Config) (*services.PredictionReportService, error) {
	if !cfg.Database.Enabled {
		log.Info("prediction reports disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database connection established")

	svc := services.NewPredictionReportService(postgres.NewPredictionReportRepository(pool), cfg.Database.ReportWorkers)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			svc.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			defer pool.Close()
			return svc.Close(ctx)
		},
	})
	return svc, nil
}

func newPredictor(
	cfg *config.Config,
	store *services.ArtifactStore,
	validator *services.Validator,
	scheduler *services.Scheduler,
	reports *services.PredictionReportService,
) *services.Predictor {
	var recorder services.PredictionRecorder
	if reports != nil {
		recorder = reports
	}
	return services.NewPredictor(store, validator, scheduler, recorder, services.PredictorConfig{
		RequestTimeout: cfg.Batch.RequestTimeout,
	})
}

// Primary Adapter (HTTP)
func newRouter(cfg *config.Config, h *handlers.Handler) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logging(),
		gin.Recovery(),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)

	h.RegisterProbes(router)
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func newHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Lifecycle hooks. Stop hooks run in reverse order: the server stops
// accepting requests before the predictor drains its batches.
func registerPredictor(lc fx.Lifecycle, p *services.Predictor) {
	lc.Append(fx.Hook{
		OnStart: p.Start,
		OnStop:  p.Stop,
	})
}

func registerWatcher(lc fx.Lifecycle, cfg *config.Config, store *services.ArtifactStore) {
	ref := cfg.Artifact.Ref
	if !cfg.Artifact.Watch {
		return
	}
	if ref == "" || !filesystem.NewFileSource().Supports(ref) {
		log.WithField("ref", ref).Warn("artifact watch requested but the reference is not a file, ignoring")
		return
	}

	w := watcher.New(store, ref, filesystem.Path(ref), 0)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return w.Start()
		},
		OnStop: func(context.Context) error {
			return w.Close()
		},
	})
}

func registerReloadSubscriber(lc fx.Lifecycle, cfg *config.Config, store *services.ArtifactStore) {
	if !cfg.Redis.Enabled {
		log.Info("Redis reload channel disabled")
		return
	}

	client := pubsub.NewClient(cfg.Redis)
	sub := pubsub.NewSubscriber(client, cfg.Redis.ReloadChannel, store)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sub.Start(ctx); err != nil {
				log.Warnf("Redis subscriber init failed (continuing without reload channel): %v", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return errors.Join(sub.Close(), client.Close())
		},
	})
}

func registerHTTPServer(lc fx.Lifecycle, srv *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			log.Infof("starting server on %s", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("server error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
