package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	rediscache "pet-adoption/internal/adapters/cache/redis"
	memimages "pet-adoption/internal/adapters/images/memory"
	mem "pet-adoption/internal/adapters/storage/memory"
	pg "pet-adoption/internal/adapters/storage/postgres"
	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/domain/review"
	"pet-adoption/internal/domain/stats"
	"pet-adoption/internal/domain/users"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"
	platformredis "pet-adoption/internal/platform/redis"
	"pet-adoption/internal/ports/auth"
	"pet-adoption/internal/ports/geocoding"
	"pet-adoption/internal/ports/images"

	_ "pet-adoption/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres (ya migrada). Si no, in-memory.
	DB *sql.DB

	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Geocoder geocoding.Geocoder // nil = sin geocoding
	Images   images.Store       // nil = store en memoria
	Redis    *platformredis.Client
	StatsTTL time.Duration

	// Context acota los loops de fondo (refresh del índice geo). nil = Background.
	Context    context.Context
	GeoRefresh time.Duration
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	geocoder := opts.Geocoder
	if geocoder == nil {
		geocoder = geocoding.Noop{}
	}
	imgs := opts.Images
	if imgs == nil {
		imgs = memimages.New("")
	}

	var (
		animalRepo   animals.Repository
		adoptionRepo adoptions.Repository
		userRepo     users.Repository
		txRunner     adoptions.TxRunner
	)
	if opts.DB != nil {
		animalRepo = pg.NewAnimalsRepo(opts.DB)
		adoptionRepo = pg.NewAdoptionsRepo(opts.DB)
		userRepo = pg.NewUsersRepo(opts.DB)
		txRunner = pg.NewTxRunner(opts.DB)
	} else {
		store := mem.NewStore()
		animalRepo = store.Animals()
		adoptionRepo = store.Adoptions()
		userRepo = store.Users()
		txRunner = store
	}

	var statsCache stats.Cache
	if opts.Redis != nil {
		statsCache = rediscache.NewStatsCache(opts.Redis.Client, opts.StatsTTL)
	}

	// Services por módulo
	usersSvc := users.NewService(userRepo, geocoder, log)
	animalsSvc := animals.NewService(animalRepo, geo.NewIndex(),
		animals.WithGeocoder(geocoder),
		animals.WithImageStore(imgs),
		animals.WithMetrics(m),
		animals.WithLogger(log),
	)
	ledgerSvc := adoptions.NewService(adoptionRepo, txRunner, animalRepo, userRepo,
		adoptions.WithMetrics(m),
		adoptions.WithLogger(log),
	)
	statsSvc := stats.NewService(animalsSvc, ledgerSvc, statsCache, log)
	reviewSvc := review.NewService(ledgerSvc, txRunner,
		review.WithStats(statsSvc),
		review.WithMetrics(m),
		review.WithLogger(log),
	)
	// stats depende de los dos catálogos; la invalidación se engancha después
	animals.WithStats(statsSvc)(animalsSvc)
	adoptions.WithStats(statsSvc)(ledgerSvc)

	if opts.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := animalsSvc.Warm(ctx)
		cancel()
		if err != nil {
			log.Error("geo index warmup failed", map[string]any{"error": err})
		} else {
			log.Info("geo index warmed", map[string]any{"animals": n})
		}

		bg := opts.Context
		if bg == nil {
			bg = context.Background()
		}
		go animalsSvc.Refresh(bg, opts.GeoRefresh)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(log)) // después de AuthContext: loguea user_id
	r.Use(users.Track(usersSvc, log))

	r.Get("/health", healthHandler(opts.DB, opts.Redis))
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	r.Route("/animals", func(r chi.Router) {
		animals.RegisterRoutes(r, animalsSvc, usersSvc)
		review.StatusRoutes(r, reviewSvc)
	})
	r.Route("/adoptions", func(r chi.Router) {
		adoptions.RegisterRoutes(r, ledgerSvc)
		review.RegisterRoutes(r, reviewSvc)
		stats.RegisterRoutes(r, statsSvc)
	})
	users.RegisterRoutes(r, usersSvc)

	return r
}

func healthHandler(db *sql.DB, rc *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		if db != nil {
			checks["postgres"] = "ok"
			if err := db.PingContext(ctx); err != nil {
				checks["postgres"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if rc != nil {
			// redis solo es cache: degradado, no caído
			checks["redis"] = "ok"
			if err := rc.Health(ctx); err != nil {
				checks["redis"] = err.Error()
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		httpjson.Write(w, status, map[string]any{"status": state, "checks": checks})
	}
}
