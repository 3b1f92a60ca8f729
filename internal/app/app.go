// Package app wires stores, repositories, services, screens and handlers into
// one HTTP handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/config"
	"github.com/dronesight/dronesight-backend/internal/database"
	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/handlers"
	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/repository"
	"github.com/dronesight/dronesight-backend/internal/routes"
	"github.com/dronesight/dronesight-backend/internal/screens"
	"github.com/dronesight/dronesight-backend/internal/services"
)

// Components are the external systems the application runs against.
type Components struct {
	Store    docstore.Store
	Objects  media.ObjectStore
	Accounts services.Accounts
	Redis    *redis.Client
}

// App is a fully wired application.
type App struct {
	handler http.Handler
	closers []func() error
	log     *logrus.Entry
}

// Open connects every backing system named by cfg and wires the application.
// On error, whatever was opened is closed again.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.For("app")
	var closers []func() error
	fail := func(err error) (*App, error) {
		closeAll(closers, log)
		return nil, err
	}

	store, err := openDocstore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() error { return store.Close(context.Background()) })

	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, pg.Close)
	accounts := services.NewAccountStore(pg)
	if err := accounts.InitSchema(ctx); err != nil {
		return fail(err)
	}

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, rdb.Close)

	a, err := New(cfg, Components{
		Store:    store,
		Objects:  openObjectStore(cfg, log),
		Accounts: accounts,
		Redis:    rdb,
	})
	if err != nil {
		return fail(err)
	}
	a.closers = closers
	return a, nil
}

// New wires the application on top of already connected components.
func New(cfg *config.Config, c Components) (*App, error) {
	log := logger.For("app")

	staging, err := media.NewStaging(cfg.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	seq := media.NewSequencer(c.Objects, cfg.MediaFolder)

	users := repository.NewUserRepository(c.Store)
	sightings := repository.NewSightingRepository(c.Store, seq)
	sightingComments := repository.NewSightingCommentRepository(c.Store)
	discussions := repository.NewDiscussionRepository(c.Store)
	discussionComments := repository.NewDiscussionCommentRepository(c.Store)

	auth := services.NewAuthService(c.Accounts, services.NewSessionStore(c.Redis), users).
		WithIdentityCache(services.NewIdentityCache(c.Redis, services.DefaultCacheTTL))

	deps := screens.Deps{
		Users:              users,
		Sightings:          sightings,
		SightingComments:   sightingComments,
		Discussions:        discussions,
		DiscussionComments: discussionComments,
		Staging:            staging,
	}

	h := routes.Handlers{
		Auth:        handlers.NewAuthHandler(auth, users),
		Sightings:   handlers.NewSightingHandler(sightings, sightingComments, staging),
		Discussions: handlers.NewDiscussionHandler(discussions, discussionComments),
		Users:       handlers.NewUserHandler(users, auth),
		Media:       handlers.NewMediaHandler(c.Objects, seq, staging),
		Screens:     handlers.NewScreenHandler(deps, auth),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, cfg.TrustProxy) {
			r.Use(mw)
		}
		log.Info("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.NewRateLimiter(c.Redis, cfg.TrustProxy).Middleware)
	}
	r.Use(middleware.Authenticate(auth))

	routes.SetupRoutes(r, h)

	return &App{handler: r, log: log}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases every connection opened by Open.
func (a *App) Close() {
	closeAll(a.closers, a.log)
	a.closers = nil
}

func closeAll(closers []func() error, log *logrus.Entry) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

func openDocstore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.DocstoreDriver {
	case "mongo":
		logger.For("app").WithField("uri", database.MaskURI(cfg.MongoURI)).Info("Connecting to MongoDB...")
		db, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongoStore(db), nil
	case "firestore":
		client, err := database.ConnectFirestore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredsFile)
		if err != nil {
			return nil, err
		}
		return docstore.NewFirestoreStore(client), nil
	case "memory":
		logger.For("app").Warn("⚠️  Using the in-memory document store; data is lost on restart")
		return docstore.NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown DOCSTORE_DRIVER " + cfg.DocstoreDriver + " (want mongo, firestore or memory)")
	}
}

// openObjectStore falls back to media.Unavailable so the rest of the API keeps
// working without Cloudinary.
func openObjectStore(cfg *config.Config, log *logrus.Entry) media.ObjectStore {
	if !cfg.CloudinaryConfigured() {
		log.Warn("Cloudinary credentials not found. File uploads will not be available")
		return media.Unavailable{}
	}
	svc, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Cloudinary. File uploads will not be available")
		return media.Unavailable{}
	}
	log.Info("✅ Cloudinary service initialized")
	return svc
}
