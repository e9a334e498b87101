package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/coderipple/coderipple-go/internal/api/middleware"
	"github.com/coderipple/coderipple-go/internal/dependencies/clock"
	"github.com/coderipple/coderipple-go/internal/dependencies/random"
	"github.com/coderipple/coderipple-go/internal/gateway"
	"github.com/coderipple/coderipple-go/internal/services/room"
	"github.com/coderipple/coderipple-go/internal/services/scoring"
	"github.com/coderipple/coderipple-go/internal/services/secret"
	"github.com/coderipple/coderipple-go/internal/storage"
	"github.com/coderipple/coderipple-go/internal/storage/memory"
	redisstorage "github.com/coderipple/coderipple-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Scheduler clock.Scheduler
	Random    random.Random

	// Services
	ScoringService  *scoring.Service
	SecretGenerator *secret.Generator
	Controller      *room.Controller

	// Transport
	HubManager  *gateway.HubManager
	Broadcaster *gateway.Broadcaster
	Gateway     *gateway.Gateway
	Origins     middleware.OriginChecker
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// AllowedOrigins restricts which browser origins may connect.
	// Empty allows all origins.
	AllowedOrigins []string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	scheduler := clock.NewScheduler()
	rnd := random.New()

	return newWithDependencies(store, clk, scheduler, rnd, cfg.AllowedOrigins, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	scheduler clock.Scheduler,
	rnd random.Random,
	allowedOrigins []string,
	logger *slog.Logger,
) *App {
	scoringService := scoring.New()
	secretGenerator := secret.New(rnd)

	hubManager := gateway.NewHubManager(logger)
	broadcaster := gateway.NewBroadcaster(hubManager, logger)

	controller := room.NewController(
		store,
		secretGenerator,
		scoringService,
		clk,
		scheduler,
		rnd,
		broadcaster,
		logger,
	)

	origins := middleware.NewOriginChecker(allowedOrigins)
	gw := gateway.NewGateway(controller, hubManager, rnd, logger, wsOriginCheck(origins))

	return &App{
		Storage:         store,
		Clock:           clk,
		Scheduler:       scheduler,
		Random:          rnd,
		ScoringService:  scoringService,
		SecretGenerator: secretGenerator,
		Controller:      controller,
		HubManager:      hubManager,
		Broadcaster:     broadcaster,
		Gateway:         gw,
		Origins:         origins,
	}
}

// wsOriginCheck adapts the origin checker to the websocket upgrader.
// Requests without an Origin header are non-browser clients and pass.
func wsOriginCheck(check middleware.OriginChecker) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || check(origin)
	}
}
