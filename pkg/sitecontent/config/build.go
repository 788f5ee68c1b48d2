package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/documents"
	"github.com/tendant/site-content/pkg/sitecontent/relay/fswatch"
	redisrelay "github.com/tendant/site-content/pkg/sitecontent/relay/redis"
	"github.com/tendant/site-content/pkg/sitecontent/remote"
	fsstore "github.com/tendant/site-content/pkg/sitecontent/store/fs"
	"github.com/tendant/site-content/pkg/sitecontent/store/memory"
	pgstore "github.com/tendant/site-content/pkg/sitecontent/store/postgres"
	redisstore "github.com/tendant/site-content/pkg/sitecontent/store/redis"
	s3store "github.com/tendant/site-content/pkg/sitecontent/store/s3"
	"github.com/tendant/site-content/pkg/sitecontent/store/sqlite"
)

// Backend is a built store plus the relay that fits it.
type Backend struct {
	Store   sitecontent.Store
	Relay   sitecontent.Relay
	Cleanup func()
}

// BuildStore opens the store named by StoreURL. origin tags relay messages;
// pass the service origin.
func (c *ServerConfig) BuildStore(ctx context.Context, origin string, logger *slog.Logger) (*Backend, error) {
	loc, err := ParseStoreURL(c.StoreURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	switch loc.Type {
	case StoreMemory:
		return &Backend{Store: memory.New(), Relay: sitecontent.NewNoopRelay(), Cleanup: noop}, nil

	case StoreFS:
		store, err := fsstore.New(fsstore.Config{BaseDir: loc.Path})
		if err != nil {
			return nil, err
		}
		relay := fswatch.New(store.Dir(), fswatch.WithLogger(logger))
		return &Backend{Store: store, Relay: relay, Cleanup: noop}, nil

	case StoreRedis:
		opts, err := goredis.ParseURL(loc.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		rdb := goredis.NewClient(opts)
		store, err := redisstore.New(rdb, c.Namespace)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		relay := redisrelay.New(rdb, c.Namespace, origin, logger)
		return &Backend{Store: store, Relay: relay, Cleanup: func() { rdb.Close() }}, nil

	case StorePostgres:
		pool, err := pgxpool.New(ctx, loc.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		store := pgstore.NewWithPool(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{Store: store, Relay: sitecontent.NewNoopRelay(), Cleanup: pool.Close}, nil

	case StoreSQLite:
		store, err := sqlite.Open(ctx, loc.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, Relay: sitecontent.NewNoopRelay(), Cleanup: func() { store.Close() }}, nil

	case StoreS3:
		store, err := s3store.New(ctx, s3store.Config{
			Region:          loc.Region,
			Bucket:          loc.Bucket,
			Prefix:          loc.Prefix,
			Endpoint:        loc.Endpoint,
			UsePathStyle:    loc.Endpoint != "",
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, Relay: sitecontent.NewNoopRelay(), Cleanup: noop}, nil
	}

	return nil, errors.New("unsupported store type: " + string(loc.Type))
}

// BuildService creates a ContentService from the configuration. The returned
// cleanup releases store connections.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (sitecontent.ContentService, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := documents.Registry(c.RemoteBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build document registry: %w", err)
	}

	origin := uuid.NewString()
	backend, err := c.BuildStore(ctx, origin, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build store: %w", err)
	}

	options := []sitecontent.Option{
		sitecontent.WithRegistry(registry),
		sitecontent.WithStore(backend.Store),
		sitecontent.WithRelay(backend.Relay),
		sitecontent.WithLogger(logger),
		sitecontent.WithOrigin(origin),
		sitecontent.WithPollInterval(c.PollInterval),
		sitecontent.WithHooks(sitecontent.LoggingHooks(logger)),
	}
	if c.RemoteBaseURL != "" {
		options = append(options, sitecontent.WithFetcher(remote.NewHTTPFetcher(nil)))
	}

	svc, err := sitecontent.New(options...)
	if err != nil {
		backend.Cleanup()
		return nil, nil, err
	}
	return svc, backend.Cleanup, nil
}
