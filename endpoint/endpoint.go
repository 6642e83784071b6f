package endpoint

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/db"
	"github.com/datastax/sql-data-gateway/graphql"
	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/rest"
	"github.com/datastax/sql-data-gateway/schema"
	"github.com/datastax/sql-data-gateway/types"
)

const DefaultSchemaUpdateDuration = 10 * time.Second

type DataEndpointConfig struct {
	runtime        *config.RuntimeConfig
	updateInterval time.Duration
	naming         config.NamingConvention
	supportedOps   config.Operations
	development    bool
	logger         log.Logger
}

func (cfg DataEndpointConfig) SchemaUpdateInterval() time.Duration {
	return cfg.updateInterval
}

func (cfg DataEndpointConfig) Naming() config.NamingConvention {
	return cfg.naming
}

func (cfg DataEndpointConfig) DevelopmentMode() bool {
	return cfg.development
}

func (cfg DataEndpointConfig) SupportedOperations() config.Operations {
	return cfg.supportedOps
}

func (cfg DataEndpointConfig) Logger() log.Logger {
	return cfg.logger
}

func (cfg *DataEndpointConfig) WithSchemaUpdateInterval(updateInterval time.Duration) *DataEndpointConfig {
	cfg.updateInterval = updateInterval
	return cfg
}

func (cfg *DataEndpointConfig) WithNaming(naming config.NamingConvention) *DataEndpointConfig {
	cfg.naming = naming
	return cfg
}

func (cfg *DataEndpointConfig) WithSupportedOperations(supportedOps config.Operations) *DataEndpointConfig {
	cfg.supportedOps = supportedOps
	return cfg
}

func (cfg *DataEndpointConfig) WithDevelopmentMode(development bool) *DataEndpointConfig {
	cfg.development = development
	return cfg
}

func NewEndpointConfig(runtime *config.RuntimeConfig) (*DataEndpointConfig, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewEndpointConfigWithLogger(log.NewZapLogger(logger), runtime), nil
}

func NewEndpointConfigWithLogger(logger log.Logger, runtime *config.RuntimeConfig) *DataEndpointConfig {
	return &DataEndpointConfig{
		runtime:        runtime,
		updateInterval: DefaultSchemaUpdateDuration,
		naming:         config.NewDefaultNaming(),
		supportedOps:   config.AllOperations,
		logger:         logger,
	}
}

// NewEndpoint connects to the backend, discovers the configured entities and
// wires the route generators over the published snapshot.
func (cfg DataEndpointConfig) NewEndpoint() (*DataEndpoint, error) {
	dbClient, err := db.NewDb(cfg.runtime.Backend, cfg.runtime.ConnectionString, cfg.logger)
	if err != nil {
		return nil, err
	}
	return cfg.NewEndpointWithDb(dbClient)
}

// NewEndpointWithDb wires an endpoint over an existing connection, used by
// tests.
func (cfg DataEndpointConfig) NewEndpointWithDb(dbClient *db.Db) (*DataEndpoint, error) {
	snapshot, err := dbClient.Discover(context.Background(), cfg.runtime, cfg.naming)
	if err != nil {
		return nil, err
	}
	store := schema.NewStore(snapshot)

	endpoint := &DataEndpoint{
		dbClient:        dbClient,
		store:           store,
		restRouteGen:    rest.NewRouteGenerator(dbClient, store, &cfg),
		graphQLRouteGen: graphql.NewRouteGenerator(dbClient, store, &cfg),
		done:            make(chan struct{}),
	}

	if cfg.updateInterval > 0 {
		go endpoint.refreshSchema(cfg.runtime, cfg.naming, cfg.updateInterval, cfg.logger)
	}

	return endpoint, nil
}

type DataEndpoint struct {
	dbClient        *db.Db
	store           *schema.Store
	restRouteGen    *rest.RouteGenerator
	graphQLRouteGen *graphql.RouteGenerator
	done            chan struct{}
	closeOnce       sync.Once
}

func (e *DataEndpoint) RoutesREST(pattern string) []types.Route {
	return e.restRouteGen.Routes(pattern)
}

func (e *DataEndpoint) RoutesGraphQL(pattern string) ([]types.Route, error) {
	return e.graphQLRouteGen.Routes(pattern)
}

func (e *DataEndpoint) Store() *schema.Store {
	return e.store
}

// Close stops the refresh and schema-watch goroutines before releasing the
// connection pool. Safe to call more than once.
func (e *DataEndpoint) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	e.graphQLRouteGen.Close()
	return e.dbClient.Close()
}

// refreshSchema periodically re-discovers the catalog and atomically swaps
// in the new snapshot. A failed refresh keeps the previous snapshot serving.
func (e *DataEndpoint) refreshSchema(
	runtime *config.RuntimeConfig, naming config.NamingConvention, interval time.Duration, logger log.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			snapshot, err := e.dbClient.Discover(context.Background(), runtime, naming)
			if err != nil {
				logger.Error("schema refresh failed, keeping previous snapshot", "error", err)
				continue
			}
			e.store.Swap(snapshot)
		}
	}
}
