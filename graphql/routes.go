package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/atomic"

	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/db"
	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/schema"
	"github.com/datastax/sql-data-gateway/types"
)

type RouteGenerator struct {
	dbClient       *db.Db
	store          *schema.Store
	schemaGen      *SchemaGenerator
	updateInterval time.Duration
	logger         log.Logger

	current atomic.Value // graphql.Schema
	built   *schema.Snapshot

	done      chan struct{}
	closeOnce sync.Once
}

type RequestBody struct {
	Query string `json:"query"`
}

func NewRouteGenerator(dbClient *db.Db, store *schema.Store, cfg config.Config) *RouteGenerator {
	return &RouteGenerator{
		dbClient:       dbClient,
		store:          store,
		schemaGen:      NewSchemaGenerator(dbClient, cfg),
		updateInterval: cfg.SchemaUpdateInterval(),
		logger:         cfg.Logger(),
		done:           make(chan struct{}),
	}
}

// Close stops the snapshot watcher goroutine. Safe to call more than once.
func (rg *RouteGenerator) Close() {
	rg.closeOnce.Do(func() { close(rg.done) })
}

// Routes builds the executable schema for the current snapshot and returns
// the GET and POST routes serving it. A background goroutine rebuilds the
// schema whenever the store publishes a new snapshot.
func (rg *RouteGenerator) Routes(pattern string) ([]types.Route, error) {
	if err := rg.rebuild(); err != nil {
		return nil, fmt.Errorf("unable to build graphql schema: %s", err)
	}

	if rg.updateInterval > 0 {
		go rg.watchSnapshot()
	}

	return []types.Route{
		{
			Method:  http.MethodGet,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rg.serve(w, r.URL.Query().Get("query"), r.Context())
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Body == nil {
					http.Error(w, "No request body", http.StatusBadRequest)
					return
				}

				var body RequestBody
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					http.Error(w, "Request body is invalid", http.StatusBadRequest)
					return
				}

				rg.serve(w, body.Query, r.Context())
			}),
		},
	}, nil
}

func (rg *RouteGenerator) serve(w http.ResponseWriter, queryString string, ctx context.Context) {
	result := rg.executeQuery(queryString, ctx)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "response could not be encoded: "+err.Error(), http.StatusInternalServerError)
	}
}

func (rg *RouteGenerator) executeQuery(queryString string, ctx context.Context) *graphql.Result {
	executableSchema := rg.current.Load().(graphql.Schema)
	result := graphql.Do(graphql.Params{
		Schema:        executableSchema,
		RequestString: queryString,
		Context:       ctx,
	})
	if len(result.Errors) > 0 {
		rg.logger.Error("errors processing graphql query", "errors", result.Errors)
	}
	return result
}

func (rg *RouteGenerator) rebuild() error {
	snapshot := rg.store.Load()
	executableSchema, err := rg.schemaGen.BuildSchema(snapshot)
	if err != nil {
		return err
	}
	rg.current.Store(executableSchema)
	rg.built = snapshot
	return nil
}

// watchSnapshot polls the store and regenerates the schema when a new
// snapshot has been swapped in. The previous schema keeps serving until the
// rebuild succeeds.
func (rg *RouteGenerator) watchSnapshot() {
	ticker := time.NewTicker(rg.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rg.done:
			return
		case <-ticker.C:
			if rg.store.Load() == rg.built {
				continue
			}
			if err := rg.rebuild(); err != nil {
				rg.logger.Error("unable to rebuild graphql schema", "error", err)
			}
		}
	}
}
