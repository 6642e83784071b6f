package rest

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/datastax/sql-data-gateway/auth"
	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/db"
	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/schema"
	"github.com/datastax/sql-data-gateway/types"
)

const defaultPageSize = 100

// RouteGenerator builds the REST routes for every configured entity.
type RouteGenerator struct {
	dbClient     *db.Db
	store        *schema.Store
	supportedOps config.Operations
	development  bool
	logger       log.Logger
}

func NewRouteGenerator(dbClient *db.Db, store *schema.Store, cfg config.Config) *RouteGenerator {
	return &RouteGenerator{
		dbClient:     dbClient,
		store:        store,
		supportedOps: cfg.SupportedOperations(),
		development:  cfg.DevelopmentMode(),
		logger:       cfg.Logger(),
	}
}

// Routes returns the entity routes under the given root pattern.
func (rg *RouteGenerator) Routes(pattern string) []types.Route {
	collectionPattern := pattern + "/:entityName"
	itemPattern := collectionPattern + "/:pkValue"
	relationshipPattern := itemPattern + "/:relationshipName"

	return []types.Route{
		{Method: http.MethodGet, Pattern: collectionPattern, Handler: http.HandlerFunc(rg.handleList)},
		{Method: http.MethodGet, Pattern: itemPattern, Handler: http.HandlerFunc(rg.handleGetByPrimaryKey)},
		{Method: http.MethodGet, Pattern: relationshipPattern, Handler: http.HandlerFunc(rg.handleRelationship)},
		{Method: http.MethodPost, Pattern: collectionPattern, Handler: http.HandlerFunc(rg.handleCreate)},
		{Method: http.MethodPut, Pattern: itemPattern, Handler: http.HandlerFunc(rg.handleUpdate)},
		{Method: http.MethodDelete, Pattern: itemPattern, Handler: http.HandlerFunc(rg.handleDelete)},
	}
}

func (rg *RouteGenerator) entityFromRequest(w http.ResponseWriter, r *http.Request) (*schema.Entity, *schema.Snapshot, bool) {
	snapshot := rg.store.Load()
	name := httprouter.ParamsFromContext(r.Context()).ByName("entityName")
	entity, found := snapshot.Entity(name)
	if !found {
		RespondNotFound(w, "entity not found: "+name)
		return nil, nil, false
	}
	return entity, snapshot, true
}

func (rg *RouteGenerator) checkOperation(w http.ResponseWriter, op config.Operations) bool {
	if !rg.supportedOps.IsSupported(op) {
		RespondJSONObjectWithCode(w, http.StatusMethodNotAllowed, nil)
		return false
	}
	return true
}

func (rg *RouteGenerator) handleList(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityRead) {
		return
	}
	entity, _, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	role := auth.ContextRole(ctx)
	claims := auth.ContextClaims(ctx)
	params := r.URL.Query()

	projected, err := query.FilterAllowedColumns(entity, role, schema.ActionRead, parseSelect(params.Get(selectParam)))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	filter, err := query.BuildFilter(params.Get(filterParam), entity, role, schema.ActionRead)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	policy, err := query.RowPolicy(entity, role, schema.ActionRead, claims)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	orderBy, err := parseOrderBy(params.Get(orderByParam))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	first, err := parseFirst(params.Get(firstParam), defaultPageSize)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	spec, err := query.BuildPageSpec(entity, orderBy, first, params.Get(afterParam))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	combined := query.And(query.CombinePolicy(filter, policy), spec.After)
	structure, err := query.BuildSelect(entity, projected, combined, spec)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	rows, err := rg.dbClient.Select(ctx, structure)
	if err != nil {
		rg.logger.Error("select failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}

	page, token, hasNext, err := query.CompletePage(rows, spec.First, spec.OrderBy)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, types.QueryResult{
		After:       token,
		HasNextPage: hasNext,
		Values:      structure.AdaptRows(page),
	})
}

func (rg *RouteGenerator) handleGetByPrimaryKey(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityRead) {
		return
	}
	entity, _, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	role := auth.ContextRole(ctx)

	pkPredicate, err := rg.primaryKeyPredicate(entity, r)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	projected, err := query.FilterAllowedColumns(entity, role, schema.ActionRead, parseSelect(r.URL.Query().Get(selectParam)))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	policy, err := query.RowPolicy(entity, role, schema.ActionRead, auth.ContextClaims(ctx))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	structure, err := query.BuildSelect(entity, projected, query.And(pkPredicate, policy), nil)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	rows, err := rg.dbClient.Select(ctx, structure)
	if err != nil {
		rg.logger.Error("select failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}
	if len(rows) == 0 {
		RespondNotFound(w, "no row matches the requested primary key")
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, types.QueryResult{
		Values: structure.AdaptRows(rows[:1]),
	})
}

// handleRelationship serves the rows of a named relationship for one parent
// row, e.g. GET /api/books/1/categories. The target entity's own permissions
// and row policy apply to the result.
func (rg *RouteGenerator) handleRelationship(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityRead) {
		return
	}
	entity, snapshot, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	role := auth.ContextRole(ctx)
	claims := auth.ContextClaims(ctx)
	params := r.URL.Query()
	relationshipName := httprouter.ParamsFromContext(ctx).ByName("relationshipName")

	relationship, found := entity.Relationships[relationshipName]
	if !found {
		RespondNotFound(w, "relationship not found: "+relationshipName)
		return
	}
	target, found := snapshot.Entity(relationship.Target)
	if !found {
		RespondWithError(w, query.NewConfigurationError(
			"relationship '"+relationshipName+"' targets unknown entity '"+relationship.Target+"'"), rg.development)
		return
	}

	// The caller must be able to read the parent before traversing from it
	if _, err := query.FilterAllowedColumns(entity, role, schema.ActionRead, nil); err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	pkPredicate, err := rg.primaryKeyPredicate(entity, r)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	parentPolicy, err := query.RowPolicy(entity, role, schema.ActionRead, claims)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	parentStructure, err := query.BuildSelect(entity, nil, query.And(pkPredicate, parentPolicy), nil)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	parentRows, err := rg.dbClient.Select(ctx, parentStructure)
	if err != nil {
		rg.logger.Error("select failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}
	if len(parentRows) == 0 {
		RespondNotFound(w, "no row matches the requested primary key")
		return
	}

	projected, err := query.FilterAllowedColumns(target, role, schema.ActionRead, parseSelect(params.Get(selectParam)))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	targetPolicy, err := query.RowPolicy(target, role, schema.ActionRead, claims)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	orderBy, err := parseOrderBy(params.Get(orderByParam))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	first, err := parseFirst(params.Get(firstParam), defaultPageSize)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	spec, err := query.BuildPageSpec(target, orderBy, first, params.Get(afterParam))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	structure, err := query.BuildRelationshipSelect(snapshot, entity, relationshipName, parentRows[0], projected, spec)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}
	structure.Predicate = query.And(structure.Predicate, targetPolicy, spec.After)

	rows, err := rg.dbClient.Select(ctx, structure)
	if err != nil {
		rg.logger.Error("select failed", "entity", target.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}

	page, token, hasNext, err := query.CompletePage(rows, spec.First, spec.OrderBy)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, types.QueryResult{
		After:       token,
		HasNextPage: hasNext,
		Values:      structure.AdaptRows(page),
	})
}

func (rg *RouteGenerator) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityCreate) {
		return
	}
	entity, _, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	values, decodeErr := decodeBody(r)
	if decodeErr != nil {
		RespondWithError(w, decodeErr, rg.development)
		return
	}

	structure, err := query.BuildInsert(entity, auth.ContextRole(ctx), values)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	result, err := rg.dbClient.Insert(ctx, structure)
	if err != nil {
		rg.logger.Error("insert failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}
	result.Value = values
	RespondJSONObjectWithCode(w, http.StatusCreated, result)
}

func (rg *RouteGenerator) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityUpdate) {
		return
	}
	entity, _, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	role := auth.ContextRole(ctx)

	pkPredicate, err := rg.primaryKeyPredicate(entity, r)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	policy, err := query.RowPolicy(entity, role, schema.ActionUpdate, auth.ContextClaims(ctx))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	values, decodeErr := decodeBody(r)
	if decodeErr != nil {
		RespondWithError(w, decodeErr, rg.development)
		return
	}

	structure, err := query.BuildUpdate(entity, role, values, query.And(pkPredicate, policy))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	result, err := rg.dbClient.Update(ctx, structure)
	if err != nil {
		rg.logger.Error("update failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}
	result.Value = values
	RespondJSONObjectWithCode(w, http.StatusOK, result)
}

func (rg *RouteGenerator) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !rg.checkOperation(w, config.EntityDelete) {
		return
	}
	entity, _, ok := rg.entityFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	pkPredicate, err := rg.primaryKeyPredicate(entity, r)
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	// Delete has no field-level authorization, only the row policy applies
	policy, err := query.RowPolicy(entity, auth.ContextRole(ctx), schema.ActionDelete, auth.ContextClaims(ctx))
	if err != nil {
		RespondWithError(w, err, rg.development)
		return
	}

	result, err := rg.dbClient.Delete(ctx, query.BuildDelete(entity, query.And(pkPredicate, policy)))
	if err != nil {
		rg.logger.Error("delete failed", "entity", entity.Name, "error", err)
		RespondWithError(w, err, rg.development)
		return
	}
	RespondJSONObjectWithCode(w, http.StatusOK, result)
}

// primaryKeyPredicate casts the route segment into the entity's single
// primary key column. Composite keys are reached through $filter.
func (rg *RouteGenerator) primaryKeyPredicate(entity *schema.Entity, r *http.Request) (*query.Predicate, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("pkValue")
	if len(entity.PrimaryKey) != 1 {
		return nil, query.NewPaginationErrorf(
			"Entity '%s' has a composite primary key and cannot be addressed by a single route segment", entity.Name)
	}
	exposed, _ := entity.ExposedColumn(entity.PrimaryKey[0])
	return query.BuildPrimaryKeyPredicate(entity, map[string]string{exposed: raw})
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return nil, query.NewParsingError(0, "request body is required")
	}
	var values map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		return nil, query.NewParsingError(0, "request body is not valid JSON")
	}
	return values, nil
}
