package query

import "github.com/datastax/sql-data-gateway/schema"

// FilterAllowedColumns resolves the requested exposed fields for a role and
// action. An empty request means "every column the role may read". A
// requested field the role is not allowed to use fails outright, it is
// never silently dropped.
func FilterAllowedColumns(entity *schema.Entity, role string, action schema.Action, requested []string) ([]string, error) {
	if !entity.HasPermission(role, action) {
		return nil, NewEntityAuthorizationError(entity.Name, action)
	}

	if len(requested) == 0 {
		allowed, _ := entity.AllowedColumns(role, action)
		if allowed == nil {
			return entity.ExposedColumns(), nil
		}
		exposed := make([]string, 0, len(allowed))
		for _, backing := range allowed {
			name, _ := entity.ExposedColumn(backing)
			exposed = append(exposed, name)
		}
		return exposed, nil
	}

	result := make([]string, 0, len(requested))
	for _, field := range requested {
		backing, found := entity.BackingColumn(field)
		if !found {
			return nil, NewFieldNotFoundError(field, entity.Name)
		}
		if !entity.ColumnAllowed(role, action, backing) {
			return nil, NewFieldAuthorizationError(field)
		}
		result = append(result, field)
	}
	return result, nil
}

// RowPolicy builds the database policy predicate for a role and action.
// @claims references in the policy text are substituted as bound parameter
// values from the request claims, never as literal text. A nil predicate
// means no policy is configured.
func RowPolicy(entity *schema.Entity, role string, action schema.Action, claims map[string]interface{}) (*Predicate, error) {
	if !entity.HasPermission(role, action) {
		return nil, NewEntityAuthorizationError(entity.Name, action)
	}
	policy := entity.Policy(role, action)
	if policy == "" {
		return nil, nil
	}
	return buildPolicyPredicate(policy, entity, claims)
}

// CombinePolicy conjoins the request predicate with the policy predicate so
// policy restrictions hold regardless of the request filter content.
func CombinePolicy(request *Predicate, policy *Predicate) *Predicate {
	return And(request, policy)
}
