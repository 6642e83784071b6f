package schema

import (
	"fmt"
	"sort"

	"go.uber.org/atomic"
)

// graphqlReservedNames are type names the generated GraphQL schema claims
// for itself; an entity colliding with one is a configuration error.
var graphqlReservedNames = map[string]bool{
	"Query":    true,
	"Mutation": true,
	"PageInfo": true,
}

// Snapshot is an immutable set of entities. Requests always observe one
// complete snapshot; swapping in a new one never exposes partial state.
type Snapshot struct {
	entities map[string]*Entity
	names    []string
}

func NewSnapshot(entities ...*Entity) (*Snapshot, error) {
	byName := make(map[string]*Entity, len(entities))
	names := make([]string, 0, len(entities))

	for _, entity := range entities {
		if graphqlReservedNames[entity.Name] {
			return nil, fmt.Errorf("entity name '%s' collides with a reserved GraphQL name", entity.Name)
		}
		if _, found := byName[entity.Name]; found {
			return nil, fmt.Errorf("entity '%s' is defined more than once", entity.Name)
		}
		byName[entity.Name] = entity
		names = append(names, entity.Name)
	}

	for _, entity := range entities {
		for relationshipName, relationship := range entity.Relationships {
			if _, found := byName[relationship.Target]; !found {
				return nil, fmt.Errorf(
					"entity '%s' relationship '%s' targets unknown entity '%s'",
					entity.Name, relationshipName, relationship.Target)
			}
		}
	}

	sort.Strings(names)
	return &Snapshot{entities: byName, names: names}, nil
}

func (s *Snapshot) Entity(name string) (*Entity, bool) {
	entity, found := s.entities[name]
	return entity, found
}

// EntityNames returns the entity names in a stable order.
func (s *Snapshot) EntityNames() []string {
	return s.names
}

// Store publishes metadata snapshots atomically. Construction at startup
// (and periodic refresh) is the only writer; request handlers only load.
type Store struct {
	current atomic.Value
}

func NewStore(snapshot *Snapshot) *Store {
	store := &Store{}
	store.current.Store(snapshot)
	return store
}

func (s *Store) Load() *Snapshot {
	return s.current.Load().(*Snapshot)
}

func (s *Store) Swap(snapshot *Snapshot) {
	s.current.Store(snapshot)
}
