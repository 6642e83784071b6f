package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/types"
)

// driverNames maps the configured backend to the registered sql driver.
var driverNames = map[string]string{
	"postgresql": "pgx",
	"mysql":      "mysql",
	"sqlite":     "sqlite3",
}

// Db executes generated statements against one backend connection pool.
type Db struct {
	conn      *sqlx.DB
	backend   string
	generator QueryGenerator
	logger    log.Logger
}

func NewDb(backend string, connectionString string, logger log.Logger) (*Db, error) {
	driver, found := driverNames[backend]
	if !found {
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	generator, err := NewQueryGenerator(backend)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Connect(driver, connectionString)
	if err != nil {
		return nil, err
	}

	return &Db{conn: conn, backend: backend, generator: generator, logger: logger}, nil
}

// NewDbWithConnection wraps an existing connection, used by tests.
func NewDbWithConnection(conn *sqlx.DB, backend string, logger log.Logger) (*Db, error) {
	generator, err := NewQueryGenerator(backend)
	if err != nil {
		return nil, err
	}
	return &Db{conn: conn, backend: backend, generator: generator, logger: logger}, nil
}

func (db *Db) Close() error {
	return db.conn.Close()
}

// Select runs the statement and returns rows keyed by backing column name.
func (db *Db) Select(ctx context.Context, structure *query.SelectStructure) ([]map[string]interface{}, error) {
	statement, args, err := db.generator.SelectQuery(structure)
	if err != nil {
		return nil, err
	}
	db.logger.Debug("executing select", "query", statement)

	rows, err := db.conn.QueryxContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		values = append(values, row)
	}
	return values, rows.Err()
}

func (db *Db) Insert(ctx context.Context, structure *query.InsertStructure) (*types.ModificationResult, error) {
	statement, args, err := db.generator.InsertQuery(structure)
	if err != nil {
		return nil, err
	}
	return db.execute(ctx, statement, args)
}

func (db *Db) Update(ctx context.Context, structure *query.UpdateStructure) (*types.ModificationResult, error) {
	statement, args, err := db.generator.UpdateQuery(structure)
	if err != nil {
		return nil, err
	}
	return db.execute(ctx, statement, args)
}

func (db *Db) Delete(ctx context.Context, structure *query.DeleteStructure) (*types.ModificationResult, error) {
	statement, args, err := db.generator.DeleteQuery(structure)
	if err != nil {
		return nil, err
	}
	return db.execute(ctx, statement, args)
}

func (db *Db) execute(ctx context.Context, statement string, args []interface{}) (*types.ModificationResult, error) {
	db.logger.Debug("executing statement", "query", statement)
	result, err := db.conn.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows
		affected = 0
	}
	return &types.ModificationResult{Applied: affected > 0}, nil
}
