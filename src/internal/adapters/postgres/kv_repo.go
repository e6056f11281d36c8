package postgres

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"github.com/learnhub/learnhub/src/internal/ports"
)

func NewConnection(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresKVRepo stores client slots in a shared table, namespaced so that
// several frontends (one per learner profile) can share a database.
type PostgresKVRepo struct {
	db        *sql.DB
	namespace string
}

func NewKVRepo(db *sql.DB, namespace string) *PostgresKVRepo {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresKVRepo{db: db, namespace: namespace}
}

func (r *PostgresKVRepo) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS client_storage (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		);
	`)
	return err
}

func (r *PostgresKVRepo) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM client_storage
		WHERE namespace = $1 AND key = $2
	`
	var value string
	err := r.db.QueryRowContext(ctx, query, r.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *PostgresKVRepo) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.ExecContext(ctx, query, r.namespace, key, value)
	return err
}

func (r *PostgresKVRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_storage WHERE namespace = $1 AND key = $2`, r.namespace, key)
	return err
}

func (r *PostgresKVRepo) Close() error {
	return r.db.Close()
}
