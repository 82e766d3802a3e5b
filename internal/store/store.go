package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on states.rule_set
const currentSchemaVersion = 1

// Store persists states in SQLite.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes st under st.ID, replacing any previous state for the id.
func (s *Store) Save(ctx context.Context, st State) error {
	if err := validateID(st.ID); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	st = st.normalize()
	factsJSON, err := marshalFacts(st.Facts)
	if err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO states
		(id, facts, fact_count, state_hash, rule_set, engine_version, state_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			facts = excluded.facts,
			fact_count = excluded.fact_count,
			state_hash = excluded.state_hash,
			rule_set = excluded.rule_set,
			engine_version = excluded.engine_version,
			state_version = excluded.state_version,
			revision = states.revision + 1
	`,
		st.ID,
		factsJSON,
		len(st.Facts),
		st.Hash,
		st.RuleSet,
		st.EngineVersion,
		st.StateVersion,
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}
	return nil
}

// Load returns the state saved under id. found is false when there is none.
func (s *Store) Load(ctx context.Context, id string) (st State, found bool, err error) {
	var factsJSON string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, facts, state_hash, rule_set, engine_version, state_version, revision
		FROM states
		WHERE id = ?
	`, id).Scan(&st.ID, &factsJSON, &st.Hash, &st.RuleSet, &st.EngineVersion, &st.StateVersion, &st.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("load state %s: %w", id, err)
	}

	st.Facts, err = unmarshalFacts(factsJSON)
	if err != nil {
		return State{}, false, fmt.Errorf("load state %s: %w", id, err)
	}
	return st, true, nil
}

// Clear deletes the state saved under id and reports whether one existed.
func (s *Store) Clear(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM states WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("clear state %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear state %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns the saved state ids in binary order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM states ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan state id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}
	return ids, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes states by rule set so states written by a previous
// rule set can be found.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_states_rule_set ON states(rule_set)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
