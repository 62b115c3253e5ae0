// Package sqlite provides a SQLite-backed implementation of the
// storage.DocumentStore interface. Documents are kept as JSON in a single
// table keyed by household, collection and id.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/hearth/internal/storage"
)

// Ensure SQLiteStore implements storage.DocumentStore
var _ storage.DocumentStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.DocumentStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	broker *storage.Broker
	now    func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writers serialize on the database file anyway; a single connection
	// avoids SQLITE_BUSY under concurrent bulk writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{db: db, broker: storage.NewBroker(), now: time.Now}, nil
}

// Close ends all subscriptions and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.broker.Close()
	return s.db.Close()
}

// Create stores doc under a generated id.
func (s *SQLiteStore) Create(ctx context.Context, c storage.Collection, doc storage.Document) (string, error) {
	id := uuid.New().String()
	if err := s.CreateWithID(ctx, c, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID stores doc under id, failing with storage.ErrAlreadyExists
// when the id is taken.
func (s *SQLiteStore) CreateWithID(ctx context.Context, c storage.Collection, id string, doc storage.Document) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("empty document id")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (household_id, collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (household_id, collection, id) DO NOTHING`,
		c.Household, c.Name, id, string(data), now, now,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert %s/%s: %w", c, id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", c, id, storage.ErrAlreadyExists)
	}

	s.broker.Notify(c)
	return nil
}

// Update merges patch into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, c storage.Collection, id string, patch storage.Document) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = json_patch(data, ?), updated_at = ?
		 WHERE household_id = ? AND collection = ? AND id = ?`,
		string(data), s.now().UnixMilli(), c.Household, c.Name, id,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to update %s/%s: %w", c, id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", c, id, storage.ErrNotFound)
	}

	s.broker.Notify(c)
	return nil
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, c storage.Collection, id string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE household_id = ? AND collection = ? AND id = ?",
		c.Household, c.Name, id,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to delete %s/%s: %w", c, id, err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.broker.Notify(c)
	}
	return nil
}

// Get reads one document.
func (s *SQLiteStore) Get(ctx context.Context, c storage.Collection, id string) (storage.Record, error) {
	if err := c.Validate(); err != nil {
		return storage.Record{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, created_at, updated_at FROM documents
		 WHERE household_id = ? AND collection = ? AND id = ?`,
		c.Household, c.Name, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%s/%s: %w", c, id, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Record{}, classify(fmt.Errorf("failed to get %s/%s: %w", c, id, err))
	}
	return rec, nil
}

// Query returns the documents matching q. Field paths are bound as
// parameters to json_extract, never spliced into the statement.
func (s *SQLiteStore) Query(ctx context.Context, c storage.Collection, q storage.Query) ([]storage.Record, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, data, created_at, updated_at FROM documents WHERE household_id = ? AND collection = ?")
	args := []any{c.Household, c.Name}
	for _, cond := range q.Where {
		sb.WriteString(" AND json_extract(data, ?) = ?")
		args = append(args, jsonPath(cond.Field), bindValue(cond.Value))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Direction == storage.Desc {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY json_extract(data, ?) " + dir + ", id ASC")
		args = append(args, jsonPath(q.OrderBy))
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query %s: %w", c, err))
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c, err)
	}
	return out, nil
}

// Subscribe pushes the result of q after every change to c made through this
// store.
func (s *SQLiteStore) Subscribe(ctx context.Context, c storage.Collection, q storage.Query) (<-chan storage.Snapshot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, c, func(ctx context.Context) ([]storage.Record, error) {
		return s.Query(ctx, c, q)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (storage.Record, error) {
	var (
		rec                  storage.Record
		data                 string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&rec.ID, &data, &createdAt, &updatedAt); err != nil {
		return storage.Record{}, err
	}
	doc, err := storage.DecodeJSON([]byte(data))
	if err != nil {
		return storage.Record{}, err
	}
	rec.Data = doc
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// bindValue maps a filter value onto what json_extract yields for it.
// Booleans come back as 0 or 1.
func bindValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

// classify maps driver errors onto storage sentinels.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "readonly") || strings.Contains(msg, "read-only") || strings.Contains(msg, "not authorized") {
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	}
	return err
}
