package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/agentapis/rag"
)

// FileName is the database file kept inside a storage location.
const FileName = "index.sqlite3"

// Store implements rag.CollectionStore on a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

var _ rag.CollectionStore = (*Store)(nil)

// Create opens the store under dir, creating the directory, database file and schema as needed.
func Create(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create storage location %s: %w", dir, err)
	}

	s, err := open(ctx, filepath.Join(dir, FileName), "rwc")
	if err != nil {
		return nil, err
	}

	if err := s.InitSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Open opens an existing store under dir. It never creates anything and returns
// rag.ErrCollectionNotFound when the database file does not exist.
func Open(ctx context.Context, dir string) (*Store, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no index at %s", rag.ErrCollectionNotFound, dir)
		}
		return nil, fmt.Errorf("unable to stat %s: %w", path, err)
	}
	return open(ctx, path, "rw")
}

func open(ctx context.Context, path, mode string) (*Store, error) {
	dsn := (&url.URL{
		Scheme:   "file",
		Opaque:   path,
		RawQuery: url.Values{"mode": {mode}, "_foreign_keys": {"on"}}.Encode(),
	}).String()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// A single connection serialises writers on the file.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to open database %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the necessary tables if they don't exist
func (s *Store) InitSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			embedding_model TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL REFERENCES collections (name),
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks (collection);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection returns the named collection, creating it if needed.
func (s *Store) EnsureCollection(ctx context.Context, name, embeddingModel string) (rag.CollectionInfo, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, embedding_model, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, embeddingModel, time.Now().UTC())
	if err != nil {
		return rag.CollectionInfo{}, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return s.Collection(ctx, name)
}

// Collection returns the named collection or rag.ErrCollectionNotFound.
func (s *Store) Collection(ctx context.Context, name string) (rag.CollectionInfo, error) {
	var info rag.CollectionInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT name, embedding_model, created_at
		FROM collections
		WHERE name = ?
	`, name).Scan(&info.Name, &info.EmbeddingModel, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rag.CollectionInfo{}, fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, name)
	}
	if err != nil {
		return rag.CollectionInfo{}, fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return info, nil
}

// AddChunks appends chunks in a single transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	known := make(map[string]bool)
	for _, c := range chunks {
		if !known[c.Collection] {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, c.Collection).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check collection %s: %w", c.Collection, err)
			}
			if exists == 0 {
				return fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, c.Collection)
			}
			known[c.Collection] = true
		}

		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, collection, source, chunk_index, content, embedding, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.Collection, c.Source, c.Index, c.Content, encodeEmbedding(c.Embedding), string(metadataJSON), createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Search ranks every chunk of the collection against query and returns the best k.
func (s *Store) Search(ctx context.Context, collection string, query []float32, k int) ([]rag.SearchResult, error) {
	chunks, err := s.chunks(ctx, collection)
	if err != nil {
		return nil, err
	}
	return rag.RankChunks(query, chunks, k), nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.Collection(ctx, collection); err != nil {
		return 0, err
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (s *Store) chunks(ctx context.Context, collection string) ([]rag.Chunk, error) {
	if _, err := s.Collection(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, chunk_index, content, embedding, metadata, created_at
		FROM chunks
		WHERE collection = ?
		ORDER BY created_at, chunk_index
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		c := rag.Chunk{Collection: collection}
		var blob []byte
		var metadataJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.Source, &c.Index, &c.Content, &blob, &metadataJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		if c.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	return chunks, nil
}
