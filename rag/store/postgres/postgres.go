package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/agentapis/rag"
)

// SQLSTATE codes the store maps to rag.ErrCollectionNotFound.
const (
	undefinedTable      = "42P01"
	foreignKeyViolation = "23503"
	invalidCatalogName  = "3D000"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements rag.CollectionStore on PostgreSQL
type Store struct {
	pool DBPool
}

var _ rag.CollectionStore = (*Store)(nil)

// Create connects to connString and creates the schema if needed.
func Create(ctx context.Context, connString string) (*Store, error) {
	s, err := connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Open connects to connString without touching the schema. A missing database
// fails with rag.ErrCollectionNotFound; missing tables surface the same way on
// first use.
func Open(ctx context.Context, connString string) (*Store, error) {
	s, err := connect(ctx, connString)
	if err != nil {
		return nil, openError(err)
	}
	return s, nil
}

func openError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidCatalogName {
		return fmt.Errorf("%w: %w", rag.ErrCollectionNotFound, err)
	}
	return err
}

func connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool creates a store on an existing pool.
// Useful for testing with mocks
func NewWithPool(pool DBPool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates the necessary tables if they don't exist
func (s *Store) InitSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			embedding_model TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL REFERENCES collections (name),
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding REAL[] NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks (collection);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureCollection returns the named collection, creating it if needed.
func (s *Store) EnsureCollection(ctx context.Context, name, embeddingModel string) (rag.CollectionInfo, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name, embedding_model, created_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		name, embeddingModel, time.Now().UTC())
	if err != nil {
		return rag.CollectionInfo{}, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return s.Collection(ctx, name)
}

// Collection returns the named collection or rag.ErrCollectionNotFound.
func (s *Store) Collection(ctx context.Context, name string) (rag.CollectionInfo, error) {
	var info rag.CollectionInfo
	err := s.pool.QueryRow(ctx,
		`SELECT name, embedding_model, created_at FROM collections WHERE name = $1`,
		name).Scan(&info.Name, &info.EmbeddingModel, &info.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, collection, source, chunk_index, content, embedding, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Collection, c.Source, c.Index, c.Content, c.Embedding, metadataJSON, createdAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, c.Collection)
			}
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Search ranks every chunk of the collection against query and returns the best k.
func (s *Store) Search(ctx context.Context, collection string, query []float32, k int) ([]rag.SearchResult, error) {
	if _, err := s.Collection(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, source, chunk_index, content, embedding, metadata, created_at FROM chunks WHERE collection = $1 ORDER BY created_at, chunk_index`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		c := rag.Chunk{Collection: collection}
		var metadataJSON []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Index, &c.Content, &c.Embedding, &metadataJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	return rag.RankChunks(query, chunks, k), nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.Collection(ctx, collection); err != nil {
		return 0, err
	}

	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
