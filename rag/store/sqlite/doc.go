// Package sqlite stores collections in one SQLite database file, index.sqlite3,
// inside the storage location directory.
//
// Create makes the directory and schema; Open only opens what already exists
// and reports rag.ErrCollectionNotFound otherwise. Embeddings are stored as
// little-endian float32 blobs and ranked in process by cosine similarity.
package sqlite
