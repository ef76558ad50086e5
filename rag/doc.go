// Package rag holds the core types of the document indexer and retriever.
//
// Text is loaded into Documents, split into overlapping Chunks, embedded and
// appended to a named collection held by a CollectionStore. A retriever bound
// to one collection later answers queries with the chunks closest to the
// query embedding by cosine similarity.
//
// Sub-packages:
//
//   - loader: reads a text file into a single Document
//   - splitter: recursive character splitting with size and overlap
//   - store/sqlite, store/postgres, store/memory: CollectionStore backends
//   - embedcache: Redis cache in front of any Embedder
//   - retriever: the retrieval handle returned by the indexer
//   - indexer: the Ingest and OpenRetriever operations
//
// The adapters in this package bridge to langchaingo embedders, text splitters,
// document loaders and schema documents.
package rag
