// Package vectorstore persists embedded markdown chunks and answers
// nearest-neighbour queries over them.
//
// Three providers implement Store and Admin:
//   - ChromemStore: embedded chromem-go, in memory or persisted to disk
//   - QdrantStore: external Qdrant over gRPC
//   - S3VectorsStore: Amazon S3 Vectors
//
// Every provider stores the same Metadata bundle with each vector and reports
// cosine distance in [0, 2], so callers can convert distance to similarity
// without knowing which backend is in use.
//
// # Usage
//
//	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
//	    InMemory:   true,
//	    VectorSize: 1024,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.EnsureIndex(ctx, 1024); err != nil {
//	    return err
//	}
//	err = store.PutBatch(ctx, records)
//	matches, err := store.Query(ctx, vectorstore.NewQueryVector(vec), 5)
//
// Stores do not retry. Writes are a single batch call and callers treat them
// as all-or-nothing.
//
// # Metrics
//
// Prometheus metrics are registered under the mdsearch_vectorstore prefix:
// records written, operations by result, operation latency and query result
// counts, each labelled by provider.
package vectorstore
