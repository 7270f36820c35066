// Package vectorstore stores message embeddings and answers nearest-neighbor
// queries over them.
//
// The Store contract is deliberately narrow: add precomputed embeddings,
// query by vector with an optional metadata equality filter, delete by
// filter, count. Distances are cosine distances, so lower means more
// similar, and hits carry their stored embedding so callers can compute
// centroids without a second round trip.
//
// Two engines implement Store:
//   - ChromemStore: embedded chromem-go, in-memory or persisted to gob files (default)
//   - QdrantStore: external Qdrant over gRPC
//
// Stores that can remove every entry atomically also implement Truncater.
// Callers check for it with a type assertion and otherwise fall back to a
// broad DeleteWhere on the domain tag every entry carries:
//
//	if t, ok := store.(vectorstore.Truncater); ok {
//	    err = t.Truncate(ctx)
//	} else {
//	    err = store.DeleteWhere(ctx, vectorstore.DomainFilter())
//	}
package vectorstore
