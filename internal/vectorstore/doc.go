// Package vectorstore implements the embed/store/searchTopK chunk retrieval
// contract backing FlexiCLI's context assembly.
//
// A Store wraps one backend (chromem, embedded with no external
// dependency, or qdrant, a remote gRPC service) and an embeddings.Provider.
// StoreChunks embeds and persists file chunks; SearchTopK embeds a query,
// asks the backend for a wide candidate set, then re-ranks by similarity,
// proximity to the caller's focus files, and recency, dropping anything
// under the minimum similarity threshold.
//
// If the embedder can't produce a vector at all (every fallback tier
// failed), SearchTopK degrades to a keyword token-overlap search over the
// chunks seen so far and marks results Degraded so callers can tell the
// difference.
//
// Each Store is scoped to a single project; there is no cross-project
// visibility or tenant context threaded through ctx.
package vectorstore
