// Package vectordb is the boundary to the vector-search service.
//
// Everything that matters for binary quantization happens behind the
// Collection interface: turning float vectors into bit vectors, building the
// index, oversampling candidates and rescoring them with the original
// vectors. This package only describes the calls; it does not implement any
// of that.
//
// # Implementation Packages
//
//   - vectordb/qdrant: Qdrant over gRPC using the official Go client
//   - vectordb/mock: an in-process exact-search test double
package vectordb
